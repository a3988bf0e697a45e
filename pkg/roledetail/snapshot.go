package roledetail

import (
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/selection"
)

// Snapshot is a point-in-time copy of the observable session state
type Snapshot struct {
	Phase     Phase
	Role      *rbac.Role
	RoleErr   error
	Protected bool

	Form           rbac.RoleUpdate
	FormDirty      bool
	FormErrors     map[string]string
	SavingMetadata bool

	Editor EditorSnapshot
}

// EditorSnapshot is the render model of the permissions editor
type EditorSnapshot struct {
	Open     bool
	Phase    PermissionsPhase
	Err      error
	SaveErr  error
	Saving   bool
	Query    string
	Selected []rbac.PermissionID

	// Categories holds one row per catalogue category
	Categories []selection.CategorySummary
	// Visible lists the categories matching Query
	Visible []string
	// Other lists identifiers outside the catalogue, listed by the backend
	// or present in the selection
	Other []rbac.Entry
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Phase:          s.phase,
		RoleErr:        s.roleErr,
		Form:           s.form,
		FormDirty:      s.formDirty,
		FormErrors:     make(map[string]string, len(s.formErrors)),
		SavingMetadata: s.savingMeta,
	}
	if s.role != nil {
		r := *s.role
		r.Permissions = append([]rbac.PermissionID(nil), s.role.Permissions...)
		snap.Role = &r
		snap.Protected = r.IsProtected()
	}
	for k, v := range s.formErrors {
		snap.FormErrors[k] = v
	}

	ed := s.editor
	snap.Editor = EditorSnapshot{
		Open:    ed.open,
		Phase:   ed.phase,
		Err:     ed.err,
		SaveErr: ed.saveErr,
		Saving:  ed.saving,
		Query:   ed.query,
	}
	if ed.phase == PermissionsReady || ed.selected != nil {
		snap.Editor.Selected = ed.selected.Sorted()
		snap.Editor.Categories = selection.Summarize(s.cat, ed.selected)
		snap.Editor.Visible = selection.Filter(s.cat, s.labels, ed.query)

		ids := append(append([]rbac.PermissionID(nil), ed.backendIDs...), snap.Editor.Selected...)
		for _, b := range selection.Classify(s.cat, ids) {
			if b.Category == rbac.CategoryOther {
				snap.Editor.Other = b.Entries
			}
		}
	}
	return snap
}
