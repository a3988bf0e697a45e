package rbac

import (
	"fmt"
	"sort"
	"strings"
)

// PermissionID is an opaque permission token such as "USER_READ".
type PermissionID = string

// Action names used by the default catalogue
const (
	ActionCreate = "CREATE"
	ActionWrite  = "WRITE"
	ActionRead   = "READ"
	ActionDelete = "DELETE"
	ActionAll    = "ALL"
)

// Category names used by the default catalogue
const (
	CategoryUser      = "USER"
	CategoryRole      = "ROLE"
	CategoryCategory  = "CATEGORY"
	CategoryFood      = "FOOD"
	CategoryOrder     = "ORDER"
	CategoryPromotion = "PROMOTION"
	CategoryDashboard = "DASHBOARD"
	CategorySettings  = "SETTINGS"
)

// CategoryOther is the bucket used for identifiers the catalogue does not know.
const CategoryOther = "OTHER"

// CategoryDef declares one catalogue category. Exactly one of Actions or
// Singleton must be set.
type CategoryDef struct {
	Name string
	// Actions maps action name to identifier, in display order.
	Actions []ActionDef
	// Singleton is the identifier of a category without actions.
	Singleton PermissionID
}

// ActionDef is one (action, identifier) pair of a category
type ActionDef struct {
	Action string
	ID     PermissionID
}

// Entry is the classification of a known identifier
type Entry struct {
	Category string       `json:"category"`
	Action   string       `json:"action,omitempty"`
	ID       PermissionID `json:"id"`
}

// Catalogue is the static permission taxonomy. It is immutable after
// construction and safe for concurrent use.
type Catalogue struct {
	categories []CategoryDef
	byName     map[string]int
	index      map[PermissionID]Entry
	all        []PermissionID
}

// NewCatalogue validates the definitions and builds the inverse index.
func NewCatalogue(defs []CategoryDef) (*Catalogue, error) {
	c := &Catalogue{
		categories: make([]CategoryDef, 0, len(defs)),
		byName:     make(map[string]int, len(defs)),
		index:      make(map[PermissionID]Entry),
	}

	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, fmt.Errorf("catalogue: category name is required")
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("catalogue: duplicate category %q", name)
		}
		hasActions := len(def.Actions) > 0
		hasSingleton := def.Singleton != ""
		if hasActions == hasSingleton {
			return nil, fmt.Errorf("catalogue: category %q must have either actions or a singleton identifier", name)
		}

		copied := CategoryDef{Name: name, Singleton: def.Singleton}
		if hasSingleton {
			if err := c.addEntry(Entry{Category: name, ID: def.Singleton}); err != nil {
				return nil, err
			}
		}
		seenActions := make(map[string]struct{}, len(def.Actions))
		for _, a := range def.Actions {
			if a.Action == "" || a.ID == "" {
				return nil, fmt.Errorf("catalogue: category %q has an empty action or identifier", name)
			}
			if _, dup := seenActions[a.Action]; dup {
				return nil, fmt.Errorf("catalogue: category %q declares action %q twice", name, a.Action)
			}
			seenActions[a.Action] = struct{}{}
			if err := c.addEntry(Entry{Category: name, Action: a.Action, ID: a.ID}); err != nil {
				return nil, err
			}
			copied.Actions = append(copied.Actions, a)
		}

		c.byName[name] = len(c.categories)
		c.categories = append(c.categories, copied)
	}

	sort.Strings(c.all)
	return c, nil
}

// MustCatalogue is like NewCatalogue but panics on invalid definitions.
// Intended for package-level literals.
func MustCatalogue(defs []CategoryDef) *Catalogue {
	c, err := NewCatalogue(defs)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalogue) addEntry(e Entry) error {
	if existing, dup := c.index[e.ID]; dup {
		return fmt.Errorf("catalogue: identifier %q declared by both %q and %q", e.ID, existing.Category, e.Category)
	}
	c.index[e.ID] = e
	c.all = append(c.all, e.ID)
	return nil
}

// Resolve returns the category and action of an identifier.
// The boolean is false for identifiers the catalogue does not know.
func (c *Catalogue) Resolve(id PermissionID) (Entry, bool) {
	e, ok := c.index[id]
	return e, ok
}

// Contains reports whether the identifier is part of the catalogue
func (c *Catalogue) Contains(id PermissionID) bool {
	_, ok := c.index[id]
	return ok
}

// AllIdentifiers returns every catalogue identifier, sorted.
func (c *Catalogue) AllIdentifiers() []PermissionID {
	out := make([]PermissionID, len(c.all))
	copy(out, c.all)
	return out
}

// Categories returns the category names in display order
func (c *Catalogue) Categories() []string {
	out := make([]string, len(c.categories))
	for i, def := range c.categories {
		out[i] = def.Name
	}
	return out
}

// HasCategory reports whether the category exists
func (c *Catalogue) HasCategory(category string) bool {
	_, ok := c.byName[category]
	return ok
}

// IsSingleton reports whether the category maps directly to one identifier
func (c *Catalogue) IsSingleton(category string) bool {
	i, ok := c.byName[category]
	return ok && c.categories[i].Singleton != ""
}

// ActionsOf returns the actions of a category in display order. singleton is
// true (and actions nil) for singleton categories; ok is false for unknown
// categories.
func (c *Catalogue) ActionsOf(category string) (actions []string, singleton bool, ok bool) {
	i, found := c.byName[category]
	if !found {
		return nil, false, false
	}
	def := c.categories[i]
	if def.Singleton != "" {
		return nil, true, true
	}
	actions = make([]string, len(def.Actions))
	for j, a := range def.Actions {
		actions[j] = a.Action
	}
	return actions, false, true
}

// IdentifiersOf returns the identifiers of a category in display order
func (c *Catalogue) IdentifiersOf(category string) []PermissionID {
	i, ok := c.byName[category]
	if !ok {
		return nil
	}
	def := c.categories[i]
	if def.Singleton != "" {
		return []PermissionID{def.Singleton}
	}
	ids := make([]PermissionID, len(def.Actions))
	for j, a := range def.Actions {
		ids[j] = a.ID
	}
	return ids
}

// Identifier returns the identifier of a (category, action) pair. For
// singleton categories the action is ignored.
func (c *Catalogue) Identifier(category, action string) (PermissionID, bool) {
	i, ok := c.byName[category]
	if !ok {
		return "", false
	}
	def := c.categories[i]
	if def.Singleton != "" {
		return def.Singleton, true
	}
	for _, a := range def.Actions {
		if a.Action == action {
			return a.ID, true
		}
	}
	return "", false
}

// crud builds the conventional {CATEGORY}_{ACTION} identifiers.
func crud(category string, actions ...string) CategoryDef {
	def := CategoryDef{Name: category}
	for _, a := range actions {
		def.Actions = append(def.Actions, ActionDef{Action: a, ID: category + "_" + a})
	}
	return def
}

// DefaultCategories returns the back-office permission taxonomy. It must be
// kept in sync with the backend's permission set by hand.
func DefaultCategories() []CategoryDef {
	full := []string{ActionCreate, ActionWrite, ActionRead, ActionDelete, ActionAll}
	return []CategoryDef{
		crud(CategoryUser, full...),
		crud(CategoryRole, full...),
		crud(CategoryCategory, full...),
		crud(CategoryFood, full...),
		crud(CategoryOrder, ActionWrite, ActionRead, ActionDelete, ActionAll),
		crud(CategoryPromotion, full...),
		{Name: CategoryDashboard, Singleton: "DASHBOARD_VIEW"},
		{Name: CategorySettings, Singleton: "SETTINGS_MANAGE"},
	}
}

var defaultCatalogue = MustCatalogue(DefaultCategories())

// DefaultCatalogue returns the shared default catalogue
func DefaultCatalogue() *Catalogue {
	return defaultCatalogue
}
