// Package rbac holds the role administration data model and the static
// permission catalogue of the Fooddie back office.
//
// # Permission identifiers
//
// A permission identifier is an opaque token such as "USER_READ". By
// convention it is built as {CATEGORY}_{ACTION}, but only the catalogue
// relies on that shape; everything else treats identifiers as keys.
//
// # Catalogue
//
// The catalogue maps each category to its actions and identifiers:
//
//	USER      CREATE WRITE READ DELETE ALL
//	ROLE      CREATE WRITE READ DELETE ALL
//	CATEGORY  CREATE WRITE READ DELETE ALL
//	FOOD      CREATE WRITE READ DELETE ALL
//	ORDER     WRITE READ DELETE ALL
//	PROMOTION CREATE WRITE READ DELETE ALL
//	DASHBOARD -> DASHBOARD_VIEW   (singleton)
//	SETTINGS  -> SETTINGS_MANAGE  (singleton)
//
// It is a compile-time constant that is kept in sync with the backend by
// hand. An inverse index built once at construction classifies identifiers:
//
//	entry, ok := rbac.DefaultCatalogue().Resolve("USER_READ")
//	// entry.Category == "USER", entry.Action == "READ"
//
// Identifiers the catalogue does not know resolve to ok == false. Callers
// place them in the OTHER bucket; they are never part of a category toggle
// and are dropped when a role's permission set is saved.
//
// # Protected role
//
// The role named "super_admin" is protected. Role.IsProtected derives the
// flag from the immutable system key so that no local state can clear it.
//
// # Labels
//
// Category and action translations live in an embedded YAML document and can
// be overridden with LoadLabels. Missing translations fall back to the key.
package rbac
