// Package selection implements the tri-state (none/partial/full) category
// selection used to edit a role's permission set. All functions are pure:
// category state is always derived from the selected set and never cached.
package selection
