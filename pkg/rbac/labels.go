package rbac

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed labels.yaml
var defaultLabelsYAML []byte

// Labels holds the display translations for categories and actions. Lookups
// fall back to the raw key when no translation exists.
type Labels struct {
	Categories map[string]string `yaml:"categories"`
	Actions    map[string]string `yaml:"actions"`
}

// ParseLabels decodes a YAML label document
func ParseLabels(data []byte) (*Labels, error) {
	var l Labels
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}
	if l.Categories == nil {
		l.Categories = map[string]string{}
	}
	if l.Actions == nil {
		l.Actions = map[string]string{}
	}
	return &l, nil
}

// DefaultLabels returns the built-in English labels
func DefaultLabels() *Labels {
	l, err := ParseLabels(defaultLabelsYAML)
	if err != nil {
		panic(err)
	}
	return l
}

// LoadLabels reads a label file and merges it over the defaults.
// An empty path returns the defaults.
func LoadLabels(path string) (*Labels, error) {
	base := DefaultLabels()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	override, err := ParseLabels(data)
	if err != nil {
		return nil, err
	}
	for k, v := range override.Categories {
		base.Categories[k] = v
	}
	for k, v := range override.Actions {
		base.Actions[k] = v
	}
	return base, nil
}

// CategoryLabel returns the translation of a category
func (l *Labels) CategoryLabel(category string) string {
	if l != nil {
		if v, ok := l.Categories[category]; ok && v != "" {
			return v
		}
	}
	return category
}

// ActionLabel returns the translation of an action
func (l *Labels) ActionLabel(action string) string {
	if l != nil {
		if v, ok := l.Actions[action]; ok && v != "" {
			return v
		}
	}
	return action
}

// Describe renders an identifier as "Category: Action" for display.
// Unknown identifiers are shown under the Other label with the raw token.
func (l *Labels) Describe(c *Catalogue, id PermissionID) string {
	e, ok := c.Resolve(id)
	if !ok {
		return l.CategoryLabel(CategoryOther) + ": " + id
	}
	if e.Action == "" {
		return l.CategoryLabel(e.Category)
	}
	return l.CategoryLabel(e.Category) + ": " + l.ActionLabel(e.Action)
}
