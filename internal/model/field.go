package model

import "time"

// Field is a reusable, typed data-entry definition. Slug and Namespace
// together identify a field.
type Field struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Namespace string         `json:"namespace"`
	Type      string         `json:"type"`
	Extra     map[string]any `json:"extra"`
	Locked    bool           `json:"locked,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// FieldSpec is the input for creating a field. When Assign names a stream
// in the same namespace, the new field is assigned to it using the
// remaining flags.
type FieldSpec struct {
	Name      string         `json:"name" toml:"name"`
	Slug      string         `json:"slug" toml:"slug"`
	Namespace string         `json:"namespace" toml:"namespace"`
	Type      string         `json:"type" toml:"type"`
	Extra     map[string]any `json:"extra,omitempty" toml:"extra"`

	Assign       string `json:"assign,omitempty" toml:"assign"`
	TitleColumn  bool   `json:"title_column,omitempty" toml:"title_column"`
	Instructions string `json:"instructions,omitempty" toml:"instructions"`
	Unique       bool   `json:"unique,omitempty" toml:"unique"`
	Required     bool   `json:"required,omitempty" toml:"required"`
}

// AssignOptions returns the assignment flags carried by the spec.
func (s FieldSpec) AssignOptions() AssignOptions {
	return AssignOptions{
		TitleColumn:  s.TitleColumn,
		Instructions: s.Instructions,
		Unique:       s.Unique,
		Required:     s.Required,
	}
}
