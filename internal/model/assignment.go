package model

import "time"

// Assignment associates a field with a stream. The Field* values are
// joined from the fields table when assignments are read.
type Assignment struct {
	ID           string    `json:"id"`
	StreamID     string    `json:"stream_id"`
	FieldID      string    `json:"field_id"`
	SortOrder    int       `json:"sort_order"`
	Instructions *string   `json:"instructions,omitempty"`
	Unique       bool      `json:"unique"`
	Required     bool      `json:"required"`
	CreatedAt    time.Time `json:"created_at"`

	FieldName  string         `json:"field_name,omitempty"`
	FieldSlug  string         `json:"field_slug,omitempty"`
	FieldType  string         `json:"field_type,omitempty"`
	FieldExtra map[string]any `json:"field_extra,omitempty"`
}

// InstructionsText returns the instructions or "" when none are set.
func (a *Assignment) InstructionsText() string {
	if a.Instructions == nil {
		return ""
	}
	return *a.Instructions
}

// AssignOptions holds the per-assignment flags.
type AssignOptions struct {
	TitleColumn  bool   `json:"title_column,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Unique       bool   `json:"unique,omitempty"`
	Required     bool   `json:"required,omitempty"`
}

// Apply copies the flags onto a. Empty instructions are stored as null.
func (o AssignOptions) Apply(a *Assignment) {
	a.Unique = o.Unique
	a.Required = o.Required
	a.Instructions = nil
	if o.Instructions != "" {
		s := o.Instructions
		a.Instructions = &s
	}
}

// Column describes a column added to a stream's entry table.
type Column struct {
	Name string
	Type string
}

// StreamField is one row of a stream's entry form: the rendered input plus
// the metadata needed to lay it out.
type StreamField struct {
	Input        string `json:"input"`
	Value        any    `json:"value"`
	Instructions string `json:"instructions,omitempty"`
	FieldName    string `json:"field_name"`
	FieldSlug    string `json:"field_slug"`
	FieldType    string `json:"field_type"`
	Required     bool   `json:"required"`
}
