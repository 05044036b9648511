// Package fieldtype declares the field types a stream field can have, how
// each one is stored and validated, and how its form input is rendered.
package fieldtype

import (
	"sort"
	"sync"
)

// Type is a registered field type.
type Type interface {
	// Slug is the identifier stored on fields (e.g. "text").
	Slug() string
	// Name is a human readable label.
	Name() string
	// ColumnType returns the SQL type of the entry column created when a
	// field of this type is assigned. An empty string means no column.
	ColumnType(extra map[string]any) string
	// Validate checks a non-nil entry value.
	Validate(val any, extra map[string]any) error
	// Input describes how the form input is rendered.
	Input(extra map[string]any) Input
}

// ExtraValidator is implemented by types whose extra options shape the
// entry column or the input. ValidateExtra rejects options that cannot be
// stored or rendered.
type ExtraValidator interface {
	ValidateExtra(extra map[string]any) error
}

// ValidateExtra checks extra against t when t implements ExtraValidator.
func ValidateExtra(t Type, extra map[string]any) error {
	if v, ok := t.(ExtraValidator); ok {
		return v.ValidateExtra(extra)
	}
	return nil
}

// Input describes the HTML control used for a field type.
type Input struct {
	Template  string            // one of the renderer's templates: input, textarea, select, radio
	InputType string            // type attribute for the "input" template
	Attrs     map[string]string // extra attributes, rendered in key order
	Options   []Option          // choices for select and radio
}

// Option is a selectable choice.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Registry holds the set of known field types. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry returns a registry containing the given types.
func NewRegistry(types ...Type) *Registry {
	r := &Registry{types: make(map[string]Type, len(types))}
	for _, t := range types {
		r.types[t.Slug()] = t
	}
	return r
}

// Default returns a registry with all built-in types.
func Default() *Registry {
	return NewRegistry(
		Text{},
		Textarea{},
		Integer{},
		Decimal{},
		Choice{},
		Datetime{},
		Email{},
		URL{},
	)
}

// Register adds or replaces a type.
func (r *Registry) Register(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Slug()] = t
}

// Lookup returns the type registered under slug.
func (r *Registry) Lookup(slug string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[slug]
	return t, ok
}

// Types returns all registered types sorted by slug.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug() < out[j].Slug() })
	return out
}
