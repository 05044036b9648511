package model

import (
	"maps"
	"slices"
)

// ValueChecker validates a single non-nil entry value against the
// assignment it belongs to. It returns a descriptive error on failure.
type ValueChecker func(a *Assignment, val any) error

// ValidateEntryValues checks that values conforms to a stream's
// assignments. It rejects unknown keys, enforces required assignments and
// asks check to validate each present value. Returns a *ValidationError on
// failure, nil on success.
func ValidateEntryValues(values map[string]any, assigns []*Assignment, check ValueChecker) error {
	bySlug := make(map[string]*Assignment, len(assigns))
	for _, a := range assigns {
		bySlug[a.FieldSlug] = a
	}

	var ve ValidationError

	for _, key := range slices.Sorted(maps.Keys(values)) {
		if _, ok := bySlug[key]; !ok {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   key,
				Message: "unknown field",
			})
		}
	}

	for _, a := range assigns {
		val, present := values[a.FieldSlug]
		if !present || val == nil || val == "" {
			if a.Required {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   a.FieldSlug,
					Message: "is required",
				})
			}
			continue
		}
		if check == nil {
			continue
		}
		if err := check(a, val); err != nil {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   a.FieldSlug,
				Message: err.Error(),
			})
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
