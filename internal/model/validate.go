package model

import (
	"regexp"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// maxSlugLength keeps generated column and table names under the
// PostgreSQL identifier limit of 63 bytes.
const maxSlugLength = 60

// IsValidSlug reports whether s can be used as a field or stream slug.
// Slugs become SQL identifiers, so only lowercase letters, digits and
// underscores are allowed and the first character must be a letter.
func IsValidSlug(s string) bool {
	return len(s) <= maxSlugLength && slugPattern.MatchString(s)
}

// ReservedColumns are created on every entry table and cannot be used as
// field slugs.
var ReservedColumns = []string{"id", "created_at", "updated_at", "created_by", "ordering_count"}

// IsReservedColumn reports whether slug collides with a built-in entry column.
func IsReservedColumn(slug string) bool {
	for _, c := range ReservedColumns {
		if c == slug {
			return true
		}
	}
	return false
}
