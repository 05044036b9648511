package streams

import (
	"errors"
	"fmt"
)

// Failure codes. Each operation returns one of these wrapped in an *OpError.
var (
	ErrEmptyFieldName      = errors.New("empty_field_name")
	ErrEmptyFieldSlug      = errors.New("empty_field_slug")
	ErrEmptyFieldNamespace = errors.New("empty_field_namespace")
	ErrInvalidFieldSlug    = errors.New("invalid_field_slug")
	ErrFieldSlugInUse      = errors.New("field_slug_in_use")
	ErrInvalidFieldType    = errors.New("invalid_fieldtype")
	ErrInvalidFieldExtra   = errors.New("invalid_field_extra")
	ErrInvalidField        = errors.New("invalid_field")
	ErrInvalidStream       = errors.New("invalid_stream")
	ErrInvalidAssignment   = errors.New("invalid_assignment")

	ErrEmptyStreamName      = errors.New("empty_stream_name")
	ErrEmptyStreamSlug      = errors.New("empty_stream_slug")
	ErrEmptyStreamNamespace = errors.New("empty_stream_namespace")
	ErrInvalidStreamSlug    = errors.New("invalid_stream_slug")
	ErrInvalidStreamSorting = errors.New("invalid_stream_sorting")
	ErrStreamSlugInUse      = errors.New("stream_slug_in_use")
	ErrStreamTableInUse     = errors.New("stream_table_in_use")
)

// Operation names, used in errors, logs and metrics.
const (
	OpAddField            = "add_field"
	OpAddFields           = "add_fields"
	OpAssignField         = "assign_field"
	OpDeassignField       = "deassign_field"
	OpDeleteField         = "delete_field"
	OpGetField            = "get_field"
	OpListFields          = "list_fields"
	OpGetFieldAssignments = "get_field_assignments"
	OpGetStreamFields     = "get_stream_fields"
	OpAddStream           = "add_stream"
	OpGetStream           = "get_stream"
	OpListStreams         = "list_streams"
	OpDeleteStream        = "delete_stream"
	OpValidateEntry       = "validate_entry"
)

// OpError records the operation that failed and why.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *OpError) Unwrap() error { return e.Err }

// IsNotFound reports whether err means a field, stream or assignment does
// not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrInvalidStream) ||
		errors.Is(err, ErrInvalidAssignment)
}

// IsConflict reports whether err means a slug or entry table name is
// already taken.
func IsConflict(err error) bool {
	return errors.Is(err, ErrFieldSlugInUse) ||
		errors.Is(err, ErrStreamSlugInUse) ||
		errors.Is(err, ErrStreamTableInUse)
}

// IsInvalidInput reports whether err was caused by malformed input.
func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrEmptyFieldName, ErrEmptyFieldSlug, ErrEmptyFieldNamespace,
		ErrInvalidFieldSlug, ErrInvalidFieldType, ErrInvalidFieldExtra,
		ErrEmptyStreamName, ErrEmptyStreamSlug, ErrEmptyStreamNamespace,
		ErrInvalidStreamSlug, ErrInvalidStreamSorting,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func wrapStore(what string, err error) error {
	return fmt.Errorf("%s: %w", what, err)
}

var codeErrors = []error{
	ErrEmptyFieldName, ErrEmptyFieldSlug, ErrEmptyFieldNamespace,
	ErrInvalidFieldSlug, ErrFieldSlugInUse, ErrInvalidFieldType,
	ErrInvalidFieldExtra,
	ErrInvalidField, ErrInvalidStream, ErrInvalidAssignment,
	ErrEmptyStreamName, ErrEmptyStreamSlug, ErrEmptyStreamNamespace,
	ErrInvalidStreamSlug, ErrInvalidStreamSorting, ErrStreamSlugInUse,
	ErrStreamTableInUse,
}

// Code returns the failure code carried by err, or "" when err does not
// wrap one of the package's sentinel errors.
func Code(err error) string {
	for _, target := range codeErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return ""
}

// ErrorForCode is the inverse of Code. It returns nil for unknown codes.
func ErrorForCode(code string) error {
	for _, target := range codeErrors {
		if target.Error() == code {
			return target
		}
	}
	return nil
}
