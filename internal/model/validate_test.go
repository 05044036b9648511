package model

import (
	"strings"
	"testing"
)

// fieldErrors extracts the FieldError slice from a *ValidationError, failing the test otherwise.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestIsValidSlug(t *testing.T) {
	for _, tc := range []struct {
		slug string
		want bool
	}{
		{"title", true},
		{"first_name", true},
		{"a1", true},
		{"", false},
		{"1abc", false},
		{"_abc", false},
		{"Title", false},
		{"has-dash", false},
		{"has space", false},
		{"drop;table", false},
		{strings.Repeat("a", 60), true},
		{strings.Repeat("a", 61), false},
	} {
		if got := IsValidSlug(tc.slug); got != tc.want {
			t.Errorf("IsValidSlug(%q) = %v, want %v", tc.slug, got, tc.want)
		}
	}
}

func TestIsReservedColumn(t *testing.T) {
	for _, c := range ReservedColumns {
		if !IsReservedColumn(c) {
			t.Errorf("IsReservedColumn(%q) = false, want true", c)
		}
	}
	if IsReservedColumn("title") {
		t.Error("IsReservedColumn(\"title\") = true, want false")
	}
}

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "title", Message: "is required"},
		{Field: "bogus", Message: "unknown field"},
	}}
	want := "validation failed: title: is required; bogus: unknown field"
	if got := ve.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !ve.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
	if (&ValidationError{}).HasErrors() {
		t.Error("empty ValidationError should not have errors")
	}
}

func TestStream_TableName(t *testing.T) {
	s := &Stream{Slug: "posts", Prefix: "blog_"}
	if got := s.TableName(); got != "blog_posts" {
		t.Errorf("TableName() = %q, want %q", got, "blog_posts")
	}
	s.Prefix = ""
	if got := s.TableName(); got != "posts" {
		t.Errorf("TableName() = %q, want %q", got, "posts")
	}
}

func TestAssignOptions_Apply(t *testing.T) {
	a := &Assignment{}
	AssignOptions{Instructions: "Shown below the input", Unique: true, Required: true}.Apply(a)
	if !a.Unique || !a.Required {
		t.Fatalf("flags not applied: %+v", a)
	}
	if a.InstructionsText() != "Shown below the input" {
		t.Fatalf("instructions = %q", a.InstructionsText())
	}

	AssignOptions{}.Apply(a)
	if a.Unique || a.Required {
		t.Fatalf("flags not cleared: %+v", a)
	}
	if a.Instructions != nil {
		t.Fatal("empty instructions should be stored as nil")
	}
}

func TestFieldSpec_AssignOptions(t *testing.T) {
	spec := FieldSpec{TitleColumn: true, Instructions: "x", Unique: true, Required: true}
	got := spec.AssignOptions()
	want := AssignOptions{TitleColumn: true, Instructions: "x", Unique: true, Required: true}
	if got != want {
		t.Errorf("AssignOptions() = %+v, want %+v", got, want)
	}
}
