package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alfredjeanlab/streams/internal/client"
	"github.com/alfredjeanlab/streams/internal/model"
)

func TestPrintFieldList(t *testing.T) {
	var buf bytes.Buffer
	printFieldList(&buf, []*model.Field{
		{ID: "fld-1", Slug: "title", Name: "Title", Type: "text"},
		{ID: "fld-2", Slug: "body", Name: strings.Repeat("x", 60), Type: "textarea"},
	})
	out := buf.String()

	for _, want := range []string{"SLUG", "title", "fld-1", "textarea", "...", "2 fields"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("x", 60)) {
		t.Error("long name was not truncated")
	}
}

func TestPrintStreamList(t *testing.T) {
	var buf bytes.Buffer
	printStreamList(&buf, []*model.Stream{{ID: "str-1", Slug: "posts", Prefix: "blog_", Name: "Posts", Sorting: model.SortingTitle}})
	out := buf.String()
	for _, want := range []string{"blog_posts", "str-1", "title", "1 streams"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStreamFields(t *testing.T) {
	var buf bytes.Buffer
	printStreamFields(&buf, nil)
	if !strings.Contains(buf.String(), "no fields assigned") {
		t.Errorf("empty form output = %q", buf.String())
	}

	buf.Reset()
	printStreamFields(&buf, []model.StreamField{
		{FieldName: "Title", FieldSlug: "title", FieldType: "text", Required: true, Value: "Hello", Input: `<input name="title">`},
		{FieldName: "Body", FieldSlug: "body", FieldType: "textarea", Instructions: "Markdown", Input: `<textarea name="body"></textarea>`},
	})
	out := buf.String()
	for _, want := range []string{"1. Title", "2. Body", "value: Hello", "Markdown", `<input name="title">`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "value:") != 1 {
		t.Errorf("value printed for a field without one:\n%s", out)
	}
}

func TestPrintTypesAndAssignments(t *testing.T) {
	var buf bytes.Buffer
	printTypes(&buf, []client.TypeInfo{{Slug: "text", Name: "Text"}})
	if !strings.Contains(buf.String(), "text") || !strings.Contains(buf.String(), "Text") {
		t.Errorf("types output = %q", buf.String())
	}

	buf.Reset()
	printAssignments(&buf, []*model.Assignment{{SortOrder: 1, FieldSlug: "title", FieldType: "text", StreamID: "str-1", Required: true}})
	if !strings.Contains(buf.String(), "required") {
		t.Errorf("assignments output = %q", buf.String())
	}
}

func TestAssignmentFlags(t *testing.T) {
	tests := []struct {
		required, unique bool
		want             string
	}{
		{false, false, "-"},
		{true, false, "required"},
		{false, true, "unique"},
		{true, true, "required,unique"},
	}
	for _, tt := range tests {
		if got := assignmentFlags(tt.required, tt.unique); got != tt.want {
			t.Errorf("assignmentFlags(%v, %v) = %q, want %q", tt.required, tt.unique, got, tt.want)
		}
	}
}

func TestColorizeHelpOutput_KeepsText(t *testing.T) {
	in := "Usage:\n  streams <command>\n\nFields:\n  field       Manage field definitions\n\nFlags:\n      --http-url string   HTTP server URL (default \"http://localhost:8080\")\n"
	out := colorizeHelpOutput(in)
	for _, want := range []string{"Usage:", "Manage field definitions", "HTTP server URL", "localhost:8080"} {
		if !strings.Contains(out, want) {
			t.Errorf("colorized help lost %q:\n%s", want, out)
		}
	}
}
