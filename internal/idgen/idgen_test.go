package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() (string, error)
		prefix string
	}{
		{"field", Field, FieldPrefix},
		{"stream", Stream, StreamPrefix},
		{"assignment", Assignment, AssignmentPrefix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tt.gen()
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if !strings.HasPrefix(id, tt.prefix) {
				t.Errorf("id %q missing prefix %q", id, tt.prefix)
			}
			if len(id) != len(tt.prefix)+Length {
				t.Errorf("length = %d, want %d (id=%q)", len(id), len(tt.prefix)+Length, id)
			}
		})
	}
}

func TestGenerateWithPrefix_Charset(t *testing.T) {
	pattern := regexp.MustCompile(`^x-[a-z0-9]+$`)
	for i := 0; i < 100; i++ {
		id, err := GenerateWithPrefix("x-")
		if err != nil {
			t.Fatalf("GenerateWithPrefix error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("GenerateWithPrefix = %q, does not match expected charset pattern", id)
		}
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := Field()
		if err != nil {
			t.Fatalf("Field() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}
