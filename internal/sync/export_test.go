package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/store"
	"github.com/alfredjeanlab/streams/internal/store/memstore"
)

// seedStore fills a store with two namespaces: blog has a posts stream with
// title and body assigned, shop has a single unassigned field.
func seedStore(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	ms := memstore.New()

	posts := &model.Stream{ID: "str-posts", Name: "Posts", Slug: "posts", Namespace: "blog", Prefix: "blog_", Sorting: model.SortingTitle}
	if err := ms.CreateStream(ctx, posts); err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	for _, f := range []*model.Field{
		{ID: "fld-title", Name: "Title", Slug: "title", Namespace: "blog", Type: "text", Extra: map[string]any{}},
		{ID: "fld-body", Name: "Body", Slug: "body", Namespace: "blog", Type: "textarea", Extra: map[string]any{}},
		{ID: "fld-price", Name: "Price", Slug: "price", Namespace: "shop", Type: "decimal", Extra: map[string]any{}},
	} {
		if err := ms.CreateField(ctx, f); err != nil {
			t.Fatalf("CreateField(%s): %v", f.Slug, err)
		}
	}
	for _, fid := range []string{"fld-title", "fld-body"} {
		a := &model.Assignment{ID: "asn-" + fid, StreamID: posts.ID, FieldID: fid}
		if err := ms.AddAssignment(ctx, posts, a, nil); err != nil {
			t.Fatalf("AddAssignment(%s): %v", fid, err)
		}
	}
	return ms
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), memstore.New(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.StreamCount != 0 || h.FieldCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if h.Namespaces == nil {
		t.Fatal("expected an empty namespace list, not null")
	}
}

func TestExportJSONL_AllNamespaces(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), seedStore(t), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// header + blog (1 stream, 2 fields, 2 assignments) + shop (1 field)
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.StreamCount != 1 || h.FieldCount != 3 || h.AssignmentCount != 2 {
		t.Fatalf("header counts: %+v", h)
	}
	if strings.Join(h.Namespaces, ",") != "blog,shop" {
		t.Fatalf("namespaces = %v", h.Namespaces)
	}

	var types []string
	for _, line := range lines[1:] {
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("unmarshal %s: %v", line, err)
		}
		types = append(types, rec.Type)
	}
	want := "stream,field,field,assignment,assignment,field"
	if got := strings.Join(types, ","); got != want {
		t.Fatalf("record order = %s, want %s", got, want)
	}

	// Fields are sorted by slug: body before title.
	var rec struct {
		Data model.Field `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &rec); err != nil {
		t.Fatalf("unmarshal field: %v", err)
	}
	if rec.Data.Slug != "body" {
		t.Fatalf("expected body first, got %q", rec.Data.Slug)
	}

	// Assignments keep their sort order: title was assigned first.
	var arec struct {
		Data model.Assignment `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[4]), &arec); err != nil {
		t.Fatalf("unmarshal assignment: %v", err)
	}
	if arec.Data.FieldID != "fld-title" || arec.Data.SortOrder != 1 {
		t.Fatalf("unexpected first assignment: %+v", arec.Data)
	}
}

func TestExportJSONL_SelectedNamespace(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), seedStore(t), &buf, "shop"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := nonEmptyLines(buf.String())
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 field, got %d lines", len(lines))
	}
}

// failingStore returns err from ListNamespaces.
type failingStore struct {
	store.Store
	err error
}

func (f *failingStore) ListNamespaces(context.Context) ([]string, error) { return nil, f.err }

func TestExportJSONL_StoreError(t *testing.T) {
	boom := errors.New("boom")
	err := ExportJSONL(context.Background(), &failingStore{Store: memstore.New(), err: boom}, &bytes.Buffer{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
