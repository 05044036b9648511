package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version         string    `json:"version"`
	Type            string    `json:"type"`
	Timestamp       time.Time `json:"timestamp"`
	Namespaces      []string  `json:"namespaces"`
	StreamCount     int       `json:"stream_count"`
	FieldCount      int       `json:"field_count"`
	AssignmentCount int       `json:"assignment_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// schema is the exported content of one namespace.
type schema struct {
	streams     []*model.Stream
	fields      []*model.Field
	assignments []*model.Assignment
}

// ExportJSONL writes the stream schema of the given namespaces as JSONL to
// w. With no namespaces it exports every namespace in the store. Within a
// namespace streams and fields are ordered by slug and assignments follow
// their stream's sort order.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer, namespaces ...string) error {
	if len(namespaces) == 0 {
		all, err := s.ListNamespaces(ctx)
		if err != nil {
			return fmt.Errorf("list namespaces: %w", err)
		}
		namespaces = all
	}

	var (
		out = make([]schema, len(namespaces))
		h   = header{
			Version:    "1",
			Type:       "header",
			Timestamp:  time.Now().UTC(),
			Namespaces: namespaces,
		}
	)
	for i, ns := range namespaces {
		streams, err := s.ListStreams(ctx, ns)
		if err != nil {
			return fmt.Errorf("list streams in %s: %w", ns, err)
		}
		fields, err := s.ListFields(ctx, ns)
		if err != nil {
			return fmt.Errorf("list fields in %s: %w", ns, err)
		}
		var assigns []*model.Assignment
		for _, st := range streams {
			a, err := s.ListStreamAssignments(ctx, st.ID)
			if err != nil {
				return fmt.Errorf("list assignments for %s: %w", st.ID, err)
			}
			assigns = append(assigns, a...)
		}
		out[i] = schema{streams: streams, fields: fields, assignments: assigns}
		h.StreamCount += len(streams)
		h.FieldCount += len(fields)
		h.AssignmentCount += len(assigns)
	}
	if h.Namespaces == nil {
		h.Namespaces = []string{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, sc := range out {
		for _, st := range sc.streams {
			if err := enc.Encode(record{Type: "stream", Data: st}); err != nil {
				return fmt.Errorf("encode stream %s: %w", st.ID, err)
			}
		}
		for _, f := range sc.fields {
			if err := enc.Encode(record{Type: "field", Data: f}); err != nil {
				return fmt.Errorf("encode field %s: %w", f.ID, err)
			}
		}
		for _, a := range sc.assignments {
			if err := enc.Encode(record{Type: "assignment", Data: a}); err != nil {
				return fmt.Errorf("encode assignment %s: %w", a.ID, err)
			}
		}
	}

	return nil
}
