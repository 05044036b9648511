package streams

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/streams/internal/model"
)

// GetStreamFields returns one form row per field assigned to the stream,
// in sort order. Values are taken from current by field slug; entryID is
// passed through to the renderer and may be empty for a new entry.
func (s *Service) GetStreamFields(ctx context.Context, streamSlug, namespace string, current map[string]any, entryID string) (_ []model.StreamField, err error) {
	defer s.observe(OpGetStreamFields, time.Now(), &err)

	stream, err := lookupStream(ctx, s.store, strings.TrimSpace(streamSlug), namespace)
	if err != nil {
		return nil, s.fail(OpGetStreamFields, err)
	}
	assigns, err := s.store.ListStreamAssignments(ctx, stream.ID)
	if err != nil {
		return nil, s.fail(OpGetStreamFields, wrapStore("list assignments", err))
	}

	rows := make([]model.StreamField, 0, len(assigns))
	for _, a := range assigns {
		value := current[a.FieldSlug]
		input, err := s.renderer.BuildFormInput(a, value, entryID)
		if err != nil {
			return nil, s.fail(OpGetStreamFields, fmt.Errorf("render %s: %w", a.FieldSlug, err))
		}
		rows = append(rows, model.StreamField{
			Input:        input,
			Value:        value,
			Instructions: a.InstructionsText(),
			FieldName:    a.FieldName,
			FieldSlug:    a.FieldSlug,
			FieldType:    a.FieldType,
			Required:     a.Required,
		})
	}
	return rows, nil
}

// ValidateEntry checks an entry payload against the stream's assignments.
// A payload that does not conform yields a *model.ValidationError.
func (s *Service) ValidateEntry(ctx context.Context, streamSlug, namespace string, values map[string]any) (err error) {
	defer s.observe(OpValidateEntry, time.Now(), &err)

	stream, err := lookupStream(ctx, s.store, strings.TrimSpace(streamSlug), namespace)
	if err != nil {
		return s.fail(OpValidateEntry, err)
	}
	assigns, err := s.store.ListStreamAssignments(ctx, stream.ID)
	if err != nil {
		return s.fail(OpValidateEntry, wrapStore("list assignments", err))
	}
	if err := model.ValidateEntryValues(values, assigns, s.checkValue); err != nil {
		return s.fail(OpValidateEntry, err)
	}
	return nil
}

func (s *Service) checkValue(a *model.Assignment, val any) error {
	t, ok := s.types.Lookup(a.FieldType)
	if !ok {
		return fmt.Errorf("unknown field type %q", a.FieldType)
	}
	return t.Validate(val, a.FieldExtra)
}
