package streams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/streams/internal/events"
	"github.com/alfredjeanlab/streams/internal/idgen"
	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/store"
)

// AssignField assigns a field to a stream in the same namespace. A new
// assignment goes to the end of the stream's sort order and adds the
// field's column to the entry table; an existing one has its flags
// replaced by opts. The stream's title column follows opts.TitleColumn:
// it is set to the field, or cleared when it pointed at the field.
func (s *Service) AssignField(ctx context.Context, namespace, streamSlug, fieldSlug string, opts model.AssignOptions) (_ *model.Assignment, err error) {
	defer s.observe(OpAssignField, time.Now(), &err)

	stream, err := lookupStream(ctx, s.store, strings.TrimSpace(streamSlug), namespace)
	if err != nil {
		return nil, s.fail(OpAssignField, err)
	}
	field, err := lookupField(ctx, s.store, strings.TrimSpace(fieldSlug), namespace)
	if err != nil {
		return nil, s.fail(OpAssignField, err)
	}
	a, err := s.assign(ctx, stream, field, opts)
	if err != nil {
		return nil, s.fail(OpAssignField, err)
	}
	return a, nil
}

// assign inserts or updates the assignment of field to stream and publishes
// FieldAssigned.
func (s *Service) assign(ctx context.Context, stream *model.Stream, field *model.Field, opts model.AssignOptions) (*model.Assignment, error) {
	col, err := s.column(field)
	if err != nil {
		return nil, err
	}

	var (
		result  *model.Assignment
		created bool
	)
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		existing, err := tx.GetAssignment(ctx, stream.ID, field.ID)
		switch {
		case err == nil:
			opts.Apply(existing)
			if err := tx.UpdateAssignment(ctx, existing); err != nil {
				return wrapStore("update assignment", err)
			}
			result = existing
		case errors.Is(err, sql.ErrNoRows):
			id, err := idgen.Assignment()
			if err != nil {
				return err
			}
			a := &model.Assignment{
				ID:         id,
				StreamID:   stream.ID,
				FieldID:    field.ID,
				FieldName:  field.Name,
				FieldSlug:  field.Slug,
				FieldType:  field.Type,
				FieldExtra: field.Extra,
			}
			opts.Apply(a)
			if err := tx.AddAssignment(ctx, stream, a, col); err != nil {
				return wrapStore("add assignment", err)
			}
			result, created = a, true
		default:
			return wrapStore("get assignment", err)
		}

		title := stream.TitleColumn
		switch {
		case opts.TitleColumn:
			title = field.Slug
		case stream.TitleColumn == field.Slug:
			title = ""
		}
		if title != stream.TitleColumn {
			if err := tx.SetStreamTitleColumn(ctx, stream.ID, title); err != nil {
				return wrapStore("set title column", err)
			}
			stream.TitleColumn = title
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAndPublish(ctx, events.TopicFieldAssigned, field.ID, events.FieldAssigned{
		Assignment: result,
		Stream:     stream.Slug,
		Namespace:  stream.Namespace,
		Created:    created,
	})
	return result, nil
}

// column returns the entry column for field, or nil when its type stores
// nothing.
func (s *Service) column(field *model.Field) (*model.Column, error) {
	t, ok := s.types.Lookup(field.Type)
	if !ok {
		return nil, fmt.Errorf("field %s: %w", field.Slug, ErrInvalidFieldType)
	}
	colType := t.ColumnType(field.Extra)
	if colType == "" {
		return nil, nil
	}
	return &model.Column{Name: field.Slug, Type: colType}, nil
}

// DeassignField removes the assignment of a field to a stream and drops
// the field's column from the entry table.
func (s *Service) DeassignField(ctx context.Context, namespace, streamSlug, fieldSlug string) (err error) {
	defer s.observe(OpDeassignField, time.Now(), &err)

	stream, err := lookupStream(ctx, s.store, strings.TrimSpace(streamSlug), namespace)
	if err != nil {
		return s.fail(OpDeassignField, err)
	}
	field, err := lookupField(ctx, s.store, strings.TrimSpace(fieldSlug), namespace)
	if err != nil {
		return s.fail(OpDeassignField, err)
	}

	var removed *model.Assignment
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		a, err := tx.GetAssignment(ctx, stream.ID, field.ID)
		if err != nil {
			return err
		}
		removed = a
		return tx.RemoveAssignment(ctx, stream, a)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return s.fail(OpDeassignField, ErrInvalidAssignment)
	}
	if err != nil {
		return s.fail(OpDeassignField, wrapStore("remove assignment", err))
	}

	s.recordAndPublish(ctx, events.TopicFieldDeassigned, field.ID, events.FieldDeassigned{
		AssignmentID: removed.ID,
		StreamID:     stream.ID,
		FieldID:      field.ID,
		Stream:       stream.Slug,
		Field:        field.Slug,
		Namespace:    stream.Namespace,
	})
	return nil
}
