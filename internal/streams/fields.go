package streams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/streams/internal/events"
	"github.com/alfredjeanlab/streams/internal/fieldtype"
	"github.com/alfredjeanlab/streams/internal/idgen"
	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/store"
)

// AddField validates spec and creates the field. When spec.Assign names a
// stream in the same namespace the field is assigned to it; a missing
// stream or a failed assignment is logged and does not undo the field.
func (s *Service) AddField(ctx context.Context, spec model.FieldSpec) (_ *model.Field, err error) {
	defer s.observe(OpAddField, time.Now(), &err)

	field, err := s.addField(ctx, spec)
	if err != nil {
		return nil, s.fail(OpAddField, err)
	}
	return field, nil
}

func (s *Service) addField(ctx context.Context, spec model.FieldSpec) (*model.Field, error) {
	name := strings.TrimSpace(spec.Name)
	slug := strings.TrimSpace(spec.Slug)
	namespace := strings.TrimSpace(spec.Namespace)
	typ := strings.TrimSpace(spec.Type)

	switch {
	case name == "":
		return nil, ErrEmptyFieldName
	case slug == "":
		return nil, ErrEmptyFieldSlug
	case namespace == "":
		return nil, ErrEmptyFieldNamespace
	case !model.IsValidSlug(slug) || model.IsReservedColumn(slug):
		return nil, ErrInvalidFieldSlug
	}

	_, err := s.store.GetFieldBySlug(ctx, slug, namespace)
	if err == nil {
		return nil, ErrFieldSlugInUse
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapStore("get field", err)
	}

	t, ok := s.types.Lookup(typ)
	if !ok {
		return nil, ErrInvalidFieldType
	}
	if err := fieldtype.ValidateExtra(t, spec.Extra); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFieldExtra, err)
	}

	extra := spec.Extra
	if extra == nil {
		extra = map[string]any{}
	}

	id, err := idgen.Field()
	if err != nil {
		return nil, err
	}
	field := &model.Field{
		ID:        id,
		Name:      name,
		Slug:      slug,
		Namespace: namespace,
		Type:      typ,
		Extra:     extra,
	}
	if err := s.store.CreateField(ctx, field); err != nil {
		return nil, wrapStore("create field", err)
	}
	s.recordAndPublish(ctx, events.TopicFieldCreated, field.ID, events.FieldCreated{Field: field})

	if target := strings.TrimSpace(spec.Assign); target != "" {
		s.assignNewField(ctx, field, target, spec.AssignOptions())
	}
	return field, nil
}

// assignNewField is the optional assignment step of AddField.
func (s *Service) assignNewField(ctx context.Context, field *model.Field, target string, opts model.AssignOptions) {
	stream, err := lookupStream(ctx, s.store, target, field.Namespace)
	if err != nil {
		s.logger.Info("skipping assignment of new field",
			"field", field.Slug, "namespace", field.Namespace, "stream", target, "error", err)
		return
	}
	if _, err := s.assign(ctx, stream, field, opts); err != nil {
		s.logger.Warn("failed to assign new field",
			"field", field.Slug, "namespace", field.Namespace, "stream", target, "error", err)
	}
}

// AddFields adds each spec in order. A failing spec is logged and skipped;
// the fields that were created are returned.
func (s *Service) AddFields(ctx context.Context, specs []model.FieldSpec) []*model.Field {
	start := time.Now()
	created := make([]*model.Field, 0, len(specs))
	for i, spec := range specs {
		field, err := s.AddField(ctx, spec)
		if err != nil {
			s.logger.Debug("skipping field", "op", OpAddFields, "index", i, "slug", spec.Slug, "error", err)
			continue
		}
		created = append(created, field)
	}
	s.metrics.ObserveOperation(OpAddFields, start, nil)
	return created
}

// GetField returns the field with the given slug in namespace.
func (s *Service) GetField(ctx context.Context, slug, namespace string) (_ *model.Field, err error) {
	defer s.observe(OpGetField, time.Now(), &err)

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, s.fail(OpGetField, ErrEmptyFieldSlug)
	}
	field, err := lookupField(ctx, s.store, slug, namespace)
	if err != nil {
		return nil, s.fail(OpGetField, err)
	}
	return field, nil
}

// ListFields returns every field in namespace ordered by slug.
func (s *Service) ListFields(ctx context.Context, namespace string) (_ []*model.Field, err error) {
	defer s.observe(OpListFields, time.Now(), &err)

	fields, err := s.store.ListFields(ctx, strings.TrimSpace(namespace))
	if err != nil {
		return nil, s.fail(OpListFields, wrapStore("list fields", err))
	}
	if fields == nil {
		fields = []*model.Field{}
	}
	return fields, nil
}

// DeleteField deletes a field together with its assignments and their
// entry columns.
func (s *Service) DeleteField(ctx context.Context, slug, namespace string) (err error) {
	defer s.observe(OpDeleteField, time.Now(), &err)

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return s.fail(OpDeleteField, ErrEmptyFieldSlug)
	}
	field, err := lookupField(ctx, s.store, slug, namespace)
	if err != nil {
		return s.fail(OpDeleteField, err)
	}

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.DeleteField(ctx, field.ID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return s.fail(OpDeleteField, ErrInvalidField)
	}
	if err != nil {
		return s.fail(OpDeleteField, wrapStore("delete field", err))
	}

	s.recordAndPublish(ctx, events.TopicFieldDeleted, field.ID, events.FieldDeleted{
		FieldID:   field.ID,
		Slug:      field.Slug,
		Namespace: field.Namespace,
	})
	return nil
}

// GetFieldAssignments returns every assignment of a field.
func (s *Service) GetFieldAssignments(ctx context.Context, slug, namespace string) (_ []*model.Assignment, err error) {
	defer s.observe(OpGetFieldAssignments, time.Now(), &err)

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, s.fail(OpGetFieldAssignments, ErrEmptyFieldSlug)
	}
	field, err := lookupField(ctx, s.store, slug, namespace)
	if err != nil {
		return nil, s.fail(OpGetFieldAssignments, err)
	}
	assigns, err := s.store.ListFieldAssignments(ctx, field.ID)
	if err != nil {
		return nil, s.fail(OpGetFieldAssignments, wrapStore("list assignments", err))
	}
	if assigns == nil {
		assigns = []*model.Assignment{}
	}
	return assigns, nil
}
