package streams

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/alfredjeanlab/streams/internal/events"
	"github.com/alfredjeanlab/streams/internal/idgen"
	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/store"
)

// AddStream validates spec and creates the stream with its entry table.
func (s *Service) AddStream(ctx context.Context, spec model.StreamSpec) (_ *model.Stream, err error) {
	defer s.observe(OpAddStream, time.Now(), &err)

	stream, err := s.addStream(ctx, spec)
	if err != nil {
		return nil, s.fail(OpAddStream, err)
	}
	return stream, nil
}

func (s *Service) addStream(ctx context.Context, spec model.StreamSpec) (*model.Stream, error) {
	stream := &model.Stream{
		Name:      strings.TrimSpace(spec.Name),
		Slug:      strings.TrimSpace(spec.Slug),
		Namespace: strings.TrimSpace(spec.Namespace),
		Prefix:    strings.TrimSpace(spec.Prefix),
		About:     strings.TrimSpace(spec.About),
		Sorting:   strings.TrimSpace(spec.Sorting),
	}
	if stream.Sorting == "" {
		stream.Sorting = model.SortingTitle
	}
	if stream.Prefix == "" {
		stream.Prefix = defaultPrefix(stream.Namespace, stream.Slug)
	}

	switch {
	case stream.Name == "":
		return nil, ErrEmptyStreamName
	case stream.Slug == "":
		return nil, ErrEmptyStreamSlug
	case stream.Namespace == "":
		return nil, ErrEmptyStreamNamespace
	case !model.IsValidSlug(stream.Slug) || !model.IsValidSlug(stream.TableName()):
		return nil, ErrInvalidStreamSlug
	case stream.Sorting != model.SortingTitle && stream.Sorting != model.SortingCustom:
		return nil, ErrInvalidStreamSorting
	}

	_, err := s.store.GetStream(ctx, stream.Slug, stream.Namespace)
	if err == nil {
		return nil, ErrStreamSlugInUse
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapStore("get stream", err)
	}
	exists, err := s.store.EntryTableExists(ctx, stream.TableName())
	if err != nil {
		return nil, wrapStore("check entry table", err)
	}
	if exists {
		return nil, ErrStreamTableInUse
	}

	if stream.ID, err = idgen.Stream(); err != nil {
		return nil, err
	}
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.CreateStream(ctx, stream)
	})
	if err != nil {
		return nil, wrapStore("create stream", err)
	}

	s.recordAndPublish(ctx, events.TopicStreamCreated, stream.ID, events.StreamCreated{Stream: stream})
	return stream, nil
}

// defaultPrefix scopes entry tables by namespace so equal slugs in two
// namespaces get distinct tables. Namespaces that cannot start a table
// name yield no prefix.
func defaultPrefix(namespace, slug string) string {
	prefix := namespace + "_"
	if !model.IsValidSlug(prefix + slug) {
		return ""
	}
	return prefix
}

// GetStream returns the stream with the given slug in namespace.
func (s *Service) GetStream(ctx context.Context, slug, namespace string) (_ *model.Stream, err error) {
	defer s.observe(OpGetStream, time.Now(), &err)

	stream, err := lookupStream(ctx, s.store, strings.TrimSpace(slug), namespace)
	if err != nil {
		return nil, s.fail(OpGetStream, err)
	}
	return stream, nil
}

// ListStreams returns every stream in namespace ordered by slug.
func (s *Service) ListStreams(ctx context.Context, namespace string) (_ []*model.Stream, err error) {
	defer s.observe(OpListStreams, time.Now(), &err)

	list, err := s.store.ListStreams(ctx, strings.TrimSpace(namespace))
	if err != nil {
		return nil, s.fail(OpListStreams, wrapStore("list streams", err))
	}
	if list == nil {
		list = []*model.Stream{}
	}
	return list, nil
}

// DeleteStream deletes a stream, its assignments and its entry table.
func (s *Service) DeleteStream(ctx context.Context, slug, namespace string) (err error) {
	defer s.observe(OpDeleteStream, time.Now(), &err)

	stream, err := lookupStream(ctx, s.store, strings.TrimSpace(slug), namespace)
	if err != nil {
		return s.fail(OpDeleteStream, err)
	}
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.DeleteStream(ctx, stream)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return s.fail(OpDeleteStream, ErrInvalidStream)
	}
	if err != nil {
		return s.fail(OpDeleteStream, wrapStore("delete stream", err))
	}

	s.recordAndPublish(ctx, events.TopicStreamDeleted, stream.ID, events.StreamDeleted{
		StreamID:  stream.ID,
		Slug:      stream.Slug,
		Namespace: stream.Namespace,
	})
	return nil
}
