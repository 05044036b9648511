// Package streams manages custom fields, the streams they are assigned to
// and the entry forms built from those assignments.
package streams

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/streams/internal/events"
	"github.com/alfredjeanlab/streams/internal/fieldtype"
	"github.com/alfredjeanlab/streams/internal/metrics"
	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/store"
)

// Service is the field and stream management facade. It holds no mutable
// state of its own; all state lives in the store.
type Service struct {
	store     store.Store
	types     *fieldtype.Registry
	renderer  fieldtype.Renderer
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Collector
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry sets the field type registry. Defaults to fieldtype.Default().
func WithRegistry(r *fieldtype.Registry) Option { return func(s *Service) { s.types = r } }

// WithRenderer sets the form input renderer. Defaults to a TemplateRenderer
// over the service's registry.
func WithRenderer(r fieldtype.Renderer) Option { return func(s *Service) { s.renderer = r } }

// WithPublisher sets the event publisher. Defaults to a NoopPublisher.
func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithMetrics sets the metrics collector. A nil collector records nothing.
func WithMetrics(m *metrics.Collector) Option { return func(s *Service) { s.metrics = m } }

// New returns a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st}
	for _, opt := range opts {
		opt(s)
	}
	if s.types == nil {
		s.types = fieldtype.Default()
	}
	if s.renderer == nil {
		s.renderer = fieldtype.NewTemplateRenderer(s.types)
	}
	if s.publisher == nil {
		s.publisher = &events.NoopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Types returns the registered field types ordered by slug.
func (s *Service) Types() []fieldtype.Type {
	return s.types.Types()
}

type actorKey struct{}

// WithActor returns a context carrying the name recorded on events.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor set by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// fail logs a failed operation and wraps err with the operation name.
func (s *Service) fail(op string, err error) error {
	s.logger.Warn("streams operation failed", "op", op, "error", err)
	return &OpError{Op: op, Err: err}
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	s.metrics.ObserveOperation(op, start, *errp)
}

// recordAndPublish persists an event to the store and publishes it to the bus.
// Both operations are best-effort; failures are logged but do not block the caller.
func (s *Service) recordAndPublish(ctx context.Context, topic, subjectID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event", "topic", topic, "subject_id", subjectID, "error", err)
		s.metrics.ObserveEvent(topic, err)
		return
	}
	recordErr := s.store.RecordEvent(ctx, &model.Event{
		Topic:     topic,
		SubjectID: subjectID,
		Actor:     ActorFromContext(ctx),
		Payload:   payload,
	})
	if recordErr != nil {
		s.logger.Warn("failed to record event", "topic", topic, "subject_id", subjectID, "error", recordErr)
	}
	publishErr := s.publisher.Publish(ctx, topic, event)
	if publishErr != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "subject_id", subjectID, "error", publishErr)
	}
	s.metrics.ObserveEvent(topic, errors.Join(recordErr, publishErr))
}

// lookupStream maps a store miss to ErrInvalidStream. Slug and namespace
// are trimmed the way AddStream stores them.
func lookupStream(ctx context.Context, st store.Store, slug, namespace string) (*model.Stream, error) {
	stream, err := st.GetStream(ctx, strings.TrimSpace(slug), strings.TrimSpace(namespace))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidStream
	}
	if err != nil {
		return nil, wrapStore("get stream", err)
	}
	return stream, nil
}

// lookupField maps a store miss to ErrInvalidField. Slug and namespace
// are trimmed the way AddField stores them.
func lookupField(ctx context.Context, st store.Store, slug, namespace string) (*model.Field, error) {
	field, err := st.GetFieldBySlug(ctx, strings.TrimSpace(slug), strings.TrimSpace(namespace))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidField
	}
	if err != nil {
		return nil, wrapStore("get field", err)
	}
	return field, nil
}
