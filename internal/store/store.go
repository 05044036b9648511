package store

import (
	"context"

	"github.com/alfredjeanlab/streams/internal/model"
)

// Store defines the persistence interface for fields, streams and their
// assignments. Lookups that find nothing return sql.ErrNoRows.
type Store interface {
	// Fields
	CreateField(ctx context.Context, field *model.Field) error
	GetFieldBySlug(ctx context.Context, slug, namespace string) (*model.Field, error)
	ListFields(ctx context.Context, namespace string) ([]*model.Field, error)
	// DeleteField removes the field, every assignment of it and the
	// matching entry columns.
	DeleteField(ctx context.Context, id string) error

	// Streams
	// CreateStream inserts the stream and creates its entry table.
	CreateStream(ctx context.Context, stream *model.Stream) error
	GetStream(ctx context.Context, slug, namespace string) (*model.Stream, error)
	ListStreams(ctx context.Context, namespace string) ([]*model.Stream, error)
	// EntryTableExists reports whether a table with the given name exists,
	// whether or not a stream owns it.
	EntryTableExists(ctx context.Context, table string) (bool, error)
	// DeleteStream removes the stream, its assignments and its entry table.
	DeleteStream(ctx context.Context, stream *model.Stream) error
	SetStreamTitleColumn(ctx context.Context, streamID, column string) error

	// Assignments
	// AddAssignment inserts a at the end of the stream's sort order and,
	// when col is non-nil, adds the column to the stream's entry table.
	AddAssignment(ctx context.Context, stream *model.Stream, a *model.Assignment, col *model.Column) error
	UpdateAssignment(ctx context.Context, a *model.Assignment) error
	GetAssignment(ctx context.Context, streamID, fieldID string) (*model.Assignment, error)
	// RemoveAssignment deletes a and drops its column from the entry table.
	RemoveAssignment(ctx context.Context, stream *model.Stream, a *model.Assignment) error
	ListStreamAssignments(ctx context.Context, streamID string) ([]*model.Assignment, error) // ordered by sort_order
	ListFieldAssignments(ctx context.Context, fieldID string) ([]*model.Assignment, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, subjectID string) ([]*model.Event, error)

	// ListNamespaces returns every namespace that has a field or a stream,
	// sorted.
	ListNamespaces(ctx context.Context) ([]string, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
