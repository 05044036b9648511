// Package client provides a transport-agnostic interface for the streams
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/presence"
)

// StreamsClient is the interface that all streams CLI commands use to
// communicate with the server. It is implemented by HTTPClient.
type StreamsClient interface {
	// Fields
	AddField(ctx context.Context, spec model.FieldSpec) (*model.Field, error)
	AddFields(ctx context.Context, specs []model.FieldSpec) (*AddFieldsResponse, error)
	GetField(ctx context.Context, namespace, slug string) (*model.Field, error)
	ListFields(ctx context.Context, namespace string) ([]*model.Field, error)
	DeleteField(ctx context.Context, namespace, slug string) error
	GetFieldAssignments(ctx context.Context, namespace, slug string) ([]*model.Assignment, error)

	// Streams
	AddStream(ctx context.Context, spec model.StreamSpec) (*model.Stream, error)
	GetStream(ctx context.Context, namespace, slug string) (*model.Stream, error)
	ListStreams(ctx context.Context, namespace string) ([]*model.Stream, error)
	DeleteStream(ctx context.Context, namespace, slug string) error

	// Assignments
	AssignField(ctx context.Context, namespace, stream, field string, opts model.AssignOptions) (*model.Assignment, error)
	DeassignField(ctx context.Context, namespace, stream, field string) error

	// Entries
	GetStreamFields(ctx context.Context, namespace, stream string, values map[string]any, entryID string) ([]model.StreamField, error)
	ValidateEntry(ctx context.Context, namespace, stream string, values map[string]any) error

	// Registry
	ListTypes(ctx context.Context) ([]TypeInfo, error)

	// Actors seen within active; 0 lists all.
	ListActors(ctx context.Context, active time.Duration) ([]presence.Entry, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// AddFieldsResponse is the response from AddFields.
type AddFieldsResponse struct {
	Fields    []*model.Field `json:"fields"`
	Requested int            `json:"requested"`
	Created   int            `json:"created"`
}

// TypeInfo describes a registered field type.
type TypeInfo struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}
