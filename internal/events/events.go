package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/streams/internal/model"
)

// Event topic constants
const (
	TopicFieldCreated    = "streams.field.created"
	TopicFieldDeleted    = "streams.field.deleted"
	TopicFieldAssigned   = "streams.field.assigned"
	TopicFieldDeassigned = "streams.field.deassigned"

	TopicStreamCreated = "streams.stream.created"
	TopicStreamDeleted = "streams.stream.deleted"

	// TopicAll matches every topic above.
	TopicAll = "streams.>"
)

// Topics lists every concrete topic, in publish-site order.
var Topics = []string{
	TopicFieldCreated,
	TopicFieldDeleted,
	TopicFieldAssigned,
	TopicFieldDeassigned,
	TopicStreamCreated,
	TopicStreamDeleted,
}

// Event types

type FieldCreated struct {
	Field *model.Field `json:"field"`
}

type FieldDeleted struct {
	FieldID   string `json:"field_id"`
	Slug      string `json:"slug"`
	Namespace string `json:"namespace"`
}

type FieldAssigned struct {
	Assignment *model.Assignment `json:"assignment"`
	Stream     string            `json:"stream"`
	Namespace  string            `json:"namespace"`
	Created    bool              `json:"created"` // false when an existing assignment was updated
}

type FieldDeassigned struct {
	AssignmentID string `json:"assignment_id"`
	StreamID     string `json:"stream_id"`
	FieldID      string `json:"field_id"`
	Stream       string `json:"stream"`
	Field        string `json:"field"`
	Namespace    string `json:"namespace"`
}

type StreamCreated struct {
	Stream *model.Stream `json:"stream"`
}

type StreamDeleted struct {
	StreamID  string `json:"stream_id"`
	Slug      string `json:"slug"`
	Namespace string `json:"namespace"`
}

func (e FieldCreated) namespace() string {
	if e.Field == nil {
		return ""
	}
	return e.Field.Namespace
}

func (e FieldDeleted) namespace() string    { return e.Namespace }
func (e FieldAssigned) namespace() string   { return e.Namespace }
func (e FieldDeassigned) namespace() string { return e.Namespace }

func (e StreamCreated) namespace() string {
	if e.Stream == nil {
		return ""
	}
	return e.Stream.Namespace
}

func (e StreamDeleted) namespace() string { return e.Namespace }

// NamespaceOf returns the namespace an event belongs to, or "" for values
// that are not events of this package.
func NamespaceOf(event any) string {
	if e, ok := event.(interface{ namespace() string }); ok {
		return e.namespace()
	}
	return ""
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Decode unmarshals a raw payload received on topic into its event type.
func Decode(topic string, data []byte) (any, error) {
	var v any
	switch topic {
	case TopicFieldCreated:
		v = &FieldCreated{}
	case TopicFieldDeleted:
		v = &FieldDeleted{}
	case TopicFieldAssigned:
		v = &FieldAssigned{}
	case TopicFieldDeassigned:
		v = &FieldDeassigned{}
	case TopicStreamCreated:
		v = &StreamCreated{}
	case TopicStreamDeleted:
		v = &StreamDeleted{}
	default:
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", topic, err)
	}
	return v, nil
}
