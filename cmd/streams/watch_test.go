package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/streams/internal/events"
	"github.com/alfredjeanlab/streams/internal/model"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   any
		wantNS  string
		wantSub string
	}{
		{"FieldCreated", &events.FieldCreated{Field: &model.Field{ID: "fld-1", Slug: "title", Namespace: "blog", Type: "text"}}, "blog", "title (text) fld-1"},
		{"FieldCreatedNil", &events.FieldCreated{}, "", "field created"},
		{"FieldDeleted", &events.FieldDeleted{FieldID: "fld-1", Slug: "title", Namespace: "blog"}, "blog", "title fld-1"},
		{"FieldAssigned", &events.FieldAssigned{Assignment: &model.Assignment{FieldSlug: "title"}, Stream: "posts", Namespace: "blog", Created: true}, "blog", "title assigned to posts"},
		{"FieldAssignedUpdate", &events.FieldAssigned{Assignment: &model.Assignment{FieldSlug: "title"}, Stream: "posts", Namespace: "blog"}, "blog", "title updated on posts"},
		{"FieldDeassigned", &events.FieldDeassigned{Field: "title", Stream: "posts", Namespace: "blog"}, "blog", "title removed from posts"},
		{"StreamCreated", &events.StreamCreated{Stream: &model.Stream{Slug: "posts", Prefix: "blog_", Namespace: "blog"}}, "blog", "posts table blog_posts"},
		{"StreamDeleted", &events.StreamDeleted{StreamID: "str-1", Slug: "posts", Namespace: "blog"}, "blog", "posts str-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ns := events.NamespaceOf(tt.event); ns != tt.wantNS {
				t.Errorf("namespace = %q, want %q", ns, tt.wantNS)
			}
			if summary := describeEvent(tt.event); summary != tt.wantSub {
				t.Errorf("summary = %q, want %q", summary, tt.wantSub)
			}
		})
	}
}

func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestSubscribeTopics_TagsTopics(t *testing.T) {
	url := startTestNATS(t)

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("NewNATSSubscriber: %v", err)
	}
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := subscribeTopics(ctx, sub, []string{events.TopicFieldCreated, events.TopicStreamDeleted})
	if err != nil {
		t.Fatalf("subscribeTopics: %v", err)
	}

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("nats.Connect: %v", err)
	}
	defer nc.Close()
	if err := nc.Publish(events.TopicStreamDeleted, []byte(`{"slug":"posts"}`)); err != nil {
		t.Fatal(err)
	}
	if err := nc.Publish(events.TopicFieldDeleted, []byte(`{"slug":"ignored"}`)); err != nil {
		t.Fatal(err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-msgs:
		if m.topic != events.TopicStreamDeleted {
			t.Errorf("topic = %q, want %q", m.topic, events.TopicStreamDeleted)
		}
		if !strings.Contains(string(m.data), "posts") {
			t.Errorf("data = %s", m.data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case m := <-msgs:
		t.Errorf("unexpected message on %s", m.topic)
	case <-time.After(100 * time.Millisecond):
	}
}
