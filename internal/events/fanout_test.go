package events

import (
	"context"
	"errors"
	"testing"
)

type countingPublisher struct {
	published int
	closed    bool
	err       error
}

func (p *countingPublisher) Publish(context.Context, string, any) error {
	p.published++
	return p.err
}

func (p *countingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestMulti_PublishesToAll(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	pub := Multi(a, nil, b)

	if err := pub.Publish(context.Background(), TopicFieldCreated, FieldCreated{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if a.published != 1 || b.published != 1 {
		t.Errorf("published = %d, %d; want 1, 1", a.published, b.published)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("not all publishers closed")
	}
}

func TestMulti_ContinuesAfterError(t *testing.T) {
	boom := errors.New("boom")
	a, b := &countingPublisher{err: boom}, &countingPublisher{}
	err := Multi(a, b).Publish(context.Background(), TopicFieldDeleted, FieldDeleted{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if b.published != 1 {
		t.Error("second publisher skipped after first failed")
	}
}
