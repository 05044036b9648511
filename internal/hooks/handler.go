package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/streams/internal/events"
)

// OnFailure values.
const (
	OnFailureWarn   = "warn"   // log and keep handling events
	OnFailureStop   = "stop"   // stop the subscriber
	OnFailureIgnore = "ignore" // log at debug level only
)

// Hook is a command run for every event the handler receives. The raw
// event payload is written to the command's stdin; STREAMS_TOPIC and
// STREAMS_NAMESPACE are set in its environment.
type Hook struct {
	Command   string
	Timeout   time.Duration
	Dir       string
	OnFailure string
}

// Handler runs a Hook for events, optionally limited to one namespace.
type Handler struct {
	hook      Hook
	namespace string
	logger    *slog.Logger
}

// NewHandler returns a handler for hook. An empty namespace matches
// events of every namespace.
func NewHandler(hook Hook, namespace string, logger *slog.Logger) (*Handler, error) {
	switch hook.OnFailure {
	case "":
		hook.OnFailure = OnFailureWarn
	case OnFailureWarn, OnFailureStop, OnFailureIgnore:
	default:
		return nil, fmt.Errorf("hooks: unknown on-failure mode %q", hook.OnFailure)
	}
	if hook.Command == "" {
		return nil, fmt.Errorf("hooks: empty command")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hook: hook, namespace: namespace, logger: logger}, nil
}

// HandleEvent runs the hook for one event payload received on topic. It
// reports whether the hook ran; payloads of other namespaces are skipped.
// The returned error is set only when the hook failed and the handler's
// failure mode is OnFailureStop.
func (h *Handler) HandleEvent(ctx context.Context, topic string, data []byte) (bool, error) {
	event, err := events.Decode(topic, data)
	if err != nil {
		h.logger.Warn("hooks: bad event payload", "topic", topic, "err", err)
		return false, nil
	}
	ns := events.NamespaceOf(event)
	if h.namespace != "" && ns != h.namespace {
		return false, nil
	}

	env := map[string]string{
		"STREAMS_TOPIC":     topic,
		"STREAMS_NAMESPACE": ns,
	}
	result := Execute(ctx, h.hook.Command, h.hook.Timeout, h.hook.Dir, data, env)
	if result.Err == nil {
		h.logger.Info("hooks: executed hook", "topic", topic, "namespace", ns)
		return true, nil
	}

	switch h.hook.OnFailure {
	case OnFailureStop:
		return true, fmt.Errorf("hook failed on %s: %w: %s", topic, result.Err, result.Output)
	case OnFailureIgnore:
		h.logger.Debug("hooks: hook failed", "topic", topic, "err", result.Err, "output", result.Output)
	default:
		h.logger.Warn("hooks: hook failed", "topic", topic, "err", result.Err, "output", result.Output)
	}
	return true, nil
}

// StartSubscriber subscribes to topics and runs the hook for each event,
// one at a time. It blocks until ctx is cancelled or a hook fails in
// OnFailureStop mode.
func (h *Handler) StartSubscriber(ctx context.Context, sub events.Subscriber, topics ...string) error {
	if len(topics) == 0 {
		topics = events.Topics
	}

	type message struct {
		topic string
		data  []byte
	}
	msgs := make(chan message)
	done := make(chan struct{})
	defer close(done)

	for _, topic := range topics {
		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("hooks: subscribe: %w", err)
		}
		defer cancel()
		go func(topic string) {
			for data := range ch {
				select {
				case msgs <- message{topic: topic, data: data}:
				case <-done:
					return
				}
			}
		}(topic)
	}

	h.logger.Info("hooks: subscriber started", "topics", len(topics))
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hooks: subscriber stopping")
			return nil
		case m := <-msgs:
			if _, err := h.HandleEvent(ctx, m.topic, m.data); err != nil {
				return err
			}
		}
	}
}
