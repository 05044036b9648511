package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// hubRingSize is the number of recent events kept in memory for
	// Last-Event-ID reconnection support.
	hubRingSize = 1000

	// sseKeepaliveInterval is how often keepalive comments are sent to
	// prevent connection timeouts.
	sseKeepaliveInterval = 15 * time.Second

	// hubClientBuffer is the per-client delivery queue length.
	hubClientBuffer = 64
)

// hubEvent is a single event stored in the ring buffer and sent to SSE clients.
type hubEvent struct {
	ID    uint64 // monotonically increasing sequence number
	Topic string
	Data  []byte // JSON-encoded payload
}

// EventHub fans published events out to connected SSE clients. It
// implements events.Publisher so it can sit next to the NATS publisher
// behind events.Multi, and keeps a ring buffer for Last-Event-ID replay.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	closed  bool
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [hubRingSize]hubEvent
	ringPos int // next write position (wraps around)
	ringLen int // number of valid entries (up to hubRingSize)
}

// hubClient represents a single connected SSE consumer.
type hubClient struct {
	topics []string       // topic patterns to match (empty = all)
	ch     chan *hubEvent // closed by the hub on Close
}

// NewEventHub returns an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*hubClient]struct{}),
	}
}

// Publish marshals event and broadcasts it under topic.
func (h *EventHub) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", topic, err)
	}
	h.broadcast(topic, payload)
	return nil
}

// Close disconnects every client. Later publishes are still buffered for
// replay but reach nobody.
func (h *EventHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		close(c.ch)
		delete(h.clients, c)
	}
	return nil
}

// broadcast sends an event to all connected clients whose topic filters match.
func (h *EventHub) broadcast(topic string, payload []byte) {
	evt := &hubEvent{
		ID:    h.nextID.Add(1),
		Topic: topic,
		Data:  payload,
	}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % hubRingSize
	if h.ringLen < hubRingSize {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.matchesTopic(topic) {
			select {
			case c.ch <- evt:
			default:
				// Slow client; drop rather than block the publisher.
			}
		}
	}
}

// subscribe registers a new client. The second result is false once the
// hub is closed.
func (h *EventHub) subscribe(topics []string) (*hubClient, bool) {
	c := &hubClient{
		topics: topics,
		ch:     make(chan *hubEvent, hubClientBuffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	h.clients[c] = struct{}{}
	return c, true
}

// unsubscribe removes a client from the hub.
func (h *EventHub) unsubscribe(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.ch)
	}
}

// eventsSince returns buffered events with ID > lastID, oldest first.
func (h *EventHub) eventsSince(lastID uint64) []*hubEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	if h.ringLen == 0 {
		return nil
	}

	var result []*hubEvent
	start := h.ringPos - h.ringLen
	if start < 0 {
		start += hubRingSize
	}
	for i := range h.ringLen {
		evt := h.ring[(start+i)%hubRingSize]
		if evt.ID > lastID {
			result = append(result, &evt)
		}
	}
	return result
}

// matchesTopic reports whether the client's filters match topic.
// An empty filter list matches all topics.
func (c *hubClient) matchesTopic(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if matchTopicPattern(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a pattern.
// Supports "*" as a single-segment wildcard and ">" as a multi-segment
// suffix wildcard (NATS-style).
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")

	for i, pp := range patParts {
		if pp == ">" {
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if pp != "*" && pp != topParts[i] {
			return false
		}
	}
	return len(patParts) == len(topParts)
}

// parseTopics splits a comma-separated topics query parameter.
func parseTopics(q string) []string {
	var topics []string
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// handleEventStream handles GET /v1/events/stream.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	client, ok := s.hub.subscribe(parseTopics(r.URL.Query().Get("topics")))
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "event hub closed")
		return
	}
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if lastID, err := strconv.ParseUint(lastIDStr, 10, 64); err == nil {
			for _, evt := range s.hub.eventsSince(lastID) {
				if client.matchesTopic(evt.Topic) {
					writeSSEEvent(w, evt)
				}
			}
			flusher.Flush()
		}
	}

	ctx := r.Context()
	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-client.ch:
			if !ok {
				return
			}
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE event to the writer.
func writeSSEEvent(w http.ResponseWriter, evt *hubEvent) {
	fmt.Fprintf(w, "id:%d\n", evt.ID)
	fmt.Fprintf(w, "event:%s\n", evt.Topic)
	fmt.Fprintf(w, "data:%s\n\n", evt.Data)
}
