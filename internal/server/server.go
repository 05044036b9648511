package server

import (
	"log/slog"

	"github.com/alfredjeanlab/streams/internal/metrics"
	"github.com/alfredjeanlab/streams/internal/presence"
	"github.com/alfredjeanlab/streams/internal/streams"
)

// Server exposes a streams.Service over HTTP.
type Server struct {
	svc     *streams.Service
	hub     *EventHub
	metrics  *metrics.Collector
	presence *presence.Tracker
	logger   *slog.Logger
}

// New returns a Server for svc. hub receives the events the service
// publishes and feeds GET /v1/events/stream; pass the same hub to the
// service's publisher. A nil hub, collector or logger falls back to a new
// hub, no metrics and slog.Default() respectively.
func New(svc *streams.Service, hub *EventHub, m *metrics.Collector, logger *slog.Logger) *Server {
	if hub == nil {
		hub = NewEventHub()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		svc:      svc,
		hub:      hub,
		metrics:  m,
		presence: presence.New(),
		logger:   logger,
	}
}

// Presence returns the roster of actors seen by the HTTP API. The caller
// owns its reaper.
func (s *Server) Presence() *presence.Tracker {
	return s.presence
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }
