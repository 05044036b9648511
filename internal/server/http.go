package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/presence"
	"github.com/alfredjeanlab/streams/internal/streams"
)

// actorHeader names the caller recorded on events.
const actorHeader = "X-Streams-Actor"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/types", s.handleListTypes)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/actors", s.handleListActors)

	mux.HandleFunc("POST /v1/fields", s.handleAddField)
	mux.HandleFunc("POST /v1/fields/batch", s.handleAddFields)
	mux.HandleFunc("GET /v1/namespaces/{ns}/fields", s.handleListFields)
	mux.HandleFunc("GET /v1/namespaces/{ns}/fields/{slug}", s.handleGetField)
	mux.HandleFunc("DELETE /v1/namespaces/{ns}/fields/{slug}", s.handleDeleteField)
	mux.HandleFunc("GET /v1/namespaces/{ns}/fields/{slug}/assignments", s.handleGetFieldAssignments)

	mux.HandleFunc("POST /v1/namespaces/{ns}/streams", s.handleAddStream)
	mux.HandleFunc("GET /v1/namespaces/{ns}/streams", s.handleListStreams)
	mux.HandleFunc("GET /v1/namespaces/{ns}/streams/{stream}", s.handleGetStream)
	mux.HandleFunc("DELETE /v1/namespaces/{ns}/streams/{stream}", s.handleDeleteStream)
	mux.HandleFunc("PUT /v1/namespaces/{ns}/streams/{stream}/fields/{field}", s.handleAssignField)
	mux.HandleFunc("DELETE /v1/namespaces/{ns}/streams/{stream}/fields/{field}", s.handleDeassignField)
	mux.HandleFunc("GET /v1/namespaces/{ns}/streams/{stream}/fields", s.handleGetStreamFields)
	mux.HandleFunc("POST /v1/namespaces/{ns}/streams/{stream}/form", s.handleBuildForm)
	mux.HandleFunc("POST /v1/namespaces/{ns}/streams/{stream}/validate", s.handleValidateEntry)

	return AuthMiddleware(authToken, withActor(s.instrument(mux)))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type typeInfo struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// handleListTypes handles GET /v1/types.
func (s *Server) handleListTypes(w http.ResponseWriter, _ *http.Request) {
	types := s.svc.Types()
	out := make([]typeInfo, len(types))
	for i, t := range types {
		out[i] = typeInfo{Slug: t.Slug(), Name: t.Name()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": out})
}

// handleListActors handles GET /v1/actors. The optional active query
// parameter is a duration limiting the roster to recently seen actors.
func (s *Server) handleListActors(w http.ResponseWriter, r *http.Request) {
	var active time.Duration
	if q := r.URL.Query().Get("active"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d < 0 {
			writeServiceError(w, inputError("active must be a non-negative duration"))
			return
		}
		active = d
	}
	writeJSON(w, http.StatusOK, map[string]any{"actors": s.presence.Roster(active)})
}

// withActor copies the actor header into the request context.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get(actorHeader); actor != "" {
			r = r.WithContext(streams.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps the SSE endpoint working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument logs each request and records it in the metrics collector,
// labelled by the matched route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(r.Method, route, rec.status, duration)
		s.presence.Record(presence.Activity{
			Actor:     streams.ActorFromContext(r.Context()),
			Route:     route,
			Namespace: r.PathValue("ns"),
			Write:     isWriteRoute(r.Method, route) && rec.status < http.StatusBadRequest,
		})
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", duration,
		)
	})
}

// isWriteRoute reports whether route changes fields, streams or
// assignments. Form rendering and validation are POSTs that only read.
func isWriteRoute(method, route string) bool {
	if method == http.MethodGet || route == "unmatched" {
		return false
	}
	return !strings.HasSuffix(route, "/form") && !strings.HasSuffix(route, "/validate")
}

// readJSON decodes the request body into v. An empty body leaves v
// unchanged when allowEmpty is set.
func readJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return inputError("invalid JSON body")
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string             `json:"error"`
	Code   string             `json:"code,omitempty"`
	Errors []model.FieldError `json:"errors,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// codeValidationFailed marks a 422 response carrying field errors.
const codeValidationFailed = "validation_failed"

// writeServiceError maps a service error to its HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		ie inputError
		ve *model.ValidationError
	)
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:  err.Error(),
			Code:   codeValidationFailed,
			Errors: ve.Errors,
		})
	case streams.IsInvalidInput(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: streams.Code(err)})
	case streams.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: streams.Code(err)})
	case streams.IsConflict(err):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: streams.Code(err)})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
