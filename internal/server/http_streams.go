package server

import (
	"net/http"

	"github.com/alfredjeanlab/streams/internal/model"
)

// handleAddStream handles POST /v1/namespaces/{ns}/streams.
func (s *Server) handleAddStream(w http.ResponseWriter, r *http.Request) {
	var spec model.StreamSpec
	if err := readJSON(r, &spec, false); err != nil {
		writeServiceError(w, err)
		return
	}
	spec.Namespace = r.PathValue("ns")

	stream, err := s.svc.AddStream(r.Context(), spec)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stream)
}

// handleListStreams handles GET /v1/namespaces/{ns}/streams.
func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListStreams(r.Context(), r.PathValue("ns"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"streams": list})
}

// handleGetStream handles GET /v1/namespaces/{ns}/streams/{stream}.
func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	stream, err := s.svc.GetStream(r.Context(), r.PathValue("stream"), r.PathValue("ns"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

// handleDeleteStream handles DELETE /v1/namespaces/{ns}/streams/{stream}.
func (s *Server) handleDeleteStream(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteStream(r.Context(), r.PathValue("stream"), r.PathValue("ns")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAssignField handles PUT /v1/namespaces/{ns}/streams/{stream}/fields/{field}.
// The body is optional and carries the assignment flags.
func (s *Server) handleAssignField(w http.ResponseWriter, r *http.Request) {
	var opts model.AssignOptions
	if err := readJSON(r, &opts, true); err != nil {
		writeServiceError(w, err)
		return
	}

	a, err := s.svc.AssignField(r.Context(), r.PathValue("ns"), r.PathValue("stream"), r.PathValue("field"), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleDeassignField handles DELETE /v1/namespaces/{ns}/streams/{stream}/fields/{field}.
func (s *Server) handleDeassignField(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeassignField(r.Context(), r.PathValue("ns"), r.PathValue("stream"), r.PathValue("field")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetStreamFields handles GET /v1/namespaces/{ns}/streams/{stream}/fields.
// The form is rendered for a new, empty entry.
func (s *Server) handleGetStreamFields(w http.ResponseWriter, r *http.Request) {
	s.writeStreamFields(w, r, nil, "")
}

type buildFormInput struct {
	Values  map[string]any `json:"values"`
	EntryID string         `json:"entry_id"`
}

// handleBuildForm handles POST /v1/namespaces/{ns}/streams/{stream}/form.
func (s *Server) handleBuildForm(w http.ResponseWriter, r *http.Request) {
	var in buildFormInput
	if err := readJSON(r, &in, true); err != nil {
		writeServiceError(w, err)
		return
	}
	s.writeStreamFields(w, r, in.Values, in.EntryID)
}

func (s *Server) writeStreamFields(w http.ResponseWriter, r *http.Request, values map[string]any, entryID string) {
	rows, err := s.svc.GetStreamFields(r.Context(), r.PathValue("stream"), r.PathValue("ns"), values, entryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": rows})
}

type validateEntryInput struct {
	Values map[string]any `json:"values"`
}

// handleValidateEntry handles POST /v1/namespaces/{ns}/streams/{stream}/validate.
func (s *Server) handleValidateEntry(w http.ResponseWriter, r *http.Request) {
	var in validateEntryInput
	if err := readJSON(r, &in, false); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := s.svc.ValidateEntry(r.Context(), r.PathValue("stream"), r.PathValue("ns"), in.Values); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
