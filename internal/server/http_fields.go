package server

import (
	"net/http"

	"github.com/alfredjeanlab/streams/internal/model"
)

// handleAddField handles POST /v1/fields.
func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	var spec model.FieldSpec
	if err := readJSON(r, &spec, false); err != nil {
		writeServiceError(w, err)
		return
	}

	field, err := s.svc.AddField(r.Context(), spec)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, field)
}

type addFieldsInput struct {
	Fields []model.FieldSpec `json:"fields"`
}

// handleAddFields handles POST /v1/fields/batch. Invalid entries are
// skipped; the response lists the fields that were created.
func (s *Server) handleAddFields(w http.ResponseWriter, r *http.Request) {
	var in addFieldsInput
	if err := readJSON(r, &in, false); err != nil {
		writeServiceError(w, err)
		return
	}

	created := s.svc.AddFields(r.Context(), in.Fields)
	writeJSON(w, http.StatusOK, map[string]any{
		"fields":    created,
		"requested": len(in.Fields),
		"created":   len(created),
	})
}

// handleListFields handles GET /v1/namespaces/{ns}/fields.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.svc.ListFields(r.Context(), r.PathValue("ns"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

// handleGetField handles GET /v1/namespaces/{ns}/fields/{slug}.
func (s *Server) handleGetField(w http.ResponseWriter, r *http.Request) {
	field, err := s.svc.GetField(r.Context(), r.PathValue("slug"), r.PathValue("ns"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

// handleDeleteField handles DELETE /v1/namespaces/{ns}/fields/{slug}.
func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteField(r.Context(), r.PathValue("slug"), r.PathValue("ns")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetFieldAssignments handles GET /v1/namespaces/{ns}/fields/{slug}/assignments.
func (s *Server) handleGetFieldAssignments(w http.ResponseWriter, r *http.Request) {
	assigns, err := s.svc.GetFieldAssignments(r.Context(), r.PathValue("slug"), r.PathValue("ns"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if assigns == nil {
		assigns = []*model.Assignment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": assigns})
}
