package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/taskgraph/pkg/buildinfo"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
	"github.com/matzehuels/taskgraph/pkg/rules"
)

// DependencyRequest is the body of the dependency endpoints.
type DependencyRequest struct {
	DependentID    string `json:"dependentId"`
	PrerequisiteID string `json:"prerequisiteId"`
	Confirm        bool   `json:"confirm,omitempty"`
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error   ErrorDetail    `json:"error"`
	Verdict *rules.Verdict `json:"verdict,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

var contentTypes = map[string]string{
	pipeline.FormatJSON: "application/json",
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG:  "image/svg+xml",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.Projects(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"projects": ids})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	g, err := graph.ReadGraph(r.Body)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if g.ProjectID == "" {
		g.ProjectID = projectID
	}
	if g.ProjectID != projectID {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "body project %q does not match %q", g.ProjectID, projectID), nil)
		return
	}
	if _, _, err := graph.Records(g); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if err := s.store.ImportProject(r.Context(), g); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	s.mu.Lock()
	ed, open := s.editors[projectID]
	s.mu.Unlock()
	if open {
		if err := ed.Reload(r.Context()); err != nil {
			s.writeError(w, r, err, nil)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	ed, err := s.editorFor(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	v, err := ed.View(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	opts := pipeline.Options{
		Layout:            s.layout,
		Formats:           []string{format},
		HighlightCritical: r.URL.Query().Get("highlight") == "true",
		Detailed:          r.URL.Query().Get("detailed") == "true",
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	ed, err := s.editorFor(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	v, err := ed.View(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), v, opts)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format), nil)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	ed, err := s.editorFor(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	report, err := ed.ScanIntegrity(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDependency(w, r)
	if !ok {
		return
	}
	ed, err := s.editorFor(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, ed.RequestAddDependency(req.DependentID, req.PrerequisiteID))
}

func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDependency(w, r)
	if !ok {
		return
	}
	ed, err := s.editorFor(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	v, err := ed.AddDependency(r.Context(), req.DependentID, req.PrerequisiteID, req.Confirm)
	if err != nil {
		s.writeError(w, r, err, &v)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleRemoveDependency(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDependency(w, r)
	if !ok {
		return
	}
	ed, err := s.editorFor(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if err := ed.RemoveDependency(r.Context(), req.DependentID, req.PrerequisiteID); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeDependency(w http.ResponseWriter, r *http.Request) (DependencyRequest, bool) {
	var req DependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode dependency"), nil)
		return req, false
	}
	if req.DependentID == "" || req.PrerequisiteID == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "dependentId and prerequisiteId are required"), nil)
		return req, false
	}
	return req, true
}

// statusOf maps error codes to HTTP status codes.
func statusOf(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeTaskNotFound,
		errors.ErrCodeProjectNotFound, errors.ErrCodeDependencyNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConfirmationRequired, errors.ErrCodeDependencyExists:
		return http.StatusConflict
	case errors.ErrCodeRejected:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, v *rules.Verdict) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusOf(code)
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "request_id", RequestID(r.Context()))
		msg = "internal error"
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: msg}, Verdict: v})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
