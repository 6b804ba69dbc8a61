package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/catalog"
	"github.com/roach88/assetaudit/internal/scan"
	"github.com/roach88/assetaudit/internal/tasks"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// AddChecklistItemRequest is the body of POST /tasks/{id}/checklist.
type AddChecklistItemRequest struct {
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// RecordScanRequest is the body of POST /tasks/{id}/scans.
type RecordScanRequest struct {
	Code string `json:"code"`
}

// BulkScanStatus is the body of the bulk-scan endpoints.
type BulkScanStatus struct {
	TaskID  string `json:"taskId"`
	Running bool   `json:"running"`
}

// CatalogEntry is one row of GET /catalog.
type CatalogEntry struct {
	Code string `json:"code"`
	catalog.Entry
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.engine.Catalog()
	codes := cat.Codes()
	out := make([]CatalogEntry, 0, len(codes))
	for _, code := range codes {
		e, _ := cat.Lookup(code)
		out = append(out, CatalogEntry{Code: code, Entry: e})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.svc.ListTasks(r.Context(), tasks.Filter{
		Status:   audit.Status(q.Get("status")),
		Priority: audit.Priority(q.Get("priority")),
		Search:   q.Get("q"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var form audit.CreateTaskForm
	if !s.decode(w, r, &form) {
		return
	}
	task, err := s.svc.CreateTask(r.Context(), form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/tasks/"+task.ID)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) refreshOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.RefreshOverdue(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	s.respondTask(w, r, task, err)
}

func (s *Server) markComplete(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.MarkComplete(r.Context(), chi.URLParam(r, "id"))
	s.respondTask(w, r, task, err)
}

func (s *Server) addChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req AddChecklistItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.svc.AddChecklistItem(r.Context(), chi.URLParam(r, "id"), req.Description, req.Required)
	s.respondTask(w, r, task, err)
}

func (s *Server) toggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.ToggleChecklistItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	s.respondTask(w, r, task, err)
}

// recordScan classifies one decoded code and records it. Debouncing is the
// camera session's job; every request is one scan.
func (s *Server) recordScan(w http.ResponseWriter, r *http.Request) {
	var req RecordScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	if catalog.NormalizeCode(req.Code) == "" {
		s.writeError(w, r, audit.NewValidationError(map[string]string{"code": "Code is required"}))
		return
	}
	task, err := s.svc.RecordScanEvent(r.Context(), chi.URLParam(r, "id"), s.engine.Classify(req.Code))
	s.respondTask(w, r, task, err)
}

func (s *Server) flagDamaged(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.FlagDamaged(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "scanID"))
	s.respondTask(w, r, task, err)
}

func (s *Server) bulkScanStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, BulkScanStatus{TaskID: id, Running: s.runner.Running(id)})
}

func (s *Server) startBulkScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	// The run outlives the request; Runner.Close cancels it on shutdown.
	ctx := context.WithoutCancel(r.Context())
	if _, err := s.runner.Start(ctx, id, s.engine.Catalog().Codes()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, BulkScanStatus{TaskID: id, Running: true})
}

func (s *Server) cancelBulkScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.runner.Cancel(id)
	writeJSON(w, http.StatusOK, BulkScanStatus{TaskID: id, Running: s.runner.Running(id)})
}

func (s *Server) respondTask(w http.ResponseWriter, r *http.Request, task audit.AuditTask, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:      "BAD_JSON",
			Message:   "Invalid JSON body: " + err.Error(),
			RequestID: middleware.GetReqID(r.Context()),
		})
		return false
	}
	return true
}

// writeError maps service errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{
		Code:      "INTERNAL",
		Message:   "internal error",
		RequestID: middleware.GetReqID(r.Context()),
	}
	status := http.StatusInternalServerError

	var ae *audit.Error
	switch {
	case errors.As(err, &ae):
		resp.Code = string(ae.Code)
		resp.Message = ae.Message
		resp.Fields = ae.Fields
		switch ae.Code {
		case audit.ErrCodeValidation:
			status = http.StatusBadRequest
		case audit.ErrCodeNotFound:
			status = http.StatusNotFound
		case audit.ErrCodeChecklistIncomplete, audit.ErrCodeInvalidTransition:
			status = http.StatusConflict
		case audit.ErrCodeCameraAccess:
			status = http.StatusServiceUnavailable
		}
	case errors.Is(err, scan.ErrScanRunning):
		status = http.StatusConflict
		resp.Code = "SCAN_RUNNING"
		resp.Message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
