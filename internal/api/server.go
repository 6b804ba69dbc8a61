// Package api exposes the audit task service over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/assetaudit/internal/reconcile"
	"github.com/roach88/assetaudit/internal/scan"
	"github.com/roach88/assetaudit/internal/tasks"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	svc    *tasks.Service
	runner *scan.BulkRunner
	engine *reconcile.Engine
	logger *slog.Logger
}

// NewServer creates a Server. A nil logger means slog.Default().
func NewServer(svc *tasks.Service, runner *scan.BulkRunner, engine *reconcile.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, runner: runner, engine: engine, logger: logger}
}

// Routes builds the router.
//
//	GET    /healthz
//	GET    /catalog
//	GET    /tasks                              ?status=&priority=&q=
//	POST   /tasks
//	GET    /tasks/stats
//	POST   /tasks/refresh-overdue
//	GET    /tasks/{id}
//	POST   /tasks/{id}/complete
//	POST   /tasks/{id}/checklist
//	POST   /tasks/{id}/checklist/{itemID}/toggle
//	POST   /tasks/{id}/scans
//	POST   /tasks/{id}/scans/{scanID}/damaged
//	GET    /tasks/{id}/bulk-scan
//	POST   /tasks/{id}/bulk-scan
//	DELETE /tasks/{id}/bulk-scan
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Get("/catalog", s.getCatalog)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.listTasks)
		r.Post("/", s.createTask)
		r.Get("/stats", s.stats)
		r.Post("/refresh-overdue", s.refreshOverdue)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getTask)
			r.Post("/complete", s.markComplete)
			r.Post("/checklist", s.addChecklistItem)
			r.Post("/checklist/{itemID}/toggle", s.toggleChecklistItem)
			r.Post("/scans", s.recordScan)
			r.Post("/scans/{scanID}/damaged", s.flagDamaged)
			r.Get("/bulk-scan", s.bulkScanStatus)
			r.Post("/bulk-scan", s.startBulkScan)
			r.Delete("/bulk-scan", s.cancelBulkScan)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
