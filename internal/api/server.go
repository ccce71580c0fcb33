package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/ntfy-go/internal/service"
)

const (
	errInvalidJSONBody = "invalid JSON body"
	defaultLogLimit    = 50
	maxLogLimit        = 500
)

// Server holds all dependencies for the REST API handlers.
type Server struct {
	publishSvc service.PublishService
	alertSvc   service.AlertService
	schedules  ScheduleRunner
	logger     *slog.Logger
}

// New creates a new API Server backed by the provided services.
func New(publishSvc service.PublishService, alertSvc service.AlertService, logger *slog.Logger) *Server {
	return &Server{
		publishSvc: publishSvc,
		alertSvc:   alertSvc,
		logger:     logger,
	}
}

// WithSchedules exposes the scheduler under /schedules.
func (s *Server) WithSchedules(runner ScheduleRunner) *Server {
	s.schedules = runner
	return s
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Post("/publish", s.handlePublish)
	r.Get("/publish-log", s.handleListPublishLog)

	r.Get("/alerts", s.handleListAlertLog)
	r.Post("/alerts/test", s.handleTestAlert)

	r.Get("/schedules", s.handleListSchedules)
	r.Post("/schedules/{name}/run", s.handleRunSchedule)

	r.Get("/version", s.handleVersion)
}

// --- shared helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseLimit reads ?limit=N, falling back to the default for missing or
// invalid values and capping at maxLogLimit.
func parseLimit(r *http.Request) int {
	limit := defaultLogLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLogLimit)
		}
	}
	return limit
}
