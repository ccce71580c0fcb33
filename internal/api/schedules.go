package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/ntfy-go/internal/scheduler"
)

// ScheduleRunner lists and triggers scheduled publishes. *scheduler.Scheduler
// satisfies it.
type ScheduleRunner interface {
	List() []scheduler.Info
	RunNow(name string) error
}

func (s *Server) handleListSchedules(w http.ResponseWriter, _ *http.Request) {
	if s.schedules == nil {
		writeJSON(w, http.StatusOK, []scheduler.Info{})
		return
	}
	writeJSON(w, http.StatusOK, s.schedules.List())
}

func (s *Server) handleRunSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.schedules == nil {
		writeError(w, http.StatusNotFound, "scheduler is not running")
		return
	}
	if err := s.schedules.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("run schedule failed", "schedule", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to run schedule")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered", "schedule": name})
}
