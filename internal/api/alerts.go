package api

import (
	"errors"
	"net/http"

	"github.com/shaharia-lab/ntfy-go/internal/service"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
)

// handleTestAlert sends a test e-mail through the fallback provider.
func (s *Server) handleTestAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.alertSvc.TestAlert(r.Context()); err != nil {
		var nce *service.NotConfiguredError
		if errors.As(err, &nce) {
			writeError(w, http.StatusNotFound, nce.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListAlertLog returns recent alert delivery log entries.
// Accepts an optional ?limit=N query parameter (default 50).
func (s *Server) handleListAlertLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.alertSvc.ListLog(r.Context(), parseLimit(r))
	if err != nil {
		s.logger.Error("list alert log failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list alert log")
		return
	}
	if entries == nil {
		entries = []storage.AlertLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
