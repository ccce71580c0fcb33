package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shaharia-lab/ntfy-go/dispatcher"
	"github.com/shaharia-lab/ntfy-go/internal/service"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
	"github.com/shaharia-lab/ntfy-go/payload"
)

const maxPublishBody = 1 << 20

type publishResponse struct {
	*storage.PublishLogEntry
	Error string `json:"error,omitempty"`
}

// handlePublish relays a JSON payload to the ntfy server. A "Markdown: yes"
// request header is forwarded the same way the CLI's --markdown flag is.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var p payload.Payload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublishBody))
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, payload.ErrUnknownPriority) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}
	p.Markdown = isTruthy(r.Header.Get("Markdown"))

	entry, err := s.publishSvc.Publish(r.Context(), storage.SourceAPI, &p)
	if err == nil {
		writeJSON(w, http.StatusOK, publishResponse{PublishLogEntry: entry})
		return
	}

	var (
		ve        *service.ValidationError
		statusErr *dispatcher.StatusError
		transErr  *dispatcher.TransportError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &statusErr):
		writeJSON(w, http.StatusBadGateway, publishResponse{PublishLogEntry: entry, Error: statusErr.Error()})
	case errors.As(err, &transErr):
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, publishResponse{PublishLogEntry: entry, Error: transErr.Error()})
	default:
		s.logger.Error("publish failed", "topic", p.Topic, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to publish")
	}
}

func (s *Server) handleListPublishLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.publishSvc.ListLog(r.Context(), parseLimit(r))
	if err != nil {
		s.logger.Error("list publish log failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list publish log")
		return
	}
	if entries == nil {
		entries = []*storage.PublishLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1":
		return true
	}
	return false
}
