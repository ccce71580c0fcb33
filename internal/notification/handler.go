package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shaharia-lab/ntfy-go/internal/eventbus"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
)

const defaultSendTimeout = 30 * time.Second

// AlertHandler turns publish.failed events into e-mails and records every
// delivery attempt.
type AlertHandler struct {
	provider Provider
	store    storage.AlertStore
	logger   *slog.Logger
	timeout  time.Duration
}

// NewAlertHandler creates a new AlertHandler. store may be nil.
func NewAlertHandler(provider Provider, store storage.AlertStore, logger *slog.Logger) *AlertHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AlertHandler{
		provider: provider,
		store:    store,
		logger:   logger,
		timeout:  defaultSendTimeout,
	}
}

// Handle is an eventbus.Listener. Events other than publish.failed are ignored.
func (h *AlertHandler) Handle(e eventbus.Event) {
	if e.Type != eventbus.EventPublishFailed {
		return
	}

	topic := e.Payload[eventbus.KeyTopic]
	subject := buildSubject(fmt.Sprintf("Publish to %q failed", topic))

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	sendErr := h.provider.Send(ctx, Message{Subject: subject, Body: alertBody(e)})

	entry := storage.AlertLogEntry{
		PublishID: e.Payload[eventbus.KeyID],
		Topic:     topic,
		Provider:  h.provider.Name(),
		Status:    storage.StatusSent,
		CreatedAt: time.Now().UTC(),
	}
	if sendErr != nil {
		entry.Status = storage.StatusFailed
		entry.ErrorMsg = sendErr.Error()
		h.logger.Error("alert delivery failed", "topic", topic, "provider", h.provider.Name(), "error", sendErr)
	} else {
		h.logger.Info("alert delivered", "topic", topic, "provider", h.provider.Name())
	}

	if h.store == nil {
		return
	}
	if logErr := h.store.LogAlert(context.Background(), entry); logErr != nil {
		h.logger.Error("recording alert delivery", "topic", topic, "error", logErr)
	}
}

// alertBody renders the event payload in a fixed order.
func alertBody(e eventbus.Event) string {
	fields := []struct{ label, key string }{
		{"Topic", eventbus.KeyTopic},
		{"Title", eventbus.KeyTitle},
		{"Source", eventbus.KeySource},
		{"Status code", eventbus.KeyStatusCode},
		{"Error", eventbus.KeyError},
		{"Publish ID", eventbus.KeyID},
	}
	var b strings.Builder
	for _, f := range fields {
		if v := e.Payload[f.key]; v != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.label, v)
		}
	}
	fmt.Fprintf(&b, "Time: %s\n", e.Timestamp.UTC().Format(time.RFC3339))
	return b.String()
}
