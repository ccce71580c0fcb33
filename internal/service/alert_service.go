package service

import (
	"context"
	"fmt"

	"github.com/shaharia-lab/ntfy-go/internal/notification"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
)

// AlertService exposes the e-mail fallback to the API and CLI.
type AlertService interface {
	// TestAlert sends a test e-mail through the configured provider.
	TestAlert(ctx context.Context) error
	// ListLog returns the most recent alert deliveries.
	ListLog(ctx context.Context, limit int) ([]storage.AlertLogEntry, error)
}

// alertServiceImpl implements AlertService.
type alertServiceImpl struct {
	provider notification.Provider
	store    storage.AlertStore
}

// NewAlertService creates a new AlertService. provider is nil when SMTP is
// not configured.
func NewAlertService(provider notification.Provider, store storage.AlertStore) AlertService {
	return &alertServiceImpl{provider: provider, store: store}
}

// TestAlert sends a test e-mail so credentials can be verified before the
// first real failure.
func (s *alertServiceImpl) TestAlert(ctx context.Context) error {
	if s.provider == nil {
		return &NotConfiguredError{Feature: "smtp"}
	}
	err := s.provider.Send(ctx, notification.Message{
		Subject: notification.SubjectPrefix + "Test alert",
		Body:    "This is a test alert from ntfy-go.\n\nFailed publishes will be reported to this address.",
	})
	if err != nil {
		return fmt.Errorf("sending test alert: %w", err)
	}
	return nil
}

func (s *alertServiceImpl) ListLog(ctx context.Context, limit int) ([]storage.AlertLogEntry, error) {
	entries, err := s.store.ListAlerts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing alert log: %w", err)
	}
	return entries, nil
}
