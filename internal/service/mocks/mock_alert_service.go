package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/ntfy-go/internal/storage"
)

// MockAlertService is a mock implementation of service.AlertService.
type MockAlertService struct {
	mock.Mock
}

//nolint:revive
func (m *MockAlertService) TestAlert(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

//nolint:revive
func (m *MockAlertService) ListLog(ctx context.Context, limit int) ([]storage.AlertLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.AlertLogEntry), args.Error(1)
}

// MockEventPublisher is a mock implementation of service.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

//nolint:revive
func (m *MockEventPublisher) Publish(eventType string, payload map[string]string) {
	m.Called(eventType, payload)
}
