package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/ntfy-go/internal/storage"
	"github.com/shaharia-lab/ntfy-go/payload"
)

// MockPublishService is a mock implementation of service.PublishService.
type MockPublishService struct {
	mock.Mock
}

//nolint:revive
func (m *MockPublishService) Publish(ctx context.Context, source string, p *payload.Payload) (*storage.PublishLogEntry, error) {
	args := m.Called(ctx, source, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PublishLogEntry), args.Error(1)
}

//nolint:revive
func (m *MockPublishService) ListLog(ctx context.Context, limit int) ([]*storage.PublishLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.PublishLogEntry), args.Error(1)
}

// MockSender is a mock implementation of service.Sender.
type MockSender struct {
	mock.Mock
}

//nolint:revive
func (m *MockSender) Send(ctx context.Context, p *payload.Payload) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
