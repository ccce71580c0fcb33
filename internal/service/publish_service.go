package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/ntfy-go/dispatcher"
	"github.com/shaharia-lab/ntfy-go/internal/eventbus"
	"github.com/shaharia-lab/ntfy-go/internal/metrics"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
	"github.com/shaharia-lab/ntfy-go/payload"
)

const tracerName = "github.com/shaharia-lab/ntfy-go/internal/service"

// Sender delivers a payload to the ntfy server. *dispatcher.Dispatcher
// satisfies it.
type Sender interface {
	Send(ctx context.Context, p *payload.Payload) error
}

// PublishService validates, sends and records publishes.
type PublishService interface {
	// Publish validates p, sends it and records the outcome. The returned
	// entry is nil only when p fails validation, in which case the error is a
	// *ValidationError and nothing was sent.
	Publish(ctx context.Context, source string, p *payload.Payload) (*storage.PublishLogEntry, error)
	// ListLog returns the most recent publish attempts, newest first.
	ListLog(ctx context.Context, limit int) ([]*storage.PublishLogEntry, error)
}

// Option configures a PublishService.
type Option func(*publishServiceImpl)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *publishServiceImpl) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// publishServiceImpl implements PublishService.
type publishServiceImpl struct {
	sender  Sender
	store   storage.PublishLogStore
	events  EventPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewPublishService creates a new PublishService. events and m may be nil.
func NewPublishService(
	sender Sender,
	store storage.PublishLogStore,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) PublishService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &publishServiceImpl{
		sender:  sender,
		store:   store,
		events:  events,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *publishServiceImpl) Publish(ctx context.Context, source string, p *payload.Payload) (*storage.PublishLogEntry, error) {
	if p == nil {
		s.metrics.ObservePublish(source, metrics.OutcomeInvalid, 0)
		return nil, &ValidationError{Field: "payload", Message: "payload is required"}
	}
	if err := p.Validate(); err != nil {
		s.metrics.ObservePublish(source, metrics.OutcomeInvalid, 0)
		return nil, &ValidationError{Message: err.Error()}
	}

	ctx, span := s.tracer.Start(ctx, "ntfy.publish", trace.WithAttributes(
		attribute.String("ntfy.topic", p.Topic),
		attribute.String("ntfy.source", source),
		attribute.Int("ntfy.priority", int(p.Priority.OrDefault())),
	))
	defer span.End()

	start := time.Now()
	sendErr := s.sender.Send(ctx, p)
	elapsed := time.Since(start)

	entry := &storage.PublishLogEntry{
		ID:        uuid.NewString(),
		Topic:     p.Topic,
		Title:     p.Title,
		Priority:  p.Priority.OrDefault(),
		Source:    source,
		Status:    storage.StatusSent,
		CreatedAt: start.UTC(),
	}

	outcome := metrics.OutcomeSent
	if sendErr != nil {
		outcome = metrics.OutcomeFailed
		entry.Status = storage.StatusFailed
		entry.ErrorMsg = sendErr.Error()

		var statusErr *dispatcher.StatusError
		if errors.As(sendErr, &statusErr) {
			entry.StatusCode = statusErr.StatusCode
			span.SetAttributes(attribute.Int("http.response.status_code", statusErr.StatusCode))
		}
		span.RecordError(sendErr)
		span.SetStatus(codes.Error, sendErr.Error())
	}
	s.metrics.ObservePublish(source, outcome, elapsed)

	// Logging uses a detached context so a cancelled request still leaves a trace.
	if err := s.store.LogPublish(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("recording publish", "id", entry.ID, "topic", entry.Topic, "error", err)
	}

	if sendErr != nil {
		s.logger.Warn("publish failed",
			"id", entry.ID, "topic", p.Topic, "source", source,
			"status_code", entry.StatusCode, "error", sendErr)
		s.emit(eventbus.EventPublishFailed, entry)
		return entry, fmt.Errorf("publishing to %q: %w", p.Topic, sendErr)
	}

	s.logger.Info("publish sent",
		"id", entry.ID, "topic", p.Topic, "source", source,
		"duration_ms", elapsed.Milliseconds())
	s.emit(eventbus.EventPublishSent, entry)
	return entry, nil
}

func (s *publishServiceImpl) emit(eventType string, entry *storage.PublishLogEntry) {
	if s.events == nil {
		return
	}
	data := map[string]string{
		eventbus.KeyID:     entry.ID,
		eventbus.KeyTopic:  entry.Topic,
		eventbus.KeySource: entry.Source,
	}
	if entry.Title != "" {
		data[eventbus.KeyTitle] = entry.Title
	}
	if entry.StatusCode != 0 {
		data[eventbus.KeyStatusCode] = strconv.Itoa(entry.StatusCode)
	}
	if entry.ErrorMsg != "" {
		data[eventbus.KeyError] = entry.ErrorMsg
	}
	s.events.Publish(eventType, data)
}

func (s *publishServiceImpl) ListLog(ctx context.Context, limit int) ([]*storage.PublishLogEntry, error) {
	entries, err := s.store.ListPublishes(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing publish log: %w", err)
	}
	return entries, nil
}
