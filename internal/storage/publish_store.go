package storage

import (
	"context"
	"time"

	"github.com/shaharia-lab/ntfy-go/payload"
)

// Publish sources.
const (
	SourceCLI       = "cli"
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
)

// Publish statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// PublishLogEntry records a single publish attempt.
type PublishLogEntry struct {
	ID         string           `json:"id"`
	Topic      string           `json:"topic"`
	Title      string           `json:"title,omitempty"`
	Priority   payload.Priority `json:"priority"`
	Source     string           `json:"source"`
	Status     string           `json:"status"`
	StatusCode int              `json:"status_code,omitempty"`
	ErrorMsg   string           `json:"error_msg,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// PublishLogStore persists publish attempts.
type PublishLogStore interface {
	// LogPublish records a publish attempt.
	LogPublish(ctx context.Context, entry *PublishLogEntry) error
	// ListPublishes returns the most recent attempts, newest first. A limit
	// of zero or less uses a default of 50.
	ListPublishes(ctx context.Context, limit int) ([]*PublishLogEntry, error)
}

// AlertLogEntry records one fallback alert delivery for a failed publish.
type AlertLogEntry struct {
	ID        int64     `json:"id"`
	PublishID string    `json:"publish_id"`
	Topic     string    `json:"topic"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertStore persists fallback alert deliveries.
type AlertStore interface {
	LogAlert(ctx context.Context, entry AlertLogEntry) error
	ListAlerts(ctx context.Context, limit int) ([]AlertLogEntry, error)
}

const defaultListLimit = 50
