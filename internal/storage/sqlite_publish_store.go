package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaharia-lab/ntfy-go/payload"
)

// SQLitePublishStore implements PublishLogStore and AlertStore backed by SQLite.
type SQLitePublishStore struct {
	db *sql.DB
}

// NewSQLitePublishStore returns a new SQLitePublishStore.
func NewSQLitePublishStore(db *sql.DB) *SQLitePublishStore {
	return &SQLitePublishStore{db: db}
}

// LogPublish inserts entry. ID and CreatedAt are filled in when empty.
func (s *SQLitePublishStore) LogPublish(ctx context.Context, entry *PublishLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO publish_log (id, topic, title, priority, source, status, status_code, error_msg, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Topic, entry.Title, int(entry.Priority), entry.Source,
		entry.Status, entry.StatusCode, entry.ErrorMsg, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting publish log: %w", err)
	}
	return nil
}

// ListPublishes returns the most recent publish attempts ordered by created_at descending.
func (s *SQLitePublishStore) ListPublishes(ctx context.Context, limit int) (entries []*PublishLogEntry, err error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, title, priority, source, status, status_code, error_msg, created_at
		FROM publish_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying publish log: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var (
			e    PublishLogEntry
			prio int
		)
		if err := rows.Scan(&e.ID, &e.Topic, &e.Title, &prio, &e.Source,
			&e.Status, &e.StatusCode, &e.ErrorMsg, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning publish log row: %w", err)
		}
		e.Priority = payload.Priority(prio) //nolint:gosec // stored from a validated payload
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating publish log rows: %w", err)
	}
	return entries, nil
}

// LogAlert inserts a fallback alert delivery record.
func (s *SQLitePublishStore) LogAlert(ctx context.Context, entry AlertLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_log (publish_id, topic, provider, status, error_msg, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.PublishID, entry.Topic, entry.Provider,
		entry.Status, entry.ErrorMsg, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting alert log: %w", err)
	}
	return nil
}

// ListAlerts returns the most recent alert deliveries, newest first.
func (s *SQLitePublishStore) ListAlerts(ctx context.Context, limit int) (entries []AlertLogEntry, err error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, publish_id, topic, provider, status, error_msg, created_at
		FROM alert_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alert log: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var e AlertLogEntry
		if err := rows.Scan(&e.ID, &e.PublishID, &e.Topic, &e.Provider,
			&e.Status, &e.ErrorMsg, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alert log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alert log rows: %w", err)
	}
	return entries, nil
}
