package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mkalstad/teamsrelay/internal/domain/model"
	"github.com/mkalstad/teamsrelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HistoryStore = (*HistoryRepo)(nil)

// HistoryRepo is the SQLite implementation of the HistoryStore port.
// Both tables are append-only: the relay never updates or deletes history.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new HistoryRepo backed by the given DB.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// AppendDriverEvent inserts one driver event.
func (r *HistoryRepo) AppendDriverEvent(ctx context.Context, event model.DriverEvent) error {
	const query = `INSERT INTO driver_events (driver, recorded_at) VALUES (?, ?)`

	recordedAt := event.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query, event.Driver, recordedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append driver event: %w", err)
	}
	return nil
}

// ListDriverEvents returns all driver events in insertion order.
func (r *HistoryRepo) ListDriverEvents(ctx context.Context) ([]model.DriverEvent, error) {
	const query = `SELECT id, driver, recorded_at FROM driver_events ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list driver events: %w", err)
	}
	defer rows.Close()

	events := []model.DriverEvent{}
	for rows.Next() {
		var ev model.DriverEvent
		var recordedAt string
		if err := rows.Scan(&ev.ID, &ev.Driver, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan driver event: %w", err)
		}
		if ev.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate driver events: %w", err)
	}
	return events, nil
}

// ArchiveMessages appends every message of a broadcast snapshot to the audit
// log in one transaction.
func (r *HistoryRepo) ArchiveMessages(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	const query = `INSERT INTO archived_messages (message_id, sender, body, body_content_type, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive: %w", err)
	}
	defer tx.Rollback()

	archivedAt := time.Now().UTC().Format(time.RFC3339)
	for _, msg := range messages {
		_, err := tx.ExecContext(ctx, query,
			msg.ID,
			msg.Sender,
			msg.Body,
			msg.BodyContentType,
			msg.CreatedAt.UTC().Format(time.RFC3339),
			archivedAt,
		)
		if err != nil {
			return fmt.Errorf("archive message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

// ListArchivedMessages returns the full audit log in insertion order.
func (r *HistoryRepo) ListArchivedMessages(ctx context.Context) ([]model.Message, error) {
	const query = `SELECT message_id, sender, body, body_content_type, created_at FROM archived_messages ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list archived messages: %w", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var msg model.Message
		var createdAt string
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Body, &msg.BodyContentType, &createdAt); err != nil {
			return nil, fmt.Errorf("scan archived message: %w", err)
		}
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived messages: %w", err)
	}
	return messages, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
