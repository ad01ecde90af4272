package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// ErrNotFound is returned when an outbox row does not exist or was already
// delivered.
var ErrNotFound = errors.New("outbox event not found")

// Repository stores outbox rows. It runs on database/sql rather than the pgx
// pool because the listener shares its lib/pq connection source.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a notification in the same database as the state transition
// that produced it. payload is marshalled to JSON.
func (r *Repository) Insert(ctx context.Context, eventType string, matchEventID uuid.UUID, payload any) error {
	raw := pqtype.NullRawMessage{}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal outbox payload: %w", err)
		}
		raw = pqtype.NullRawMessage{RawMessage: data, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox_events (id, match_event_id, event_type, payload) VALUES ($1, $2, $3, $4)`,
		uuid.New(), matchEventID, eventType, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// FetchUnsent returns undelivered events oldest first, for the fallback poll.
func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, match_event_id, event_type, payload, created_at
		   FROM outbox_events
		  WHERE sent_at IS NULL
		  ORDER BY created_at
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// FetchByID returns one undelivered event, for notification handling.
func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, match_event_id, event_type, payload, created_at
		   FROM outbox_events
		  WHERE id = $1 AND sent_at IS NULL`, id)

	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// MarkSent records delivery. Marking an already-sent row is a no-op, which
// keeps redelivery after a crash harmless.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET sent_at = now() WHERE id = $1 AND sent_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (OutboxEvent, error) {
	var (
		event   OutboxEvent
		payload pqtype.NullRawMessage
	)
	if err := row.Scan(&event.ID, &event.MatchEventID, &event.EventType, &payload, &event.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OutboxEvent{}, sql.ErrNoRows
		}
		return OutboxEvent{}, fmt.Errorf("failed to scan outbox event: %w", err)
	}
	if payload.Valid {
		event.Payload = payload.RawMessage
	}
	return event, nil
}
