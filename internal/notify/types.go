// Package notify relays match lifecycle events to team members through a
// transactional outbox: state transitions insert a row, a listener picks it
// up via LISTEN/NOTIFY and publishes to JetStream, and a fallback poll sweeps
// anything a dropped notification missed.
package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is one pending or delivered notification row.
type OutboxEvent struct {
	ID           uuid.UUID       `json:"id"`
	MatchEventID uuid.UUID       `json:"match_event_id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	SentAt       *time.Time      `json:"sent_at,omitempty"`
}
