package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus defines the lifecycle status of a match event.
type MatchStatus string

const (
	MatchStatusDraft         MatchStatus = "DRAFT"
	MatchStatusChallengeSent MatchStatus = "CHALLENGE_SENT"
	MatchStatusConfirmed     MatchStatus = "CONFIRMED"
	MatchStatusInProgress    MatchStatus = "IN_PROGRESS"
	MatchStatusCompleted     MatchStatus = "COMPLETED"
)

// TeamSide identifies one side of a match relative to the record it is read from.
type TeamSide string

const (
	TeamSideA TeamSide = "TEAM_A"
	TeamSideB TeamSide = "TEAM_B"
)

// Valid reports whether the side is one of the two enum values.
func (s TeamSide) Valid() bool {
	return s == TeamSideA || s == TeamSideB
}

// Opposite returns the other side. It is its own inverse.
func (s TeamSide) Opposite() TeamSide {
	if s == TeamSideA {
		return TeamSideB
	}
	return TeamSideA
}

// MatchEvent is one team's record of a scheduled fixture.
//
// A matched pair consists of a host record, which owns the challenge token,
// and a mirrored record, which owns LinkedEventID pointing back at the host.
// Exactly one of the two fields is set on each record of a pair.
type MatchEvent struct {
	ID                 uuid.UUID   `json:"id"`
	TeamID             uuid.UUID   `json:"team_id"`
	ScheduledAt        time.Time   `json:"scheduled_at"`
	Location           string      `json:"location,omitempty"`
	MatchStatus        MatchStatus `json:"match_status"`
	ChallengeToken     *uuid.UUID  `json:"challenge_token,omitempty"`
	ChallengeExpiresAt *time.Time  `json:"challenge_expires_at,omitempty"`
	OpponentTeamID     *uuid.UUID  `json:"opponent_team_id,omitempty"`
	OpponentTeamName   *string     `json:"opponent_team_name,omitempty"`
	LinkedEventID      *uuid.UUID  `json:"linked_event_id,omitempty"`
	RejectedReason     *string     `json:"rejected_reason,omitempty"`
	IsFriendly         bool        `json:"is_friendly"`
	TeamAScore         int         `json:"team_a_score"`
	TeamBScore         int         `json:"team_b_score"`
	MinimumPlayers     int         `json:"minimum_players"`
	Rules              MatchRules  `json:"rules"`
	Clock              ClockState  `json:"clock"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// IsHost reports whether this record originated the challenge. The mirrored
// record carries LinkedEventID instead of the token.
func (e *MatchEvent) IsHost() bool {
	return e.LinkedEventID == nil
}

// ChallengeExpired reports whether the record carries a token whose expiry
// has passed at the given instant.
func (e *MatchEvent) ChallengeExpired(now time.Time) bool {
	return e.ChallengeExpiresAt != nil && now.After(*e.ChallengeExpiresAt)
}
