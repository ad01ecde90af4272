package models

import (
	"time"

	"github.com/google/uuid"
)

// CardType defines the disciplinary card variants.
type CardType string

const (
	CardTypeYellow CardType = "YELLOW"
	CardTypeRed    CardType = "RED"
)

// Valid reports whether the card type is a known variant.
func (c CardType) Valid() bool {
	return c == CardTypeYellow || c == CardTypeRed
}

// GoalRecord is an immutable ledger entry for a goal. Ledger records are
// create-only: there is no update or delete, corrections are new records.
type GoalRecord struct {
	ID           uuid.UUID  `json:"id"`
	MatchEventID uuid.UUID  `json:"match_event_id"`
	Quarter      int        `json:"quarter"`
	Minute       *int       `json:"minute,omitempty"`
	ScoringTeam  TeamSide   `json:"scoring_team"`
	ScorerID     *uuid.UUID `json:"scorer_id,omitempty"`
	AssistID     *uuid.UUID `json:"assist_id,omitempty"`
	IsOwnGoal    bool       `json:"is_own_goal"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreditedSide returns the side whose tally the goal increments. An own goal
// credits the opposing side.
func (g GoalRecord) CreditedSide() TeamSide {
	if g.IsOwnGoal {
		return g.ScoringTeam.Opposite()
	}
	return g.ScoringTeam
}

// CardRecord is an immutable ledger entry for a disciplinary card.
type CardRecord struct {
	ID           uuid.UUID `json:"id"`
	MatchEventID uuid.UUID `json:"match_event_id"`
	Quarter      int       `json:"quarter"`
	Minute       *int      `json:"minute,omitempty"`
	TeamSide     TeamSide  `json:"team_side"`
	PlayerID     uuid.UUID `json:"player_id"`
	CardType     CardType  `json:"card_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// SubstitutionRecord is an immutable ledger entry for a player substitution.
type SubstitutionRecord struct {
	ID           uuid.UUID `json:"id"`
	MatchEventID uuid.UUID `json:"match_event_id"`
	Quarter      int       `json:"quarter"`
	Minute       *int      `json:"minute,omitempty"`
	TeamSide     TeamSide  `json:"team_side"`
	PlayerOutID  uuid.UUID `json:"player_out_id"`
	PlayerInID   uuid.UUID `json:"player_in_id"`
	CreatedAt    time.Time `json:"created_at"`
}
