// Package dualview presents one physical match as two team-scoped
// perspectives. The host and the mirrored record store side-relative fields
// from the host's point of view; any read that crosses from one side's record
// to the other's must flip those fields exactly once.
package dualview

import (
	"github.com/teamvine/matchday/internal/models"
)

// Score is a side-relative score pair.
type Score struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

// FlipSide swaps TEAM_A and TEAM_B. It is an involution: applying it twice
// yields the input.
func FlipSide(s models.TeamSide) models.TeamSide {
	return s.Opposite()
}

// FlipScore swaps the two tallies.
func FlipScore(s Score) Score {
	return Score{TeamA: s.TeamB, TeamB: s.TeamA}
}

// FlipGoal returns a copy of the goal with its scoring side flipped.
func FlipGoal(g models.GoalRecord) models.GoalRecord {
	g.ScoringTeam = FlipSide(g.ScoringTeam)
	return g
}

// FlipCard returns a copy of the card with its side flipped.
func FlipCard(c models.CardRecord) models.CardRecord {
	c.TeamSide = FlipSide(c.TeamSide)
	return c
}

// FlipSubstitution returns a copy of the substitution with its side flipped.
func FlipSubstitution(s models.SubstitutionRecord) models.SubstitutionRecord {
	s.TeamSide = FlipSide(s.TeamSide)
	return s
}

// Perspective says which stored record a reader entered through.
type Perspective int

const (
	// PerspectiveHost reads the host record directly; no flip.
	PerspectiveHost Perspective = iota
	// PerspectiveOpponent reads host-owned state through the mirrored
	// record; side-relative fields flip once.
	PerspectiveOpponent
)

// For returns the perspective for a reader whose entry record is the given
// event: the host record reads straight, the mirrored record reads flipped.
func For(entry *models.MatchEvent) Perspective {
	if entry.IsHost() {
		return PerspectiveHost
	}
	return PerspectiveOpponent
}

// Side maps a stored side into the perspective.
func (p Perspective) Side(s models.TeamSide) models.TeamSide {
	if p == PerspectiveOpponent {
		return FlipSide(s)
	}
	return s
}

// Score maps a stored score pair into the perspective.
func (p Perspective) Score(s Score) Score {
	if p == PerspectiveOpponent {
		return FlipScore(s)
	}
	return s
}

// Goals maps a stored goal list into the perspective.
func (p Perspective) Goals(goals []models.GoalRecord) []models.GoalRecord {
	if p == PerspectiveHost {
		return goals
	}
	out := make([]models.GoalRecord, len(goals))
	for i, g := range goals {
		out[i] = FlipGoal(g)
	}
	return out
}

// Cards maps a stored card list into the perspective.
func (p Perspective) Cards(cards []models.CardRecord) []models.CardRecord {
	if p == PerspectiveHost {
		return cards
	}
	out := make([]models.CardRecord, len(cards))
	for i, c := range cards {
		out[i] = FlipCard(c)
	}
	return out
}

// Substitutions maps a stored substitution list into the perspective.
func (p Perspective) Substitutions(subs []models.SubstitutionRecord) []models.SubstitutionRecord {
	if p == PerspectiveHost {
		return subs
	}
	out := make([]models.SubstitutionRecord, len(subs))
	for i, s := range subs {
		out[i] = FlipSubstitution(s)
	}
	return out
}
