package models

// MatchRules holds JSONB configuration for a match, one-to-one with the host
// match event.
type MatchRules struct {
	QuarterCount         int            `json:"quarter_count"`
	QuarterMinutes       int            `json:"quarter_minutes"`
	QuarterBreakMinutes  int            `json:"quarter_break_minutes"`
	HalftimeMinutes      int            `json:"halftime_minutes"`
	PlayersPerSide       int            `json:"players_per_side,omitempty"`
	AllowOwnGoals        bool           `json:"allow_own_goals,omitempty"`
	CardsEnabled         bool           `json:"cards_enabled,omitempty"`
	RefereeTeamByQuarter map[int]string `json:"referee_team_by_quarter,omitempty"`
}

// DefaultMatchRules is applied when a fixture is created without explicit rules.
func DefaultMatchRules() MatchRules {
	return MatchRules{
		QuarterCount:        4,
		QuarterMinutes:      12,
		QuarterBreakMinutes: 2,
		HalftimeMinutes:     5,
		PlayersPerSide:      7,
		AllowOwnGoals:       true,
		CardsEnabled:        true,
	}
}
