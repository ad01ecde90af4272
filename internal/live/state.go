package live

import (
	"time"

	"github.com/google/uuid"

	"github.com/teamvine/matchday/internal/dualview"
	"github.com/teamvine/matchday/internal/models"
)

// SessionSnapshot is the poll-friendly read model of a live match, rendered
// in the requesting viewer's perspective: TEAM_A is always the viewer's own
// side. Clients poll this at short fixed intervals; everything in it is
// computed from stored state so concurrent pollers converge.
type SessionSnapshot struct {
	MatchEventID uuid.UUID          `json:"match_event_id"`
	HostEventID  uuid.UUID          `json:"host_event_id"`
	Status       models.MatchStatus `json:"status"`
	ScheduledAt  time.Time          `json:"scheduled_at"`
	Location     string             `json:"location,omitempty"`
	TeamAName    string             `json:"team_a_name"`
	TeamBName    string             `json:"team_b_name"`

	Score SnapshotScore `json:"score"`
	Clock SnapshotClock `json:"clock"`

	Goals         []models.GoalRecord         `json:"goals"`
	Cards         []models.CardRecord         `json:"cards"`
	Substitutions []models.SubstitutionRecord `json:"substitutions"`

	RosterTeamA []models.RosterEntry `json:"roster_team_a"`
	RosterTeamB []models.RosterEntry `json:"roster_team_b"`

	// CanRecord and CanEnd are advisory for client-side gating; every
	// mutation endpoint re-derives them server-side.
	CanRecord bool `json:"can_record"`
	CanEnd    bool `json:"can_end"`

	GeneratedAt time.Time `json:"generated_at"`
}

// SnapshotScore is the score pair in viewer perspective.
type SnapshotScore struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

// SnapshotClock is the derived clock read model.
type SnapshotClock struct {
	TimerPhase   int    `json:"timer_phase"`
	PhaseCount   int    `json:"phase_count"`
	PhaseLabel   string `json:"phase_label,omitempty"`
	Quarter      int    `json:"quarter,omitempty"`
	TimerRunning bool   `json:"timer_running"`
	ElapsedSec   int    `json:"elapsed_sec"`
	RemainingSec int    `json:"remaining_sec"`
}

func snapshotScore(s dualview.Score) SnapshotScore {
	return SnapshotScore{TeamA: s.TeamA, TeamB: s.TeamB}
}
