// Package live is the read/write surface remote clients poll and mutate
// during a match. It combines the clock, the ledger, and the dual-record
// synchronizer into one snapshot and enforces who may record.
package live

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/teamvine/matchday/internal/clock"
	"github.com/teamvine/matchday/internal/dualview"
	"github.com/teamvine/matchday/internal/models"
	"github.com/teamvine/matchday/internal/schedule"
)

// ChallengeApp is the slice of the challenge protocol the façade needs.
type ChallengeApp interface {
	ResolvePair(ctx context.Context, token uuid.UUID) (*models.MatchEvent, *models.MatchEvent, error)
	IsRecorder(ctx context.Context, host, mirror *models.MatchEvent, userID uuid.UUID) (bool, error)
}

// LedgerApp lists a match's ledger collections in display order.
type LedgerApp interface {
	Entries(ctx context.Context, hostEventID uuid.UUID) ([]models.GoalRecord, []models.CardRecord, []models.SubstitutionRecord, error)
}

// RosterReader supplies checked-in rosters and membership roles.
type RosterReader interface {
	ListCheckedIn(ctx context.Context, matchEventID uuid.UUID) ([]models.RosterEntry, error)
	GetTeamRole(ctx context.Context, teamID, userID uuid.UUID) (models.TeamRole, error)
	GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
}

// Provider assembles live session snapshots.
type Provider struct {
	challenges ChallengeApp
	ledger     LedgerApp
	roster     RosterReader
	clock      clockwork.Clock
}

func NewProvider(challenges ChallengeApp, ledger LedgerApp, roster RosterReader, clk clockwork.Clock) *Provider {
	return &Provider{challenges: challenges, ledger: ledger, roster: roster, clock: clk}
}

// Snapshot builds the session view for the given viewer. Viewers belonging to
// the accepting team read through the mirrored record and see every
// side-relative field flipped exactly once; everyone else reads the host
// record straight.
func (p *Provider) Snapshot(ctx context.Context, token uuid.UUID, viewerID uuid.UUID) (*SessionSnapshot, error) {
	host, mirror, err := p.challenges.ResolvePair(ctx, token)
	if err != nil {
		return nil, err
	}

	entry, perspective, err := p.entryRecord(ctx, host, mirror, viewerID)
	if err != nil {
		return nil, err
	}

	phases, err := schedule.Build(host.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to build phase schedule: %w", err)
	}

	goals, cards, subs, err := p.ledger.Entries(ctx, host.ID)
	if err != nil {
		return nil, err
	}

	now := p.clock.Now()
	snap := &SessionSnapshot{
		MatchEventID:  entry.ID,
		HostEventID:   host.ID,
		Status:        host.MatchStatus,
		ScheduledAt:   host.ScheduledAt,
		Location:      host.Location,
		Score:         snapshotScore(perspective.Score(dualview.Score{TeamA: host.TeamAScore, TeamB: host.TeamBScore})),
		Clock:         clockInfo(host.Clock, phases, now),
		Goals:         perspective.Goals(goals),
		Cards:         perspective.Cards(cards),
		Substitutions: perspective.Substitutions(subs),
		GeneratedAt:   now,
	}

	if err := p.fillNamesAndRosters(ctx, snap, host, mirror, perspective); err != nil {
		return nil, err
	}

	if viewerID != uuid.Nil {
		recorder, err := p.challenges.IsRecorder(ctx, host, mirror, viewerID)
		if err != nil {
			return nil, err
		}
		snap.CanRecord = recorder && host.MatchStatus == models.MatchStatusInProgress
		if snap.CanRecord {
			snap.CanEnd, err = p.canEnd(ctx, host, mirror, viewerID)
			if err != nil {
				return nil, err
			}
		}
	}
	return snap, nil
}

// entryRecord picks which stored record the viewer reads through: members of
// the accepting team enter via the mirrored record, everyone else via the
// host record.
func (p *Provider) entryRecord(ctx context.Context, host, mirror *models.MatchEvent, viewerID uuid.UUID) (*models.MatchEvent, dualview.Perspective, error) {
	if mirror != nil && viewerID != uuid.Nil {
		role, err := p.roster.GetTeamRole(ctx, mirror.TeamID, viewerID)
		if err != nil {
			return nil, dualview.PerspectiveHost, fmt.Errorf("failed to resolve viewer membership: %w", err)
		}
		if role != "" {
			return mirror, dualview.For(mirror), nil
		}
	}
	return host, dualview.For(host), nil
}

// canEnd gates the end-match action more tightly than recording: only team
// owners of either side may end.
func (p *Provider) canEnd(ctx context.Context, host, mirror *models.MatchEvent, viewerID uuid.UUID) (bool, error) {
	role, err := p.roster.GetTeamRole(ctx, host.TeamID, viewerID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve host team role: %w", err)
	}
	if role == models.TeamRoleOwner {
		return true, nil
	}
	if mirror != nil {
		role, err = p.roster.GetTeamRole(ctx, mirror.TeamID, viewerID)
		if err != nil {
			return false, fmt.Errorf("failed to resolve opponent team role: %w", err)
		}
		if role == models.TeamRoleOwner {
			return true, nil
		}
	}
	return false, nil
}

// fillNamesAndRosters resolves team names and checked-in rosters into the
// viewer's perspective: TEAM_A is the entry record's own team.
func (p *Provider) fillNamesAndRosters(ctx context.Context, snap *SessionSnapshot, host, mirror *models.MatchEvent, perspective dualview.Perspective) error {
	hostTeam, err := p.roster.GetTeam(ctx, host.TeamID)
	if err != nil {
		return fmt.Errorf("failed to load host team: %w", err)
	}

	hostName := hostTeam.Name
	opponentName := ""
	if host.OpponentTeamName != nil {
		opponentName = *host.OpponentTeamName
	}

	hostRoster, err := p.roster.ListCheckedIn(ctx, host.ID)
	if err != nil {
		return fmt.Errorf("failed to load host roster: %w", err)
	}
	var opponentRoster []models.RosterEntry
	if mirror != nil {
		opponentRoster, err = p.roster.ListCheckedIn(ctx, mirror.ID)
		if err != nil {
			return fmt.Errorf("failed to load opponent roster: %w", err)
		}
	}

	if perspective == dualview.PerspectiveOpponent {
		// opponentName on the host record is the accepting team's name,
		// which from the mirrored side is the viewer's own team.
		snap.TeamAName, snap.TeamBName = opponentName, hostName
		snap.RosterTeamA, snap.RosterTeamB = opponentRoster, hostRoster
	} else {
		snap.TeamAName, snap.TeamBName = hostName, opponentName
		snap.RosterTeamA, snap.RosterTeamB = hostRoster, opponentRoster
	}
	return nil
}

// clockInfo derives the read model clients render: elapsed and remaining are
// recomputed from stored fields on every read, never cached.
func clockInfo(state models.ClockState, phases []schedule.Phase, now time.Time) SnapshotClock {
	info := SnapshotClock{
		TimerPhase:   state.TimerPhase,
		PhaseCount:   len(phases),
		TimerRunning: state.TimerRunning,
		ElapsedSec:   state.Elapsed(now),
		RemainingSec: clock.Remaining(state, phases, now),
	}
	if phase, ok := schedule.At(phases, state.TimerPhase); ok {
		info.PhaseLabel = phase.Label
		info.Quarter = phase.Quarter
	}
	return info
}
