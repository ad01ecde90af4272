package live

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamvine/matchday/internal/models"
)

type fakeChallenges struct {
	host     *models.MatchEvent
	mirror   *models.MatchEvent
	recorder map[uuid.UUID]bool
}

func (f *fakeChallenges) ResolvePair(ctx context.Context, token uuid.UUID) (*models.MatchEvent, *models.MatchEvent, error) {
	return f.host, f.mirror, nil
}

func (f *fakeChallenges) IsRecorder(ctx context.Context, host, mirror *models.MatchEvent, userID uuid.UUID) (bool, error) {
	return f.recorder[userID], nil
}

type fakeLedger struct {
	goals []models.GoalRecord
	cards []models.CardRecord
	subs  []models.SubstitutionRecord
}

func (f *fakeLedger) Entries(ctx context.Context, hostEventID uuid.UUID) ([]models.GoalRecord, []models.CardRecord, []models.SubstitutionRecord, error) {
	return f.goals, f.cards, f.subs, nil
}

type fakeRosterReader struct {
	roles   map[uuid.UUID]map[uuid.UUID]models.TeamRole
	rosters map[uuid.UUID][]models.RosterEntry
	teams   map[uuid.UUID]*models.Team
}

func (f *fakeRosterReader) ListCheckedIn(ctx context.Context, matchEventID uuid.UUID) ([]models.RosterEntry, error) {
	return f.rosters[matchEventID], nil
}

func (f *fakeRosterReader) GetTeamRole(ctx context.Context, teamID, userID uuid.UUID) (models.TeamRole, error) {
	return f.roles[teamID][userID], nil
}

func (f *fakeRosterReader) GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	return f.teams[teamID], nil
}

type sessionFixture struct {
	provider     *Provider
	token        uuid.UUID
	host         *models.MatchEvent
	mirror       *models.MatchEvent
	hostOwner    uuid.UUID
	mirrorPlayer uuid.UUID
	challenges   *fakeChallenges
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	hostTeamID := uuid.New()
	mirrorTeamID := uuid.New()
	hostOwner := uuid.New()
	mirrorPlayer := uuid.New()
	token := uuid.New()
	opponentName := "Harbour Athletic"

	started := time.Date(2025, 5, 10, 14, 0, 0, 0, time.UTC)
	host := &models.MatchEvent{
		ID:               uuid.New(),
		TeamID:           hostTeamID,
		ScheduledAt:      started,
		Location:         "Riverside Park",
		MatchStatus:      models.MatchStatusInProgress,
		ChallengeToken:   &token,
		OpponentTeamID:   &mirrorTeamID,
		OpponentTeamName: &opponentName,
		TeamAScore:       3,
		TeamBScore:       1,
		Rules:            models.DefaultMatchRules(),
		Clock: models.ClockState{
			TimerPhase:     1,
			TimerRunning:   true,
			TimerStartedAt: &started,
		},
	}
	mirror := &models.MatchEvent{
		ID:            uuid.New(),
		TeamID:        mirrorTeamID,
		ScheduledAt:   started,
		MatchStatus:   models.MatchStatusInProgress,
		LinkedEventID: &host.ID,
		TeamAScore:    3,
		TeamBScore:    1,
		Rules:         host.Rules,
	}

	challenges := &fakeChallenges{
		host:   host,
		mirror: mirror,
		recorder: map[uuid.UUID]bool{
			hostOwner:    true,
			mirrorPlayer: false,
		},
	}
	ledger := &fakeLedger{
		goals: []models.GoalRecord{
			{ID: uuid.New(), MatchEventID: host.ID, Quarter: 1, ScoringTeam: models.TeamSideA},
			{ID: uuid.New(), MatchEventID: host.ID, Quarter: 2, ScoringTeam: models.TeamSideB},
		},
	}
	roster := &fakeRosterReader{
		roles: map[uuid.UUID]map[uuid.UUID]models.TeamRole{
			hostTeamID:   {hostOwner: models.TeamRoleOwner},
			mirrorTeamID: {mirrorPlayer: models.TeamRolePlayer},
		},
		rosters: map[uuid.UUID][]models.RosterEntry{
			host.ID:   {{MatchEventID: host.ID, UserID: hostOwner, DisplayName: "Ana", Status: models.AttendanceCheckedIn}},
			mirror.ID: {{MatchEventID: mirror.ID, UserID: mirrorPlayer, DisplayName: "Noah", Status: models.AttendanceCheckedIn}},
		},
		teams: map[uuid.UUID]*models.Team{
			hostTeamID:   {ID: hostTeamID, Name: "Northside Rovers"},
			mirrorTeamID: {ID: mirrorTeamID, Name: "Harbour Athletic"},
		},
	}

	clk := clockwork.NewFakeClockAt(started.Add(30 * time.Second))
	return &sessionFixture{
		provider:     NewProvider(challenges, ledger, roster, clk),
		token:        token,
		host:         host,
		mirror:       mirror,
		hostOwner:    hostOwner,
		mirrorPlayer: mirrorPlayer,
		challenges:   challenges,
	}
}

func TestSnapshot_HostViewerReadsStraight(t *testing.T) {
	f := newSessionFixture(t)

	snap, err := f.provider.Snapshot(context.Background(), f.token, f.hostOwner)
	require.NoError(t, err)

	assert.Equal(t, f.host.ID, snap.MatchEventID)
	assert.Equal(t, SnapshotScore{TeamA: 3, TeamB: 1}, snap.Score)
	assert.Equal(t, "Northside Rovers", snap.TeamAName)
	assert.Equal(t, "Harbour Athletic", snap.TeamBName)
	require.Len(t, snap.Goals, 2)
	assert.Equal(t, models.TeamSideA, snap.Goals[0].ScoringTeam)
	assert.Equal(t, "Ana", snap.RosterTeamA[0].DisplayName)
}

func TestSnapshot_OpponentViewerSeesEverySideFieldFlippedOnce(t *testing.T) {
	f := newSessionFixture(t)

	snap, err := f.provider.Snapshot(context.Background(), f.token, f.mirrorPlayer)
	require.NoError(t, err)

	assert.Equal(t, f.mirror.ID, snap.MatchEventID, "opponent members enter through the mirrored record")
	assert.Equal(t, SnapshotScore{TeamA: 1, TeamB: 3}, snap.Score)
	assert.Equal(t, "Harbour Athletic", snap.TeamAName)
	assert.Equal(t, "Northside Rovers", snap.TeamBName)
	require.Len(t, snap.Goals, 2)
	assert.Equal(t, models.TeamSideB, snap.Goals[0].ScoringTeam)
	assert.Equal(t, models.TeamSideA, snap.Goals[1].ScoringTeam)
	assert.Equal(t, "Noah", snap.RosterTeamA[0].DisplayName)
	assert.Equal(t, "Ana", snap.RosterTeamB[0].DisplayName)
}

func TestSnapshot_BothPerspectivesDescribeTheSameMatch(t *testing.T) {
	f := newSessionFixture(t)

	hostView, err := f.provider.Snapshot(context.Background(), f.token, f.hostOwner)
	require.NoError(t, err)
	oppView, err := f.provider.Snapshot(context.Background(), f.token, f.mirrorPlayer)
	require.NoError(t, err)

	assert.Equal(t, hostView.Score.TeamA, oppView.Score.TeamB)
	assert.Equal(t, hostView.Score.TeamB, oppView.Score.TeamA)
	assert.Equal(t, hostView.HostEventID, oppView.HostEventID)
	assert.Equal(t, hostView.Clock, oppView.Clock, "the clock is side-neutral and never flips")
}

func TestSnapshot_ClockDerivedFromStoredState(t *testing.T) {
	f := newSessionFixture(t)

	snap, err := f.provider.Snapshot(context.Background(), f.token, uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Clock.TimerPhase)
	assert.Equal(t, 7, snap.Clock.PhaseCount)
	assert.Equal(t, "Q1", snap.Clock.PhaseLabel)
	assert.Equal(t, 1, snap.Clock.Quarter)
	assert.True(t, snap.Clock.TimerRunning)
	assert.Equal(t, 30, snap.Clock.ElapsedSec)
	assert.Equal(t, 690, snap.Clock.RemainingSec)
}

func TestSnapshot_AnonymousViewerCannotRecord(t *testing.T) {
	f := newSessionFixture(t)

	snap, err := f.provider.Snapshot(context.Background(), f.token, uuid.Nil)
	require.NoError(t, err)

	assert.False(t, snap.CanRecord)
	assert.False(t, snap.CanEnd)
	assert.Equal(t, f.host.ID, snap.MatchEventID, "anonymous viewers read the host record")
}

func TestSnapshot_RecorderCapabilitiesDerivedServerSide(t *testing.T) {
	f := newSessionFixture(t)

	owner, err := f.provider.Snapshot(context.Background(), f.token, f.hostOwner)
	require.NoError(t, err)
	assert.True(t, owner.CanRecord)
	assert.True(t, owner.CanEnd, "team owners may end the match")

	player, err := f.provider.Snapshot(context.Background(), f.token, f.mirrorPlayer)
	require.NoError(t, err)
	assert.False(t, player.CanRecord)
}
