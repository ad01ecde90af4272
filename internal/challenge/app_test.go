package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamvine/matchday/internal/apperr"
	"github.com/teamvine/matchday/internal/matchevent"
	"github.com/teamvine/matchday/internal/models"
)

// fakeEventRepo keeps match events in memory with the same lookup semantics
// as the Postgres repository.
type fakeEventRepo struct {
	events map[uuid.UUID]*models.MatchEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[uuid.UUID]*models.MatchEvent{}}
}

func (f *fakeEventRepo) CreateMatchEvent(_ context.Context, req matchevent.CreateMatchEventRequest) (*models.MatchEvent, error) {
	e := &models.MatchEvent{
		ID:               req.ID,
		TeamID:           req.TeamID,
		ScheduledAt:      req.ScheduledAt,
		Location:         req.Location,
		MatchStatus:      req.MatchStatus,
		OpponentTeamID:   req.OpponentTeamID,
		OpponentTeamName: req.OpponentTeamName,
		LinkedEventID:    req.LinkedEventID,
		MinimumPlayers:   req.MinimumPlayers,
		IsFriendly:       req.IsFriendly,
		Rules:            req.Rules,
	}
	f.events[e.ID] = e
	return copyEvent(e), nil
}

func (f *fakeEventRepo) GetMatchEvent(_ context.Context, id uuid.UUID) (*models.MatchEvent, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, matchevent.ErrNotFound
	}
	return copyEvent(e), nil
}

func (f *fakeEventRepo) GetByChallengeToken(_ context.Context, token uuid.UUID) (*models.MatchEvent, error) {
	for _, e := range f.events {
		if e.ChallengeToken != nil && *e.ChallengeToken == token {
			return copyEvent(e), nil
		}
	}
	return nil, matchevent.ErrNotFound
}

func (f *fakeEventRepo) GetMirror(_ context.Context, hostEventID uuid.UUID) (*models.MatchEvent, error) {
	for _, e := range f.events {
		if e.LinkedEventID != nil && *e.LinkedEventID == hostEventID {
			return copyEvent(e), nil
		}
	}
	return nil, matchevent.ErrNotFound
}

func (f *fakeEventRepo) SetChallenge(_ context.Context, id uuid.UUID, token uuid.UUID, expiresAt time.Time) error {
	e := f.events[id]
	e.MatchStatus = models.MatchStatusChallengeSent
	e.ChallengeToken = &token
	e.ChallengeExpiresAt = &expiresAt
	e.RejectedReason = nil
	e.IsFriendly = true
	return nil
}

func (f *fakeEventRepo) ClearChallenge(_ context.Context, id uuid.UUID, reason *string) error {
	e := f.events[id]
	e.MatchStatus = models.MatchStatusDraft
	e.ChallengeToken = nil
	e.ChallengeExpiresAt = nil
	e.OpponentTeamID = nil
	e.OpponentTeamName = nil
	e.RejectedReason = reason
	return nil
}

func (f *fakeEventRepo) SetOpponent(_ context.Context, id uuid.UUID, opponentTeamID uuid.UUID, opponentTeamName string) error {
	e := f.events[id]
	e.MatchStatus = models.MatchStatusConfirmed
	e.OpponentTeamID = &opponentTeamID
	e.OpponentTeamName = &opponentTeamName
	return nil
}

func (f *fakeEventRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.MatchStatus) error {
	f.events[id].MatchStatus = status
	return nil
}

func (f *fakeEventRepo) UpdateClockState(_ context.Context, id uuid.UUID, state models.ClockState) error {
	f.events[id].Clock = state
	return nil
}

func copyEvent(e *models.MatchEvent) *models.MatchEvent {
	c := *e
	return &c
}

type fakeRoster struct {
	confirmed map[uuid.UUID]int
	roles     map[uuid.UUID]map[uuid.UUID]models.TeamRole
	teams     map[uuid.UUID]*models.Team
}

func (f *fakeRoster) CountConfirmed(_ context.Context, id uuid.UUID) (int, error) {
	return f.confirmed[id], nil
}

func (f *fakeRoster) GetTeamRole(_ context.Context, teamID, userID uuid.UUID) (models.TeamRole, error) {
	return f.roles[teamID][userID], nil
}

func (f *fakeRoster) GetTeam(_ context.Context, teamID uuid.UUID) (*models.Team, error) {
	return f.teams[teamID], nil
}

type recordedEvent struct {
	eventType string
	matchID   uuid.UUID
}

type fakeOutbox struct {
	inserted []recordedEvent
}

func (f *fakeOutbox) Insert(_ context.Context, eventType string, matchEventID uuid.UUID, _ any) error {
	f.inserted = append(f.inserted, recordedEvent{eventType, matchEventID})
	return nil
}

type fixture struct {
	app       *App
	repo      *fakeEventRepo
	roster    *fakeRoster
	outbox    *fakeOutbox
	clk       *clockwork.FakeClock
	hostTeam  uuid.UUID
	awayTeam  uuid.UUID
	hostAdmin uuid.UUID
	awayAdmin uuid.UUID
	host      *models.MatchEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clockwork.NewFakeClock()
	repo := newFakeEventRepo()

	hostTeam := uuid.New()
	awayTeam := uuid.New()
	hostAdmin := uuid.New()
	awayAdmin := uuid.New()

	roster := &fakeRoster{
		confirmed: map[uuid.UUID]int{},
		roles: map[uuid.UUID]map[uuid.UUID]models.TeamRole{
			hostTeam: {hostAdmin: models.TeamRoleOwner},
			awayTeam: {awayAdmin: models.TeamRoleAdmin},
		},
		teams: map[uuid.UUID]*models.Team{
			hostTeam: {ID: hostTeam, Name: "Northside Rovers"},
			awayTeam: {ID: awayTeam, Name: "Harbour Athletic"},
		},
	}
	outbox := &fakeOutbox{}
	app := NewApp(repo, roster, outbox, clk, 0)

	host, err := repo.CreateMatchEvent(context.Background(), matchevent.CreateMatchEventRequest{
		ID:             uuid.New(),
		TeamID:         hostTeam,
		ScheduledAt:    clk.Now(),
		Location:       "Greenfield Park",
		MatchStatus:    models.MatchStatusDraft,
		MinimumPlayers: 10,
		Rules:          models.DefaultMatchRules(),
	})
	require.NoError(t, err)

	return &fixture{
		app: app, repo: repo, roster: roster, outbox: outbox, clk: clk,
		hostTeam: hostTeam, awayTeam: awayTeam,
		hostAdmin: hostAdmin, awayAdmin: awayAdmin,
		host: host,
	}
}

func (fx *fixture) sendChallenge(t *testing.T) uuid.UUID {
	t.Helper()
	host, err := fx.app.Send(context.Background(), fx.host.ID, fx.hostAdmin)
	require.NoError(t, err)
	require.NotNil(t, host.ChallengeToken)
	return *host.ChallengeToken
}

func TestSend_IssuesTokenWithExpiry(t *testing.T) {
	fx := newFixture(t)

	host, err := fx.app.Send(context.Background(), fx.host.ID, fx.hostAdmin)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusChallengeSent, host.MatchStatus)
	assert.NotNil(t, host.ChallengeToken)
	require.NotNil(t, host.ChallengeExpiresAt)
	assert.True(t, host.ChallengeExpiresAt.Equal(fx.clk.Now().Add(DefaultTokenTTL)))
	assert.True(t, host.IsFriendly)
	require.Len(t, fx.outbox.inserted, 1)
	assert.Equal(t, EventChallengeSent, fx.outbox.inserted[0].eventType)
}

func TestSend_RequiresTeamAdmin(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.app.Send(context.Background(), fx.host.ID, uuid.New())
	assert.Equal(t, apperr.CodeNotRecorder, apperr.CodeOf(err))
}

func TestAccept_SameTeamRejectedRegardlessOfPlayers(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)
	fx.roster.confirmed[fx.host.ID] = 20

	_, err := fx.app.Accept(context.Background(), token, fx.hostTeam, fx.hostAdmin)
	assert.Equal(t, apperr.CodeSameTeam, apperr.CodeOf(err))
}

func TestAccept_InsufficientPlayersThenSuccessAtThreshold(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)

	fx.roster.confirmed[fx.host.ID] = 9
	_, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	assert.Equal(t, apperr.CodeInsufficientPlayers, apperr.CodeOf(err))

	// A tenth player confirms; the identical request now succeeds.
	fx.roster.confirmed[fx.host.ID] = 10
	mirror, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, mirror.ID)
}

func TestAccept_CreatesLinkedMirror(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)
	fx.roster.confirmed[fx.host.ID] = 10

	mirror, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	require.NoError(t, err)

	require.NotNil(t, mirror.LinkedEventID)
	assert.Equal(t, fx.host.ID, *mirror.LinkedEventID)
	assert.Equal(t, fx.awayTeam, mirror.TeamID)
	assert.Equal(t, models.MatchStatusConfirmed, mirror.MatchStatus)
	require.NotNil(t, mirror.OpponentTeamID)
	assert.Equal(t, fx.hostTeam, *mirror.OpponentTeamID)
	assert.Nil(t, mirror.ChallengeToken, "exactly one record of a pair owns the token")

	host, err := fx.repo.GetMatchEvent(context.Background(), fx.host.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusConfirmed, host.MatchStatus)
	require.NotNil(t, host.OpponentTeamID)
	assert.Equal(t, fx.awayTeam, *host.OpponentTeamID)
	assert.Nil(t, host.LinkedEventID, "the host record never links forward")
}

func TestAccept_SecondAcceptAlreadyMatched(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)
	fx.roster.confirmed[fx.host.ID] = 10

	_, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	require.NoError(t, err)

	_, err = fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	assert.Equal(t, apperr.CodeAlreadyMatched, apperr.CodeOf(err))
}

func TestAccept_ExpiredTokenHasDistinctCode(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)
	fx.roster.confirmed[fx.host.ID] = 10

	fx.clk.Advance(DefaultTokenTTL + time.Minute)

	_, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	assert.Equal(t, apperr.CodeChallengeExpired, apperr.CodeOf(err))
}

func TestReject_ClearsChallengeAndIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)

	reason := "we already play that weekend"
	require.NoError(t, fx.app.Reject(context.Background(), token, &reason))

	host, err := fx.repo.GetMatchEvent(context.Background(), fx.host.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusDraft, host.MatchStatus)
	assert.Nil(t, host.ChallengeToken)
	assert.Nil(t, host.OpponentTeamID)
	require.NotNil(t, host.RejectedReason)
	assert.Equal(t, reason, *host.RejectedReason)

	// Rejecting the already-cleared token again is a no-op.
	require.NoError(t, fx.app.Reject(context.Background(), token, nil))
}

func TestReject_AfterAcceptFails(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)
	fx.roster.confirmed[fx.host.ID] = 10
	_, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	require.NoError(t, err)

	err = fx.app.Reject(context.Background(), token, nil)
	assert.Equal(t, apperr.CodeAlreadyMatched, apperr.CodeOf(err))
}

func TestStart_OnlySameDay(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)
	fx.roster.confirmed[fx.host.ID] = 10
	_, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	require.NoError(t, err)

	fx.clk.Advance(48 * time.Hour)
	_, err = fx.app.Start(context.Background(), token, fx.hostAdmin)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestStart_SameDayWindowIsUTC(t *testing.T) {
	// 23:30 at UTC-3 is 02:30 UTC the next day; the window follows UTC.
	scheduled := time.Date(2025, 5, 10, 23, 30, 0, 0, time.FixedZone("UTC-3", -3*60*60))

	assert.True(t, sameDay(time.Date(2025, 5, 11, 1, 0, 0, 0, time.UTC), scheduled))
	assert.False(t, sameDay(time.Date(2025, 5, 10, 22, 0, 0, 0, time.UTC), scheduled))
}

func TestStart_EitherSideMayStart(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)
	fx.roster.confirmed[fx.host.ID] = 10
	_, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	require.NoError(t, err)

	host, err := fx.app.Start(context.Background(), token, fx.awayAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, host.MatchStatus)

	mirror, err := fx.repo.GetMirror(context.Background(), fx.host.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, mirror.MatchStatus)
}

func TestStart_RejectsNonRecorder(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)
	fx.roster.confirmed[fx.host.ID] = 10
	_, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	require.NoError(t, err)

	_, err = fx.app.Start(context.Background(), token, uuid.New())
	assert.Equal(t, apperr.CodeNotRecorder, apperr.CodeOf(err))
}

func TestEnd_FreezesClockAndCompletesBothRecords(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)
	fx.roster.confirmed[fx.host.ID] = 10
	_, err := fx.app.Accept(context.Background(), token, fx.awayTeam, fx.awayAdmin)
	require.NoError(t, err)
	_, err = fx.app.Start(context.Background(), token, fx.hostAdmin)
	require.NoError(t, err)

	// Simulate a running clock mid-quarter.
	now := fx.clk.Now()
	require.NoError(t, fx.repo.UpdateClockState(context.Background(), fx.host.ID, models.ClockState{
		TimerPhase:     1,
		TimerRunning:   true,
		TimerStartedAt: &now,
	}))
	fx.clk.Advance(90 * time.Second)

	host, err := fx.app.End(context.Background(), token, fx.hostAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, host.MatchStatus)
	assert.False(t, host.Clock.TimerRunning)
	assert.Equal(t, 90, host.Clock.TimerElapsedSec)

	mirror, err := fx.repo.GetMirror(context.Background(), fx.host.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, mirror.MatchStatus)
}

func TestSetStatus_RejectsOtherTransitions(t *testing.T) {
	fx := newFixture(t)
	token := fx.sendChallenge(t)

	_, err := fx.app.SetStatus(context.Background(), token, models.MatchStatusDraft, fx.hostAdmin)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}
