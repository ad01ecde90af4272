// Package challenge implements the token protocol that matches two teams'
// event records into one synchronized match:
//
//	DRAFT → CHALLENGE_SENT → CONFIRMED → IN_PROGRESS → COMPLETED
//
// Rejection is not a persisted status; it returns the host record to an
// unmatched DRAFT state by clearing the token and opponent fields.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/teamvine/matchday/internal/apperr"
	"github.com/teamvine/matchday/internal/clock"
	"github.com/teamvine/matchday/internal/matchevent"
	"github.com/teamvine/matchday/internal/models"
)

// DefaultTokenTTL is how long an issued challenge stays acceptable.
const DefaultTokenTTL = 72 * time.Hour

// EventRepository defines what the protocol needs from the fixture store.
type EventRepository interface {
	CreateMatchEvent(ctx context.Context, req matchevent.CreateMatchEventRequest) (*models.MatchEvent, error)
	GetMatchEvent(ctx context.Context, id uuid.UUID) (*models.MatchEvent, error)
	GetByChallengeToken(ctx context.Context, token uuid.UUID) (*models.MatchEvent, error)
	GetMirror(ctx context.Context, hostEventID uuid.UUID) (*models.MatchEvent, error)
	SetChallenge(ctx context.Context, id uuid.UUID, token uuid.UUID, expiresAt time.Time) error
	ClearChallenge(ctx context.Context, id uuid.UUID, reason *string) error
	SetOpponent(ctx context.Context, id uuid.UUID, opponentTeamID uuid.UUID, opponentTeamName string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus) error
	UpdateClockState(ctx context.Context, id uuid.UUID, state models.ClockState) error
}

// RosterRepository supplies membership and attendance reads for the guards.
type RosterRepository interface {
	CountConfirmed(ctx context.Context, matchEventID uuid.UUID) (int, error)
	GetTeamRole(ctx context.Context, teamID, userID uuid.UUID) (models.TeamRole, error)
	GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
}

// Outbox receives notification events. Dispatch is best-effort: the app logs
// insert failures and never lets them fail the primary transition.
type Outbox interface {
	Insert(ctx context.Context, eventType string, matchEventID uuid.UUID, payload any) error
}

// Outbox event types emitted by the protocol.
const (
	EventChallengeSent     = "challenge.sent"
	EventChallengeAccepted = "challenge.accepted"
	EventChallengeRejected = "challenge.rejected"
	EventMatchStarted      = "match.started"
	EventMatchCompleted    = "match.completed"
)

// App drives the challenge lifecycle state machine.
type App struct {
	events   EventRepository
	roster   RosterRepository
	outbox   Outbox
	clock    clockwork.Clock
	tokenTTL time.Duration
}

// NewApp creates a challenge App. tokenTTL <= 0 falls back to DefaultTokenTTL.
func NewApp(events EventRepository, roster RosterRepository, outbox Outbox, clk clockwork.Clock, tokenTTL time.Duration) *App {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &App{events: events, roster: roster, outbox: outbox, clock: clk, tokenTTL: tokenTTL}
}

// Send issues a challenge token on a DRAFT fixture, marking it as a friendly
// match. Only an owner or admin of the hosting team may send.
func (a *App) Send(ctx context.Context, hostEventID, actingUserID uuid.UUID) (*models.MatchEvent, error) {
	host, err := a.events.GetMatchEvent(ctx, hostEventID)
	if err != nil {
		return nil, a.mapNotFound(err, "fixture %s", hostEventID)
	}
	if err := a.requireTeamAdmin(ctx, host.TeamID, actingUserID); err != nil {
		return nil, err
	}
	if host.MatchStatus != models.MatchStatusDraft {
		return nil, apperr.New(apperr.CodeInvalidStatus, "fixture is %s, only DRAFT fixtures can send a challenge", host.MatchStatus)
	}

	token := uuid.New()
	expiresAt := a.clock.Now().Add(a.tokenTTL)
	if err := a.events.SetChallenge(ctx, host.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to issue challenge: %w", err)
	}

	a.emit(ctx, EventChallengeSent, host.ID, map[string]any{
		"team_id":    host.TeamID,
		"expires_at": expiresAt,
	})
	log.Info().
		Str("match_event_id", host.ID.String()).
		Time("expires_at", expiresAt).
		Msg("challenge sent")

	return a.events.GetMatchEvent(ctx, host.ID)
}

// Accept matches the acting team against the host event. On success it
// creates the mirrored record owned by the accepting team and returns it.
//
// Guards, each with its own stable code: SAME_TEAM, ALREADY_MATCHED,
// INSUFFICIENT_PLAYERS, CHALLENGE_EXPIRED.
func (a *App) Accept(ctx context.Context, token uuid.UUID, actingTeamID, actingUserID uuid.UUID) (*models.MatchEvent, error) {
	host, err := a.events.GetByChallengeToken(ctx, token)
	if err != nil {
		return nil, a.mapNotFound(err, "challenge %s", token)
	}
	if err := a.requireTeamAdmin(ctx, actingTeamID, actingUserID); err != nil {
		return nil, err
	}

	if actingTeamID == host.TeamID {
		return nil, apperr.New(apperr.CodeSameTeam, "a team cannot accept its own challenge")
	}
	if host.MatchStatus != models.MatchStatusChallengeSent {
		return nil, apperr.New(apperr.CodeAlreadyMatched, "challenge is no longer open, fixture is %s", host.MatchStatus)
	}
	if host.ChallengeExpired(a.clock.Now()) {
		return nil, apperr.New(apperr.CodeChallengeExpired, "challenge expired at %s", host.ChallengeExpiresAt.Format(time.RFC3339))
	}

	confirmed, err := a.roster.CountConfirmed(ctx, host.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count confirmed attendance: %w", err)
	}
	if confirmed < host.MinimumPlayers {
		return nil, apperr.New(apperr.CodeInsufficientPlayers,
			"host has %d confirmed players, %d required", confirmed, host.MinimumPlayers)
	}

	hostTeam, err := a.roster.GetTeam(ctx, host.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load host team: %w", err)
	}
	actingTeam, err := a.roster.GetTeam(ctx, actingTeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accepting team: %w", err)
	}

	if err := a.events.SetOpponent(ctx, host.ID, actingTeamID, actingTeam.Name); err != nil {
		return nil, fmt.Errorf("failed to confirm host event: %w", err)
	}

	hostID := host.ID
	hostTeamID := host.TeamID
	hostTeamName := hostTeam.Name
	mirror, err := a.events.CreateMatchEvent(ctx, matchevent.CreateMatchEventRequest{
		ID:               uuid.New(),
		TeamID:           actingTeamID,
		ScheduledAt:      host.ScheduledAt,
		Location:         host.Location,
		OpponentTeamID:   &hostTeamID,
		OpponentTeamName: &hostTeamName,
		LinkedEventID:    &hostID,
		MatchStatus:      models.MatchStatusConfirmed,
		MinimumPlayers:   host.MinimumPlayers,
		IsFriendly:       true,
		Rules:            host.Rules,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mirrored event: %w", err)
	}

	a.emit(ctx, EventChallengeAccepted, host.ID, map[string]any{
		"opponent_event_id": mirror.ID,
		"opponent_team_id":  actingTeamID,
	})
	log.Info().
		Str("host_event_id", host.ID.String()).
		Str("opponent_event_id", mirror.ID.String()).
		Str("opponent_team_id", actingTeamID.String()).
		Msg("challenge accepted")

	return mirror, nil
}

// Reject clears the challenge from the host event and records the optional
// reason for host-side display. Rejecting an already-cleared challenge is a
// no-op, not an error.
func (a *App) Reject(ctx context.Context, token uuid.UUID, reason *string) error {
	host, err := a.events.GetByChallengeToken(ctx, token)
	if errors.Is(err, matchevent.ErrNotFound) {
		// Token already cleared by an earlier rejection.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve challenge: %w", err)
	}

	switch host.MatchStatus {
	case models.MatchStatusChallengeSent:
		if err := a.events.ClearChallenge(ctx, host.ID, reason); err != nil {
			return fmt.Errorf("failed to clear challenge: %w", err)
		}
		a.emit(ctx, EventChallengeRejected, host.ID, map[string]any{"reason": reason})
		log.Info().Str("match_event_id", host.ID.String()).Msg("challenge rejected")
		return nil
	case models.MatchStatusDraft:
		return nil
	default:
		return apperr.New(apperr.CodeAlreadyMatched, "fixture is %s and can no longer be rejected", host.MatchStatus)
	}
}

// Start drives CONFIRMED → IN_PROGRESS on both linked records. Permitted only
// on the scheduled day, by a recorder of either side.
func (a *App) Start(ctx context.Context, token uuid.UUID, actingUserID uuid.UUID) (*models.MatchEvent, error) {
	host, mirror, err := a.resolvePair(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := a.requireRecorder(ctx, host, mirror, actingUserID); err != nil {
		return nil, err
	}
	if host.MatchStatus != models.MatchStatusConfirmed {
		return nil, apperr.New(apperr.CodeInvalidStatus, "fixture is %s, only CONFIRMED matches can start", host.MatchStatus)
	}

	now := a.clock.Now()
	if !sameDay(now, host.ScheduledAt) {
		return nil, apperr.New(apperr.CodeValidation, "match is scheduled for %s and can only start that day", host.ScheduledAt.Format("2006-01-02"))
	}

	if err := a.events.UpdateStatus(ctx, host.ID, models.MatchStatusInProgress); err != nil {
		return nil, fmt.Errorf("failed to start host event: %w", err)
	}
	if mirror != nil {
		if err := a.events.UpdateStatus(ctx, mirror.ID, models.MatchStatusInProgress); err != nil {
			return nil, fmt.Errorf("failed to start mirrored event: %w", err)
		}
	}

	a.emit(ctx, EventMatchStarted, host.ID, nil)
	log.Info().Str("match_event_id", host.ID.String()).Msg("match started")
	return a.events.GetMatchEvent(ctx, host.ID)
}

// End drives IN_PROGRESS → COMPLETED on both linked records, freezing the
// clock so scores become final.
func (a *App) End(ctx context.Context, token uuid.UUID, actingUserID uuid.UUID) (*models.MatchEvent, error) {
	host, mirror, err := a.resolvePair(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := a.requireRecorder(ctx, host, mirror, actingUserID); err != nil {
		return nil, err
	}
	if host.MatchStatus != models.MatchStatusInProgress {
		return nil, apperr.New(apperr.CodeInvalidStatus, "fixture is %s, only IN_PROGRESS matches can end", host.MatchStatus)
	}

	// Freeze the clock: fold running time into the stored total.
	frozen := clock.Pause(host.Clock, a.clock.Now())
	if frozen != host.Clock {
		if err := a.events.UpdateClockState(ctx, host.ID, frozen); err != nil {
			return nil, fmt.Errorf("failed to freeze clock: %w", err)
		}
	}

	if err := a.events.UpdateStatus(ctx, host.ID, models.MatchStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to complete host event: %w", err)
	}
	if mirror != nil {
		if err := a.events.UpdateStatus(ctx, mirror.ID, models.MatchStatusCompleted); err != nil {
			return nil, fmt.Errorf("failed to complete mirrored event: %w", err)
		}
	}

	a.emit(ctx, EventMatchCompleted, host.ID, map[string]any{
		"team_a_score": host.TeamAScore,
		"team_b_score": host.TeamBScore,
	})
	log.Info().
		Str("match_event_id", host.ID.String()).
		Int("team_a_score", host.TeamAScore).
		Int("team_b_score", host.TeamBScore).
		Msg("match completed")
	return a.events.GetMatchEvent(ctx, host.ID)
}

// SetStatus dispatches the two externally drivable transitions.
func (a *App) SetStatus(ctx context.Context, token uuid.UUID, status models.MatchStatus, actingUserID uuid.UUID) (*models.MatchEvent, error) {
	switch status {
	case models.MatchStatusInProgress:
		return a.Start(ctx, token, actingUserID)
	case models.MatchStatusCompleted:
		return a.End(ctx, token, actingUserID)
	default:
		return nil, apperr.New(apperr.CodeValidation, "status %s cannot be set directly", status)
	}
}

// IsRecorder reports whether the user may operate the clock and ledger of the
// match: an owner or admin of either linked side.
func (a *App) IsRecorder(ctx context.Context, host, mirror *models.MatchEvent, userID uuid.UUID) (bool, error) {
	role, err := a.roster.GetTeamRole(ctx, host.TeamID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve host team role: %w", err)
	}
	if role.CanRecord() {
		return true, nil
	}
	if mirror != nil {
		role, err = a.roster.GetTeamRole(ctx, mirror.TeamID, userID)
		if err != nil {
			return false, fmt.Errorf("failed to resolve opponent team role: %w", err)
		}
		if role.CanRecord() {
			return true, nil
		}
	}
	return false, nil
}

// ResolvePair returns the host record for a token together with its mirrored
// record, which is nil before acceptance.
func (a *App) ResolvePair(ctx context.Context, token uuid.UUID) (*models.MatchEvent, *models.MatchEvent, error) {
	return a.resolvePair(ctx, token)
}

func (a *App) resolvePair(ctx context.Context, token uuid.UUID) (*models.MatchEvent, *models.MatchEvent, error) {
	host, err := a.events.GetByChallengeToken(ctx, token)
	if err != nil {
		return nil, nil, a.mapNotFound(err, "challenge %s", token)
	}
	mirror, err := a.events.GetMirror(ctx, host.ID)
	if errors.Is(err, matchevent.ErrNotFound) {
		return host, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve mirrored record: %w", err)
	}
	return host, mirror, nil
}

func (a *App) requireTeamAdmin(ctx context.Context, teamID, userID uuid.UUID) error {
	role, err := a.roster.GetTeamRole(ctx, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve team role: %w", err)
	}
	if !role.CanRecord() {
		return apperr.New(apperr.CodeNotRecorder, "user is not an owner or admin of team %s", teamID)
	}
	return nil
}

func (a *App) requireRecorder(ctx context.Context, host, mirror *models.MatchEvent, userID uuid.UUID) error {
	ok, err := a.IsRecorder(ctx, host, mirror, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.CodeNotRecorder, "user may not record for this match")
	}
	return nil
}

// emit writes a notification event to the outbox. Best-effort only.
func (a *App) emit(ctx context.Context, eventType string, matchEventID uuid.UUID, payload any) {
	if a.outbox == nil {
		return
	}
	if err := a.outbox.Insert(ctx, eventType, matchEventID, payload); err != nil {
		log.Error().Err(err).
			Str("event_type", eventType).
			Str("match_event_id", matchEventID.String()).
			Msg("failed to enqueue notification event")
	}
}

func (a *App) mapNotFound(err error, format string, args ...any) error {
	if errors.Is(err, matchevent.ErrNotFound) {
		return apperr.New(apperr.CodeNotFound, format+" not found", args...)
	}
	return fmt.Errorf("lookup failed: %w", err)
}

// sameDay compares calendar dates in UTC, so a scheduled_at stored with an
// offset agrees with the server clock on which day the match falls.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
