// Package ledger holds the append-only record collections of a live match.
// Records are immutable once created; corrections are new, compensating
// entries. Two recorders appending concurrently need no locking because every
// record is keyed by its own identity.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/teamvine/matchday/internal/apperr"
	"github.com/teamvine/matchday/internal/matchevent"
	"github.com/teamvine/matchday/internal/models"
)

// LedgerRepository defines what the app layer needs from the ledger store.
type LedgerRepository interface {
	InsertGoal(ctx context.Context, g models.GoalRecord) (*models.GoalRecord, error)
	InsertCard(ctx context.Context, c models.CardRecord) (*models.CardRecord, error)
	InsertSubstitution(ctx context.Context, s models.SubstitutionRecord) (*models.SubstitutionRecord, error)
	ListGoals(ctx context.Context, matchEventID uuid.UUID) ([]models.GoalRecord, error)
	ListCards(ctx context.Context, matchEventID uuid.UUID) ([]models.CardRecord, error)
	ListSubstitutions(ctx context.Context, matchEventID uuid.UUID) ([]models.SubstitutionRecord, error)
}

// MatchEventRepository is the slice of the fixture store the ledger needs for
// validation and score mirroring.
type MatchEventRepository interface {
	GetMatchEvent(ctx context.Context, id uuid.UUID) (*models.MatchEvent, error)
	GetMirror(ctx context.Context, hostEventID uuid.UUID) (*models.MatchEvent, error)
	UpdateScores(ctx context.Context, id uuid.UUID, teamA, teamB int) error
}

// RosterRepository answers whether a player is on an event's checked-in roster.
type RosterRepository interface {
	IsCheckedIn(ctx context.Context, matchEventID, userID uuid.UUID) (bool, error)
}

// Outbox receives notification events. Dispatch is best-effort and never
// fails the append.
type Outbox interface {
	Insert(ctx context.Context, eventType string, matchEventID uuid.UUID, payload any) error
}

// EventGoalScored is emitted to the outbox after every goal append.
const EventGoalScored = "goal.scored"

// App validates and appends ledger records, expressed in the host record's
// perspective. Side flipping for opponent readers happens in the view layer.
type App struct {
	repo   LedgerRepository
	events MatchEventRepository
	roster RosterRepository
	outbox Outbox
}

// NewApp creates a ledger App. outbox may be nil, disabling notifications.
func NewApp(repo LedgerRepository, events MatchEventRepository, roster RosterRepository, outbox Outbox) *App {
	return &App{repo: repo, events: events, roster: roster, outbox: outbox}
}

// AppendGoalRequest carries a goal in host perspective. Quarter is passed
// explicitly by the recorder rather than inferred from the clock so the
// record reflects what the recorder intends to log.
type AppendGoalRequest struct {
	Quarter     int             `json:"quarter"`
	Minute      *int            `json:"minute,omitempty"`
	ScoringTeam models.TeamSide `json:"scoring_team"`
	ScorerID    *uuid.UUID      `json:"scorer_id,omitempty"`
	AssistID    *uuid.UUID      `json:"assist_id,omitempty"`
	IsOwnGoal   bool            `json:"is_own_goal"`
}

// AppendGoal validates, appends, and recomputes the running score on both
// linked records.
func (a *App) AppendGoal(ctx context.Context, hostEventID uuid.UUID, req AppendGoalRequest) (*models.GoalRecord, error) {
	host, err := a.validateAppend(ctx, hostEventID, req.Quarter, req.ScoringTeam)
	if err != nil {
		return nil, err
	}
	if req.IsOwnGoal && !host.Rules.AllowOwnGoals {
		return nil, apperr.New(apperr.CodeValidation, "own goals are disabled for this match")
	}
	for _, playerID := range []*uuid.UUID{req.ScorerID, req.AssistID} {
		if err := a.validatePlayer(ctx, host, req.ScoringTeam, playerID); err != nil {
			return nil, err
		}
	}

	record, err := a.repo.InsertGoal(ctx, models.GoalRecord{
		ID:           uuid.New(),
		MatchEventID: hostEventID,
		Quarter:      req.Quarter,
		Minute:       req.Minute,
		ScoringTeam:  req.ScoringTeam,
		ScorerID:     req.ScorerID,
		AssistID:     req.AssistID,
		IsOwnGoal:    req.IsOwnGoal,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append goal: %w", err)
	}

	if err := a.recomputeScore(ctx, host); err != nil {
		return nil, err
	}

	if a.outbox != nil {
		if err := a.outbox.Insert(ctx, EventGoalScored, hostEventID, map[string]any{
			"goal_id":       record.ID,
			"quarter":       record.Quarter,
			"credited_side": record.CreditedSide(),
		}); err != nil {
			log.Error().Err(err).Str("match_event_id", hostEventID.String()).Msg("failed to enqueue goal notification")
		}
	}

	log.Info().
		Str("match_event_id", hostEventID.String()).
		Int("quarter", req.Quarter).
		Str("credited_side", string(record.CreditedSide())).
		Bool("own_goal", record.IsOwnGoal).
		Msg("goal recorded")
	return record, nil
}

// AppendCardRequest carries a card in host perspective.
type AppendCardRequest struct {
	Quarter  int             `json:"quarter"`
	Minute   *int            `json:"minute,omitempty"`
	TeamSide models.TeamSide `json:"team_side"`
	PlayerID uuid.UUID       `json:"player_id"`
	CardType models.CardType `json:"card_type"`
}

// AppendCard validates and appends a disciplinary card.
func (a *App) AppendCard(ctx context.Context, hostEventID uuid.UUID, req AppendCardRequest) (*models.CardRecord, error) {
	host, err := a.validateAppend(ctx, hostEventID, req.Quarter, req.TeamSide)
	if err != nil {
		return nil, err
	}
	if !req.CardType.Valid() {
		return nil, apperr.New(apperr.CodeValidation, "unknown card type %q", req.CardType)
	}
	if !host.Rules.CardsEnabled {
		return nil, apperr.New(apperr.CodeValidation, "cards are disabled for this match")
	}
	if req.PlayerID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, "player id is required")
	}
	if err := a.validatePlayer(ctx, host, req.TeamSide, &req.PlayerID); err != nil {
		return nil, err
	}

	record, err := a.repo.InsertCard(ctx, models.CardRecord{
		ID:           uuid.New(),
		MatchEventID: hostEventID,
		Quarter:      req.Quarter,
		Minute:       req.Minute,
		TeamSide:     req.TeamSide,
		PlayerID:     req.PlayerID,
		CardType:     req.CardType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append card: %w", err)
	}
	return record, nil
}

// AppendSubstitutionRequest carries a substitution in host perspective.
type AppendSubstitutionRequest struct {
	Quarter     int             `json:"quarter"`
	Minute      *int            `json:"minute,omitempty"`
	TeamSide    models.TeamSide `json:"team_side"`
	PlayerOutID uuid.UUID       `json:"player_out_id"`
	PlayerInID  uuid.UUID       `json:"player_in_id"`
}

// AppendSubstitution validates and appends a substitution.
func (a *App) AppendSubstitution(ctx context.Context, hostEventID uuid.UUID, req AppendSubstitutionRequest) (*models.SubstitutionRecord, error) {
	host, err := a.validateAppend(ctx, hostEventID, req.Quarter, req.TeamSide)
	if err != nil {
		return nil, err
	}
	if req.PlayerOutID == uuid.Nil || req.PlayerInID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, "both players of a substitution are required")
	}
	if req.PlayerOutID == req.PlayerInID {
		return nil, apperr.New(apperr.CodeValidation, "a player cannot be substituted for themselves")
	}
	for _, playerID := range []uuid.UUID{req.PlayerOutID, req.PlayerInID} {
		if err := a.validatePlayer(ctx, host, req.TeamSide, &playerID); err != nil {
			return nil, err
		}
	}

	record, err := a.repo.InsertSubstitution(ctx, models.SubstitutionRecord{
		ID:           uuid.New(),
		MatchEventID: hostEventID,
		Quarter:      req.Quarter,
		Minute:       req.Minute,
		TeamSide:     req.TeamSide,
		PlayerOutID:  req.PlayerOutID,
		PlayerInID:   req.PlayerInID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append substitution: %w", err)
	}
	return record, nil
}

// Entries returns all ledger collections of a match in display order.
func (a *App) Entries(ctx context.Context, hostEventID uuid.UUID) ([]models.GoalRecord, []models.CardRecord, []models.SubstitutionRecord, error) {
	goals, err := a.repo.ListGoals(ctx, hostEventID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list goals: %w", err)
	}
	cards, err := a.repo.ListCards(ctx, hostEventID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list cards: %w", err)
	}
	subs, err := a.repo.ListSubstitutions(ctx, hostEventID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list substitutions: %w", err)
	}
	return goals, cards, subs, nil
}

// Score tallies goals in host perspective. Own goals credit the opposing side.
func Score(goals []models.GoalRecord) (teamA, teamB int) {
	for _, g := range goals {
		if g.CreditedSide() == models.TeamSideA {
			teamA++
		} else {
			teamB++
		}
	}
	return teamA, teamB
}

func (a *App) validateAppend(ctx context.Context, hostEventID uuid.UUID, quarter int, side models.TeamSide) (*models.MatchEvent, error) {
	host, err := a.events.GetMatchEvent(ctx, hostEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match event: %w", err)
	}
	if host.MatchStatus != models.MatchStatusInProgress {
		return nil, apperr.New(apperr.CodeInvalidStatus, "match %s is %s, the ledger only accepts records while IN_PROGRESS", host.ID, host.MatchStatus)
	}
	if !side.Valid() {
		return nil, apperr.New(apperr.CodeValidation, "unknown team side %q", side)
	}
	if quarter < 1 || quarter > host.Rules.QuarterCount {
		return nil, apperr.New(apperr.CodeValidation, "quarter %d is outside [1, %d]", quarter, host.Rules.QuarterCount)
	}
	return host, nil
}

// validatePlayer checks a referenced player against the checked-in roster of
// the record owning that side: TEAM_A players check in on the host record,
// TEAM_B players on the mirrored record.
func (a *App) validatePlayer(ctx context.Context, host *models.MatchEvent, side models.TeamSide, playerID *uuid.UUID) error {
	if playerID == nil {
		return nil
	}
	eventID := host.ID
	if side == models.TeamSideB {
		mirror, err := a.events.GetMirror(ctx, host.ID)
		if err != nil {
			return fmt.Errorf("failed to resolve opponent record: %w", err)
		}
		eventID = mirror.ID
	}
	ok, err := a.roster.IsCheckedIn(ctx, eventID, *playerID)
	if err != nil {
		return fmt.Errorf("failed to check roster: %w", err)
	}
	if !ok {
		return apperr.New(apperr.CodeValidation, "player %s is not on the checked-in roster for side %s", playerID, side)
	}
	return nil
}

func (a *App) recomputeScore(ctx context.Context, host *models.MatchEvent) error {
	goals, err := a.repo.ListGoals(ctx, host.ID)
	if err != nil {
		return fmt.Errorf("failed to list goals for score recompute: %w", err)
	}
	teamA, teamB := Score(goals)

	if err := a.events.UpdateScores(ctx, host.ID, teamA, teamB); err != nil {
		return fmt.Errorf("failed to update host score: %w", err)
	}
	// The mirrored record stores the identical unflipped pair; readers flip
	// at render time.
	mirror, err := a.events.GetMirror(ctx, host.ID)
	if errors.Is(err, matchevent.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve mirrored record: %w", err)
	}
	if err := a.events.UpdateScores(ctx, mirror.ID, teamA, teamB); err != nil {
		return fmt.Errorf("failed to update mirrored score: %w", err)
	}
	return nil
}
