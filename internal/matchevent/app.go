package matchevent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/teamvine/matchday/internal/apperr"
	"github.com/teamvine/matchday/internal/models"
)

// MatchEventRepository defines what the app layer needs from the repository.
type MatchEventRepository interface {
	CreateMatchEvent(ctx context.Context, req CreateMatchEventRequest) (*models.MatchEvent, error)
	GetMatchEvent(ctx context.Context, id uuid.UUID) (*models.MatchEvent, error)
	GetMirror(ctx context.Context, hostEventID uuid.UUID) (*models.MatchEvent, error)
	ListTeamEvents(ctx context.Context, teamID uuid.UUID) ([]models.MatchEvent, error)
	UpdateFixture(ctx context.Context, id uuid.UUID, req UpdateFixtureRequest) error
	UpdateRules(ctx context.Context, id uuid.UUID, rules models.MatchRules) error
}

// App handles fixture business logic.
type App struct {
	repo         MatchEventRepository
	defaultRules models.MatchRules
}

// NewApp creates a fixture App. defaultRules fills in fixtures created
// without explicit rules, typically loaded from the rule presets config.
func NewApp(repo MatchEventRepository, defaultRules models.MatchRules) *App {
	return &App{repo: repo, defaultRules: defaultRules}
}

// CreateFixtureRequest is the surface for scheduling a new fixture.
type CreateFixtureRequest struct {
	TeamID           uuid.UUID          `json:"team_id"`
	ScheduledAt      time.Time          `json:"scheduled_at"`
	Location         string             `json:"location"`
	OpponentTeamName *string            `json:"opponent_team_name,omitempty"`
	MinimumPlayers   int                `json:"minimum_players"`
	Rules            *models.MatchRules `json:"rules,omitempty"`
}

// CreateFixture schedules a new DRAFT fixture for a team.
func (a *App) CreateFixture(ctx context.Context, req CreateFixtureRequest) (*models.MatchEvent, error) {
	if req.TeamID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, "team id is required")
	}
	if req.ScheduledAt.IsZero() {
		return nil, apperr.New(apperr.CodeValidation, "scheduled date is required")
	}
	if req.MinimumPlayers < 0 {
		return nil, apperr.New(apperr.CodeValidation, "minimum players must not be negative")
	}

	rules := a.defaultRules
	if req.Rules != nil {
		if err := validateRules(*req.Rules); err != nil {
			return nil, err
		}
		rules = *req.Rules
	}

	event, err := a.repo.CreateMatchEvent(ctx, CreateMatchEventRequest{
		ID:               uuid.New(),
		TeamID:           req.TeamID,
		ScheduledAt:      req.ScheduledAt,
		Location:         req.Location,
		OpponentTeamName: req.OpponentTeamName,
		MatchStatus:      models.MatchStatusDraft,
		MinimumPlayers:   req.MinimumPlayers,
		Rules:            rules,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fixture: %w", err)
	}

	log.Info().
		Str("match_event_id", event.ID.String()).
		Str("team_id", event.TeamID.String()).
		Time("scheduled_at", event.ScheduledAt).
		Msg("fixture created")
	return event, nil
}

// GetFixture retrieves one fixture by id.
func (a *App) GetFixture(ctx context.Context, id uuid.UUID) (*models.MatchEvent, error) {
	event, err := a.repo.GetMatchEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get fixture: %w", err)
	}
	return event, nil
}

// ListFixtures returns a team's fixtures ordered by schedule date.
func (a *App) ListFixtures(ctx context.Context, teamID uuid.UUID) ([]models.MatchEvent, error) {
	events, err := a.repo.ListTeamEvents(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures: %w", err)
	}
	return events, nil
}

// UpdateFixture edits schedule details of a fixture. Details freeze once a
// challenge goes out; edits are only valid while the fixture is DRAFT.
func (a *App) UpdateFixture(ctx context.Context, id uuid.UUID, req UpdateFixtureRequest) (*models.MatchEvent, error) {
	event, err := a.repo.GetMatchEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get fixture: %w", err)
	}
	if event.MatchStatus != models.MatchStatusDraft {
		return nil, apperr.New(apperr.CodeInvalidStatus, "fixture is %s, only DRAFT fixtures can be edited", event.MatchStatus)
	}
	if req.MinimumPlayers != nil && *req.MinimumPlayers < 0 {
		return nil, apperr.New(apperr.CodeValidation, "minimum players must not be negative")
	}
	if req.ScheduledAt != nil && req.ScheduledAt.IsZero() {
		return nil, apperr.New(apperr.CodeValidation, "scheduled date must not be zero")
	}

	if err := a.repo.UpdateFixture(ctx, id, req); err != nil {
		return nil, fmt.Errorf("failed to update fixture: %w", err)
	}
	log.Info().Str("match_event_id", id.String()).Msg("fixture updated")
	return a.repo.GetMatchEvent(ctx, id)
}

// ResolveHost follows LinkedEventID from whichever record the caller holds to
// the host record that owns clock and ledger state. Host records resolve to
// themselves.
func (a *App) ResolveHost(ctx context.Context, event *models.MatchEvent) (*models.MatchEvent, error) {
	if event.IsHost() {
		return event, nil
	}
	host, err := a.repo.GetMatchEvent(ctx, *event.LinkedEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve host record: %w", err)
	}
	return host, nil
}

// UpdateRules replaces the match rules on the host record. Mid-match rule
// edits are allowed for admins; the clock picks up the new schedule on the
// next read.
func (a *App) UpdateRules(ctx context.Context, hostEventID uuid.UUID, rules models.MatchRules) (*models.MatchEvent, error) {
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	if err := a.repo.UpdateRules(ctx, hostEventID, rules); err != nil {
		return nil, fmt.Errorf("failed to update rules: %w", err)
	}
	event, err := a.repo.GetMatchEvent(ctx, hostEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload fixture: %w", err)
	}
	log.Info().Str("match_event_id", hostEventID.String()).Msg("match rules updated")
	return event, nil
}

func validateRules(rules models.MatchRules) error {
	if rules.QuarterCount < 1 {
		return apperr.New(apperr.CodeValidation, "quarter count must be at least 1")
	}
	if rules.QuarterMinutes < 1 {
		return apperr.New(apperr.CodeValidation, "quarter length must be at least 1 minute")
	}
	if rules.QuarterBreakMinutes < 0 || rules.HalftimeMinutes < 0 {
		return apperr.New(apperr.CodeValidation, "break lengths must not be negative")
	}
	return nil
}
