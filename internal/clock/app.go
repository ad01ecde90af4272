package clock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/teamvine/matchday/internal/apperr"
	"github.com/teamvine/matchday/internal/models"
	"github.com/teamvine/matchday/internal/schedule"
)

// MatchEventRepository defines what the clock app needs from storage.
type MatchEventRepository interface {
	GetMatchEvent(ctx context.Context, id uuid.UUID) (*models.MatchEvent, error)
	UpdateClockState(ctx context.Context, id uuid.UUID, state models.ClockState) error
}

// App applies clock actions to the host record of a match.
type App struct {
	repo  MatchEventRepository
	clock clockwork.Clock
}

// NewApp creates a clock App. Pass clockwork.NewRealClock() in production and
// a fake clock in tests.
func NewApp(repo MatchEventRepository, clk clockwork.Clock) *App {
	return &App{repo: repo, clock: clk}
}

// ApplyAction mutates the host event's clock and returns the updated state
// together with the match's phase schedule. The caller is responsible for
// authorization; last write wins when two recorders race, which is safe
// because every action is idempotent and bounded.
func (a *App) ApplyAction(ctx context.Context, hostEventID uuid.UUID, action Action) (models.ClockState, []schedule.Phase, error) {
	if !action.Valid() {
		return models.ClockState{}, nil, apperr.New(apperr.CodeValidation, "unknown clock action %q", action)
	}

	event, err := a.repo.GetMatchEvent(ctx, hostEventID)
	if err != nil {
		return models.ClockState{}, nil, fmt.Errorf("failed to get match event: %w", err)
	}
	if event.MatchStatus != models.MatchStatusInProgress {
		return models.ClockState{}, nil, apperr.New(apperr.CodeInvalidStatus, "match %s is %s, clock can only run while IN_PROGRESS", event.ID, event.MatchStatus)
	}

	phases, err := schedule.Build(event.Rules)
	if err != nil {
		return models.ClockState{}, nil, fmt.Errorf("failed to build phase schedule: %w", err)
	}

	now := a.clock.Now()
	next := Apply(event.Clock, action, now, len(phases))
	if next == event.Clock {
		// No-op actions (double start, advance past the end) skip the write.
		return next, phases, nil
	}

	if err := a.repo.UpdateClockState(ctx, hostEventID, next); err != nil {
		return models.ClockState{}, nil, fmt.Errorf("failed to persist clock state: %w", err)
	}

	log.Debug().
		Str("match_event_id", hostEventID.String()).
		Str("action", string(action)).
		Int("timer_phase", next.TimerPhase).
		Bool("timer_running", next.TimerRunning).
		Msg("clock action applied")

	return next, phases, nil
}
