package matchevent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamvine/matchday/internal/models"
)

// ErrNotFound is returned when no match event matches the lookup.
var ErrNotFound = errors.New("match event not found")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const eventColumns = `id, team_id, scheduled_at, location, match_status,
	challenge_token, challenge_expires_at, opponent_team_id, opponent_team_name,
	linked_event_id, rejected_reason, is_friendly, team_a_score, team_b_score,
	minimum_players, rules, timer_phase, timer_running, timer_started_at,
	timer_elapsed_sec, created_at, updated_at`

// Repository stores match events in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateMatchEventRequest carries the fields a team sets when scheduling a
// fixture.
type CreateMatchEventRequest struct {
	ID               uuid.UUID         `json:"id"`
	TeamID           uuid.UUID         `json:"team_id"`
	ScheduledAt      time.Time         `json:"scheduled_at"`
	Location         string            `json:"location"`
	OpponentTeamID   *uuid.UUID        `json:"opponent_team_id,omitempty"`
	OpponentTeamName *string           `json:"opponent_team_name,omitempty"`
	LinkedEventID    *uuid.UUID        `json:"linked_event_id,omitempty"`
	MatchStatus      models.MatchStatus `json:"match_status"`
	MinimumPlayers   int               `json:"minimum_players"`
	IsFriendly       bool              `json:"is_friendly"`
	Rules            models.MatchRules `json:"rules"`
}

func (r *Repository) CreateMatchEvent(ctx context.Context, req CreateMatchEventRequest) (*models.MatchEvent, error) {
	rulesBytes, err := json.Marshal(req.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match rules: %w", err)
	}

	query := psql.Insert("match_events").
		Columns("id", "team_id", "scheduled_at", "location", "match_status",
			"opponent_team_id", "opponent_team_name", "linked_event_id",
			"minimum_players", "is_friendly", "rules").
		Values(req.ID, req.TeamID, req.ScheduledAt, req.Location, req.MatchStatus,
			req.OpponentTeamID, req.OpponentTeamName, req.LinkedEventID,
			req.MinimumPlayers, req.IsFriendly, rulesBytes).
		Suffix("RETURNING " + eventColumns)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}
	return r.scanEvent(r.pool.QueryRow(ctx, sqlStr, args...))
}

func (r *Repository) GetMatchEvent(ctx context.Context, id uuid.UUID) (*models.MatchEvent, error) {
	return r.getWhere(ctx, sq.Eq{"id": id})
}

// GetByChallengeToken resolves the host record carrying the given token.
func (r *Repository) GetByChallengeToken(ctx context.Context, token uuid.UUID) (*models.MatchEvent, error) {
	return r.getWhere(ctx, sq.Eq{"challenge_token": token})
}

// GetMirror returns the mirrored record linked back to the given host event,
// or ErrNotFound when no acceptance has happened yet.
func (r *Repository) GetMirror(ctx context.Context, hostEventID uuid.UUID) (*models.MatchEvent, error) {
	return r.getWhere(ctx, sq.Eq{"linked_event_id": hostEventID})
}

func (r *Repository) getWhere(ctx context.Context, pred any) (*models.MatchEvent, error) {
	sqlStr, args, err := psql.Select(eventColumns).From("match_events").Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	event, err := r.scanEvent(r.pool.QueryRow(ctx, sqlStr, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return event, err
}

// ListTeamEvents returns a team's fixtures ordered by schedule date.
func (r *Repository) ListTeamEvents(ctx context.Context, teamID uuid.UUID) ([]models.MatchEvent, error) {
	sqlStr, args, err := psql.Select(eventColumns).From("match_events").
		Where(sq.Eq{"team_id": teamID}).
		OrderBy("scheduled_at ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list match events: %w", err)
	}
	defer rows.Close()

	var out []models.MatchEvent
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *event)
	}
	return out, rows.Err()
}

// UpdateFixtureRequest carries optional edits to an unmatched fixture.
type UpdateFixtureRequest struct {
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	Location       *string    `json:"location,omitempty"`
	MinimumPlayers *int       `json:"minimum_players,omitempty"`
}

// UpdateFixture applies the set fields. An empty request is a no-op.
func (r *Repository) UpdateFixture(ctx context.Context, id uuid.UUID, req UpdateFixtureRequest) error {
	set := map[string]any{}
	if req.ScheduledAt != nil {
		set["scheduled_at"] = *req.ScheduledAt
	}
	if req.Location != nil {
		set["location"] = *req.Location
	}
	if req.MinimumPlayers != nil {
		set["minimum_players"] = *req.MinimumPlayers
	}
	if len(set) == 0 {
		return nil
	}
	return r.update(ctx, id, set)
}

// UpdateStatus sets the lifecycle status of one event.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus) error {
	return r.update(ctx, id, sq.Eq{"match_status": status})
}

// SetChallenge promotes a draft event to CHALLENGE_SENT with a fresh token.
func (r *Repository) SetChallenge(ctx context.Context, id uuid.UUID, token uuid.UUID, expiresAt time.Time) error {
	return r.update(ctx, id, map[string]any{
		"match_status":         models.MatchStatusChallengeSent,
		"challenge_token":      token,
		"challenge_expires_at": expiresAt,
		"rejected_reason":      nil,
		"is_friendly":          true,
	})
}

// ClearChallenge returns a host event to an unmatched state, recording the
// optional rejection reason for host-side display.
func (r *Repository) ClearChallenge(ctx context.Context, id uuid.UUID, reason *string) error {
	return r.update(ctx, id, map[string]any{
		"match_status":         models.MatchStatusDraft,
		"challenge_token":      nil,
		"challenge_expires_at": nil,
		"opponent_team_id":     nil,
		"opponent_team_name":   nil,
		"rejected_reason":      reason,
	})
}

// SetOpponent records the accepting team on the host event alongside the
// CONFIRMED transition.
func (r *Repository) SetOpponent(ctx context.Context, id uuid.UUID, opponentTeamID uuid.UUID, opponentTeamName string) error {
	return r.update(ctx, id, map[string]any{
		"match_status":       models.MatchStatusConfirmed,
		"opponent_team_id":   opponentTeamID,
		"opponent_team_name": opponentTeamName,
	})
}

// UpdateClockState persists the timer fields of the host record.
func (r *Repository) UpdateClockState(ctx context.Context, id uuid.UUID, state models.ClockState) error {
	return r.update(ctx, id, map[string]any{
		"timer_phase":       state.TimerPhase,
		"timer_running":     state.TimerRunning,
		"timer_started_at":  state.TimerStartedAt,
		"timer_elapsed_sec": state.TimerElapsedSec,
	})
}

// UpdateScores writes the same unflipped score pair to an event. Callers
// mirror the write to the linked record so both records stay equal when read
// without flipping.
func (r *Repository) UpdateScores(ctx context.Context, id uuid.UUID, teamA, teamB int) error {
	return r.update(ctx, id, map[string]any{
		"team_a_score": teamA,
		"team_b_score": teamB,
	})
}

// UpdateRules replaces the rules blob of one event.
func (r *Repository) UpdateRules(ctx context.Context, id uuid.UUID, rules models.MatchRules) error {
	rulesBytes, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to marshal match rules: %w", err)
	}
	return r.update(ctx, id, sq.Eq{"rules": rulesBytes})
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, set map[string]any) error {
	query := psql.Update("match_events").Where(sq.Eq{"id": id}).Set("updated_at", sq.Expr("now()"))
	for col, val := range set {
		query = query.Set(col, val)
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to update match event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) scanEvent(row pgx.Row) (*models.MatchEvent, error) {
	var (
		e          models.MatchEvent
		rulesBytes []byte
	)
	err := row.Scan(
		&e.ID, &e.TeamID, &e.ScheduledAt, &e.Location, &e.MatchStatus,
		&e.ChallengeToken, &e.ChallengeExpiresAt, &e.OpponentTeamID, &e.OpponentTeamName,
		&e.LinkedEventID, &e.RejectedReason, &e.IsFriendly, &e.TeamAScore, &e.TeamBScore,
		&e.MinimumPlayers, &rulesBytes, &e.Clock.TimerPhase, &e.Clock.TimerRunning,
		&e.Clock.TimerStartedAt, &e.Clock.TimerElapsedSec, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rulesBytes) > 0 {
		if err := json.Unmarshal(rulesBytes, &e.Rules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match rules: %w", err)
		}
	}
	return &e, nil
}
