package ledger

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamvine/matchday/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository stores ledger records in Postgres. Records are insert-only;
// there are no update or delete statements in this package on purpose.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InsertGoal(ctx context.Context, g models.GoalRecord) (*models.GoalRecord, error) {
	sqlStr, args, err := psql.Insert("goal_records").
		Columns("id", "match_event_id", "quarter", "minute", "scoring_team",
			"scorer_id", "assist_id", "is_own_goal").
		Values(g.ID, g.MatchEventID, g.Quarter, g.Minute, g.ScoringTeam,
			g.ScorerID, g.AssistID, g.IsOwnGoal).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build goal insert: %w", err)
	}
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&g.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert goal record: %w", err)
	}
	return &g, nil
}

func (r *Repository) InsertCard(ctx context.Context, c models.CardRecord) (*models.CardRecord, error) {
	sqlStr, args, err := psql.Insert("card_records").
		Columns("id", "match_event_id", "quarter", "minute", "team_side",
			"player_id", "card_type").
		Values(c.ID, c.MatchEventID, c.Quarter, c.Minute, c.TeamSide,
			c.PlayerID, c.CardType).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build card insert: %w", err)
	}
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&c.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert card record: %w", err)
	}
	return &c, nil
}

func (r *Repository) InsertSubstitution(ctx context.Context, s models.SubstitutionRecord) (*models.SubstitutionRecord, error) {
	sqlStr, args, err := psql.Insert("substitution_records").
		Columns("id", "match_event_id", "quarter", "minute", "team_side",
			"player_out_id", "player_in_id").
		Values(s.ID, s.MatchEventID, s.Quarter, s.Minute, s.TeamSide,
			s.PlayerOutID, s.PlayerInID).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build substitution insert: %w", err)
	}
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&s.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert substitution record: %w", err)
	}
	return &s, nil
}

// ListGoals returns the match's goals in display order.
func (r *Repository) ListGoals(ctx context.Context, matchEventID uuid.UUID) ([]models.GoalRecord, error) {
	sqlStr, args, err := psql.
		Select("id", "match_event_id", "quarter", "minute", "scoring_team",
			"scorer_id", "assist_id", "is_own_goal", "created_at").
		From("goal_records").
		Where(sq.Eq{"match_event_id": matchEventID}).
		OrderBy("quarter ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build goal select: %w", err)
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list goal records: %w", err)
	}
	defer rows.Close()

	var out []models.GoalRecord
	for rows.Next() {
		var g models.GoalRecord
		if err := rows.Scan(&g.ID, &g.MatchEventID, &g.Quarter, &g.Minute,
			&g.ScoringTeam, &g.ScorerID, &g.AssistID, &g.IsOwnGoal, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal record: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListCards returns the match's cards in display order.
func (r *Repository) ListCards(ctx context.Context, matchEventID uuid.UUID) ([]models.CardRecord, error) {
	sqlStr, args, err := psql.
		Select("id", "match_event_id", "quarter", "minute", "team_side",
			"player_id", "card_type", "created_at").
		From("card_records").
		Where(sq.Eq{"match_event_id": matchEventID}).
		OrderBy("quarter ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build card select: %w", err)
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list card records: %w", err)
	}
	defer rows.Close()

	var out []models.CardRecord
	for rows.Next() {
		var c models.CardRecord
		if err := rows.Scan(&c.ID, &c.MatchEventID, &c.Quarter, &c.Minute,
			&c.TeamSide, &c.PlayerID, &c.CardType, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card record: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListSubstitutions returns the match's substitutions in display order.
func (r *Repository) ListSubstitutions(ctx context.Context, matchEventID uuid.UUID) ([]models.SubstitutionRecord, error) {
	sqlStr, args, err := psql.
		Select("id", "match_event_id", "quarter", "minute", "team_side",
			"player_out_id", "player_in_id", "created_at").
		From("substitution_records").
		Where(sq.Eq{"match_event_id": matchEventID}).
		OrderBy("quarter ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build substitution select: %w", err)
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list substitution records: %w", err)
	}
	defer rows.Close()

	var out []models.SubstitutionRecord
	for rows.Next() {
		var s models.SubstitutionRecord
		if err := rows.Scan(&s.ID, &s.MatchEventID, &s.Quarter, &s.Minute,
			&s.TeamSide, &s.PlayerOutID, &s.PlayerInID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan substitution record: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
