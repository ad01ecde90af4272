// Package roster is the read side of attendance and team membership that the
// match engine consumes: confirmed-attendance counts for the accept guard,
// checked-in rosters for ledger validation, and role lookups for the
// can-record capability. Membership writes live in the club CRUD surface.
package roster

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamvine/matchday/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository reads attendance and membership from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountConfirmed returns how many members have confirmed or checked in for
// the given event.
func (r *Repository) CountConfirmed(ctx context.Context, matchEventID uuid.UUID) (int, error) {
	sqlStr, args, err := psql.Select("COUNT(*)").From("attendance").
		Where(sq.Eq{
			"match_event_id": matchEventID,
			"status":         []models.AttendanceStatus{models.AttendanceConfirmed, models.AttendanceCheckedIn},
		}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count: %w", err)
	}

	var count int
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count confirmed attendance: %w", err)
	}
	return count, nil
}

// ListCheckedIn returns the checked-in roster for one event, ordered by name.
func (r *Repository) ListCheckedIn(ctx context.Context, matchEventID uuid.UUID) ([]models.RosterEntry, error) {
	sqlStr, args, err := psql.
		Select("a.match_event_id", "a.user_id", "u.display_name", "a.status").
		From("attendance a").
		Join("users u ON u.id = a.user_id").
		Where(sq.Eq{"a.match_event_id": matchEventID, "a.status": models.AttendanceCheckedIn}).
		OrderBy("u.display_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build roster select: %w", err)
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checked-in roster: %w", err)
	}
	defer rows.Close()

	var out []models.RosterEntry
	for rows.Next() {
		var e models.RosterEntry
		if err := rows.Scan(&e.MatchEventID, &e.UserID, &e.DisplayName, &e.Status); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// IsCheckedIn reports whether the player is on the checked-in roster for the
// event.
func (r *Repository) IsCheckedIn(ctx context.Context, matchEventID, userID uuid.UUID) (bool, error) {
	sqlStr, args, err := psql.Select("1").From("attendance").
		Where(sq.Eq{
			"match_event_id": matchEventID,
			"user_id":        userID,
			"status":         models.AttendanceCheckedIn,
		}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build check-in select: %w", err)
	}

	var one int
	err = r.pool.QueryRow(ctx, sqlStr, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query check-in: %w", err)
	}
	return true, nil
}

// GetTeamRole returns the user's role in the team, or "" when the user is not
// a member.
func (r *Repository) GetTeamRole(ctx context.Context, teamID, userID uuid.UUID) (models.TeamRole, error) {
	sqlStr, args, err := psql.Select("role").From("team_members").
		Where(sq.Eq{"team_id": teamID, "user_id": userID}).ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build role select: %w", err)
	}

	var role models.TeamRole
	err = r.pool.QueryRow(ctx, sqlStr, args...).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query team role: %w", err)
	}
	return role, nil
}

// GetTeam loads one team.
func (r *Repository) GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	sqlStr, args, err := psql.Select("id", "name", "created_at").From("teams").
		Where(sq.Eq{"id": teamID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build team select: %w", err)
	}

	var team models.Team
	err = r.pool.QueryRow(ctx, sqlStr, args...).Scan(&team.ID, &team.Name, &team.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("team %s not found", teamID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &team, nil
}
