package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/bearshare/backend/internal/db"
	"github.com/bearshare/backend/internal/pkg/apperrors"
	"github.com/bearshare/backend/internal/pkg/dberrors"
)

// PgMembershipRepository handles database operations for course memberships
type PgMembershipRepository struct {
	db db.DBTX
}

// NewMembershipRepository creates a new PgMembershipRepository
func NewMembershipRepository(q db.DBTX) *PgMembershipRepository {
	return &PgMembershipRepository{db: q}
}

// Add inserts a membership row unless one already exists for (actor, course)
func (r *PgMembershipRepository) Add(ctx context.Context, actorID string, courseID int64) (bool, error) {
	query := squirrel.Insert("course_memberships").
		Columns("actor_id", "course_id").
		Values(actorID, courseID).
		Suffix("ON CONFLICT ON CONSTRAINT by_user_and_course DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err, "") {
			return false, apperrors.ErrCourseNotFound
		}
		return false, fmt.Errorf("error adding membership: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Remove deletes the membership row for (actor, course) if present
func (r *PgMembershipRepository) Remove(ctx context.Context, actorID string, courseID int64) (bool, error) {
	query := squirrel.Delete("course_memberships").
		Where(squirrel.Eq{"actor_id": actorID, "course_id": courseID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error removing membership: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Exists checks the by_user_and_course index for a membership row
func (r *PgMembershipRepository) Exists(ctx context.Context, actorID string, courseID int64) (bool, error) {
	query := squirrel.Select("1").
		From("course_memberships").
		Where(squirrel.Eq{"actor_id": actorID, "course_id": courseID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	var exists int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error executing query: %w", err)
	}
	return true, nil
}

// CourseIDsByActor lists the courses an actor joined, oldest membership first
func (r *PgMembershipRepository) CourseIDsByActor(ctx context.Context, actorID string) ([]int64, error) {
	query := squirrel.Select("course_id").
		From("course_memberships").
		Where(squirrel.Eq{"actor_id": actorID}).
		OrderBy("id ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	courseIDs := []int64{}
	for rows.Next() {
		var courseID int64
		if err := rows.Scan(&courseID); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		courseIDs = append(courseIDs, courseID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return courseIDs, nil
}

// CountsByCourse counts membership rows per course
func (r *PgMembershipRepository) CountsByCourse(ctx context.Context) (map[int64]int, error) {
	query := squirrel.Select("course_id", "COUNT(*)").
		From("course_memberships").
		GroupBy("course_id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var courseID int64
		var count int
		if err := rows.Scan(&courseID, &count); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		counts[courseID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return counts, nil
}
