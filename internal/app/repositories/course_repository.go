package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/bearshare/backend/internal/app/models"
	"github.com/bearshare/backend/internal/db"
	"github.com/bearshare/backend/internal/pkg/apperrors"
)

var courseColumns = []string{"id", "name", "tag", "member_count", "created_at"}

// PgCourseRepository handles database operations for courses
type PgCourseRepository struct {
	db db.DBTX
}

// NewCourseRepository creates a new PgCourseRepository
func NewCourseRepository(q db.DBTX) *PgCourseRepository {
	return &PgCourseRepository{db: q}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var course models.Course
	if err := row.Scan(&course.ID, &course.Name, &course.Tag, &course.MemberCount, &course.CreatedAt); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a course and fills in its id and creation time
func (r *PgCourseRepository) Create(ctx context.Context, course *models.Course) (int64, error) {
	query := squirrel.Insert("courses").
		Columns("name", "tag", "member_count").
		Values(course.Name, course.Tag, course.MemberCount).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&course.ID, &course.CreatedAt); err != nil {
		return 0, fmt.Errorf("error creating course: %w", err)
	}
	return course.ID, nil
}

// GetByID retrieves a course by id
func (r *PgCourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	query := squirrel.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	course, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error getting course: %w", err)
	}
	return course, nil
}

// GetAll retrieves every course in creation order
func (r *PgCourseRepository) GetAll(ctx context.Context) ([]*models.Course, error) {
	return r.list(ctx, squirrel.Select(courseColumns...).From("courses").OrderBy("id ASC"))
}

// GetByIDs retrieves the courses that still exist among ids
func (r *PgCourseRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Course, error) {
	if len(ids) == 0 {
		return []*models.Course{}, nil
	}
	return r.list(ctx, squirrel.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id ASC"))
}

func (r *PgCourseRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Course, error) {
	sql, args, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return courses, nil
}

// AdjustMemberCount changes member_count by delta, clamped at zero
func (r *PgCourseRepository) AdjustMemberCount(ctx context.Context, id int64, delta int) error {
	query := squirrel.Update("courses").
		Set("member_count", squirrel.Expr("GREATEST(member_count + ?, 0)", delta)).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error adjusting member count: %w", err)
	}
	return nil
}

// SetMemberCount overwrites member_count, used by reconciliation
func (r *PgCourseRepository) SetMemberCount(ctx context.Context, id int64, count int) error {
	query := squirrel.Update("courses").
		Set("member_count", count).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error setting member count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}
