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

var courseRequestColumns = []string{
	"id", "class_name", "class_tag", "description", "status", "course_id", "created_at", "resolved_at",
}

// PgCourseRequestRepository handles database operations for course requests
type PgCourseRequestRepository struct {
	db db.DBTX
}

// NewCourseRequestRepository creates a new PgCourseRequestRepository
func NewCourseRequestRepository(q db.DBTX) *PgCourseRequestRepository {
	return &PgCourseRequestRepository{db: q}
}

func scanCourseRequest(row pgx.Row) (*models.CourseRequest, error) {
	var req models.CourseRequest
	err := row.Scan(
		&req.ID,
		&req.ClassName,
		&req.ClassTag,
		&req.Description,
		&req.Status,
		&req.CourseID,
		&req.CreatedAt,
		&req.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create inserts a course request
func (r *PgCourseRequestRepository) Create(ctx context.Context, req *models.CourseRequest) (int64, error) {
	query := squirrel.Insert("course_requests").
		Columns("class_name", "class_tag", "description", "status").
		Values(req.ClassName, req.ClassTag, req.Description, req.Status).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&req.ID, &req.CreatedAt); err != nil {
		return 0, fmt.Errorf("error creating course request: %w", err)
	}
	return req.ID, nil
}

// GetByID retrieves a course request by id
func (r *PgCourseRequestRepository) GetByID(ctx context.Context, id int64) (*models.CourseRequest, error) {
	query := squirrel.Select(courseRequestColumns...).
		From("course_requests").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	req, err := scanCourseRequest(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseRequestNotFound
		}
		return nil, fmt.Errorf("error getting course request: %w", err)
	}
	return req, nil
}

// ListByStatus lists requests with the given status using the by_status index
func (r *PgCourseRequestRepository) ListByStatus(ctx context.Context, status models.RequestStatus) ([]*models.CourseRequest, error) {
	query := squirrel.Select(courseRequestColumns...).
		From("course_requests").
		OrderBy("id ASC").
		PlaceholderFormat(squirrel.Dollar)
	if status != "" {
		query = query.Where(squirrel.Eq{"status": status})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	requests := []*models.CourseRequest{}
	for rows.Next() {
		req, err := scanCourseRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return requests, nil
}

// Resolve transitions a pending request. The status guard in the WHERE clause
// makes concurrent approvals of the same request mutually exclusive.
func (r *PgCourseRequestRepository) Resolve(ctx context.Context, id int64, status models.RequestStatus, courseID *int64) (bool, error) {
	query := squirrel.Update("course_requests").
		Set("status", status).
		Set("course_id", courseID).
		Set("resolved_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": models.RequestPending}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error resolving course request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
