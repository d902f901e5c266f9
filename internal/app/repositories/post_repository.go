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
	"github.com/bearshare/backend/internal/pkg/dberrors"
)

const postsFileRefKey = "posts_file_ref_key"

var postColumns = []string{"id", "course_id", "author_id", "title", "content", "file_ref", "created_at"}

// PgPostRepository handles database operations for posts
type PgPostRepository struct {
	db db.DBTX
}

// NewPostRepository creates a new PgPostRepository
func NewPostRepository(q db.DBTX) *PgPostRepository {
	return &PgPostRepository{db: q}
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var post models.Post
	err := row.Scan(
		&post.ID,
		&post.CourseID,
		&post.AuthorID,
		&post.Title,
		&post.Content,
		&post.FileRef,
		&post.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Create inserts a post and fills in its id and creation time
func (r *PgPostRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := squirrel.Insert("posts").
		Columns("course_id", "author_id", "title", "content", "file_ref").
		Values(post.CourseID, post.AuthorID, post.Title, post.Content, post.FileRef).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&post.ID, &post.CreatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err, "") {
			return 0, apperrors.ErrCourseNotFound
		}
		if dberrors.IsDuplicateConstraintError(err, postsFileRefKey) {
			return 0, apperrors.ErrUploadAttached
		}
		return 0, fmt.Errorf("error creating post: %w", err)
	}
	return post.ID, nil
}

// GetByID retrieves a post by id
func (r *PgPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := squirrel.Select(postColumns...).
		From("posts").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	post, err := scanPost(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("error getting post: %w", err)
	}
	return post, nil
}

// ListByCourse returns the feed of a course, newest first
func (r *PgPostRepository) ListByCourse(ctx context.Context, courseID int64) ([]*models.Post, error) {
	query := squirrel.Select(postColumns...).
		From("posts").
		Where(squirrel.Eq{"course_id": courseID}).
		OrderBy("created_at DESC", "id DESC").
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

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return posts, nil
}
