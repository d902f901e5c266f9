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

// PgReactionRepository handles database operations for post reactions
type PgReactionRepository struct {
	db db.DBTX
}

// NewReactionRepository creates a new PgReactionRepository
func NewReactionRepository(q db.DBTX) *PgReactionRepository {
	return &PgReactionRepository{db: q}
}

// Get returns the reaction the actor currently holds on the post. The row is
// locked so that concurrent toggles by the same actor serialise.
func (r *PgReactionRepository) Get(ctx context.Context, postID int64, actorID string) (models.ReactionKind, error) {
	query := squirrel.Select("kind").
		From("post_reactions").
		Where(squirrel.Eq{"post_id": postID, "actor_id": actorID}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return models.ReactionNone, fmt.Errorf("error building SQL: %w", err)
	}

	var kind models.ReactionKind
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&kind); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ReactionNone, nil
		}
		return models.ReactionNone, fmt.Errorf("error executing query: %w", err)
	}
	return kind, nil
}

// Set upserts the actor's reaction on the post
func (r *PgReactionRepository) Set(ctx context.Context, postID int64, actorID string, kind models.ReactionKind) error {
	query := squirrel.Insert("post_reactions").
		Columns("post_id", "actor_id", "kind").
		Values(postID, actorID, kind).
		Suffix("ON CONFLICT (post_id, actor_id) DO UPDATE SET kind = EXCLUDED.kind, reacted_at = NOW()").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsForeignKeyViolation(err, "") {
			return apperrors.ErrPostNotFound
		}
		return fmt.Errorf("error setting reaction: %w", err)
	}
	return nil
}

// Delete removes the actor's reaction on the post
func (r *PgReactionRepository) Delete(ctx context.Context, postID int64, actorID string) error {
	query := squirrel.Delete("post_reactions").
		Where(squirrel.Eq{"post_id": postID, "actor_id": actorID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error deleting reaction: %w", err)
	}
	return nil
}

// ListByPosts returns all reactions on the given posts
func (r *PgReactionRepository) ListByPosts(ctx context.Context, postIDs []int64) ([]*models.PostReaction, error) {
	if len(postIDs) == 0 {
		return []*models.PostReaction{}, nil
	}

	query := squirrel.Select("post_id", "actor_id", "kind").
		From("post_reactions").
		Where(squirrel.Eq{"post_id": postIDs}).
		OrderBy("reacted_at ASC", "actor_id ASC").
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

	reactions := []*models.PostReaction{}
	for rows.Next() {
		var reaction models.PostReaction
		if err := rows.Scan(&reaction.PostID, &reaction.ActorID, &reaction.Kind); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		reactions = append(reactions, &reaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return reactions, nil
}
