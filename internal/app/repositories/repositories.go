package repositories

import (
	"context"

	"github.com/bearshare/backend/internal/app/models"
)

// CourseRepository persists courses and their cached member count.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	GetAll(ctx context.Context) ([]*models.Course, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Course, error)
	// AdjustMemberCount adds delta to member_count, never going below zero.
	AdjustMemberCount(ctx context.Context, id int64, delta int) error
	SetMemberCount(ctx context.Context, id int64, count int) error
}

// CourseRequestRepository persists course requests.
type CourseRequestRepository interface {
	Create(ctx context.Context, req *models.CourseRequest) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.CourseRequest, error)
	// ListByStatus lists requests in creation order. An empty status lists all.
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]*models.CourseRequest, error)
	// Resolve moves a pending request to status. It reports false, without
	// changing anything, when the request is not pending anymore.
	Resolve(ctx context.Context, id int64, status models.RequestStatus, courseID *int64) (bool, error)
}

// MembershipRepository persists (actor, course) membership rows.
type MembershipRepository interface {
	// Add reports whether a new row was inserted.
	Add(ctx context.Context, actorID string, courseID int64) (bool, error)
	// Remove reports whether a row was deleted.
	Remove(ctx context.Context, actorID string, courseID int64) (bool, error)
	Exists(ctx context.Context, actorID string, courseID int64) (bool, error)
	// CourseIDsByActor returns course ids in join order.
	CourseIDsByActor(ctx context.Context, actorID string) ([]int64, error)
	// CountsByCourse returns the number of membership rows per course.
	CountsByCourse(ctx context.Context) (map[int64]int, error)
}

// PostRepository persists posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	// ListByCourse returns posts newest first.
	ListByCourse(ctx context.Context, courseID int64) ([]*models.Post, error)
}

// ReactionRepository persists one reaction per (post, actor).
type ReactionRepository interface {
	// Get returns models.ReactionNone when the actor has not reacted.
	Get(ctx context.Context, postID int64, actorID string) (models.ReactionKind, error)
	Set(ctx context.Context, postID int64, actorID string, kind models.ReactionKind) error
	Delete(ctx context.Context, postID int64, actorID string) error
	// ListByPosts returns reactions in the order they were made.
	ListByPosts(ctx context.Context, postIDs []int64) ([]*models.PostReaction, error)
}

// Store groups the repositories behind a single transactional boundary.
type Store interface {
	Courses() CourseRepository
	CourseRequests() CourseRequestRepository
	Memberships() MembershipRepository
	Posts() PostRepository
	Reactions() ReactionRepository

	// WithTx runs fn with a Store whose repositories share one transaction.
	// Calling WithTx on a transactional Store reuses the same transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Ping(ctx context.Context) error
}
