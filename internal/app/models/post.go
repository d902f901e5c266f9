package models

import "time"

// Post is a text or file entry in a course feed.
type Post struct {
	ID        int64     `json:"id" db:"id"`
	CourseID  int64     `json:"courseId" db:"course_id"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Title     string    `json:"title" db:"title"`
	Content   *string   `json:"content,omitempty" db:"content"`
	FileRef   *string   `json:"fileRef,omitempty" db:"file_ref"` // blob store reference
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ReactionKind is what an actor currently holds on a post.
type ReactionKind string

const (
	ReactionNone    ReactionKind = ""
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// PostReaction is stored once per (post, actor), so an actor can never both
// like and dislike the same post.
type PostReaction struct {
	PostID  int64        `json:"postId" db:"post_id"`
	ActorID string       `json:"actorId" db:"actor_id"`
	Kind    ReactionKind `json:"kind" db:"kind"`
}
