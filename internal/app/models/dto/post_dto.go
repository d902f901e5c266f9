package dto

import (
	"time"

	"github.com/bearshare/backend/internal/app/models"
)

// Reaction states returned by the toggle endpoints
const (
	ReactionStateNone     = "none"
	ReactionStateLiked    = "liked"
	ReactionStateDisliked = "disliked"
)

// CreateTextPostRequest creates a text post in a course
type CreateTextPostRequest struct {
	Title   string `json:"title" binding:"required,max=200" example:"Midterm study group"`
	Content string `json:"content" binding:"required,max=20000" example:"Meeting in the library at 6pm"`
}

// CreateFilePostRequest creates a post pointing at an uploaded file
type CreateFilePostRequest struct {
	Title      string `json:"title" binding:"required,max=200" example:"Week 3 slides"`
	StorageRef string `json:"storageRef" binding:"required,uuid" example:"3f1c0a6e-8d59-4c1c-9b9e-2f0d8f7b1a44"`
}

// PostResponse is a post as shown in a course feed
type PostResponse struct {
	ID           int64     `json:"id" example:"10"`
	CourseID     int64     `json:"courseId" example:"1"`
	AuthorID     string    `json:"authorId" example:"user_2abc"`
	Title        string    `json:"title" example:"Week 3 slides"`
	Content      *string   `json:"content"`
	FileRef      *string   `json:"fileRef"`
	FileURL      *string   `json:"fileUrl"`
	Likes        []string  `json:"likes"`
	Dislikes     []string  `json:"dislikes"`
	LikeCount    int       `json:"likeCount" example:"3"`
	DislikeCount int       `json:"dislikeCount" example:"0"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ReactionResponse is the caller's reaction after a toggle
type ReactionResponse struct {
	PostID       int64  `json:"postId" example:"10"`
	State        string `json:"state" example:"liked" enums:"none,liked,disliked"`
	LikeCount    int    `json:"likeCount" example:"4"`
	DislikeCount int    `json:"dislikeCount" example:"0"`
}

// PostAuthorResponse pairs a post with its author
type PostAuthorResponse struct {
	PostID   int64  `json:"postId" example:"10"`
	AuthorID string `json:"authorId" example:"user_2abc"`
}

// UploadURLResponse is the first phase of a file post
type UploadURLResponse struct {
	URL        string    `json:"url"`
	Method     string    `json:"method" example:"PUT"`
	StorageRef string    `json:"storageRef" example:"3f1c0a6e-8d59-4c1c-9b9e-2f0d8f7b1a44"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// UploadCompleteResponse is returned by the local upload target
type UploadCompleteResponse struct {
	StorageRef string `json:"storageRef"`
	Size       int64  `json:"size"`
}

// NewPostResponse maps a post and its reactions. fileURL may be nil.
func NewPostResponse(p *models.Post, reactions []models.PostReaction, fileURL *string) *PostResponse {
	resp := &PostResponse{
		ID:        p.ID,
		CourseID:  p.CourseID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Content:   p.Content,
		FileRef:   p.FileRef,
		FileURL:   fileURL,
		Likes:     []string{},
		Dislikes:  []string{},
		CreatedAt: p.CreatedAt,
	}
	for _, r := range reactions {
		switch r.Kind {
		case models.ReactionLike:
			resp.Likes = append(resp.Likes, r.ActorID)
		case models.ReactionDislike:
			resp.Dislikes = append(resp.Dislikes, r.ActorID)
		}
	}
	resp.LikeCount = len(resp.Likes)
	resp.DislikeCount = len(resp.Dislikes)
	return resp
}

// ReactionState names a reaction kind for clients
func ReactionState(kind models.ReactionKind) string {
	switch kind {
	case models.ReactionLike:
		return ReactionStateLiked
	case models.ReactionDislike:
		return ReactionStateDisliked
	default:
		return ReactionStateNone
	}
}
