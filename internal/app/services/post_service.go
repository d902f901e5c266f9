package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/bearshare/backend/internal/app/auth"
	"github.com/bearshare/backend/internal/app/models"
	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/app/repositories"
	"github.com/bearshare/backend/internal/pkg/apperrors"
	"github.com/bearshare/backend/internal/pkg/events"
	"github.com/bearshare/backend/internal/pkg/filestorage"
	"github.com/bearshare/backend/internal/pkg/validation"
)

// PostService defines the interface for course feeds
type PostService interface {
	CreateTextPost(ctx context.Context, actor auth.Actor, courseID int64, req *dto.CreateTextPostRequest) (*dto.PostResponse, error)
	CreateFilePost(ctx context.Context, actor auth.Actor, courseID int64, req *dto.CreateFilePostRequest) (*dto.PostResponse, error)
	RequestUploadURL(ctx context.Context, actor auth.Actor) (*dto.UploadURLResponse, error)
	ListPosts(ctx context.Context, courseID int64) ([]*dto.PostResponse, error)
	ToggleLike(ctx context.Context, actor auth.Actor, postID int64) (*dto.ReactionResponse, error)
	ToggleDislike(ctx context.Context, actor auth.Actor, postID int64) (*dto.ReactionResponse, error)
	ListAuthors(ctx context.Context, courseID int64) ([]*dto.PostAuthorResponse, error)
}

// postServiceImpl implements PostService
type postServiceImpl struct {
	store  repositories.Store
	blobs  filestorage.BlobStore
	events *events.Emitter
	logger zerolog.Logger
}

// NewPostService creates a new PostService
func NewPostService(store repositories.Store, blobs filestorage.BlobStore, emitter *events.Emitter, logger zerolog.Logger) PostService {
	return &postServiceImpl{
		store:  store,
		blobs:  blobs,
		events: emitter,
		logger: logger,
	}
}

// CreateTextPost appends a text post to a course feed
func (s *postServiceImpl) CreateTextPost(ctx context.Context, actor auth.Actor, courseID int64, req *dto.CreateTextPostRequest) (*dto.PostResponse, error) {
	if err := s.authorizePost(ctx, actor, courseID); err != nil {
		return nil, err
	}

	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}
	content := validation.NewStringValidation(req.Content).WithMaxLength(validation.PostContentMaxLength)
	if !content.Validate() {
		return nil, apperrors.NewValidationError("content", "content is required and must be at most 20000 characters")
	}

	post := &models.Post{
		CourseID: courseID,
		AuthorID: actor.ID,
		Title:    title,
		Content:  &content.Value,
	}
	return s.create(ctx, actor, post)
}

// CreateFilePost appends a post for a blob the client already uploaded
func (s *postServiceImpl) CreateFilePost(ctx context.Context, actor auth.Actor, courseID int64, req *dto.CreateFilePostRequest) (*dto.PostResponse, error) {
	if err := s.authorizePost(ctx, actor, courseID); err != nil {
		return nil, err
	}

	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}

	exists, err := s.blobs.Exists(ctx, req.StorageRef)
	if err != nil {
		return nil, asUpstream(err)
	}
	if !exists {
		return nil, apperrors.ErrUploadNotFound
	}

	ref := req.StorageRef
	post := &models.Post{
		CourseID: courseID,
		AuthorID: actor.ID,
		Title:    title,
		FileRef:  &ref,
	}
	return s.create(ctx, actor, post)
}

func (s *postServiceImpl) create(ctx context.Context, actor auth.Actor, post *models.Post) (*dto.PostResponse, error) {
	if _, err := s.store.Posts().Create(ctx, post); err != nil {
		s.logger.Error().Err(err).Int64("courseId", post.CourseID).Msg("Failed to create post")
		return nil, err
	}

	s.logger.Info().Int64("postId", post.ID).Int64("courseId", post.CourseID).Str("actorId", actor.ID).Msg("Post created")
	postID := post.ID
	s.events.Emit(ctx, events.Event{Type: events.PostCreated, ActorID: actor.ID, CourseID: post.CourseID, PostID: &postID})

	return dto.NewPostResponse(post, nil, s.resolveFileURL(ctx, post)), nil
}

// authorizePost requires an existing course and a member or admin actor
func (s *postServiceImpl) authorizePost(ctx context.Context, actor auth.Actor, courseID int64) error {
	if err := auth.RequireAuthenticated(actor); err != nil {
		return err
	}
	if _, err := s.store.Courses().GetByID(ctx, courseID); err != nil {
		return err
	}

	isMember := false
	if !actor.IsAdmin() {
		var err error
		isMember, err = s.store.Memberships().Exists(ctx, actor.ID, courseID)
		if err != nil {
			return err
		}
	}
	if err := auth.CanPostIn(actor, isMember); err != nil {
		s.logger.Debug().Str("actorId", actor.ID).Int64("courseId", courseID).Msg("Non-member tried to post")
		return err
	}
	return nil
}

// RequestUploadURL is the first phase of a file post
func (s *postServiceImpl) RequestUploadURL(ctx context.Context, actor auth.Actor) (*dto.UploadURLResponse, error) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	target, err := s.blobs.RequestUploadURL(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue upload URL")
		return nil, asUpstream(err)
	}

	s.logger.Debug().Str("actorId", actor.ID).Str("storageRef", target.StorageRef).Msg("Upload URL issued")
	return &dto.UploadURLResponse{
		URL:        target.URL,
		Method:     target.Method,
		StorageRef: target.StorageRef,
		ExpiresAt:  target.ExpiresAt,
	}, nil
}

// ListPosts returns a course feed newest first. A missing course has an empty feed.
func (s *postServiceImpl) ListPosts(ctx context.Context, courseID int64) ([]*dto.PostResponse, error) {
	posts, err := s.store.Posts().ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error().Err(err).Int64("courseId", courseID).Msg("Failed to list posts")
		return nil, err
	}
	if len(posts) == 0 {
		return []*dto.PostResponse{}, nil
	}

	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	reactions, err := s.store.Reactions().ListByPosts(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int64("courseId", courseID).Msg("Failed to list reactions")
		return nil, err
	}

	byPost := make(map[int64][]models.PostReaction, len(posts))
	for _, r := range reactions {
		byPost[r.PostID] = append(byPost[r.PostID], *r)
	}

	out := make([]*dto.PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, dto.NewPostResponse(p, byPost[p.ID], s.resolveFileURL(ctx, p)))
	}
	return out, nil
}

// resolveFileURL returns nil for text posts and for blobs that cannot be resolved
func (s *postServiceImpl) resolveFileURL(ctx context.Context, p *models.Post) *string {
	if p.FileRef == nil || *p.FileRef == "" {
		return nil
	}
	url, err := s.blobs.ResolveDownloadURL(ctx, *p.FileRef)
	if err != nil {
		if !errors.Is(err, filestorage.ErrObjectNotFound) {
			s.logger.Warn().Err(err).Int64("postId", p.ID).Msg("Failed to resolve file URL")
		}
		return nil
	}
	return &url
}

// ToggleLike likes a post, or removes the like if the actor already liked it
func (s *postServiceImpl) ToggleLike(ctx context.Context, actor auth.Actor, postID int64) (*dto.ReactionResponse, error) {
	return s.toggle(ctx, actor, postID, models.ReactionLike)
}

// ToggleDislike dislikes a post, or removes the dislike if the actor already disliked it
func (s *postServiceImpl) ToggleDislike(ctx context.Context, actor auth.Actor, postID int64) (*dto.ReactionResponse, error) {
	return s.toggle(ctx, actor, postID, models.ReactionDislike)
}

// toggle moves the actor's single reaction row between none, like and dislike
func (s *postServiceImpl) toggle(ctx context.Context, actor auth.Actor, postID int64, kind models.ReactionKind) (*dto.ReactionResponse, error) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	resp := &dto.ReactionResponse{PostID: postID}
	var courseID int64
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		post, err := tx.Posts().GetByID(ctx, postID)
		if err != nil {
			return err
		}
		courseID = post.CourseID

		current, err := tx.Reactions().Get(ctx, postID, actor.ID)
		if err != nil {
			return err
		}

		next := kind
		if current == kind {
			next = models.ReactionNone
			err = tx.Reactions().Delete(ctx, postID, actor.ID)
		} else {
			err = tx.Reactions().Set(ctx, postID, actor.ID, kind)
		}
		if err != nil {
			return err
		}
		resp.State = dto.ReactionState(next)

		reactions, err := tx.Reactions().ListByPosts(ctx, []int64{postID})
		if err != nil {
			return err
		}
		for _, r := range reactions {
			switch r.Kind {
			case models.ReactionLike:
				resp.LikeCount++
			case models.ReactionDislike:
				resp.DislikeCount++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Int64("postId", postID).Str("actorId", actor.ID).Msg("Toggle reaction failed")
		return nil, err
	}

	s.events.Emit(ctx, events.Event{Type: events.PostReacted, ActorID: actor.ID, CourseID: courseID, PostID: &postID, Reaction: resp.State})
	return resp, nil
}

// ListAuthors returns the author of every post in a course, newest first
func (s *postServiceImpl) ListAuthors(ctx context.Context, courseID int64) ([]*dto.PostAuthorResponse, error) {
	posts, err := s.store.Posts().ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.PostAuthorResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, &dto.PostAuthorResponse{PostID: p.ID, AuthorID: p.AuthorID})
	}
	return out, nil
}

func validateTitle(title string) (string, error) {
	v := validation.NewStringValidation(title).WithMaxLength(validation.PostTitleMaxLength)
	if !v.Validate() {
		return "", apperrors.NewValidationError("title", "title is required and must be at most 200 characters")
	}
	return v.Value, nil
}

// asUpstream marks blob store failures as retryable
func asUpstream(err error) error {
	if errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		return err
	}
	return apperrors.NewUpstreamError("blob store", err)
}
