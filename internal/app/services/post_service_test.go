package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearshare/backend/internal/app/auth"
	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/pkg/apperrors"
	"github.com/bearshare/backend/internal/pkg/events"
)

func TestPostService_NonMemberCannotPost(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "Physics", "PHY 101")

	_, err := env.posts.CreateTextPost(ctx, u2, course.ID, &dto.CreateTextPostRequest{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	posts, err := env.posts.ListPosts(ctx, course.ID)
	require.NoError(t, err)
	assert.Empty(t, posts, "no post row was created")
}

func TestPostService_CreateTextPost(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "Physics", "PHY 101")
	join(t, env, u1, course.ID)

	tests := []struct {
		name     string
		actor    auth.Actor
		courseID int64
		req      dto.CreateTextPostRequest
		wantErr  error
	}{
		{"anonymous", anon, course.ID, dto.CreateTextPostRequest{Title: "t", Content: "c"}, apperrors.ErrUnauthenticated},
		{"missing course", u1, 999, dto.CreateTextPostRequest{Title: "t", Content: "c"}, apperrors.ErrResourceNotFound},
		{"empty title", u1, course.ID, dto.CreateTextPostRequest{Title: " ", Content: "c"}, apperrors.ErrValidationFailed},
		{"empty content", u1, course.ID, dto.CreateTextPostRequest{Title: "t", Content: ""}, apperrors.ErrValidationFailed},
		{"member", u1, course.ID, dto.CreateTextPostRequest{Title: "Study group", Content: "Library 6pm"}, nil},
		{"admin bypasses membership", admin, course.ID, dto.CreateTextPostRequest{Title: "Welcome", Content: "Hi"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, err := env.posts.CreateTextPost(ctx, tt.actor, tt.courseID, &tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.actor.ID, post.AuthorID)
			assert.Equal(t, tt.req.Content, *post.Content)
			assert.Empty(t, post.Likes)
			assert.Empty(t, post.Dislikes)
			assert.Nil(t, post.FileURL)
		})
	}
}

func TestPostService_FilePostTwoPhase(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "Physics", "PHY 101")
	join(t, env, u1, course.ID)

	_, err := env.posts.RequestUploadURL(ctx, anon)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	target, err := env.posts.RequestUploadURL(ctx, u1)
	require.NoError(t, err)
	assert.NotEmpty(t, target.StorageRef)

	req := &dto.CreateFilePostRequest{Title: "Slides", StorageRef: target.StorageRef}
	_, err = env.posts.CreateFilePost(ctx, u1, course.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrUploadNotFound, "nothing uploaded yet")

	env.blobs.upload(target.StorageRef)
	post, err := env.posts.CreateFilePost(ctx, u1, course.ID, req)
	require.NoError(t, err)
	require.NotNil(t, post.FileURL)
	assert.Equal(t, "https://blobs.test/get/"+target.StorageRef, *post.FileURL)
	assert.Nil(t, post.Content)

	env.blobs.err = errBoom
	_, err = env.posts.CreateFilePost(ctx, u1, course.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)

	feed, err := env.posts.ListPosts(ctx, course.ID)
	require.NoError(t, err, "an unreachable blob store degrades the feed")
	require.Len(t, feed, 1)
	assert.Nil(t, feed[0].FileURL)
}

func TestPostService_UploadBelongsToOnePost(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	physics := createCourse(t, env, "Physics", "PHY 101")
	chemistry := createCourse(t, env, "Chemistry", "CHEM 101")
	join(t, env, u1, physics.ID)
	join(t, env, u2, physics.ID)
	join(t, env, u2, chemistry.ID)

	target, err := env.posts.RequestUploadURL(ctx, u1)
	require.NoError(t, err)
	env.blobs.upload(target.StorageRef)

	req := &dto.CreateFilePostRequest{Title: "Slides", StorageRef: target.StorageRef}
	post, err := env.posts.CreateFilePost(ctx, u1, physics.ID, req)
	require.NoError(t, err)
	require.NotNil(t, post.FileRef)

	for _, courseID := range []int64{physics.ID, chemistry.ID} {
		_, err = env.posts.CreateFilePost(ctx, u2, courseID, &dto.CreateFilePostRequest{Title: "Mine now", StorageRef: *post.FileRef})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	}
	_, err = env.posts.CreateFilePost(ctx, u1, physics.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrUploadAttached)

	feed, err := env.posts.ListPosts(ctx, chemistry.ID)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestPostService_FeedNewestFirst(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "Physics", "PHY 101")
	join(t, env, u1, course.ID)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		env.store.SetClock(func() time.Time { return at })
		_, err := env.posts.CreateTextPost(ctx, u1, course.ID, &dto.CreateTextPostRequest{Title: title, Content: "x"})
		require.NoError(t, err)
	}

	feed, err := env.posts.ListPosts(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{feed[0].Title, feed[1].Title, feed[2].Title})

	authors, err := env.posts.ListAuthors(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, authors, 3)
	assert.Equal(t, feed[0].ID, authors[0].PostID)
	assert.Equal(t, "u1", authors[0].AuthorID)

	empty, err := env.posts.ListPosts(ctx, 999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestPostService_ToggleReactions(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "Physics", "PHY 101")
	join(t, env, u1, course.ID)
	post, err := env.posts.CreateTextPost(ctx, u1, course.ID, &dto.CreateTextPostRequest{Title: "t", Content: "c"})
	require.NoError(t, err)

	feedFor := func() *dto.PostResponse {
		feed, err := env.posts.ListPosts(ctx, course.ID)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		return feed[0]
	}

	// like twice returns to the original state
	r, err := env.posts.ToggleLike(ctx, u2, post.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ReactionStateLiked, r.State)
	assert.Equal(t, 1, r.LikeCount)
	assert.Equal(t, []string{"u2"}, feedFor().Likes)

	r, err = env.posts.ToggleLike(ctx, u2, post.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ReactionStateNone, r.State)
	assert.Empty(t, feedFor().Likes)
	assert.Empty(t, feedFor().Dislikes)

	// like then dislike ends in dislikes only
	_, err = env.posts.ToggleLike(ctx, u2, post.ID)
	require.NoError(t, err)
	r, err = env.posts.ToggleDislike(ctx, u2, post.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ReactionStateDisliked, r.State)
	assert.Equal(t, 0, r.LikeCount)
	assert.Equal(t, 1, r.DislikeCount)

	view := feedFor()
	assert.Empty(t, view.Likes)
	assert.Equal(t, []string{"u2"}, view.Dislikes)

	// another actor's like is independent, and no membership is needed
	_, err = env.posts.ToggleLike(ctx, u1, post.ID)
	require.NoError(t, err)
	view = feedFor()
	assert.Equal(t, []string{"u1"}, view.Likes)
	assert.Equal(t, 1, view.LikeCount)
	assert.Equal(t, 1, view.DislikeCount)

	assert.Contains(t, env.events.Types(), events.PostReacted)
}

func TestPostService_ToggleErrors(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.posts.ToggleLike(ctx, anon, 1)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = env.posts.ToggleDislike(ctx, u1, 404)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}
