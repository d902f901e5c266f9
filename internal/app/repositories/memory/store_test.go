package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearshare/backend/internal/app/models"
	"github.com/bearshare/backend/internal/app/repositories"
	"github.com/bearshare/backend/internal/pkg/apperrors"
)

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	course := &models.Course{Name: "Discrete Math", Tag: "CSE 240"}
	_, err := store.Courses().Create(ctx, course)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if _, err := tx.Memberships().Add(ctx, "u1", course.ID); err != nil {
			return err
		}
		if err := tx.Courses().AdjustMemberCount(ctx, course.ID, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Courses().GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MemberCount)

	member, err := store.Memberships().Exists(ctx, "u1", course.ID)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestStore_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var courseID int64
	err := store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		id, err := tx.Courses().Create(ctx, &models.Course{Name: "Org Chem", Tag: "CHEM 201"})
		courseID = id
		return err
	})
	require.NoError(t, err)

	_, err = store.Courses().GetByID(ctx, courseID)
	assert.NoError(t, err)
}

func TestStore_MemberCountNeverNegative(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	course := &models.Course{Name: "Physics", Tag: "PHYS 7A"}
	_, err := store.Courses().Create(ctx, course)
	require.NoError(t, err)

	require.NoError(t, store.Courses().AdjustMemberCount(ctx, course.ID, -3))

	got, err := store.Courses().GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MemberCount)
}

func TestStore_ResolveOnlyPending(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	req := &models.CourseRequest{ClassName: "Org Chem", ClassTag: "CHEM 201", Status: models.RequestPending}
	_, err := store.CourseRequests().Create(ctx, req)
	require.NoError(t, err)

	ok, err := store.CourseRequests().Resolve(ctx, req.ID, models.RequestRejected, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CourseRequests().Resolve(ctx, req.ID, models.RequestApproved, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.CourseRequests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, got.Status)
	assert.NotNil(t, got.ResolvedAt)

	_, err = store.CourseRequests().GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestStore_FeedOrderNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	course := &models.Course{Name: "Linear Algebra", Tag: "MATH 54"}
	_, err := store.Courses().Create(ctx, course)
	require.NoError(t, err)

	content := "hello"
	for _, title := range []string{"first", "second", "third"} {
		_, err := store.Posts().Create(ctx, &models.Post{CourseID: course.ID, AuthorID: "u1", Title: title, Content: &content})
		require.NoError(t, err)
	}

	posts, err := store.Posts().ListByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "third", posts[0].Title)
	assert.Equal(t, "first", posts[2].Title)
}

func TestStore_ReactionsOnePerActor(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	course := &models.Course{Name: "Data 8", Tag: "DATA C8"}
	_, err := store.Courses().Create(ctx, course)
	require.NoError(t, err)
	content := "x"
	post := &models.Post{CourseID: course.ID, AuthorID: "u1", Title: "t", Content: &content}
	_, err = store.Posts().Create(ctx, post)
	require.NoError(t, err)

	require.NoError(t, store.Reactions().Set(ctx, post.ID, "u2", models.ReactionLike))
	require.NoError(t, store.Reactions().Set(ctx, post.ID, "u2", models.ReactionDislike))

	reactions, err := store.Reactions().ListByPosts(ctx, []int64{post.ID})
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, models.ReactionDislike, reactions[0].Kind)

	assert.ErrorIs(t, store.Reactions().Set(ctx, 12345, "u2", models.ReactionLike), apperrors.ErrPostNotFound)
}
