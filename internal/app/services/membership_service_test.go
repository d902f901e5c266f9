package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/pkg/apperrors"
	"github.com/bearshare/backend/internal/pkg/events"
)

func TestMembershipService_JoinIsIdempotent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "CSE 240 - Discrete Math", "CSE 240")

	first := join(t, env, u1, course.ID)
	assert.True(t, first.IsMember)
	assert.Equal(t, 1, first.MemberCount)

	second := join(t, env, u1, course.ID)
	assert.Equal(t, 1, second.MemberCount, "joining twice counts once")

	isMember, err := env.memberships.IsMember(ctx, u1, course.ID)
	require.NoError(t, err)
	assert.True(t, isMember)

	mine, err := env.memberships.MyCourses(ctx, u1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, course.ID, mine[0].ID)

	joined := 0
	for _, typ := range env.events.Types() {
		if typ == events.MemberJoined {
			joined++
		}
	}
	assert.Equal(t, 1, joined)
}

func TestMembershipService_Leave(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "Physics", "PHY 101")

	join(t, env, u1, course.ID)
	join(t, env, u2, course.ID)

	resp, err := env.memberships.Leave(ctx, u2, course.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsMember)
	assert.Equal(t, 1, resp.MemberCount)

	resp, err = env.memberships.Leave(ctx, u2, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.MemberCount, "leaving as a non-member is a no-op")

	got, err := env.courses.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MemberCount)
}

func TestMembershipService_LeaveNeverGoesNegative(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "Physics", "PHY 101")
	join(t, env, u1, course.ID)

	// simulate a drifted cache
	require.NoError(t, env.store.Courses().SetMemberCount(ctx, course.ID, 0))

	resp, err := env.memberships.Leave(ctx, u1, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.MemberCount)
}

func TestMembershipService_Errors(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.memberships.Join(ctx, anon, 1)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = env.memberships.Leave(ctx, anon, 1)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = env.memberships.Join(ctx, u1, 404)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	left, err := env.memberships.Leave(ctx, u1, 404)
	require.NoError(t, err, "leaving a missing course is a no-op")
	assert.Equal(t, &dto.MembershipResponse{CourseID: 404}, left)

	mine, err := env.memberships.MyCourses(ctx, u1)
	require.NoError(t, err)
	assert.Empty(t, mine, "a failed join leaves no membership behind")
}

func TestMembershipService_AnonymousReadsDegrade(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "Physics", "PHY 101")

	isMember, err := env.memberships.IsMember(ctx, anon, course.ID)
	require.NoError(t, err)
	assert.False(t, isMember)

	mine, err := env.memberships.MyCourses(ctx, anon)
	require.NoError(t, err)
	assert.NotNil(t, mine)
	assert.Empty(t, mine)

	status, err := env.memberships.MembershipStatus(ctx, anon, []int64{course.ID, 77})
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{course.ID: false, 77: false}, status)
}

func TestMembershipService_MembershipStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	a := createCourse(t, env, "A", "A 1")
	b := createCourse(t, env, "B", "B 1")
	join(t, env, u1, b.ID)

	status, err := env.memberships.MembershipStatus(ctx, u1, []int64{a.ID, b.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{a.ID: false, b.ID: true, 999: false}, status)
}

func TestMembershipService_MyCoursesDropsMissingCourses(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	b := createCourse(t, env, "B", "B 1")
	a := createCourse(t, env, "A", "A 1")

	join(t, env, u1, a.ID)
	join(t, env, u1, b.ID)
	// a membership pointing at a course row that no longer exists
	_, err := env.store.Memberships().Add(ctx, u1.ID, 4242)
	require.NoError(t, err)

	mine, err := env.memberships.MyCourses(ctx, u1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a.ID, mine[0].ID, "join order")
	assert.Equal(t, b.ID, mine[1].ID)
}

func TestMembershipService_CountMatchesRows(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	course := createCourse(t, env, "Physics", "PHY 101")

	steps := []struct {
		join  bool
		actor string
	}{
		{true, "a"}, {true, "b"}, {true, "a"}, {false, "c"}, {true, "c"}, {false, "a"}, {false, "a"}, {true, "d"},
	}
	for _, step := range steps {
		actor := u1
		actor.ID = step.actor
		var err error
		if step.join {
			_, err = env.memberships.Join(ctx, actor, course.ID)
		} else {
			_, err = env.memberships.Leave(ctx, actor, course.ID)
		}
		require.NoError(t, err)
	}

	counts, err := env.store.Memberships().CountsByCourse(ctx)
	require.NoError(t, err)
	got, err := env.courses.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[course.ID])
	assert.Equal(t, counts[course.ID], got.MemberCount)
}

func TestMembershipService_Reconcile(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	a := createCourse(t, env, "A", "A 1")
	b := createCourse(t, env, "B", "B 1")
	join(t, env, u1, a.ID)
	join(t, env, u2, a.ID)
	require.NoError(t, env.store.Courses().SetMemberCount(ctx, a.ID, 5))
	require.NoError(t, env.store.Courses().SetMemberCount(ctx, b.ID, 2))

	_, err := env.memberships.ReconcileMemberCounts(ctx, u1)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	report, err := env.memberships.ReconcileMemberCounts(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Drifted, 2)
	assert.Equal(t, a.ID, report.Drifted[0].CourseID)
	assert.Equal(t, 5, report.Drifted[0].Stored)
	assert.Equal(t, 2, report.Drifted[0].Actual)

	got, err := env.courses.GetCourse(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MemberCount)

	report, err = env.memberships.ReconcileMemberCounts(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, report.Drifted)
}

func TestReconciler_RunsUntilCancelled(t *testing.T) {
	env := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	course := createCourse(t, env, "A", "A 1")
	require.NoError(t, env.store.Courses().SetMemberCount(ctx, course.ID, 3))

	done := make(chan struct{})
	go func() {
		NewReconciler(env.memberships, 5*time.Millisecond, zerolog.Nop()).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		got, err := env.courses.GetCourse(context.Background(), course.ID)
		return err == nil && got.MemberCount == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}

	// disabled reconciler returns at once
	NewReconciler(env.memberships, 0, zerolog.Nop()).Run(context.Background())
}
