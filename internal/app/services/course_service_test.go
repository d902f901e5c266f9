package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearshare/backend/internal/app/auth"
	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/pkg/apperrors"
	"github.com/bearshare/backend/internal/pkg/events"
)

func TestCourseService_CreateAndGet(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	course := createCourse(t, env, "CSE 240 - Discrete Math", "CSE 240")
	assert.Equal(t, 0, course.MemberCount)

	got, err := env.courses.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "CSE 240 - Discrete Math", got.Name)
	assert.Equal(t, "CSE 240", got.Tag)

	_, err = env.courses.GetCourse(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	all, err := env.courses.ListAllCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCourseService_CreateCourseRequiresAdmin(t *testing.T) {
	env := setup(t)
	req := &dto.CreateCourseRequest{Name: "Physics", Tag: "PHY 101"}

	tests := []struct {
		name    string
		actor   auth.Actor
		wantErr error
	}{
		{"anonymous", anon, apperrors.ErrUnauthenticated},
		{"member", u1, apperrors.ErrPermissionDenied},
		{"legacy admin secret", auth.Actor{ID: auth.AdminActorID, Admin: true, Source: auth.SourceAdminSecret}, nil},
		{"admin role", admin, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.courses.CreateCourse(context.Background(), tt.actor, req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCourseService_CreateCourseValidates(t *testing.T) {
	env := setup(t)

	_, err := env.courses.CreateCourse(context.Background(), admin, &dto.CreateCourseRequest{Name: "  ", Tag: "X 1"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = env.courses.CreateCourse(context.Background(), admin, &dto.CreateCourseRequest{Name: "Chem", Tag: "<b>"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestCourseService_SubmitAndListPending(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	first, err := env.courses.SubmitRequest(ctx, &dto.SubmitCourseRequestRequest{ClassName: "Org Chem", ClassTag: "CHEM 201"})
	require.NoError(t, err)
	assert.Equal(t, "pending", first.Status)

	desc := "second semester"
	second, err := env.courses.SubmitRequest(ctx, &dto.SubmitCourseRequestRequest{ClassName: "Calculus", ClassTag: "MAT 102", Description: &desc})
	require.NoError(t, err)

	pending, err := env.courses.ListPendingRequests(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "creation order")
	assert.Equal(t, second.ID, pending[1].ID)
	assert.Equal(t, "CHEM 201", pending[0].ClassTag)
	assert.Equal(t, &desc, pending[1].Description)

	for _, actor := range []auth.Actor{anon, u1} {
		got, err := env.courses.ListPendingRequests(ctx, actor)
		require.NoError(t, err)
		assert.Nil(t, got, "non-admins get no data")
	}

	env.notifier.Wait()
	assert.ElementsMatch(t, []string{
		"admin@bearshare.test|New course request: CHEM 201",
		"admin@bearshare.test|New course request: MAT 102",
	}, env.mail.sent)
}

func TestCourseService_ApproveRequest(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	submitted, err := env.courses.SubmitRequest(ctx, &dto.SubmitCourseRequestRequest{ClassName: "Org Chem", ClassTag: "CHEM 201"})
	require.NoError(t, err)

	_, err = env.courses.ApproveRequest(ctx, u1, submitted.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	course, err := env.courses.ApproveRequest(ctx, admin, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, "Org Chem", course.Name)
	assert.Equal(t, "CHEM 201", course.Tag)
	assert.Equal(t, 0, course.MemberCount)

	_, err = env.courses.ApproveRequest(ctx, admin, submitted.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	_, err = env.courses.RejectRequest(ctx, admin, submitted.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	all, err := env.courses.ListAllCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "a second approval never creates a second course")

	approved, err := env.courses.ListRequests(ctx, admin, "approved")
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.NotNil(t, approved[0].CourseID)
	assert.Equal(t, course.ID, *approved[0].CourseID)
	assert.NotNil(t, approved[0].ResolvedAt)

	pending, err := env.courses.ListPendingRequests(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.NotNil(t, pending, "admins get an empty list, not null")

	assert.Contains(t, env.events.Types(), events.CourseRequestApproved)
}

func TestCourseService_RejectRequest(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	submitted, err := env.courses.SubmitRequest(ctx, &dto.SubmitCourseRequestRequest{ClassName: "Astrology", ClassTag: "AST 666"})
	require.NoError(t, err)

	rejected, err := env.courses.RejectRequest(ctx, admin, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Nil(t, rejected.CourseID)

	_, err = env.courses.ApproveRequest(ctx, admin, submitted.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	_, err = env.courses.RejectRequest(ctx, admin, 12345)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	all, err := env.courses.ListAllCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCourseService_ListRequests(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.courses.SubmitRequest(ctx, &dto.SubmitCourseRequestRequest{ClassName: "A", ClassTag: "A 1"})
	require.NoError(t, err)

	for _, status := range []string{"", "pending", "archived"} {
		got, err := env.courses.ListRequests(ctx, u1, status)
		require.NoError(t, err)
		assert.Nil(t, got, "non-admins see no requests for status %q", status)

		got, err = env.courses.ListPendingRequests(ctx, u1)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	_, err = env.courses.ListRequests(ctx, admin, "archived")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	all, err := env.courses.ListRequests(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
