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
	"github.com/bearshare/backend/internal/pkg/validation"
)

// CourseService defines the interface for the course registry
type CourseService interface {
	SubmitRequest(ctx context.Context, req *dto.SubmitCourseRequestRequest) (*dto.SubmitCourseRequestResponse, error)
	// ListPendingRequests returns nil, not an empty list, for non-admin actors.
	ListPendingRequests(ctx context.Context, actor auth.Actor) ([]*dto.CourseRequestResponse, error)
	ListRequests(ctx context.Context, actor auth.Actor, status string) ([]*dto.CourseRequestResponse, error)
	CreateCourse(ctx context.Context, actor auth.Actor, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	ApproveRequest(ctx context.Context, actor auth.Actor, requestID int64) (*dto.CourseResponse, error)
	RejectRequest(ctx context.Context, actor auth.Actor, requestID int64) (*dto.CourseRequestResponse, error)
	GetCourse(ctx context.Context, id int64) (*dto.CourseResponse, error)
	ListAllCourses(ctx context.Context) ([]*dto.CourseResponse, error)
}

// courseServiceImpl implements CourseService
type courseServiceImpl struct {
	store    repositories.Store
	events   *events.Emitter
	notifier *Notifier
	logger   zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(store repositories.Store, emitter *events.Emitter, notifier *Notifier, logger zerolog.Logger) CourseService {
	return &courseServiceImpl{
		store:    store,
		events:   emitter,
		notifier: notifier,
		logger:   logger,
	}
}

// SubmitRequest stores a pending course request. Anyone may call it.
func (s *courseServiceImpl) SubmitRequest(ctx context.Context, req *dto.SubmitCourseRequestRequest) (*dto.SubmitCourseRequestResponse, error) {
	name, tag, err := validateCourseFields("className", req.ClassName, "classTag", req.ClassTag)
	if err != nil {
		return nil, err
	}

	var description *string
	if req.Description != nil {
		v := validation.NewStringValidation(*req.Description).WithRequired(false).WithMaxLength(validation.DescriptionMaxLength)
		if !v.Validate() {
			return nil, apperrors.NewValidationError("description", "description is too long")
		}
		if v.Value != "" {
			description = &v.Value
		}
	}

	courseRequest := &models.CourseRequest{
		ClassName:   name,
		ClassTag:    tag,
		Description: description,
		Status:      models.RequestPending,
	}
	id, err := s.store.CourseRequests().Create(ctx, courseRequest)
	if err != nil {
		s.logger.Error().Err(err).Str("classTag", tag).Msg("Failed to create course request")
		return nil, err
	}
	courseRequest.ID = id

	s.logger.Info().Int64("requestId", id).Str("classTag", tag).Msg("Course request submitted")
	s.events.Emit(ctx, events.Event{Type: events.CourseRequested, RequestID: &id})
	s.notifier.CourseRequested(courseRequest)

	return &dto.SubmitCourseRequestResponse{ID: id, Status: string(models.RequestPending)}, nil
}

// ListPendingRequests lists pending requests oldest first
func (s *courseServiceImpl) ListPendingRequests(ctx context.Context, actor auth.Actor) ([]*dto.CourseRequestResponse, error) {
	if !actor.IsAdmin() {
		s.logger.Debug().Str("actorId", actor.ID).Msg("Non-admin asked for pending course requests")
		return nil, nil
	}
	return s.listByStatus(ctx, models.RequestPending)
}

// ListRequests lists requests with the given status, or all of them.
// Non-admins get nil, like ListPendingRequests.
func (s *courseServiceImpl) ListRequests(ctx context.Context, actor auth.Actor, status string) ([]*dto.CourseRequestResponse, error) {
	if !actor.IsAdmin() {
		s.logger.Debug().Str("actorId", actor.ID).Str("status", status).Msg("Non-admin asked for course requests")
		return nil, nil
	}

	st := models.RequestStatus(status)
	if st != "" && !st.IsValid() {
		return nil, apperrors.NewValidationError("status", "status must be one of: pending, approved, rejected")
	}
	return s.listByStatus(ctx, st)
}

func (s *courseServiceImpl) listByStatus(ctx context.Context, status models.RequestStatus) ([]*dto.CourseRequestResponse, error) {
	requests, err := s.store.CourseRequests().ListByStatus(ctx, status)
	if err != nil {
		s.logger.Error().Err(err).Str("status", string(status)).Msg("Failed to list course requests")
		return nil, err
	}

	out := make([]*dto.CourseRequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, dto.NewCourseRequestResponse(r))
	}
	return out, nil
}

// CreateCourse creates a course directly. Admin only.
func (s *courseServiceImpl) CreateCourse(ctx context.Context, actor auth.Actor, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	name, tag, err := validateCourseFields("name", req.Name, "tag", req.Tag)
	if err != nil {
		return nil, err
	}

	course := &models.Course{Name: name, Tag: tag}
	if _, err := s.store.Courses().Create(ctx, course); err != nil {
		s.logger.Error().Err(err).Str("tag", tag).Msg("Failed to create course")
		return nil, err
	}

	s.logger.Info().Int64("courseId", course.ID).Str("actorId", actor.ID).Msg("Course created")
	s.events.Emit(ctx, events.Event{Type: events.CourseCreated, ActorID: actor.ID, CourseID: course.ID})
	return dto.NewCourseResponse(course), nil
}

// ApproveRequest creates the course and marks the request approved in one
// transaction. A request that is not pending is left untouched.
func (s *courseServiceImpl) ApproveRequest(ctx context.Context, actor auth.Actor, requestID int64) (*dto.CourseResponse, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var course *models.Course
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		req, err := tx.CourseRequests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return apperrors.ErrCourseRequestNotPending
		}

		course = &models.Course{Name: req.ClassName, Tag: req.ClassTag}
		if _, err := tx.Courses().Create(ctx, course); err != nil {
			return err
		}

		resolved, err := tx.CourseRequests().Resolve(ctx, requestID, models.RequestApproved, &course.ID)
		if err != nil {
			return err
		}
		if !resolved {
			// lost a race with another resolution; roll the course back
			return apperrors.ErrCourseRequestNotPending
		}
		return nil
	})
	if err != nil {
		s.logResolveError(err, requestID, "approve")
		return nil, err
	}

	s.logger.Info().Int64("requestId", requestID).Int64("courseId", course.ID).Msg("Course request approved")
	s.events.Emit(ctx, events.Event{Type: events.CourseRequestApproved, ActorID: actor.ID, CourseID: course.ID, RequestID: &requestID})
	return dto.NewCourseResponse(course), nil
}

// RejectRequest marks a pending request rejected
func (s *courseServiceImpl) RejectRequest(ctx context.Context, actor auth.Actor, requestID int64) (*dto.CourseRequestResponse, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var rejected *models.CourseRequest
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if _, err := tx.CourseRequests().GetByID(ctx, requestID); err != nil {
			return err
		}
		resolved, err := tx.CourseRequests().Resolve(ctx, requestID, models.RequestRejected, nil)
		if err != nil {
			return err
		}
		if !resolved {
			return apperrors.ErrCourseRequestNotPending
		}
		rejected, err = tx.CourseRequests().GetByID(ctx, requestID)
		return err
	})
	if err != nil {
		s.logResolveError(err, requestID, "reject")
		return nil, err
	}

	s.logger.Info().Int64("requestId", requestID).Msg("Course request rejected")
	s.events.Emit(ctx, events.Event{Type: events.CourseRequestRejected, ActorID: actor.ID, RequestID: &requestID})
	return dto.NewCourseRequestResponse(rejected), nil
}

func (s *courseServiceImpl) logResolveError(err error, requestID int64, action string) {
	if errors.Is(err, apperrors.ErrResourceNotFound) || errors.Is(err, apperrors.ErrInvalidStateTransition) {
		s.logger.Debug().Err(err).Int64("requestId", requestID).Str("action", action).Msg("Course request not resolvable")
		return
	}
	s.logger.Error().Err(err).Int64("requestId", requestID).Str("action", action).Msg("Failed to resolve course request")
}

// GetCourse returns a single course
func (s *courseServiceImpl) GetCourse(ctx context.Context, id int64) (*dto.CourseResponse, error) {
	course, err := s.store.Courses().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponse(course), nil
}

// ListAllCourses returns every course in creation order
func (s *courseServiceImpl) ListAllCourses(ctx context.Context) ([]*dto.CourseResponse, error) {
	courses, err := s.store.Courses().GetAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list courses")
		return nil, err
	}
	return dto.NewCourseListResponse(courses), nil
}

func validateCourseFields(nameField, name, tagField, tag string) (string, string, error) {
	nameV := validation.NewStringValidation(name).WithMaxLength(validation.CourseNameMaxLength)
	if !nameV.Validate() {
		return "", "", apperrors.NewValidationError(nameField, nameField+" is required and must be at most 120 characters")
	}
	tagV := validation.NewStringValidation(tag).
		WithMaxLength(validation.CourseTagMaxLength).
		WithPattern(validation.CompiledPatterns.CourseTag)
	if !tagV.Validate() {
		return "", "", apperrors.NewValidationError(tagField, tagField+" may only contain letters, digits, spaces, dots and dashes")
	}
	return nameV.Value, tagV.Value, nil
}
