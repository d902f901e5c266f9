package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/bearshare/backend/internal/app/auth"
	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/app/repositories"
	"github.com/bearshare/backend/internal/pkg/apperrors"
	"github.com/bearshare/backend/internal/pkg/events"
)

// MembershipService defines the interface for the membership ledger
type MembershipService interface {
	Join(ctx context.Context, actor auth.Actor, courseID int64) (*dto.MembershipResponse, error)
	Leave(ctx context.Context, actor auth.Actor, courseID int64) (*dto.MembershipResponse, error)
	IsMember(ctx context.Context, actor auth.Actor, courseID int64) (bool, error)
	MyCourses(ctx context.Context, actor auth.Actor) ([]*dto.CourseResponse, error)
	MembershipStatus(ctx context.Context, actor auth.Actor, courseIDs []int64) (map[int64]bool, error)
	ReconcileMemberCounts(ctx context.Context, actor auth.Actor) (*dto.ReconcileResponse, error)
}

// membershipServiceImpl implements MembershipService
type membershipServiceImpl struct {
	store  repositories.Store
	events *events.Emitter
	logger zerolog.Logger
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(store repositories.Store, emitter *events.Emitter, logger zerolog.Logger) MembershipService {
	return &membershipServiceImpl{
		store:  store,
		events: emitter,
		logger: logger,
	}
}

// Join adds the actor to a course. Joining twice changes nothing.
func (s *membershipServiceImpl) Join(ctx context.Context, actor auth.Actor, courseID int64) (*dto.MembershipResponse, error) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	var (
		inserted bool
		count    int
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if _, err := tx.Courses().GetByID(ctx, courseID); err != nil {
			return err
		}

		var err error
		inserted, err = tx.Memberships().Add(ctx, actor.ID, courseID)
		if err != nil {
			return err
		}
		if inserted {
			if err := tx.Courses().AdjustMemberCount(ctx, courseID, 1); err != nil {
				return err
			}
		}

		course, err := tx.Courses().GetByID(ctx, courseID)
		if err != nil {
			return err
		}
		count = course.MemberCount
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("actorId", actor.ID).Int64("courseId", courseID).Msg("Join failed")
		return nil, err
	}

	if inserted {
		s.logger.Info().Str("actorId", actor.ID).Int64("courseId", courseID).Msg("Actor joined course")
		s.events.Emit(ctx, events.Event{Type: events.MemberJoined, ActorID: actor.ID, CourseID: courseID})
	}
	return &dto.MembershipResponse{CourseID: courseID, IsMember: true, MemberCount: count}, nil
}

// Leave removes the actor from a course. Leaving as a non-member, or leaving
// a course that does not exist, changes nothing.
func (s *membershipServiceImpl) Leave(ctx context.Context, actor auth.Actor, courseID int64) (*dto.MembershipResponse, error) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	var (
		removed bool
		missing bool
		count   int
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if _, err := tx.Courses().GetByID(ctx, courseID); err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				missing = true
				return nil
			}
			return err
		}

		var err error
		removed, err = tx.Memberships().Remove(ctx, actor.ID, courseID)
		if err != nil {
			return err
		}
		if removed {
			if err := tx.Courses().AdjustMemberCount(ctx, courseID, -1); err != nil {
				return err
			}
		}

		course, err := tx.Courses().GetByID(ctx, courseID)
		if err != nil {
			return err
		}
		count = course.MemberCount
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("actorId", actor.ID).Int64("courseId", courseID).Msg("Leave failed")
		return nil, err
	}
	if missing {
		s.logger.Debug().Str("actorId", actor.ID).Int64("courseId", courseID).Msg("Leave on a missing course ignored")
	}

	if removed {
		s.logger.Info().Str("actorId", actor.ID).Int64("courseId", courseID).Msg("Actor left course")
		s.events.Emit(ctx, events.Event{Type: events.MemberLeft, ActorID: actor.ID, CourseID: courseID})
	}
	return &dto.MembershipResponse{CourseID: courseID, IsMember: false, MemberCount: count}, nil
}

// IsMember is false for unauthenticated actors
func (s *membershipServiceImpl) IsMember(ctx context.Context, actor auth.Actor, courseID int64) (bool, error) {
	if !actor.IsAuthenticated() {
		return false, nil
	}
	return s.store.Memberships().Exists(ctx, actor.ID, courseID)
}

// MyCourses lists the actor's courses in join order, skipping courses that no longer exist
func (s *membershipServiceImpl) MyCourses(ctx context.Context, actor auth.Actor) ([]*dto.CourseResponse, error) {
	if !actor.IsAuthenticated() {
		return []*dto.CourseResponse{}, nil
	}

	ids, err := s.store.Memberships().CourseIDsByActor(ctx, actor.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("actorId", actor.ID).Msg("Failed to list memberships")
		return nil, err
	}
	if len(ids) == 0 {
		return []*dto.CourseResponse{}, nil
	}

	courses, err := s.store.Courses().GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	position := make(map[int64]int, len(ids))
	for i, id := range ids {
		if _, ok := position[id]; !ok {
			position[id] = i
		}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		return position[courses[i].ID] < position[courses[j].ID]
	})

	if len(courses) < len(ids) {
		s.logger.Debug().Str("actorId", actor.ID).Int("dropped", len(ids)-len(courses)).Msg("Memberships reference missing courses")
	}
	return dto.NewCourseListResponse(courses), nil
}

// MembershipStatus answers IsMember for several courses. Every id is present in the result.
func (s *membershipServiceImpl) MembershipStatus(ctx context.Context, actor auth.Actor, courseIDs []int64) (map[int64]bool, error) {
	status := make(map[int64]bool, len(courseIDs))
	for _, id := range courseIDs {
		status[id] = false
	}
	if !actor.IsAuthenticated() || len(courseIDs) == 0 {
		return status, nil
	}

	joined, err := s.store.Memberships().CourseIDsByActor(ctx, actor.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("actorId", actor.ID).Msg("Failed to list memberships")
		return nil, err
	}
	for _, id := range joined {
		if _, asked := status[id]; asked {
			status[id] = true
		}
	}
	return status, nil
}

// ReconcileMemberCounts recomputes every course's member count from the
// membership rows and reports the courses whose stored count had drifted.
func (s *membershipServiceImpl) ReconcileMemberCounts(ctx context.Context, actor auth.Actor) (*dto.ReconcileResponse, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	result := &dto.ReconcileResponse{Drifted: []dto.MemberCountDrift{}}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		counts, err := tx.Memberships().CountsByCourse(ctx)
		if err != nil {
			return err
		}
		courses, err := tx.Courses().GetAll(ctx)
		if err != nil {
			return err
		}

		result.Checked = len(courses)
		for _, course := range courses {
			actual := counts[course.ID]
			if course.MemberCount == actual {
				continue
			}
			if err := tx.Courses().SetMemberCount(ctx, course.ID, actual); err != nil {
				return err
			}
			result.Drifted = append(result.Drifted, dto.MemberCountDrift{
				CourseID: course.ID,
				Stored:   course.MemberCount,
				Actual:   actual,
			})
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Member count reconciliation failed")
		return nil, err
	}

	if len(result.Drifted) > 0 {
		s.logger.Warn().Int("drifted", len(result.Drifted)).Str("actorId", actor.ID).Msg("Member counts corrected")
		s.events.Emit(ctx, events.Event{Type: events.MemberCountsFixed, ActorID: actor.ID})
	}
	return result, nil
}

// Reconciler runs ReconcileMemberCounts on a fixed interval
type Reconciler struct {
	memberships MembershipService
	interval    time.Duration
	logger      zerolog.Logger
}

// NewReconciler creates a Reconciler. A non-positive interval disables it.
func NewReconciler(memberships MembershipService, interval time.Duration, logger zerolog.Logger) *Reconciler {
	return &Reconciler{memberships: memberships, interval: interval, logger: logger}
}

// Run blocks until ctx is done
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info().Msg("Member count reconciler disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("Member count reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Member count reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.memberships.ReconcileMemberCounts(ctx, auth.System()); err != nil {
				r.logger.Error().Err(err).Msg("Scheduled reconciliation failed")
			}
		}
	}
}
