// Package memory implements repositories.Store in process memory. It backs
// the test suites and the `memory` database driver.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bearshare/backend/internal/app/models"
	"github.com/bearshare/backend/internal/app/repositories"
)

type membershipKey struct {
	actorID  string
	courseID int64
}

type reactionKey struct {
	postID  int64
	actorID string
}

type reactionRow struct {
	kind models.ReactionKind
	seq  int64
}

type state struct {
	seq         int64
	courses     map[int64]models.Course
	requests    map[int64]models.CourseRequest
	memberships map[membershipKey]models.Membership
	posts       map[int64]models.Post
	reactions   map[reactionKey]reactionRow
}

func newState() *state {
	return &state{
		courses:     make(map[int64]models.Course),
		requests:    make(map[int64]models.CourseRequest),
		memberships: make(map[membershipKey]models.Membership),
		posts:       make(map[int64]models.Post),
		reactions:   make(map[reactionKey]reactionRow),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.memberships {
		c.memberships[k] = v
	}
	for k, v := range s.posts {
		c.posts[k] = v
	}
	for k, v := range s.reactions {
		c.reactions[k] = v
	}
	return c
}

// guard acquires the store lock and returns the matching release func.
type guard func() func()

func noopGuard() func() { return func() {} }

// Store is an in-memory repositories.Store. Ids come from one shared
// sequence, so they also order rows by creation.
type Store struct {
	mu    sync.Mutex
	data  *state
	lock  guard
	inTx  bool
	clock func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	s := &Store{data: newState(), clock: time.Now}
	s.lock = func() func() {
		s.mu.Lock()
		return s.mu.Unlock
	}
	return s
}

// SetClock overrides the time source used for created_at columns
func (s *Store) SetClock(clock func() time.Time) {
	s.clock = clock
}

func (s *Store) Courses() repositories.CourseRepository {
	return &courseRepo{store: s}
}

func (s *Store) CourseRequests() repositories.CourseRequestRepository {
	return &courseRequestRepo{store: s}
}

func (s *Store) Memberships() repositories.MembershipRepository {
	return &membershipRepo{store: s}
}

func (s *Store) Posts() repositories.PostRepository {
	return &postRepo{store: s}
}

func (s *Store) Reactions() repositories.ReactionRepository {
	return &reactionRepo{store: s}
}

// WithTx serialises fn against every other store operation and restores the
// previous state when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{data: s.data, lock: noopGuard, inTx: true, clock: s.clock}

	committed := false
	defer func() {
		if !committed {
			*s.data = *snapshot
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	committed = true
	return nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
