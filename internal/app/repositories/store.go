package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/bearshare/backend/internal/db"
)

// PostgresStore implements Store on top of a pgx pool or transaction.
type PostgresStore struct {
	pg *db.PostgresDB // nil inside a transaction
	q  db.DBTX
}

// NewPostgresStore creates a Store backed by the connection pool
func NewPostgresStore(pg *db.PostgresDB) *PostgresStore {
	return &PostgresStore{pg: pg, q: pg.Pool}
}

func (s *PostgresStore) Courses() CourseRepository { return NewCourseRepository(s.q) }

func (s *PostgresStore) CourseRequests() CourseRequestRepository {
	return NewCourseRequestRepository(s.q)
}

func (s *PostgresStore) Memberships() MembershipRepository { return NewMembershipRepository(s.q) }

func (s *PostgresStore) Posts() PostRepository { return NewPostRepository(s.q) }

func (s *PostgresStore) Reactions() ReactionRepository { return NewReactionRepository(s.q) }

// WithTx runs fn inside a database transaction
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.pg == nil {
		return fn(ctx, s)
	}
	return s.pg.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &PostgresStore{q: tx})
	})
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pg == nil {
		return errors.New("ping is not supported inside a transaction")
	}
	return s.pg.Pool.Ping(ctx)
}
