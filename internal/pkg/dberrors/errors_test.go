package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConstraintClassification(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "by_user_and_course"}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "posts_course_id_fkey"}
	wrapped := fmt.Errorf("error executing query: %w", fk)

	assert.True(t, IsDuplicateConstraintError(unique, "by_user_and_course"))
	assert.False(t, IsDuplicateConstraintError(unique, "other"))
	assert.False(t, IsDuplicateConstraintError(fk, "posts_course_id_fkey"))

	assert.True(t, IsForeignKeyViolation(wrapped, ""))
	assert.True(t, IsForeignKeyViolation(wrapped, "posts_course_id_fkey"))
	assert.False(t, IsForeignKeyViolation(wrapped, "course_memberships_course_id_fkey"))
	assert.False(t, IsForeignKeyViolation(errors.New("boom"), ""))
}
