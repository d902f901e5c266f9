package auth

import (
	"github.com/bearshare/backend/internal/pkg/apperrors"
)

// RequireAuthenticated fails with ErrUnauthenticated for anonymous actors
func RequireAuthenticated(actor Actor) error {
	if !actor.IsAuthenticated() {
		return apperrors.ErrUnauthenticated
	}
	return nil
}

// RequireAdmin is the single admin gate used by every admin-only operation
func RequireAdmin(actor Actor) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperrors.ErrAdminRequired
	}
	return nil
}

// CanPostIn reports whether actor may post in a course, given whether they
// are a member. Admins bypass the membership requirement.
func CanPostIn(actor Actor, isMember bool) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	if actor.IsAdmin() || isMember {
		return nil
	}
	return apperrors.ErrNotCourseMember
}
