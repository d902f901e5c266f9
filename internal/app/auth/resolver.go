package auth

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bearshare/backend/internal/pkg/apperrors"
	pkgAuth "github.com/bearshare/backend/internal/pkg/auth"
)

// TokenVerifier verifies tokens issued by the external identity provider
type TokenVerifier interface {
	VerifyToken(raw string) (*pkgAuth.VerifiedToken, error)
}

// Resolver turns request credentials into an Actor.
type Resolver struct {
	verifier        TokenVerifier
	adminRole       string
	adminSecretHash string
	logger          zerolog.Logger
}

// NewResolver creates a Resolver. An empty adminSecretHash disables the
// legacy admin secret.
func NewResolver(verifier TokenVerifier, adminRole, adminSecretHash string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		verifier:        verifier,
		adminRole:       adminRole,
		adminSecretHash: adminSecretHash,
		logger:          logger,
	}
}

// LegacySecretEnabled reports whether the X-Admin-Secret path is active
func (r *Resolver) LegacySecretEnabled() bool {
	return r.adminSecretHash != ""
}

// Resolve returns the actor for a bearer token and/or admin secret.
//
// A present token is authoritative: if it fails verification the result is
// an anonymous actor together with an error wrapping apperrors.ErrTokenInvalid,
// and the admin secret is not consulted. Without a token a matching admin
// secret yields the admin sentinel actor.
func (r *Resolver) Resolve(bearerToken, adminSecret string) (Actor, error) {
	if bearerToken != "" {
		verified, err := r.verifier.VerifyToken(bearerToken)
		if err != nil {
			r.logger.Debug().Err(err).Msg("Token verification failed")
			return Anonymous(), fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
		}
		return Actor{
			ID:     verified.Subject,
			Issuer: verified.Issuer,
			Admin:  r.adminRole != "" && verified.Role == r.adminRole,
			Source: SourceToken,
		}, nil
	}

	if adminSecret != "" && r.LegacySecretEnabled() {
		if pkgAuth.CheckSecret(r.adminSecretHash, adminSecret) {
			return Actor{ID: AdminActorID, Admin: true, Source: SourceAdminSecret}, nil
		}
		r.logger.Warn().Msg("Rejected admin secret")
	}

	return Anonymous(), nil
}
