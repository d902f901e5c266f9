package auth

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearshare/backend/internal/pkg/apperrors"
	pkgAuth "github.com/bearshare/backend/internal/pkg/auth"
)

const secret = "resolver-test-secret"

func newResolver(t *testing.T, adminSecret string) *Resolver {
	t.Helper()
	verifier, err := pkgAuth.NewJWTVerifier(pkgAuth.VerifierConfig{HMACSecret: secret, RoleClaim: "role"})
	require.NoError(t, err)

	hash := ""
	if adminSecret != "" {
		hash, err = pkgAuth.HashSecret(adminSecret)
		require.NoError(t, err)
	}
	return NewResolver(verifier, "admin", hash, zerolog.Nop())
}

func issue(t *testing.T, subject, role string) string {
	t.Helper()
	token, err := pkgAuth.IssueToken(pkgAuth.IssuerConfig{Secret: secret, Issuer: "https://clerk.test"}, subject, role, time.Minute)
	require.NoError(t, err)
	return token
}

func TestResolver_Resolve(t *testing.T) {
	resolver := newResolver(t, "s3cret")

	tests := []struct {
		name        string
		token       string
		adminSecret string
		want        Actor
		wantErr     error
	}{
		{
			name: "no credentials",
			want: Anonymous(),
		},
		{
			name:  "valid token",
			token: issue(t, "user_1", ""),
			want:  Actor{ID: "user_1", Issuer: "https://clerk.test", Source: SourceToken},
		},
		{
			name:  "token with admin role",
			token: issue(t, "user_2", "admin"),
			want:  Actor{ID: "user_2", Issuer: "https://clerk.test", Admin: true, Source: SourceToken},
		},
		{
			name:  "token with another role",
			token: issue(t, "user_3", "moderator"),
			want:  Actor{ID: "user_3", Issuer: "https://clerk.test", Source: SourceToken},
		},
		{
			name:        "token wins over admin secret",
			token:       issue(t, "user_1", ""),
			adminSecret: "s3cret",
			want:        Actor{ID: "user_1", Issuer: "https://clerk.test", Source: SourceToken},
		},
		{
			name:        "admin secret",
			adminSecret: "s3cret",
			want:        Actor{ID: AdminActorID, Admin: true, Source: SourceAdminSecret},
		},
		{
			name:        "wrong admin secret",
			adminSecret: "guess",
			want:        Anonymous(),
		},
		{
			name:        "invalid token never falls back to the secret",
			token:       "abc.def.ghi",
			adminSecret: "s3cret",
			want:        Anonymous(),
			wantErr:     apperrors.ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(tt.token, tt.adminSecret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_LegacySecretDisabled(t *testing.T) {
	resolver := newResolver(t, "")
	assert.False(t, resolver.LegacySecretEnabled())

	got, err := resolver.Resolve("", "anything")
	require.NoError(t, err)
	assert.False(t, got.IsAuthenticated())
}

func TestAuthorizationGates(t *testing.T) {
	member := Actor{ID: "u1", Source: SourceToken}
	admin := Actor{ID: "admin", Admin: true, Source: SourceAdminSecret}

	assert.ErrorIs(t, RequireAuthenticated(Anonymous()), apperrors.ErrUnauthenticated)
	assert.NoError(t, RequireAuthenticated(member))

	assert.ErrorIs(t, RequireAdmin(Anonymous()), apperrors.ErrUnauthenticated)
	assert.ErrorIs(t, RequireAdmin(member), apperrors.ErrPermissionDenied)
	assert.NoError(t, RequireAdmin(admin))

	assert.ErrorIs(t, CanPostIn(member, false), apperrors.ErrNotCourseMember)
	assert.NoError(t, CanPostIn(member, true))
	assert.NoError(t, CanPostIn(admin, false))
	assert.ErrorIs(t, CanPostIn(Anonymous(), true), apperrors.ErrUnauthenticated)

	// an admin flag without an id is not an admin
	assert.False(t, Actor{Admin: true}.IsAdmin())
}
