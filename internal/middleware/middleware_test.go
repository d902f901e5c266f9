package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearshare/backend/internal/app/auth"
	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/pkg/apperrors"
	pkgAuth "github.com/bearshare/backend/internal/pkg/auth"
	"github.com/bearshare/backend/internal/pkg/idempotency"
)

const testSecret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthMiddleware(t *testing.T) *AuthMiddleware {
	t.Helper()
	verifier, err := pkgAuth.NewJWTVerifier(pkgAuth.VerifierConfig{HMACSecret: testSecret, RoleClaim: "role"})
	require.NoError(t, err)
	hash, err := pkgAuth.HashSecret("legacy")
	require.NoError(t, err)
	return NewAuthMiddleware(auth.NewResolver(verifier, "admin", hash, zerolog.Nop()), zerolog.Nop())
}

func token(t *testing.T, subject, role string, ttl time.Duration) string {
	t.Helper()
	raw, err := pkgAuth.IssueToken(pkgAuth.IssuerConfig{Secret: testSecret}, subject, role, ttl)
	require.NoError(t, err)
	return raw
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthMiddleware_ResolveActor(t *testing.T) {
	m := newAuthMiddleware(t)
	r := gin.New()
	r.Use(m.ResolveActor())
	handler := func(c *gin.Context) {
		actor := CurrentActor(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "admin": actor.IsAdmin()})
	}
	r.GET("/who", handler)
	r.POST("/who", handler)

	tests := []struct {
		name       string
		method     string
		headers    map[string]string
		wantStatus int
		wantBody   string
		wantCode   dto.ErrorCode
	}{
		{"anonymous read", http.MethodGet, nil, 200, `{"id":"","admin":false}`, ""},
		{"token", http.MethodGet, map[string]string{"Authorization": "Bearer " + token(t, "u1", "", time.Minute)}, 200, `{"id":"u1","admin":false}`, ""},
		{"admin role", http.MethodPost, map[string]string{"Authorization": "Bearer " + token(t, "u9", "admin", time.Minute)}, 200, `{"id":"u9","admin":true}`, ""},
		{"legacy secret", http.MethodPost, map[string]string{AdminSecretHeader: "legacy"}, 200, `{"id":"admin","admin":true}`, ""},
		{"invalid token on read degrades", http.MethodGet, map[string]string{"Authorization": "Bearer abc.def.ghi"}, 200, `{"id":"","admin":false}`, ""},
		{"invalid token on write", http.MethodPost, map[string]string{"Authorization": "Bearer abc.def.ghi"}, 401, "", dto.ErrorCodeInvalidToken},
		{"expired token on write", http.MethodPost, map[string]string{"Authorization": "Bearer " + token(t, "u1", "", -time.Hour)}, 401, "", dto.ErrorCodeExpiredToken},
		{"malformed header on write", http.MethodPost, map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}, 401, "", dto.ErrorCodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/who", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Error.Code)
			}
		})
	}
}

func TestAuthMiddleware_Gates(t *testing.T) {
	m := newAuthMiddleware(t)
	r := gin.New()
	r.Use(m.ResolveActor())
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/member", m.AuthRequired(), ok)
	r.GET("/admin", m.AdminRequired(), ok)

	member := "Bearer " + token(t, "u1", "", time.Minute)
	admin := "Bearer " + token(t, "u2", "admin", time.Minute)

	tests := []struct {
		path, auth string
		want       int
	}{
		{"/member", "", 401},
		{"/member", member, 204},
		{"/admin", "", 401},
		{"/admin", member, 403},
		{"/admin", admin, 204},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.auth != "" {
			req.Header.Set("Authorization", tt.auth)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, "%s with %q", tt.path, tt.auth)
	}
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   dto.ErrorCode
		wantMsg    string
	}{
		{"unauthenticated", apperrors.ErrUnauthenticated, 401, dto.ErrorCodeUnauthorized, "Authentication required"},
		{"not a member", apperrors.ErrNotCourseMember, 403, dto.ErrorCodeForbidden, "you must join the course before posting"},
		{"missing course", apperrors.ErrCourseNotFound, 404, dto.ErrorCodeResourceNotFound, "course not found"},
		{"not pending", apperrors.ErrCourseRequestNotPending, 409, dto.ErrorCodeConflict, "course request is no longer pending"},
		{"validation", apperrors.NewValidationError("title", "title is required"), 400, dto.ErrorCodeValidationFailed, "title is required"},
		{"upstream", apperrors.NewUpstreamError("blob store", errors.New("dial tcp")), 503, dto.ErrorCodeExternalServiceError, "blob store unavailable"},
		{"wrapped", fmt.Errorf("tx: %w", apperrors.ErrPostNotFound), 404, dto.ErrorCodeResourceNotFound, "post not found"},
		{"unknown", errors.New("disk on fire"), 500, dto.ErrorCodeInternalServer, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
		})
	}
}

func TestBindJSON_ReportsFields(t *testing.T) {
	RegisterValidators()
	r := gin.New()
	r.POST("/courses", func(c *gin.Context) {
		var req dto.CreateCourseRequest
		if !BindJSON(c, &req) {
			return
		}
		c.Status(http.StatusCreated)
	})

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/courses", strings.NewReader(body)))
		return rec
	}

	assert.Equal(t, http.StatusCreated, post(`{"name":"Physics","tag":"PHY 101"}`).Code)

	rec := post(`{"name":"Physics","tag":"<script>"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)
	assert.Equal(t, "Tag", resp.Error.Field)

	rec = post(`not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrorCodeInvalidRequest, decodeError(t, rec).Error.Code)
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	store := idempotency.NewMemoryStore(time.Hour, time.Minute)
	var calls int32

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(actorContextKey, auth.Actor{ID: c.GetHeader("X-Test-Actor"), Source: auth.SourceToken})
		c.Next()
	})
	r.Use(Idempotency(store, zerolog.Nop()))
	r.POST("/posts", func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusCreated, gin.H{"id": n})
	})
	r.POST("/fail", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusInternalServerError, gin.H{})
	})

	send := func(path, actor, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("X-Test-Actor", actor)
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	first := send("/posts", "u1", "k1")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.JSONEq(t, `{"id":1}`, first.Body.String())

	retry := send("/posts", "u1", "k1")
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.JSONEq(t, `{"id":1}`, retry.Body.String())
	assert.Equal(t, "true", retry.Header().Get(IdempotencyReplayedHeader))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// the same key from another actor is a different request
	other := send("/posts", "u2", "k1")
	assert.JSONEq(t, `{"id":2}`, other.Body.String())

	// no key, no replay
	send("/posts", "u1", "")
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	// server errors are not stored
	send("/fail", "u1", "k2")
	send("/fail", "u1", "k2")
	assert.EqualValues(t, 5, atomic.LoadInt32(&calls))
}

func TestIdempotency_InFlightAndOversizedKeys(t *testing.T) {
	store := idempotency.NewMemoryStore(time.Hour, time.Minute)
	r := gin.New()
	r.Use(Idempotency(store, zerolog.Nop()))
	r.POST("/posts", func(c *gin.Context) { c.Status(http.StatusCreated) })

	// a reservation left by a request that is still running
	reserved, err := store.Reserve(context.Background(), scopedKey("", http.MethodPost, "/posts", "busy"))
	require.NoError(t, err)
	require.True(t, reserved)

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/posts", nil)
		req.Header.Set(IdempotencyKeyHeader, key)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := send("busy")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, dto.ErrorCodeConflict, decodeError(t, rec).Error.Code)

	rec = send(strings.Repeat("k", 300))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, IdempotencyKeyHeader, decodeError(t, rec).Error.Field)

	assert.Equal(t, http.StatusCreated, send("fresh").Code)
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	store := idempotency.NewMemoryStore(time.Hour, time.Minute)
	var calls int32

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Idempotency(store, zerolog.Nop()))
	r.POST("/courses", func(c *gin.Context) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("database went away")
		}
		c.JSON(http.StatusCreated, gin.H{"id": 7})
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/courses", nil)
		req.Header.Set(IdempotencyKeyHeader, "retry-me")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusInternalServerError, send().Code)

	_, err := store.Get(context.Background(), scopedKey("", http.MethodPost, "/courses", "retry-me"))
	assert.ErrorIs(t, err, idempotency.ErrNotFound)

	retry := send()
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.JSONEq(t, `{"id":7}`, retry.Body.String())
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	replay := send()
	assert.Equal(t, "true", replay.Header().Get(IdempotencyReplayedHeader))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}
