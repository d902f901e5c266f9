package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bearshare/backend/internal/app/auth"
	"github.com/bearshare/backend/internal/app/models/dto"
	pkgAuth "github.com/bearshare/backend/internal/pkg/auth"
)

const (
	actorContextKey   = "actor"
	AdminSecretHeader = "X-Admin-Secret"
)

// AuthMiddleware resolves the actor of every request
type AuthMiddleware struct {
	resolver *auth.Resolver
	logger   zerolog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(resolver *auth.Resolver, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// ResolveActor stores the request's actor on the context. An invalid token
// is rejected on write methods and treated as anonymous on reads.
func (m *AuthMiddleware) ResolveActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			token    string
			tokenErr error
		)
		if header := c.GetHeader("Authorization"); header != "" {
			token, tokenErr = pkgAuth.ExtractBearerToken(header)
		}

		var (
			actor auth.Actor
			err   error
		)
		if tokenErr != nil {
			actor, err = auth.Anonymous(), tokenErr
		} else {
			actor, err = m.resolver.Resolve(token, c.GetHeader(AdminSecretHeader))
		}

		if err != nil {
			m.logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Request carried an unusable token")
			if isWriteMethod(c.Request.Method) {
				abortInvalidToken(c, err)
				return
			}
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// AuthRequired rejects anonymous requests
func (m *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentActor(c).IsAuthenticated() {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}
		c.Next()
	}
}

// AdminRequired rejects requests whose actor is not an admin
func (m *AuthMiddleware) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if !actor.IsAuthenticated() {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}
		if !actor.IsAdmin() {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
				WithDetails("admin access required")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}
		c.Next()
	}
}

// CurrentActor returns the actor resolved for c, or an anonymous actor
func CurrentActor(c *gin.Context) auth.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(auth.Actor); ok {
			return actor
		}
	}
	return auth.Anonymous()
}

func abortInvalidToken(c *gin.Context, err error) {
	errorCode := dto.ErrorCodeInvalidToken
	details := "Invalid token"
	switch {
	case errors.Is(err, pkgAuth.ErrExpiredToken):
		errorCode = dto.ErrorCodeExpiredToken
		details = "Token has expired"
	case errors.Is(err, pkgAuth.ErrInvalidFormat):
		details = "Invalid token format"
	}

	errorDetail := dto.NewErrorDetail(errorCode, "Authentication failed").
		WithDetails(details).
		WithSeverity(dto.ErrorSeverityError)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
