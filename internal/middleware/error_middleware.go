package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/pkg/apperrors"
	pkgAuth "github.com/bearshare/backend/internal/pkg/auth"
	"github.com/bearshare/backend/internal/pkg/logger"
)

// HandleAPIError maps service errors onto the error envelope
func HandleAPIError(c *gin.Context, err error) {
	var custom *apperrors.CustomError
	errors.As(err, &custom)

	switch {
	case errors.Is(err, apperrors.ErrTokenInvalid):
		code := dto.ErrorCodeInvalidToken
		if errors.Is(err, pkgAuth.ErrExpiredToken) {
			code = dto.ErrorCodeExpiredToken
		}
		respond(c, http.StatusUnauthorized, dto.NewErrorDetail(code, "Invalid token"))
	case errors.Is(err, apperrors.ErrUnauthenticated):
		respond(c, http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required"))
	case errors.Is(err, apperrors.ErrPermissionDenied):
		respond(c, http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, apperrors.Message(err, "Permission denied")))
	case errors.Is(err, apperrors.ErrResourceNotFound):
		respond(c, http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, apperrors.Message(err, "Resource not found")))
	case errors.Is(err, apperrors.ErrInvalidStateTransition), errors.Is(err, apperrors.ErrConflict):
		respond(c, http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeConflict, apperrors.Message(err, "Conflict")))
	case errors.Is(err, apperrors.ErrValidationFailed):
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, apperrors.Message(err, "Validation failed"))
		if custom != nil && custom.Field != "" {
			detail.WithField(custom.Field)
		}
		respond(c, http.StatusBadRequest, detail)
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Upstream unavailable")
		detail := dto.NewErrorDetail(dto.ErrorCodeExternalServiceError, apperrors.Message(err, "Upstream service unavailable"))
		if custom != nil && custom.Details != nil {
			detail.WithDetails(custom.Details)
		}
		respond(c, http.StatusServiceUnavailable, detail)
	default:
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled error")
		respond(c, http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"))
	}
}

func respond(c *gin.Context, status int, detail *dto.ErrorDetail) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}
