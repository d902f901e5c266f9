package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bearshare/backend/internal/app/auth"
	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/middleware"
)

// AuthController reports the identity resolved for a request
type AuthController struct{}

// NewAuthController creates a new AuthController
func NewAuthController() *AuthController {
	return &AuthController{}
}

// Whoami returns the caller's resolved identity
// @Summary Who am I
// @Description Never fails. Anonymous callers get authenticated=false.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.WhoamiResponse} "Resolved identity"
// @Router /auth/whoami [get]
func (c *AuthController) Whoami(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)

	source := string(actor.Source)
	if actor.Source == auth.SourceNone {
		source = "none"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.WhoamiResponse{
		Authenticated: actor.IsAuthenticated(),
		ActorID:       actor.ID,
		Issuer:        actor.Issuer,
		IsAdmin:       actor.IsAdmin(),
		Source:        source,
	}))
}
