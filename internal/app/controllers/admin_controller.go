package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/app/services"
	"github.com/bearshare/backend/internal/middleware"
)

// AdminController exposes maintenance operations
type AdminController struct {
	membershipService services.MembershipService
}

// NewAdminController creates a new AdminController
func NewAdminController(membershipService services.MembershipService) *AdminController {
	return &AdminController{membershipService: membershipService}
}

// ReconcileMemberCounts recomputes member counts from the membership ledger
// @Summary Reconcile member counts
// @Description Rewrites every course's member count from its memberships and reports the courses that had drifted
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Security AdminSecret
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResponse} "Reconciled"
// @Failure 403 {object} dto.ErrorResponse "Admin access required"
// @Router /admin/reconcile-member-counts [post]
func (c *AdminController) ReconcileMemberCounts(ctx *gin.Context) {
	result, err := c.membershipService.ReconcileMemberCounts(ctx, middleware.CurrentActor(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}
