package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/app/services"
	"github.com/bearshare/backend/internal/middleware"
)

// CourseRequestController handles the course request workflow
type CourseRequestController struct {
	courseService services.CourseService
}

// NewCourseRequestController creates a new CourseRequestController
func NewCourseRequestController(courseService services.CourseService) *CourseRequestController {
	return &CourseRequestController{courseService: courseService}
}

// Submit files a request for a new course
// @Summary Request a course
// @Description Anyone may ask for a course. Admins are notified by email.
// @Tags course-requests
// @Accept json
// @Produce json
// @Param request body dto.SubmitCourseRequestRequest true "Requested course"
// @Param Idempotency-Key header string false "Replays the first response for repeated keys"
// @Success 201 {object} dto.APIResponse{data=dto.SubmitCourseRequestResponse} "Request submitted"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /course-requests [post]
func (c *CourseRequestController) Submit(ctx *gin.Context) {
	var req dto.SubmitCourseRequestRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.courseService.SubmitRequest(ctx, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp))
}

// List returns course requests
// @Summary List course requests
// @Description Pending requests, oldest first. Admins may filter with status. Non-admin callers get null with or without a filter.
// @Tags course-requests
// @Produce json
// @Security BearerAuth
// @Security AdminSecret
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} dto.APIResponse{data=[]dto.CourseRequestResponse} "Course requests"
// @Failure 400 {object} dto.ErrorResponse "Invalid status"
// @Router /course-requests [get]
func (c *CourseRequestController) List(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)

	var (
		requests []*dto.CourseRequestResponse
		err      error
	)
	if status, ok := ctx.GetQuery("status"); ok {
		requests, err = c.courseService.ListRequests(ctx, actor, status)
	} else {
		requests, err = c.courseService.ListPendingRequests(ctx, actor)
	}
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(requests))
}

// Approve turns a pending request into a course
// @Summary Approve course request
// @Tags course-requests
// @Produce json
// @Security BearerAuth
// @Security AdminSecret
// @Param id path int true "Request ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.CourseResponse} "Course created"
// @Failure 403 {object} dto.ErrorResponse "Admin access required"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Request already resolved"
// @Router /course-requests/{id}/approve [post]
func (c *CourseRequestController) Approve(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "request")
	if !ok {
		return
	}

	course, err := c.courseService.ApproveRequest(ctx, middleware.CurrentActor(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course))
}

// Reject closes a pending request without creating a course
// @Summary Reject course request
// @Tags course-requests
// @Produce json
// @Security BearerAuth
// @Security AdminSecret
// @Param id path int true "Request ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.CourseRequestResponse} "Request rejected"
// @Failure 403 {object} dto.ErrorResponse "Admin access required"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Request already resolved"
// @Router /course-requests/{id}/reject [post]
func (c *CourseRequestController) Reject(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "request")
	if !ok {
		return
	}

	request, err := c.courseService.RejectRequest(ctx, middleware.CurrentActor(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(request))
}
