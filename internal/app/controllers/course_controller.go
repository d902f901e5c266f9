package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/app/services"
	"github.com/bearshare/backend/internal/middleware"
)

// CourseController handles course and membership operations
type CourseController struct {
	courseService     services.CourseService
	membershipService services.MembershipService
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService services.CourseService, membershipService services.MembershipService) *CourseController {
	return &CourseController{
		courseService:     courseService,
		membershipService: membershipService,
	}
}

// ListCourses returns every course
// @Summary List courses
// @Description Returns all courses ordered by id
// @Tags courses
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.CourseResponse} "Courses retrieved successfully"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.courseService.ListAllCourses(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses))
}

// GetCourse returns one course
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.CourseResponse} "Course retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid course ID"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}

	course, err := c.courseService.GetCourse(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course))
}

// CreateCourse creates a course directly
// @Summary Create course
// @Description Admin only. Creates a course without going through a course request.
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Security AdminSecret
// @Param request body dto.CreateCourseRequest true "Course information"
// @Param Idempotency-Key header string false "Replays the first response for repeated keys"
// @Success 201 {object} dto.APIResponse{data=dto.CourseResponse} "Course created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Admin access required"
// @Router /courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req dto.CreateCourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.CreateCourse(ctx, middleware.CurrentActor(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(course))
}

// MyCourses lists the courses the caller joined
// @Summary My courses
// @Description Courses the caller is a member of, in join order
// @Tags memberships
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.CourseResponse} "Courses retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /courses/mine [get]
func (c *CourseController) MyCourses(ctx *gin.Context) {
	courses, err := c.membershipService.MyCourses(ctx, middleware.CurrentActor(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses))
}

// MembershipStatus reports membership for several courses at once
// @Summary Bulk membership status
// @Description Maps each requested course id to whether the caller is a member. Anonymous callers get false everywhere.
// @Tags memberships
// @Accept json
// @Produce json
// @Param request body dto.MembershipStatusRequest true "Course ids"
// @Success 200 {object} dto.APIResponse{data=map[string]bool} "Membership status"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /courses/membership-status [post]
func (c *CourseController) MembershipStatus(ctx *gin.Context) {
	var req dto.MembershipStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	status, err := c.membershipService.MembershipStatus(ctx, middleware.CurrentActor(ctx), req.CourseIDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(status))
}

// IsMember reports whether the caller joined a course
// @Summary Membership check
// @Tags memberships
// @Produce json
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.MembershipCheckResponse} "Membership"
// @Failure 400 {object} dto.ErrorResponse "Invalid course ID"
// @Router /courses/{id}/membership [get]
func (c *CourseController) IsMember(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}

	member, err := c.membershipService.IsMember(ctx, middleware.CurrentActor(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.MembershipCheckResponse{CourseID: id, IsMember: member}))
}

// Join adds the caller to a course
// @Summary Join course
// @Description Joining twice leaves the member count unchanged
// @Tags memberships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.MembershipResponse} "Joined"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/membership [post]
func (c *CourseController) Join(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}

	membership, err := c.membershipService.Join(ctx, middleware.CurrentActor(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(membership))
}

// Leave removes the caller from a course
// @Summary Leave course
// @Tags memberships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.MembershipResponse} "Left"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /courses/{id}/membership [delete]
func (c *CourseController) Leave(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}

	membership, err := c.membershipService.Leave(ctx, middleware.CurrentActor(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(membership))
}
