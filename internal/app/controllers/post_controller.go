package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/app/services"
	"github.com/bearshare/backend/internal/middleware"
)

// PostController handles course feeds and reactions
type PostController struct {
	postService services.PostService
}

// NewPostController creates a new PostController
func NewPostController(postService services.PostService) *PostController {
	return &PostController{postService: postService}
}

// ListPosts returns a course feed
// @Summary Course feed
// @Description Posts of a course, newest first, with reactions and download URLs for file posts
// @Tags posts
// @Produce json
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]dto.PostResponse} "Feed"
// @Failure 400 {object} dto.ErrorResponse "Invalid course ID"
// @Router /courses/{id}/posts [get]
func (c *PostController) ListPosts(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}

	posts, err := c.postService.ListPosts(ctx, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(posts))
}

// ListAuthors returns the author of every post in a course
// @Summary Post authors
// @Tags posts
// @Produce json
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]dto.PostAuthorResponse} "Authors"
// @Router /courses/{id}/posts/authors [get]
func (c *PostController) ListAuthors(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}

	authors, err := c.postService.ListAuthors(ctx, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(authors))
}

// CreateTextPost publishes a text post
// @Summary Create text post
// @Description Members and admins may post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Param request body dto.CreateTextPostRequest true "Post"
// @Param Idempotency-Key header string false "Replays the first response for repeated keys"
// @Success 201 {object} dto.APIResponse{data=dto.PostResponse} "Post created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Not a member of the course"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/posts [post]
func (c *PostController) CreateTextPost(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}
	var req dto.CreateTextPostRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	post, err := c.postService.CreateTextPost(ctx, middleware.CurrentActor(ctx), courseID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(post))
}

// CreateFilePost publishes a post pointing at an uploaded file
// @Summary Create file post
// @Description The storage reference must come from POST /uploads and the upload must have finished
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Param request body dto.CreateFilePostRequest true "File post"
// @Param Idempotency-Key header string false "Replays the first response for repeated keys"
// @Success 201 {object} dto.APIResponse{data=dto.PostResponse} "Post created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data or upload missing"
// @Failure 403 {object} dto.ErrorResponse "Not a member of the course"
// @Failure 503 {object} dto.ErrorResponse "Blob store unavailable"
// @Router /courses/{id}/posts/file [post]
func (c *PostController) CreateFilePost(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}
	var req dto.CreateFilePostRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	post, err := c.postService.CreateFilePost(ctx, middleware.CurrentActor(ctx), courseID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(post))
}

// Like toggles the caller's like on a post
// @Summary Toggle like
// @Description Likes, or removes an existing like. A dislike is replaced.
// @Tags reactions
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.ReactionResponse} "Reaction state"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /posts/{postId}/like [post]
func (c *PostController) Like(ctx *gin.Context) {
	postID, ok := pathID(ctx, "postId", "post")
	if !ok {
		return
	}

	reaction, err := c.postService.ToggleLike(ctx, middleware.CurrentActor(ctx), postID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(reaction))
}

// Dislike toggles the caller's dislike on a post
// @Summary Toggle dislike
// @Tags reactions
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.ReactionResponse} "Reaction state"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /posts/{postId}/dislike [post]
func (c *PostController) Dislike(ctx *gin.Context) {
	postID, ok := pathID(ctx, "postId", "post")
	if !ok {
		return
	}

	reaction, err := c.postService.ToggleDislike(ctx, middleware.CurrentActor(ctx), postID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(reaction))
}
