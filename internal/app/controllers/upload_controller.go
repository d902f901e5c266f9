package controllers

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/app/services"
	"github.com/bearshare/backend/internal/middleware"
	"github.com/bearshare/backend/internal/pkg/filestorage"
)

// LocalBlobServer is the part of the local blob driver that serves the
// signed upload and download URLs it issues.
type LocalBlobServer interface {
	ParseURLToken(token, purpose string) (string, error)
	Save(ref string, body io.Reader) (int64, error)
	Open(ref string) (*os.File, error)
	MaxUploadBytes() int64
}

// UploadController handles upload URL requests and, for the local driver,
// the upload and download targets themselves
type UploadController struct {
	postService services.PostService
	local       LocalBlobServer
	logger      zerolog.Logger
}

// NewUploadController creates a new UploadController. local is nil when
// blobs live in an external store.
func NewUploadController(postService services.PostService, local LocalBlobServer, logger zerolog.Logger) *UploadController {
	return &UploadController{
		postService: postService,
		local:       local,
		logger:      logger,
	}
}

// RequestUploadURL starts a file post
// @Summary Request upload URL
// @Description Returns a storage reference and a short lived URL to upload the file to
// @Tags uploads
// @Produce json
// @Security BearerAuth
// @Success 201 {object} dto.APIResponse{data=dto.UploadURLResponse} "Upload target"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 503 {object} dto.ErrorResponse "Blob store unavailable"
// @Router /uploads [post]
func (c *UploadController) RequestUploadURL(ctx *gin.Context) {
	target, err := c.postService.RequestUploadURL(ctx, middleware.CurrentActor(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(target))
}

// Upload receives file bytes for a signed upload URL
// @Summary Upload file bytes
// @Description Target of the URL returned by POST /uploads when the local driver is active
// @Tags uploads
// @Accept octet-stream
// @Produce json
// @Param token path string true "Signed upload token"
// @Success 201 {object} dto.APIResponse{data=dto.UploadCompleteResponse} "Stored"
// @Failure 403 {object} dto.ErrorResponse "Invalid or expired URL"
// @Failure 409 {object} dto.ErrorResponse "Already uploaded"
// @Failure 413 {object} dto.ErrorResponse "File too large"
// @Router /uploads/{token} [put]
func (c *UploadController) Upload(ctx *gin.Context) {
	if c.local == nil {
		c.notServed(ctx)
		return
	}

	ref, err := c.local.ParseURLToken(ctx.Param("token"), filestorage.PurposeUpload)
	if err != nil {
		c.invalidURL(ctx)
		return
	}

	body := ctx.Request.Body
	if limit := c.local.MaxUploadBytes(); limit > 0 {
		body = http.MaxBytesReader(ctx.Writer, body, limit)
	}
	size, err := c.local.Save(ref, body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, filestorage.ErrObjectExists):
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeConflict, "A file was already uploaded to this URL")
			ctx.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(errorDetail))
		case errors.Is(err, filestorage.ErrObjectTooLarge), errors.As(err, &maxBytesErr):
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "File is too large").
				WithDetails(map[string]interface{}{"maxBytes": c.local.MaxUploadBytes()})
			ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(errorDetail))
		default:
			middleware.HandleAPIError(ctx, err)
		}
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.UploadCompleteResponse{StorageRef: ref, Size: size}))
}

// Download serves file bytes for a signed download URL
// @Summary Download file
// @Tags uploads
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary "File content"
// @Failure 403 {object} dto.ErrorResponse "Invalid or expired URL"
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /files/{token} [get]
func (c *UploadController) Download(ctx *gin.Context) {
	if c.local == nil {
		c.notServed(ctx)
		return
	}

	ref, err := c.local.ParseURLToken(ctx.Param("token"), filestorage.PurposeDownload)
	if err != nil {
		c.invalidURL(ctx)
		return
	}

	f, err := c.local.Open(ref)
	if err != nil {
		if errors.Is(err, filestorage.ErrObjectNotFound) {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "File not found")
			ctx.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponse(errorDetail))
			return
		}
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", f, map[string]string{
		"Cache-Control": "private, max-age=300",
	})
}

func (c *UploadController) invalidURL(ctx *gin.Context) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Invalid or expired URL")
	ctx.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
}

func (c *UploadController) notServed(ctx *gin.Context) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Files are served by the external blob store")
	ctx.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponse(errorDetail))
}
