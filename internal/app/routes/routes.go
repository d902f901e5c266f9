package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/bearshare/backend/internal/app/controllers"
	"github.com/bearshare/backend/internal/middleware"
)

// Controllers groups the handlers mounted by SetupRouter
type Controllers struct {
	Health        *controllers.HealthController
	Auth          *controllers.AuthController
	Course        *controllers.CourseController
	CourseRequest *controllers.CourseRequestController
	Post          *controllers.PostController
	Upload        *controllers.UploadController
	Admin         *controllers.AdminController
}

// SetupRouter configures all application routes. The auth middleware's
// ResolveActor must already be installed on router.
func SetupRouter(
	router *gin.Engine,
	c Controllers,
	authMiddleware *middleware.AuthMiddleware,
	idempotent gin.HandlerFunc,
) {
	router.GET("/ping", c.Health.Ping)

	v1 := router.Group("/api/v1")
	v1.GET("/health", c.Health.Health)
	v1.GET("/auth/whoami", c.Auth.Whoami)

	// --- Courses and memberships ---
	courses := v1.Group("/courses")
	{
		courses.GET("", c.Course.ListCourses)
		courses.GET("/:id", c.Course.GetCourse)
		courses.POST("/membership-status", c.Course.MembershipStatus)
		courses.GET("/:id/membership", c.Course.IsMember)
		courses.GET("/:id/posts", c.Post.ListPosts)
		courses.GET("/:id/posts/authors", c.Post.ListAuthors)

		member := courses.Group("")
		member.Use(authMiddleware.AuthRequired())
		{
			member.GET("/mine", c.Course.MyCourses)
			member.POST("/:id/membership", c.Course.Join)
			member.DELETE("/:id/membership", c.Course.Leave)
			member.POST("/:id/posts", idempotent, c.Post.CreateTextPost)
			member.POST("/:id/posts/file", idempotent, c.Post.CreateFilePost)
		}

		courses.POST("", authMiddleware.AdminRequired(), idempotent, c.Course.CreateCourse)
	}

	// --- Reactions ---
	posts := v1.Group("/posts")
	posts.Use(authMiddleware.AuthRequired())
	{
		posts.POST("/:postId/like", c.Post.Like)
		posts.POST("/:postId/dislike", c.Post.Dislike)
	}

	// --- Uploads ---
	// The PUT and file targets are authorized by their signed token alone.
	v1.POST("/uploads", authMiddleware.AuthRequired(), c.Upload.RequestUploadURL)
	v1.PUT("/uploads/:token", c.Upload.Upload)
	v1.GET("/files/:token", c.Upload.Download)

	// --- Course requests ---
	requests := v1.Group("/course-requests")
	{
		requests.POST("", idempotent, c.CourseRequest.Submit)
		// non-admins get data: null rather than an error
		requests.GET("", c.CourseRequest.List)

		admin := requests.Group("")
		admin.Use(authMiddleware.AdminRequired())
		{
			admin.POST("/:id/approve", c.CourseRequest.Approve)
			admin.POST("/:id/reject", c.CourseRequest.Reject)
		}
	}

	// --- Admin ---
	adminRoutes := v1.Group("/admin")
	adminRoutes.Use(authMiddleware.AdminRequired())
	{
		adminRoutes.POST("/reconcile-member-counts", c.Admin.ReconcileMemberCounts)
	}
}
