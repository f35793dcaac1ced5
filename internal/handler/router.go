package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/acadflow/acadflow-api/internal/middleware"
	"github.com/acadflow/acadflow-api/internal/models"
	"github.com/acadflow/acadflow-api/internal/repository"
	"github.com/acadflow/acadflow-api/internal/service"
)

// Handlers groups every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	Signup       *SignupHandler
	Leave        *LeaveHandler
	Replacement  *ReplacementHandler
	StudentLeave *StudentLeaveHandler
	Schedule     *ScheduleHandler
	Export       *ExportHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes mounts the API surface under the prefix. Routes outside the
// auth group require a valid access token; role checks follow per group.
func RegisterRoutes(r *gin.Engine, prefix string, authSvc *service.AuthService, users *repository.UserRepository, h Handlers) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.Signup.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/reset-password", h.Auth.ResetPassword)

		private := auth.Group("", middleware.JWT(authSvc))
		private.POST("/logout", h.Auth.Logout)
		private.POST("/change-password", h.Auth.ChangePassword)
		private.GET("/me", h.Auth.Me)
	}

	// document transfer is authorized by the signed token alone
	api.PUT("/documents", h.StudentLeave.UploadDocument)
	api.GET("/documents", h.StudentLeave.DownloadDocument)

	protected := api.Group("", middleware.JWT(authSvc))

	signups := protected.Group("/signups", middleware.RequireRoles(models.RoleAdmin, models.RoleHOD))
	{
		signups.GET("", h.Signup.List)
		signups.POST("/:id/approve", h.Signup.Approve)
		signups.POST("/:id/reject", h.Signup.Reject)
	}

	leaves := protected.Group("/leaves")
	{
		leaves.POST("", middleware.RequireRoles(models.RoleTeacher), h.Leave.Create)
		leaves.GET("", h.Leave.List)
		leaves.GET("/:id", h.Leave.Get)
		leaves.POST("/:id/review", middleware.RequireRoles(models.RoleHOD, models.RoleAdmin), h.Leave.Review)
		leaves.POST("/:id/reject", middleware.RequireRoles(models.RoleHOD, models.RoleAdmin), h.Leave.Reject)
	}

	replacements := protected.Group("/replacements")
	{
		replacements.POST("", middleware.RequireRoles(models.RoleTeacher), h.Replacement.Create)
		replacements.GET("", h.Replacement.List)
		replacements.POST("/:id/accept", middleware.RequireRoles(models.RoleTeacher), h.Replacement.Accept)
		replacements.POST("/:id/decline-peer", middleware.RequireRoles(models.RoleTeacher), h.Replacement.DeclinePeer)
		replacements.POST("/:id/approve", middleware.RequireRoles(models.RoleAdmin), h.Replacement.Approve)
		replacements.POST("/:id/decline", middleware.RequireRoles(models.RoleAdmin), h.Replacement.Decline)
	}

	studentLeaves := protected.Group("/student-leaves")
	{
		studentLeaves.POST("", middleware.RequireRoles(models.RoleStudent), h.StudentLeave.Create)
		studentLeaves.GET("", h.StudentLeave.List)
		studentLeaves.POST("/:id/approve", middleware.RequireRoles(models.RoleHOD, models.RoleAdmin), h.StudentLeave.Approve)
		studentLeaves.POST("/:id/reject", middleware.RequireRoles(models.RoleHOD, models.RoleAdmin), h.StudentLeave.Reject)
		studentLeaves.POST("/:id/resubmit", middleware.RequireRoles(models.RoleStudent), h.StudentLeave.Resubmit)
		studentLeaves.GET("/:id/upload-url", middleware.RequireRoles(models.RoleStudent), h.StudentLeave.UploadURL)
		studentLeaves.GET("/:id/document", h.StudentLeave.ViewURL)
	}

	schedule := protected.Group("/schedule")
	{
		schedule.GET("", h.Schedule.List)
		schedule.GET("/subjects", h.Schedule.Subjects)
		schedule.GET("/time-slots", h.Schedule.TimeSlots)
	}

	exports := protected.Group("/exports",
		middleware.RequireRoles(models.RoleAdmin),
		middleware.Audit(users, models.AuditActionExport, "export"))
	{
		exports.GET("/leaves", h.Export.Leaves)
	}
}
