package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/middleware"
	"github.com/noah-isme/studynotion-api/internal/models"
	"github.com/noah-isme/studynotion-api/pkg/cache"
	"github.com/noah-isme/studynotion-api/pkg/config"
	"github.com/noah-isme/studynotion-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studynotion-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studynotion-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, a *app, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.metricsHandler.Health)
	r.GET("/ready", readiness(a))
	r.GET("/metrics", a.metricsHandler.Prometheus)
	r.GET("/media/:token", a.mediaHandler.Serve)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(a.auth)
	student := middleware.RequireRoles(models.RoleStudent)
	instructor := middleware.RequireRoles(models.RoleInstructor)
	admin := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/sendotp", a.authHandler.SendOTP)
	auth.POST("/signup", a.authHandler.Signup)
	auth.POST("/login", a.authHandler.Login)
	auth.POST("/refresh", a.authHandler.Refresh)
	auth.POST("/reset-password-token", a.authHandler.ForgotPassword)
	auth.POST("/reset-password", a.authHandler.ResetPassword)
	auth.POST("/logout", authRequired, a.authHandler.Logout)
	auth.POST("/change-password", authRequired, a.authHandler.ChangePassword)
	auth.GET("/me", authRequired, a.authHandler.Me)

	profile := api.Group("/profile", authRequired)
	profile.GET("", a.profileHandler.Get)
	profile.PUT("", a.profileHandler.Update)
	profile.PUT("/display-picture", a.profileHandler.UpdateDisplayPicture)
	profile.DELETE("", a.profileHandler.Delete)
	profile.GET("/instructor-dashboard", instructor, a.profileHandler.InstructorDashboard)
	profile.GET("/instructor-dashboard/export", instructor, a.profileHandler.ExportDashboard)

	courses := api.Group("/courses")
	courses.GET("", a.courseHandler.List)
	courses.GET("/mine", authRequired, instructor, a.courseHandler.Mine)
	courses.GET("/:id", middleware.OptionalJWT(a.auth), a.courseHandler.Detail)
	courses.GET("/:id/rating", a.catalogHandler.AverageRating)
	courses.POST("", authRequired, instructor, a.courseHandler.Create)
	courses.PUT("/:id", authRequired, instructor, a.courseHandler.Update)
	courses.PUT("/:id/thumbnail", authRequired, instructor, a.courseHandler.UploadThumbnail)
	courses.DELETE("/:id", authRequired, instructor,
		middleware.Audit(a.audit, logr, models.AuditActionCourseDelete, "course"),
		a.courseHandler.Delete)

	content := api.Group("", authRequired, instructor)
	content.POST("/sections", a.contentHandler.CreateSection)
	content.PUT("/sections/:id", a.contentHandler.RenameSection)
	content.DELETE("/sections/:id", a.contentHandler.DeleteSection)
	content.POST("/lessons/video", a.contentHandler.UploadVideo)
	content.POST("/lessons", a.contentHandler.CreateLesson)
	content.PUT("/lessons/:id", a.contentHandler.UpdateLesson)
	content.DELETE("/lessons/:id", a.contentHandler.DeleteLesson)

	categories := api.Group("/categories")
	categories.GET("", a.catalogHandler.ListCategories)
	categories.GET("/:id", a.catalogHandler.CategoryPage)
	categories.POST("", authRequired, admin,
		middleware.Audit(a.audit, logr, models.AuditActionCategoryCreate, "category"),
		a.catalogHandler.CreateCategory)

	ratings := api.Group("/ratings")
	ratings.GET("", a.catalogHandler.ListRatings)
	ratings.POST("", authRequired, student, a.catalogHandler.CreateRating)

	progress := api.Group("/progress", authRequired, student)
	progress.POST("/lessons", a.progressHandler.MarkLessonComplete)
	progress.GET("/courses", a.progressHandler.EnrolledCourses)
	progress.GET("/courses/:courseId", a.progressHandler.Percentage)
	progress.GET("/courses/:courseId/certificate", a.progressHandler.Certificate)

	payments := api.Group("/payments")
	payments.POST("/order", authRequired, student, a.paymentHandler.CreateOrder)
	payments.POST("/webhook", a.paymentHandler.Webhook)

	api.GET("/admin/metrics", authRequired, admin, a.metricsHandler.Summary)

	return r
}

func readiness(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok", "redis": "ok"}
		ready := true
		if err := a.db.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			ready = false
		}
		if err := cache.Ping(ctx, a.redis); err != nil {
			checks["redis"] = err.Error()
			ready = false
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not ready"
		}
		c.JSON(status, gin.H{"status": state, "checks": checks, "pendingMail": a.mailQueue.Pending()})
	}
}
