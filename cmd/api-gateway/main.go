package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/acadflow/acadflow-api/api/swagger"
	"github.com/acadflow/acadflow-api/internal/handler"
	"github.com/acadflow/acadflow-api/internal/middleware"
	"github.com/acadflow/acadflow-api/internal/repository"
	"github.com/acadflow/acadflow-api/internal/service"
	"github.com/acadflow/acadflow-api/pkg/cache"
	"github.com/acadflow/acadflow-api/pkg/config"
	"github.com/acadflow/acadflow-api/pkg/database"
	"github.com/acadflow/acadflow-api/pkg/export"
	"github.com/acadflow/acadflow-api/pkg/logger"
	"github.com/acadflow/acadflow-api/pkg/mailer"
	corsmiddleware "github.com/acadflow/acadflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadflow/acadflow-api/pkg/middleware/requestid"
	"github.com/acadflow/acadflow-api/pkg/storage"
)

// @title AcadFlow API
// @version 1.0.0
// @description Role-based leave and lecture replacement management for schools
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, schedule cache disabled", "error", err)
		redisClient = nil
	}

	docStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	mail := mailer.New(cfg.Mailer)

	userRepo := repository.NewUserRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	replacementRepo := repository.NewReplacementRepository(db)
	studentLeaveRepo := repository.NewStudentLeaveRepository(db)
	lectureRepo := repository.NewLectureRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	signupSvc := service.NewSignupService(userRepo, notificationRepo, nil, logr)
	scheduleSvc := service.NewScheduleService(lectureRepo, cacheRepo, cfg.Schedule.CacheTTL, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, lectureRepo, userRepo, nil, logr)
	leaveSvc.SetScheduleInvalidator(scheduleSvc)
	replacementSvc := service.NewReplacementService(replacementRepo, leaveRepo, lectureRepo, userRepo, nil, logr)
	replacementSvc.SetScheduleInvalidator(scheduleSvc)
	studentLeaveSvc := service.NewStudentLeaveService(studentLeaveRepo, docStore, signer, userRepo, nil, logr)
	exportSvc := service.NewExportService(leaveRepo, export.NewCSVExporter(), export.NewPDFExporter(), cfg.Exports.Enabled, logr)

	notificationSvc := service.NewNotificationService(notificationRepo, mail, cfg.Notifications, logr)
	notificationSvc.SetMetrics(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, userRepo, handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Signup:       handler.NewSignupHandler(signupSvc),
		Leave:        handler.NewLeaveHandler(leaveSvc),
		Replacement:  handler.NewReplacementHandler(replacementSvc),
		StudentLeave: handler.NewStudentLeaveHandler(studentLeaveSvc, cfg.Uploads),
		Schedule:     handler.NewScheduleHandler(scheduleSvc),
		Export:       handler.NewExportHandler(exportSvc),
		Metrics:      metricsHandler,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
