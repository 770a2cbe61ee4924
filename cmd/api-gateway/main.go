package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/studynotion-api/api/swagger"
	"github.com/noah-isme/studynotion-api/internal/handler"
	"github.com/noah-isme/studynotion-api/internal/repository"
	"github.com/noah-isme/studynotion-api/internal/service"
	"github.com/noah-isme/studynotion-api/pkg/cache"
	"github.com/noah-isme/studynotion-api/pkg/config"
	"github.com/noah-isme/studynotion-api/pkg/database"
	"github.com/noah-isme/studynotion-api/pkg/jobs"
	"github.com/noah-isme/studynotion-api/pkg/logger"
	"github.com/noah-isme/studynotion-api/pkg/mailer"
	"github.com/noah-isme/studynotion-api/pkg/payment"
	"github.com/noah-isme/studynotion-api/pkg/storage"
)

// @title StudyNotion API
// @version 1.0.0
// @description Course marketplace backend: catalog, payments, enrollment and learning progress
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close() //nolint:errcheck

	app, err := buildApp(cfg, db, redisClient, logr)
	if err != nil {
		return err
	}
	app.mailQueue.Start(ctx)
	defer app.mailQueue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, app, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// app carries the wired handlers plus the pieces main needs to manage directly.
type app struct {
	db        *sqlx.DB
	redis     *redis.Client
	mailQueue *jobs.Queue
	metrics   *service.MetricsService
	auth      *service.AuthService
	audit     *repository.UserRepository

	authHandler     *handler.AuthHandler
	profileHandler  *handler.ProfileHandler
	courseHandler   *handler.CourseHandler
	contentHandler  *handler.ContentHandler
	catalogHandler  *handler.CatalogHandler
	progressHandler *handler.ProgressHandler
	paymentHandler  *handler.PaymentHandler
	mediaHandler    *handler.MediaHandler
	metricsHandler  *handler.MetricsHandler
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*app, error) {
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	otpRepo := repository.NewOTPRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.CourseData.CacheTTL, logr, cfg.CourseData.CacheEnabled)
	structures := service.NewStructureProvider(courseRepo, cacheSvc, cfg.CourseData.CacheTTL, logr)

	notifications := service.NewNotificationService(newMailSender(cfg.Mail, logr), metricsSvc, service.NotificationConfig{
		FrontendURL:   cfg.Mail.FrontendURL,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
	}, logr)
	mailQueue := jobs.NewQueue("mail", notifications.Handle, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.Retries,
		RetryDelay: cfg.Mail.RetryDelay,
		OnResult:   notifications.OnResult,
		Logger:     logr,
	})
	notifications.UseQueue(mailQueue)

	store, err := storage.NewLocalStorage(cfg.Media.StorageDir, cfg.Media.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("init media storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)
	mediaSvc := service.NewMediaService(store, signer, cfg.Media.PublicBaseURL, logr)

	authSvc := service.NewAuthService(userRepo, otpRepo, notifications, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		OTPTTL:             cfg.Auth.OTPTTL,
		ResetTokenTTL:      cfg.Auth.ResetTokenTTL,
	})

	enrollmentSvc := service.NewEnrollmentService(courseRepo, userRepo, progressRepo, notifications, metricsSvc, logr)
	paymentSvc := service.NewPaymentService(
		courseRepo,
		payment.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.Timeout),
		payment.NewHMACVerifier(cfg.Payment.WebhookSecret),
		enrollmentSvc,
		userRepo,
		metricsSvc,
		service.PaymentConfig{KeyID: cfg.Payment.KeyID, Currency: cfg.Payment.Currency},
		validate,
		logr,
	)
	progressSvc := service.NewProgressService(progressRepo, lessonRepo, structures, courseRepo, userRepo, validate, logr)

	courseSvc := service.NewCourseService(courseRepo, categoryRepo, sectionRepo, lessonRepo, ratingRepo, structures, mediaSvc, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, courseRepo, structures, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, sectionRepo, courseRepo, structures, mediaSvc, validate, logr)
	categorySvc := service.NewCategoryService(categoryRepo, courseRepo, cacheSvc, cfg.CourseData.CacheTTL, validate, logr)
	ratingSvc := service.NewRatingService(ratingRepo, courseRepo, validate, logr)
	profileSvc := service.NewProfileService(userRepo, courseRepo, mediaSvc, structures, validate, logr)

	return &app{
		db:        db,
		redis:     redisClient,
		mailQueue: mailQueue,
		metrics:   metricsSvc,
		auth:      authSvc,
		audit:     userRepo,

		authHandler:     handler.NewAuthHandler(authSvc),
		profileHandler:  handler.NewProfileHandler(profileSvc),
		courseHandler:   handler.NewCourseHandler(courseSvc),
		contentHandler:  handler.NewContentHandler(sectionSvc, lessonSvc),
		catalogHandler:  handler.NewCatalogHandler(categorySvc, ratingSvc),
		progressHandler: handler.NewProgressHandler(progressSvc),
		paymentHandler:  handler.NewPaymentHandler(paymentSvc, cfg.Payment.SignatureHeader, cfg.Payment.MaxWebhookBytes),
		mediaHandler:    handler.NewMediaHandler(mediaSvc),
		metricsHandler:  handler.NewMetricsHandler(metricsSvc),
	}, nil
}

func newMailSender(cfg config.MailConfig, logr *zap.Logger) mailer.Sender {
	if cfg.Provider == "sendgrid" && cfg.SendgridAPIKey != "" {
		return mailer.NewSendGridSender(cfg.SendgridAPIKey, cfg.FromName, cfg.FromAddress, cfg.Timeout)
	}
	logr.Info("mail provider set to log sender", zap.String("provider", cfg.Provider))
	return mailer.NewLogSender(logr)
}
