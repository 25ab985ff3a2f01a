package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sia-enrollment-engine/api/swagger"
	"github.com/noah-isme/sia-enrollment-engine/internal/handler"
	"github.com/noah-isme/sia-enrollment-engine/internal/middleware"
	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/internal/repository"
	"github.com/noah-isme/sia-enrollment-engine/internal/service"
	"github.com/noah-isme/sia-enrollment-engine/pkg/cache"
	"github.com/noah-isme/sia-enrollment-engine/pkg/config"
	"github.com/noah-isme/sia-enrollment-engine/pkg/database"
	"github.com/noah-isme/sia-enrollment-engine/pkg/jobs"
	"github.com/noah-isme/sia-enrollment-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/sia-enrollment-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sia-enrollment-engine/pkg/middleware/requestid"
)

// @title SIA Enrollment Engine API
// @version 1.0.0
// @description Enrollment, grading, english progression and payment approval
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, english progress cache disabled", zap.Error(err))
		redisClient = nil
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()
	txManager := database.NewTxManager(db, cfg.Enrollment.TxMaxRetries, cfg.Enrollment.TxRetryBackoff, logr)
	txManager.OnRetry(metricsSvc.TransactionRetried)

	groupRepo := repository.NewGroupRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	examRepo := repository.NewDiagnosticExamRepository(db)
	progressRepo := repository.NewEnglishProgressRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "sia", logr)
	defer cacheRepo.Close() //nolint:errcheck

	auditQueue := service.NewAuditQueue(auditRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		Logger:     logr,
	})
	auditQueue.Start(context.Background())
	defer auditQueue.Stop()
	auditSvc := service.NewAuditService(auditRepo, auditQueue, logr)

	progressCache := service.NewProgressCache(cacheRepo, metricsSvc, cfg.English.ProgressCacheTTL, logr, redisClient != nil)
	grades := service.NewGradeAggregator(nil)
	ledger := service.NewCapacityLedger(groupRepo, txManager, metricsSvc, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, groupRepo, ledger, paymentRepo, txManager, grades, auditSvc, metricsSvc, validate, logr)
	englishSvc := service.NewEnglishService(examRepo, progressRepo, enrollmentRepo, enrollmentSvc, studentRepo, groupRepo, paymentRepo, txManager, grades, progressCache, auditSvc, metricsSvc, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, map[models.PaymentItemType]service.PaymentItem{
		models.PaymentItemEnrollment:     service.EnrollmentPaymentItem(enrollmentRepo),
		models.PaymentItemDiagnosticExam: service.ExamPaymentItem(examRepo),
	}, txManager, auditSvc, metricsSvc, validate, logr)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience})

	deps := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		deps["redis"] = redisPinger{client: redisClient}
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, deps)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	englishHandler := handler.NewEnglishHandler(englishSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	anyone := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)
	self := middleware.RequireRoles(models.RoleAdmin, models.RoleStudent)

	enrollments := api.Group("/enrollments")
	enrollments.GET("", staff, enrollmentHandler.List)
	enrollments.POST("", admin, enrollmentHandler.Create)
	enrollments.GET("/:id", staff, enrollmentHandler.Get)
	enrollments.PATCH("/:id/status", admin, enrollmentHandler.ChangeStatus)
	enrollments.PATCH("/:id/group", admin, enrollmentHandler.ChangeGroup)
	enrollments.PATCH("/:id/grades", staff, enrollmentHandler.UpdateGrades)
	enrollments.PATCH("/:id/attendance", staff, enrollmentHandler.UpdateAttendance)
	enrollments.PATCH("/:id/observations", staff, enrollmentHandler.UpdateObservations)

	english := api.Group("/english")
	english.POST("/courses", self, englishHandler.EnrollCourse)
	english.POST("/courses/:id/complete", admin, englishHandler.CompleteCourse)
	english.POST("/exams", self, englishHandler.RequestExam)
	english.GET("/exams/:id", anyone, englishHandler.GetExam)
	english.POST("/exams/:id/result", admin, englishHandler.ProcessResult)
	english.GET("/progress/:studentId", anyone, englishHandler.Progress)

	payments := api.Group("/payments")
	payments.GET("/:id", self, paymentHandler.Get)
	payments.POST("/:id/proof", self, paymentHandler.SubmitProof)
	payments.POST("/:id/approve", admin, paymentHandler.Approve)
	payments.POST("/:id/reject", admin, paymentHandler.Reject)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("db_driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
