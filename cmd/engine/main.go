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
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/attendance-engine/api/swagger"
	"github.com/noah-isme/attendance-engine/internal/handler"
	"github.com/noah-isme/attendance-engine/internal/middleware"
	"github.com/noah-isme/attendance-engine/internal/repository"
	"github.com/noah-isme/attendance-engine/internal/service"
	"github.com/noah-isme/attendance-engine/pkg/cache"
	"github.com/noah-isme/attendance-engine/pkg/config"
	"github.com/noah-isme/attendance-engine/pkg/database"
	"github.com/noah-isme/attendance-engine/pkg/jobs"
	"github.com/noah-isme/attendance-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-engine/pkg/middleware/requestid"
)

// @title Attendance Engine API
// @version 1.0.0
// @description Reconciliation and statistics service for biometric attendance events
// @BasePath /api/v1
// @schemes http

type warmPayload struct {
	PersonID string
	Date     time.Time
}

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

	location, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid attendance timezone", "timezone", cfg.Attendance.Timezone, "error", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Aggregates.CacheEnabled {
		redisClient, redisErr := cache.NewRedis(cfg.Redis)
		if redisErr != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without aggregate cache", "error", redisErr)
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Aggregates.CacheTTL, logr, cacheRepo != nil)

	eventRepo := repository.NewEventRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	reconciler := service.NewReconcileService(eventRepo, enrollmentRepo, metrics, logr, service.ReconcileServiceConfig{
		LateCutoff: cfg.Attendance.LateCutoff,
		Location:   location,
	})
	aggregates := service.NewAggregationService(reconciler, enrollmentRepo, cacheSvc, metrics, logr, service.AggregationServiceConfig{
		CacheTTL:     cfg.Aggregates.CacheTTL,
		TodayTTL:     cfg.Aggregates.TodayTTL,
		MaxTrendDays: cfg.Aggregates.MaxTrendDays,
		Location:     location,
	})
	events := service.NewEventService(eventRepo, enrollmentRepo, aggregates, validator.New(), metrics, logr, service.EventServiceConfig{
		DedupWindow:  cfg.Attendance.DedupWindow,
		MaxClockSkew: cfg.Attendance.MaxClockSkew,
		MaxEventAge:  cfg.Attendance.MaxEventAge,
		Location:     location,
	})
	queries := service.NewQueryService(reconciler, enrollmentRepo, enrollmentRepo, aggregates, logr, location)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reconcile.EagerEnabled {
		warmQueue := jobs.NewQueue("aggregate-warm", func(taskCtx context.Context, task jobs.Task) error {
			payload, ok := task.Payload.(warmPayload)
			if !ok {
				return fmt.Errorf("unexpected payload type %T", task.Payload)
			}
			divisionID, enrolled, derr := enrollmentRepo.DivisionOf(taskCtx, payload.PersonID, payload.Date)
			if derr != nil {
				return derr
			}
			if !enrolled {
				return nil
			}
			_, _, derr = aggregates.DayAggregate(taskCtx, divisionID, payload.Date)
			return derr
		}, jobs.QueueConfig{
			Workers:    cfg.Reconcile.Workers,
			BufferSize: cfg.Reconcile.QueueSize,
			MaxRetries: cfg.Reconcile.MaxRetries,
			RetryDelay: cfg.Reconcile.RetryDelay,
			Logger:     logr,
		})
		warmQueue.Start(ctx)
		defer warmQueue.Stop()

		events.SetWarmFunc(func(personID string, date time.Time) {
			task := jobs.Task{ID: uuid.NewString(), Kind: "warm-division-day", Payload: warmPayload{PersonID: personID, Date: date}}
			if qerr := warmQueue.Enqueue(task); qerr != nil {
				logr.Sugar().Warnw("failed to enqueue warm task", "person_id", personID, "error", qerr)
			}
		})
	}

	eventHandler := handler.NewEventHandler(events, location)
	attendanceHandler := handler.NewAttendanceHandler(queries, location)
	metricsHandler := handler.NewEngineMetricsHandler(metrics)
	adminHandler := handler.NewAdminHandler(aggregates)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if pingErr := db.PingContext(c.Request.Context()); pingErr != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": pingErr.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/events", eventHandler.Append)
		api.GET("/events", eventHandler.List)
		api.POST("/events/:id/invalidate", eventHandler.Invalidate)

		api.GET("/attendance/status", attendanceHandler.Status)
		api.GET("/attendance/history", attendanceHandler.History)
		api.GET("/attendance/summary", attendanceHandler.Summary)
		api.GET("/attendance/trend", attendanceHandler.Trend)
		api.GET("/attendance/present", attendanceHandler.Present)

		api.GET("/enrollments", attendanceHandler.Enrollments)

		api.GET("/engine/metrics", metricsHandler.Snapshot)
		api.POST("/engine/cache/invalidate", adminHandler.InvalidateDivision)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", serveErr)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
