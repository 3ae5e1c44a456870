package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/clc-lbu/timetable-api/api/swagger"
	"github.com/clc-lbu/timetable-api/internal/handler"
	"github.com/clc-lbu/timetable-api/internal/middleware"
	"github.com/clc-lbu/timetable-api/internal/repository"
	"github.com/clc-lbu/timetable-api/internal/service"
	"github.com/clc-lbu/timetable-api/pkg/cache"
	"github.com/clc-lbu/timetable-api/pkg/config"
	"github.com/clc-lbu/timetable-api/pkg/database"
	"github.com/clc-lbu/timetable-api/pkg/jobs"
	"github.com/clc-lbu/timetable-api/pkg/logger"
	corsmiddleware "github.com/clc-lbu/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/clc-lbu/timetable-api/pkg/middleware/requestid"
	"github.com/clc-lbu/timetable-api/pkg/render"
)

// @title CLC Timetable API
// @version 1.0.0
// @description School timetable upload and viewing service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis is optional: without it page rendering happens per request and
	// logout falls back to token expiry.
	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		redisClient = client
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	timetableRepo := repository.NewTimetableRepository(db)

	terms, err := service.ParseTerms(cfg.Calendar.Terms)
	if err != nil {
		logr.Sugar().Warnw("invalid CALENDAR_TERMS, using built-in table", "error", err)
		terms = service.DefaultTerms()
	}
	calendarSvc := service.NewCalendarService(terms)

	renderSvc := service.NewRenderService(
		render.NewFitzRenderer(cfg.Renderer.DPI, cfg.Renderer.MaxPages),
		cacheRepo,
		metricsSvc,
		logr,
		service.RenderServiceConfig{
			Timeout:  cfg.Renderer.Timeout,
			CacheTTL: cfg.Renderer.CacheTTL,
			Prewarm:  cfg.Renderer.Prewarm,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prewarmQueue := jobs.NewQueue("render-prewarm", renderSvc.PrewarmJob, jobs.QueueConfig{
		Workers: 2,
		Logger:  logr,
	})
	prewarmQueue.Start(ctx)
	defer prewarmQueue.Stop()
	renderSvc.AttachQueue(prewarmQueue)

	timetableSvc := service.NewTimetableService(timetableRepo, renderSvc, renderSvc, validate, logr, service.TimetableServiceConfig{
		MaxFileSize:     cfg.Uploads.MaxFileSizeBytes,
		DefaultUploader: cfg.Uploads.DefaultUploader,
	})
	sessionSvc := service.NewSessionService(cacheRepo, validate, logr, service.SessionServiceConfig{
		AdminPassword: cfg.Admin.Password,
		TokenSecret:   cfg.Session.Secret,
		TokenTTL:      cfg.Session.TTL,
	})
	exportSvc := service.NewExportService(timetableSvc, logr, nil, nil)

	timetableHandler := handler.NewTimetableHandler(timetableSvc, renderSvc, exportSvc)
	authHandler := handler.NewAuthHandler(sessionSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/programs", timetableHandler.Programs)
		api.GET("/programs/:program/current", timetableHandler.Current)
		api.GET("/programs/:program/current/pages", timetableHandler.CurrentPages)
		api.GET("/programs/:program/current/download", timetableHandler.CurrentDownload)

		api.GET("/calendar/week-label", calendarHandler.WeekLabel)
		api.GET("/calendar/terms", calendarHandler.Terms)

		api.POST("/auth/login", authHandler.Login)

		admin := api.Group("")
		admin.Use(middleware.AdminSession(sessionSvc))
		{
			admin.POST("/auth/logout", authHandler.Logout)
			admin.POST("/timetables", timetableHandler.Upload)
			admin.DELETE("/timetables/:id", timetableHandler.Delete)
			admin.GET("/timetables/:id/download", timetableHandler.Download)
			admin.GET("/programs/:program/history", timetableHandler.History)
			admin.GET("/programs/:program/history/export", timetableHandler.ExportHistory)
			admin.POST("/programs/:program/prune", timetableHandler.Prune)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
