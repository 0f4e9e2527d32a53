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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-report-scheduler/api/swagger"
	"github.com/noah-isme/sma-report-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-report-scheduler/internal/middleware"
	"github.com/noah-isme/sma-report-scheduler/internal/models"
	"github.com/noah-isme/sma-report-scheduler/internal/repository"
	"github.com/noah-isme/sma-report-scheduler/internal/service"
	"github.com/noah-isme/sma-report-scheduler/pkg/cache"
	"github.com/noah-isme/sma-report-scheduler/pkg/config"
	"github.com/noah-isme/sma-report-scheduler/pkg/database"
	"github.com/noah-isme/sma-report-scheduler/pkg/logger"
	"github.com/noah-isme/sma-report-scheduler/pkg/mailer"
	corsmiddleware "github.com/noah-isme/sma-report-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-report-scheduler/pkg/middleware/requestid"
	"github.com/noah-isme/sma-report-scheduler/pkg/scheduler"
	"github.com/noah-isme/sma-report-scheduler/pkg/storage"
)

var version = "dev"

// @title SMA Report Scheduler API
// @version 1.0.0
// @description Scheduled report generation, export delivery and request rate limiting.
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Fatal("failed to apply schema", zap.Error(err))
	}

	var (
		redisClient *redis.Client
		cacheStore  service.CacheRepository
		probes      = map[string]handler.Pinger{"database": db}
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, "report-scheduler")
			cacheStore = cacheRepo
			probes["cache"] = handler.PingFunc(cacheRepo.Ping)
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.RateLimit.StatsCacheTTL, logr, cacheStore != nil)

	scheduledRepo := repository.NewScheduledReportRepository(db)
	historyRepo := repository.NewReportHistoryRepository(db)
	rateLimitRepo := repository.NewRateLimitRepository(db)
	reportData := repository.NewReportDataRepository(db)

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}
	exportSvc := service.NewReportExportService(store, mailer.NewSMTPMailer(cfg.Mail), service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		SystemName:      cfg.Reports.SystemName,
		ResultTTL:       cfg.Reports.ResultTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	}, logr)
	exportSvc.StartCleanup(ctx)

	generator := service.NewReportGenerator(reportData)

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logr.Warn("invalid scheduler timezone, falling back to UTC", zap.String("timezone", cfg.Scheduler.Timezone), zap.Error(err))
		loc = time.UTC
	}
	registry := scheduler.NewRegistry(loc, logr)
	scheduledSvc := service.NewScheduledReportService(
		scheduledRepo,
		historyRepo,
		generator,
		exportSvc,
		registry,
		validate,
		metricsSvc,
		service.ScheduledReportConfig{Location: loc, Workers: cfg.Scheduler.Workers},
		logr,
	)
	if cfg.Scheduler.Enabled {
		if err := scheduledSvc.Start(ctx); err != nil {
			logr.Fatal("failed to start report scheduler", zap.Error(err))
		}
	}

	recorder := service.NewHistoryRecorder(historyRepo, metricsSvc, logr)
	reportSvc := service.NewReportService(generator, exportSvc, recorder, historyRepo, scheduledRepo, validate, logr)

	rules, err := service.ParseRateLimitRules(cfg.RateLimit.Rules)
	if err != nil {
		logr.Fatal("invalid RATE_LIMIT_RULES", zap.Error(err))
	}
	var fallback *models.RateLimitRule
	if cfg.RateLimit.FallbackEnabled {
		fallback = &models.RateLimitRule{Endpoint: "*", Window: cfg.RateLimit.FallbackWindow, MaxRequests: cfg.RateLimit.FallbackMax}
	}
	ruleSet := service.NewRuleSet(append(service.DefaultRateLimitRules(cfg.APIPrefix), rules...), fallback)
	rateLimitSvc := service.NewRateLimitService(rateLimitRepo, ruleSet, cacheSvc, metricsSvc, validate, service.RateLimitConfig{
		Retention:       cfg.RateLimit.Retention,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
		StatsCacheTTL:   cfg.RateLimit.StatsCacheTTL,
	}, logr)
	rateLimitSvc.StartCleanup(ctx)

	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	metricsHandler := handler.NewMetricsHandler(metricsSvc, version, probes)
	scheduledHandler := handler.NewScheduledReportHandler(scheduledSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	rateLimitHandler := handler.NewRateLimitHandler(rateLimitSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))
	if cfg.RateLimit.Enabled {
		api.Use(internalmiddleware.RateLimit(rateLimitSvc, logr))
	}

	scheduled := api.Group("/scheduled-reports")
	scheduled.POST("", scheduledHandler.Create)
	scheduled.GET("", scheduledHandler.List)
	scheduled.GET("/:id", scheduledHandler.Get)
	scheduled.PUT("/:id", scheduledHandler.Update)
	scheduled.DELETE("/:id", scheduledHandler.Delete)
	scheduled.POST("/:id/execute", scheduledHandler.Execute)
	scheduled.GET("/:id/history", scheduledHandler.History)

	reports := api.Group("/reports")
	reports.POST("/export", reportHandler.Export)
	reports.POST("/email", reportHandler.Email)
	reports.GET("/download/:fileName", reportHandler.Download)

	rateLimits := api.Group("/rate-limits")
	rateLimits.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	rateLimits.GET("/stats", rateLimitHandler.Stats)
	rateLimits.GET("/suspicious", rateLimitHandler.Suspicious)
	rateLimits.POST("/block", rateLimitHandler.Block)
	rateLimits.POST("/unblock", rateLimitHandler.Unblock)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	scheduledSvc.Stop()
}
