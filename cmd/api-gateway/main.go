package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/infopanel-api/api/swagger"
	"github.com/noah-isme/infopanel-api/internal/handler"
	"github.com/noah-isme/infopanel-api/internal/middleware"
	"github.com/noah-isme/infopanel-api/internal/models"
	"github.com/noah-isme/infopanel-api/internal/repository"
	"github.com/noah-isme/infopanel-api/internal/service"
	"github.com/noah-isme/infopanel-api/pkg/cache"
	"github.com/noah-isme/infopanel-api/pkg/config"
	"github.com/noah-isme/infopanel-api/pkg/database"
	"github.com/noah-isme/infopanel-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/infopanel-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/infopanel-api/pkg/middleware/requestid"
	"github.com/noah-isme/infopanel-api/pkg/storage"
)

// @title Infopanel API
// @version 1.0.0
// @description Timetable import and read API for the school infopanel
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

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid timezone", "timezone", cfg.Timezone, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if err := database.ApplySchema(ctx, db, repository.EventsSchema, repository.UsersSchema); err != nil {
		logr.Sugar().Fatalw("failed to apply schema", "error", err)
	}

	redisClient, err := cache.NewOptional(cfg.Cache, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, "infopanel:", logger.Component(logr, "cache"))
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logger.Component(logr, "cache"), redisClient != nil)

	validate := validator.New()
	eventRepo := repository.NewEventRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logger.Component(logr, "auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "infopanel-api",
	})
	if err := authSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		logr.Sugar().Fatalw("failed to seed admin account", "error", err)
	}

	eventSvc := service.NewEventService(eventRepo, cacheSvc, validate, cfg.Cache.TTL, logger.Component(logr, "events"))
	exportSvc := service.NewExportService(eventSvc, service.ExportConfig{Encoding: cfg.Import.Encoding}, logger.Component(logr, "export"), nil, nil)

	importSvc, err := newImportService(cfg, eventRepo, cacheSvc, metrics, logger.Component(logr, "import"))
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare import pipeline", "error", err)
	}

	var wg sync.WaitGroup
	importHandler := handler.NewImportHandler(importSvc, nil)
	if cfg.Import.Enabled {
		scheduler, err := service.NewRefreshScheduler(importSvc, cfg.Live, metrics, service.SchedulerConfig{
			TickInterval: cfg.Import.TickInterval,
			Location:     loc,
		}, logger.Component(logr, "scheduler"))
		if err != nil {
			logr.Sugar().Fatalw("failed to start refresh scheduler", "error", err)
		}
		importHandler = handler.NewImportHandler(importSvc, scheduler)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scheduler.Run(ctx); err != nil {
				logr.Sugar().Errorw("refresh scheduler stopped", "error", err)
			}
		}()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), logr.Named("audit"), authSvc, handler.NewAuthHandler(authSvc), handler.NewEventHandler(eventSvc, exportSvc), importHandler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	wg.Wait()
}

func registerRoutes(api *gin.RouterGroup, logr *zap.Logger, tokens middleware.TokenValidator, auth *handler.AuthHandler, events *handler.EventHandler, imports *handler.ImportHandler) {
	api.POST("/auth/login", auth.Login)

	read := api.Group("/events", middleware.JWT(tokens))
	read.GET("", events.List)
	read.GET("/filter", events.Filter)
	read.GET("/bytime", events.ByTime)
	read.GET("/export", events.Export)
	read.GET("/:id", events.Get)

	admin := read.Group("", middleware.RequireRoles(models.RoleAdmin))
	admin.POST("", middleware.Audit(logr, "event.create"), events.Create)
	admin.DELETE("/:id", middleware.Audit(logr, "event.delete"), events.Delete)
	admin.POST("/refresh", middleware.Audit(logr, "import.refresh"), imports.Refresh)
	admin.GET("/refresh/schedule", imports.Schedule)
}

func newImportService(cfg *config.Config, store *repository.EventRepository, cacheSvc *service.CacheService, metrics *service.MetricsService, logr *zap.Logger) (*service.ImportService, error) {
	source, err := storage.NewLocalStorage(filepath.Dir(cfg.Import.SourcePath))
	if err != nil {
		return nil, err
	}
	reconciler := service.NewReconciler(store, cfg.Import.StoreTimeout, logr)
	importCfg := service.ImportConfig{
		SourceName:       filepath.Base(cfg.Import.SourcePath),
		Encoding:         cfg.Import.Encoding,
		ArchiveRetention: cfg.Import.ArchiveRetention,
	}

	if cfg.Import.ArchiveDir == "" {
		return service.NewImportService(source, reconciler, nil, cacheSvc, metrics, importCfg, logr), nil
	}
	archive, err := storage.NewLocalStorage(cfg.Import.ArchiveDir)
	if err != nil {
		return nil, err
	}
	return service.NewImportService(source, reconciler, archive, cacheSvc, metrics, importCfg, logr), nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
