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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-sa-api/api/swagger"
	"github.com/noah-isme/timetable-sa-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-sa-api/internal/middleware"
	"github.com/noah-isme/timetable-sa-api/internal/repository"
	"github.com/noah-isme/timetable-sa-api/internal/service"
	"github.com/noah-isme/timetable-sa-api/internal/timetable"
	"github.com/noah-isme/timetable-sa-api/pkg/cache"
	"github.com/noah-isme/timetable-sa-api/pkg/config"
	"github.com/noah-isme/timetable-sa-api/pkg/database"
	"github.com/noah-isme/timetable-sa-api/pkg/dataset"
	"github.com/noah-isme/timetable-sa-api/pkg/jobs"
	"github.com/noah-isme/timetable-sa-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-sa-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-sa-api/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-sa-api/pkg/signing"
)

// @title Timetable SA API
// @version 1.0.0
// @description Exam timetabling by simulated annealing
// @BasePath /api
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	metrics := service.NewMetricsService()
	validate := validator.New()

	var audit service.RunAuditRepository
	if cfg.Database.Enabled {
		db, dbErr := database.NewPostgres(ctx, cfg.Database)
		if dbErr != nil {
			return dbErr
		}
		closers = append(closers, db.Close)
		runs := repository.NewSearchRunRepository(db, metrics)
		if err := runs.EnsureSchema(ctx); err != nil {
			return err
		}
		audit = runs
		logr.Info("run audit log enabled", zap.String("db", cfg.Database.Name))
	}

	cacheSvc, cacheClose, err := buildResultCache(ctx, cfg, metrics, logr)
	if err != nil {
		return err
	}
	if cacheClose != nil {
		closers = append(closers, cacheClose)
	}

	store := service.NewRunStore(cacheSvc, cfg.Results.TTL)
	timetableSvc := service.NewTimetableService(store, audit, metrics, validate, logr, service.TimetableConfig{
		MaxIterations: cfg.Search.MaxIterations,
		Timeout:       cfg.Search.Timeout,
		Preferences: timetable.Preferences{
			LowPreferenceDay: cfg.Search.LowPreferenceDay,
			LateHourPrefixes: cfg.Search.LateHourPrefixes,
		},
	})

	queue := jobs.NewQueue("timetable-search", timetableSvc.ProcessJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		Logger:     logr,
		OnFailure:  timetableSvc.AbandonJob,
	})
	queue.Start(ctx)
	closers = append(closers, func() error {
		queue.Stop()
		return nil
	})
	timetableSvc.SetQueue(queue)

	signer := signing.NewSigner(cfg.Export.LinkSecret, cfg.Export.LinkTTL)
	exportSvc := service.NewExportService(timetableSvc, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr, nil, nil)

	router := newRouter(cfg, logr, metrics, handler.Handlers{
		Timetable: handler.NewTimetableHandler(timetableSvc, logr, cfg.APIPrefix),
		Export:    handler.NewExportHandler(exportSvc),
		Dataset:   handler.NewDatasetHandler(dataset.NewLoader()),
		Metrics:   handler.NewMetricsHandler(metrics),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("api_prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildResultCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func() error, error) {
	if !cfg.Results.RedisEnabled {
		return nil, nil, nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	logr.Info("redis result cache enabled", zap.String("addr", cache.Addr(cfg.Redis)))
	repo := repository.NewCacheRepository(client)
	return service.NewCacheService(repo, metrics, cfg.Results.TTL, logr, true), client.Close, nil
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, handlers handler.Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Options{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics"))

	r.GET("/metrics", handlers.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handlers)
	return r
}
