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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/migrations"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/clock"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-api/pkg/notify"
)

// @title Timetable API
// @version 1.0.0
// @description Timetable conflicts, substitutions, duty rosters and the live bell clock.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// queue workers outlive the signal so shutdown can drain them
	workerCtx := context.Background()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		migrateCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		version, err := database.Migrate(migrateCtx, db, migrations.FS)
		cancel()
		if err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
		logr.Info("migrations applied", zap.Int64("version", version))
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var (
		cacheRepo service.CacheRepository
		cachePing handler.Pinger
	)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			repo := repository.NewCacheRepository(client, logr)
			cacheRepo = repo
			cachePing = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, cfg.Cache.KeyPrefix, logr, cfg.Cache.Enabled)

	snapshotRepo := repository.NewSnapshotRepository(db, metrics)
	outbox := service.NewSnapshotOutbox(snapshotRepo, cfg.Outbox, metrics, logr)
	var sink interface {
		Apply(context.Context, models.SnapshotDelta) error
	} = snapshotRepo
	if cfg.Outbox.Enabled {
		sink = outbox
		outbox.Start(workerCtx)
	}
	snapshots := service.NewSnapshotService(snapshotRepo, sink, cacheSvc, cfg.History.Depth, logr)

	notifications := service.NewNotificationService(buildNotifier(cfg.Notifications, logr), cfg.Notifications, metrics, logr)
	notifications.Start(workerCtx)

	timetableSvc := service.NewTimetableService(snapshots, validate, logr)
	substitutionSvc := service.NewSubstitutionService(snapshots, notifications, metrics, service.RankWeightsFromConfig(cfg.Heuristics), validate, logr)
	dutySvc := service.NewDutyService(snapshots, metrics, service.DutyWeightsFromConfig(cfg.Heuristics), cfg.Bells.SchoolDays, validate, logr)
	exportSvc := service.NewExportService(snapshots, logr)
	tokenSvc := service.NewTokenService(cfg.JWT)

	bellRepo := repository.NewBellRepository(db)
	bellSvc := service.NewBellService(bellRepo, clock.NewSystem(cfg.Bells.Location()), metrics, service.BellConfig{
		MaxBreakMinutes: cfg.Heuristics.BellMaxBreakMinutes,
		RefreshInterval: cfg.Bells.RefreshInterval,
	}, validate, logr)
	bellSvc.Start(ctx)

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	substitutionHandler := handler.NewSubstitutionHandler(substitutionSvc, exportSvc)
	dutyHandler := handler.NewDutyHandler(dutySvc, exportSvc)
	bellHandler := handler.NewBellHandler(bellSvc)
	checks := map[string]handler.Pinger{"postgres": bellRepo}
	if cachePing != nil {
		checks["redis"] = cachePing
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, internalmiddleware.JWT(tokenSvc))
	editor := internalmiddleware.RequireEditor()

	timetables := api.Group("/timetables/:halfYear")
	{
		timetables.GET("/lessons", timetableHandler.ListLessons)
		timetables.POST("/lessons", editor, timetableHandler.CreateLesson)
		timetables.POST("/lessons/check", timetableHandler.CheckLesson)
		timetables.PUT("/lessons/:id", editor, timetableHandler.UpdateLesson)
		timetables.DELETE("/lessons/:id", editor, timetableHandler.DeleteLesson)
		timetables.GET("/teachers", timetableHandler.ListTeachers)
		timetables.PUT("/teachers/:id", editor, timetableHandler.UpsertTeacher)
		timetables.DELETE("/teachers/:id", editor, timetableHandler.DeleteTeacher)
		timetables.GET("/conflicts", timetableHandler.Conflicts)
		timetables.GET("/history", timetableHandler.History)
	}

	substitutions := timetables.Group("/substitutions")
	{
		substitutions.GET("", substitutionHandler.Daily)
		substitutions.GET("/candidates", substitutionHandler.Candidates)
		substitutions.GET("/load", substitutionHandler.MonthlyLoad)
		substitutions.GET("/export", substitutionHandler.Export)
		substitutions.POST("", editor, substitutionHandler.Assign)
		substitutions.POST("/swap", editor, substitutionHandler.Swap)
		substitutions.POST("/absences", editor, substitutionHandler.Absence)
		substitutions.POST("/undo", editor, timetableHandler.Undo)
		substitutions.POST("/redo", editor, timetableHandler.Redo)
		substitutions.DELETE("/:date/:lessonId", editor, substitutionHandler.Delete)
	}

	duty := timetables.Group("/duty")
	{
		duty.GET("", dutyHandler.Roster)
		duty.GET("/conflicts", dutyHandler.Conflicts)
		duty.GET("/export", dutyHandler.Export)
		duty.POST("/solve", editor, dutyHandler.Solve)
		duty.PUT("", editor, dutyHandler.Assign)
		duty.DELETE("", editor, dutyHandler.Clear)
	}

	bells := api.Group("/bells")
	{
		bells.GET("/status", bellHandler.Status)
		bells.GET("/presets", bellHandler.ListPresets)
		bells.POST("/presets", editor, bellHandler.CreatePreset)
		bells.POST("/presets/:id/activate", editor, bellHandler.Activate)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
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
	bellSvc.Stop()
	if err := notifications.Flush(shutdownCtx); err != nil {
		logr.Warn("notification flush incomplete", zap.Error(err))
	}
	notifications.Stop()
	if cfg.Outbox.Enabled {
		if err := outbox.Flush(shutdownCtx); err != nil {
			logr.Warn("snapshot outbox flush incomplete", zap.Int("pending", outbox.Pending()), zap.Error(err))
		}
		outbox.Stop()
	}
}

func buildNotifier(cfg config.NotificationConfig, logr *zap.Logger) notify.Notifier {
	if !cfg.Enabled {
		return notify.Nop{}
	}
	dispatcher := &notify.Dispatcher{}
	if cfg.SendgridAPIKey != "" {
		dispatcher.Email = notify.NewSendgridNotifier(cfg.SendgridAPIKey, cfg.FromName, cfg.FromEmail)
	}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken)
		if err != nil {
			logr.Warn("telegram notifier disabled", zap.Error(err))
		} else {
			dispatcher.Telegram = tg
		}
	}
	return dispatcher
}
