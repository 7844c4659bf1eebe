package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	apporder "github.com/pos/backend/internal/application/order"
	appreport "github.com/pos/backend/internal/application/report"
	appstock "github.com/pos/backend/internal/application/stock"
	appsync "github.com/pos/backend/internal/application/sync"
	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/infrastructure/cache"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/pos/backend/internal/infrastructure/event"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/notify"
	"github.com/pos/backend/internal/infrastructure/persistence"
	"github.com/pos/backend/internal/infrastructure/scheduler"
	"github.com/pos/backend/internal/infrastructure/storage"
	"github.com/pos/backend/internal/infrastructure/telemetry"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	// Every later entry also goes to the OTLP log exporter when enabled.
	log, err := logger.New(logCfg, providers.Logs.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting POS backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("report_timezone", cfg.Report.Timezone),
	)

	loc, err := cfg.Report.Location()
	if err != nil {
		log.Fatal("Invalid report timezone", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Database.SlowQuery)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DefaultDBTracingConfig(), log); err != nil {
			log.Warn("Database tracing not registered", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	posMetrics, err := telemetry.NewPOSMetrics(providers.Meter.Meter("pos"))
	if err != nil {
		log.Warn("Business metrics disabled", zap.Error(err))
		posMetrics = telemetry.NewNopPOSMetrics()
	}

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	menuRepo := persistence.NewGormMenuRepository(db.DB)
	stockLogRepo := persistence.NewGormStockLogRepository(db.DB)
	summaryRepo := persistence.NewGormDailySummaryRepository(db.DB)

	eventBus := event.NewInMemoryEventBus(log)

	notifier, notifierCloser, err := notify.New(cfg.Notify, redisClient, log)
	if err != nil {
		log.Fatal("Failed to initialize order notifier", zap.Error(err))
	}
	defer func() {
		_ = notifierCloser.Close()
	}()

	// Application services
	numbers := order.NewNumberGenerator(cache.NewOrderNumberReserver(redisClient, log))
	ingestionService := apporder.NewIngestionService(orderRepo, numbers, notifier)
	ingestionService.SetEventPublisher(eventBus)
	ingestionService.SetMetrics(posMetrics)
	ingestionService.SetNotifyTimeout(cfg.Notify.Timeout)

	orderService := apporder.NewOrderService(orderRepo)
	orderService.SetEventPublisher(eventBus)
	orderService.SetMetrics(posMetrics)

	stockService := appstock.NewStockService(menuRepo, stockLogRepo)
	stockService.SetMetrics(posMetrics)

	reportService := appreport.NewReportService(orderRepo, summaryRepo, stockService, loc)
	reportService.SetMetrics(posMetrics)

	exporter := appreport.NewExporter(report.IdentityLocalizer{}, loc)
	exporter.SetMetrics(posMetrics)
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3ExportArchive(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to initialize export archive", zap.Error(err))
		}
		bucketCtx, cancelBucket := context.WithTimeout(context.Background(), 10*time.Second)
		if err := archive.EnsureBucket(bucketCtx); err != nil {
			log.Warn("Export bucket not verified", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		cancelBucket()
		exporter.SetArchiver(archive)
		log.Info("Export archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	// Order synchronization
	store := appsync.NewOrderStore()
	synchronizer := appsync.NewSynchronizer(store, orderService, cfg.Sync.PollInterval, log)
	synchronizer.SetEventSubscriber(eventBus)
	synchronizer.SetMetrics(posMetrics)
	synchronizer.SetListLimit(cfg.Sync.ListLimit)
	if cfg.Sync.PushEnabled && redisClient != nil {
		changes := cache.NewOrderChangeChannel(redisClient, cfg.Sync.Channel, log)
		eventBus.Subscribe(changes)
		synchronizer.SetRemoteChanges(changes)
		defer func() {
			_ = changes.Close()
		}()
		log.Info("Cross-instance order push enabled", zap.String("channel", cfg.Sync.Channel))
	}
	mutations := appsync.NewMutationCommand(synchronizer, orderService)

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	if err := eventBus.Start(appCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	if err := synchronizer.Start(appCtx); err != nil {
		log.Fatal("Failed to start order synchronizer", zap.Error(err))
	}

	var rollups *scheduler.RollupRunner
	if cfg.Rollup.Enabled {
		executor := scheduler.NewRollupExecutor(orderRepo, summaryRepo, scheduler.NewLocker(redisClient), cfg.Rollup.LockTTL, loc, log)
		rollups = scheduler.NewRollupRunner(cfg.Rollup, executor, loc, log)
		if err := rollups.Start(appCtx); err != nil {
			log.Fatal("Failed to start daily summary rollup", zap.Error(err))
		}
	}

	// HTTP
	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion)
	systemHandler.AddCheck("database", db.Ping)
	if redisClient != nil {
		systemHandler.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	streamHandler := handler.NewOrderStreamHandler(store, cfg.HTTP.SSEHeartbeat, log)
	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		HTTP:           cfg.HTTP,
		TracingEnabled: cfg.Telemetry.Enabled,
		MeterProvider:  providers.Meter,
		Logger:         log,
	}, router.Handlers{
		Orders:  handler.NewOrderHandler(ingestionService, orderService, mutations, store, loc),
		Stream:  streamHandler,
		Menu:    handler.NewMenuHandler(menuRepo),
		Stock:   handler.NewStockHandler(stockService, loc),
		Reports: handler.NewReportHandler(reportService, exporter),
		System:  systemHandler,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}
	// Shutdown waits for active requests; open order streams must end first.
	srv.RegisterOnShutdown(streamHandler.Close)

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if rollups != nil {
		if err := rollups.Stop(ctx); err != nil {
			log.Error("Rollup runner stop failed", zap.Error(err))
		}
	}
	synchronizer.Stop()
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Event bus stop failed", zap.Error(err))
	}
	if err := providers.Shutdown(ctx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
