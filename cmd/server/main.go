package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizsuite/backend/internal/application/outbox"
	appsales "github.com/bizsuite/backend/internal/application/sales"
	"github.com/bizsuite/backend/internal/infrastructure/config"
	"github.com/bizsuite/backend/internal/infrastructure/localstore"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
	"github.com/bizsuite/backend/internal/infrastructure/persistence"
	"github.com/bizsuite/backend/internal/infrastructure/refresh"
	"github.com/bizsuite/backend/internal/infrastructure/telemetry"
	"github.com/bizsuite/backend/internal/interfaces/http/handler"
	"github.com/bizsuite/backend/internal/interfaces/http/middleware"
	"github.com/bizsuite/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const eventsPath = "/api/v1/events"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}

	logProvider, err := telemetry.NewLoggerProvider(ctx, telCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting sales ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	salesMetrics, err := telemetry.NewSalesMetrics(meterProvider.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		log.Fatal("Failed to register sales metrics", zap.Error(err))
	}

	// Remote store
	dbOpts := []persistence.Option{
		persistence.WithLogger(log, logger.MapGormLogLevel(cfg.Log.Level)),
		persistence.WithLogOptions(logger.WithParameterizedQueries(cfg.IsProduction())),
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbOpts = append(dbOpts, persistence.WithPlugin(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        dbSystem(cfg.Database.Driver),
		}, log)))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.Driver == config.DriverSQLite || cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	guard := persistence.NewCallGuard(cfg.Remote.CallTimeout, log)
	saleRepo := persistence.NewGormSaleRepository(db.DB, guard)
	itemRepo := persistence.NewGormSaleItemRepository(db.DB, guard)
	customerRepo := persistence.NewGormCustomerRepository(db.DB, guard)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB, guard)
	stockRepo := persistence.NewGormStockRepository(db.DB, guard)
	statusRPC := persistence.NewStatusRPC(db.DB, guard, log)

	// Device-local store backing the verification outbox
	store, err := localstore.NewFactory(cfg,
		localstore.WithLogger(log),
		localstore.WithInMemoryFallback(!cfg.IsProduction()),
	).Create()
	if err != nil {
		log.Fatal("Failed to open local store", zap.Error(err))
	}

	broadcaster := refresh.NewBroadcaster(cfg.HTTP.ReloadDebounce, log)

	queue := outbox.NewQueue(store, statusRPC, log)
	queue.SetRefresher(broadcaster)
	queue.SetMetrics(salesMetrics)

	var probe outbox.Probe
	if cfg.Outbox.ProbeEnabled {
		probe = db
	}
	replayer := outbox.NewReplayer(queue, probe, outbox.ReplayerConfig{
		PollInterval:  cfg.Outbox.PollInterval,
		ProbeInterval: cfg.Outbox.ProbeInterval,
		DrainTimeout:  cfg.Outbox.DrainTimeout,
	}, log)
	if cfg.Outbox.ReplayEnabled {
		if err := replayer.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox replayer", zap.Error(err))
		}
	}

	// Application services
	sequencer := appsales.NewInvoiceSequencer(saleRepo, cfg.Invoice.Tag, cfg.InvoiceLocation())

	saga := appsales.NewSaleSaga(saleRepo, itemRepo, stockRepo, customerRepo, sequencer, log)
	saga.SetNotifier(broadcaster)
	saga.SetMetrics(salesMetrics)

	ledger := appsales.NewPaymentLedger(saleRepo, paymentRepo, log)
	ledger.SetNotifier(broadcaster)
	ledger.SetMetrics(salesMetrics)

	verifier := appsales.NewVerificationService(saleRepo, statusRPC, queue, cfg.Outbox.MaxAttempts, log)
	verifier.SetNotifier(broadcaster)
	verifier.SetMetrics(salesMetrics)

	snapshot := appsales.NewInventorySnapshotProvider(stockRepo)
	summary := appsales.NewSummaryService(saleRepo, stockRepo, cfg.CreditTerm())

	// HTTP surface
	mode := gin.DebugMode
	if cfg.IsProduction() {
		mode = gin.ReleaseMode
	}
	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Mode:           mode,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		},
		Meter:       meterProvider.Meter("http.server"),
		StreamPaths: []string{eventsPath},
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine)
	r.Register(handler.NewSaleHandler(saga, ledger, verifier, saleRepo, itemRepo)).
		Register(handler.NewInventoryHandler(snapshot)).
		Register(handler.NewSummaryHandler(summary)).
		Register(handler.NewOutboxHandler(queue, replayer)).
		Register(handler.NewEventsHandler(broadcaster, handler.WithHeartbeat(cfg.HTTP.SSEKeepAlive))).
		Register(systemHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}
	stop()

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// SSE streams only end once their channels close
	broadcaster.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cfg.Outbox.ReplayEnabled {
		if err := replayer.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox replayer", zap.Error(err))
		}
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing local store", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func dbSystem(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite"
	}
	return "postgresql"
}
