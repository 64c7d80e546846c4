package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	prepackingapp "github.com/prepacking/backend/internal/application/prepacking"
	"github.com/prepacking/backend/internal/application/validation"
	"github.com/prepacking/backend/internal/infrastructure/auth"
	"github.com/prepacking/backend/internal/infrastructure/config"
	"github.com/prepacking/backend/internal/infrastructure/event"
	"github.com/prepacking/backend/internal/infrastructure/extension"
	"github.com/prepacking/backend/internal/infrastructure/httpclient"
	"github.com/prepacking/backend/internal/infrastructure/lock"
	"github.com/prepacking/backend/internal/infrastructure/logger"
	"github.com/prepacking/backend/internal/infrastructure/migration"
	"github.com/prepacking/backend/internal/infrastructure/persistence"
	"github.com/prepacking/backend/internal/infrastructure/referencedata"
	"github.com/prepacking/backend/internal/infrastructure/stockledger"
	"github.com/prepacking/backend/internal/infrastructure/telemetry"
	"github.com/prepacking/backend/internal/interfaces/http/handler"
	"github.com/prepacking/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	poolStatsInterval  = 15 * time.Second
	draftCountInterval = time.Minute
)

//	@title			OpenLMIS Prepacking API
//	@version		1.0
//	@description	Splits bulk stock into prepacks through the stock ledger

//	@license.name	AGPL-3.0
//	@license.url	https://www.gnu.org/licenses/agpl-3.0.html

//	@BasePath	/api

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	migrate := flag.Bool("migrate", false, "Apply pending schema migrations before serving")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// Logs are bridged to the collector when telemetry is enabled
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log := bootLog
	if logProvider.IsEnabled() {
		if log, err = logger.New(logCfg, logProvider.Core(logger.ParseLevel(cfg.Log.Level))); err != nil {
			bootLog.Fatal("Failed to initialize logger", zap.Error(err))
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting prepacking service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, 0, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.Connect(ctx, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log).RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.NewDBMetrics(meter, cfg.Telemetry.DBSlowQueryThresh, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	if err := dbMetrics.Register(db.DB); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	sqlDB := db.Pool()
	dbMetrics.StartPoolStatsCollection(ctx, sqlDB, poolStatsInterval)
	defer dbMetrics.Stop()

	if *migrate {
		if err := runMigrations(sqlDB, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Derived product lock and token revocations
	allowFallback := cfg.App.Env != "production"
	locker, closeLocker, err := lock.NewFactory(cfg.Lock, cfg.Redis,
		lock.WithLogger(log),
		lock.WithInMemoryFallback(allowFallback),
	).CreateLocker(ctx)
	if err != nil {
		log.Fatal("Failed to create prepack lock", zap.Error(err))
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Warn("Error closing lock connection", zap.Error(err))
		}
	}()

	healthChecks := map[string]handler.HealthCheck{}
	var revocations auth.TokenRevocations = auth.NewInMemoryTokenRevocations()
	if redisClient := newRedisClient(ctx, cfg, log); redisClient != nil {
		defer func() {
			_ = redisClient.Close()
		}()
		revocations = auth.NewRedisTokenRevocations(redisClient)
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	repo := persistence.NewGormPrepackingEventRepository(db.DB)
	prepackingMetrics, err := telemetry.NewPrepackingMetrics(telemetry.PrepackingMetricsConfig{
		Meter:         meter,
		Logger:        log,
		DraftProvider: repo,
	})
	if err != nil {
		log.Fatal("Failed to create prepacking metrics", zap.Error(err))
	}
	prepackingMetrics.StartPeriodicCollection(ctx, draftCountInterval)
	defer prepackingMetrics.Stop()

	// Collaborating services
	refData := referencedata.NewClient(newServiceClient("referencedata", cfg.ReferenceData, prepackingMetrics, log))
	ledger := stockledger.NewClient(newServiceClient("stockledger", cfg.StockLedger, prepackingMetrics, log))

	// Validation pipeline with its extension points
	registry := extension.NewRegistry()
	deps := validation.Dependencies{
		RefData:           refData,
		Ledger:            ledger,
		UnpackKitReasonID: cfg.Prepacking.UnpackKitReason(),
	}
	if err := validation.RegisterDefaultExtensions(registry, deps); err != nil {
		log.Fatal("Failed to register default extensions", zap.Error(err))
	}
	if err := registry.ApplyActivations(cfg.Extensions); err != nil {
		log.Fatal("Failed to activate extensions", zap.Error(err))
	}
	pipeline := validation.NewDefaultPipeline(deps, registry, log)
	log.Info("Validation pipeline assembled", zap.Strings("steps", pipeline.Names()))

	// Domain events
	eventBus := event.NewInMemoryEventBus(log)
	if cfg.Kafka.Enabled {
		forwarder, err := newKafkaForwarder(cfg.Kafka, tracerProvider, log)
		if err != nil {
			log.Fatal("Failed to create Kafka forwarder", zap.Error(err))
		}
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Warn("Error closing Kafka writer", zap.Error(err))
			}
		}()
		eventBus.Subscribe(forwarder)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Prepacking application service
	reasons := prepackingapp.Reasons{
		Debit:  cfg.Prepacking.DebitReason(),
		Credit: cfg.Prepacking.CreditReason(),
	}
	resolver := prepackingapp.NewIdentityResolver(refData, locker, log)
	workflow := prepackingapp.NewAuthorizationWorkflow(refData, ledger, resolver, reasons, log)
	service := prepackingapp.NewService(
		repo,
		pipeline,
		prepackingapp.NewContextBuilder(refData),
		workflow,
		eventBus,
		reasons,
		log,
	)
	service.SetPrepackingMetrics(prepackingMetrics)

	// HTTP
	healthChecks["database"] = db.Ping
	systemHandler := handler.NewSystemHandler(version, healthChecks)
	var httpMeter metric.Meter
	if meterProvider.IsEnabled() {
		httpMeter = meter
	}
	engineDeps := router.EngineDeps{
		Config:      cfg.HTTP,
		Mode:        cfg.App.Env,
		ServiceName: cfg.Telemetry.ServiceName,
		Logger:      log,
		Meter:       httpMeter,
		Profiling:   profiler.IsEnabled(),
		JWT:         auth.NewJWTService(cfg.JWT),
		Revocations: revocations,
		System:      systemHandler,
		Prepacking:  handler.NewPrepackingEventHandler(service),
	}
	if tracerProvider.IsEnabled() {
		engineDeps.TracerProvider = tracerProvider.TracerProvider()
	}
	engine, err := router.NewEngine(engineDeps)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Error stopping event bus", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing traces", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing metrics", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func runMigrations(sqlDB *sql.DB, log *zap.Logger) error {
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	defer func() {
		_ = m.Close()
	}()
	return m.Up()
}

// newServiceClient builds the traced JSON client of one collaborating service
func newServiceClient(service string, cfg config.ServiceClientConfig, failures httpclient.FailureRecorder, log *zap.Logger) *httpclient.Client {
	client := httpclient.New(httpclient.Config{
		Service: service,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Token:   cfg.ServiceToken,
	}, log.With(zap.String("service", service)))
	client.SetFailureRecorder(failures)
	return client
}

// newRedisClient connects to Redis unless the lock runs in process.
// It returns nil when Redis is not configured or does not answer.
func newRedisClient(ctx context.Context, cfg *config.Config, log *zap.Logger) *redis.Client {
	if cfg.Lock.Backend == "memory" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Warn("Redis unavailable, token revocations are kept in process", zap.Error(err))
		return nil
	}
	return client
}

func newKafkaForwarder(cfg config.KafkaConfig, tp *telemetry.TracerProvider, log *zap.Logger) (*event.KafkaForwarder, error) {
	writer, err := event.NewKafkaWriter(cfg, tp.TracerProvider())
	if err != nil {
		return nil, err
	}
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	return event.NewKafkaForwarder(writer, serializer, log), nil
}
