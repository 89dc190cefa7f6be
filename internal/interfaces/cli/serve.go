package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/trialsync/trialsync/internal/application/intake"
	appmatching "github.com/trialsync/trialsync/internal/application/matching"
	appsync "github.com/trialsync/trialsync/internal/application/sync"
	"github.com/trialsync/trialsync/internal/config"
	"github.com/trialsync/trialsync/internal/infrastructure/database/postgres"
	"github.com/trialsync/trialsync/internal/infrastructure/database/postgres/repositories"
	"github.com/trialsync/trialsync/internal/infrastructure/database/redis"
	"github.com/trialsync/trialsync/internal/infrastructure/messaging/kafka"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/prometheus"
	"github.com/trialsync/trialsync/internal/infrastructure/registry"
	"github.com/trialsync/trialsync/internal/intelligence"
	httpserver "github.com/trialsync/trialsync/internal/interfaces/http"
	"github.com/trialsync/trialsync/internal/interfaces/http/handlers"
)

func newServeCmd() *cobra.Command {
	var migrateOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the TrialSync API server",
		Long:  "Assembles storage, cache, messaging, registry, and oracle clients\nand serves the HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cliCtx.Config, cliCtx.ConfigPath, migrateOnly)
		},
	}

	cmd.Flags().BoolVar(&migrateOnly, "migrate-only", false, "apply schema migrations and exit")
	return cmd
}

// runServer assembles every component from cfg and blocks until the context
// is cancelled or a termination signal arrives.
func runServer(ctx context.Context, cfg *config.Config, configPath string, migrateOnly bool) error {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logger = logger.Named("trialsync")
	logger.Info("starting",
		logging.String("version", Version),
		logging.String("addr", cfg.Server.Addr()))

	// Log level follows config file edits without a restart.
	if configPath != "" {
		config.Watch(configPath, func(next *config.Config) {
			if ls, ok := logger.(logging.LevelSetter); ok {
				ls.SetLevel(next.Log.Level)
				logger.Info("log level updated", logging.String("level", next.Log.Level))
			}
		})
	}

	if err := postgres.Migrate(cfg.Database, logger); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	if migrateOnly {
		logger.Info("migrations applied, exiting")
		return nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	patientRepo := repositories.NewPatientRepository(pool, logger)
	trialRepo := repositories.NewTrialRepository(pool, logger)

	// Cache is optional: a down redis degrades to uncached reads.
	var cache redis.Cache
	var rdb *goredis.Client
	rdb, err = redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", logging.Err(err))
		rdb = nil
	} else {
		cache = redis.NewCache(rdb, logger)
		defer rdb.Close()
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka, logger)
		defer producer.Close()
	}

	registryClient := registry.NewClient(cfg.Registry, logger)

	var predictor appmatching.ConditionPredictor
	var extractor intake.ProfileExtractor
	if cfg.Oracle.BaseURL != "" {
		chat := intelligence.NewHTTPChatClient(cfg.Oracle, logger)
		predictor = intelligence.NewProgressionPredictor(chat, logger)
		extractor = intelligence.NewProfileExtractor(chat, logger)
	} else {
		logger.Warn("oracle not configured, intake and future matching degraded")
	}

	metrics := prometheus.New()

	matchDeps := appmatching.Deps{
		Patients:  patientRepo,
		Trials:    trialRepo,
		Predictor: predictor,
		Registry:  registryClient,
		Cache:     cache,
		Metrics:   metrics,
		Logger:    logger,
	}
	syncDeps := appsync.Deps{
		Source:  registryClient,
		Trials:  trialRepo,
		Cache:   cache,
		Metrics: metrics,
		Logger:  logger,
	}
	intakeDeps := intake.Deps{
		Extractor: extractor,
		Patients:  patientRepo,
		Metrics:   metrics,
		Logger:    logger,
	}
	// A nil *Producer wrapped in a non-nil interface would defeat the
	// services' nil checks, so Events is only set when kafka is configured.
	if producer != nil {
		matchDeps.Events = producer
		syncDeps.Events = producer
		intakeDeps.Events = producer
	}

	matchService := appmatching.NewService(matchDeps, cfg.Matching.MinScore, cfg.Matching.Concurrency)
	syncService := appsync.NewService(syncDeps, cfg.Registry.PageSize, cfg.Registry.CacheTTL)
	intakeDeps.Matcher = matchService
	intakeService := intake.NewService(intakeDeps)

	checks := []handlers.Check{
		{Name: "postgres", Probe: pool.Ping},
	}
	if rdb != nil {
		checks = append(checks, handlers.Check{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		MatchHandler:   handlers.NewMatchHandler(matchService, logger),
		PatientHandler: handlers.NewPatientHandler(patientRepo, logger),
		TrialHandler:   handlers.NewTrialHandler(trialRepo, syncService, logger),
		IntakeHandler:  handlers.NewIntakeHandler(intakeService, logger),
		HealthHandler:  handlers.NewHealthHandler(checks...),
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		Logger:         logger,
		Metrics:        metrics,
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Registry.SyncEnabled {
		for _, condition := range cfg.Registry.SyncConditions {
			go syncService.Run(serveCtx, cfg.Registry.SyncPeriod, appsync.Request{Condition: condition})
		}
		if len(cfg.Registry.SyncConditions) == 0 {
			logger.Warn("registry sync enabled but no sync conditions configured")
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case <-serveCtx.Done():
		logger.Info("context cancelled")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("shutdown incomplete", logging.Err(err))
		return err
	}
	logger.Info("stopped")
	return nil
}
