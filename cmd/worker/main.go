// The worker consumes match.requested events from the bus and executes the
// requested matching runs against storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appmatching "github.com/trialsync/trialsync/internal/application/matching"
	"github.com/trialsync/trialsync/internal/config"
	"github.com/trialsync/trialsync/internal/infrastructure/database/postgres"
	"github.com/trialsync/trialsync/internal/infrastructure/database/postgres/repositories"
	"github.com/trialsync/trialsync/internal/infrastructure/database/redis"
	"github.com/trialsync/trialsync/internal/infrastructure/messaging/kafka"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/prometheus"
	"github.com/trialsync/trialsync/internal/infrastructure/registry"
	"github.com/trialsync/trialsync/pkg/types/common"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: environment variables)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled() {
		return fmt.Errorf("kafka.brokers must be configured for the worker")
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := prometheus.New()
	metricsSrv := serveMetrics(cfg.Worker.MetricsAddr, metrics, logger)
	defer metricsSrv.Close()

	deps := appmatching.Deps{
		Patients: repositories.NewPatientRepository(pool, logger),
		Trials:   repositories.NewTrialRepository(pool, logger),
		Registry: registry.NewClient(cfg.Registry, logger),
		Metrics:  metrics,
		Logger:   logger,
	}
	if rdb, err := redis.NewClient(ctx, cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, running without cache", logging.Err(err))
	} else {
		deps.Cache = redis.NewCache(rdb, logger)
		defer rdb.Close()
	}

	matcher := appmatching.NewService(deps, cfg.Matching.MinScore, cfg.Matching.Concurrency)

	topics := kafka.NewTopics(cfg.Kafka.TopicPrefix)
	consumer := kafka.NewConsumer(cfg.Kafka, topics.Matches(), logger)
	defer consumer.Close()

	logger.Info("consuming match requests",
		logging.String("topic", topics.Matches()),
		logging.String("group", cfg.Kafka.GroupID))

	return consumer.Run(ctx, func(ctx context.Context, event common.Event) error {
		return handleEvent(ctx, matcher, logger, event)
	})
}

// handleEvent executes one match.requested job.  Events of other types share
// the topic and are skipped.  The min_score payload field, when present,
// overrides the configured threshold.
func handleEvent(ctx context.Context, matcher appmatching.Service, logger logging.Logger, event common.Event) error {
	if event.Type != kafka.EventMatchRequested {
		return nil
	}

	input := appmatching.MatchInput{}
	if raw, ok := event.Payload["min_score"].(float64); ok {
		min := int(raw)
		input.MinScore = &min
	}

	switch {
	case payloadString(event.Payload, "patient_id") != "":
		id := common.ID(payloadString(event.Payload, "patient_id"))
		out, err := matcher.MatchPatient(ctx, id, input)
		if err != nil {
			return err
		}
		logger.Info("patient matched",
			logging.String("patient_id", id.String()),
			logging.Int("current", len(out.Current)),
			logging.Int("future", len(out.Future)))

	case payloadString(event.Payload, "trial_id") != "":
		id := common.ID(payloadString(event.Payload, "trial_id"))
		out, err := matcher.MatchTrial(ctx, id, input)
		if err != nil {
			return err
		}
		logger.Info("trial matched",
			logging.String("trial_id", id.String()),
			logging.Int("eligible", len(out.Eligible)),
			logging.Int("future", len(out.Future)))

	default:
		out, err := matcher.MatchAll(ctx, input)
		if err != nil {
			return err
		}
		logger.Info("batch match complete",
			logging.Int("patients", out.PatientsMatched),
			logging.Int("trials", out.TrialsMatched),
			logging.Int("failures", out.Failures))
	}
	return nil
}

// serveMetrics exposes the worker's collectors on their own listener, since
// the worker carries no API surface to mount /metrics on.
func serveMetrics(addr string, m *prometheus.Metrics, logger logging.Logger) *http.Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener failed", logging.Err(err))
		}
	}()
	return srv
}

func payloadString(payload common.Metadata, key string) string {
	s, _ := payload[key].(string)
	return s
}
