package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/geomag-stress-service/internal/adapter/filestore"
	"github.com/couchcryptid/geomag-stress-service/internal/adapter/fswatch"
	httpadapter "github.com/couchcryptid/geomag-stress-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/geomag-stress-service/internal/adapter/kafka"
	"github.com/couchcryptid/geomag-stress-service/internal/config"
	"github.com/couchcryptid/geomag-stress-service/internal/observability"
	"github.com/couchcryptid/geomag-stress-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gmvs failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	policy, err := filestore.ParsePolicy(cfg.ArtifactPolicy)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	space := filestore.Location{Dir: cfg.SpaceDir, Pattern: cfg.SpacePattern}
	ground := filestore.Location{Dir: cfg.GroundDir, Pattern: cfg.GroundPattern}
	loader := filestore.NewLoader(space, ground, policy, logger)
	reports := filestore.NewReportWriter(cfg.ReportPath, logger)
	state := filestore.NewStateRecorder(cfg.StateDir, clock, logger)

	// Publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = kp
		logger.Info("verdict publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	analysis := cfg.Analysis()
	p, err := pipeline.New(analysis, loader, reports, state, publisher, logger, metrics)
	if err != nil {
		return err
	}
	logger.Info("analysis configured",
		"strategy", analysis.Strategy,
		"threshold", analysis.SnapThreshold(),
		"top_k", analysis.TopK,
		"artifact_policy", policy,
		"profile", cfg.ProfilePath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMode == config.RunModeOnce {
		_, err := p.RunOnce(ctx)
		return err
	}
	return watch(ctx, cfg, p, clock, logger)
}

func watch(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, clock clockwork.Clock, logger *slog.Logger) error {
	trigger, err := fswatch.New([]fswatch.Target{
		{Dir: cfg.SpaceDir, Pattern: cfg.SpacePattern},
		{Dir: cfg.GroundDir, Pattern: cfg.GroundPattern},
	}, cfg.WatchDebounce, clock, logger)
	if err != nil {
		return err
	}
	defer trigger.Close()

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start file watcher.
	go func() {
		if err := trigger.Run(ctx); err != nil {
			logger.Error("file watcher error", "error", err)
		}
	}()

	if err := p.Watch(ctx, trigger.C()); err != nil {
		logger.Error("pipeline error", "error", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
