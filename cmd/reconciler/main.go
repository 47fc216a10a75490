package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"prop-reconciler/internal/alias"
	"prop-reconciler/internal/config"
	"prop-reconciler/internal/diagnostics"
	"prop-reconciler/internal/pipeline"
	"prop-reconciler/internal/store"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	if err := config.Validate(cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	st, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	var stream *diagnostics.StreamPublisher
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		stream = diagnostics.NewStreamPublisher(client)
		logger.Info("diagnostics stream publishing enabled", "addr", cfg.RedisAddr)
	}
	reporter := diagnostics.NewReporter(logger, stream)
	reporter.SetCooldown(cfg.AlertCooldown)

	// Graceful shutdown cancels the batch; a batch timeout bounds it either
	// way and reports partial completion.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver := alias.NewResolver(st, reporter)
	resolver.SetReloadInterval(cfg.AliasReload)
	if cfg.AliasSeedPath != "" {
		seeds, err := alias.LoadSeeds(cfg.AliasSeedPath)
		if err != nil {
			return fmt.Errorf("loading alias seeds: %w", err)
		}
		if err := seeds.Apply(ctx, st); err != nil {
			return fmt.Errorf("applying alias seeds: %w", err)
		}
		logger.Info("alias seeds applied",
			"players", len(seeds.Players), "prop_types", len(seeds.PropTypes))
	}
	if err := resolver.Reload(ctx); err != nil {
		return fmt.Errorf("loading alias tables: %w", err)
	}

	var props []pipeline.RawPropline
	if cfg.ProplinesPath != "" {
		if err := readBatch(cfg.ProplinesPath, &props); err != nil {
			return fmt.Errorf("reading proplines batch: %w", err)
		}
	}
	var logs []pipeline.RawGameLog
	if cfg.GameLogsPath != "" {
		if err := readBatch(cfg.GameLogsPath, &logs); err != nil {
			return fmt.Errorf("reading game logs batch: %w", err)
		}
	}
	if len(props) == 0 && len(logs) == 0 {
		return fmt.Errorf("nothing to do: set PROPLINES_PATH and/or GAMELOGS_PATH")
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.BatchTimeout)
	defer cancel()

	sum, err := pipeline.New(st, resolver, reporter, logger).Run(runCtx, props, logs)
	if err != nil {
		return err
	}
	if sum.Partial {
		return fmt.Errorf("batch %s finished partially: %d rows failed", sum.RunID, sum.FailedRows)
	}
	return nil
}

func openStore(cfg config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		logger.Info("using postgres store")
		return store.NewPostgres(cfg.DatabaseURL)
	}
	logger.Info("using sqlite store", "path", cfg.DBPath)
	return store.NewSQLite(cfg.DBPath)
}

func readBatch(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
