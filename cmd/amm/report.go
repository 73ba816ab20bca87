package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"microAMM/internal/config"
	"microAMM/internal/report"
	"microAMM/internal/storage"
	"microAMM/internal/storage/postgres"
)

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := storage.NewJsonlStorage(cfg.Out)
	if err := sink.Truncate(); err != nil {
		return err
	}

	var statsStore report.StatsStore
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		statsStore = store
	}

	agg := report.NewAggregator(report.Config{BatchSize: cfg.BatchSize}, sink, statsStore, logger)

	logger.Info("report start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
	)

	stats, err := agg.Run(ctx, cfg.In)
	if err != nil {
		return err
	}
	logger.Info("report done", zap.Int("pools", len(stats)))
	return nil
}
