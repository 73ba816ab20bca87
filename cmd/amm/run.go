package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"microAMM/internal/amm"
	"microAMM/internal/config"
	"microAMM/internal/dispatch"
	"microAMM/internal/metrics"
	"microAMM/internal/storage"
)

func runDispatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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
	programID, err := dispatch.ParseAddress(cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("program id: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if b.memory != nil && b.stateFile == "" && cfg.CheckpointEnabled {
		return fmt.Errorf("memory backend needs a state file when checkpointing is enabled")
	}

	checkpoint := b.checkpoint(cfg.Checkpoint, cfg.CheckpointEnabled, programID)
	if cfg.Genesis != "" {
		if err := applyGenesis(ctx, b, checkpoint, cfg.Genesis, logger); err != nil {
			return err
		}
	}

	var recorder amm.Recorder
	var m *metrics.Metrics
	if cfg.MetricsOut != "" {
		m = metrics.New()
		recorder = m
	}

	program, err := amm.NewProgram(amm.Config{ProgramID: programID, Recorder: recorder}, b.store, logger)
	if err != nil {
		return err
	}

	runner := dispatch.NewRunner(dispatch.RunConfig{
		InputPath:    cfg.In,
		BatchSize:    cfg.BatchSize,
		Workers:      cfg.Workers,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Verify:       cfg.Verify,
		AfterBatch:   b.persist,
	}, program, storage.NewJsonlStorage(cfg.Out), storage.NewJsonlStorage(cfg.Errors), checkpoint, logger)

	logger.Info("dispatch start",
		zap.String("program_id", programID.Hex()),
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.String("backend", cfg.Store.Backend),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Int("workers", cfg.Workers),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	summary, runErr := runner.Run(ctx)
	logger.Info("dispatch done",
		zap.Int("lines", summary.Lines),
		zap.Int("skipped", summary.Skipped),
		zap.Int("malformed", summary.Malformed),
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
	)

	if m != nil {
		if err := m.WriteFile(cfg.MetricsOut); err != nil {
			logger.Warn("write metrics failed", zap.String("path", cfg.MetricsOut), zap.Error(err))
		}
	}
	return runErr
}

// applyGenesis funds the ledger on a fresh start only: a restored snapshot
// or a saved checkpoint means the balances were already credited.
func applyGenesis(ctx context.Context, b *backend, checkpoint dispatch.StateStore, path string, logger *zap.Logger) error {
	if b.restored {
		logger.Info("genesis skipped", zap.String("reason", "snapshot restored"))
		return nil
	}
	if checkpoint != nil {
		_, ok, err := checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok {
			logger.Info("genesis skipped", zap.String("reason", "checkpoint present"))
			return nil
		}
	}

	balances, err := storage.ReadGenesis(path)
	if err != nil {
		return err
	}
	if err := storage.ApplyGenesis(ctx, b.funder, balances); err != nil {
		return err
	}
	logger.Info("genesis applied", zap.String("path", path), zap.Int("balances", len(balances)))
	return b.persist(ctx)
}
