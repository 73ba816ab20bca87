package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"microAMM/internal/amm"
	"microAMM/internal/config"
	"microAMM/internal/dispatch"
	"microAMM/internal/storage"
	"microAMM/internal/storage/postgres"
)

// backend is the opened state store behind the program.
type backend struct {
	store     amm.Store
	funder    storage.Funder
	memory    *storage.MemoryStore
	pg        *postgres.Store
	stateFile string
	restored  bool
}

func openBackend(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("postgres backend ready", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
		return &backend{store: store, funder: store, pg: store}, nil

	default:
		store := storage.NewMemoryStore()
		b := &backend{store: store, funder: store, memory: store, stateFile: cfg.StateFile}
		if cfg.StateFile != "" {
			loaded, err := store.LoadSnapshot(cfg.StateFile)
			if err != nil {
				return nil, err
			}
			b.restored = loaded
			logger.Info("memory backend ready", zap.String("state_file", cfg.StateFile), zap.Bool("restored", loaded))
		}
		return b, nil
	}
}

// checkpoint picks where dispatch progress lives: the database for the
// postgres backend, a file otherwise. It is nil when checkpointing is off.
func (b *backend) checkpoint(path string, enabled bool, programID common.Address) dispatch.StateStore {
	if !enabled {
		return nil
	}
	if b.pg != nil {
		return &dispatch.DBCheckpoint{Store: b.pg, Name: "dispatch:" + programID.Hex()}
	}
	return dispatch.NewFileCheckpoint(path, true)
}

// persist writes the memory snapshot. Postgres commits per transition.
func (b *backend) persist(_ context.Context) error {
	if b.memory == nil || b.stateFile == "" {
		return nil
	}
	return b.memory.SaveSnapshot(b.stateFile)
}

func (b *backend) Close() {
	if b.pg != nil {
		b.pg.Close()
	}
}
