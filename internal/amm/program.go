// Package amm implements the two-asset constant-product pool: creation,
// deposits and swaps as atomic transitions over a Store.
package amm

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"microAMM/internal/model"
)

// Recorder observes completed transitions.
type Recorder interface {
	ObserveTransition(kind model.InstructionKind, err error, elapsed time.Duration)
}

// Config holds the program settings.
type Config struct {
	ProgramID common.Address
	Recorder  Recorder
}

// Program executes pool transitions. It keeps no state of its own; every
// call reads and writes through the Store.
type Program struct {
	cfg    Config
	store  Store
	logger *zap.Logger
}

// NewProgram builds a Program with its dependencies.
func NewProgram(cfg Config, store Store, logger *zap.Logger) (*Program, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.ProgramID == (common.Address{}) {
		return nil, fmt.Errorf("program id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Program{cfg: cfg, store: store, logger: logger}, nil
}

// ProgramID returns the id pool addresses are derived under.
func (p *Program) ProgramID() common.Address {
	return p.cfg.ProgramID
}

func (p *Program) observe(kind model.InstructionKind, start time.Time, err error) {
	if p.cfg.Recorder == nil {
		return
	}
	p.cfg.Recorder.ObserveTransition(kind, err, time.Since(start))
}
