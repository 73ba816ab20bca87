// Package dispatch feeds instruction journals through the pool program:
// decode, batch, execute with per-conflict-group parallelism, journal
// receipts and checkpoint progress.
package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"microAMM/internal/amm"
	"microAMM/internal/model"
	"microAMM/internal/storage"
)

// RunConfig holds runtime settings for the dispatcher.
type RunConfig struct {
	InputPath    string
	BatchSize    uint64
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	Verify       bool
	// AfterBatch runs once a batch is journaled, before its checkpoint is
	// saved. Outcomes recorded with the state make a batch replayed after a
	// failure here or in the checkpoint harmless.
	AfterBatch   func(ctx context.Context) error
}

// Summary counts what a run did.
type Summary struct {
	Lines     int
	Skipped   int
	Malformed int
	Applied   int
	Rejected  int
}

// Runner streams instructions from a JSONL file into the program.
type Runner struct {
	cfg        RunConfig
	program    *amm.Program
	receipts   storage.ReceiptSink
	lineErrors storage.LineErrorSink
	checkpoint StateStore
	logger     *zap.Logger
}

// NewRunner builds a Runner with its dependencies. A nil checkpoint
// disables resume; outcome records are then kept so a rerun of the same
// journal applies nothing twice.
func NewRunner(cfg RunConfig, program *amm.Program, receipts storage.ReceiptSink, lineErrors storage.LineErrorSink, checkpoint StateStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{
		cfg:        cfg,
		program:    program,
		receipts:   receipts,
		lineErrors: lineErrors,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// Run executes the dispatch loop.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if r.program == nil {
		return summary, fmt.Errorf("program is nil")
	}
	if r.receipts == nil {
		return summary, fmt.Errorf("receipt sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.InputPath == "" {
		return summary, fmt.Errorf("input path is required")
	}

	var last uint64
	if r.checkpoint != nil {
		seq, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return summary, err
		}
		if ok {
			last = seq
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", seq))
		}
	}

	instructions, err := r.readInstructions(last, &summary)
	if err != nil {
		return summary, err
	}
	if len(instructions) == 0 {
		r.logger.Info("nothing to dispatch", zap.Int("lines", summary.Lines), zap.Int("skipped", summary.Skipped))
		return summary, r.verify(ctx)
	}

	batches, err := SplitRange(0, uint64(len(instructions)-1), r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		chunk := instructions[batch.From : batch.To+1]
		receipts, err := r.runBatch(ctx, chunk)
		if err != nil {
			return summary, err
		}

		if err := r.receipts.PutReceipts(receipts); err != nil {
			return summary, fmt.Errorf("store receipts: %w", err)
		}
		if r.cfg.AfterBatch != nil {
			if err := r.cfg.AfterBatch(ctx); err != nil {
				return summary, fmt.Errorf("after batch: %w", err)
			}
		}
		lastSeq := chunk[len(chunk)-1].Seq
		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, lastSeq); err != nil {
				return summary, err
			}
			if err := r.program.PruneOutcomes(ctx, lastSeq); err != nil {
				return summary, fmt.Errorf("prune outcomes: %w", err)
			}
		}

		var applied, rejected int
		for _, receipt := range receipts {
			if receipt.OK {
				applied++
			} else {
				rejected++
			}
		}
		summary.Applied += applied
		summary.Rejected += rejected

		r.logger.Info("batch complete",
			zap.Uint64("from_seq", chunk[0].Seq),
			zap.Uint64("to_seq", lastSeq),
			zap.Int("applied", applied),
			zap.Int("rejected", rejected),
		)
	}

	return summary, r.verify(ctx)
}

// runBatch executes a batch. Instructions that share a pool or account run
// sequentially in batch order; independent groups run in parallel.
func (r *Runner) runBatch(ctx context.Context, chunk []model.Instruction) ([]model.Receipt, error) {
	keys := make([][]string, len(chunk))
	for i, ins := range chunk {
		keys[i] = conflictKeys(r.program.ProgramID(), ins)
	}
	groups := groupByConflict(keys)

	receipts := make([]model.Receipt, len(chunk))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			for _, idx := range group {
				receipt, err := r.executeWithRetry(gctx, chunk[idx])
				if err != nil {
					return fmt.Errorf("instruction %d: %w", chunk[idx].Seq, err)
				}
				receipts[idx] = receipt
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *Runner) executeWithRetry(ctx context.Context, ins model.Instruction) (model.Receipt, error) {
	var receipt model.Receipt
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		receipt, err = Execute(ctx, r.program, ins)
		if err != nil {
			r.logger.Warn("execute failed", zap.Error(err), zap.Uint64("seq", ins.Seq), zap.String("kind", string(ins.Kind)))
		}
		return err
	})
	return receipt, err
}

// readInstructions decodes the input file, journaling undecodable lines and
// dropping instructions at or below the checkpoint.
func (r *Runner) readInstructions(last uint64, summary *Summary) ([]model.Instruction, error) {
	file, err := os.Open(r.cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var (
		instructions []model.Instruction
		lineErrors   []model.LineError
		prevSeq      uint64
		lineNo       int
	)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		summary.Lines++

		var ins model.Instruction
		if err := json.Unmarshal(line, &ins); err != nil {
			lineErrors = append(lineErrors, model.LineError{Line: lineNo, Error: err.Error()})
			continue
		}
		if ins.Seq == 0 || ins.Seq <= prevSeq {
			lineErrors = append(lineErrors, model.LineError{
				Line:  lineNo,
				Seq:   ins.Seq,
				Error: fmt.Sprintf("sequence %d does not follow %d", ins.Seq, prevSeq),
			})
			continue
		}
		prevSeq = ins.Seq

		if ins.Seq <= last {
			summary.Skipped++
			continue
		}
		instructions = append(instructions, ins)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	summary.Malformed = len(lineErrors)
	if len(lineErrors) > 0 {
		r.logger.Warn("malformed instructions", zap.Int("count", len(lineErrors)))
		if r.lineErrors != nil {
			if err := r.lineErrors.PutLineErrors(lineErrors); err != nil {
				return nil, fmt.Errorf("store line errors: %w", err)
			}
		}
	}
	return instructions, nil
}

func (r *Runner) verify(ctx context.Context) error {
	if !r.cfg.Verify {
		return nil
	}
	if err := r.program.VerifyAll(ctx); err != nil {
		return fmt.Errorf("verify pools: %w", err)
	}
	r.logger.Info("pool invariants verified")
	return nil
}
