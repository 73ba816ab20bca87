// Package report aggregates the receipt journal into per-pool statistics.
package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"microAMM/internal/model"
	"microAMM/internal/storage"
)

// StatsStore upserts pool statistics into a database.
type StatsStore interface {
	UpsertPoolStats(ctx context.Context, stats []model.PoolStats) error
}

// Config controls aggregation behavior.
type Config struct {
	BatchSize int
}

// Aggregator recomputes pool statistics from a full receipt journal.
type Aggregator struct {
	cfg          Config
	sink         storage.StatsSink
	store        StatsStore
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

// NewAggregator builds an Aggregator. Either sink or store may be nil.
func NewAggregator(cfg Config, sink storage.StatsSink, store StatsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run reads a receipts JSONL file and writes one PoolStats per pool.
func (a *Aggregator) Run(ctx context.Context, inputPath string) ([]model.PoolStats, error) {
	if a.sink == nil && a.store == nil {
		return nil, fmt.Errorf("no stats output configured")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	// A journal replayed after a failure repeats receipts; the last one for
	// a sequence wins.
	bySeq := make(map[uint64]model.Receipt)
	var total, duplicates, unattributed, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var receipt model.Receipt
		if err := json.Unmarshal(line, &receipt); err != nil {
			failed++
			a.logger.Warn("decode receipt", zap.Error(err))
			continue
		}
		if _, ok := bySeq[receipt.Seq]; ok {
			duplicates++
		}
		bySeq[receipt.Seq] = receipt
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	seqs := make([]uint64, 0, len(bySeq))
	for seq := range bySeq {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	for _, seq := range seqs {
		receipt := bySeq[seq]
		if receipt.Pool == "" {
			unattributed++
			continue
		}

		acc := a.accumulators[receipt.Pool]
		if acc == nil {
			acc = NewAccumulator(receipt.Pool, receipt.Seq)
			a.accumulators[receipt.Pool] = acc
		}
		if err := acc.AddReceipt(receipt); err != nil {
			failed++
			a.logger.Warn("aggregate receipt", zap.Error(err), zap.String("pool", receipt.Pool), zap.Uint64("seq", receipt.Seq))
		}
	}

	stats := make([]model.PoolStats, 0, len(a.accumulators))
	for _, acc := range a.accumulators {
		stats = append(stats, acc.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Pool < stats[j].Pool })

	if err := a.flush(ctx, stats); err != nil {
		return nil, err
	}

	a.logger.Info("report complete",
		zap.Int("total", total),
		zap.Int("duplicates", duplicates),
		zap.Int("pools", len(stats)),
		zap.Int("unattributed", unattributed),
		zap.Int("failed", failed),
	)
	return stats, nil
}

func (a *Aggregator) flush(ctx context.Context, stats []model.PoolStats) error {
	if a.sink != nil {
		if err := a.sink.PutPoolStats(stats); err != nil {
			return fmt.Errorf("write stats: %w", err)
		}
	}
	if a.store == nil {
		return nil
	}
	for start := 0; start < len(stats); start += a.cfg.BatchSize {
		end := start + a.cfg.BatchSize
		if end > len(stats) {
			end = len(stats)
		}
		if err := a.store.UpsertPoolStats(ctx, stats[start:end]); err != nil {
			return fmt.Errorf("upsert stats: %w", err)
		}
	}
	return nil
}
