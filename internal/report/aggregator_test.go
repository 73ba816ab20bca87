package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"microAMM/internal/model"
)

type memorySink struct {
	stats []model.PoolStats
}

func (s *memorySink) PutPoolStats(stats []model.PoolStats) error {
	s.stats = append(s.stats, stats...)
	return nil
}

type batchStore struct {
	batches [][]model.PoolStats
}

func (s *batchStore) UpsertPoolStats(_ context.Context, stats []model.PoolStats) error {
	s.batches = append(s.batches, append([]model.PoolStats(nil), stats...))
	return nil
}

func writeReceipts(t *testing.T, receipts ...model.Receipt) string {
	t.Helper()
	lines := make([]string, 0, len(receipts)+1)
	for _, r := range receipts {
		line, err := json.Marshal(r)
		require.NoError(t, err)
		lines = append(lines, string(line))
	}
	lines = append(lines, "not json")
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))
	return path
}

func TestAggregatorRun(t *testing.T) {
	path := writeReceipts(t,
		model.Receipt{Seq: 1, Kind: model.KindInitialize, Pool: "0xp1", OK: true},
		model.Receipt{Seq: 2, Kind: model.KindAddLiquidity, Pool: "0xp1", OK: true, AmountA: 100_000_000, AmountB: 200_000_000, ReserveA: 100_000_000, ReserveB: 200_000_000},
		model.Receipt{Seq: 3, Kind: model.KindSwap, Pool: "0xp1", OK: true, Direction: model.AToB, AmountIn: 10_000_000, AmountOut: 17_684_595, Fee: 300_000, ReserveA: 110_000_000, ReserveB: 182_315_405},
		model.Receipt{Seq: 4, Kind: model.KindSwap, Pool: "0xp1", OK: false, Direction: model.AToB, AmountIn: 1},
		model.Receipt{Seq: 5, Kind: model.KindSwap, Pool: "0xp0", OK: false, Direction: model.BToA, AmountIn: 1},
		model.Receipt{Seq: 6, Kind: model.KindSwap, OK: false},
	)

	sink := &memorySink{}
	store := &batchStore{}
	agg := NewAggregator(Config{BatchSize: 1}, sink, store, nil)

	stats, err := agg.Run(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, stats, sink.stats)
	require.Len(t, store.batches, 2)

	require.Equal(t, "0xp0", stats[0].Pool)
	require.Equal(t, uint64(1), stats[0].Failed)
	require.False(t, stats[0].Initialized)

	p1 := stats[1]
	require.True(t, p1.Initialized)
	require.Equal(t, uint64(1), p1.Deposits)
	require.Equal(t, uint64(1), p1.Swaps)
	require.Equal(t, uint64(1), p1.SwapsAToB)
	require.Equal(t, uint64(1), p1.Failed)
	require.Equal(t, "100000000", p1.DepositedA)
	require.Equal(t, "10000000", p1.VolumeInA)
	require.Equal(t, "17684595", p1.VolumeOutB)
	require.Equal(t, "300000", p1.FeeA)
	require.Equal(t, "0", p1.FeeB)
	require.Equal(t, uint64(110_000_000), p1.ReserveA)
	require.Equal(t, uint64(182_315_405), p1.ReserveB)
	require.Equal(t, uint64(1), p1.FirstSeq)
	require.Equal(t, uint64(4), p1.LastSeq)
}

func TestAggregatorCountsRepeatedReceiptsOnce(t *testing.T) {
	deposit := model.Receipt{Seq: 2, Kind: model.KindAddLiquidity, Pool: "0xp1", OK: true, AmountA: 100_000_000, AmountB: 200_000_000, ReserveA: 100_000_000, ReserveB: 200_000_000}
	swap := model.Receipt{Seq: 3, Kind: model.KindSwap, Pool: "0xp1", OK: true, Direction: model.AToB, AmountIn: 10_000_000, AmountOut: 17_684_595, Fee: 300_000, ReserveA: 110_000_000, ReserveB: 182_315_405}
	path := writeReceipts(t,
		model.Receipt{Seq: 1, Kind: model.KindInitialize, Pool: "0xp1", OK: true},
		deposit,
		swap,
		deposit,
		swap,
	)

	sink := &memorySink{}
	stats, err := NewAggregator(Config{}, sink, nil, nil).Run(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	p1 := stats[0]
	require.Equal(t, uint64(1), p1.Deposits)
	require.Equal(t, uint64(1), p1.Swaps)
	require.Equal(t, "100000000", p1.DepositedA)
	require.Equal(t, "10000000", p1.VolumeInA)
	require.Equal(t, "17684595", p1.VolumeOutB)
	require.Equal(t, "300000", p1.FeeA)
	require.Equal(t, uint64(110_000_000), p1.ReserveA)
	require.Equal(t, uint64(3), p1.LastSeq)
}

func TestAccumulatorSumsPastUint64(t *testing.T) {
	acc := NewAccumulator("0xp1", 1)
	for seq := uint64(1); seq <= 2; seq++ {
		require.NoError(t, acc.AddReceipt(model.Receipt{
			Seq: seq, Kind: model.KindSwap, OK: true, Direction: model.BToA,
			AmountIn: 18446744073709551615, AmountOut: 1, Fee: 1,
		}))
	}
	stats := acc.Stats()
	require.Equal(t, "36893488147419103230", stats.VolumeInB)
	require.Equal(t, uint64(2), stats.SwapsBToA)
}

func TestAggregatorRequiresOutput(t *testing.T) {
	_, err := NewAggregator(Config{}, nil, nil, nil).Run(context.Background(), "missing.jsonl")
	require.Error(t, err)
}
