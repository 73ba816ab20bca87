package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"microAMM/internal/amm"
	"microAMM/internal/derive"
	"microAMM/internal/model"
	"microAMM/internal/storage"
)

var (
	programID = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	lp        = common.HexToAddress("0xa0a0000000000000000000000000000000000001")
	trader    = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
	tokenX    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenY    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	custodyX  = common.HexToAddress("0xc0000000000000000000000000000000000000a1")
	custodyY  = common.HexToAddress("0xc0000000000000000000000000000000000000b1")
)

func newProgram(t *testing.T) (*amm.Program, *storage.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Fund(ctx, lp, tokenX, 100_000_000))
	require.NoError(t, store.Fund(ctx, lp, tokenY, 200_000_000))
	require.NoError(t, store.Fund(ctx, trader, tokenX, 10_000_000))

	program, err := amm.NewProgram(amm.Config{ProgramID: programID}, store, zaptest.NewLogger(t))
	require.NoError(t, err)
	return program, store
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func readReceipts(t *testing.T, path string) []model.Receipt {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var receipts []model.Receipt
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var r model.Receipt
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		receipts = append(receipts, r)
	}
	require.NoError(t, scanner.Err())
	return receipts
}

func scenarioLines(t *testing.T) []string {
	t.Helper()
	pool, _, err := derive.FindPoolAddress(programID, tokenX, tokenY)
	require.NoError(t, err)
	return []string{
		fmt.Sprintf(`{"seq":1,"kind":"initialize","signer":"%s","token_a":"%s","token_b":"%s","custody_a":"%s","custody_b":"%s","authority":"%s","fee_bps":300}`,
			lp.Hex(), tokenX.Hex(), tokenY.Hex(), custodyX.Hex(), custodyY.Hex(), lp.Hex()),
		fmt.Sprintf(`{"seq":2,"kind":"add_liquidity","signer":"%s","pool":"%s","custody_a":"%s","custody_b":"%s","amount_a":"100000000","amount_b":"200000000"}`,
			lp.Hex(), pool.Hex(), custodyX.Hex(), custodyY.Hex()),
		`{"seq":3,"kind":"swap","bogus":true}`,
		fmt.Sprintf(`{"seq":4,"kind":"swap","signer":"%s","pool":"%s","custody_a":"%s","custody_b":"%s","amount_in":"10000000","direction":"a_to_b"}`,
			trader.Hex(), pool.Hex(), custodyX.Hex(), custodyY.Hex()),
		fmt.Sprintf(`{"seq":5,"kind":"swap","signer":"%s","pool":"%s","custody_a":"%s","custody_b":"%s","amount_in":"1","direction":"a_to_b"}`,
			trader.Hex(), pool.Hex(), custodyX.Hex(), custodyY.Hex()),
		`{"seq":5,"kind":"swap"}`,
	}
}

func TestRunnerDispatchesAndResumes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "instructions.jsonl")
	writeLines(t, input, scenarioLines(t)...)

	program, _ := newProgram(t)
	receiptsPath := filepath.Join(dir, "receipts.jsonl")
	errorsPath := filepath.Join(dir, "errors.jsonl")
	checkpoint := NewFileCheckpoint(filepath.Join(dir, "checkpoint.json"), true)

	batches := 0
	cfg := RunConfig{
		InputPath:  input,
		BatchSize:  2,
		Workers:    4,
		MaxRetries: 1,
		Verify:     true,
		AfterBatch: func(context.Context) error { batches++; return nil },
	}
	runner := NewRunner(cfg, program, storage.NewJsonlStorage(receiptsPath), storage.NewJsonlStorage(errorsPath), checkpoint, zaptest.NewLogger(t))

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Lines: 6, Malformed: 2, Applied: 3, Rejected: 1}, summary)
	require.Equal(t, 2, batches)

	receipts := readReceipts(t, receiptsPath)
	require.Len(t, receipts, 4)
	require.Equal(t, []uint64{1, 2, 4, 5}, []uint64{receipts[0].Seq, receipts[1].Seq, receipts[2].Seq, receipts[3].Seq})

	swap := receipts[2]
	require.True(t, swap.OK)
	require.Equal(t, uint64(17_684_595), swap.AmountOut)
	require.Equal(t, uint64(300_000), swap.Fee)
	require.Equal(t, uint64(110_000_000), swap.ReserveA)
	require.Equal(t, uint64(182_315_405), swap.ReserveB)

	dust := receipts[3]
	require.False(t, dust.OK)
	require.Equal(t, model.Codespace, dust.Codespace)
	require.Equal(t, uint32(9), dust.Code)

	seq, ok, err := checkpoint.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(5), seq)

	summary, err = runner.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, summary.Skipped)
	require.Zero(t, summary.Applied)
	require.Len(t, readReceipts(t, receiptsPath), 4)
}

// failingCheckpoint loses every save, as a process stopping between the
// snapshot write and the checkpoint write would.
type failingCheckpoint struct {
	StateStore
}

func (failingCheckpoint) Save(context.Context, uint64) error {
	return errors.New("checkpoint unavailable")
}

func TestRunnerReplaysBatchWithoutReapplying(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	input := filepath.Join(dir, "instructions.jsonl")
	lines := scenarioLines(t)
	writeLines(t, input, lines[0], lines[1], lines[3], lines[4])

	snapshot := filepath.Join(dir, "state.json")
	receiptsPath := filepath.Join(dir, "receipts.jsonl")
	checkpointPath := filepath.Join(dir, "checkpoint.json")

	program, store := newProgram(t)
	cfg := RunConfig{
		InputPath:  input,
		BatchSize:  10,
		Workers:    2,
		MaxRetries: 1,
		AfterBatch: func(context.Context) error { return store.SaveSnapshot(snapshot) },
	}
	runner := NewRunner(cfg, program, storage.NewJsonlStorage(receiptsPath), nil,
		failingCheckpoint{NewFileCheckpoint(checkpointPath, true)}, zaptest.NewLogger(t))
	_, err := runner.Run(ctx)
	require.ErrorContains(t, err, "checkpoint unavailable")

	restored := storage.NewMemoryStore()
	loaded, err := restored.LoadSnapshot(snapshot)
	require.NoError(t, err)
	require.True(t, loaded)
	program, err = amm.NewProgram(amm.Config{ProgramID: programID}, restored, zaptest.NewLogger(t))
	require.NoError(t, err)

	cfg.Verify = true
	cfg.AfterBatch = func(context.Context) error { return restored.SaveSnapshot(snapshot) }
	runner = NewRunner(cfg, program, storage.NewJsonlStorage(receiptsPath), nil,
		NewFileCheckpoint(checkpointPath, true), zaptest.NewLogger(t))
	summary, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{Lines: 4, Applied: 3, Rejected: 1}, summary)

	pool, _, err := derive.FindPoolAddress(programID, tokenX, tokenY)
	require.NoError(t, err)
	stored, err := program.Pool(ctx, pool)
	require.NoError(t, err)
	require.Equal(t, model.Reserves{A: 110_000_000, B: 182_315_405}, stored.Reserves())
	require.NoError(t, restored.Atomic(ctx, func(st amm.State) error {
		got, err := st.BalanceOf(ctx, trader, tokenY)
		require.NoError(t, err)
		require.Equal(t, uint64(17_684_595), got)
		got, err = st.BalanceOf(ctx, trader, tokenX)
		require.NoError(t, err)
		require.Zero(t, got)
		return nil
	}))

	receipts := readReceipts(t, receiptsPath)
	require.Len(t, receipts, 8)
	for i := 0; i < 4; i++ {
		require.Equal(t, receipts[i].Outcome(), receipts[i+4].Outcome())
	}
	require.Equal(t, uint64(17_684_595), receipts[6].AmountOut)
	require.Equal(t, uint32(9), receipts[7].Code)

	_, ok, err := program.Outcome(ctx, 4)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunnerRejectsBadInstructionFields(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "instructions.jsonl")
	writeLines(t, input,
		`{"seq":1,"kind":"initialize","signer":"not-an-address"}`,
		`{"seq":2,"kind":"burn","signer":"0x01"}`,
	)

	program, _ := newProgram(t)
	receiptsPath := filepath.Join(dir, "receipts.jsonl")
	runner := NewRunner(RunConfig{InputPath: input, BatchSize: 10}, program, storage.NewJsonlStorage(receiptsPath), nil, nil, nil)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Rejected)

	for _, receipt := range readReceipts(t, receiptsPath) {
		require.False(t, receipt.OK)
		require.Equal(t, uint32(15), receipt.Code)
	}
}

func TestGroupByConflict(t *testing.T) {
	groups := groupByConflict([][]string{
		{"pool:1", "account:a"},
		{"pool:2", "account:b"},
		{"pool:3", "account:a"},
		{"pool:2", "account:c"},
		{"seq:5"},
	})
	require.Equal(t, [][]int{{0, 2}, {1, 3}, {4}}, groups)
}
