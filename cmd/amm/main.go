package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product liquidity pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Apply an instruction journal to the pools",
		RunE:  runDispatch,
	}

	runCmd.Flags().String("program-id", "", "program id pool addresses are derived under")
	runCmd.Flags().String("in", "", "input instructions JSONL")
	runCmd.Flags().String("out", "./data/receipts.jsonl", "output receipts JSONL")
	runCmd.Flags().String("errors", "./data/instruction_errors.jsonl", "undecodable instruction lines JSONL")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path (memory backend)")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Uint64("batch-size", 500, "instructions per batch")
	runCmd.Flags().Int("workers", 4, "parallel pool groups per batch")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts for storage failures")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addStoreFlags(runCmd)
	runCmd.Flags().String("genesis", "", "initial ledger balances JSON, applied on the first run")
	runCmd.Flags().String("metrics-out", "", "write Prometheus metrics to this textfile")
	runCmd.Flags().Bool("verify", true, "verify custody mirroring after the run")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a pool address and bump",
		RunE:  runDerive,
	}

	deriveCmd.Flags().String("program-id", "", "program id")
	deriveCmd.Flags().String("token-a", "", "token A identity")
	deriveCmd.Flags().String("token-b", "", "token B identity")
	deriveCmd.Flags().StringSlice("seed", nil, "raw seeds instead of a token pair (0x-hex or text)")
	deriveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(deriveCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate receipts into per-pool statistics",
		RunE:  runReport,
	}

	reportCmd.Flags().String("in", "./data/receipts.jsonl", "input receipts JSONL")
	reportCmd.Flags().String("out", "./data/pool_stats.jsonl", "output pool statistics JSONL")
	reportCmd.Flags().String("pg-dsn", "", "optional Postgres DSN to upsert statistics into")
	reportCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	reportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reportCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against current reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("program-id", "", "program id")
	quoteCmd.Flags().String("pool", "", "pool address")
	quoteCmd.Flags().Uint64("amount-in", 0, "input amount")
	quoteCmd.Flags().String("direction", "a_to_b", "swap direction (a_to_b, b_to_a)")
	addStoreFlags(quoteCmd)
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	return root
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "memory", "state backend (memory, postgres)")
	cmd.Flags().String("state-file", "./data/state.json", "memory backend snapshot file")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN (postgres backend)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
