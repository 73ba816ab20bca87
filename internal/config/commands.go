package config

import (
	"github.com/spf13/pflag"
)

// DeriveConfig holds configuration for the derive command.
type DeriveConfig struct {
	ProgramID string
	TokenA    string
	TokenB    string
	Seeds     []string
	LogLevel  string
}

// LoadDerive merges config file, environment variables, and flags into DeriveConfig.
func LoadDerive(cfgFile string, flags *pflag.FlagSet) (DeriveConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{"log-level": "info"})
	if err != nil {
		return DeriveConfig{}, err
	}
	return DeriveConfig{
		ProgramID: v.GetString("program-id"),
		TokenA:    v.GetString("token-a"),
		TokenB:    v.GetString("token-b"),
		Seeds:     getStringSlice(v, "seed"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}

// ReportConfig holds configuration for the report command.
type ReportConfig struct {
	In        string
	Out       string
	PGDSN     string
	BatchSize int
	LogLevel  string
}

// LoadReport merges config file, environment variables, and flags into ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"in":         "./data/receipts.jsonl",
		"out":        "./data/pool_stats.jsonl",
		"batch-size": 1000,
		"log-level":  "info",
	})
	if err != nil {
		return ReportConfig{}, err
	}
	return ReportConfig{
		In:        v.GetString("in"),
		Out:       v.GetString("out"),
		PGDSN:     v.GetString("pg-dsn"),
		BatchSize: v.GetInt("batch-size"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	ProgramID string
	Store     StoreConfig
	Pool      string
	AmountIn  uint64
	Direction string
	LogLevel  string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"backend":    BackendMemory,
		"state-file": "./data/state.json",
		"direction":  "a_to_b",
		"log-level":  "info",
	})
	if err != nil {
		return QuoteConfig{}, err
	}
	cfg := QuoteConfig{
		ProgramID: v.GetString("program-id"),
		Store:     storeConfig(v),
		Pool:      v.GetString("pool"),
		AmountIn:  v.GetUint64("amount-in"),
		Direction: v.GetString("direction"),
		LogLevel:  v.GetString("log-level"),
	}
	return cfg, cfg.Store.Validate()
}
