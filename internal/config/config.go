package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "AMM"

// StoreConfig selects and locates the state backend.
type StoreConfig struct {
	Backend   string
	StateFile string
	PGDSN     string
}

// Config holds settings for the run command.
type Config struct {
	ProgramID         string
	In                string
	Out               string
	Errors            string
	Checkpoint        string
	CheckpointEnabled bool
	BatchSize         uint64
	Workers           int
	MaxRetries        int
	RetryBackoff      time.Duration
	Store             StoreConfig
	Genesis           string
	MetricsOut        string
	Verify            bool
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"out":                "./data/receipts.jsonl",
		"errors":             "./data/instruction_errors.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"batch-size":         uint64(500),
		"workers":            4,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"backend":            BackendMemory,
		"state-file":         "./data/state.json",
		"verify":             true,
		"log-level":          "info",
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ProgramID:         v.GetString("program-id"),
		In:                v.GetString("in"),
		Out:               v.GetString("out"),
		Errors:            v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		BatchSize:         v.GetUint64("batch-size"),
		Workers:           v.GetInt("workers"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Store:             storeConfig(v),
		Genesis:           v.GetString("genesis"),
		MetricsOut:        v.GetString("metrics-out"),
		Verify:            v.GetBool("verify"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, cfg.Store.Validate()
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Validate checks that the selected backend has what it needs.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
}

func storeConfig(v *viper.Viper) StoreConfig {
	return StoreConfig{
		Backend:   strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		StateFile: v.GetString("state-file"),
		PGDSN:     v.GetString("pg-dsn"),
	}
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
