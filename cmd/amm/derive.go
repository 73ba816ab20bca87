package main

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"microAMM/internal/config"
	"microAMM/internal/derive"
	"microAMM/internal/dispatch"
)

type deriveOutput struct {
	Address common.Address `json:"address"`
	Bump    uint8          `json:"bump"`
}

func runDerive(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDerive(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	programID, err := dispatch.ParseAddress(cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("program id: %w", err)
	}

	var out deriveOutput
	if len(cfg.Seeds) > 0 {
		seeds, err := dispatch.ParseSeeds(cfg.Seeds)
		if err != nil {
			return err
		}
		out.Address, out.Bump, err = derive.FindAddress(programID, seeds)
		if err != nil {
			return err
		}
	} else {
		tokenA, err := dispatch.ParseAddress(cfg.TokenA)
		if err != nil {
			return fmt.Errorf("token a: %w", err)
		}
		tokenB, err := dispatch.ParseAddress(cfg.TokenB)
		if err != nil {
			return fmt.Errorf("token b: %w", err)
		}
		out.Address, out.Bump, err = derive.FindPoolAddress(programID, tokenA, tokenB)
		if err != nil {
			return err
		}
	}

	logger.Debug("address derived", zap.String("address", out.Address.Hex()), zap.Uint8("bump", out.Bump))
	return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
}
