package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"microAMM/internal/amm"
	"microAMM/internal/config"
	"microAMM/internal/dispatch"
	"microAMM/internal/model"
)

type quoteOutput struct {
	Pool          common.Address  `json:"pool"`
	Direction     model.Direction `json:"direction"`
	AmountIn      uint64          `json:"amount_in,string"`
	FeeAdjustedIn uint64          `json:"fee_adjusted_in,string"`
	Fee           uint64          `json:"fee,string"`
	AmountOut     uint64          `json:"amount_out,string"`
	ReserveIn     uint64          `json:"reserve_in_after,string"`
	ReserveOut    uint64          `json:"reserve_out_after,string"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
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
	poolAddr, err := dispatch.ParseAddress(cfg.Pool)
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	dir, err := model.ParseDirection(cfg.Direction)
	if err != nil {
		return err
	}

	ctx := context.Background()
	b, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	program, err := amm.NewProgram(amm.Config{ProgramID: programID}, b.store, logger)
	if err != nil {
		return err
	}

	res, err := program.Quote(ctx, poolAddr, cfg.AmountIn, dir)
	if err != nil {
		return err
	}

	return json.NewEncoder(cmd.OutOrStdout()).Encode(quoteOutput{
		Pool:          poolAddr,
		Direction:     res.Direction,
		AmountIn:      res.AmountIn,
		FeeAdjustedIn: res.FeeAdjustedIn,
		Fee:           res.Fee,
		AmountOut:     res.AmountOut,
		ReserveIn:     res.ReserveIn,
		ReserveOut:    res.ReserveOut,
	})
}
