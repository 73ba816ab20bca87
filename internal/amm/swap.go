package amm

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"microAMM/internal/fixedpoint"
	"microAMM/internal/model"
)

// SwapResult is the outcome of a swap computation. Reserves are post-swap.
type SwapResult struct {
	Direction     model.Direction
	AmountIn      uint64
	FeeAdjustedIn uint64
	Fee           uint64
	AmountOut     uint64
	ReserveIn     uint64
	ReserveOut    uint64
}

// ComputeSwap prices amountIn against (reserveIn, reserveOut) with a fee
// taken on input:
//
//	feeAdjustedIn = amountIn * (10000 - feeBps) / 10000
//	amountOut     = reserveOut - reserveIn*reserveOut / (reserveIn + feeAdjustedIn)
//
// The full amountIn enters the reserve. When truncation would leave the
// post-swap product below the pre-swap product, amountOut is lowered by one
// unit, which always restores it.
func ComputeSwap(feeBps uint16, reserveIn, reserveOut, amountIn uint64) (SwapResult, error) {
	if amountIn == 0 {
		return SwapResult{}, errorsmod.Wrap(model.ErrInvalidAmount, "swap amount must be positive")
	}
	if feeBps > model.MaxFeeBps {
		return SwapResult{}, errorsmod.Wrapf(model.ErrInvalidFee, "fee %d bps", feeBps)
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapResult{}, errorsmod.Wrapf(model.ErrEmptyReserve, "reserves (%d, %d)", reserveIn, reserveOut)
	}

	feeAdjusted, err := fixedpoint.MulDiv(amountIn, uint64(model.MaxFeeBps-feeBps), model.MaxFeeBps)
	if err != nil {
		return SwapResult{}, err
	}
	denominator, err := fixedpoint.Add(reserveIn, feeAdjusted)
	if err != nil {
		return SwapResult{}, err
	}
	remaining, err := fixedpoint.MulDiv(reserveIn, reserveOut, denominator)
	if err != nil {
		return SwapResult{}, err
	}
	amountOut, err := fixedpoint.Sub(reserveOut, remaining)
	if err != nil {
		return SwapResult{}, err
	}
	if amountOut == 0 {
		return SwapResult{}, errorsmod.Wrapf(model.ErrInsufficientOutput, "input %d yields no output", amountIn)
	}
	if remaining == 0 {
		return SwapResult{}, errorsmod.Wrapf(model.ErrReserveDrained, "output %d equals reserve", amountOut)
	}

	newIn, err := fixedpoint.Add(reserveIn, amountIn)
	if err != nil {
		return SwapResult{}, err
	}
	if fixedpoint.CmpProduct(newIn, remaining, reserveIn, reserveOut) < 0 {
		remaining++
		amountOut--
		if amountOut == 0 {
			return SwapResult{}, errorsmod.Wrapf(model.ErrInsufficientOutput, "input %d yields no output", amountIn)
		}
	}

	return SwapResult{
		AmountIn:      amountIn,
		FeeAdjustedIn: feeAdjusted,
		Fee:           amountIn - feeAdjusted,
		AmountOut:     amountOut,
		ReserveIn:     newIn,
		ReserveOut:    remaining,
	}, nil
}

// Swap exchanges amountIn of the direction's input token for the output
// token at the current reserve price. The signer pays into the in-side
// custody account and is paid from the out-side one.
func (p *Program) Swap(ctx context.Context, poolAddr common.Address, amountIn uint64, dir model.Direction, accounts Accounts) (SwapResult, error) {
	start := time.Now()
	result, err := p.swap(ctx, poolAddr, amountIn, dir, accounts)
	p.observe(model.KindSwap, start, err)
	if err != nil {
		return SwapResult{}, err
	}
	p.logger.Debug("swap executed",
		zap.String("pool", poolAddr.Hex()),
		zap.Stringer("direction", dir),
		zap.Uint64("amount_in", result.AmountIn),
		zap.Uint64("amount_out", result.AmountOut),
		zap.Uint64("fee", result.Fee),
	)
	return result, nil
}

func (p *Program) swap(ctx context.Context, poolAddr common.Address, amountIn uint64, dir model.Direction, accounts Accounts) (SwapResult, error) {
	if amountIn == 0 {
		return SwapResult{}, errorsmod.Wrap(model.ErrInvalidAmount, "swap amount must be positive")
	}

	var result SwapResult
	err := p.store.Atomic(ctx, func(st State) error {
		pool, err := p.loadPool(ctx, st, poolAddr, accounts)
		if err != nil {
			return err
		}
		side, err := pool.Side(dir)
		if err != nil {
			return err
		}

		res, err := ComputeSwap(pool.FeeBps, side.ReserveIn, side.ReserveOut, amountIn)
		if err != nil {
			return err
		}
		res.Direction = dir

		updated := pool.WithSwapReserves(dir, res.ReserveIn, res.ReserveOut)
		if err := st.PutPool(ctx, updated); err != nil {
			return err
		}
		if err := st.Transfer(ctx, accounts.Signer, side.CustodyIn, side.TokenIn, res.AmountIn); err != nil {
			return err
		}
		if err := st.Transfer(ctx, side.CustodyOut, accounts.Signer, side.TokenOut, res.AmountOut); err != nil {
			return err
		}
		result = res
		return recordApplied(ctx, st, model.Outcome{
			Pool:      updated.Address.Hex(),
			AmountOut: res.AmountOut,
			Fee:       res.Fee,
			ReserveA:  updated.ReserveA,
			ReserveB:  updated.ReserveB,
		})
	})
	if err != nil {
		return SwapResult{}, err
	}
	return result, nil
}
