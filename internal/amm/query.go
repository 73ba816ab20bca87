package amm

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"microAMM/internal/model"
)

// Pool returns the record at addr.
func (p *Program) Pool(ctx context.Context, addr common.Address) (model.Pool, error) {
	var pool model.Pool
	err := p.store.Atomic(ctx, func(st State) error {
		found, ok, err := st.GetPool(ctx, addr)
		if err != nil {
			return err
		}
		if !ok {
			return errorsmod.Wrapf(model.ErrPoolNotFound, "pool %s", addr.Hex())
		}
		pool = found
		return nil
	})
	return pool, err
}

// Pools lists every pool record.
func (p *Program) Pools(ctx context.Context) ([]model.Pool, error) {
	return p.store.ListPools(ctx)
}

// Quote prices a swap against the current reserves without executing it.
func (p *Program) Quote(ctx context.Context, addr common.Address, amountIn uint64, dir model.Direction) (SwapResult, error) {
	pool, err := p.Pool(ctx, addr)
	if err != nil {
		return SwapResult{}, err
	}
	side, err := pool.Side(dir)
	if err != nil {
		return SwapResult{}, err
	}
	res, err := ComputeSwap(pool.FeeBps, side.ReserveIn, side.ReserveOut, amountIn)
	if err != nil {
		return SwapResult{}, err
	}
	res.Direction = dir
	return res, nil
}

// CheckInvariants checks the record-local invariants of pool: fee range and
// distinct identities.
func CheckInvariants(pool model.Pool) error {
	if err := pool.Validate(); err != nil {
		return errorsmod.Wrapf(model.ErrInvariantBroken, "pool %s: %v", pool.Address.Hex(), err)
	}
	return nil
}

// VerifyCustody checks that both reserves of the pool at addr equal the
// ledger balances of its custody accounts.
func (p *Program) VerifyCustody(ctx context.Context, addr common.Address) error {
	return p.store.Atomic(ctx, func(st State) error {
		pool, ok, err := st.GetPool(ctx, addr)
		if err != nil {
			return err
		}
		if !ok {
			return errorsmod.Wrapf(model.ErrPoolNotFound, "pool %s", addr.Hex())
		}
		return verifyPool(ctx, st, pool)
	})
}

// VerifyAll runs CheckInvariants and VerifyCustody over every pool.
func (p *Program) VerifyAll(ctx context.Context) error {
	pools, err := p.store.ListPools(ctx)
	if err != nil {
		return err
	}
	for _, pool := range pools {
		if err := CheckInvariants(pool); err != nil {
			return err
		}
		if err := p.VerifyCustody(ctx, pool.Address); err != nil {
			return err
		}
	}
	return nil
}

func verifyPool(ctx context.Context, ledger Ledger, pool model.Pool) error {
	balanceA, err := ledger.BalanceOf(ctx, pool.CustodyA, pool.TokenA)
	if err != nil {
		return err
	}
	balanceB, err := ledger.BalanceOf(ctx, pool.CustodyB, pool.TokenB)
	if err != nil {
		return err
	}
	if balanceA != pool.ReserveA || balanceB != pool.ReserveB {
		return errorsmod.Wrapf(model.ErrInvariantBroken,
			"pool %s reserves (%d, %d), custody holds (%d, %d)",
			pool.Address.Hex(), pool.ReserveA, pool.ReserveB, balanceA, balanceB)
	}
	return nil
}
