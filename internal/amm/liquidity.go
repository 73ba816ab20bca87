package amm

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"microAMM/internal/derive"
	"microAMM/internal/fixedpoint"
	"microAMM/internal/model"
)

// InitializeParams describes a new pool.
type InitializeParams struct {
	TokenA    common.Address
	TokenB    common.Address
	CustodyA  common.Address
	CustodyB  common.Address
	Authority common.Address
	Signer    common.Address
	FeeBps    uint16
}

// Initialize creates the pool for (TokenA, TokenB) at its derived address
// with empty reserves. The signer must be the declared authority and both
// custody accounts must start empty.
func (p *Program) Initialize(ctx context.Context, params InitializeParams) (model.Pool, error) {
	start := time.Now()
	pool, err := p.initialize(ctx, params)
	p.observe(model.KindInitialize, start, err)
	if err != nil {
		return model.Pool{}, err
	}
	p.logger.Info("pool initialized",
		zap.String("pool", pool.Address.Hex()),
		zap.String("token_a", pool.TokenA.Hex()),
		zap.String("token_b", pool.TokenB.Hex()),
		zap.Uint16("fee_bps", pool.FeeBps),
		zap.Uint8("bump", pool.Bump),
	)
	return pool, nil
}

func (p *Program) initialize(ctx context.Context, params InitializeParams) (model.Pool, error) {
	if err := checkAuthority(params.Signer, params.Authority); err != nil {
		return model.Pool{}, err
	}

	pool := model.Pool{
		TokenA:    params.TokenA,
		TokenB:    params.TokenB,
		CustodyA:  params.CustodyA,
		CustodyB:  params.CustodyB,
		Authority: params.Authority,
		FeeBps:    params.FeeBps,
	}
	if err := pool.Validate(); err != nil {
		return model.Pool{}, err
	}

	addr, bump, err := derive.FindPoolAddress(p.cfg.ProgramID, params.TokenA, params.TokenB)
	if err != nil {
		return model.Pool{}, err
	}
	pool.Address = addr
	pool.Bump = bump

	err = p.store.Atomic(ctx, func(st State) error {
		_, exists, err := st.GetPool(ctx, addr)
		if err != nil {
			return err
		}
		if exists {
			return errorsmod.Wrapf(model.ErrAlreadyInitialized, "pool %s", addr.Hex())
		}
		if err := requireEmptyCustody(ctx, st, pool.CustodyA, pool.TokenA); err != nil {
			return err
		}
		if err := requireEmptyCustody(ctx, st, pool.CustodyB, pool.TokenB); err != nil {
			return err
		}
		if err := st.PutPool(ctx, pool); err != nil {
			return err
		}
		return recordApplied(ctx, st, model.Outcome{Pool: addr.Hex()})
	})
	if err != nil {
		return model.Pool{}, err
	}
	return pool, nil
}

func requireEmptyCustody(ctx context.Context, ledger Ledger, custody, token common.Address) error {
	balance, err := ledger.BalanceOf(ctx, custody, token)
	if err != nil {
		return err
	}
	if balance != 0 {
		return errorsmod.Wrapf(model.ErrAccountMismatch, "custody %s already holds %d of %s", custody.Hex(), balance, token.Hex())
	}
	return nil
}

// AddLiquidity moves amountA and amountB from the signer into the pool's
// custody accounts and raises both reserves by the same amounts. There is
// no ratio check and no share is issued.
func (p *Program) AddLiquidity(ctx context.Context, poolAddr common.Address, amountA, amountB uint64, accounts Accounts) (model.Reserves, error) {
	start := time.Now()
	reserves, err := p.addLiquidity(ctx, poolAddr, amountA, amountB, accounts)
	p.observe(model.KindAddLiquidity, start, err)
	if err != nil {
		return model.Reserves{}, err
	}
	p.logger.Debug("liquidity added",
		zap.String("pool", poolAddr.Hex()),
		zap.Uint64("amount_a", amountA),
		zap.Uint64("amount_b", amountB),
		zap.Uint64("reserve_a", reserves.A),
		zap.Uint64("reserve_b", reserves.B),
	)
	return reserves, nil
}

func (p *Program) addLiquidity(ctx context.Context, poolAddr common.Address, amountA, amountB uint64, accounts Accounts) (model.Reserves, error) {
	if amountA == 0 || amountB == 0 {
		return model.Reserves{}, errorsmod.Wrapf(model.ErrInvalidAmount, "deposit amounts must be positive, got %d and %d", amountA, amountB)
	}

	var reserves model.Reserves
	err := p.store.Atomic(ctx, func(st State) error {
		pool, err := p.loadPool(ctx, st, poolAddr, accounts)
		if err != nil {
			return err
		}

		if pool.ReserveA, err = fixedpoint.Add(pool.ReserveA, amountA); err != nil {
			return errorsmod.Wrap(err, "reserve a")
		}
		if pool.ReserveB, err = fixedpoint.Add(pool.ReserveB, amountB); err != nil {
			return errorsmod.Wrap(err, "reserve b")
		}

		if err := st.Transfer(ctx, accounts.Signer, pool.CustodyA, pool.TokenA, amountA); err != nil {
			return err
		}
		if err := st.Transfer(ctx, accounts.Signer, pool.CustodyB, pool.TokenB, amountB); err != nil {
			return err
		}
		if err := st.PutPool(ctx, pool); err != nil {
			return err
		}
		reserves = pool.Reserves()
		return recordApplied(ctx, st, model.Outcome{
			Pool:     pool.Address.Hex(),
			ReserveA: reserves.A,
			ReserveB: reserves.B,
		})
	})
	if err != nil {
		return model.Reserves{}, err
	}
	return reserves, nil
}
