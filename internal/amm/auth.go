package amm

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"microAMM/internal/derive"
	"microAMM/internal/model"
)

// Accounts are the caller-supplied references of a deposit or swap. Signer
// is the caller's own ledger account; the custody references must name the
// pool's custody accounts.
type Accounts struct {
	Signer   common.Address
	CustodyA common.Address
	CustodyB common.Address
}

func checkAuthority(signer, authority common.Address) error {
	if signer == (common.Address{}) {
		return errorsmod.Wrap(model.ErrUnauthorized, "missing signer")
	}
	if signer != authority {
		return errorsmod.Wrapf(model.ErrUnauthorized, "signer %s is not authority %s", signer.Hex(), authority.Hex())
	}
	return nil
}

// checkCaller rejects a signer that holds custody for any pool. Paying from
// or into a custody account would move funds behind that pool's reserves.
func checkCaller(ctx context.Context, st State, signer common.Address) error {
	if signer == (common.Address{}) {
		return errorsmod.Wrap(model.ErrUnauthorized, "missing signer")
	}
	owner, bound, err := st.CustodyOwner(ctx, signer)
	if err != nil {
		return err
	}
	if bound {
		return errorsmod.Wrapf(model.ErrUnauthorized, "signer %s is a custody account of pool %s", signer.Hex(), owner.Hex())
	}
	return nil
}

func checkCustody(pool model.Pool, accounts Accounts) error {
	if accounts.CustodyA != pool.CustodyA {
		return errorsmod.Wrapf(model.ErrAccountMismatch, "custody a %s, pool has %s", accounts.CustodyA.Hex(), pool.CustodyA.Hex())
	}
	if accounts.CustodyB != pool.CustodyB {
		return errorsmod.Wrapf(model.ErrAccountMismatch, "custody b %s, pool has %s", accounts.CustodyB.Hex(), pool.CustodyB.Hex())
	}
	return nil
}

// checkPoolAddress re-derives the record address from its stored bump.
func (p *Program) checkPoolAddress(pool model.Pool, addr common.Address) error {
	derived, err := derive.PoolAddress(p.cfg.ProgramID, pool.TokenA, pool.TokenB, pool.Bump)
	if err != nil {
		return errorsmod.Wrapf(model.ErrAccountMismatch, "re-derive pool %s: %v", addr.Hex(), err)
	}
	if derived != addr || pool.Address != addr {
		return errorsmod.Wrapf(model.ErrAccountMismatch, "record at %s derives to %s", addr.Hex(), derived.Hex())
	}
	return nil
}

// loadPool fetches the record at addr and checks it against the caller's
// accounts.
func (p *Program) loadPool(ctx context.Context, st State, addr common.Address, accounts Accounts) (model.Pool, error) {
	pool, ok, err := st.GetPool(ctx, addr)
	if err != nil {
		return model.Pool{}, err
	}
	if !ok {
		return model.Pool{}, errorsmod.Wrapf(model.ErrPoolNotFound, "pool %s", addr.Hex())
	}
	if err := p.checkPoolAddress(pool, addr); err != nil {
		return model.Pool{}, err
	}
	if err := checkCustody(pool, accounts); err != nil {
		return model.Pool{}, err
	}
	if err := checkCaller(ctx, st, accounts.Signer); err != nil {
		return model.Pool{}, err
	}
	return pool, nil
}
