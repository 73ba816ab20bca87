package model

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
)

// MaxFeeBps is 100% expressed in basis points.
const MaxFeeBps = 10_000

// Pool is the persisted state of one trading pair.
type Pool struct {
	Address   common.Address `json:"address"`
	TokenA    common.Address `json:"token_a"`
	TokenB    common.Address `json:"token_b"`
	CustodyA  common.Address `json:"custody_a"`
	CustodyB  common.Address `json:"custody_b"`
	Authority common.Address `json:"authority"`
	FeeBps    uint16         `json:"fee_bps"`
	ReserveA  uint64         `json:"reserve_a,string"`
	ReserveB  uint64         `json:"reserve_b,string"`
	Bump      uint8          `json:"bump"`
}

// Reserves is a snapshot of both pool reserves.
type Reserves struct {
	A uint64 `json:"a,string"`
	B uint64 `json:"b,string"`
}

// Side orients a pool for one swap direction.
type Side struct {
	TokenIn    common.Address
	TokenOut   common.Address
	CustodyIn  common.Address
	CustodyOut common.Address
	ReserveIn  uint64
	ReserveOut uint64
}

func (p Pool) Reserves() Reserves {
	return Reserves{A: p.ReserveA, B: p.ReserveB}
}

// Side returns the in/out view of the pool for dir.
func (p Pool) Side(dir Direction) (Side, error) {
	switch dir {
	case AToB:
		return Side{
			TokenIn:    p.TokenA,
			TokenOut:   p.TokenB,
			CustodyIn:  p.CustodyA,
			CustodyOut: p.CustodyB,
			ReserveIn:  p.ReserveA,
			ReserveOut: p.ReserveB,
		}, nil
	case BToA:
		return Side{
			TokenIn:    p.TokenB,
			TokenOut:   p.TokenA,
			CustodyIn:  p.CustodyB,
			CustodyOut: p.CustodyA,
			ReserveIn:  p.ReserveB,
			ReserveOut: p.ReserveA,
		}, nil
	default:
		return Side{}, errorsmod.Wrapf(ErrInvalidInstruction, "unknown swap direction %d", dir)
	}
}

// WithSwapReserves returns a copy of p with the post-swap reserves applied
// for dir.
func (p Pool) WithSwapReserves(dir Direction, reserveIn, reserveOut uint64) Pool {
	if dir == BToA {
		p.ReserveA, p.ReserveB = reserveOut, reserveIn
		return p
	}
	p.ReserveA, p.ReserveB = reserveIn, reserveOut
	return p
}

// IsCustody reports whether account is one of the pool's custody accounts.
func (p Pool) IsCustody(account common.Address) bool {
	return account == p.CustodyA || account == p.CustodyB
}

// Validate checks the record-local invariants: fee range and distinct,
// non-zero identities.
func (p Pool) Validate() error {
	if p.FeeBps > MaxFeeBps {
		return errorsmod.Wrapf(ErrInvalidFee, "fee %d bps exceeds %d", p.FeeBps, MaxFeeBps)
	}
	zero := common.Address{}
	if p.TokenA == zero || p.TokenB == zero {
		return errorsmod.Wrap(ErrAccountMismatch, "token identity is empty")
	}
	if p.TokenA == p.TokenB {
		return errorsmod.Wrapf(ErrAccountMismatch, "pool pairs token %s with itself", p.TokenA.Hex())
	}
	if p.CustodyA == zero || p.CustodyB == zero {
		return errorsmod.Wrap(ErrAccountMismatch, "custody account is empty")
	}
	if p.CustodyA == p.CustodyB {
		return errorsmod.Wrap(ErrAccountMismatch, "custody accounts must differ")
	}
	if p.Authority == zero {
		return errorsmod.Wrap(ErrUnauthorized, "authority is empty")
	}
	return nil
}
