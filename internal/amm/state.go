package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"microAMM/internal/model"
)

// Ledger is the value-custody ledger the pool directs. Balances are keyed
// by (owner, token). Transfer is all-or-nothing and reports
// model.ErrInsufficientBalance or model.ErrAccountMismatch.
type Ledger interface {
	Transfer(ctx context.Context, from, to, token common.Address, amount uint64) error
	BalanceOf(ctx context.Context, owner, token common.Address) (uint64, error)
}

// State is the view of persisted state inside one unit of work.
type State interface {
	Ledger
	GetPool(ctx context.Context, addr common.Address) (model.Pool, bool, error)
	PutPool(ctx context.Context, pool model.Pool) error
	// CustodyOwner returns the pool an account holds custody for.
	CustodyOwner(ctx context.Context, account common.Address) (common.Address, bool, error)
	// RecordOutcome stores the outcome of a sequenced instruction. A
	// sequence is recorded at most once.
	RecordOutcome(ctx context.Context, outcome model.Outcome) error
}

// Store owns pool records and ledger balances. Atomic runs fn inside a unit
// of work that commits only when fn returns nil; otherwise no write made
// through the State survives.
type Store interface {
	Atomic(ctx context.Context, fn func(State) error) error
	ListPools(ctx context.Context) ([]model.Pool, error)
	Outcome(ctx context.Context, seq uint64) (model.Outcome, bool, error)
	// PruneOutcomes drops outcome records with a sequence at or below
	// through.
	PruneOutcomes(ctx context.Context, through uint64) error
}
