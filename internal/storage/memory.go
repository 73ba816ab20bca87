package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"microAMM/internal/amm"
	"microAMM/internal/fixedpoint"
	"microAMM/internal/model"
)

type balanceKey struct {
	Owner common.Address
	Token common.Address
}

// MemoryStore keeps pools and ledger balances in memory. Units of work are
// serialized; writes are staged in an overlay and merged only on success.
type MemoryStore struct {
	mu       sync.Mutex
	pools    map[common.Address]model.Pool
	balances map[balanceKey]uint64
	custody  map[common.Address]common.Address
	outcomes map[uint64]model.Outcome
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:    make(map[common.Address]model.Pool),
		balances: make(map[balanceKey]uint64),
		custody:  make(map[common.Address]common.Address),
		outcomes: make(map[uint64]model.Outcome),
	}
}

// Atomic runs fn against a staged view of the store.
func (s *MemoryStore) Atomic(ctx context.Context, fn func(amm.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		base:     s,
		pools:    make(map[common.Address]model.Pool),
		balances: make(map[balanceKey]uint64),
		custody:  make(map[common.Address]common.Address),
		outcomes: make(map[uint64]model.Outcome),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for addr, pool := range tx.pools {
		s.pools[addr] = pool
	}
	for key, amount := range tx.balances {
		s.balances[key] = amount
	}
	for account, pool := range tx.custody {
		s.custody[account] = pool
	}
	for seq, outcome := range tx.outcomes {
		s.outcomes[seq] = outcome
	}
	return nil
}

// Outcome returns the recorded outcome of seq.
func (s *MemoryStore) Outcome(ctx context.Context, seq uint64) (model.Outcome, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Outcome{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, ok := s.outcomes[seq]
	return outcome, ok, nil
}

// PruneOutcomes drops outcomes with a sequence at or below through.
func (s *MemoryStore) PruneOutcomes(ctx context.Context, through uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for seq := range s.outcomes {
		if seq <= through {
			delete(s.outcomes, seq)
		}
	}
	return nil
}

// ListPools returns every pool ordered by address.
func (s *MemoryStore) ListPools(ctx context.Context) ([]model.Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pools := make([]model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		pools = append(pools, pool)
	}
	sortPools(pools)
	return pools, nil
}

// Fund credits amount of token to owner outside of any pool transition.
func (s *MemoryStore) Fund(ctx context.Context, owner, token common.Address, amount uint64) error {
	return s.Atomic(ctx, func(st amm.State) error {
		tx := st.(*memoryTx)
		current := tx.balance(balanceKey{Owner: owner, Token: token})
		next, err := fixedpoint.Add(current, amount)
		if err != nil {
			return errorsmod.Wrapf(err, "fund %s", owner.Hex())
		}
		tx.balances[balanceKey{Owner: owner, Token: token}] = next
		return nil
	})
}

// Balance is one ledger entry of a snapshot or genesis file.
type Balance struct {
	Owner  common.Address `json:"owner"`
	Token  common.Address `json:"token"`
	Amount uint64         `json:"amount,string"`
}

// Snapshot is the on-disk form of a MemoryStore.
type Snapshot struct {
	Pools    []model.Pool    `json:"pools"`
	Balances []Balance       `json:"balances"`
	Outcomes []model.Outcome `json:"outcomes,omitempty"`
}

// Snapshot copies the current state.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Pools:    make([]model.Pool, 0, len(s.pools)),
		Balances: make([]Balance, 0, len(s.balances)),
	}
	for _, pool := range s.pools {
		snap.Pools = append(snap.Pools, pool)
	}
	sortPools(snap.Pools)
	for key, amount := range s.balances {
		if amount == 0 {
			continue
		}
		snap.Balances = append(snap.Balances, Balance{Owner: key.Owner, Token: key.Token, Amount: amount})
	}
	sort.Slice(snap.Balances, func(i, j int) bool {
		a, b := snap.Balances[i], snap.Balances[j]
		if a.Owner != b.Owner {
			return a.Owner.Hex() < b.Owner.Hex()
		}
		return a.Token.Hex() < b.Token.Hex()
	})
	for _, outcome := range s.outcomes {
		snap.Outcomes = append(snap.Outcomes, outcome)
	}
	sort.Slice(snap.Outcomes, func(i, j int) bool { return snap.Outcomes[i].Seq < snap.Outcomes[j].Seq })
	return snap
}

// Restore replaces the current state with snap.
func (s *MemoryStore) Restore(snap Snapshot) error {
	pools := make(map[common.Address]model.Pool, len(snap.Pools))
	custody := make(map[common.Address]common.Address, 2*len(snap.Pools))
	for _, pool := range snap.Pools {
		if err := pool.Validate(); err != nil {
			return fmt.Errorf("snapshot pool %s: %w", pool.Address.Hex(), err)
		}
		if _, ok := pools[pool.Address]; ok {
			return fmt.Errorf("snapshot has duplicate pool %s", pool.Address.Hex())
		}
		for _, account := range []common.Address{pool.CustodyA, pool.CustodyB} {
			if owner, ok := custody[account]; ok {
				return fmt.Errorf("snapshot custody %s bound to %s and %s", account.Hex(), owner.Hex(), pool.Address.Hex())
			}
			custody[account] = pool.Address
		}
		pools[pool.Address] = pool
	}

	balances := make(map[balanceKey]uint64, len(snap.Balances))
	for _, b := range snap.Balances {
		key := balanceKey{Owner: b.Owner, Token: b.Token}
		next, err := fixedpoint.Add(balances[key], b.Amount)
		if err != nil {
			return fmt.Errorf("snapshot balance %s: %w", b.Owner.Hex(), err)
		}
		balances[key] = next
	}

	outcomes := make(map[uint64]model.Outcome, len(snap.Outcomes))
	for _, outcome := range snap.Outcomes {
		if _, ok := outcomes[outcome.Seq]; ok || outcome.Seq == 0 {
			return fmt.Errorf("snapshot outcome sequence %d is zero or repeated", outcome.Seq)
		}
		outcomes[outcome.Seq] = outcome
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = pools
	s.custody = custody
	s.balances = balances
	s.outcomes = outcomes
	return nil
}

// LoadSnapshot restores state from path. A missing file is not an error.
func (s *MemoryStore) LoadSnapshot(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("parse snapshot: %w", err)
	}
	if err := s.Restore(snap); err != nil {
		return false, err
	}
	return true, nil
}

// SaveSnapshot writes the current state to path via a temp file and rename.
func (s *MemoryStore) SaveSnapshot(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

type memoryTx struct {
	base     *MemoryStore
	pools    map[common.Address]model.Pool
	balances map[balanceKey]uint64
	custody  map[common.Address]common.Address
	outcomes map[uint64]model.Outcome
}

func (tx *memoryTx) GetPool(ctx context.Context, addr common.Address) (model.Pool, bool, error) {
	if pool, ok := tx.pools[addr]; ok {
		return pool, true, nil
	}
	pool, ok := tx.base.pools[addr]
	return pool, ok, nil
}

func (tx *memoryTx) PutPool(ctx context.Context, pool model.Pool) error {
	if err := pool.Validate(); err != nil {
		return err
	}
	if _, exists, _ := tx.GetPool(ctx, pool.Address); !exists {
		for _, account := range []common.Address{pool.CustodyA, pool.CustodyB} {
			if owner, bound := tx.custodyOwner(account); bound {
				return errorsmod.Wrapf(model.ErrAccountMismatch, "custody %s already backs pool %s", account.Hex(), owner.Hex())
			}
		}
		tx.custody[pool.CustodyA] = pool.Address
		tx.custody[pool.CustodyB] = pool.Address
	}
	tx.pools[pool.Address] = pool
	return nil
}

func (tx *memoryTx) Transfer(ctx context.Context, from, to, token common.Address, amount uint64) error {
	if err := checkTransfer(from, to, token); err != nil {
		return err
	}
	fromKey := balanceKey{Owner: from, Token: token}
	toKey := balanceKey{Owner: to, Token: token}

	fromBalance := tx.balance(fromKey)
	if fromBalance < amount {
		return errorsmod.Wrapf(model.ErrInsufficientBalance, "%s holds %d of %s, needs %d", from.Hex(), fromBalance, token.Hex(), amount)
	}
	toBalance, err := fixedpoint.Add(tx.balance(toKey), amount)
	if err != nil {
		return errorsmod.Wrapf(err, "credit %s", to.Hex())
	}
	tx.balances[fromKey] = fromBalance - amount
	tx.balances[toKey] = toBalance
	return nil
}

func (tx *memoryTx) BalanceOf(ctx context.Context, owner, token common.Address) (uint64, error) {
	return tx.balance(balanceKey{Owner: owner, Token: token}), nil
}

func (tx *memoryTx) CustodyOwner(ctx context.Context, account common.Address) (common.Address, bool, error) {
	owner, ok := tx.custodyOwner(account)
	return owner, ok, nil
}

func (tx *memoryTx) RecordOutcome(ctx context.Context, outcome model.Outcome) error {
	if outcome.Seq == 0 {
		return fmt.Errorf("outcome sequence is required")
	}
	_, staged := tx.outcomes[outcome.Seq]
	_, committed := tx.base.outcomes[outcome.Seq]
	if staged || committed {
		return fmt.Errorf("outcome for sequence %d already recorded", outcome.Seq)
	}
	tx.outcomes[outcome.Seq] = outcome
	return nil
}

func (tx *memoryTx) balance(key balanceKey) uint64 {
	if amount, ok := tx.balances[key]; ok {
		return amount
	}
	return tx.base.balances[key]
}

func (tx *memoryTx) custodyOwner(account common.Address) (common.Address, bool) {
	if pool, ok := tx.custody[account]; ok {
		return pool, true
	}
	pool, ok := tx.base.custody[account]
	return pool, ok
}

func checkTransfer(from, to, token common.Address) error {
	zero := common.Address{}
	if from == zero || to == zero || token == zero {
		return errorsmod.Wrap(model.ErrAccountMismatch, "transfer with empty account or token")
	}
	if from == to {
		return errorsmod.Wrapf(model.ErrAccountMismatch, "transfer from %s to itself", from.Hex())
	}
	return nil
}

func sortPools(pools []model.Pool) {
	sort.Slice(pools, func(i, j int) bool {
		return pools[i].Address.Hex() < pools[j].Address.Hex()
	})
}
