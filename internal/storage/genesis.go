package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// Funder credits ledger balances outside of pool transitions.
type Funder interface {
	Fund(ctx context.Context, owner, token common.Address, amount uint64) error
}

// ReadGenesis reads a JSON array of initial ledger balances.
func ReadGenesis(path string) ([]Balance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	var balances []Balance
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	for i, b := range balances {
		if b.Owner == (common.Address{}) || b.Token == (common.Address{}) {
			return nil, fmt.Errorf("genesis entry %d: owner and token are required", i)
		}
	}
	return balances, nil
}

// ApplyGenesis funds every balance in order.
func ApplyGenesis(ctx context.Context, funder Funder, balances []Balance) error {
	for _, b := range balances {
		if err := funder.Fund(ctx, b.Owner, b.Token, b.Amount); err != nil {
			return fmt.Errorf("fund %s: %w", b.Owner.Hex(), err)
		}
	}
	return nil
}
