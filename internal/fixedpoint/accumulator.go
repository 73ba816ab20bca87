package fixedpoint

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/holiman/uint256"

	"microAMM/internal/model"
)

// Sum is a 256-bit running total for statistics that may exceed uint64.
// The zero value is an empty sum.
type Sum struct {
	v uint256.Int
}

// Add adds amount to the sum.
func (s *Sum) Add(amount uint64) error {
	if _, overflow := s.v.AddOverflow(&s.v, uint256.NewInt(amount)); overflow {
		return errorsmod.Wrap(model.ErrArithmeticFault, "sum overflow")
	}
	return nil
}

// String renders the sum in base 10.
func (s *Sum) String() string {
	return s.v.Dec()
}
