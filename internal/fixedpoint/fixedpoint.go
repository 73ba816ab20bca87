// Package fixedpoint is the checked integer kernel behind every reserve and
// amount update. Amounts live in the uint64 domain; products are formed in
// 256 bits and narrowed back, so overflow is reported instead of wrapped.
package fixedpoint

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/holiman/uint256"

	"microAMM/internal/model"
)

// Add returns a+b.
func Add(a, b uint64) (uint64, error) {
	sum := new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b))
	if !sum.IsUint64() {
		return 0, errorsmod.Wrapf(model.ErrArithmeticFault, "add overflow: %d + %d", a, b)
	}
	return sum.Uint64(), nil
}

// Sub returns a-b, failing when b > a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, errorsmod.Wrapf(model.ErrArithmeticFault, "sub underflow: %d - %d", a, b)
	}
	return a - b, nil
}

// Mul returns a*b.
func Mul(a, b uint64) (uint64, error) {
	product := MulWide(a, b)
	if !product.IsUint64() {
		return 0, errorsmod.Wrapf(model.ErrArithmeticFault, "mul overflow: %d * %d", a, b)
	}
	return product.Uint64(), nil
}

// Div returns a/b truncated toward zero.
func Div(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, errorsmod.Wrapf(model.ErrArithmeticFault, "division by zero: %d / 0", a)
	}
	return a / b, nil
}

// MulDiv returns a*b/c truncated toward zero. The product is kept in 256
// bits; only the quotient has to fit in uint64.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, errorsmod.Wrapf(model.ErrArithmeticFault, "division by zero: %d * %d / 0", a, b)
	}
	q := MulWide(a, b)
	q.Div(q, uint256.NewInt(c))
	if !q.IsUint64() {
		return 0, errorsmod.Wrapf(model.ErrArithmeticFault, "muldiv overflow: %d * %d / %d", a, b, c)
	}
	return q.Uint64(), nil
}

// MulWide returns the exact product a*b.
func MulWide(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

// CmpProduct compares a1*b1 with a2*b2 and returns -1, 0 or +1.
func CmpProduct(a1, b1, a2, b2 uint64) int {
	return MulWide(a1, b1).Cmp(MulWide(a2, b2))
}
