package amm

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"microAMM/internal/fixedpoint"
	"microAMM/internal/model"
)

func TestComputeSwap(t *testing.T) {
	res, err := ComputeSwap(300, 100_000_000, 200_000_000, 10_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(9_700_000), res.FeeAdjustedIn)
	require.Equal(t, uint64(300_000), res.Fee)
	require.Equal(t, uint64(17_684_595), res.AmountOut)
	require.Equal(t, uint64(110_000_000), res.ReserveIn)
	require.Equal(t, uint64(182_315_405), res.ReserveOut)
}

func TestComputeSwapProductGuard(t *testing.T) {
	// 12 / 5 truncates to 2, leaving 5*2 < 3*4 without the guard.
	res, err := ComputeSwap(0, 3, 4, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.AmountOut)
	require.Equal(t, uint64(5), res.ReserveIn)
	require.Equal(t, uint64(3), res.ReserveOut)
	require.GreaterOrEqual(t, fixedpoint.CmpProduct(res.ReserveIn, res.ReserveOut, 3, 4), 0)

	res, err = ComputeSwap(0, 2, 5, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), res.AmountOut)
	require.Equal(t, 0, fixedpoint.CmpProduct(res.ReserveIn, res.ReserveOut, 2, 5))

	// The fee unit is retained but output truncation absorbs it: 6*2 == 3*4.
	res, err = ComputeSwap(1, 3, 4, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(2), res.FeeAdjustedIn)
	require.Equal(t, uint64(1), res.Fee)
	require.Equal(t, uint64(2), res.AmountOut)
	require.Equal(t, uint64(6), res.ReserveIn)
	require.Equal(t, uint64(2), res.ReserveOut)
	require.Equal(t, 0, fixedpoint.CmpProduct(res.ReserveIn, res.ReserveOut, 3, 4))
}

func TestComputeSwapErrors(t *testing.T) {
	tests := []struct {
		name      string
		fee       uint16
		rIn, rOut uint64
		amountIn  uint64
		wantErr   error
	}{
		{"zero amount", 300, 100, 100, 0, model.ErrInvalidAmount},
		{"fee out of range", 10_001, 100, 100, 10, model.ErrInvalidFee},
		{"empty reserve in", 300, 0, 100, 10, model.ErrEmptyReserve},
		{"empty reserve out", 300, 100, 0, 10, model.ErrEmptyReserve},
		{"dust input", 300, 100_000_000, 200_000_000, 1, model.ErrInsufficientOutput},
		{"full fee", 10_000, 100, 100, 50, model.ErrInsufficientOutput},
		{"guard leaves nothing", 0, 3, 2, 1, model.ErrInsufficientOutput},
		{"drains reserve", 0, 1, 1, 10, model.ErrReserveDrained},
		{"reserve overflow", 0, math.MaxUint64, 10, 1, model.ErrArithmeticFault},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeSwap(tc.fee, tc.rIn, tc.rOut, tc.amountIn)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestComputeSwapNeverShrinksProduct(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fee := rapid.Uint16Range(0, model.MaxFeeBps).Draw(t, "fee")
		rIn := rapid.Uint64Min(1).Draw(t, "reserve_in")
		rOut := rapid.Uint64Min(1).Draw(t, "reserve_out")
		amountIn := rapid.Uint64Min(1).Draw(t, "amount_in")

		res, err := ComputeSwap(fee, rIn, rOut, amountIn)
		if err != nil {
			if !model.IsDomainError(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}

		if res.AmountOut == 0 || res.AmountOut >= rOut {
			t.Fatalf("amount out %d outside (0, %d)", res.AmountOut, rOut)
		}
		if res.ReserveIn != rIn+amountIn {
			t.Fatalf("reserve in %d, want %d", res.ReserveIn, rIn+amountIn)
		}
		if res.ReserveOut+res.AmountOut != rOut {
			t.Fatalf("reserve out %d + out %d != %d", res.ReserveOut, res.AmountOut, rOut)
		}
		if fixedpoint.CmpProduct(res.ReserveIn, res.ReserveOut, rIn, rOut) < 0 {
			t.Fatalf("product shrank: (%d, %d) -> (%d, %d)", rIn, rOut, res.ReserveIn, res.ReserveOut)
		}
		if res.Fee+res.FeeAdjustedIn != amountIn {
			t.Fatalf("fee %d + adjusted %d != %d", res.Fee, res.FeeAdjustedIn, amountIn)
		}
	})
}

func TestComputeSwapZeroFeeProductSlack(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rIn := rapid.Uint64Min(1).Draw(t, "reserve_in")
		rOut := rapid.Uint64Min(1).Draw(t, "reserve_out")
		amountIn := rapid.Uint64Min(1).Draw(t, "amount_in")

		res, err := ComputeSwap(0, rIn, rOut, amountIn)
		if err != nil {
			if !model.IsDomainError(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}

		// Without a fee the product only grows by rounding: at most one
		// unit of the output reserve times the new input reserve.
		after := fixedpoint.MulWide(res.ReserveIn, res.ReserveOut)
		bound := new(uint256.Int).Add(fixedpoint.MulWide(rIn, rOut), uint256.NewInt(res.ReserveIn))
		if after.Gt(bound) {
			t.Fatalf("product grew past rounding: (%d, %d) -> (%d, %d)", rIn, rOut, res.ReserveIn, res.ReserveOut)
		}
	})
}
