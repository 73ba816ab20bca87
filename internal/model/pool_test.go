package model

import (
	"errors"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testPool() Pool {
	return Pool{
		Address:   common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		TokenA:    common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		TokenB:    common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		CustodyA:  common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		CustodyB:  common.HexToAddress("0x00000000000000000000000000000000000000b1"),
		Authority: common.HexToAddress("0x0000000000000000000000000000000000000001"),
		FeeBps:    300,
		ReserveA:  100,
		ReserveB:  200,
		Bump:      254,
	}
}

func TestPoolSide(t *testing.T) {
	pool := testPool()

	ab, err := pool.Side(AToB)
	require.NoError(t, err)
	require.Equal(t, pool.TokenA, ab.TokenIn)
	require.Equal(t, pool.CustodyB, ab.CustodyOut)
	require.Equal(t, uint64(100), ab.ReserveIn)
	require.Equal(t, uint64(200), ab.ReserveOut)

	ba, err := pool.Side(BToA)
	require.NoError(t, err)
	require.Equal(t, pool.TokenB, ba.TokenIn)
	require.Equal(t, pool.CustodyA, ba.CustodyOut)
	require.Equal(t, uint64(200), ba.ReserveIn)
	require.Equal(t, uint64(100), ba.ReserveOut)

	_, err = pool.Side(DirectionUnknown)
	require.ErrorIs(t, err, ErrInvalidInstruction)
}

func TestPoolWithSwapReserves(t *testing.T) {
	pool := testPool()

	after := pool.WithSwapReserves(BToA, 250, 80)
	require.Equal(t, Reserves{A: 80, B: 250}, after.Reserves())
	require.Equal(t, Reserves{A: 100, B: 200}, pool.Reserves())

	after = pool.WithSwapReserves(AToB, 110, 182)
	require.Equal(t, Reserves{A: 110, B: 182}, after.Reserves())
}

func TestPoolValidate(t *testing.T) {
	require.NoError(t, testPool().Validate())

	tests := []struct {
		name   string
		mutate func(p *Pool)
		want   error
	}{
		{"fee above max", func(p *Pool) { p.FeeBps = MaxFeeBps + 1 }, ErrInvalidFee},
		{"same token", func(p *Pool) { p.TokenB = p.TokenA }, ErrAccountMismatch},
		{"empty token", func(p *Pool) { p.TokenA = common.Address{} }, ErrAccountMismatch},
		{"shared custody", func(p *Pool) { p.CustodyB = p.CustodyA }, ErrAccountMismatch},
		{"empty authority", func(p *Pool) { p.Authority = common.Address{} }, ErrUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pool := testPool()
			tc.mutate(&pool)
			require.ErrorIs(t, pool.Validate(), tc.want)
		})
	}

	full := testPool()
	full.FeeBps = MaxFeeBps
	require.NoError(t, full.Validate())
}

func TestDirectionText(t *testing.T) {
	for _, input := range []string{"a_to_b", "A-TO-B", " ab "} {
		d, err := ParseDirection(input)
		require.NoError(t, err)
		require.Equal(t, AToB, d)
	}
	d, err := ParseDirection("b_to_a")
	require.NoError(t, err)
	require.Equal(t, BToA, d)

	_, err = ParseDirection("")
	require.Error(t, err)
}

func TestIsDomainError(t *testing.T) {
	require.True(t, IsDomainError(ErrEmptyReserve))
	require.True(t, IsDomainError(ErrArithmeticFault.Wrap("mul")))
	require.False(t, IsDomainError(nil))
	require.False(t, IsDomainError(errString("connection reset")))
}

type errString string

func (e errString) Error() string { return string(e) }

func TestReason(t *testing.T) {
	require.Equal(t, "ok", Reason(nil))
	require.Equal(t, "empty_reserve", Reason(errorsmod.Wrap(ErrEmptyReserve, "reserves (0, 5)")))
	require.Equal(t, "internal", Reason(errors.New("connection reset")))
}
