package derive

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"microAMM/internal/model"
)

var (
	testProgram = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	tokenX      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenY      = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestFindPoolAddressDeterministic(t *testing.T) {
	first, bump1, err := FindPoolAddress(testProgram, tokenX, tokenY)
	require.NoError(t, err)
	second, bump2, err := FindPoolAddress(testProgram, tokenX, tokenY)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, bump1, bump2)
	require.NotEqual(t, common.Address{}, first)
}

func TestPoolAddressIsOrderSensitive(t *testing.T) {
	ab, _, err := FindPoolAddress(testProgram, tokenX, tokenY)
	require.NoError(t, err)
	ba, _, err := FindPoolAddress(testProgram, tokenY, tokenX)
	require.NoError(t, err)
	require.NotEqual(t, ab, ba)
}

func TestPoolAddressDependsOnProgram(t *testing.T) {
	a, _, err := FindPoolAddress(testProgram, tokenX, tokenY)
	require.NoError(t, err)
	b, _, err := FindPoolAddress(common.HexToAddress("0xb0b"), tokenX, tokenY)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCanonicalBumpIsHighestViable(t *testing.T) {
	addr, bump, err := FindPoolAddress(testProgram, tokenX, tokenY)
	require.NoError(t, err)

	again, err := PoolAddress(testProgram, tokenX, tokenY, bump)
	require.NoError(t, err)
	require.Equal(t, addr, again)

	for higher := int(bump) + 1; higher <= 255; higher++ {
		_, err := PoolAddress(testProgram, tokenX, tokenY, uint8(higher))
		require.ErrorIs(t, err, model.ErrInvalidSeeds, "bump %d should be on-curve", higher)
	}
}

func TestSeedLimits(t *testing.T) {
	_, err := CreateAddress(testProgram, [][]byte{bytes.Repeat([]byte{1}, MaxSeedLen+1)}, 255)
	require.ErrorIs(t, err, model.ErrInvalidSeeds)

	seeds := make([][]byte, MaxSeeds)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	_, _, err = FindAddress(testProgram, seeds)
	require.ErrorIs(t, err, model.ErrInvalidSeeds)

	_, _, err = FindAddress(testProgram, seeds[:MaxSeeds-1])
	require.NoError(t, err)
}

func TestOnCurve(t *testing.T) {
	require.True(t, onCurve(common.LeftPadBytes([]byte{2}, 32)))
	require.False(t, onCurve(common.LeftPadBytes([]byte{5}, 32)))

	gx := common.LeftPadBytes(crypto.S256().Params().Gx.Bytes(), 32)
	require.True(t, onCurve(gx))

	aboveP := bytes.Repeat([]byte{0xff}, 32)
	require.False(t, onCurve(aboveP))
}

func TestDerivedAddressesAreOffCurve(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := common.BytesToAddress(rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "a"))
		b := common.BytesToAddress(rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "b"))

		addr, bump, err := FindPoolAddress(testProgram, a, b)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		again, err := PoolAddress(testProgram, a, b, bump)
		if err != nil {
			t.Fatalf("re-derive with bump %d: %v", bump, err)
		}
		if again != addr {
			t.Fatalf("re-derived %s, want %s", again.Hex(), addr.Hex())
		}
	})
}
