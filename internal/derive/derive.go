// Package derive computes deterministic pool addresses from a program id and
// a list of seeds. A derived address is the tail of a keccak256 digest that is
// not an x-coordinate on secp256k1, so no private key can ever sign for it.
package derive

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"microAMM/internal/model"
)

const (
	// MaxSeeds bounds the seed list, bump included.
	MaxSeeds = 16
	// MaxSeedLen bounds a single seed.
	MaxSeedLen = 32

	marker = "ProgramDerivedAddress"
)

// PoolTag is the constant first seed of every pool address.
var PoolTag = []byte("pool")

var (
	curveP = crypto.S256().Params().P
	curveB = big.NewInt(7)
)

// CreateAddress hashes seeds, bump and programID into an address. It fails
// with ErrInvalidSeeds when the seeds are out of bounds or the digest is a
// valid curve point.
func CreateAddress(programID common.Address, seeds [][]byte, bump uint8) (common.Address, error) {
	if err := checkSeeds(seeds); err != nil {
		return common.Address{}, err
	}

	data := make([][]byte, 0, len(seeds)+3)
	data = append(data, seeds...)
	data = append(data, []byte{bump}, programID.Bytes(), []byte(marker))
	digest := crypto.Keccak256(data...)

	if onCurve(digest) {
		return common.Address{}, errorsmod.Wrapf(model.ErrInvalidSeeds, "bump %d yields an on-curve digest", bump)
	}
	return common.BytesToAddress(digest), nil
}

// FindAddress returns the first valid address searching bump from 255 down
// to 0, together with that canonical bump.
func FindAddress(programID common.Address, seeds [][]byte) (common.Address, uint8, error) {
	if err := checkSeeds(seeds); err != nil {
		return common.Address{}, 0, err
	}
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateAddress(programID, seeds, uint8(bump))
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	return common.Address{}, 0, errorsmod.Wrap(model.ErrInvalidSeeds, "no viable bump")
}

// PoolSeeds returns the seed list of the pool trading tokenA against tokenB.
// The pair is not reordered: (A, B) and (B, A) are different pools.
func PoolSeeds(tokenA, tokenB common.Address) [][]byte {
	return [][]byte{PoolTag, tokenA.Bytes(), tokenB.Bytes()}
}

// FindPoolAddress derives the canonical pool address and bump.
func FindPoolAddress(programID, tokenA, tokenB common.Address) (common.Address, uint8, error) {
	return FindAddress(programID, PoolSeeds(tokenA, tokenB))
}

// PoolAddress re-derives a pool address from a stored bump.
func PoolAddress(programID, tokenA, tokenB common.Address, bump uint8) (common.Address, error) {
	return CreateAddress(programID, PoolSeeds(tokenA, tokenB), bump)
}

func checkSeeds(seeds [][]byte) error {
	if len(seeds)+1 > MaxSeeds {
		return errorsmod.Wrapf(model.ErrInvalidSeeds, "%d seeds exceed limit of %d", len(seeds), MaxSeeds-1)
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return errorsmod.Wrapf(model.ErrInvalidSeeds, "seed %d is %d bytes, limit %d", i, len(seed), MaxSeedLen)
		}
	}
	return nil
}

// onCurve reports whether digest, read as a big-endian x-coordinate, has a
// matching y on y^2 = x^3 + 7 (mod p).
func onCurve(digest []byte) bool {
	x := new(big.Int).SetBytes(digest)
	if x.Cmp(curveP) >= 0 {
		return false
	}
	rhs := new(big.Int).Mul(x, x)
	rhs.Mul(rhs, x)
	rhs.Add(rhs, curveB)
	rhs.Mod(rhs, curveP)
	return new(big.Int).ModSqrt(rhs, curveP) != nil
}
