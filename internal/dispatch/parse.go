package dispatch

import (
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"microAMM/internal/model"
)

// ParseAddress converts a hex string into common.Address. Empty input is an
// error.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAddresses converts string addresses into common.Address, skipping
// blanks.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// ParseSeeds decodes 0x-prefixed hex seeds. A seed without the prefix is
// taken as raw UTF-8 bytes.
func ParseSeeds(inputs []string) ([][]byte, error) {
	seeds := make([][]byte, 0, len(inputs))
	for _, input := range inputs {
		if !strings.HasPrefix(input, "0x") {
			seeds = append(seeds, []byte(input))
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %s: %w", input, err)
		}
		seeds = append(seeds, data)
	}
	return seeds, nil
}

// instructionAddress parses one address field of an instruction.
func instructionAddress(field, input string) (common.Address, error) {
	addr, err := ParseAddress(input)
	if err != nil {
		return common.Address{}, errorsmod.Wrapf(model.ErrInvalidInstruction, "%s: %v", field, err)
	}
	return addr, nil
}
