package model

import (
	"fmt"
	"strings"
)

// Direction selects which token the caller supplies to a swap.
type Direction uint8

const (
	DirectionUnknown Direction = iota
	AToB
	BToA
)

func (d Direction) String() string {
	switch d {
	case AToB:
		return "a_to_b"
	case BToA:
		return "b_to_a"
	default:
		return "unknown"
	}
}

// ParseDirection accepts a_to_b / b_to_a (case-insensitive, '-' allowed).
func ParseDirection(input string) (Direction, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(input)), "-", "_") {
	case "a_to_b", "ab":
		return AToB, nil
	case "b_to_a", "ba":
		return BToA, nil
	default:
		return DirectionUnknown, fmt.Errorf("invalid direction: %q", input)
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	if d == DirectionUnknown {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = DirectionUnknown
		return nil
	}
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
