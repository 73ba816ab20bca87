package model

import (
	"bytes"
	"encoding/json"
)

// InstructionKind names a pool state transition.
type InstructionKind string

const (
	KindInitialize   InstructionKind = "initialize"
	KindAddLiquidity InstructionKind = "add_liquidity"
	KindSwap         InstructionKind = "swap"
)

// Instruction is one dispatcher request as read from the instruction JSONL.
// Amounts are decimal strings so that uint64 values survive JSON clients.
type Instruction struct {
	Seq       uint64          `json:"seq"`
	Kind      InstructionKind `json:"kind"`
	Signer    string          `json:"signer"`
	Pool      string          `json:"pool,omitempty"`
	TokenA    string          `json:"token_a,omitempty"`
	TokenB    string          `json:"token_b,omitempty"`
	CustodyA  string          `json:"custody_a,omitempty"`
	CustodyB  string          `json:"custody_b,omitempty"`
	Authority string          `json:"authority,omitempty"`
	FeeBps    uint16          `json:"fee_bps,omitempty"`
	AmountA   uint64          `json:"amount_a,string,omitempty"`
	AmountB   uint64          `json:"amount_b,string,omitempty"`
	AmountIn  uint64          `json:"amount_in,string,omitempty"`
	Direction Direction       `json:"direction,omitempty"`
}

// UnmarshalJSON decodes an Instruction and rejects unknown fields.
func (in *Instruction) UnmarshalJSON(data []byte) error {
	type Alias Instruction
	var a Alias
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return err
	}
	*in = Instruction(a)
	return nil
}
