package model

// Receipt is the outcome of one instruction, written to the receipt journal.
type Receipt struct {
	Seq         uint64          `json:"seq"`
	Kind        InstructionKind `json:"kind"`
	Pool        string          `json:"pool,omitempty"`
	Signer      string          `json:"signer,omitempty"`
	OK          bool            `json:"ok"`
	Codespace   string          `json:"codespace,omitempty"`
	Code        uint32          `json:"code,omitempty"`
	Error       string          `json:"error,omitempty"`
	Direction   Direction       `json:"direction,omitempty"`
	AmountA     uint64          `json:"amount_a,string,omitempty"`
	AmountB     uint64          `json:"amount_b,string,omitempty"`
	AmountIn    uint64          `json:"amount_in,string,omitempty"`
	AmountOut   uint64          `json:"amount_out,string,omitempty"`
	Fee         uint64          `json:"fee,string,omitempty"`
	ReserveA    uint64          `json:"reserve_a,string"`
	ReserveB    uint64          `json:"reserve_b,string"`
	ProcessedAt string          `json:"processed_at"`
}
