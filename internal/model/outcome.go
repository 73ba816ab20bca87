package model

// Outcome is the committed result of one sequenced instruction. An applied
// transition records it in the same unit of work as its writes; a rejection
// records it on its own. A replayed journal reads it back instead of
// executing the instruction again.
type Outcome struct {
	Seq       uint64 `json:"seq"`
	OK        bool   `json:"ok"`
	Pool      string `json:"pool,omitempty"`
	Codespace string `json:"codespace,omitempty"`
	Code      uint32 `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
	AmountOut uint64 `json:"amount_out,string,omitempty"`
	Fee       uint64 `json:"fee,string,omitempty"`
	ReserveA  uint64 `json:"reserve_a,string"`
	ReserveB  uint64 `json:"reserve_b,string"`
}

// Outcome returns the part of r a store records for replay.
func (r Receipt) Outcome() Outcome {
	return Outcome{
		Seq:       r.Seq,
		OK:        r.OK,
		Pool:      r.Pool,
		Codespace: r.Codespace,
		Code:      r.Code,
		Error:     r.Error,
		AmountOut: r.AmountOut,
		Fee:       r.Fee,
		ReserveA:  r.ReserveA,
		ReserveB:  r.ReserveB,
	}
}

// WithOutcome returns r with a recorded outcome copied over it.
func (r Receipt) WithOutcome(o Outcome) Receipt {
	r.OK = o.OK
	if o.Pool != "" {
		r.Pool = o.Pool
	}
	r.Codespace = o.Codespace
	r.Code = o.Code
	r.Error = o.Error
	r.AmountOut = o.AmountOut
	r.Fee = o.Fee
	r.ReserveA = o.ReserveA
	r.ReserveB = o.ReserveB
	return r
}
