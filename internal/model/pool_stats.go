package model

// PoolStats aggregates receipts for one pool. Volumes are decimal strings
// because sums may exceed uint64.
type PoolStats struct {
	Pool        string `json:"pool"`
	Initialized bool   `json:"initialized"`
	Deposits    uint64 `json:"deposits"`
	Swaps       uint64 `json:"swaps"`
	SwapsAToB   uint64 `json:"swaps_a_to_b"`
	SwapsBToA   uint64 `json:"swaps_b_to_a"`
	Failed      uint64 `json:"failed"`
	DepositedA  string `json:"deposited_a"`
	DepositedB  string `json:"deposited_b"`
	VolumeInA   string `json:"volume_in_a"`
	VolumeInB   string `json:"volume_in_b"`
	VolumeOutA  string `json:"volume_out_a"`
	VolumeOutB  string `json:"volume_out_b"`
	FeeA        string `json:"fee_a"`
	FeeB        string `json:"fee_b"`
	ReserveA    uint64 `json:"reserve_a,string"`
	ReserveB    uint64 `json:"reserve_b,string"`
	FirstSeq    uint64 `json:"first_seq"`
	LastSeq     uint64 `json:"last_seq"`
}
