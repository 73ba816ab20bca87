package report

import (
	"fmt"

	"microAMM/internal/fixedpoint"
	"microAMM/internal/model"
)

// Accumulator holds running statistics for one pool.
type Accumulator struct {
	Pool        string
	Initialized bool
	Deposits    uint64
	Swaps       uint64
	SwapsAToB   uint64
	SwapsBToA   uint64
	Failed      uint64
	DepositedA  fixedpoint.Sum
	DepositedB  fixedpoint.Sum
	VolumeInA   fixedpoint.Sum
	VolumeInB   fixedpoint.Sum
	VolumeOutA  fixedpoint.Sum
	VolumeOutB  fixedpoint.Sum
	FeeA        fixedpoint.Sum
	FeeB        fixedpoint.Sum
	ReserveA    uint64
	ReserveB    uint64
	FirstSeq    uint64
	LastSeq     uint64
}

func NewAccumulator(pool string, seq uint64) *Accumulator {
	return &Accumulator{Pool: pool, FirstSeq: seq, LastSeq: seq}
}

// AddReceipt folds one receipt into the running totals.
func (a *Accumulator) AddReceipt(r model.Receipt) error {
	if r.Seq < a.FirstSeq {
		a.FirstSeq = r.Seq
	}
	if r.Seq > a.LastSeq {
		a.LastSeq = r.Seq
	}
	if !r.OK {
		a.Failed++
		return nil
	}

	switch r.Kind {
	case model.KindInitialize:
		a.Initialized = true
		return nil
	case model.KindAddLiquidity:
		a.Deposits++
		a.ReserveA, a.ReserveB = r.ReserveA, r.ReserveB
		return addAll(
			sumOp{&a.DepositedA, r.AmountA},
			sumOp{&a.DepositedB, r.AmountB},
		)
	case model.KindSwap:
		return a.applySwap(r)
	default:
		return fmt.Errorf("unknown receipt kind %q", r.Kind)
	}
}

func (a *Accumulator) applySwap(r model.Receipt) error {
	a.Swaps++
	a.ReserveA, a.ReserveB = r.ReserveA, r.ReserveB
	switch r.Direction {
	case model.AToB:
		a.SwapsAToB++
		return addAll(
			sumOp{&a.VolumeInA, r.AmountIn},
			sumOp{&a.VolumeOutB, r.AmountOut},
			sumOp{&a.FeeA, r.Fee},
		)
	case model.BToA:
		a.SwapsBToA++
		return addAll(
			sumOp{&a.VolumeInB, r.AmountIn},
			sumOp{&a.VolumeOutA, r.AmountOut},
			sumOp{&a.FeeB, r.Fee},
		)
	default:
		return fmt.Errorf("swap receipt %d has no direction", r.Seq)
	}
}

// Stats renders the accumulator as a PoolStats record.
func (a *Accumulator) Stats() model.PoolStats {
	return model.PoolStats{
		Pool:        a.Pool,
		Initialized: a.Initialized,
		Deposits:    a.Deposits,
		Swaps:       a.Swaps,
		SwapsAToB:   a.SwapsAToB,
		SwapsBToA:   a.SwapsBToA,
		Failed:      a.Failed,
		DepositedA:  a.DepositedA.String(),
		DepositedB:  a.DepositedB.String(),
		VolumeInA:   a.VolumeInA.String(),
		VolumeInB:   a.VolumeInB.String(),
		VolumeOutA:  a.VolumeOutA.String(),
		VolumeOutB:  a.VolumeOutB.String(),
		FeeA:        a.FeeA.String(),
		FeeB:        a.FeeB.String(),
		ReserveA:    a.ReserveA,
		ReserveB:    a.ReserveB,
		FirstSeq:    a.FirstSeq,
		LastSeq:     a.LastSeq,
	}
}

type sumOp struct {
	sum    *fixedpoint.Sum
	amount uint64
}

func addAll(ops ...sumOp) error {
	for _, op := range ops {
		if err := op.sum.Add(op.amount); err != nil {
			return err
		}
	}
	return nil
}
