package amm

import (
	"context"

	"microAMM/internal/model"
)

type sequenceKey struct{}

// WithSequence tags ctx with the journal sequence of the instruction being
// applied. A transition run under a tagged context records its outcome in
// the same unit of work as its writes.
func WithSequence(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, sequenceKey{}, seq)
}

func sequenceFrom(ctx context.Context) (uint64, bool) {
	seq, ok := ctx.Value(sequenceKey{}).(uint64)
	return seq, ok && seq > 0
}

func recordApplied(ctx context.Context, st State, outcome model.Outcome) error {
	seq, ok := sequenceFrom(ctx)
	if !ok {
		return nil
	}
	outcome.Seq = seq
	outcome.OK = true
	return st.RecordOutcome(ctx, outcome)
}

// Outcome returns the recorded outcome of seq.
func (p *Program) Outcome(ctx context.Context, seq uint64) (model.Outcome, bool, error) {
	return p.store.Outcome(ctx, seq)
}

// RecordRejection stores the outcome of a rejected instruction. Nothing
// else is written, so the unit holds only the record.
func (p *Program) RecordRejection(ctx context.Context, outcome model.Outcome) error {
	outcome.OK = false
	return p.store.Atomic(ctx, func(st State) error {
		return st.RecordOutcome(ctx, outcome)
	})
}

// PruneOutcomes forgets outcomes through seq once the journal position
// covering them is durable.
func (p *Program) PruneOutcomes(ctx context.Context, through uint64) error {
	return p.store.PruneOutcomes(ctx, through)
}
