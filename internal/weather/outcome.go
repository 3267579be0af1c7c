package weather

import (
	"context"
	"iter"
)

// OutcomeState is the phase of a single fetch attempt.
type OutcomeState int

const (
	OutcomeLoading OutcomeState = iota
	OutcomeSuccess
	OutcomeError
)

func (s OutcomeState) String() string {
	switch s {
	case OutcomeLoading:
		return "loading"
	case OutcomeSuccess:
		return "success"
	default:
		return "error"
	}
}

// Outcome is one emission of a fetch attempt. Snapshot is set for
// OutcomeSuccess, Err for OutcomeError.
type Outcome struct {
	State    OutcomeState
	Snapshot Snapshot
	Err      *FetchError
}

// FetchFunc performs one remote fetch.
type FetchFunc func(ctx context.Context) (Snapshot, error)

// Outcomes wraps fetch as a cold sequence: Loading, then exactly one of
// Success or Error. Nothing runs until the sequence is ranged over, and every
// range invokes fetch again. Failures are classified, so callers never see a
// raw transport error.
func Outcomes(ctx context.Context, fetch FetchFunc) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		if !yield(Outcome{State: OutcomeLoading}) {
			return
		}
		snap, err := fetch(ctx)
		if err != nil {
			yield(Outcome{State: OutcomeError, Err: Classify(err)})
			return
		}
		yield(Outcome{State: OutcomeSuccess, Snapshot: snap})
	}
}
