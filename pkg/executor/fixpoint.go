package executor

import (
	"context"
	"log/slog"

	"github.com/sqlport/sqlport/pkg/catalog"
)

// DefaultMaxRounds bounds fixpoint scheduling; a set whose longest true
// dependency chain exceeds this is reported as failed rather than looping.
const DefaultMaxRounds = 10

// Fixpoint applies a set of units whose mutual ordering is unknown.
// Cross-references between functions, views, and procedures can point
// forward or backward in file order, and true dependencies are not
// statically knowable from file names, so ordering is discovered by
// repeated attempts over a shrinking pending set rather than by building a
// dependency graph.
type Fixpoint struct {
	executor  *Executor
	maxRounds int
	logger    *slog.Logger
}

// NewFixpoint creates a fixpoint executor over the given unit executor.
// maxRounds <= 0 selects DefaultMaxRounds.
func NewFixpoint(exec *Executor, maxRounds int, logger *slog.Logger) *Fixpoint {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fixpoint{executor: exec, maxRounds: maxRounds, logger: logger}
}

// Run drives rounds of attempts until the pending set is empty, the round
// budget is exhausted, or a round makes zero progress (remaining failures
// are structural, not ordering-related). Units that succeed are removed
// permanently and never re-attempted; units still pending at termination
// are terminal failures carrying their last captured error.
//
// If a total ordering exists in which every unit's dependencies precede it
// within the set, all units succeed within as many rounds as the longest
// dependency chain.
func (f *Fixpoint) Run(ctx context.Context, units []*catalog.Unit) []*Outcome {
	outcomes := make([]*Outcome, 0, len(units))
	pending := units
	lastOutcome := make(map[*catalog.Unit]*Outcome)

	for round := 1; len(pending) > 0 && round <= f.maxRounds; round++ {
		var failed []*catalog.Unit

		for _, unit := range pending {
			outcome := f.executor.Apply(ctx, unit)
			if outcome.Status == StatusFailed {
				// Latest failure overwrites the previous one for the unit.
				lastOutcome[unit] = outcome
				failed = append(failed, unit)
				continue
			}
			outcomes = append(outcomes, outcome)
		}

		succeeded := len(pending) - len(failed)
		f.logger.Info("fixpoint round complete",
			"round", round,
			"succeeded", succeeded,
			"pending", len(failed),
		)

		if succeeded == 0 {
			// No progress: further rounds cannot help.
			pending = failed
			break
		}
		pending = failed
	}

	for _, unit := range pending {
		outcomes = append(outcomes, lastOutcome[unit])
	}

	return outcomes
}
