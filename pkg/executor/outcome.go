package executor

import (
	"time"

	"github.com/sqlport/sqlport/pkg/catalog"
)

type (
	// Status represents the terminal state of applying one unit.
	Status string

	// Outcome is the immutable result of applying one unit. Outcomes are
	// created by the executor and appended to the ledger; they are never
	// mutated after creation.
	Outcome struct {
		// Unit is the unit this outcome belongs to.
		Unit *catalog.Unit

		// Status indicates how the unit terminated.
		Status Status

		// Reason explains a skip; empty otherwise.
		Reason string

		// Err is the failure, nil unless Status is StatusFailed. For units
		// that went through fixpoint retry this is the latest captured
		// attempt error.
		Err error

		// Duration records how long the unit took to apply.
		Duration time.Duration

		// BatchesApplied is the number of batches that succeeded.
		BatchesApplied int

		// TotalBatches is the number of batches in the transformed unit.
		TotalBatches int
	}
)

const (
	// StatusSucceeded indicates every batch of the unit was applied.
	StatusSucceeded Status = "succeeded"

	// StatusFailed indicates a batch failed terminally.
	StatusFailed Status = "failed"

	// StatusSkipped indicates the unit produced nothing to execute.
	StatusSkipped Status = "skipped"
)
