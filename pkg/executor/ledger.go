package executor

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sqlport/sqlport/pkg/consts"
)

type (
	// Failure is one terminal failure in the final report: the unit, its
	// source folder, the innermost error message, and the full error chain.
	Failure struct {
		UnitName   string
		Folder     string
		ShortError string
		FullError  string
	}

	// Ledger aggregates per-unit outcomes into the run's final status. It
	// is append-only: outcomes and constraint violations are recorded as
	// they reach a terminal state and never rewritten.
	Ledger struct {
		outcomes   []*Outcome
		violations []Failure
	}
)

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends a terminal outcome.
func (l *Ledger) Record(outcome *Outcome) {
	l.outcomes = append(l.outcomes, outcome)
}

// RecordAll appends a batch of terminal outcomes in order.
func (l *Ledger) RecordAll(outcomes []*Outcome) {
	l.outcomes = append(l.outcomes, outcomes...)
}

// RecordViolation appends a referential integrity violation: a constraint
// that failed re-validation after data load. Violations are a distinct
// failure class from unit failures and count toward the run's failure
// total even when every load statement succeeded.
func (l *Ledger) RecordViolation(table, constraint string, err error) {
	l.violations = append(l.violations, Failure{
		UnitName:   constraint,
		Folder:     "ReferentialIntegrity",
		ShortError: fmt.Sprintf("constraint %s on %s failed re-validation", constraint, table),
		FullError:  err.Error(),
	})
}

// Outcomes returns every recorded outcome in record order.
func (l *Ledger) Outcomes() []*Outcome {
	return l.outcomes
}

// Counts returns the number of succeeded, failed, and skipped units.
// Constraint violations are included in the failed count.
func (l *Ledger) Counts() (succeeded, failed, skipped int) {
	for _, o := range l.outcomes {
		switch o.Status {
		case StatusSucceeded:
			succeeded++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return succeeded, failed + len(l.violations), skipped
}

// Failures returns the report entries for every terminal failure, unit
// failures first, then referential integrity violations.
func (l *Ledger) Failures() []Failure {
	var failures []Failure

	for _, o := range l.outcomes {
		if o.Status != StatusFailed {
			continue
		}
		failures = append(failures, Failure{
			UnitName:   o.Unit.Name(),
			Folder:     o.Unit.Folder,
			ShortError: errors.Cause(o.Err).Error(),
			FullError:  o.Err.Error(),
		})
	}

	return append(failures, l.violations...)
}

// HasFailures reports whether any unit failed or any constraint violated.
func (l *Ledger) HasFailures() bool {
	_, failed, _ := l.Counts()
	return failed > 0
}

// ExitCode is the process exit code communicated to calling automation:
// 0 when the run had no terminal failures, 1 otherwise.
func (l *Ledger) ExitCode() int {
	if l.HasFailures() {
		return 1
	}
	return 0
}

// WriteErrorLog writes the plain-text error log, one entry per terminal
// failure. Callers invoke it only when failures exist; an empty ledger
// writes nothing and leaves no file behind.
func (l *Ledger) WriteErrorLog(path string) error {
	failures := l.Failures()
	if len(failures) == 0 {
		return nil
	}

	var b strings.Builder
	for _, f := range failures {
		fmt.Fprintf(&b, "[%s] %s: %s\n", f.Folder, f.UnitName, f.FullError)
	}

	if err := os.WriteFile(path, []byte(b.String()), consts.ModeFile); err != nil {
		return errors.Wrapf(err, "failed to write error log: %s", path)
	}
	return nil
}
