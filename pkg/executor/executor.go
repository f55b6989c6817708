// Package executor applies catalog units to the target database.
//
// The package provides the unit executor (transform, then execute each
// batch through the retry policy), the append-only ledger that aggregates
// per-unit outcomes into the run's final report, and the fixpoint executor
// that drives repeated-attempt scheduling over units with unknown mutual
// ordering.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/sqlport/sqlport/pkg/catalog"
	"github.com/sqlport/sqlport/pkg/retry"
	"github.com/sqlport/sqlport/pkg/transform"
)

type (
	// Connection is the transport boundary the executor submits batches to:
	// one session bound to one target database. The concrete provider lives
	// in pkg/mssql; tests substitute an in-memory fake.
	Connection interface {
		ExecuteBatch(ctx context.Context, sql string) error
	}

	// Executor applies one unit at a time: transform the unit's text, then
	// execute each resulting batch on the shared connection, wrapping every
	// batch in the transient retry policy.
	Executor struct {
		conn        Connection
		transformer *transform.Transformer
		retry       *retry.Policy
		logger      *slog.Logger
	}

	// Config contains configuration options for creating a new Executor.
	Config struct {
		// Connection the batches are submitted to.
		Connection Connection

		// Transformer rewrites unit text before execution.
		Transformer *transform.Transformer

		// Retry wraps every batch execution against transient faults.
		Retry *retry.Policy

		// Logger receives transformation warnings (missing secrets,
		// unresolved variables). Secret values are never logged, only keys.
		Logger *slog.Logger
	}
)

// New creates a unit executor with the provided configuration.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		conn:        cfg.Connection,
		transformer: cfg.Transformer,
		retry:       cfg.Retry,
		logger:      logger,
	}
}

// Apply executes a single unit and returns its outcome. Batches run in
// order; the first failing batch fails the unit, and earlier batches stay
// applied (per-batch autonomy). Transient infrastructure faults are retried
// inside the retry policy and never surface here unless exhausted.
func (e *Executor) Apply(ctx context.Context, unit *catalog.Unit) *Outcome {
	start := time.Now()

	text, err := unit.Text()
	if err != nil {
		return failed(unit, err, time.Since(start), 0, 0)
	}

	result := e.transformer.Transform(text)

	for _, key := range result.MissingSecrets {
		e.logger.Warn("secret not resolved; statement will fail at execution",
			"unit", unit.Name(), "secret", key)
	}
	for _, name := range result.Unresolved {
		e.logger.Warn("substitution variable not resolved",
			"unit", unit.Name(), "variable", name)
	}

	if len(result.Batches) == 0 {
		return &Outcome{
			Unit:     unit,
			Status:   StatusSkipped,
			Reason:   "no executable batches after transformation",
			Duration: time.Since(start),
		}
	}

	for i, batch := range result.Batches {
		sql := batch
		err := e.retry.Execute(ctx, unit.Name(), func() error {
			return e.conn.ExecuteBatch(ctx, sql)
		})
		if err != nil {
			err = errors.Wrapf(err, "failed to execute batch %d of %d", i+1, len(result.Batches))
			return failed(unit, err, time.Since(start), i, len(result.Batches))
		}
	}

	return &Outcome{
		Unit:           unit,
		Status:         StatusSucceeded,
		Duration:       time.Since(start),
		BatchesApplied: len(result.Batches),
		TotalBatches:   len(result.Batches),
	}
}

func failed(unit *catalog.Unit, err error, d time.Duration, applied, total int) *Outcome {
	return &Outcome{
		Unit:           unit,
		Status:         StatusFailed,
		Err:            err,
		Duration:       d,
		BatchesApplied: applied,
		TotalBatches:   total,
	}
}
