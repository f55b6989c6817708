// Package importer drives a full database import: every catalog unit
// executed in stage order on one shared connection, with the run's
// outcomes aggregated into a single summary.
//
// The stage machine is strictly sequential with barriers between stages:
// Security, DatabaseConfig, Schema, Programmability, SecurityPolicy, Data.
// A stage starts only after the previous one ends. Security and Schema are
// load-bearing: a failure there aborts the remaining stages unless the run
// is configured to continue on error.
package importer

import (
	"context"
	"log/slog"
	"time"

	"github.com/sqlport/sqlport/pkg/catalog"
	"github.com/sqlport/sqlport/pkg/executor"
	"github.com/sqlport/sqlport/pkg/integrity"
	"github.com/sqlport/sqlport/pkg/retry"
	"github.com/sqlport/sqlport/pkg/transform"
)

type (
	// Session carries everything one import run shares: the connection,
	// the catalog, the ledger, and the executors built over them. A
	// session is single-use; state lives here, never at package level.
	Session struct {
		catalog     *catalog.Catalog
		ledger      *executor.Ledger
		exec        *executor.Executor
		fixpoint    *executor.Fixpoint
		coordinator *integrity.Coordinator
		cfg         Config
		logger      *slog.Logger
	}

	// Config contains configuration options for creating a new Session.
	Config struct {
		// Connection the whole run executes on.
		Connection executor.Connection

		// Constraints enumerates foreign keys for the data stage. Nil
		// disables the integrity bracket; data then loads in catalog
		// order with constraints enforced.
		Constraints integrity.ConstraintStore

		// Catalog is the enumerated unit tree to import.
		Catalog *catalog.Catalog

		// Transformer rewrites unit text before execution.
		Transformer *transform.Transformer

		// Retry wraps each batch against transient faults.
		Retry *retry.Policy

		// MaxRounds bounds the programmability fixpoint. Zero uses the
		// executor default.
		MaxRounds int

		// ContinueOnError keeps later stages running after a Security or
		// Schema stage failure.
		ContinueOnError bool

		// Logger receives stage progress.
		Logger *slog.Logger
	}

	// Summary is the run's final tally, the source of the process exit
	// code.
	Summary struct {
		Succeeded    int
		Failed       int
		Skipped      int
		FKDisabled   int
		FKReenabled  int
		BrokenCycles int
		Duration     time.Duration
		Aborted      bool
	}

	// stage pairs an execution class with how its units are applied.
	stage struct {
		category catalog.Category
		// loadBearing stages abort the run on failure unless the session
		// continues on error.
		loadBearing bool
	}
)

// stages is the fixed execution order. Data is handled separately because
// it runs under the integrity bracket.
var stages = []stage{
	{category: catalog.CategorySecurity, loadBearing: true},
	{category: catalog.CategoryDatabaseConfig},
	{category: catalog.CategorySchema, loadBearing: true},
	{category: catalog.CategoryProgrammable},
	{category: catalog.CategorySecurityPolicy},
}

// NewSession creates an import session over the given catalog and
// connection.
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exec := executor.New(executor.Config{
		Connection:  cfg.Connection,
		Transformer: cfg.Transformer,
		Retry:       cfg.Retry,
		Logger:      logger,
	})

	s := &Session{
		catalog:  cfg.Catalog,
		ledger:   executor.NewLedger(),
		exec:     exec,
		fixpoint: executor.NewFixpoint(exec, cfg.MaxRounds, logger),
		cfg:      cfg,
		logger:   logger,
	}

	if cfg.Constraints != nil {
		s.coordinator = integrity.NewCoordinator(integrity.Config{
			Store:      cfg.Constraints,
			Connection: cfg.Connection,
			Executor:   exec,
			Logger:     logger,
		})
	}

	return s
}

// Ledger exposes the run's outcome ledger, e.g. for writing the error log
// after the run.
func (s *Session) Ledger() *executor.Ledger { return s.ledger }

// Run executes the full stage machine and returns the run's summary. The
// summary's Failed count being zero is the run's success criterion; Run
// itself returns no error because per-unit failures are outcomes, not
// control flow.
func (s *Session) Run(ctx context.Context) *Summary {
	start := time.Now()
	summary := &Summary{}

	for _, st := range stages {
		failed := s.runStage(ctx, st.category)
		if failed > 0 && st.loadBearing && !s.cfg.ContinueOnError {
			s.logger.Error("aborting run after load-bearing stage failure",
				"stage", string(st.category), "failed", failed)
			summary.Aborted = true
			return s.finish(summary, start)
		}
	}

	s.runDataStage(ctx, summary)

	return s.finish(summary, start)
}

func (s *Session) runStage(ctx context.Context, category catalog.Category) int {
	units := s.catalog.ByCategory(category)
	if len(units) == 0 {
		return 0
	}

	s.logger.Info("stage starting", "stage", string(category), "units", len(units))
	_, failedBefore, _ := s.ledger.Counts()

	if category == catalog.CategoryProgrammable {
		// Programmability objects have unknown mutual ordering; the
		// fixpoint retries the failures of each round until converged.
		s.ledger.RecordAll(s.fixpoint.Run(ctx, units))
	} else {
		for _, unit := range units {
			s.ledger.Record(s.exec.Apply(ctx, unit))
		}
	}

	_, failedAfter, _ := s.ledger.Counts()
	failed := failedAfter - failedBefore
	s.logger.Info("stage finished", "stage", string(category), "failed", failed)
	return failed
}

func (s *Session) runDataStage(ctx context.Context, summary *Summary) {
	units := s.catalog.ByCategory(catalog.CategoryData)
	if len(units) == 0 {
		return
	}

	s.logger.Info("stage starting", "stage", string(catalog.CategoryData), "units", len(units))

	if s.coordinator == nil {
		for _, unit := range units {
			s.ledger.Record(s.exec.Apply(ctx, unit))
		}
		return
	}

	report := s.coordinator.Run(ctx, units, s.ledger)
	summary.FKDisabled = report.Disabled
	summary.FKReenabled = report.Reenabled
	summary.BrokenCycles = report.BrokenCycles
}

func (s *Session) finish(summary *Summary, start time.Time) *Summary {
	summary.Succeeded, summary.Failed, summary.Skipped = s.ledger.Counts()
	summary.Duration = time.Since(start)
	return summary
}

// ExitCode maps the summary to the process exit code: 0 only when no unit
// failed and no constraint was violated.
func (s *Summary) ExitCode() int {
	if s.Failed > 0 || s.Aborted {
		return 1
	}
	return 0
}
