package integrity

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/sqlport/sqlport/pkg/catalog"
	"github.com/sqlport/sqlport/pkg/executor"
	"github.com/sqlport/sqlport/pkg/utils"
)

type (
	// ForeignKey identifies one foreign-key constraint on the target
	// database. Transient per phase: fetched live before the load and
	// discarded afterwards; the ledger and reported counts are the only
	// durable record of the disable/enable cycle.
	ForeignKey struct {
		Schema    string `db:"table_schema"`
		Table     string `db:"table_name"`
		Name      string `db:"constraint_name"`
		RefSchema string `db:"ref_schema"`
		RefTable  string `db:"ref_table"`
		Disabled  bool   `db:"is_disabled"`
	}

	// ConstraintStore fetches the live foreign-key constraints of the
	// target database. Implemented by the mssql client.
	ConstraintStore interface {
		ListForeignKeys(ctx context.Context) ([]ForeignKey, error)
	}

	// Coordinator brackets bulk data loading: disable all enabled foreign
	// keys, load data units in dependency order, then re-validate every
	// constraint that was disabled.
	Coordinator struct {
		store  ConstraintStore
		conn   executor.Connection
		exec   *executor.Executor
		logger *slog.Logger
	}

	// Config contains the collaborators a Coordinator needs.
	Config struct {
		// Store enumerates foreign-key constraints.
		Store ConstraintStore

		// Connection executes the NOCHECK / WITH CHECK CHECK statements.
		Connection executor.Connection

		// Executor applies the data units themselves.
		Executor *executor.Executor

		// Logger receives disable warnings and broken-cycle diagnostics.
		Logger *slog.Logger
	}

	// Report summarizes the bracket for the operator: how many constraints
	// were disabled and successfully re-validated, and how many load-order
	// cycles had to be broken.
	Report struct {
		Disabled     int
		Reenabled    int
		BrokenCycles int
	}
)

// NewCoordinator creates a referential integrity coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:  cfg.Store,
		conn:   cfg.Connection,
		exec:   cfg.Executor,
		logger: logger,
	}
}

// Run executes the full disable / ordered-load / re-enable bracket over the
// given data units, recording load outcomes and re-validation violations in
// the ledger. Load failures do not stop the bracket: every unit is
// attempted and the re-enable phase always runs, so the bracket is closed
// even on a partially failed load.
func (c *Coordinator) Run(ctx context.Context, units []*catalog.Unit, ledger *executor.Ledger) *Report {
	report := &Report{}

	fks, err := c.store.ListForeignKeys(ctx)
	if err != nil {
		// Not fatal: without the constraint list the load proceeds with
		// constraints enforced, so insertion order now matters.
		c.logger.Warn("failed to enumerate foreign keys; loading with constraints enforced", "error", err)
	}

	disabled := c.disable(ctx, fks)
	report.Disabled = len(disabled)
	c.logger.Info("foreign keys disabled for data load", "count", len(disabled))

	ordered, brokenCycles := c.OrderUnits(units, fks)
	report.BrokenCycles = brokenCycles

	for _, unit := range ordered {
		ledger.Record(c.exec.Apply(ctx, unit))
	}

	report.Reenabled = c.reenable(ctx, disabled, ledger)
	c.logger.Info("foreign keys re-validated after data load",
		"reenabled", report.Reenabled, "disabled", report.Disabled)

	return report
}

// disable issues one NOCHECK statement per enabled constraint. A constraint
// that fails to disable is logged and left out of the re-enable list; the
// load proceeds regardless.
func (c *Coordinator) disable(ctx context.Context, fks []ForeignKey) []ForeignKey {
	var disabled []ForeignKey

	for _, fk := range fks {
		if fk.Disabled {
			continue
		}
		stmt := "ALTER TABLE " + utils.BracketQualifiedName(fk.Schema, fk.Table) +
			" NOCHECK CONSTRAINT " + utils.BracketIdentifier(fk.Name)
		if err := c.conn.ExecuteBatch(ctx, stmt); err != nil {
			c.logger.Warn("failed to disable constraint; load order now matters for it",
				"table", fk.Schema+"."+fk.Table, "constraint", fk.Name, "error", err)
			continue
		}
		disabled = append(disabled, fk)
	}

	return disabled
}

// OrderUnits sorts data units so referenced tables load before referencing
// ones, using the foreign keys restricted to tables that are actually being
// loaded. Units without a parseable table identity keep their catalog
// position at the end. The second return value is the number of dependency
// cycles broken during ordering.
func (c *Coordinator) OrderUnits(units []*catalog.Unit, fks []ForeignKey) ([]*catalog.Unit, int) {
	byTable := make(map[string]*catalog.Unit, len(units))
	var tables []string
	var unidentified []*catalog.Unit

	for _, u := range units {
		id, ok := u.TableID()
		if !ok {
			unidentified = append(unidentified, u)
			continue
		}
		byTable[id] = u
		tables = append(tables, id)
	}

	graph := NewDependencyGraph(tables)
	for _, fk := range fks {
		graph.AddDependency(fk.Schema+"."+fk.Table, fk.RefSchema+"."+fk.RefTable)
	}

	order, broken := graph.Order()
	for _, edge := range broken {
		c.logger.Warn("dependency cycle broken during data ordering; relying on disabled constraints",
			"from", edge.From, "to", edge.To)
	}

	ordered := make([]*catalog.Unit, 0, len(units))
	for _, table := range order {
		ordered = append(ordered, byTable[table])
	}
	return append(ordered, unidentified...), len(broken)
}

// reenable re-validates every constraint disabled earlier with WITH CHECK.
// A constraint that fails re-validation is a referential integrity
// violation: a distinct failure class recorded in the ledger, separate from
// load failures, counting toward the run's failure total.
func (c *Coordinator) reenable(ctx context.Context, disabled []ForeignKey, ledger *executor.Ledger) int {
	reenabled := 0

	for _, fk := range disabled {
		table := utils.BracketQualifiedName(fk.Schema, fk.Table)
		stmt := "ALTER TABLE " + table +
			" WITH CHECK CHECK CONSTRAINT " + utils.BracketIdentifier(fk.Name)
		if err := c.conn.ExecuteBatch(ctx, stmt); err != nil {
			ledger.RecordViolation(fk.Schema+"."+fk.Table, fk.Name,
				errors.Wrap(err, "constraint failed re-validation after data load"))
			continue
		}
		reenabled++
	}

	return reenabled
}
