package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/sqlport/sqlport/pkg/catalog"
	"github.com/sqlport/sqlport/pkg/config"
	"github.com/sqlport/sqlport/pkg/importer"
	"github.com/sqlport/sqlport/pkg/mssql"
	"github.com/sqlport/sqlport/pkg/transform"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type importParams struct {
	fx.In

	Config *config.Config
}

// importCmd creates the import command for executing a full staged import.
//
// The import command connects to the target server, enumerates the source
// tree, and executes every unit in stage order: security principals,
// database configuration, schema objects, programmability objects,
// security policies, and finally data under the foreign-key bracket.
//
// Command flags:
//   - --source, -s: source tree directory (overrides config)
//   - --url, -u: SQL Server connection string (overrides config)
//   - --database: target database name (overrides config)
//   - --mode: dev or prod folder gating (overrides config)
//   - --data / --no-data: include or exclude the Data stage
//   - --continue-on-error: keep running after load-bearing stage failures
//   - --error-log: failure log path
//
// Example usage:
//
//	# Import using sqlport.yaml settings
//	sqlport import
//
//	# Import a specific tree into a specific database
//	sqlport import --source ./db --database Northwind --url sqlserver://sa:pw@localhost:1433
func importCmd(p importParams) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import the SQL unit tree into the target database",
		Description: `Execute the full staged import against the configured SQL Server.

Each unit executes on a single shared connection. Transient infrastructure
faults (timeouts, throttling, deadlocks) are retried with exponential
backoff; programmability objects with unresolved mutual references are
retried in fixpoint rounds; data loads inside a disable/re-enable bracket
over the target's foreign keys so insertion order cannot violate them.

The run exits 0 only when every unit succeeded and every disabled
constraint re-validated. On failure, terminal errors are written to the
error log.`,
		Before: requireConfig(p.Config),
		Flags: []cli.Flag{
			sourceFlag,
			urlFlag,
			databaseFlag,
			modeFlag,
			&cli.BoolFlag{
				Name:  "data",
				Usage: "Include the Data stage",
			},
			&cli.BoolFlag{
				Name:  "no-data",
				Usage: "Exclude the Data stage even when configured on",
			},
			&cli.BoolFlag{
				Name:  "continue-on-error",
				Usage: "Keep running after Security or Schema stage failures",
			},
			&cli.StringFlag{
				Name:  "error-log",
				Usage: "Path for the failure log written on a failed run",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runImport(ctx, cmd, p)
		},
	}
}

func runImport(ctx context.Context, cmd *cli.Command, p importParams) error {
	cfg := overrideConfig(p.Config, cmd)

	includeData := cfg.IncludeData
	if cmd.Bool("data") {
		includeData = true
	}
	if cmd.Bool("no-data") {
		includeData = false
	}
	if cmd.Bool("continue-on-error") {
		cfg.ContinueOnError = true
	}

	errorLog := cfg.ErrorLog
	if path := cmd.String("error-log"); path != "" {
		errorLog = path
	}

	if cfg.Database == "" {
		return errors.New("no target database configured")
	}

	slog.Info("Starting import",
		"source", cfg.Source,
		"database", cfg.Database,
		"mode", cfg.Mode,
		"include_data", includeData,
	)

	cat, err := buildCatalog(cfg, cfg.Source, includeData)
	if err != nil {
		return errors.Wrap(err, "failed to build catalog")
	}

	slog.Info("Catalog built", "units", len(cat.Units), "skipped_folders", len(cat.SkippedFolders))

	client := mssql.NewClient(mssql.Config{
		URL:            cfg.ResolvedURL(),
		ConnectTimeout: cfg.Connection.ConnectTimeout.Std(),
		CommandTimeout: cfg.Connection.CommandTimeout.Std(),
	})
	if err := client.Connect(ctx); err != nil {
		return errors.Wrap(err, "failed to connect to SQL Server")
	}
	defer func() { _ = client.Disconnect() }()

	if err := ensureDatabase(ctx, client, cfg); err != nil {
		return err
	}

	dataPath := ""
	if cfg.FileGroupStrategy() == transform.FileGroupAutoRemap && cfg.FileGroups.DataPath == "" {
		if dataPath, err = client.DefaultDataPath(ctx); err != nil {
			return errors.Wrap(err, "failed to determine server data path for filegroup remapping")
		}
	}

	session := importer.NewSession(importer.Config{
		Connection:      client,
		Constraints:     client,
		Catalog:         cat,
		Transformer:     newTransformer(cfg, cfg.Database, dataPath),
		Retry:           retryPolicy(cfg),
		ContinueOnError: cfg.ContinueOnError,
	})

	summary := session.Run(ctx)
	reportSummary(summary, cat)

	if summary.ExitCode() != 0 {
		if err := session.Ledger().WriteErrorLog(errorLog); err != nil {
			slog.Warn("Failed to write error log", "path", errorLog, "error", err)
		} else {
			fmt.Printf("Failures written to %s\n", errorLog)
		}
		return errors.Errorf("import finished with %d failed units", summary.Failed)
	}

	return nil
}

// ensureDatabase verifies the target database exists before any unit
// executes, creating it when configured to.
func ensureDatabase(ctx context.Context, client *mssql.Client, cfg *config.Config) error {
	exists, err := client.DatabaseExists(ctx, cfg.Database)
	if err != nil {
		return errors.Wrap(err, "failed to check target database")
	}
	if exists {
		return nil
	}

	if !cfg.CreateDatabase {
		return errors.Errorf("database %q does not exist on the target server", cfg.Database)
	}

	slog.Info("Creating target database", "database", cfg.Database)
	return client.CreateDatabase(ctx, cfg.Database)
}

func reportSummary(summary *importer.Summary, cat *catalog.Catalog) {
	fmt.Println()
	fmt.Printf("Import finished in %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Printf("  Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("  Failed:    %d\n", summary.Failed)
	fmt.Printf("  Skipped:   %d\n", summary.Skipped)
	if summary.FKDisabled > 0 || summary.FKReenabled > 0 {
		fmt.Printf("  Foreign keys disabled/re-enabled: %d/%d\n", summary.FKDisabled, summary.FKReenabled)
	}
	if summary.BrokenCycles > 0 {
		fmt.Printf("  Dependency cycles broken during data ordering: %d\n", summary.BrokenCycles)
	}
	if summary.Aborted {
		fmt.Println("  Run aborted after a load-bearing stage failure")
	}
	for _, folder := range cat.SkippedFolders {
		fmt.Printf("  Skipped folder: %s\n", folder)
	}
}
