package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sqlport/sqlport/pkg/config"
	"github.com/sqlport/sqlport/pkg/importer"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type validateParams struct {
	fx.In

	Config *config.Config
}

// validate creates the validate command for dry-running the transformation
// pipeline without a database connection.
//
// Every unit in the catalog is transformed exactly as the import would
// transform it, and every missing secret and unresolved variable across the
// whole tree is reported in a single pass, so the operator can fix the
// complete set at once.
//
// Example usage:
//
//	# Validate the configured tree
//	sqlport validate
//
//	# Validate a different tree in prod mode
//	sqlport validate --source ./db --mode prod
func validate(p validateParams) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Dry run the transformation pipeline over the source tree",
		Description: `Build the catalog and run every unit through the transformation
pipeline without connecting to a server. Reports all missing secrets and
unresolved substitution variables in one pass. Exits non-zero when any
issue is found.`,
		Before: requireConfig(p.Config),
		Flags: []cli.Flag{
			sourceFlag,
			databaseFlag,
			modeFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runValidate(cmd, p)
		},
	}
}

func runValidate(cmd *cli.Command, p validateParams) error {
	cfg := overrideConfig(p.Config, cmd)

	database := cfg.Database
	if database == "" {
		// The placeholder value keeps database-name fixup exercised even
		// when validating without a target.
		database = "ValidationTarget"
	}

	cat, err := buildCatalog(cfg, cfg.Source, cfg.IncludeData)
	if err != nil {
		return errors.Wrap(err, "failed to build catalog")
	}

	issues, err := importer.Validate(cat, newTransformer(cfg, database, ""))
	if err != nil {
		return errors.Wrap(err, "validation failed")
	}

	if len(issues) == 0 {
		fmt.Printf("Validated %d units: no issues found\n", len(cat.Units))
		return nil
	}

	for _, issue := range issues {
		if len(issue.MissingSecrets) > 0 {
			fmt.Printf("  %s/%s: missing secrets: %s\n",
				issue.Folder, issue.Unit, strings.Join(issue.MissingSecrets, ", "))
		}
		if len(issue.Unresolved) > 0 {
			fmt.Printf("  %s/%s: unresolved variables: %s\n",
				issue.Folder, issue.Unit, strings.Join(issue.Unresolved, ", "))
		}
	}

	return errors.Errorf("validation found issues in %d of %d units", len(issues), len(cat.Units))
}
