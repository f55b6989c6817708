package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sqlport/sqlport/pkg/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type catalogParams struct {
	fx.In

	Config *config.Config
}

// catalogCmd creates the catalog command for inspecting what an import
// would execute, in the order it would execute it.
//
// Example usage:
//
//	# Show the catalog for the configured tree
//	sqlport catalog
//
//	# Show what a prod import with data would execute
//	sqlport catalog --mode prod --data
func catalogCmd(p catalogParams) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Print the ordered unit list the import would execute",
		Description: `Enumerate the source tree into the execution catalog and print
every unit in execution order, along with the folders the current mode and
filters skip. No server connection is made.`,
		Before: requireConfig(p.Config),
		Flags: []cli.Flag{
			sourceFlag,
			modeFlag,
			&cli.BoolFlag{
				Name:  "data",
				Usage: "Include the Data stage",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runCatalog(cmd, p)
		},
	}
}

func runCatalog(cmd *cli.Command, p catalogParams) error {
	cfg := overrideConfig(p.Config, cmd)

	includeData := cfg.IncludeData || cmd.Bool("data")

	cat, err := buildCatalog(cfg, cfg.Source, includeData)
	if err != nil {
		return errors.Wrap(err, "failed to build catalog")
	}

	for _, unit := range cat.Units {
		fmt.Printf("%-16s %-18s %s\n", unit.Category, unit.Type, unit.Path)
	}

	fmt.Printf("\n%d units\n", len(cat.Units))
	for _, folder := range cat.SkippedFolders {
		fmt.Printf("skipped: %s\n", folder)
	}

	return nil
}
