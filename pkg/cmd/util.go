package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sqlport/sqlport/pkg/catalog"
	"github.com/sqlport/sqlport/pkg/config"
	"github.com/sqlport/sqlport/pkg/retry"
	"github.com/sqlport/sqlport/pkg/transform"
	"github.com/urfave/cli/v3"
)

// Flags shared by the commands that read the source tree or reach the
// target server. Each one overrides its sqlport.yaml counterpart.
var (
	sourceFlag = &cli.StringFlag{
		Name:    "source",
		Aliases: []string{"s"},
		Usage:   "Source directory of the SQL unit tree",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	urlFlag = &cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Usage:   "SQL Server connection string",
		Sources: cli.EnvVars("SQLPORT_URL"),
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	databaseFlag = &cli.StringFlag{
		Name:  "database",
		Usage: "Target database name",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "Folder gating mode (dev or prod)",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}
)

// overrideConfig returns a copy of the configuration with the shared flag
// overrides applied. The loaded config is never mutated; two commands in
// one process must not see each other's overrides.
func overrideConfig(cfg *config.Config, cmd *cli.Command) *config.Config {
	out := *cfg
	if v := cmd.String("source"); v != "" {
		out.Source = v
	}
	if v := cmd.String("url"); v != "" {
		out.Connection.URL = v
	}
	if v := cmd.String("database"); v != "" {
		out.Database = v
	}
	if v := cmd.String("mode"); v != "" {
		out.Mode = v
	}
	return &out
}

// buildCatalog enumerates the configured source tree into a catalog.
func buildCatalog(cfg *config.Config, source string, includeData bool) (*catalog.Catalog, error) {
	switch cfg.CatalogMode() {
	case catalog.ModeDev, catalog.ModeProd:
	default:
		return nil, errors.Errorf("invalid mode %q (expected dev or prod)", cfg.Mode)
	}
	if source == "" {
		return nil, errors.New("no source directory configured")
	}
	if _, err := os.Stat(source); err != nil {
		return nil, errors.Wrapf(err, "source directory %s not accessible", source)
	}

	b := &catalog.Builder{
		Mode:        cfg.CatalogMode(),
		Filter:      cfg.CatalogFilter(),
		IncludeData: includeData,
	}
	return b.Build(os.DirFS(source))
}

// newTransformer builds the text pipeline from the configuration. dataPath
// is the server-reported default data directory; a configured override
// wins.
func newTransformer(cfg *config.Config, database, dataPath string) *transform.Transformer {
	if cfg.FileGroups.DataPath != "" {
		dataPath = cfg.FileGroups.DataPath
	}

	return transform.New(&transform.Context{
		Database:             database,
		Variables:            cfg.Variables,
		Secrets:              cfg.ResolvedSecrets(),
		DataPath:             dataPath,
		FileGroups:           cfg.FileGroupStrategy(),
		StripFilestream:      cfg.Strip.Filestream,
		StripAlwaysEncrypted: cfg.Strip.AlwaysEncrypted,
		ContainedUsers:       cfg.ContainedUsers,
	})
}

// retryPolicy builds the transient retry policy from the configuration.
func retryPolicy(cfg *config.Config) *retry.Policy {
	return retry.New(retry.Config{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay.Std(),
	})
}
