package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sqlport/sqlport/pkg/catalog"
	"github.com/sqlport/sqlport/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func testConfig(source string) *config.Config {
	return &config.Config{
		Source:   source,
		Database: "Target",
		Mode:     string(catalog.ModeDev),
	}
}

func TestOverrideConfig(t *testing.T) {
	base := testConfig("db")

	cmd := &cli.Command{
		Flags: []cli.Flag{sourceFlag, urlFlag, databaseFlag, modeFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := overrideConfig(base, cmd)
			assert.Equal(t, "other", out.Source)
			assert.Equal(t, "Northwind", out.Database)
			assert.Equal(t, "prod", out.Mode)
			return nil
		},
	}

	err := cmd.Run(context.Background(), []string{"test", "--source", "other", "--database", "Northwind", "--mode", "prod"})
	require.NoError(t, err)

	// The loaded config itself is untouched.
	assert.Equal(t, "db", base.Source)
	assert.Equal(t, "Target", base.Database)
}

func TestBuildCatalog(t *testing.T) {
	root := writeTree(t, map[string]string{
		"Tables/dbo.T.sql": "CREATE TABLE [dbo].[T] ([Id] INT)\nGO",
	})

	t.Run("success", func(t *testing.T) {
		cat, err := buildCatalog(testConfig(root), root, false)
		require.NoError(t, err)
		require.Len(t, cat.Units, 1)
		assert.Equal(t, catalog.TypeTable, cat.Units[0].Type)
	})

	t.Run("invalid mode", func(t *testing.T) {
		cfg := testConfig(root)
		cfg.Mode = "staging"
		_, err := buildCatalog(cfg, root, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid mode "staging"`)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := buildCatalog(testConfig(""), "", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no source directory configured")
	})
}

func TestCatalogCommand(t *testing.T) {
	root := writeTree(t, map[string]string{
		"Security/AppSchema.sql": "CREATE SCHEMA [App]\nGO",
		"Tables/dbo.T.sql":       "CREATE TABLE [dbo].[T] ([Id] INT)\nGO",
	})

	cmd := catalogCmd(catalogParams{Config: testConfig(root)})
	err := cmd.Run(context.Background(), []string{"catalog"})
	require.NoError(t, err)
}

func TestCatalogCommandWithoutConfig(t *testing.T) {
	cmd := catalogCmd(catalogParams{Config: nil})
	err := cmd.Run(context.Background(), []string{"catalog"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlport.yaml not found")
}

func TestValidateCommand(t *testing.T) {
	t.Run("clean tree", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"Tables/dbo.T.sql": "CREATE TABLE [dbo].[T] ([Id] INT)\nGO",
		})

		cmd := validate(validateParams{Config: testConfig(root)})
		require.NoError(t, cmd.Run(context.Background(), []string{"validate"}))
	})

	t.Run("missing secret reported", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"Security/AppRole.sql": "CREATE APPLICATION ROLE [App] WITH PASSWORD = '$(SECRET_APP_ROLE)'\nGO",
		})

		cmd := validate(validateParams{Config: testConfig(root)})
		err := cmd.Run(context.Background(), []string{"validate"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation found issues in 1 of 1 units")
	})
}
