package catalog_test

import (
	"testing"
	"testing/fstest"

	"github.com/sqlport/sqlport/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceTree() fstest.MapFS {
	return fstest.MapFS{
		"Security/app_user.sql":            sqlFile("CREATE USER [app_user] WITHOUT LOGIN;"),
		"Security/db_reader.sql":           sqlFile("CREATE ROLE [db_reader];"),
		"Security/svc.sql":                 sqlFile("CREATE USER [CORP\\svc] FOR LOGIN [CORP\\svc];"),
		"FileGroups/FG_DATA.sql":           sqlFile("ALTER DATABASE $(DatabaseName) ADD FILEGROUP [FG_DATA];"),
		"DatabaseConfiguration/scoped.sql": sqlFile("ALTER DATABASE SCOPED CONFIGURATION SET MAXDOP = 4;"),
		"Tables/dbo.Customers.sql":         sqlFile("CREATE TABLE [dbo].[Customers] ([Id] INT PRIMARY KEY);"),
		"Tables/dbo.Orders.sql":            sqlFile("CREATE TABLE [dbo].[Orders] ([Id] INT PRIMARY KEY);"),
		"Tables/audit.Log.sql":             sqlFile("CREATE TABLE [audit].[Log] ([Id] INT);"),
		"Views/dbo.ActiveOrders.sql":       sqlFile("CREATE VIEW [dbo].[ActiveOrders] AS SELECT * FROM [dbo].[Orders];"),
		"StoredProcedures/dbo.GetAll.sql":  sqlFile("CREATE PROCEDURE [dbo].[GetAll] AS SELECT 1;"),
		"SecurityPolicies/dbo.RLS.sql":     sqlFile("CREATE SECURITY POLICY [dbo].[RLS];"),
		"Data/dbo.Customers.sql":           sqlFile("INSERT INTO [dbo].[Customers] VALUES (1);"),
	}
}

func sqlFile(content string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(content)}
}

func TestBuild_DevModeGating(t *testing.T) {
	b := &catalog.Builder{Mode: catalog.ModeDev}

	cat, err := b.Build(sourceTree())
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"FileGroups", "DatabaseConfiguration", "ExternalData", "SecurityPolicies"},
		cat.SkippedFolders,
	)

	for _, u := range cat.Units {
		assert.NotContains(t, cat.SkippedFolders, u.Folder,
			"unit %s came from a folder absent from the included set", u.Path)
	}
}

func TestBuild_ProdModeIncludesGatedFolders(t *testing.T) {
	b := &catalog.Builder{Mode: catalog.ModeProd}

	cat, err := b.Build(sourceTree())
	require.NoError(t, err)

	assert.Empty(t, cat.SkippedFolders)

	folders := make(map[string]bool)
	for _, u := range cat.Units {
		folders[u.Folder] = true
	}
	assert.True(t, folders["FileGroups"])
	assert.True(t, folders["DatabaseConfiguration"])
	assert.True(t, folders["SecurityPolicies"])
}

func TestBuild_LexicalOrderWithinFolder(t *testing.T) {
	b := &catalog.Builder{Mode: catalog.ModeDev}

	cat, err := b.Build(sourceTree())
	require.NoError(t, err)

	tables := cat.ByCategory(catalog.CategorySchema)
	require.Len(t, tables, 3)
	assert.Equal(t, "Tables/audit.Log.sql", tables[0].Path)
	assert.Equal(t, "Tables/dbo.Customers.sql", tables[1].Path)
	assert.Equal(t, "Tables/dbo.Orders.sql", tables[2].Path)
}

func TestBuild_SchemaExclusion(t *testing.T) {
	b := &catalog.Builder{
		Mode:   catalog.ModeDev,
		Filter: catalog.Filter{ExcludeSchemas: []string{"audit"}},
	}

	cat, err := b.Build(sourceTree())
	require.NoError(t, err)

	for _, u := range cat.Units {
		assert.NotEqual(t, "Tables/audit.Log.sql", u.Path)
	}
}

func TestBuild_SchemaExclusionSparesSecurityPrincipals(t *testing.T) {
	// A user file named with a dot-segment matching an excluded schema must
	// survive: schema exclusion only applies to schema-bound folders.
	fsys := sourceTree()
	fsys["Security/audit.reporter.sql"] = sqlFile("CREATE USER [audit.reporter] WITHOUT LOGIN;")

	b := &catalog.Builder{
		Mode:   catalog.ModeDev,
		Filter: catalog.Filter{ExcludeSchemas: []string{"audit"}},
	}

	cat, err := b.Build(fsys)
	require.NoError(t, err)

	var found bool
	for _, u := range cat.Units {
		if u.Path == "Security/audit.reporter.sql" {
			found = true
		}
	}
	assert.True(t, found, "security principal was filtered by schema name")
}

func TestBuild_UserClassificationByContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected catalog.ObjectType
	}{
		{
			name:     "windows user",
			content:  "CREATE USER [CORP\\svc] FOR LOGIN [CORP\\svc];",
			expected: catalog.TypeWindowsUser,
		},
		{
			name:     "sql user with login",
			content:  "CREATE USER [app] FOR LOGIN [app];",
			expected: catalog.TypeSQLUser,
		},
		{
			name:     "contained sql user",
			content:  "CREATE USER [app] WITHOUT LOGIN;",
			expected: catalog.TypeSQLUser,
		},
		{
			name:     "external provider user",
			content:  "CREATE USER [svc@contoso.com] FROM EXTERNAL PROVIDER;",
			expected: catalog.TypeExternalUser,
		},
		{
			name:     "certificate mapped user",
			content:  "CREATE USER [signing] FOR CERTIFICATE [SigningCert];",
			expected: catalog.TypeCertificateUser,
		},
		{
			name:     "role",
			content:  "CREATE ROLE [db_reader];",
			expected: catalog.TypeRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{
				"Security/principal.sql": sqlFile(tt.content),
				"Tables/dbo.T.sql":       sqlFile("CREATE TABLE [dbo].[T] ([Id] INT);"),
			}

			b := &catalog.Builder{Mode: catalog.ModeDev}
			cat, err := b.Build(fsys)
			require.NoError(t, err)

			units := cat.ByCategory(catalog.CategorySecurity)
			require.Len(t, units, 1)
			assert.Equal(t, tt.expected, units[0].Type)
		})
	}
}

func TestBuild_ExcludeWindowsUsers(t *testing.T) {
	b := &catalog.Builder{
		Mode:   catalog.ModeDev,
		Filter: catalog.Filter{ExcludeTypes: []catalog.ObjectType{catalog.TypeWindowsUser}},
	}

	cat, err := b.Build(sourceTree())
	require.NoError(t, err)

	for _, u := range cat.ByCategory(catalog.CategorySecurity) {
		assert.NotEqual(t, catalog.TypeWindowsUser, u.Type)
	}
	// The SQL user and role remain.
	assert.Len(t, cat.ByCategory(catalog.CategorySecurity), 2)
}

func TestBuild_IncludeFilterPullsInSecurity(t *testing.T) {
	b := &catalog.Builder{
		Mode:   catalog.ModeDev,
		Filter: catalog.Filter{IncludeTypes: []catalog.ObjectType{catalog.TypeSQLUser}},
	}

	cat, err := b.Build(sourceTree())
	require.NoError(t, err)

	// Requesting a security sub-type keeps the whole security class,
	// including roles, and nothing else.
	assert.Len(t, cat.Units, 3)
	for _, u := range cat.Units {
		assert.Equal(t, catalog.CategorySecurity, u.Category)
	}
}

func TestBuild_IncludeFilterOverridesModeGating(t *testing.T) {
	b := &catalog.Builder{
		Mode:   catalog.ModeDev,
		Filter: catalog.Filter{IncludeTypes: []catalog.ObjectType{catalog.TypeFileGroup}},
	}

	cat, err := b.Build(sourceTree())
	require.NoError(t, err)

	require.Len(t, cat.Units, 1)
	assert.Equal(t, "FileGroups", cat.Units[0].Folder)
	assert.NotContains(t, cat.SkippedFolders, "FileGroups")
}

func TestBuild_DataGatedByFlag(t *testing.T) {
	withData := &catalog.Builder{Mode: catalog.ModeDev, IncludeData: true}
	cat, err := withData.Build(sourceTree())
	require.NoError(t, err)
	assert.Len(t, cat.ByCategory(catalog.CategoryData), 1)
	assert.Equal(t, []string{"dbo.Customers"}, cat.DataTables())

	withoutData := &catalog.Builder{Mode: catalog.ModeDev}
	cat, err = withoutData.Build(sourceTree())
	require.NoError(t, err)
	assert.Empty(t, cat.ByCategory(catalog.CategoryData))
}

func TestBuild_EmptyCatalogIsError(t *testing.T) {
	b := &catalog.Builder{Mode: catalog.ModeDev}

	_, err := b.Build(fstest.MapFS{})
	require.ErrorIs(t, err, catalog.ErrEmptyCatalog)
}

func TestUnit_Text(t *testing.T) {
	fsys := fstest.MapFS{
		"Tables/dbo.T.sql": sqlFile("CREATE TABLE [dbo].[T] ([Id] INT);"),
	}

	b := &catalog.Builder{Mode: catalog.ModeDev}
	cat, err := b.Build(fsys)
	require.NoError(t, err)

	require.Len(t, cat.Units, 1)
	text, err := cat.Units[0].Text()
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE [dbo].[T] ([Id] INT);", text)
	assert.Equal(t, "dbo.T", cat.Units[0].Name())
	assert.Equal(t, "dbo", cat.Units[0].SchemaName())
}
