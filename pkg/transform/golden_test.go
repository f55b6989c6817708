package transform_test

import (
	"os"
	"strings"
	"testing"

	"github.com/sqlport/sqlport/pkg/transform"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

// TestTransform_Golden runs a representative multi-batch unit through the
// whole pipeline at once and compares the executable output against a
// golden file. Update with `go test ./pkg/transform -update`.
func TestTransform_Golden(t *testing.T) {
	input, err := os.ReadFile("testdata/document_unit.sql")
	require.NoError(t, err)

	tr := transform.New(&transform.Context{
		Database:        "Northwind",
		Variables:       map[string]string{"ENV_NAME": "production"},
		Secrets:         map[string]string{"APP_ROLE": "s3cret!"},
		FileGroups:      transform.FileGroupRemoveToPrimary,
		StripFilestream: true,
		ContainedUsers:  true,
	})

	result := tr.Transform(string(input))
	require.Empty(t, result.MissingSecrets)
	require.Empty(t, result.Unresolved)

	golden.Assert(t, strings.Join(result.Batches, "\nGO\n")+"\n", "document_unit.sql.golden")
}
