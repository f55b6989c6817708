package mssql_test

import (
	"testing"
	"time"

	"github.com/sqlport/sqlport/pkg/mssql"
	"github.com/stretchr/testify/assert"
)

func TestNewClientDefaults(t *testing.T) {
	c := mssql.NewClient(mssql.Config{URL: "sqlserver://localhost:1433?database=Target"})
	assert.NotNil(t, c)

	// A never-connected client disconnects cleanly.
	assert.NoError(t, c.Disconnect())
}

func TestNewClientKeepsConfiguredTimeouts(t *testing.T) {
	c := mssql.NewClient(mssql.Config{
		URL:            "sqlserver://localhost:1433",
		ConnectTimeout: 3 * time.Second,
		CommandTimeout: 30 * time.Second,
	})
	assert.NotNil(t, c)
	assert.NoError(t, c.Disconnect())
}
