package integrity_test

import (
	"testing"

	"github.com/sqlport/sqlport/pkg/integrity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyGraph_Order(t *testing.T) {
	tests := []struct {
		name     string
		tables   []string
		deps     [][2]string
		expected []string
		broken   int
	}{
		{
			name:     "no dependencies keeps presentation order",
			tables:   []string{"dbo.A", "dbo.B", "dbo.C"},
			expected: []string{"dbo.A", "dbo.B", "dbo.C"},
		},
		{
			name:     "referenced table loads first",
			tables:   []string{"dbo.Orders", "dbo.Customers"},
			deps:     [][2]string{{"dbo.Orders", "dbo.Customers"}},
			expected: []string{"dbo.Customers", "dbo.Orders"},
		},
		{
			name:   "chain",
			tables: []string{"dbo.C", "dbo.B", "dbo.A"},
			deps: [][2]string{
				{"dbo.C", "dbo.B"},
				{"dbo.B", "dbo.A"},
			},
			expected: []string{"dbo.A", "dbo.B", "dbo.C"},
		},
		{
			name:   "self reference is ignored",
			tables: []string{"dbo.Employees"},
			deps: [][2]string{
				{"dbo.Employees", "dbo.Employees"},
			},
			expected: []string{"dbo.Employees"},
		},
		{
			name:   "reference outside the load set is ignored",
			tables: []string{"dbo.Orders"},
			deps: [][2]string{
				{"dbo.Orders", "dbo.Customers"},
			},
			expected: []string{"dbo.Orders"},
		},
		{
			name:   "two cycle completes with one broken edge",
			tables: []string{"dbo.A", "dbo.B"},
			deps: [][2]string{
				{"dbo.A", "dbo.B"},
				{"dbo.B", "dbo.A"},
			},
			expected: []string{"dbo.B", "dbo.A"},
			broken:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := integrity.NewDependencyGraph(tt.tables)
			for _, d := range tt.deps {
				g.AddDependency(d[0], d[1])
			}

			order, broken := g.Order()
			assert.Equal(t, tt.expected, order)
			assert.Len(t, broken, tt.broken)
		})
	}
}

func TestDependencyGraph_EveryTableAppearsOnce(t *testing.T) {
	tables := []string{"dbo.A", "dbo.B", "dbo.C", "dbo.D"}
	g := integrity.NewDependencyGraph(tables)
	// Dense cyclic mess: ordering must still terminate and cover all
	// tables exactly once.
	g.AddDependency("dbo.A", "dbo.B")
	g.AddDependency("dbo.B", "dbo.C")
	g.AddDependency("dbo.C", "dbo.A")
	g.AddDependency("dbo.D", "dbo.A")
	g.AddDependency("dbo.A", "dbo.D")

	order, broken := g.Order()
	require.Len(t, order, len(tables))
	assert.NotEmpty(t, broken)

	seen := map[string]bool{}
	for _, tbl := range order {
		assert.False(t, seen[tbl], "table %s ordered twice", tbl)
		seen[tbl] = true
	}
}
