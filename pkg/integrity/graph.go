// Package integrity keeps foreign-key integrity intact while bulk data is
// loaded: it disables the target schema's foreign keys, loads data units in
// dependency order, and re-validates every constraint afterwards.
package integrity

type (
	// DependencyGraph orders data loads: nodes are the schema.table
	// identifiers being loaded, and an edge records that a table's foreign
	// keys reference another loaded table, so the referenced table must
	// load first. Built once per data-import phase and discarded after the
	// ordering is produced. Cycles are tolerated; the graph is not required
	// to be acyclic.
	DependencyGraph struct {
		nodes []string
		deps  map[string][]string
		index map[string]bool
	}

	// BrokenEdge is a dependency dropped to break a cycle during ordering.
	// Correctness in the cyclic case is delegated to the disable/enable
	// bracketing, but the dropped edge is surfaced so an operator can see
	// which ordering guarantee was given up.
	BrokenEdge struct {
		From string
		To   string
	}
)

// NewDependencyGraph creates a graph over the given tables. Only edges
// between listed tables matter; references to tables not being loaded are
// irrelevant to load order.
func NewDependencyGraph(tables []string) *DependencyGraph {
	g := &DependencyGraph{
		deps:  make(map[string][]string),
		index: make(map[string]bool),
	}
	for _, t := range tables {
		if g.index[t] {
			continue
		}
		g.index[t] = true
		g.nodes = append(g.nodes, t)
	}
	return g
}

// AddDependency records that table depends on (must load after) ref.
// Edges touching tables outside the graph and self-references are ignored.
func (g *DependencyGraph) AddDependency(table, ref string) {
	if table == ref || !g.index[table] || !g.index[ref] {
		return
	}
	g.deps[table] = append(g.deps[table], ref)
}

// Order returns the tables in load order (referenced tables first) via a
// depth-first topological sort. A cycle does not fail the sort: the edge
// closing the cycle is dropped, reported in the second return value, and
// the walk continues. Every table appears exactly once.
func (g *DependencyGraph) Order() ([]string, []BrokenEdge) {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	var broken []BrokenEdge

	var visit func(node string)
	visit = func(node string) {
		state[node] = visiting
		for _, dep := range g.deps[node] {
			switch state[dep] {
			case visiting:
				broken = append(broken, BrokenEdge{From: dep, To: node})
			case unvisited:
				visit(dep)
			}
		}
		state[node] = done
		order = append(order, node)
	}

	for _, node := range g.nodes {
		if state[node] == unvisited {
			visit(node)
		}
	}

	return order, broken
}
