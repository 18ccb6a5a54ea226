package gen

// Graph is the entity forest built from one or more bundles.
type Graph struct {
	// Source names the bundle the graph was built from. Merged graphs
	// have no source.
	Source string
	// Roots are the top-level entities in creation order.
	Roots []*Entity
	// Nodes are all entities, roots and nested, in creation order.
	Nodes []*Entity
	// Diagnostics recorded while building, in encounter order.
	Diagnostics []*Diagnostic

	index map[string]*Entity
}

func newGraph(source string) *Graph {
	return &Graph{Source: source, index: make(map[string]*Entity)}
}

// Lookup returns the entity registered at the given structural path.
func (g *Graph) Lookup(path string) (*Entity, bool) {
	e, ok := g.index[path]
	return e, ok
}

// Warnings returns the diagnostics of warning severity.
func (g *Graph) Warnings() []*Diagnostic {
	var ws []*Diagnostic
	for _, d := range g.Diagnostics {
		if d.Severity == SeverityWarning {
			ws = append(ws, d)
		}
	}
	return ws
}

// Walk calls fn for every entity, roots first and each followed by its
// nested entities. Nested entities whose parent is unknown are visited
// last, in creation order.
func (g *Graph) Walk(fn func(*Entity) error) error {
	seen := make(map[*Entity]struct{}, len(g.Nodes))
	visit := func(e *Entity) error {
		seen[e] = struct{}{}
		return fn(e)
	}
	for _, r := range g.Roots {
		if err := r.Walk(visit); err != nil {
			return err
		}
	}
	for _, n := range g.Nodes {
		if _, ok := seen[n]; ok {
			continue
		}
		if err := n.Walk(visit); err != nil {
			return err
		}
	}
	return nil
}

// Merge concatenates graphs in order. When several graphs register the
// same path, the merged index keeps the first one.
func Merge(graphs ...*Graph) *Graph {
	m := newGraph("")
	for _, g := range graphs {
		if g == nil {
			continue
		}
		m.Roots = append(m.Roots, g.Roots...)
		m.Nodes = append(m.Nodes, g.Nodes...)
		m.Diagnostics = append(m.Diagnostics, g.Diagnostics...)
		for _, n := range g.Nodes {
			if _, ok := g.index[n.Path]; !ok {
				continue
			}
			if _, ok := m.index[n.Path]; !ok {
				m.index[n.Path] = g.index[n.Path]
			}
		}
	}
	return m
}
