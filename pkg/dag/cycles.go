package dag

// findCycle returns the members of one directed cycle, or nil if the
// graph is acyclic. It runs Tarjan's strongly connected components
// algorithm over the wrapped graph; any component with more than one
// member is a cycle. Self-loops cannot occur because AddEdge and the DOT
// decoder reject them.
func (cg *CausalGraph) findCycle() []string {
	t := &tarjan{
		cg:      cg,
		onStack: make(map[int64]bool),
		indices: make(map[int64]int),
		lowLink: make(map[int64]int),
	}
	for id := range cg.names {
		if _, visited := t.indices[id]; !visited {
			t.strongConnect(id)
		}
		if t.cycle != nil {
			return t.cycle
		}
	}
	return nil
}

// tarjan holds the state of one SCC search.
type tarjan struct {
	cg      *CausalGraph
	index   int
	stack   []int64
	onStack map[int64]bool
	indices map[int64]int
	lowLink map[int64]int
	cycle   []string
}

func (t *tarjan) strongConnect(id int64) {
	t.indices[id] = t.index
	t.lowLink[id] = t.index
	t.index++

	t.stack = append(t.stack, id)
	t.onStack[id] = true

	succ := t.cg.g.From(id)
	for succ.Next() {
		next := succ.Node().ID()
		if _, visited := t.indices[next]; !visited {
			t.strongConnect(next)
			t.lowLink[id] = min(t.lowLink[id], t.lowLink[next])
		} else if t.onStack[next] {
			t.lowLink[id] = min(t.lowLink[id], t.indices[next])
		}
	}

	// Root of a component: pop its members off the stack.
	if t.lowLink[id] == t.indices[id] {
		var scc []string
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, t.cg.names[w])
			if w == id {
				break
			}
		}
		if len(scc) > 1 && t.cycle == nil {
			t.cycle = scc
		}
	}
}
