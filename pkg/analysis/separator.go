package analysis

import (
	"sort"

	"github.com/mhutton/causal-analyzer/pkg/dag"
)

// MinimalAdjustmentSet returns a minimal set of variables that blocks
// every backdoor path between the treatments and outcomes. The result is
// sorted, disjoint from both input sets and minimal in the inclusion
// sense: removing any single member reopens a path in the proper
// backdoor graph.
//
// It returns a *NoAdjustmentSetError when the treatments and outcomes
// cannot be separated by any variable set, and when the search yields an
// empty set while a direct treatment->outcome edge exists, since no
// covariate adjustment can neutralize a direct causal edge.
func MinimalAdjustmentSet(g *dag.CausalGraph, treatments, outcomes []string) ([]string, error) {
	pbg, err := ProperBackdoorGraph(g, treatments, outcomes)
	if err != nil {
		return nil, err
	}

	m, err := moralize(pbg, append(append([]string{}, treatments...), outcomes...))
	if err != nil {
		return nil, err
	}

	sep, err := m.minimalSeparator(treatments, outcomes)
	if err != nil {
		return nil, err
	}

	if len(sep) == 0 && hasDirectEdge(g, treatments, outcomes) {
		return nil, &NoAdjustmentSetError{
			Treatments: treatments,
			Outcomes:   outcomes,
			Reason:     "a direct causal edge between a treatment and an outcome cannot be blocked by covariate adjustment",
		}
	}

	result := make([]string, 0, len(sep))
	for n := range sep {
		result = append(result, n)
	}
	sort.Strings(result)
	return result, nil
}

// hasDirectEdge reports whether any treatment has a direct edge to an
// outcome in g.
func hasDirectEdge(g *dag.CausalGraph, treatments, outcomes []string) bool {
	for _, t := range treatments {
		for _, o := range outcomes {
			if g.HasEdge(t, o) {
				return true
			}
		}
	}
	return false
}

// moralGraph is the undirected moralization of the reflexive ancestral
// subgraph of a DAG: directions are dropped and variables sharing a
// child are connected. d-separation of two variable sets in the DAG is
// equivalent to vertex separation in this graph.
type moralGraph struct {
	adj map[string]map[string]bool
}

// moralize builds the moral graph over the ancestral closure of roots.
func moralize(g *dag.CausalGraph, roots []string) (*moralGraph, error) {
	keep := make(map[string]bool)
	for _, r := range roots {
		keep[r] = true
		ancestors, err := g.Ancestors(r)
		if err != nil {
			return nil, err
		}
		for n := range ancestors {
			keep[n] = true
		}
	}

	m := &moralGraph{adj: make(map[string]map[string]bool, len(keep))}
	for n := range keep {
		m.adj[n] = make(map[string]bool)
	}
	for n := range keep {
		// Parents of a kept node are ancestors of a root, so they are
		// always kept themselves.
		parents, err := g.Parents(n)
		if err != nil {
			return nil, err
		}
		for i, p := range parents {
			m.connect(p, n)
			for _, q := range parents[i+1:] {
				m.connect(p, q)
			}
		}
	}
	return m, nil
}

func (m *moralGraph) connect(a, b string) {
	if a == b {
		return
	}
	m.adj[a][b] = true
	m.adj[b][a] = true
}

// minimalSeparator finds a minimal vertex set disjoint from sources and
// sinks whose removal disconnects them, using the Tian-Paz reachability
// refinement: start from all candidate vertices, restrict to those
// reachable from the sources, then to those reachable from the sinks.
func (m *moralGraph) minimalSeparator(sources, sinks []string) (map[string]bool, error) {
	sourceSet := toSet(sources)
	sinkSet := toSet(sinks)

	candidates := make(map[string]bool)
	for n := range m.adj {
		if !sourceSet[n] && !sinkSet[n] {
			candidates[n] = true
		}
	}

	// With every candidate blocked, reaching a sink means a source
	// component touches a sink directly. No vertex set can separate.
	fromSources := m.reach(sources, candidates)
	for n := range fromSources {
		if sinkSet[n] {
			return nil, &NoAdjustmentSetError{
				Treatments: sources,
				Outcomes:   sinks,
				Reason:     "treatments and outcomes are directly connected in the proper backdoor graph and cannot be separated",
			}
		}
	}

	z := make(map[string]bool)
	for n := range candidates {
		if fromSources[n] {
			z[n] = true
		}
	}

	fromSinks := m.reach(sinks, z)
	separator := make(map[string]bool)
	for n := range z {
		if fromSinks[n] {
			separator[n] = true
		}
	}
	return separator, nil
}

// reach returns the vertices reachable from the start set. Blocked
// vertices are reported as reached but not expanded.
func (m *moralGraph) reach(start []string, blocked map[string]bool) map[string]bool {
	reached := make(map[string]bool)
	var queue []string
	for _, s := range start {
		if m.adj[s] == nil || reached[s] {
			continue
		}
		reached[s] = true
		queue = append(queue, s)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for nb := range m.adj[n] {
			if reached[nb] {
				continue
			}
			reached[nb] = true
			if !blocked[nb] {
				queue = append(queue, nb)
			}
		}
	}
	return reached
}
