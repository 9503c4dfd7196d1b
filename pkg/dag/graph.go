package dag

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
)

// Edge is a directed causal edge: From causes To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CausalGraph is a directed acyclic graph in which nodes are random
// variables and an edge u->v states that u causes v. It wraps a gonum
// directed graph and keeps a bidirectional mapping between variable
// names and graph IDs.
//
// The graph provides no internal locking: concurrent reads of a graph
// that is no longer mutated are safe, concurrent mutation must be
// serialized by the caller.
type CausalGraph struct {
	g     *simple.DirectedGraph
	ids   map[string]int64 // variable name -> graph ID
	names map[int64]string // graph ID -> variable name
	next  int64
}

// New creates an empty causal graph.
func New() *CausalGraph {
	return &CausalGraph{
		g:     simple.NewDirectedGraph(),
		ids:   make(map[string]int64),
		names: make(map[int64]string),
	}
}

// AddNode adds a variable to the graph. Adding an existing variable is a
// no-op.
func (cg *CausalGraph) AddNode(name string) error {
	if name == "" {
		return fmt.Errorf("variable name must not be empty")
	}
	cg.ensureNode(name)
	return nil
}

// AddEdge inserts the directed edge u->v, creating missing endpoint
// variables. It returns a *CycleError if the edge would make the graph
// cyclic; on failure the graph is left exactly as it was, and endpoint
// nodes created for the rejected edge are removed again. Inserting an
// existing edge is a no-op.
func (cg *CausalGraph) AddEdge(u, v string) error {
	if u == "" || v == "" {
		return fmt.Errorf("edge endpoints must not be empty")
	}
	if u == v {
		return &CycleError{Nodes: []string{u}}
	}

	_, hadU := cg.ids[u]
	_, hadV := cg.ids[v]
	uid := cg.ensureNode(u)
	vid := cg.ensureNode(v)

	if cg.g.HasEdgeFromTo(uid, vid) {
		return nil
	}
	cg.g.SetEdge(cg.g.NewEdge(cg.g.Node(uid), cg.g.Node(vid)))

	// A cycle can only close if both endpoints already existed, but the
	// full check keeps the invariant obvious.
	if cycle := cg.findCycle(); cycle != nil {
		cg.g.RemoveEdge(uid, vid)
		if !hadV {
			cg.removeNode(v)
		}
		if !hadU {
			cg.removeNode(u)
		}
		return &CycleError{Nodes: cycle}
	}
	return nil
}

// HasNode reports whether the variable exists in the graph.
func (cg *CausalGraph) HasNode(name string) bool {
	_, ok := cg.ids[name]
	return ok
}

// HasEdge reports whether the directed edge u->v exists.
func (cg *CausalGraph) HasEdge(u, v string) bool {
	uid, okU := cg.ids[u]
	vid, okV := cg.ids[v]
	return okU && okV && cg.g.HasEdgeFromTo(uid, vid)
}

// RemoveEdges removes the given edges. Edges that do not exist are
// ignored. Removal cannot introduce a cycle, so no acyclicity check is
// performed.
func (cg *CausalGraph) RemoveEdges(edges []Edge) {
	for _, e := range edges {
		uid, okU := cg.ids[e.From]
		vid, okV := cg.ids[e.To]
		if okU && okV && cg.g.HasEdgeFromTo(uid, vid) {
			cg.g.RemoveEdge(uid, vid)
		}
	}
}

// Nodes returns all variable names in sorted order.
func (cg *CausalGraph) Nodes() []string {
	nodes := make([]string, 0, len(cg.ids))
	for name := range cg.ids {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes
}

// Edges returns all edges sorted by source, then target.
func (cg *CausalGraph) Edges() []Edge {
	var edges []Edge
	iter := cg.g.Edges()
	for iter.Next() {
		e := iter.Edge()
		edges = append(edges, Edge{
			From: cg.names[e.From().ID()],
			To:   cg.names[e.To().ID()],
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// NodeCount returns the number of variables.
func (cg *CausalGraph) NodeCount() int {
	return len(cg.ids)
}

// EdgeCount returns the number of edges.
func (cg *CausalGraph) EdgeCount() int {
	count := 0
	iter := cg.g.Edges()
	for iter.Next() {
		count++
	}
	return count
}

// Parents returns the direct causes of the variable.
func (cg *CausalGraph) Parents(name string) ([]string, error) {
	id, ok := cg.ids[name]
	if !ok {
		return nil, &UnknownNodeError{Name: name}
	}
	var parents []string
	iter := cg.g.To(id)
	for iter.Next() {
		parents = append(parents, cg.names[iter.Node().ID()])
	}
	sort.Strings(parents)
	return parents, nil
}

// Children returns the direct effects of the variable.
func (cg *CausalGraph) Children(name string) ([]string, error) {
	id, ok := cg.ids[name]
	if !ok {
		return nil, &UnknownNodeError{Name: name}
	}
	var children []string
	iter := cg.g.From(id)
	for iter.Next() {
		children = append(children, cg.names[iter.Node().ID()])
	}
	sort.Strings(children)
	return children, nil
}

// Descendants returns every variable reachable from name via directed
// edges, excluding name itself.
func (cg *CausalGraph) Descendants(name string) (map[string]bool, error) {
	return cg.reach(name, false)
}

// Ancestors returns every variable from which name is reachable via
// directed edges, excluding name itself.
func (cg *CausalGraph) Ancestors(name string) (map[string]bool, error) {
	return cg.reach(name, true)
}

// reach walks the graph from name following out-edges, or in-edges when
// reversed is set.
func (cg *CausalGraph) reach(name string, reversed bool) (map[string]bool, error) {
	start, ok := cg.ids[name]
	if !ok {
		return nil, &UnknownNodeError{Name: name}
	}

	reached := make(map[string]bool)
	visited := map[int64]bool{start: true}
	queue := []int64{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		var iter = cg.g.From(id)
		if reversed {
			iter = cg.g.To(id)
		}
		for iter.Next() {
			next := iter.Node().ID()
			if visited[next] {
				continue
			}
			visited[next] = true
			reached[cg.names[next]] = true
			queue = append(queue, next)
		}
	}
	return reached, nil
}

// Copy returns a fully independent deep copy of the graph. Mutating the
// copy never affects the original.
func (cg *CausalGraph) Copy() *CausalGraph {
	dup := New()
	for name := range cg.ids {
		dup.ensureNode(name)
	}
	iter := cg.g.Edges()
	for iter.Next() {
		e := iter.Edge()
		dup.setEdge(dup.ids[cg.names[e.From().ID()]], dup.ids[cg.names[e.To().ID()]])
	}
	return dup
}

// IsAcyclic reports whether the graph contains no directed cycle.
func (cg *CausalGraph) IsAcyclic() bool {
	return cg.findCycle() == nil
}

// String renders the graph for diagnostics as a node list and an edge
// list. The format is for logging only, not a machine-readable contract.
func (cg *CausalGraph) String() string {
	var b strings.Builder
	b.WriteString("Nodes: [")
	b.WriteString(strings.Join(cg.Nodes(), ", "))
	b.WriteString("]\nEdges: [")
	edges := cg.Edges()
	for i, e := range edges {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s -> %s", e.From, e.To)
	}
	b.WriteString("]")
	return b.String()
}

// ensureNode returns the graph ID for name, allocating it if needed.
func (cg *CausalGraph) ensureNode(name string) int64 {
	if id, ok := cg.ids[name]; ok {
		return id
	}
	id := cg.next
	cg.next++
	cg.ids[name] = id
	cg.names[id] = name
	cg.g.AddNode(simple.Node(id))
	return id
}

// setEdge inserts an edge without the acyclicity check. Callers are
// responsible for keeping the graph acyclic.
func (cg *CausalGraph) setEdge(uid, vid int64) {
	if uid == vid || cg.g.HasEdgeFromTo(uid, vid) {
		return
	}
	cg.g.SetEdge(cg.g.NewEdge(cg.g.Node(uid), cg.g.Node(vid)))
}

func (cg *CausalGraph) removeNode(name string) {
	id, ok := cg.ids[name]
	if !ok {
		return
	}
	cg.g.RemoveNode(id)
	delete(cg.ids, name)
	delete(cg.names, id)
}
