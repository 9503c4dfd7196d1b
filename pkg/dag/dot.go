package dag

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// dotGraph adapts a gonum directed graph for DOT encoding and decoding.
// It captures node identifiers from the DOT source and turns self-loops
// into an error instead of a panic from the simple graph.
type dotGraph struct {
	*simple.DirectedGraph
	err error
}

func newDotGraph() *dotGraph {
	return &dotGraph{DirectedGraph: simple.NewDirectedGraph()}
}

func (g *dotGraph) NewNode() graph.Node {
	return &dotNode{Node: g.DirectedGraph.NewNode()}
}

func (g *dotGraph) SetEdge(e graph.Edge) {
	if e.From().ID() == e.To().ID() {
		if g.err == nil {
			g.err = &CycleError{Nodes: []string{dotID(e.From())}}
		}
		return
	}
	g.DirectedGraph.SetEdge(e)
}

// dotNode carries the DOT identifier alongside the gonum node.
type dotNode struct {
	graph.Node
	id string
}

func (n *dotNode) SetDOTID(id string) { n.id = id }
func (n *dotNode) DOTID() string      { return n.id }

func dotID(n graph.Node) string {
	if dn, ok := n.(*dotNode); ok {
		return dn.id
	}
	return fmt.Sprintf("%d", n.ID())
}

// ParseDOT parses a Graphviz digraph description into a causal graph.
// Node identifiers become variable names. It returns a parse error for
// malformed input and a *CycleError when the described graph is not a
// DAG.
func ParseDOT(data []byte) (*CausalGraph, error) {
	dg := newDotGraph()
	if err := dot.Unmarshal(data, dg); err != nil {
		return nil, fmt.Errorf("parsing dot graph: %w", err)
	}
	if dg.err != nil {
		return nil, dg.err
	}

	cg := New()
	nodes := dg.Nodes()
	for nodes.Next() {
		cg.ensureNode(dotID(nodes.Node()))
	}
	edges := dg.Edges()
	for edges.Next() {
		e := edges.Edge()
		cg.setEdge(cg.ids[dotID(e.From())], cg.ids[dotID(e.To())])
	}

	if cycle := cg.findCycle(); cycle != nil {
		return nil, &CycleError{Nodes: cycle}
	}
	return cg, nil
}

// LoadDOT reads and parses a DOT file.
func LoadDOT(path string) (*CausalGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dot file: %w", err)
	}
	cg, err := ParseDOT(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return cg, nil
}

// DOT renders the graph as Graphviz digraph text.
func (cg *CausalGraph) DOT() ([]byte, error) {
	dg := newDotGraph()
	byName := make(map[string]graph.Node, cg.NodeCount())
	for _, name := range cg.Nodes() {
		n := dg.NewNode().(*dotNode)
		n.SetDOTID(name)
		dg.AddNode(n)
		byName[name] = n
	}
	for _, e := range cg.Edges() {
		dg.SetEdge(dg.DirectedGraph.NewEdge(byName[e.From], byName[e.To]))
	}
	return dot.Marshal(dg, "causal_dag", "", "  ")
}
