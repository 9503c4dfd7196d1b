package dag

import (
	"errors"
	"reflect"
	"testing"
)

func buildGraph(t *testing.T, edges [][2]string) *CausalGraph {
	t.Helper()
	g := New()
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%s, %s) failed: %v", e[0], e[1], err)
		}
	}
	return g
}

func TestAddEdgeCreatesNodes(t *testing.T) {
	g := New()
	if err := g.AddEdge("A", "B"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	if !g.HasNode("A") || !g.HasNode("B") {
		t.Error("AddEdge should create missing endpoint nodes")
	}
	if !g.HasEdge("A", "B") {
		t.Error("Edge A->B not found")
	}
	if g.HasEdge("B", "A") {
		t.Error("Reverse edge B->A should not exist")
	}
}

func TestAddEdgeDuplicateIsNoOp(t *testing.T) {
	g := buildGraph(t, [][2]string{{"A", "B"}})
	if err := g.AddEdge("A", "B"); err != nil {
		t.Fatalf("Duplicate AddEdge failed: %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("Expected 1 edge, got %d", g.EdgeCount())
	}
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	g := New()
	err := g.AddEdge("A", "A")

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected CycleError, got %v", err)
	}
	if g.NodeCount() != 0 {
		t.Error("Rejected self-loop should not leave nodes behind")
	}
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	g := buildGraph(t, [][2]string{{"A", "B"}, {"B", "C"}})

	nodesBefore := g.Nodes()
	edgesBefore := g.Edges()

	err := g.AddEdge("C", "A")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected CycleError, got %v", err)
	}

	if !reflect.DeepEqual(g.Nodes(), nodesBefore) {
		t.Errorf("Nodes changed after rejected edge: %v != %v", g.Nodes(), nodesBefore)
	}
	if !reflect.DeepEqual(g.Edges(), edgesBefore) {
		t.Errorf("Edges changed after rejected edge: %v != %v", g.Edges(), edgesBefore)
	}
	if !g.IsAcyclic() {
		t.Error("Graph should remain acyclic after rejected edge")
	}
}

func TestAddEdgeRollsBackCreatedNodes(t *testing.T) {
	g := buildGraph(t, [][2]string{{"A", "B"}})

	// B->A closes a cycle with no new nodes involved.
	if err := g.AddEdge("B", "A"); err == nil {
		t.Fatal("Expected cycle rejection")
	}
	if g.NodeCount() != 2 {
		t.Errorf("Expected 2 nodes after rejection, got %d", g.NodeCount())
	}
}

func TestIsAcyclic(t *testing.T) {
	g := buildGraph(t, [][2]string{{"A", "B"}, {"B", "C"}, {"A", "C"}})
	if !g.IsAcyclic() {
		t.Error("DAG reported as cyclic")
	}
}

func TestDescendantsAndAncestors(t *testing.T) {
	g := buildGraph(t, [][2]string{
		{"A", "B"}, {"B", "C"}, {"B", "D"}, {"E", "D"},
	})

	desc, err := g.Descendants("A")
	if err != nil {
		t.Fatalf("Descendants failed: %v", err)
	}
	want := map[string]bool{"B": true, "C": true, "D": true}
	if !reflect.DeepEqual(desc, want) {
		t.Errorf("Descendants(A) = %v, want %v", desc, want)
	}

	anc, err := g.Ancestors("D")
	if err != nil {
		t.Fatalf("Ancestors failed: %v", err)
	}
	want = map[string]bool{"A": true, "B": true, "E": true}
	if !reflect.DeepEqual(anc, want) {
		t.Errorf("Ancestors(D) = %v, want %v", anc, want)
	}

	// A node excludes itself from both queries.
	if desc["A"] {
		t.Error("Descendants(A) should not contain A")
	}
}

func TestDescendantsUnknownNode(t *testing.T) {
	g := buildGraph(t, [][2]string{{"A", "B"}})

	_, err := g.Descendants("Z")
	var unknownErr *UnknownNodeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Expected UnknownNodeError, got %v", err)
	}
	if unknownErr.Name != "Z" {
		t.Errorf("Expected offending name Z, got %q", unknownErr.Name)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	g := buildGraph(t, [][2]string{{"A", "B"}, {"B", "C"}})
	dup := g.Copy()

	if !reflect.DeepEqual(dup.Edges(), g.Edges()) {
		t.Fatalf("Copy edges differ: %v != %v", dup.Edges(), g.Edges())
	}

	dup.RemoveEdges([]Edge{{From: "A", To: "B"}})
	if err := dup.AddEdge("C", "D"); err != nil {
		t.Fatalf("AddEdge on copy failed: %v", err)
	}

	if !g.HasEdge("A", "B") {
		t.Error("Mutating the copy removed an edge from the original")
	}
	if g.HasNode("D") {
		t.Error("Mutating the copy added a node to the original")
	}
}

func TestRemoveEdges(t *testing.T) {
	g := buildGraph(t, [][2]string{{"A", "B"}, {"B", "C"}, {"A", "C"}})

	g.RemoveEdges([]Edge{
		{From: "A", To: "B"},
		{From: "X", To: "Y"}, // unknown edges are ignored
	})

	if g.HasEdge("A", "B") {
		t.Error("Edge A->B should be removed")
	}
	if g.EdgeCount() != 2 {
		t.Errorf("Expected 2 edges, got %d", g.EdgeCount())
	}
	if g.NodeCount() != 3 {
		t.Errorf("Node set should be untouched, got %d nodes", g.NodeCount())
	}
}

func TestParentsAndChildren(t *testing.T) {
	g := buildGraph(t, [][2]string{{"A", "C"}, {"B", "C"}, {"C", "D"}})

	parents, err := g.Parents("C")
	if err != nil {
		t.Fatalf("Parents failed: %v", err)
	}
	if !reflect.DeepEqual(parents, []string{"A", "B"}) {
		t.Errorf("Parents(C) = %v, want [A B]", parents)
	}

	children, err := g.Children("C")
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if !reflect.DeepEqual(children, []string{"D"}) {
		t.Errorf("Children(C) = %v, want [D]", children)
	}
}

func TestString(t *testing.T) {
	g := buildGraph(t, [][2]string{{"B", "C"}, {"A", "B"}})

	want := "Nodes: [A, B, C]\nEdges: [A -> B, B -> C]"
	if got := g.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
