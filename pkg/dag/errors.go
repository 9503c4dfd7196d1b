package dag

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError reports an edge insertion or graph load that would make the
// causal graph cyclic. The rejected mutation is rolled back before the
// error is returned.
type CycleError struct {
	// Nodes are the variables involved in the cycle. A single entry
	// denotes a rejected self-loop.
	Nodes []string
}

func (e *CycleError) Error() string {
	if len(e.Nodes) == 1 {
		return fmt.Sprintf("invalid causal graph: self-loop on %q", e.Nodes[0])
	}
	nodes := make([]string, len(e.Nodes))
	copy(nodes, e.Nodes)
	sort.Strings(nodes)
	return fmt.Sprintf("invalid causal graph: cycle involving %s", strings.Join(nodes, ", "))
}

// UnknownNodeError reports a treatment or outcome name that is not a
// variable in the graph.
type UnknownNodeError struct {
	Name string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("%q is not a node in the causal graph", e.Name)
}
