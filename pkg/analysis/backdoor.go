// Package analysis computes backdoor-adjustment structures over a causal
// DAG: backdoor graphs, proper causal pathways, proper backdoor graphs
// and minimal adjustment sets. All operations are pure queries; derived
// graphs are independent copies and inputs are never mutated.
package analysis

import (
	"github.com/mhutton/causal-analyzer/pkg/dag"
)

// BackdoorGraph returns a copy of g with every edge leaving a treatment
// removed. The remaining paths into the treatments are the backdoor
// (potentially confounding) paths.
func BackdoorGraph(g *dag.CausalGraph, treatments []string) (*dag.CausalGraph, error) {
	if len(treatments) == 0 {
		return nil, &NoAdjustmentSetError{Reason: "at least one treatment is required"}
	}
	for _, t := range treatments {
		if !g.HasNode(t) {
			return nil, &dag.UnknownNodeError{Name: t}
		}
	}

	bg := g.Copy()
	bg.RemoveEdges(outgoingEdges(bg, treatments))
	return bg, nil
}

// ProperCausalPathway returns the variables lying on a proper causal
// path from a treatment to an outcome: a directed path that starts at a
// treatment, reaches an outcome and does not revisit a treatment. The
// result is the intersection of the treatments' descendants (minus the
// treatments) with the outcomes' ancestors in the backdoor graph. An
// empty result is a valid answer, not an error.
func ProperCausalPathway(g *dag.CausalGraph, treatments, outcomes []string) (map[string]bool, error) {
	if err := validateVariables(g, treatments, outcomes); err != nil {
		return nil, err
	}

	treated := toSet(treatments)
	descendants := make(map[string]bool)
	for _, t := range treatments {
		reached, err := g.Descendants(t)
		if err != nil {
			return nil, err
		}
		for n := range reached {
			if !treated[n] {
				descendants[n] = true
			}
		}
	}

	bg, err := BackdoorGraph(g, treatments)
	if err != nil {
		return nil, err
	}
	ancestors := make(map[string]bool)
	for _, o := range outcomes {
		reached, err := bg.Ancestors(o)
		if err != nil {
			return nil, err
		}
		for n := range reached {
			ancestors[n] = true
		}
	}

	pathway := make(map[string]bool)
	for n := range descendants {
		if ancestors[n] {
			pathway[n] = true
		}
	}
	return pathway, nil
}

// ProperBackdoorGraph returns a copy of g with the first edge of every
// proper causal path from a treatment to an outcome removed. Only
// backdoor paths between treatments and outcomes survive in the result.
// The original graph is untouched.
func ProperBackdoorGraph(g *dag.CausalGraph, treatments, outcomes []string) (*dag.CausalGraph, error) {
	if err := validateVariables(g, treatments, outcomes); err != nil {
		return nil, err
	}

	pbg := g.Copy()
	pathway, err := ProperCausalPathway(pbg, treatments, outcomes)
	if err != nil {
		return nil, err
	}

	// A first edge either enters the pathway node set or, for a
	// length-one path, reaches an outcome directly.
	ends := make(map[string]bool, len(pathway)+len(outcomes))
	for n := range pathway {
		ends[n] = true
	}
	for _, o := range outcomes {
		ends[o] = true
	}

	var doomed []dag.Edge
	for _, e := range outgoingEdges(pbg, treatments) {
		if ends[e.To] {
			doomed = append(doomed, e)
		}
	}
	pbg.RemoveEdges(doomed)
	return pbg, nil
}

// outgoingEdges collects every edge whose source is one of the given
// variables.
func outgoingEdges(g *dag.CausalGraph, sources []string) []dag.Edge {
	var edges []dag.Edge
	for _, s := range sources {
		children, err := g.Children(s)
		if err != nil {
			continue
		}
		for _, c := range children {
			edges = append(edges, dag.Edge{From: s, To: c})
		}
	}
	return edges
}

// validateVariables checks that the treatment and outcome sets are
// non-empty, disjoint and contained in the graph.
func validateVariables(g *dag.CausalGraph, treatments, outcomes []string) error {
	if len(treatments) == 0 || len(outcomes) == 0 {
		return &NoAdjustmentSetError{
			Treatments: treatments,
			Outcomes:   outcomes,
			Reason:     "treatments and outcomes must be non-empty",
		}
	}
	for _, name := range treatments {
		if !g.HasNode(name) {
			return &dag.UnknownNodeError{Name: name}
		}
	}
	treated := toSet(treatments)
	for _, name := range outcomes {
		if !g.HasNode(name) {
			return &dag.UnknownNodeError{Name: name}
		}
		if treated[name] {
			return &NoAdjustmentSetError{
				Treatments: treatments,
				Outcomes:   outcomes,
				Reason:     "variable " + name + " is both a treatment and an outcome",
			}
		}
	}
	return nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
