package output

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/mhutton/causal-analyzer/pkg/analysis"
	"github.com/mhutton/causal-analyzer/pkg/dag"
	"github.com/mhutton/causal-analyzer/pkg/scenario"
)

// PrintGraphSummary prints a short description of the loaded DAG.
func PrintGraphSummary(w io.Writer, source string, g *dag.CausalGraph) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Causal Analyzer - Adjustment Report")
	bold.Fprintln(w, "===================================")
	fmt.Fprintf(w, "DAG: %s\n", source)
	cyan.Fprintf(w, "Variables: %d, Edges: %d\n", g.NodeCount(), g.EdgeCount())
	fmt.Fprintln(w)
}

// PrintScenario prints the constraints of the scenario under analysis.
func PrintScenario(w io.Writer, s scenario.Scenario) {
	if len(s) == 0 {
		return
	}
	bold := color.New(color.Bold)
	bold.Fprintln(w, "SCENARIO:")
	fmt.Fprintf(w, "  %s\n\n", s)
}

// PrintAdjustmentReport prints the analysis results for one
// treatment/outcome query.
func PrintAdjustmentReport(w io.Writer, treatments, outcomes []string, pathway map[string]bool, adjustment []string) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	fmt.Fprintf(w, "Treatments: %s\n", strings.Join(treatments, ", "))
	fmt.Fprintf(w, "Outcomes:   %s\n", strings.Join(outcomes, ", "))
	fmt.Fprintln(w)

	bold.Fprintln(w, "PROPER CAUSAL PATHWAY:")
	if len(pathway) == 0 {
		yellow.Fprintln(w, "  (no intermediate variables)")
	} else {
		names := make([]string, 0, len(pathway))
		for name := range pathway {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cyan.Fprintf(w, "  %s\n", name)
		}
	}
	fmt.Fprintln(w)

	bold.Fprintln(w, "MINIMAL ADJUSTMENT SET:")
	if len(adjustment) == 0 {
		green.Fprintln(w, "  {} (no adjustment needed)")
	} else {
		for _, name := range adjustment {
			green.Fprintf(w, "  %s\n", name)
		}
	}
	fmt.Fprintln(w)

	green.Fprintln(w, "✓ The causal effect is identifiable by covariate adjustment")
}

// PrintAnalysisError renders analysis failures with their cause.
func PrintAnalysisError(w io.Writer, err error) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	var noSet *analysis.NoAdjustmentSetError
	var unknown *dag.UnknownNodeError
	var cycle *dag.CycleError

	switch {
	case errors.As(err, &noSet):
		red.Fprintln(w, "NO ADJUSTMENT SET:")
		fmt.Fprintf(w, "  Treatments: %s\n", strings.Join(noSet.Treatments, ", "))
		fmt.Fprintf(w, "  Outcomes:   %s\n", strings.Join(noSet.Outcomes, ", "))
		yellow.Fprintf(w, "  %s\n", noSet.Reason)
	case errors.As(err, &unknown):
		red.Fprintln(w, "UNKNOWN VARIABLE:")
		yellow.Fprintf(w, "  %s\n", unknown.Error())
	case errors.As(err, &cycle):
		red.Fprintln(w, "INVALID CAUSAL DAG:")
		yellow.Fprintf(w, "  %s\n", cycle.Error())
	default:
		red.Fprintf(w, "Analysis failed: %s\n", err)
	}
}
