// Package scenario describes the use-case under test: a set of
// constraints over input variables, paired with the causal DAG they
// refer to. Constraints are descriptive only; no sampling or model
// fitting happens here.
package scenario

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mhutton/causal-analyzer/pkg/dag"
)

// Constraint restricts the value of one input variable.
type Constraint interface {
	fmt.Stringer
}

// Fixed pins a variable to a single value.
type Fixed struct {
	Value string
}

func (c Fixed) String() string { return c.Value }

// Normal constrains a variable to a normal distribution.
type Normal struct {
	Dist distuv.Normal
}

func (c Normal) String() string {
	return fmt.Sprintf("N(%g, %g)", c.Dist.Mu, c.Dist.Sigma)
}

// Scenario maps input variable names to their constraints.
type Scenario map[string]Constraint

// AddConstraint sets the constraint for one variable.
func (s Scenario) AddConstraint(variable string, c Constraint) {
	s[variable] = c
}

// String lists the constraints sorted by variable name.
func (s Scenario) String() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, s[name]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// CausalSpecification pairs a scenario with the causal DAG that models
// it.
type CausalSpecification struct {
	Scenario Scenario
	Dag      *dag.CausalGraph
}

func (cs *CausalSpecification) String() string {
	return fmt.Sprintf("Scenario: %s\nCausal DAG:\n%s", cs.Scenario, cs.Dag)
}

var normalPattern = regexp.MustCompile(`^N\(\s*(-?[0-9.]+)\s*,\s*(-?[0-9.]+)\s*\)$`)

// ParseConstraint parses one command-line constraint:
//
//	Vaccine=Pfizer    fixed value
//	Age~N(40,10)      normal distribution
func ParseConstraint(spec string) (string, Constraint, error) {
	if name, dist, ok := strings.Cut(spec, "~"); ok {
		m := normalPattern.FindStringSubmatch(strings.TrimSpace(dist))
		if m == nil {
			return "", nil, fmt.Errorf("invalid distribution constraint %q", spec)
		}
		mu, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid mean in %q: %w", spec, err)
		}
		sigma, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid standard deviation in %q: %w", spec, err)
		}
		if sigma <= 0 {
			return "", nil, fmt.Errorf("standard deviation must be positive in %q", spec)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return "", nil, fmt.Errorf("missing variable name in %q", spec)
		}
		return name, Normal{Dist: distuv.Normal{Mu: mu, Sigma: sigma}}, nil
	}

	if name, value, ok := strings.Cut(spec, "="); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return "", nil, fmt.Errorf("missing variable name in %q", spec)
		}
		return name, Fixed{Value: strings.TrimSpace(value)}, nil
	}

	return "", nil, fmt.Errorf("constraint %q must be name=value or name~N(mean,stddev)", spec)
}

// Parse builds a scenario from command-line constraint specs.
func Parse(specs []string) (Scenario, error) {
	s := make(Scenario, len(specs))
	for _, spec := range specs {
		name, c, err := ParseConstraint(spec)
		if err != nil {
			return nil, err
		}
		s[name] = c
	}
	return s, nil
}
