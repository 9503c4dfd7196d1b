// Package config loads tool configuration from defaults, an optional
// TOML file, environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for the tool.
type Config struct {
	Dag         string   `koanf:"dag"`         // path to the DOT file describing the causal DAG
	Treatments  []string `koanf:"treatments"`  // treatment variable names
	Outcomes    []string `koanf:"outcomes"`    // outcome variable names
	Constraints []string `koanf:"constraints"` // scenario constraints, e.g. "Age~N(40,10)"
	Web         bool     `koanf:"web"`
	Port        int      `koanf:"port"`
	Watch       bool     `koanf:"watch"`
	Verbosity   string   `koanf:"verbosity"`
	JSONLogs    bool     `koanf:"json-logs"`
}

// Load layers configuration sources.
// Priority: Flags > Env > Config File > Defaults.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"dag":         "dag.dot",
		"treatments":  []string{},
		"outcomes":    []string{},
		"constraints": []string{},
		"web":         false,
		"port":        8080,
		"watch":       false,
		"verbosity":   "",
		"json-logs":   false,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Optional config file; absence is not an error.
	_ = k.Load(file.Provider("causal-analyzer.toml"), toml.Parser())

	// Environment variables, e.g. CAUSAL_ANALYZER_PORT=9090.
	if err := k.Load(env.Provider("CAUSAL_ANALYZER_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "CAUSAL_ANALYZER_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// mapProvider adapts a plain map as a koanf provider for defaults.
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
