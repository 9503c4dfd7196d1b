package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/mhutton/causal-analyzer/pkg/analysis"
	"github.com/mhutton/causal-analyzer/pkg/config"
	"github.com/mhutton/causal-analyzer/pkg/dag"
	"github.com/mhutton/causal-analyzer/pkg/logging"
	"github.com/mhutton/causal-analyzer/pkg/output"
	"github.com/mhutton/causal-analyzer/pkg/scenario"
	"github.com/mhutton/causal-analyzer/pkg/watcher"
	"github.com/mhutton/causal-analyzer/pkg/web"
)

func main() {
	flags := pflag.NewFlagSet("causal-analyzer", pflag.ExitOnError)
	flags.String("dag", "dag.dot", "Path to the DOT file describing the causal DAG")
	flags.StringSlice("treatments", nil, "Treatment variable names")
	flags.StringSlice("outcomes", nil, "Outcome variable names")
	flags.StringSlice("constraints", nil, "Scenario constraints, e.g. Age~N(40,10) or Vaccine=Pfizer")
	flags.Bool("web", false, "Start the web server instead of printing to the console")
	flags.Int("port", 8080, "Port for the web server (only used with --web)")
	flags.Bool("watch", false, "Reload the DAG when the DOT file changes (only used with --web)")
	flags.String("verbosity", "", "Log level: debug, info, warn or error")
	flags.Bool("json-logs", false, "Emit logs as JSON")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	g, err := dag.LoadDOT(cfg.Dag)
	if err != nil {
		output.PrintAnalysisError(os.Stderr, err)
		os.Exit(1)
	}
	logging.Info("loaded causal DAG", "path", cfg.Dag,
		"nodes", g.NodeCount(), "edges", g.EdgeCount())

	sc, err := scenario.Parse(cfg.Constraints)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Web {
		runWebServer(cfg, g)
		return
	}

	if err := runQuery(cfg, g, sc); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Verbosity {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
}

// runQuery performs a single adjustment-set query and prints the report.
func runQuery(cfg *config.Config, g *dag.CausalGraph, sc scenario.Scenario) error {
	if len(cfg.Treatments) == 0 || len(cfg.Outcomes) == 0 {
		fmt.Fprintln(os.Stderr, "Error: --treatments and --outcomes are required in console mode")
		return fmt.Errorf("missing query variables")
	}

	output.PrintGraphSummary(os.Stdout, cfg.Dag, g)
	output.PrintScenario(os.Stdout, sc)

	pathway, err := analysis.ProperCausalPathway(g, cfg.Treatments, cfg.Outcomes)
	if err != nil {
		output.PrintAnalysisError(os.Stderr, err)
		return err
	}

	adjustment, err := analysis.MinimalAdjustmentSet(g, cfg.Treatments, cfg.Outcomes)
	if err != nil {
		output.PrintAnalysisError(os.Stderr, err)
		return err
	}

	output.PrintAdjustmentReport(os.Stdout, cfg.Treatments, cfg.Outcomes, pathway, adjustment)
	return nil
}

func runWebServer(cfg *config.Config, g *dag.CausalGraph) {
	server := web.NewServer()
	server.SetGraph(g, cfg.Dag)

	if cfg.Watch {
		w, err := watcher.NewDagWatcher(cfg.Dag)
		if err != nil {
			logging.Fatal("failed to create watcher", "error", err)
		}
		events, err := w.Start(context.Background())
		if err != nil {
			logging.Fatal("failed to start watcher", "error", err)
		}
		go reloadOnChange(events, server)
	}

	logging.Info("serving causal graph API", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	if err := server.Start(cfg.Port); err != nil {
		logging.Fatal("server failed", "error", err)
	}
}

// reloadOnChange re-parses the DOT file after each debounced change. A
// parse failure keeps the previous graph and notifies subscribers.
func reloadOnChange(events <-chan watcher.ChangeEvent, server *web.Server) {
	for event := range events {
		g, err := dag.LoadDOT(event.Path)
		if err != nil {
			logging.Warn("reload failed, keeping previous graph",
				"path", event.Path, "error", err)
			server.PublishReloadFailure(event.Path, err)
			continue
		}
		logging.Info("reloaded causal DAG", "path", event.Path,
			"nodes", g.NodeCount(), "edges", g.EdgeCount())
		server.SetGraph(g, event.Path)
	}
}
