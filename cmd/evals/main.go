// Command evals scores the built-in tool router against the evaluation
// suites.
//
// Usage:
//
//	go run ./cmd/evals --dir ./evals --suite all
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/alecthomas/kong"

	"github.com/olgasafonova/toolcall-mcp-server/evals"
	"github.com/olgasafonova/toolcall-mcp-server/host"
)

var cli struct {
	Dir     string  `help:"Directory containing eval JSON files" default:"./evals"`
	Suite   string  `help:"Suite to run" enum:"tool_selection,confusion_pairs,all" default:"all"`
	Verbose bool    `short:"v" help:"Show per-tool metrics"`
	Min     float64 `help:"Exit non-zero when accuracy falls below this" default:"0"`
}

func main() {
	_ = kong.Parse(&cli, kong.Description("Score tool selection against the eval suites."))

	fmt.Println("Tool Call Server - Evaluation")
	fmt.Println("=============================")

	var selector host.Router
	worst := 1.0

	if cli.Suite == "tool_selection" || cli.Suite == "all" {
		suite, err := evals.LoadToolSelectionSuite(filepath.Join(cli.Dir, evals.ToolSelectionFile))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading tool selection suite: %v\n", err)
			os.Exit(1)
		}
		m, _ := evals.EvaluateToolSelection(suite, selector)
		report(m, suite.Name)
		worst = min(worst, m.Accuracy)
	}

	if cli.Suite == "confusion_pairs" || cli.Suite == "all" {
		suite, err := evals.LoadConfusionPairSuite(filepath.Join(cli.Dir, evals.ConfusionPairsFile))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading confusion pairs suite: %v\n", err)
			os.Exit(1)
		}
		m, _ := evals.EvaluateConfusionPairs(suite, selector)
		report(m, suite.Name)
		worst = min(worst, m.Accuracy)
	}

	if worst < cli.Min {
		fmt.Fprintf(os.Stderr, "accuracy %.2f below minimum %.2f\n", worst, cli.Min)
		os.Exit(1)
	}
}

func report(m *evals.EvalMetrics, name string) {
	fmt.Print(evals.FormatMetrics(m, name))
	if !cli.Verbose {
		return
	}

	names := make([]string, 0, len(m.ByTool))
	for tool := range m.ByTool {
		names = append(names, tool)
	}
	sort.Strings(names)

	fmt.Println("\nBy Tool:")
	for _, tool := range names {
		t := m.ByTool[tool]
		fmt.Printf("  %-15s expected=%d selected=%d correct=%d fp=%d fn=%d\n",
			tool, t.ExpectedCount, t.SelectedCount, t.CorrectCount, t.FalsePositives, t.FalseNegatives)
	}
}
