// Package evals scores tool selectors: given natural language input, does
// the selector pick the right tool with the right arguments?
package evals

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
)

// Suite file names inside an eval directory.
const (
	ToolSelectionFile  = "tool_selection.json"
	ConfusionPairsFile = "confusion_pairs.json"
)

// ToolSelectionTest is one input with the tool and arguments it should map to.
type ToolSelectionTest struct {
	ID           string         `json:"id"`
	Category     string         `json:"category"`
	Input        string         `json:"input"`
	ExpectedTool string         `json:"expected_tool"`
	ExpectedArgs map[string]any `json:"expected_args"`
	NotTools     []string       `json:"not_tools"`
}

// ToolSelectionSuite is the contents of tool_selection.json.
type ToolSelectionSuite struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Tests       []ToolSelectionTest `json:"tests"`
}

// ConfusionPairTest is one disambiguation input.
type ConfusionPairTest struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Reason   string `json:"reason"`
}

// ConfusionPair groups inputs that sit on the border between tools.
type ConfusionPair struct {
	ID             string              `json:"id"`
	Tools          []string            `json:"tools"`
	Disambiguation string              `json:"disambiguation"`
	Tests          []ConfusionPairTest `json:"tests"`
}

// ConfusionPairSuite is the contents of confusion_pairs.json.
type ConfusionPairSuite struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Pairs       []ConfusionPair `json:"pairs"`
}

// TestCount returns the number of tests across all pairs.
func (s *ConfusionPairSuite) TestCount() int {
	n := 0
	for _, p := range s.Pairs {
		n += len(p.Tests)
	}
	return n
}

// ToolSelectionResult is the outcome of one ToolSelectionTest.
type ToolSelectionResult struct {
	TestID       string
	Input        string
	ExpectedTool string
	ActualTool   string
	Passed       bool
	Errors       []string
}

// ConfusionPairResult is the outcome of one ConfusionPairTest.
type ConfusionPairResult struct {
	PairID       string
	Input        string
	ExpectedTool string
	ActualTool   string
	Reason       string
	Passed       bool
}

// EvalMetrics aggregates a run.
type EvalMetrics struct {
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Accuracy      float64
	ByCategory    map[string]*CategoryMetrics
	ByTool        map[string]*ToolMetrics
	FailedDetails []string
}

// CategoryMetrics counts results per category.
type CategoryMetrics struct {
	Total  int
	Passed int
	Failed int
}

// Accuracy is Passed/Total, or 0 for an empty category.
func (c *CategoryMetrics) Accuracy() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Passed) / float64(c.Total)
}

// ToolMetrics counts how a tool was expected and chosen.
type ToolMetrics struct {
	ExpectedCount  int
	SelectedCount  int
	CorrectCount   int
	FalsePositives int // chosen when another tool was expected
	FalseNegatives int // expected but another tool was chosen
}

// ToolSelector maps natural language input to a tool call.
type ToolSelector interface {
	SelectTool(input string) (toolName string, args map[string]any, err error)
}

func newMetrics() *EvalMetrics {
	return &EvalMetrics{
		ByCategory: make(map[string]*CategoryMetrics),
		ByTool:     make(map[string]*ToolMetrics),
	}
}

func (m *EvalMetrics) category(name string) *CategoryMetrics {
	c, ok := m.ByCategory[name]
	if !ok {
		c = &CategoryMetrics{}
		m.ByCategory[name] = c
	}
	return c
}

func (m *EvalMetrics) tool(name string) *ToolMetrics {
	t, ok := m.ByTool[name]
	if !ok {
		t = &ToolMetrics{}
		m.ByTool[name] = t
	}
	return t
}

// record scores one selection. detail is only used when passed is false.
func (m *EvalMetrics) record(category, expected, actual string, passed bool, detail string) {
	m.TotalTests++
	cat := m.category(category)
	cat.Total++

	m.tool(expected).ExpectedCount++
	m.tool(actual).SelectedCount++
	if actual == expected {
		m.tool(expected).CorrectCount++
	} else {
		m.tool(expected).FalseNegatives++
		m.tool(actual).FalsePositives++
	}

	if passed {
		m.PassedTests++
		cat.Passed++
	} else {
		m.FailedTests++
		cat.Failed++
		m.FailedDetails = append(m.FailedDetails, detail)
	}
}

func (m *EvalMetrics) finish() {
	if m.TotalTests > 0 {
		m.Accuracy = float64(m.PassedTests) / float64(m.TotalTests)
	}
}

func loadJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return &v, nil
}

// LoadToolSelectionSuite reads a tool selection suite from path.
func LoadToolSelectionSuite(path string) (*ToolSelectionSuite, error) {
	return loadJSON[ToolSelectionSuite](path)
}

// LoadConfusionPairSuite reads a confusion pair suite from path.
func LoadConfusionPairSuite(path string) (*ConfusionPairSuite, error) {
	return loadJSON[ConfusionPairSuite](path)
}

// LoadAll reads both suites from dir.
func LoadAll(dir string) (*ToolSelectionSuite, *ConfusionPairSuite, error) {
	selection, err := LoadToolSelectionSuite(filepath.Join(dir, ToolSelectionFile))
	if err != nil {
		return nil, nil, fmt.Errorf("loading tool selection: %w", err)
	}
	pairs, err := LoadConfusionPairSuite(filepath.Join(dir, ConfusionPairsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("loading confusion pairs: %w", err)
	}
	return selection, pairs, nil
}

// EvaluateToolSelection runs every test in suite through selector. A test
// passes when the tool matches, no forbidden tool was chosen and every
// expected argument is present with the expected value.
func EvaluateToolSelection(suite *ToolSelectionSuite, selector ToolSelector) (*EvalMetrics, []ToolSelectionResult) {
	m := newMetrics()
	results := make([]ToolSelectionResult, 0, len(suite.Tests))

	for _, test := range suite.Tests {
		tool, args, err := selector.SelectTool(test.Input)
		res := ToolSelectionResult{
			TestID:       test.ID,
			Input:        test.Input,
			ExpectedTool: test.ExpectedTool,
			ActualTool:   tool,
		}

		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("selector error: %v", err))
		}
		if tool != test.ExpectedTool {
			res.Errors = append(res.Errors, fmt.Sprintf("wrong tool: expected %s, got %s", test.ExpectedTool, tool))
		}
		for _, forbidden := range test.NotTools {
			if tool == forbidden {
				res.Errors = append(res.Errors, fmt.Sprintf("selected forbidden tool: %s", forbidden))
			}
		}
		res.Errors = append(res.Errors, compareArgs(test.ExpectedArgs, args)...)
		res.Passed = len(res.Errors) == 0

		m.record(test.Category, test.ExpectedTool, tool, res.Passed,
			fmt.Sprintf("[%s] %s: %s", test.ID, test.Input, strings.Join(res.Errors, "; ")))
		results = append(results, res)
	}

	m.finish()
	return m, results
}

// ConfusionCategoryPrefix prefixes the category each confusion pair is scored under.
const ConfusionCategoryPrefix = "confusion:"

// EvaluateConfusionPairs checks tool choice only, grouped under
// "confusion:<pair ID>".
func EvaluateConfusionPairs(suite *ConfusionPairSuite, selector ToolSelector) (*EvalMetrics, []ConfusionPairResult) {
	m := newMetrics()
	results := make([]ConfusionPairResult, 0, suite.TestCount())

	for _, pair := range suite.Pairs {
		for _, test := range pair.Tests {
			tool, _, err := selector.SelectTool(test.Input)
			res := ConfusionPairResult{
				PairID:       pair.ID,
				Input:        test.Input,
				ExpectedTool: test.Expected,
				ActualTool:   tool,
				Reason:       test.Reason,
				Passed:       err == nil && tool == test.Expected,
			}
			m.record(ConfusionCategoryPrefix+pair.ID, test.Expected, tool, res.Passed,
				fmt.Sprintf("[%s] %s: expected %s, got %s (%s)", pair.ID, test.Input, test.Expected, tool, test.Reason))
			results = append(results, res)
		}
	}

	m.finish()
	return m, results
}

// compareArgs lists every expected argument that is missing or different,
// in key order.
func compareArgs(expected, actual map[string]any) []string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, k := range keys {
		want := expected[k]
		got, ok := actual[k]
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("missing arg %s (expected %v)", k, want))
		case !compareValues(want, got):
			errs = append(errs, fmt.Sprintf("wrong arg %s: expected %v, got %v", k, want, got))
		}
	}
	return errs
}

// compareValues treats numbers as equal across int and float64, since
// suites decode from JSON, and compares strings case-insensitively.
func compareValues(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	ev := reflect.ValueOf(expected)
	av := reflect.ValueOf(actual)

	switch {
	case ev.CanFloat() || ev.CanInt() || ev.CanUint():
		a, ok := asFloat(av)
		e, _ := asFloat(ev)
		return ok && a == e
	case ev.Kind() == reflect.String && av.Kind() == reflect.String:
		return strings.EqualFold(ev.String(), av.String())
	case ev.Kind() == reflect.Slice && av.Kind() == reflect.Slice:
		if ev.Len() != av.Len() {
			return false
		}
		for i := 0; i < ev.Len(); i++ {
			if !compareValues(ev.Index(i).Interface(), av.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(expected, actual)
}

func asFloat(v reflect.Value) (float64, bool) {
	switch {
	case v.CanFloat():
		return v.Float(), true
	case v.CanInt():
		return float64(v.Int()), true
	case v.CanUint():
		return float64(v.Uint()), true
	}
	return 0, false
}

// FormatMetrics renders a summary: totals, per-category accuracy in name
// order, and up to ten failures.
func FormatMetrics(m *EvalMetrics, suiteName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== %s ===\n", suiteName)
	fmt.Fprintf(&b, "Total: %d tests\n", m.TotalTests)
	fmt.Fprintf(&b, "Passed: %d (%.1f%%)\n", m.PassedTests, m.Accuracy*100)
	fmt.Fprintf(&b, "Failed: %d\n", m.FailedTests)

	if len(m.ByCategory) > 0 {
		names := make([]string, 0, len(m.ByCategory))
		for name := range m.ByCategory {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("\nBy Category:\n")
		for _, name := range names {
			c := m.ByCategory[name]
			fmt.Fprintf(&b, "  %-25s: %d/%d (%.0f%%)\n", name, c.Passed, c.Total, c.Accuracy()*100)
		}
	}

	const maxShown = 10
	switch n := len(m.FailedDetails); {
	case n == 0:
	case n <= maxShown:
		b.WriteString("\nFailed Tests:\n")
	default:
		fmt.Fprintf(&b, "\nFailed Tests (showing first %d of %d):\n", maxShown, n)
	}
	for i, detail := range m.FailedDetails {
		if i == maxShown {
			break
		}
		fmt.Fprintf(&b, "  - %s\n", detail)
	}

	return b.String()
}
