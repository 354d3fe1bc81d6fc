package lint

import (
	"errors"
	"fmt"
	"sort"

	"github.com/perspective-labs/viewlint/pkg/flatten"
	"github.com/perspective-labs/viewlint/pkg/model"
)

// Engine runs a configured rule set against flattened view documents.
// An engine is single-threaded and caches the model of the last
// processed document; byte-identical input reuses the cached tree,
// any difference triggers a full rebuild. Use one engine per worker
// when linting in parallel.
type Engine struct {
	config   *Config
	rules    []Rule
	dispatch map[model.NodeKind][]Rule

	lastDoc  *flatten.Document
	lastTree *model.Tree
}

// NewEngine constructs an engine from the registry and configuration.
// Rule kwargs come from the config; rules that are disabled are not
// constructed. Configured names with no registered factory and
// factories rejecting their kwargs are returned as errors; each
// excludes only the affected rule.
func NewEngine(config *Config) (*Engine, []error) {
	if config == nil {
		config = NewConfig()
	}
	e := &Engine{
		config:   config,
		dispatch: make(map[model.NodeKind][]Rule),
	}

	var errs []error
	for name := range config.RuleOptions {
		if _, known, _ := NewRule(name, nil); !known {
			errs = append(errs, fmt.Errorf("unknown rule %q in configuration", name))
		}
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })

	for _, name := range RuleNames() {
		if config.IsDisabled(name) {
			continue
		}
		rule, _, err := NewRule(name, config.GetRuleOptions(name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		e.rules = append(e.rules, rule)
		for _, kind := range rule.TargetKinds() {
			e.dispatch[kind] = append(e.dispatch[kind], rule)
		}
	}
	return e, errs
}

// Rules returns the constructed rule instances in name order.
func (e *Engine) Rules() []Rule { return e.rules }

// Process lints one document: build or reuse the model, run every
// subscribed rule over a single depth-first traversal, and aggregate
// findings. Build warnings surface under the ModelBuilder key.
func (e *Engine) Process(doc *flatten.Document) (*Results, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	tree := e.treeFor(doc)
	res := NewResults()

	for _, w := range tree.Warnings() {
		res.Add(Diagnostic{
			RuleID:   BuilderKey,
			Severity: SeverityWarning,
			Message:  w,
		})
	}

	for _, rule := range e.rules {
		if p, ok := rule.(Preparer); ok {
			p.Prepare(tree)
		}
	}

	tree.Walk(func(n model.Node) {
		for _, rule := range e.dispatch[n.Kind()] {
			for _, d := range e.visit(rule, tree, n) {
				if d.RuleID == "" {
					d.RuleID = rule.Name()
				}
				if d.NodePath == "" {
					d.NodePath = n.Path()
				}
				d.Severity = e.config.GetSeverity(rule.Name(), d.Severity)
				res.Add(d)
			}
		}
	})
	return res, nil
}

// visit contains rule panics, converting them to a synthetic error
// diagnostic so one broken rule cannot abort the run.
func (e *Engine) visit(rule Rule, tree *model.Tree, n model.Node) (diags []Diagnostic) {
	defer func() {
		if rec := recover(); rec != nil {
			err := &RuleExecutionError{Rule: rule.Name(), NodePath: n.Path(), Recovered: rec}
			diags = []Diagnostic{{
				RuleID:   rule.Name(),
				Severity: SeverityError,
				Message:  err.Error(),
				NodePath: n.Path(),
			}}
		}
	}()
	return rule.Visit(tree, n)
}

// treeFor returns the cached model when the document is unchanged,
// rebuilding otherwise.
func (e *Engine) treeFor(doc *flatten.Document) *model.Tree {
	if e.lastTree != nil && doc.Equal(e.lastDoc) {
		return e.lastTree
	}
	e.lastDoc = doc
	e.lastTree = model.Build(doc)
	return e.lastTree
}

// Statistics summarizes a document's model and the rule set's reach
// over it.
type Statistics struct {
	TotalNodes       int            `json:"total_nodes"`
	NodeKinds        map[string]int `json:"node_kinds"`
	ComponentsByType map[string]int `json:"components_by_type"`
	RuleCoverage     map[string]int `json:"rule_coverage"`
}

// ModelStatistics computes node and coverage statistics without
// running any rule.
func (e *Engine) ModelStatistics(doc *flatten.Document) *Statistics {
	tree := e.treeFor(doc)
	kinds := tree.CountByKind()

	stats := &Statistics{
		NodeKinds:        make(map[string]int, len(kinds)),
		ComponentsByType: tree.ComponentsByType(),
		RuleCoverage:     make(map[string]int, len(e.rules)),
	}
	for kind, n := range kinds {
		stats.NodeKinds[string(kind)] = n
		stats.TotalNodes += n
	}
	for _, rule := range e.rules {
		total := 0
		for _, kind := range rule.TargetKinds() {
			total += kinds[kind]
		}
		stats.RuleCoverage[rule.Name()] = total
	}
	return stats
}

// RuleImpact describes how much of a document one rule can see.
type RuleImpact struct {
	Rule            string   `json:"rule"`
	TargetKinds     []string `json:"target_kinds"`
	ApplicableNodes int      `json:"applicable_nodes"`
}

// AnalyzeRuleImpact reports, per constructed rule, the kinds it
// subscribes to and how many nodes of the document those cover.
func (e *Engine) AnalyzeRuleImpact(doc *flatten.Document) []RuleImpact {
	tree := e.treeFor(doc)
	kinds := tree.CountByKind()

	impacts := make([]RuleImpact, 0, len(e.rules))
	for _, rule := range e.rules {
		impact := RuleImpact{Rule: rule.Name()}
		for _, kind := range rule.TargetKinds() {
			impact.TargetKinds = append(impact.TargetKinds, string(kind))
			impact.ApplicableNodes += kinds[kind]
		}
		sort.Strings(impact.TargetKinds)
		impacts = append(impacts, impact)
	}
	sort.Slice(impacts, func(i, j int) bool { return impacts[i].Rule < impacts[j].Rule })
	return impacts
}

// NodeDump is one line of debug node output.
type NodeDump struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
}

// DebugNodes lists nodes of the requested kinds in traversal order.
// With no kinds, every node is listed.
func (e *Engine) DebugNodes(doc *flatten.Document, kinds []model.NodeKind) []NodeDump {
	tree := e.treeFor(doc)
	if len(kinds) == 0 {
		kinds = model.AllKinds()
	}
	var dumps []NodeDump
	for _, n := range tree.NodesOfKind(kinds...) {
		dumps = append(dumps, NodeDump{
			Path:    n.Path(),
			Kind:    string(n.Kind()),
			Summary: n.Summary(),
		})
	}
	return dumps
}

// SnapshotModel serializes the document's model with stable ordering.
func (e *Engine) SnapshotModel(doc *flatten.Document) string {
	return e.treeFor(doc).SnapshotJSON()
}
