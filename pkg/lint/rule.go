package lint

import (
	"fmt"

	"github.com/perspective-labs/viewlint/pkg/model"
)

// Diagnostic represents a lint finding against one node.
type Diagnostic struct {
	RuleID   string
	Severity Severity
	Message  string
	NodePath string
	// Line is a position inside an embedded script body, when the
	// finding points at one. Zero means not applicable.
	Line int
}

// Rule is the interface all lint rules implement. Rules are
// constructed once per run via their Factory and must not hold
// per-document state outside Prepare.
type Rule interface {
	// Name returns the unique registry name, e.g. "PollingInterval".
	Name() string

	// Description returns a human-readable description.
	Description() string

	// DefaultSeverity returns the severity findings carry unless
	// overridden by configuration.
	DefaultSeverity() Severity

	// ConfigKeys returns the kwargs this rule accepts.
	ConfigKeys() []string

	// TargetKinds returns the node kinds the rule subscribes to. The
	// engine only dispatches nodes of these kinds to Visit.
	TargetKinds() []model.NodeKind

	// Visit inspects one node and returns findings. The tree gives
	// access to related nodes; rules must not mutate it.
	Visit(tree *model.Tree, node model.Node) []Diagnostic
}

// Preparer is implemented by rules that precompute per-document state,
// such as lookup indexes, before the traversal starts. Prepare is
// called once per document, before any Visit.
type Preparer interface {
	Prepare(tree *model.Tree)
}

// Factory constructs a configured rule instance from its kwargs.
type Factory func(kwargs map[string]any) (Rule, error)

// BindingRule is an embeddable base for rules that only inspect
// binding nodes.
type BindingRule struct{}

// TargetKinds subscribes to the three binding variants.
func (BindingRule) TargetKinds() []model.NodeKind {
	return model.BindingKinds()
}

// RuleConfigError reports a rule whose kwargs could not be applied.
// The rule is excluded from the run; other rules are unaffected.
type RuleConfigError struct {
	Rule string
	Err  error
}

func (e *RuleConfigError) Error() string {
	return fmt.Sprintf("rule %s: invalid configuration: %v", e.Rule, e.Err)
}

func (e *RuleConfigError) Unwrap() error { return e.Err }

// RuleExecutionError records a panic recovered from a rule visit. It
// is surfaced as a synthetic error diagnostic rather than aborting the
// run.
type RuleExecutionError struct {
	Rule      string
	NodePath  string
	Recovered any
}

func (e *RuleExecutionError) Error() string {
	return fmt.Sprintf("rule %s panicked at %s: %v", e.Rule, e.NodePath, e.Recovered)
}
