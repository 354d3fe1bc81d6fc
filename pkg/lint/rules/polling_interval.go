package rules

import (
	"fmt"

	"github.com/perspective-labs/viewlint/pkg/lint"
	"github.com/perspective-labs/viewlint/pkg/model"
)

func init() {
	lint.Register("PollingInterval", NewPollingIntervalRule)
}

// PollingIntervalRule flags poll-capable bindings refreshing faster
// than a configured floor. Intervals below min_interval warn; below
// error_interval (when set) they error.
type PollingIntervalRule struct {
	lint.BindingRule
	minInterval   float64
	errorInterval float64
}

// NewPollingIntervalRule constructs the rule from kwargs.
func NewPollingIntervalRule(kwargs map[string]any) (lint.Rule, error) {
	r := &PollingIntervalRule{
		minInterval:   lint.GetFloatOption(kwargs, "min_interval", 1000),
		errorInterval: lint.GetFloatOption(kwargs, "error_interval", 0),
	}
	if r.minInterval <= 0 {
		return nil, fmt.Errorf("min_interval must be positive, got %g", r.minInterval)
	}
	if r.errorInterval > r.minInterval {
		return nil, fmt.Errorf("error_interval %g exceeds min_interval %g", r.errorInterval, r.minInterval)
	}
	return r, nil
}

func (r *PollingIntervalRule) Name() string        { return "PollingInterval" }
func (r *PollingIntervalRule) Description() string {
	return "Flags bindings polling faster than the configured minimum interval"
}
func (r *PollingIntervalRule) DefaultSeverity() lint.Severity { return lint.SeverityWarning }
func (r *PollingIntervalRule) ConfigKeys() []string {
	return []string{"min_interval", "error_interval"}
}

func (r *PollingIntervalRule) Visit(tree *model.Tree, node model.Node) []lint.Diagnostic {
	pc, ok := node.(model.PollCapable)
	if !ok {
		return nil
	}
	interval, set := pc.PollInterval()
	if !set || interval >= r.minInterval {
		return nil
	}

	severity := lint.SeverityWarning
	floor := r.minInterval
	if r.errorInterval > 0 && interval < r.errorInterval {
		severity = lint.SeverityError
		floor = r.errorInterval
	}
	return []lint.Diagnostic{{
		Severity: severity,
		Message:  fmt.Sprintf("poll interval %gms is below the %gms minimum", interval, floor),
		NodePath: node.Path(),
	}}
}
