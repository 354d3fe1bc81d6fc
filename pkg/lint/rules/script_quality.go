package rules

import (
	"fmt"
	"strings"

	"github.com/perspective-labs/viewlint/pkg/lint"
	"github.com/perspective-labs/viewlint/pkg/model"
	"github.com/perspective-labs/viewlint/pkg/script"
)

func init() {
	lint.Register("ScriptQuality", NewScriptQualityRule)
}

// ScriptQualityRule statically analyzes embedded script bodies. Each
// analyzer finding becomes one diagnostic; findings that would stop
// the script from running at all (syntax errors) are errors, the rest
// warnings.
type ScriptQualityRule struct {
	analyzer     script.Analyzer
	maxBodyLines int
}

// NewScriptQualityRule constructs the rule with the default Starlark
// analyzer. allow_print suppresses leftover-print findings;
// max_body_lines warns on bodies longer than the limit (0 disables).
func NewScriptQualityRule(kwargs map[string]any) (lint.Rule, error) {
	return &ScriptQualityRule{
		analyzer: &script.StarlarkAnalyzer{
			AllowPrint: lint.GetBoolOption(kwargs, "allow_print", false),
		},
		maxBodyLines: lint.GetIntOption(kwargs, "max_body_lines", 0),
	}, nil
}

func (r *ScriptQualityRule) Name() string { return "ScriptQuality" }
func (r *ScriptQualityRule) Description() string {
	return "Statically analyzes embedded script bodies for defects"
}
func (r *ScriptQualityRule) DefaultSeverity() lint.Severity { return lint.SeverityWarning }
func (r *ScriptQualityRule) ConfigKeys() []string {
	return []string{"allow_print", "max_body_lines"}
}

func (r *ScriptQualityRule) TargetKinds() []model.NodeKind {
	return model.ScriptKinds()
}

func (r *ScriptQualityRule) Visit(tree *model.Tree, node model.Node) []lint.Diagnostic {
	s, ok := node.(model.Script)
	if !ok {
		return nil
	}

	var diags []lint.Diagnostic
	for _, issue := range r.analyzer.Analyze(handlerName(s), handlerParams(s), s.ScriptBody()) {
		severity := lint.SeverityWarning
		if issue.Fatal {
			severity = lint.SeverityError
		}
		diags = append(diags, lint.Diagnostic{
			Severity: severity,
			Message:  issue.Message,
			NodePath: node.Path(),
			Line:     issue.Line,
		})
	}

	if r.maxBodyLines > 0 {
		if lines := countBodyLines(s.ScriptBody()); lines > r.maxBodyLines {
			diags = append(diags, lint.Diagnostic{
				Severity: lint.SeverityWarning,
				Message: fmt.Sprintf("script body has %d lines, consider splitting (limit %d)",
					lines, r.maxBodyLines),
				NodePath: node.Path(),
			})
		}
	}
	return diags
}

// countBodyLines counts non-blank lines of a script body.
func countBodyLines(body string) int {
	n := 0
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// handlerName produces a valid identifier for the synthetic def the
// analyzer wraps the body in.
func handlerName(s model.Script) string {
	switch v := s.(type) {
	case *model.CustomMethodScript:
		if v.Name != "" {
			return v.Name
		}
	case *model.EventHandlerScript:
		return v.Event
	}
	return "handler"
}

// handlerParams mirrors the signatures the runtime generates for each
// handler variant.
func handlerParams(s model.Script) []string {
	switch v := s.(type) {
	case *model.CustomMethodScript:
		return append([]string{"self"}, v.Params...)
	case *model.MessageHandlerScript:
		return []string{"self", "payload"}
	case *model.TransformScript:
		return []string{"self", "value", "quality", "timestamp"}
	case *model.EventHandlerScript:
		return []string{"self", "event"}
	}
	return []string{"self"}
}
