package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/perspective-labs/viewlint/pkg/lint"
	"github.com/perspective-labs/viewlint/pkg/model"
)

func init() {
	lint.Register("BadComponentReference", NewBadComponentReferenceRule)
}

// BadComponentReferenceRule flags references that do not resolve to a
// node in the view: expression binding {path} references, property
// binding source paths, and getSibling calls in scripts. The path and
// name indexes are built once per document in Prepare, so each check
// is a single lookup.
type BadComponentReferenceRule struct {
	tree *model.Tree
}

// NewBadComponentReferenceRule constructs the rule.
func NewBadComponentReferenceRule(kwargs map[string]any) (lint.Rule, error) {
	return &BadComponentReferenceRule{}, nil
}

func (r *BadComponentReferenceRule) Name() string { return "BadComponentReference" }
func (r *BadComponentReferenceRule) Description() string {
	return "Flags bindings and scripts referencing properties or components that do not exist"
}
func (r *BadComponentReferenceRule) DefaultSeverity() lint.Severity { return lint.SeverityError }
func (r *BadComponentReferenceRule) ConfigKeys() []string           { return nil }

func (r *BadComponentReferenceRule) TargetKinds() []model.NodeKind {
	return append(model.BindingKinds(), model.ScriptKinds()...)
}

// Prepare retains the tree whose path and component-name indexes back
// the lookups. Called once per document before any visit.
func (r *BadComponentReferenceRule) Prepare(tree *model.Tree) {
	r.tree = tree
}

var getSiblingPattern = regexp.MustCompile(`getSibling\(\s*"([^"]+)"\s*\)`)

func (r *BadComponentReferenceRule) Visit(tree *model.Tree, node model.Node) []lint.Diagnostic {
	var diags []lint.Diagnostic
	report := func(ref, detail string) {
		diags = append(diags, lint.Diagnostic{
			Severity: lint.SeverityError,
			Message:  fmt.Sprintf("unresolvable reference %q: %s", ref, detail),
			NodePath: node.Path(),
		})
	}

	switch v := node.(type) {
	case *model.ExpressionBinding:
		for _, ref := range v.ReferencedPaths() {
			if detail, ok := r.resolve(node, ref); !ok {
				report(ref, detail)
			}
		}
	case *model.PropertyBinding:
		if v.SourcePath != "" {
			if detail, ok := r.resolve(node, v.SourcePath); !ok {
				report(v.SourcePath, detail)
			}
		}
	case model.Script:
		for _, m := range getSiblingPattern.FindAllStringSubmatch(v.ScriptBody(), -1) {
			name := m[1]
			if _, ok := tree.ComponentByName(name); !ok {
				report(name, "no component with that name")
			}
		}
	}
	return diags
}

// resolve maps a reference to a canonical node path and checks the
// index. References use the view./this./parent. prefixes or lead with
// a component name.
func (r *BadComponentReferenceRule) resolve(from model.Node, ref string) (string, bool) {
	tree := r.tree
	switch {
	case strings.HasPrefix(ref, "view."):
		return r.lookup(strings.TrimPrefix(ref, "view."))
	case strings.HasPrefix(ref, "this."):
		comp, ok := tree.OwningComponent(from.ID())
		if !ok {
			return "no enclosing component", false
		}
		return r.lookup(joinRef(comp.Path(), strings.TrimPrefix(ref, "this.")))
	case strings.HasPrefix(ref, "parent."):
		comp, ok := tree.OwningComponent(from.ID())
		if !ok {
			return "no enclosing component", false
		}
		parent, ok := tree.OwningComponent(comp.Parent())
		if !ok {
			return "no parent component", false
		}
		return r.lookup(joinRef(parent.Path(), strings.TrimPrefix(ref, "parent.")))
	default:
		name, rest, _ := strings.Cut(ref, ".")
		comp, ok := tree.ComponentByName(name)
		if !ok {
			return "no component with that name", false
		}
		if rest == "" {
			return "", true
		}
		return r.lookup(joinRef(comp.Path(), rest))
	}
}

func (r *BadComponentReferenceRule) lookup(path string) (string, bool) {
	if _, ok := r.tree.Lookup(path); ok {
		return "", true
	}
	return "no property at " + path, false
}

// joinRef appends a relative reference to a component path. The root
// component's path can be empty when the reference hangs off the
// document itself.
func joinRef(base, rest string) string {
	if base == "" {
		return rest
	}
	return base + "." + rest
}
