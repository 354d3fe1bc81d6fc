package rules

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/perspective-labs/viewlint/pkg/lint"
	"github.com/perspective-labs/viewlint/pkg/model"
)

func init() {
	lint.Register("NamePattern", NewNamePatternRule)
}

// Named conventions accepted by the convention kwarg.
var conventions = map[string]*regexp.Regexp{
	"PascalCase": regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`),
	"camelCase":  regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`),
	"snake_case": regexp.MustCompile(`^[a-z][a-z0-9_]*$`),
	"kebab-case": regexp.MustCompile(`^[a-z][a-z0-9-]*$`),
	"UPPER_CASE": regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`),
}

// NamePatternRule checks component names, and optionally property
// names, against a named convention or a custom pattern regex. The
// root container is exempt; its name is fixed by the runtime.
type NamePatternRule struct {
	convention string
	pattern    *regexp.Regexp
	kinds      []model.NodeKind
}

// NewNamePatternRule constructs the rule from kwargs. A pattern kwarg
// overrides the convention. The targets kwarg selects what is checked:
// "component" (the default), "property", or both.
func NewNamePatternRule(kwargs map[string]any) (lint.Rule, error) {
	var kinds []model.NodeKind
	for _, target := range lint.GetStringSliceOption(kwargs, "targets", []string{"component"}) {
		switch target {
		case "component":
			kinds = append(kinds, model.KindComponent)
		case "property":
			kinds = append(kinds, model.KindProperty)
		default:
			return nil, fmt.Errorf("unknown target %q", target)
		}
	}

	convention := lint.GetStringOption(kwargs, "convention", "PascalCase")
	if custom := lint.GetStringOption(kwargs, "pattern", ""); custom != "" {
		re, err := regexp.Compile(custom)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		return &NamePatternRule{convention: "pattern " + custom, pattern: re, kinds: kinds}, nil
	}
	re, ok := conventions[convention]
	if !ok {
		return nil, fmt.Errorf("unknown convention %q", convention)
	}
	return &NamePatternRule{convention: convention, pattern: re, kinds: kinds}, nil
}

func (r *NamePatternRule) Name() string { return "NamePattern" }
func (r *NamePatternRule) Description() string {
	return "Checks component and property names against a naming convention"
}
func (r *NamePatternRule) DefaultSeverity() lint.Severity { return lint.SeverityError }
func (r *NamePatternRule) ConfigKeys() []string {
	return []string{"convention", "pattern", "targets"}
}

func (r *NamePatternRule) TargetKinds() []model.NodeKind {
	return r.kinds
}

func (r *NamePatternRule) Visit(tree *model.Tree, node model.Node) []lint.Diagnostic {
	var label, name string
	switch n := node.(type) {
	case *model.Component:
		if n.Name == "" || n.Path() == "root" {
			return nil
		}
		label, name = "component", n.Name
	case *model.Property:
		// Index properties are positional, not named.
		if n.Name == "" || n.IsIndex {
			return nil
		}
		label, name = "property", n.Name
	default:
		return nil
	}
	if r.pattern.MatchString(name) {
		return nil
	}

	msg := fmt.Sprintf("%s name %q at %s does not match %s",
		label, name, node.Path(), r.convention)
	if fix := r.suggest(name); fix != "" && fix != name {
		msg += fmt.Sprintf(" (did you mean %q?)", fix)
	}
	return []lint.Diagnostic{{
		Severity: lint.SeverityError,
		Message:  msg,
		NodePath: node.Path(),
	}}
}

// suggest rewrites a name into the configured convention where the
// rewrite is mechanical.
func (r *NamePatternRule) suggest(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return ""
	}
	title := cases.Title(language.Und)
	switch r.convention {
	case "PascalCase":
		var b strings.Builder
		for _, w := range words {
			b.WriteString(title.String(w))
		}
		return b.String()
	case "camelCase":
		var b strings.Builder
		b.WriteString(strings.ToLower(words[0]))
		for _, w := range words[1:] {
			b.WriteString(title.String(w))
		}
		return b.String()
	case "snake_case":
		return strings.ToLower(strings.Join(words, "_"))
	case "kebab-case":
		return strings.ToLower(strings.Join(words, "-"))
	case "UPPER_CASE":
		return strings.ToUpper(strings.Join(words, "_"))
	}
	return ""
}

// splitWords breaks a name on case boundaries and separators.
func splitWords(name string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case r >= 'A' && r <= 'Z' && i > 0:
			prev := rune(name[i-1])
			if prev >= 'a' && prev <= 'z' {
				flush()
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}
