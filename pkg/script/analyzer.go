// Package script statically analyzes embedded handler scripts. Bodies
// are parsed with the Starlark grammar, which covers the Python subset
// these scripts are written in; nothing is ever executed.
package script

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// Issue is one finding in a script body. Line numbers are relative to
// the body as stored in the document, starting at 1.
type Issue struct {
	Line    int
	Message string
	// Fatal marks findings that prevent the script from running at
	// all, such as syntax errors.
	Fatal bool
}

// Analyzer checks a script body and reports findings.
type Analyzer interface {
	// Analyze checks a handler body. name and params describe the
	// enclosing handler signature the runtime generates.
	Analyze(name string, params []string, body string) []Issue
}

// StarlarkAnalyzer parses bodies with go.starlark.net's syntax package
// and walks the AST for structural findings.
type StarlarkAnalyzer struct {
	// AllowPrint suppresses findings for leftover print calls.
	AllowPrint bool
}

// NewStarlarkAnalyzer returns the default analyzer.
func NewStarlarkAnalyzer() *StarlarkAnalyzer {
	return &StarlarkAnalyzer{}
}

// Analyze wraps the body in a synthetic def matching the handler
// signature, parses it, and reports syntax errors, unused parameters,
// and leftover print calls.
func (a *StarlarkAnalyzer) Analyze(name string, params []string, body string) []Issue {
	if strings.TrimSpace(body) == "" {
		return []Issue{{Line: 1, Message: "empty script body"}}
	}
	if name == "" {
		name = "handler"
	}

	src := wrapBody(name, params, body)
	f, err := syntax.Parse(name+".py", []byte(src), 0)
	if err != nil {
		return []Issue{syntaxIssue(err)}
	}

	var issues []Issue
	def := findDef(f, name)
	if def == nil {
		return issues
	}

	if !a.AllowPrint {
		syntax.Walk(def, func(n syntax.Node) bool {
			if call, ok := n.(*syntax.CallExpr); ok {
				if ident, ok := call.Fn.(*syntax.Ident); ok && ident.Name == "print" {
					issues = append(issues, Issue{
						Line:    bodyLine(ident.NamePos),
						Message: "print call left in script",
					})
				}
			}
			return true
		})
	}

	for _, p := range params {
		pname := paramName(p)
		if pname == "" || pname == "self" || strings.HasPrefix(pname, "_") {
			continue
		}
		if !paramUsed(def, pname) {
			issues = append(issues, Issue{
				Line:    1,
				Message: fmt.Sprintf("parameter %q is never used", pname),
			})
		}
	}
	return issues
}

// wrapBody produces a parseable unit from a stored handler body. Bodies
// are stored pre-indented one level; bodies written flush-left are
// indented here.
func wrapBody(name string, params []string, body string) string {
	lines := strings.Split(body, "\n")
	indent := ""
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "\t") && !strings.HasPrefix(line, " ") {
			indent = "\t"
		}
		break
	}
	var b strings.Builder
	fmt.Fprintf(&b, "def %s(%s):\n", name, strings.Join(params, ", "))
	for _, line := range lines {
		if indent != "" && strings.TrimSpace(line) != "" {
			b.WriteString(indent)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func syntaxIssue(err error) Issue {
	if se, ok := err.(syntax.Error); ok {
		return Issue{
			Line:    bodyLine(se.Pos),
			Message: "syntax error: " + se.Msg,
			Fatal:   true,
		}
	}
	return Issue{Line: 1, Message: "syntax error: " + err.Error(), Fatal: true}
}

// bodyLine maps a position in the wrapped source back to the body,
// which starts one line below the synthetic def.
func bodyLine(pos syntax.Position) int {
	line := int(pos.Line) - 1
	if line < 1 {
		line = 1
	}
	return line
}

func findDef(f *syntax.File, name string) *syntax.DefStmt {
	for _, stmt := range f.Stmts {
		if def, ok := stmt.(*syntax.DefStmt); ok && def.Name.Name == name {
			return def
		}
	}
	return nil
}

// paramName strips defaults and star prefixes from a signature entry.
func paramName(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimLeft(p, "*")
	if i := strings.IndexByte(p, '='); i >= 0 {
		p = p[:i]
	}
	return strings.TrimSpace(p)
}

// paramUsed reports whether an identifier occurs in the def body.
func paramUsed(def *syntax.DefStmt, name string) bool {
	found := false
	for _, stmt := range def.Body {
		syntax.Walk(stmt, func(n syntax.Node) bool {
			if found {
				return false
			}
			if ident, ok := n.(*syntax.Ident); ok && ident.Name == name {
				found = true
				return false
			}
			return true
		})
		if found {
			break
		}
	}
	return found
}
