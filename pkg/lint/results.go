package lint

import "sort"

// BuilderKey is the synthetic rule name under which model build
// warnings are reported.
const BuilderKey = "ModelBuilder"

// Results aggregates the findings of one engine run, bucketed by
// severity and keyed by rule name. Error-severity findings land in the
// error bucket; everything else counts as a warning.
type Results struct {
	warnings map[string][]Diagnostic
	errors   map[string][]Diagnostic
}

// NewResults returns an empty result set.
func NewResults() *Results {
	return &Results{
		warnings: make(map[string][]Diagnostic),
		errors:   make(map[string][]Diagnostic),
	}
}

// Add records a finding in the bucket its severity selects.
func (r *Results) Add(d Diagnostic) {
	if d.Severity == SeverityError {
		r.errors[d.RuleID] = append(r.errors[d.RuleID], d)
		return
	}
	r.warnings[d.RuleID] = append(r.warnings[d.RuleID], d)
}

// Warnings returns non-error findings keyed by rule name. Within a
// rule, findings keep traversal order.
func (r *Results) Warnings() map[string][]Diagnostic { return r.warnings }

// Errors returns error findings keyed by rule name.
func (r *Results) Errors() map[string][]Diagnostic { return r.errors }

// WarningCount returns the number of non-error findings.
func (r *Results) WarningCount() int {
	n := 0
	for _, diags := range r.warnings {
		n += len(diags)
	}
	return n
}

// ErrorCount returns the number of error findings.
func (r *Results) ErrorCount() int {
	n := 0
	for _, diags := range r.errors {
		n += len(diags)
	}
	return n
}

// Total returns the number of findings of any severity.
func (r *Results) Total() int {
	return r.WarningCount() + r.ErrorCount()
}

// HasErrors reports whether any error finding was recorded.
func (r *Results) HasErrors() bool { return len(r.errors) > 0 }

// RuleNames returns the union of rule names with findings, sorted for
// stable iteration.
func (r *Results) RuleNames() []string {
	seen := make(map[string]bool, len(r.warnings)+len(r.errors))
	for name := range r.warnings {
		seen[name] = true
	}
	for name := range r.errors {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExitCode implements the tool's exit contract: 0 when clean, 1 when
// errors are present, and in strict mode 1 when anything at all was
// found. warningsOnly relaxes warnings to a zero exit.
func (r *Results) ExitCode(warningsOnly bool) int {
	if r.HasErrors() {
		return 1
	}
	if !warningsOnly && r.Total() > 0 {
		return 1
	}
	return 0
}

// Merge folds another result set into this one.
func (r *Results) Merge(other *Results) {
	if other == nil {
		return
	}
	for name, diags := range other.warnings {
		r.warnings[name] = append(r.warnings[name], diags...)
	}
	for name, diags := range other.errors {
		r.errors[name] = append(r.errors[name], diags...)
	}
}
