package commands

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/perspective-labs/viewlint/internal/cli/config"
	"github.com/perspective-labs/viewlint/internal/cli/output"
	"github.com/perspective-labs/viewlint/pkg/flatten"
	"github.com/perspective-labs/viewlint/pkg/lint"
	_ "github.com/perspective-labs/viewlint/pkg/lint/rules" // register built-in rules
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// LintOptions holds options for the lint command.
type LintOptions struct {
	Format  string   // Output format: text, markdown, json
	Disable []string // Rule names to disable
	Rules   []string // Run only specific rules
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [files...]",
		Short: "Run lint rules on Perspective view files",
		Long: `Analyze view.json files for potential issues.

Each file is flattened, rebuilt as a component/property/binding/script
model, and checked by the configured rules. Rules can be configured in
viewlint.json.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Lint one view
  viewlint lint views/overview/view.json

  # Lint everything under a project
  viewlint lint 'views/**/view.json'

  # Output as JSON
  viewlint lint --format json views/overview/view.json

  # Disable a rule for this run
  viewlint lint --disable NamePattern views/overview/view.json

  # Treat warnings as non-fatal for CI
  viewlint lint --warnings-only views/overview/view.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rule names to disable")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Run only specific rules")

	return cmd
}

// fileOutcome holds the lint result for a single input file.
type fileOutcome struct {
	Path    string
	Results *lint.Results
	Err     error
}

func runLint(cmd *cobra.Command, args []string, opts *LintOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger
	r := cmdCtx.Renderer

	// Override renderer if format flag is set
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	files, err := resolveFiles(args, cfg)
	if err != nil {
		return err
	}

	lintCfg := buildLintConfig(cfg, opts)

	// Surface configuration problems once, up front. A bad rule is
	// excluded from the run, not fatal.
	if _, cfgErrs := lint.NewEngine(lintCfg); len(cfgErrs) > 0 {
		for _, cerr := range cfgErrs {
			r.Errorln(r.Styles().Warning.Render(fmt.Sprintf("config: %v", cerr)))
		}
	}

	outcomes := lintFiles(files, lintCfg, cfg, logger)

	exitCode := renderOutcomes(r, outcomes, cfg.WarningsOnly)
	if exitCode != 0 {
		return fmt.Errorf("lint issues found")
	}
	return nil
}

// resolveFiles merges positional arguments with configured file
// patterns and expands globs, including ** for recursive view.json
// discovery. A pattern with no matches is kept as a literal path so
// the missing file is reported per file.
func resolveFiles(args []string, cfg *config.Config) ([]string, error) {
	patterns := append([]string{}, args...)
	patterns = append(patterns, cfg.Files...)
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no input files: pass paths or set files in viewlint.json")
	}

	var files []string
	seen := make(map[string]bool)
	for _, pat := range patterns {
		matches, err := doublestar.FilepathGlob(pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", pat, err)
		}
		if len(matches) == 0 {
			matches = []string{pat}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// buildLintConfig layers CLI flags over the file-based rule settings.
func buildLintConfig(cfg *config.Config, opts *LintOptions) *lint.Config {
	lintCfg := cfg.LintConfig()

	for _, name := range opts.Disable {
		lintCfg.Disable(strings.TrimSpace(name))
	}

	// If --rule specified, disable all others
	if len(opts.Rules) > 0 {
		enabledSet := make(map[string]bool)
		for _, name := range opts.Rules {
			enabledSet[strings.TrimSpace(name)] = true
		}
		for _, name := range lint.RuleNames() {
			if !enabledSet[name] {
				lintCfg.Disable(name)
			}
		}
	}

	return lintCfg
}

// lintFiles runs the configured rules over every file with cfg.Jobs
// workers. Engines hold a model cache and are not safe for concurrent
// use, so each worker gets its own engine and reuses it across the
// files of its shard.
func lintFiles(files []string, lintCfg *lint.Config, cfg *config.Config, logger *slog.Logger) []fileOutcome {
	jobs := cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}
	if jobs > len(files) {
		jobs = len(files)
	}

	outcomes := make([]fileOutcome, len(files))
	var g errgroup.Group

	for w := 0; w < jobs; w++ {
		w := w
		g.Go(func() error {
			eng, _ := lint.NewEngine(lintCfg)
			for i := w; i < len(files); i += jobs {
				outcomes[i] = lintOne(eng, files[i], cfg, logger)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func lintOne(eng *lint.Engine, path string, cfg *config.Config, logger *slog.Logger) fileOutcome {
	doc, err := flatten.FlattenFile(path)
	if err != nil {
		return fileOutcome{Path: path, Err: err}
	}
	logger.Debug("flattened view", "path", path, "entries", doc.Len())

	results, err := eng.Process(doc)
	if err != nil {
		return fileOutcome{Path: path, Err: err}
	}

	if cfg.DebugDir != "" {
		if err := writeDebugArtifacts(cfg.DebugDir, path, doc, eng); err != nil {
			logger.Warn("failed to write debug artifacts", "path", path, "error", err)
		}
	}

	return fileOutcome{Path: path, Results: results}
}

// lintSummary aggregates counts across all linted files.
type lintSummary struct {
	FilesAnalyzed int `json:"files_analyzed"`
	FilesFailed   int `json:"files_failed"`
	Errors        int `json:"errors"`
	Warnings      int `json:"warnings"`
}

type lintDiagnostic struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	NodePath string `json:"node_path,omitempty"`
	Line     int    `json:"line,omitempty"`
}

type lintFileReport struct {
	Path        string           `json:"path"`
	Error       string           `json:"error,omitempty"`
	Diagnostics []lintDiagnostic `json:"diagnostics,omitempty"`
}

type lintReport struct {
	Summary lintSummary      `json:"summary"`
	Files   []lintFileReport `json:"files"`
}

// renderOutcomes prints the results in the renderer's mode and returns
// the process exit code: zero only when every file was readable and no
// finding escalates under the warnings-only setting.
func renderOutcomes(r *output.Renderer, outcomes []fileOutcome, warningsOnly bool) int {
	summary := lintSummary{FilesAnalyzed: len(outcomes)}
	exitCode := 0

	for _, o := range outcomes {
		if o.Err != nil {
			summary.FilesFailed++
			exitCode = 1
			continue
		}
		summary.Errors += o.Results.ErrorCount()
		summary.Warnings += o.Results.WarningCount()
		if code := o.Results.ExitCode(warningsOnly); code > exitCode {
			exitCode = code
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		report := lintReport{Summary: summary}
		for _, o := range outcomes {
			fr := lintFileReport{Path: o.Path}
			if o.Err != nil {
				fr.Error = o.Err.Error()
			} else {
				fr.Diagnostics = flattenDiagnostics(o.Results)
			}
			report.Files = append(report.Files, fr)
		}
		_ = r.JSON(report)
		return exitCode
	}

	// Text/Markdown output
	clean := true
	for _, o := range outcomes {
		if o.Err != nil {
			clean = false
			r.Println(r.Styles().FilePath.Render(o.Path))
			r.Printf("  %s  %v\n", r.Styles().Error.Render("error  "), o.Err)
			r.Println("")
			continue
		}
		if o.Results.Total() == 0 {
			continue
		}
		clean = false
		r.Println(r.Styles().FilePath.Render(o.Path))
		for _, d := range flattenResultDiagnostics(o.Results) {
			loc := d.NodePath
			if loc == "" {
				loc = "-"
			}
			if d.Line > 0 {
				loc = fmt.Sprintf("%s:%d", loc, d.Line)
			}
			r.Printf("  %s  %s  %s  %s\n",
				severityStyle(r, d.Severity),
				r.Styles().Bold.Render(d.RuleID),
				d.Message,
				r.Styles().Muted.Render(loc),
			)
		}
		r.Println("")
	}

	if clean {
		r.Success("No lint issues found")
		return exitCode
	}

	summaryParts := []string{}
	if summary.Errors > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d errors", summary.Errors))
	}
	if summary.Warnings > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d warnings", summary.Warnings))
	}
	if summary.FilesFailed > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d unreadable files", summary.FilesFailed))
	}
	r.Printf("Summary: %s in %d files\n", strings.Join(summaryParts, ", "), summary.FilesAnalyzed)

	return exitCode
}

// flattenResultDiagnostics flattens a Results into a single slice,
// grouped by rule name in sorted order.
func flattenResultDiagnostics(results *lint.Results) []lint.Diagnostic {
	var diags []lint.Diagnostic
	for _, rule := range results.RuleNames() {
		diags = append(diags, results.Errors()[rule]...)
		diags = append(diags, results.Warnings()[rule]...)
	}
	return diags
}

func flattenDiagnostics(results *lint.Results) []lintDiagnostic {
	var out []lintDiagnostic
	for _, d := range flattenResultDiagnostics(results) {
		out = append(out, lintDiagnostic{
			Rule:     d.RuleID,
			Severity: d.Severity.String(),
			Message:  d.Message,
			NodePath: d.NodePath,
			Line:     d.Line,
		})
	}
	return out
}

func severityStyle(r *output.Renderer, sev lint.Severity) string {
	switch sev {
	case lint.SeverityError:
		return r.Styles().Error.Render("error  ")
	case lint.SeverityWarning:
		return r.Styles().Warning.Render("warning")
	case lint.SeverityInfo:
		return r.Styles().Info.Render("info   ")
	case lint.SeverityHint:
		return r.Styles().Muted.Render("hint   ")
	default:
		return r.Styles().Muted.Render("unknown")
	}
}
