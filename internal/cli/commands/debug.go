package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/perspective-labs/viewlint/internal/cli/output"
	"github.com/perspective-labs/viewlint/pkg/flatten"
	"github.com/perspective-labs/viewlint/pkg/lint"
	_ "github.com/perspective-labs/viewlint/pkg/lint/rules" // register built-in rules
	"github.com/perspective-labs/viewlint/pkg/model"
	"github.com/spf13/cobra"
)

// DebugOptions holds options for the debug command.
type DebugOptions struct {
	Nodes        []string // Node kinds to dump
	AnalyzeRules bool     // Show per-rule coverage instead of nodes
	Format       string   // Output format
}

// NewDebugCommand creates the debug command.
func NewDebugCommand() *cobra.Command {
	opts := &DebugOptions{}
	cmd := &cobra.Command{
		Use:   "debug [files...]",
		Short: "Inspect the model built from view files",
		Long: `Dump the typed model rebuilt from each view, for diagnosing why a
rule did or did not fire. Lists nodes in traversal order, optionally
filtered by kind, or reports how many nodes each configured rule
inspects.

Combine with --debug-output to also write flattened.json, model.json,
and stats.json artifacts.`,
		Example: `  # Dump every node
  viewlint debug views/overview/view.json

  # Only bindings
  viewlint debug --nodes expression_binding,tag_binding views/overview/view.json

  # Per-rule node coverage
  viewlint debug --analyze-rules views/overview/view.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(cmd, args, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Nodes, "nodes", nil, "Node kinds to dump (default: all)")
	cmd.Flags().BoolVar(&opts.AnalyzeRules, "analyze-rules", false, "Report per-rule node coverage")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	return cmd
}

func runDebug(cmd *cobra.Command, args []string, opts *DebugOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	files, err := resolveFiles(args, cfg)
	if err != nil {
		return err
	}

	kinds, err := parseKinds(opts.Nodes)
	if err != nil {
		return err
	}

	eng, _ := lint.NewEngine(cfg.LintConfig())

	for _, path := range files {
		doc, err := flatten.FlattenFile(path)
		if err != nil {
			return err
		}

		if cfg.DebugDir != "" {
			if err := writeDebugArtifacts(cfg.DebugDir, path, doc, eng); err != nil {
				return err
			}
		}

		if opts.AnalyzeRules {
			if err := renderRuleImpact(r, path, eng.AnalyzeRuleImpact(doc)); err != nil {
				return err
			}
			continue
		}
		if err := renderNodeDump(r, path, eng.DebugNodes(doc, kinds)); err != nil {
			return err
		}
	}
	return nil
}

func parseKinds(names []string) ([]model.NodeKind, error) {
	var kinds []model.NodeKind
	for _, name := range names {
		kind, ok := model.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown node kind %q", name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func renderNodeDump(r *output.Renderer, path string, dumps []lint.NodeDump) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"path": path, "nodes": dumps})
	}

	r.Println(r.Styles().FilePath.Render(path))
	r.Println("")
	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Path", "Kind", "Summary"})
	for _, d := range dumps {
		t.AppendRow(table.Row{d.Path, d.Kind, d.Summary})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	r.Println("")
	return nil
}

func renderRuleImpact(r *output.Renderer, path string, impacts []lint.RuleImpact) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"path": path, "rules": impacts})
	}

	r.Println(r.Styles().FilePath.Render(path))
	r.Println("")
	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rule", "Target Kinds", "Applicable Nodes"})
	for _, imp := range impacts {
		t.AppendRow(table.Row{imp.Rule, strings.Join(imp.TargetKinds, ", "), imp.ApplicableNodes})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	r.Println("")
	return nil
}
