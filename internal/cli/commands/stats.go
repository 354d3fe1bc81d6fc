package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/perspective-labs/viewlint/internal/cli/output"
	"github.com/perspective-labs/viewlint/pkg/flatten"
	"github.com/perspective-labs/viewlint/pkg/lint"
	_ "github.com/perspective-labs/viewlint/pkg/lint/rules" // register built-in rules
	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats [files...]",
		Short: "Show model statistics for view files",
		Long: `Flatten each view and report node counts without running any
lint rule: how many components, properties, bindings, and scripts the
model contains, components grouped by type, and how many nodes each
configured rule would inspect.`,
		Example: `  # Statistics for one view
  viewlint stats views/overview/view.json

  # Machine-readable output
  viewlint stats --format json views/overview/view.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, args, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text, markdown, json")
	return cmd
}

func runStats(cmd *cobra.Command, args []string, format string) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	if format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
	}

	files, err := resolveFiles(args, cfg)
	if err != nil {
		return err
	}

	eng, _ := lint.NewEngine(cfg.LintConfig())

	type fileStats struct {
		Path  string           `json:"path"`
		Stats *lint.Statistics `json:"stats"`
	}
	var all []fileStats
	for _, path := range files {
		doc, err := flatten.FlattenFile(path)
		if err != nil {
			return err
		}
		all = append(all, fileStats{Path: path, Stats: eng.ModelStatistics(doc)})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(all)
	}

	markdown := r.EffectiveMode() == output.ModeMarkdown
	for _, fs := range all {
		r.Println(r.Styles().FilePath.Render(fs.Path))
		r.Println("")
		renderStatsTable(r, fs.Stats, markdown)
		r.Println("")
	}
	return nil
}

func renderStatsTable(r *output.Renderer, stats *lint.Statistics, markdown bool) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})

	t.AppendRow(table.Row{"Total nodes", stats.TotalNodes})
	for _, kind := range sortedKeys(stats.NodeKinds) {
		t.AppendRow(table.Row{fmt.Sprintf("Nodes: %s", kind), stats.NodeKinds[kind]})
	}
	for _, typ := range sortedKeys(stats.ComponentsByType) {
		t.AppendRow(table.Row{fmt.Sprintf("Component type: %s", typ), stats.ComponentsByType[typ]})
	}
	for _, rule := range sortedKeys(stats.RuleCoverage) {
		t.AppendRow(table.Row{fmt.Sprintf("Rule coverage: %s", rule), stats.RuleCoverage[rule]})
	}

	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
