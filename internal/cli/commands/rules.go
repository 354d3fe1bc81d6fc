package commands

import (
	"fmt"
	"strings"

	"github.com/perspective-labs/viewlint/internal/cli/output"
	"github.com/perspective-labs/viewlint/pkg/lint"
	_ "github.com/perspective-labs/viewlint/pkg/lint/rules" // register built-in rules
	"github.com/spf13/cobra"
)

// ruleInfo is the presentable description of a registered rule.
type ruleInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	TargetKinds []string `json:"target_kinds"`
	ConfigKeys  []string `json:"config_keys,omitempty"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "rules [rule-name]",
		Short: "List available lint rules",
		Long: `List all registered lint rules with their default severity, the
node kinds they inspect, and the options they accept in viewlint.json.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all rules
  viewlint rules

  # Show details for a specific rule
  viewlint rules PollingInterval

  # Output as JSON
  viewlint rules --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0], format)
			}
			return listRules(cmd, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text, markdown, json")
	return cmd
}

// describeRule constructs the rule with default options to read its
// metadata.
func describeRule(name string) (*ruleInfo, error) {
	rule, ok, err := lint.NewRule(name, nil)
	if !ok {
		return nil, fmt.Errorf("rule %q not found", name)
	}
	if err != nil {
		return nil, err
	}

	info := &ruleInfo{
		Name:        rule.Name(),
		Description: rule.Description(),
		Severity:    rule.DefaultSeverity().String(),
		ConfigKeys:  rule.ConfigKeys(),
	}
	for _, kind := range rule.TargetKinds() {
		info.TargetKinds = append(info.TargetKinds, string(kind))
	}
	return info, nil
}

func listRules(cmd *cobra.Command, format string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	if format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
	}

	var infos []ruleInfo
	for _, name := range lint.RuleNames() {
		info, err := describeRule(name)
		if err != nil {
			return err
		}
		infos = append(infos, *info)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(infos)
	case output.ModeMarkdown:
		r.Printf("# Lint Rules (%d)\n\n", len(infos))
		for _, info := range infos {
			r.Printf("## %s\n\n", info.Name)
			r.Printf("%s\n\n", info.Description)
			r.Printf("- Default severity: %s\n", info.Severity)
			r.Printf("- Targets: %s\n", strings.Join(info.TargetKinds, ", "))
			if len(info.ConfigKeys) > 0 {
				r.Printf("- Options: %s\n", strings.Join(info.ConfigKeys, ", "))
			}
			r.Println("")
		}
		return nil
	default:
		styles := r.Styles()
		r.Println("")
		r.Println(styles.Header1.Render(fmt.Sprintf("Lint Rules (%d)", len(infos))))
		r.Println("")
		for _, info := range infos {
			r.Printf("  %s  %s\n", styles.Bold.Render(info.Name), info.Description)
			r.Printf("    %s\n", styles.Muted.Render(fmt.Sprintf("severity=%s targets=%s",
				info.Severity, strings.Join(info.TargetKinds, ","))))
		}
		r.Println("")
		return nil
	}
}

func showRule(cmd *cobra.Command, name, format string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	if format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
	}

	info, err := describeRule(name)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(info)
	case output.ModeMarkdown:
		r.Printf("# %s\n\n", info.Name)
		r.Printf("%s\n\n", info.Description)
		r.Printf("- Default severity: %s\n", info.Severity)
		r.Printf("- Targets: %s\n", strings.Join(info.TargetKinds, ", "))
		if len(info.ConfigKeys) > 0 {
			r.Printf("- Options: %s\n", strings.Join(info.ConfigKeys, ", "))
		}
		return nil
	default:
		styles := r.Styles()
		r.Println("")
		r.Println(styles.Header1.Render(info.Name))
		r.Println("")
		r.Println(info.Description)
		r.Println("")
		r.Printf("%s %s\n", styles.Bold.Render("Default severity:"), info.Severity)
		r.Printf("%s %s\n", styles.Bold.Render("Targets:"), strings.Join(info.TargetKinds, ", "))
		if len(info.ConfigKeys) > 0 {
			r.Printf("%s %s\n", styles.Bold.Render("Options:"), strings.Join(info.ConfigKeys, ", "))
		}
		return nil
	}
}
