// Package config provides configuration management for the viewlint
// CLI. Settings come from a config file (viewlint.json by default,
// YAML accepted), VIEWLINT_ environment variables, and command flags,
// with precedence flags > env > file > defaults.
package config

import (
	"github.com/perspective-labs/viewlint/pkg/lint"
)

// RuleSetting configures one lint rule.
type RuleSetting struct {
	// Enabled turns the rule off when explicitly false. Absent means
	// enabled.
	Enabled *bool `koanf:"enabled"`
	// Severity overrides the rule's default severity.
	Severity string `koanf:"severity"`
	// Kwargs are passed to the rule's factory.
	Kwargs map[string]any `koanf:"kwargs"`
}

// Config holds all CLI configuration options.
type Config struct {
	Files        []string               `koanf:"files"`
	Verbose      bool                   `koanf:"verbose"`
	OutputFormat string                 `koanf:"output"`
	WarningsOnly bool                   `koanf:"warnings_only"`
	Jobs         int                    `koanf:"jobs"`
	DebugDir     string                 `koanf:"debug_output"`
	Rules        map[string]RuleSetting `koanf:"rules"`
}

// Default configuration values.
const (
	DefaultOutput = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultJobs   = 1
)

// LintConfig translates the CLI rule settings into the engine's
// configuration.
func (c *Config) LintConfig() *lint.Config {
	lintCfg := lint.NewConfig()
	for name, setting := range c.Rules {
		if setting.Enabled != nil && !*setting.Enabled {
			lintCfg.Disable(name)
			continue
		}
		if setting.Severity != "" {
			if sev, ok := lint.ParseSeverity(setting.Severity); ok {
				lintCfg.SetSeverity(name, sev)
			}
		}
		if len(setting.Kwargs) > 0 {
			lintCfg.SetRuleOptions(name, setting.Kwargs)
		}
	}
	return lintCfg
}
