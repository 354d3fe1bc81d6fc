package commands

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/perspective-labs/viewlint/internal/cli/config"
	"github.com/perspective-labs/viewlint/internal/cli/output"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's config
// and logger.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back
// to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	jobs := config.DefaultJobs
	if v := os.Getenv("VIEWLINT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			jobs = n
		}
	}

	return &config.Config{
		Verbose:      os.Getenv("VIEWLINT_VERBOSE") == "true",
		OutputFormat: getEnvOrDefault("VIEWLINT_OUTPUT", config.DefaultOutput),
		WarningsOnly: os.Getenv("VIEWLINT_WARNINGS_ONLY") == "true",
		Jobs:         jobs,
		DebugDir:     os.Getenv("VIEWLINT_DEBUG_OUTPUT"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
