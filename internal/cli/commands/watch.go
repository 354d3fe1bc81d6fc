package commands

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	_ "github.com/perspective-labs/viewlint/pkg/lint/rules" // register built-in rules
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "watch [files...]",
		Short: "Re-lint view files whenever they change",
		Long: `Run the lint rules once, then keep watching the input files and
re-run on every save. Intended for use alongside the Perspective
designer: keep a terminal open and see findings as views are edited.

Press Ctrl+C to stop.`,
		Example: `  # Watch a view during editing
  viewlint watch views/overview/view.json

  # Watch a whole project
  viewlint watch 'views/**/view.json'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rule names to disable")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Run only specific rules")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *LintOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger
	r := cmdCtx.Renderer

	files, err := resolveFiles(args, cfg)
	if err != nil {
		return err
	}
	lintCfg := buildLintConfig(cfg, opts)

	watched := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[abs] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the parent directories: editors often replace files on
	// save, which drops a watch added on the file itself.
	dirs := make(map[string]bool)
	for abs := range watched {
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func() {
		outcomes := lintFiles(files, lintCfg, cfg, logger)
		renderOutcomes(r, outcomes, cfg.WarningsOnly)
	}

	runOnce()
	r.Errorln(fmt.Sprintf("Watching %d files. Press Ctrl+C to stop.", len(files)))

	return watchLoop(ctx, watcher, watched, runOnce, r.Errorln)
}

// watchLoop re-lints after file changes, debounced so a burst of
// events from one save triggers a single run. The re-lint runs on the
// loop goroutine so renders never interleave.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, watched map[string]bool, runOnce func(), logErr func(...any)) error {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	var changed string

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-debounce.C:
			logErr(fmt.Sprintf("Change detected: %s", filepath.Base(changed)))
			runOnce()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}

			changed = event.Name
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(100 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logErr(fmt.Sprintf("Watcher error: %v", err))
		}
	}
}
