package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perspective-labs/viewlint/internal/cli/config"
	"github.com/perspective-labs/viewlint/internal/cli/output"
	"github.com/perspective-labs/viewlint/internal/testutil"
)

const tinyView = `{
  "root": {
    "children": [
      {"meta": {"name": "TitleLabel"}, "props": {"text": "hi"}, "type": "ia.display.label"}
    ],
    "meta": {"name": "root"},
    "type": "ia.container.coord"
  }
}`

func writeView(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestResolveFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeView(t, dir, "a.json", tinyView)
	b := writeView(t, dir, "b.json", tinyView)

	files, err := resolveFiles([]string{filepath.Join(dir, "*.json")}, &config.Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)
}

func TestResolveFilesDeduplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeView(t, dir, "a.json", tinyView)

	files, err := resolveFiles([]string{a}, &config.Config{Files: []string{filepath.Join(dir, "*.json")}})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, files)
}

func TestResolveFilesRecursiveGlob(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "views", "overview")
	require.NoError(t, os.MkdirAll(nested, 0750))
	view := writeView(t, nested, "view.json", tinyView)
	writeView(t, nested, "thumbnail.json", "{}")

	files, err := resolveFiles([]string{filepath.Join(dir, "**", "view.json")}, &config.Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{view}, files)
}

func TestResolveFilesKeepsLiteralMiss(t *testing.T) {
	files, err := resolveFiles([]string{"no/such/view.json"}, &config.Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"no/such/view.json"}, files)
}

func TestResolveFilesNoInput(t *testing.T) {
	_, err := resolveFiles(nil, &config.Config{})
	assert.Error(t, err)
}

func TestBuildLintConfigRuleFilter(t *testing.T) {
	cfg := &config.Config{}
	lintCfg := buildLintConfig(cfg, &LintOptions{Rules: []string{"PollingInterval"}})

	assert.False(t, lintCfg.IsDisabled("PollingInterval"))
	assert.True(t, lintCfg.IsDisabled("NamePattern"))
	assert.True(t, lintCfg.IsDisabled("ScriptQuality"))
}

func TestLintFilesOutcomes(t *testing.T) {
	dir := t.TempDir()
	good := writeView(t, dir, "good.json", tinyView)
	bad := writeView(t, dir, "bad.json", "{not json")
	missing := filepath.Join(dir, "missing.json")

	cfg := &config.Config{Jobs: 2}
	outcomes := lintFiles([]string{good, bad, missing}, cfg.LintConfig(), cfg, testutil.NewTestLogger(t))

	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.Zero(t, outcomes[0].Results.Total())
	assert.Error(t, outcomes[1].Err)
	assert.Error(t, outcomes[2].Err)
}

func TestRenderOutcomesExitCode(t *testing.T) {
	dir := t.TempDir()
	good := writeView(t, dir, "good.json", tinyView)

	cfg := &config.Config{Jobs: 1}
	outcomes := lintFiles([]string{good}, cfg.LintConfig(), cfg, testutil.NewTestLogger(t))

	var out, errOut bytes.Buffer
	r := output.NewRenderer(&out, &errOut, output.ModeText)
	assert.Equal(t, 0, renderOutcomes(r, outcomes, false))
	assert.Contains(t, out.String(), "No lint issues found")

	out.Reset()
	outcomes = append(outcomes, fileOutcome{Path: "broken.json", Err: os.ErrNotExist})
	assert.Equal(t, 1, renderOutcomes(r, outcomes, false))
	assert.Contains(t, out.String(), "broken.json")
}

func TestWatchLoopDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	view := writeView(t, dir, "view.json", tinyView)
	abs, err := filepath.Abs(view)
	require.NoError(t, err)

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer func() { _ = watcher.Close() }()
	require.NoError(t, watcher.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, watcher, map[string]bool{abs: true},
			func() { runs <- struct{}{} }, func(...any) {})
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(view, []byte(tinyView), 0600))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("no re-lint after change")
	}

	// The burst of saves collapses into that single run.
	select {
	case <-runs:
		t.Fatal("burst triggered more than one run")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestDescribeRule(t *testing.T) {
	info, err := describeRule("PollingInterval")
	require.NoError(t, err)
	assert.Equal(t, "PollingInterval", info.Name)
	assert.NotEmpty(t, info.Description)
	assert.NotEmpty(t, info.TargetKinds)

	_, err = describeRule("NoSuchRule")
	assert.Error(t, err)
}

func TestArtifactDirName(t *testing.T) {
	assert.Equal(t, "views_overview_view.json", artifactDirName("views/overview/view.json"))
	assert.Equal(t, "views_overview_view.json", artifactDirName("./views//overview/view.json"))
}
