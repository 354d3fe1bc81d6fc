package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"
	"github.com/perspective-labs/viewlint/pkg/flatten"
	"github.com/perspective-labs/viewlint/pkg/lint"
)

// writeDebugArtifacts dumps the intermediate representations for one
// input file under dir: the flattened path/value pairs, the rebuilt
// model, node statistics, and a run metadata file. Each input gets its
// own subdirectory derived from its path.
func writeDebugArtifacts(dir, path string, doc *flatten.Document, eng *lint.Engine) error {
	sub := filepath.Join(dir, artifactDirName(path))
	if err := os.MkdirAll(sub, 0750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(sub, "flattened.json"), []byte(doc.JSON()), 0600); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(sub, "model.json"), []byte(eng.SnapshotModel(doc)), 0600); err != nil {
		return err
	}

	stats := oj.JSON(eng.ModelStatistics(doc), &oj.Options{Sort: true, Indent: 2})
	if err := os.WriteFile(filepath.Join(sub, "stats.json"), []byte(stats), 0600); err != nil {
		return err
	}

	meta := oj.JSON(map[string]any{
		"run_id":    uuid.NewString(),
		"source":    path,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, &oj.Options{Sort: true, Indent: 2})
	return os.WriteFile(filepath.Join(sub, "run.json"), []byte(meta), 0600)
}

// artifactDirName turns an input path into a filesystem-safe
// directory name.
func artifactDirName(path string) string {
	clean := filepath.ToSlash(filepath.Clean(path))
	clean = strings.TrimPrefix(clean, "/")
	return strings.NewReplacer("/", "_", ":", "_").Replace(clean)
}
