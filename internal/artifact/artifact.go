// Package artifact writes run outputs to disk: per-call run directories with
// input, output, and metadata, improved document revisions, and the exported
// tracking file for a refinement run.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseDir is the output root used when none is configured.
const DefaultBaseDir = "docs/output"

// Saver writes artifacts under a base directory.
type Saver struct {
	baseDir string
	now     func() time.Time
}

// NewSaver creates a Saver rooted at baseDir (DefaultBaseDir when empty).
func NewSaver(baseDir string) *Saver {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	return &Saver{baseDir: baseDir, now: time.Now}
}

// BaseDir returns the output root.
func (s *Saver) BaseDir() string {
	return s.baseDir
}

// SaveRunData persists input, output and metadata of a single evaluate or
// improve call under <base>/<runType>_<timestamp>/ and returns the directory.
func (s *Saver) SaveRunData(runType, input, output string, meta map[string]any) (string, error) {
	timestamp := s.now().UTC().Format("20060102T150405Z")
	runDir := filepath.Join(s.baseDir, fmt.Sprintf("%s_%s", runType, timestamp))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(runDir, "input.txt"), []byte(input), 0644); err != nil {
		return "", fmt.Errorf("failed to write run input: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "output.txt"), []byte(output), 0644); err != nil {
		return "", fmt.Errorf("failed to write run output: %w", err)
	}

	if meta == nil {
		meta = map[string]any{}
	}
	meta["run_type"] = runType
	meta["timestamp"] = timestamp
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "metadata.json"), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write run metadata: %w", err)
	}

	return runDir, nil
}

// ImprovedPath returns the output path for the improved document at the given
// iteration: <base>/<stem>/<stem>_iterN<ext>. An existing _iterN suffix on
// the input stem is stripped so re-running on a produced revision does not
// stack suffixes.
func (s *Saver) ImprovedPath(docPath string, iteration int) string {
	base := filepath.Base(docPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".md"
	}

	if idx := strings.Index(stem, "_iter"); idx >= 0 {
		stem = stem[:idx]
	}

	return filepath.Join(s.baseDir, stem, fmt.Sprintf("%s_iter%d%s", stem, iteration, ext))
}

// WriteDocument writes content to path, creating parent directories.
func (s *Saver) WriteDocument(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// WriteTracking writes the exported run history next to the document's
// revisions as <base>/<stem>/<stem>_tracking.json and returns the path.
func (s *Saver) WriteTracking(docPath string, data []byte) (string, error) {
	base := filepath.Base(docPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if idx := strings.Index(stem, "_iter"); idx >= 0 {
		stem = stem[:idx]
	}

	path := filepath.Join(s.baseDir, stem, fmt.Sprintf("%s_tracking.json", stem))
	if err := s.WriteDocument(path, string(data)); err != nil {
		return "", fmt.Errorf("failed to write tracking file: %w", err)
	}
	return path, nil
}
