package concatenator

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"splicer/command"
	"splicer/models"
)

const stage = "concatenate"

// Concatenator joins normalized clips into one file using ffmpeg's concat
// demuxer. Streams are copied, never re-encoded, so every input must share
// the canonical encoding; the NormalizedClip type carries that guarantee.
type Concatenator struct {
	runner  command.Runner
	binary  string
	tempDir string
	logger  *zap.Logger
}

// NewConcatenator creates a new concatenator
func NewConcatenator(runner command.Runner, logger *zap.Logger) *Concatenator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Concatenator{
		runner: runner,
		binary: "ffmpeg",
		logger: logger,
	}
}

// SetBinary overrides the ffmpeg executable.
func (c *Concatenator) SetBinary(binary string) *Concatenator {
	if binary != "" {
		c.binary = binary
	}
	return c
}

// SetTempDir sets where manifests are created. Empty means os.TempDir().
func (c *Concatenator) SetTempDir(dir string) *Concatenator {
	c.tempDir = dir
	return c
}

// BuildArgs returns the ffmpeg arguments joining the clips listed in
// manifestPath into outputPath.
func (c *Concatenator) BuildArgs(manifestPath, outputPath string) []string {
	return []string{
		"-y", // Overwrite output file
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy", // Copy without re-encoding
		outputPath,
	}
}

// Concatenate writes a manifest for clips, runs the engine in concat mode and
// removes the manifest on every path out.
//
// An empty sequence or a non-zero engine exit fails with
// models.ErrConcatenation. A partially written output file is left in place.
func (c *Concatenator) Concatenate(ctx context.Context, clips iter.Seq[models.NormalizedClip], outputPath string) error {
	manifest, err := os.CreateTemp(c.tempDir, "concat-*.txt")
	if err != nil {
		return models.NewStageError(stage, outputPath, models.ErrConcatenation,
			fmt.Errorf("failed to create manifest: %w", err))
	}
	manifestPath := manifest.Name()
	defer os.Remove(manifestPath)

	w := bufio.NewWriter(manifest)
	count, err := WriteManifest(w, clips)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := manifest.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return models.NewStageError(stage, outputPath, models.ErrConcatenation,
			fmt.Errorf("failed to write manifest: %w", err))
	}
	if count == 0 {
		return models.NewStageError(stage, outputPath, models.ErrConcatenation,
			fmt.Errorf("no clips to concatenate"))
	}

	c.logger.Info("combining clips", zap.Int("clips", count), zap.String("output", outputPath))

	if err := c.runConcat(ctx, manifestPath, outputPath); err != nil {
		return models.NewStageError(stage, outputPath, models.ErrConcatenation, err)
	}
	return nil
}

// Preview renders the manifest and command line Concatenate would use,
// without touching the filesystem. The manifest path is shown as a
// placeholder.
func (c *Concatenator) Preview(clips iter.Seq[models.NormalizedClip], outputPath string) (string, string, error) {
	var buf bytes.Buffer
	if _, err := WriteManifest(&buf, clips); err != nil {
		return "", "", models.NewStageError(stage, outputPath, models.ErrConcatenation, err)
	}
	line := command.FormatCommandLine(c.binary, c.BuildArgs("<manifest>", outputPath))
	return buf.String(), line, nil
}

// runConcat executes ffmpeg concat operation
func (c *Concatenator) runConcat(ctx context.Context, manifestPath, outputPath string) error {
	if _, err := c.runner.Run(ctx, c.binary, c.BuildArgs(manifestPath, outputPath)...); err != nil {
		return err
	}

	// Verify output file was created
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	return nil
}

// WriteManifest writes one `file '<path>'` line per clip, in order, and
// returns how many lines were written. Paths are made absolute.
func WriteManifest(w io.Writer, clips iter.Seq[models.NormalizedClip]) (int, error) {
	count := 0
	for clip := range clips {
		if clip.IsZero() {
			return count, fmt.Errorf("clip %d is not a normalized clip", count+1)
		}
		absPath, err := filepath.Abs(clip.Path())
		if err != nil {
			return count, fmt.Errorf("failed to get absolute path for %s: %w", clip.Path(), err)
		}
		escaped, err := EscapePath(absPath)
		if err != nil {
			return count, err
		}
		if _, err := fmt.Fprintf(w, "file '%s'\n", escaped); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// EscapePath prepares a path for a single-quoted manifest entry. Each single
// quote becomes '\'' (close quote, escaped quote, reopen). Paths containing
// line breaks cannot be represented and are rejected.
func EscapePath(path string) (string, error) {
	if strings.ContainsAny(path, "\n\r") {
		return "", fmt.Errorf("%w: path contains a line break: %q", models.ErrInvalidParameter, path)
	}
	return strings.ReplaceAll(path, "'", `'\''`), nil
}
