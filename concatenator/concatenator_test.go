package concatenator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"

	"splicer/internal/testsupport"
	"splicer/models"
)

func normalized(paths ...string) []models.NormalizedClip {
	clips := make([]models.NormalizedClip, len(paths))
	for i, p := range paths {
		clips[i] = models.AssumeNormalized(models.NewClipRef(p))
	}
	return clips
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
		wantErr  bool
	}{
		{name: "plain", path: "/tmp/a.mp4", expected: "/tmp/a.mp4"},
		{name: "spaces kept", path: "/tmp/my clip.mp4", expected: "/tmp/my clip.mp4"},
		{name: "single quote", path: "/tmp/it's.mp4", expected: `/tmp/it'\''s.mp4`},
		{name: "two quotes", path: "/tmp/'a'.mp4", expected: `/tmp/'\''a'\''.mp4`},
		{name: "newline", path: "/tmp/a\nb.mp4", wantErr: true},
		{name: "carriage return", path: "/tmp/a\rb.mp4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EscapePath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidParameter) {
					t.Errorf("Expected ErrInvalidParameter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("EscapePath(%q) = %q; want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestWriteManifest(t *testing.T) {
	var buf bytes.Buffer
	clips := normalized("/tmp/a/F1_corrected.mp4", "/tmp/b/my clip_corrected.mp4", "/tmp/b/it's_corrected.mp4")

	n, err := WriteManifest(&buf, slices.Values(clips))
	if err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 lines, got %d", n)
	}

	expected := "file '/tmp/a/F1_corrected.mp4'\n" +
		"file '/tmp/b/my clip_corrected.mp4'\n" +
		"file '/tmp/b/it'\\''s_corrected.mp4'\n"
	if buf.String() != expected {
		t.Errorf("Manifest mismatch:\n%s\nwant:\n%s", buf.String(), expected)
	}
}

func TestWriteManifest_RelativePathsMadeAbsolute(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WriteManifest(&buf, slices.Values(normalized("clip_corrected.mp4"))); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	want := "file '" + filepath.Join(wd, "clip_corrected.mp4") + "'\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestWriteManifest_RejectsZeroClip(t *testing.T) {
	var buf bytes.Buffer
	clips := []models.NormalizedClip{{}}
	if _, err := WriteManifest(&buf, slices.Values(clips)); err == nil {
		t.Error("Expected error for a clip that was never normalized")
	}
}

func TestConcatenate(t *testing.T) {
	dir := t.TempDir()
	manifestDir := t.TempDir()
	runner := testsupport.NewFakeRunner()
	output := filepath.Join(dir, "output.mp4")

	c := NewConcatenator(runner, zap.NewNop()).SetTempDir(manifestDir)
	clips := normalized("/tmp/x/F1_corrected.mp4", "/tmp/x/s-1-of-2_corrected.mp4")

	if err := c.Concatenate(context.Background(), slices.Values(clips), output); err != nil {
		t.Fatalf("Concatenate failed: %v", err)
	}

	if _, err := os.Stat(output); err != nil {
		t.Errorf("Expected output file: %v", err)
	}

	calls := runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected one engine call, got %d", len(calls))
	}
	call := calls[0]
	if call.Flag("-f") != "concat" || call.Flag("-safe") != "0" || call.Flag("-c") != "copy" {
		t.Errorf("Unexpected concat args: %v", call.Args)
	}
	if !strings.HasPrefix(filepath.Base(call.Flag("-i")), "concat-") {
		t.Errorf("Expected a uniquely named manifest, got %s", call.Flag("-i"))
	}

	manifests := runner.Manifests()
	if len(manifests) != 1 {
		t.Fatalf("Expected one manifest, got %d", len(manifests))
	}
	if manifests[0] != "file '/tmp/x/F1_corrected.mp4'\nfile '/tmp/x/s-1-of-2_corrected.mp4'\n" {
		t.Errorf("Unexpected manifest:\n%s", manifests[0])
	}

	if left := testsupport.EntriesIn(t, manifestDir, "concat-*"); len(left) != 0 {
		t.Errorf("Expected manifest to be removed, found %v", left)
	}
}

func TestConcatenate_EngineFailureRemovesManifest(t *testing.T) {
	manifestDir := t.TempDir()
	runner := testsupport.NewFakeRunner()
	runner.FailOn = func(string, []string) error { return errors.New("exit status 1") }

	err := NewConcatenator(runner, nil).
		SetTempDir(manifestDir).
		Concatenate(context.Background(), slices.Values(normalized("/tmp/a.mp4")), filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, models.ErrConcatenation) {
		t.Fatalf("Expected ErrConcatenation, got %v", err)
	}
	if left := testsupport.EntriesIn(t, manifestDir, "concat-*"); len(left) != 0 {
		t.Errorf("Expected manifest to be removed after failure, found %v", left)
	}
}

func TestConcatenate_Empty(t *testing.T) {
	manifestDir := t.TempDir()
	runner := testsupport.NewFakeRunner()

	err := NewConcatenator(runner, nil).
		SetTempDir(manifestDir).
		Concatenate(context.Background(), slices.Values([]models.NormalizedClip{}), "out.mp4")
	if !errors.Is(err, models.ErrConcatenation) {
		t.Fatalf("Expected ErrConcatenation, got %v", err)
	}
	if len(runner.Calls()) != 0 {
		t.Error("Expected no engine call for an empty sequence")
	}
	if left := testsupport.EntriesIn(t, manifestDir, "concat-*"); len(left) != 0 {
		t.Errorf("Expected manifest to be removed, found %v", left)
	}
}

func TestConcatenate_BadPath(t *testing.T) {
	manifestDir := t.TempDir()
	runner := testsupport.NewFakeRunner()

	err := NewConcatenator(runner, nil).
		SetTempDir(manifestDir).
		Concatenate(context.Background(), slices.Values(normalized("/tmp/bad\nname.mp4")), "out.mp4")
	if !errors.Is(err, models.ErrConcatenation) {
		t.Fatalf("Expected ErrConcatenation, got %v", err)
	}
	if !errors.Is(err, models.ErrInvalidParameter) {
		t.Errorf("Expected the invalid path cause to be kept, got %v", err)
	}
	if len(runner.Calls()) != 0 {
		t.Error("Expected no engine call for a rejected path")
	}
	if left := testsupport.EntriesIn(t, manifestDir, "concat-*"); len(left) != 0 {
		t.Errorf("Expected manifest to be removed, found %v", left)
	}
}

func TestConcatenate_ManifestsAreUnique(t *testing.T) {
	manifestDir := t.TempDir()
	runner := testsupport.NewFakeRunner()
	c := NewConcatenator(runner, nil).SetTempDir(manifestDir)
	outDir := t.TempDir()

	for _, name := range []string{"one.mp4", "two.mp4"} {
		if err := c.Concatenate(context.Background(), slices.Values(normalized("/tmp/a.mp4")), filepath.Join(outDir, name)); err != nil {
			t.Fatalf("Concatenate failed: %v", err)
		}
	}

	calls := runner.Calls()
	if calls[0].Flag("-i") == calls[1].Flag("-i") {
		t.Error("Expected a fresh manifest per invocation")
	}
}

func TestPreview(t *testing.T) {
	manifest, line, err := NewConcatenator(nil, nil).
		SetBinary("/opt/ffmpeg").
		Preview(slices.Values(normalized("/tmp/a.mp4", "/tmp/b.mp4")), "out.mp4")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if manifest != "file '/tmp/a.mp4'\nfile '/tmp/b.mp4'\n" {
		t.Errorf("Unexpected manifest %q", manifest)
	}
	if line != "/opt/ffmpeg -y -f concat -safe 0 -i '<manifest>' -c copy out.mp4" {
		t.Errorf("Unexpected command line %q", line)
	}
}
