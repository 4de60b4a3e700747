package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"splicer/command"
	"splicer/config"
	"splicer/ffprobe"
)

// Runs the whole pipeline against the real engine on generated clips.
func TestRun_RealEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping engine integration test in short mode")
	}
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}

	dir := t.TempDir()
	runner := command.NewExecRunner(zap.NewNop(), 0)
	ctx := context.Background()

	generate := func(path string, seconds, size string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		_, err := runner.Run(ctx, "ffmpeg", "-y", "-v", "error",
			"-f", "lavfi", "-i", "testsrc=duration="+seconds+":size="+size+":rate=25",
			"-f", "lavfi", "-i", "sine=frequency=440:duration="+seconds,
			"-shortest", "-c:v", "libx264", "-preset", "ultrafast", "-c:a", "aac", path)
		if err != nil {
			t.Skipf("cannot generate test clip: %v", err)
		}
	}

	inputs := []string{filepath.Join(dir, "in", "first.mp4"), filepath.Join(dir, "in", "second.mp4")}
	generate(inputs[0], "5", "320x240")
	generate(inputs[1], "4", "160x120")
	fillers := []string{filepath.Join(dir, "phases", "voice.mp4"), filepath.Join(dir, "phases", "hold.mov")}
	generate(fillers[0], "1", "320x240")
	generate(fillers[1], "1", "640x480")

	cfg := config.DefaultConfig()
	cfg.Output = filepath.Join(dir, "output.mp4")
	cfg.Fillers = fillers
	cfg.TempDir = filepath.Join(dir, "tmp")
	cfg.SegmentLength = 2
	cfg.Workers = 2
	cfg.Canonical.Width, cfg.Canonical.Height = 320, 240
	cfg.Canonical.FrameRate = 25
	cfg.Canonical.Preset = "ultrafast"

	result, err := New(cfg, runner, zap.NewNop()).Run(ctx, inputs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// ceil(5/2) + ceil(4/2) segments, each preceded by a filler
	if len(result.Segments) != 5 {
		t.Errorf("Expected 5 segments, got %d", len(result.Segments))
	}
	if len(result.Sequence) != 10 {
		t.Errorf("Expected 10 clips in the sequence, got %d", len(result.Sequence))
	}

	info, err := ffprobe.NewProber(runner, "", nil).Inspect(ctx, cfg.Output)
	if err != nil {
		t.Fatalf("Inspect output failed: %v", err)
	}
	if w, h := info.Resolution(); w != 320 || h != 240 {
		t.Errorf("Expected 320x240 output, got %dx%d", w, h)
	}
	duration, err := info.GetDuration()
	if err != nil {
		t.Fatalf("GetDuration failed: %v", err)
	}
	// 9s of source plus five 1s fillers, allowing for keyframe-aligned cuts
	if duration < 12 || duration > 16 {
		t.Errorf("Unexpected output duration %.2fs", duration)
	}

	entries, err := os.ReadDir(cfg.TempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected temp dir to be empty, found %d entries", len(entries))
	}
}
