package normalize

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"splicer/command"
	"splicer/internal/testsupport"
)

func TestNewNormalizeBuilder(t *testing.T) {
	builder := NewNormalizeBuilder("/tmp/a/in.mp4", "/tmp/a/in_corrected.mp4")

	if builder.width != 1280 || builder.height != 720 {
		t.Errorf("Expected default resolution 1280x720, got %dx%d", builder.width, builder.height)
	}
	if builder.frameRate != 30 {
		t.Errorf("Expected default frame rate 30, got %d", builder.frameRate)
	}
	if builder.timescale != 1000 {
		t.Errorf("Expected default timescale 1000, got %d", builder.timescale)
	}
	if builder.priority != command.PriorityNormal {
		t.Errorf("Expected default priority %d, got %d", command.PriorityNormal, builder.priority)
	}
}

func TestNormalizeBuilder_DefaultArgs(t *testing.T) {
	args := NewNormalizeBuilder("in.mp4", "in_corrected.mp4").BuildArgs()

	expected := []string{
		"-y",
		"-i", "in.mp4",
		"-vf", "scale=1280:720",
		"-r", "30",
		"-video_track_timescale", "1000",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"in_corrected.mp4",
	}
	if !slices.Equal(args, expected) {
		t.Errorf("BuildArgs() = %v\nwant %v", args, expected)
	}
}

func TestNormalizeBuilder_CustomTarget(t *testing.T) {
	builder := NewNormalizeBuilder("in.mp4", "out.mp4").
		SetResolution(1920, 1080).
		SetFrameRate(25).
		SetTimescale(90000).
		SetCodec("libx265").
		SetCRF(28).
		SetPreset("fast").
		SetAudio("aac", 48000, 2).
		AddFilter("setsar=1").
		AddExtraArgs("-movflags", "+faststart")

	argsStr := strings.Join(builder.BuildArgs(), " ")

	for _, want := range []string{
		"-vf scale=1920:1080,setsar=1",
		"-r 25",
		"-video_track_timescale 90000",
		"-c:v libx265",
		"-crf 28",
		"-preset fast",
		"-ar 48000",
		"-ac 2",
		"-movflags +faststart out.mp4",
	} {
		if !strings.Contains(argsStr, want) {
			t.Errorf("Expected %q in %q", want, argsStr)
		}
	}
}

func TestNormalizeBuilder_OmitsDisabledSettings(t *testing.T) {
	argsStr := strings.Join(NewNormalizeBuilder("in.mp4", "out.mp4").
		SetCodec("").
		SetCRF(-1).
		SetPreset("").
		SetPixelFormat("").
		SetAudio("", 0, 0).
		BuildArgs(), " ")

	for _, flag := range []string{"-c:v", "-crf", "-preset", "-pix_fmt", "-c:a", "-ar", "-ac"} {
		if strings.Contains(argsStr, flag+" ") {
			t.Errorf("Did not expect %s in %q", flag, argsStr)
		}
	}
}

func TestNormalizeBuilder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		builder *NormalizeBuilder
		wantErr string
	}{
		{"valid", NewNormalizeBuilder("in.mp4", "out.mp4"), ""},
		{"zero width", NewNormalizeBuilder("in.mp4", "out.mp4").SetResolution(0, 720), "resolution"},
		{"zero frame rate", NewNormalizeBuilder("in.mp4", "out.mp4").SetFrameRate(0), "frame rate"},
		{"negative timescale", NewNormalizeBuilder("in.mp4", "out.mp4").SetTimescale(-1), "timescale"},
		{"same path", NewNormalizeBuilder("in.mp4", "in.mp4"), "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
			if _, dryErr := tt.builder.DryRun(); dryErr == nil {
				t.Error("Expected DryRun to fail validation too")
			}
		})
	}
}

func TestNormalizeBuilder_Run(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "in_corrected.mp4")
	runner := testsupport.NewFakeRunner()

	builder := NewNormalizeBuilder(filepath.Join(dir, "in.mp4"), out).
		SetBinary("/usr/local/bin/ffmpeg").
		SetRunner(runner)
	if err := builder.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if _, err := os.Stat(out); err != nil {
		t.Errorf("Expected output to exist: %v", err)
	}
	calls := runner.Calls()
	if len(calls) != 1 || calls[0].Binary != "/usr/local/bin/ffmpeg" {
		t.Fatalf("Unexpected calls: %+v", calls)
	}
	if calls[0].Flag("-video_track_timescale") != "1000" {
		t.Errorf("Expected timescale flag, got %v", calls[0].Args)
	}
}

func TestNormalizeBuilder_Metadata(t *testing.T) {
	builder := NewNormalizeBuilder("in.mp4", "out.mp4")
	if builder.GetTaskType() != command.TaskTypeNormalize {
		t.Errorf("Expected normalize task type, got %s", builder.GetTaskType())
	}
	if builder.GetInputPath() != "in.mp4" || builder.GetOutputPath() != "out.mp4" {
		t.Error("Unexpected paths")
	}
	var _ command.Command = builder
}
