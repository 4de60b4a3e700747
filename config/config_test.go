package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Output != "output.mp4" {
		t.Errorf("Expected output 'output.mp4', got %s", cfg.Output)
	}
	if cfg.SegmentLength != 120 {
		t.Errorf("Expected segment length 120, got %d", cfg.SegmentLength)
	}
	if cfg.Workers != 1 {
		t.Errorf("Expected workers 1, got %d", cfg.Workers)
	}
	if len(cfg.Fillers) != 3 || cfg.Fillers[0] != "phases/voice.mp4" {
		t.Errorf("Unexpected default fillers %v", cfg.Fillers)
	}
	if cfg.Canonical.Width != 1280 || cfg.Canonical.Height != 720 || cfg.Canonical.FrameRate != 30 {
		t.Errorf("Unexpected canonical geometry %+v", cfg.Canonical)
	}
	if cfg.Canonical.Suffix != "_corrected" {
		t.Errorf("Expected suffix '_corrected', got %s", cfg.Canonical.Suffix)
	}
	if cfg.Publish.Enabled() {
		t.Error("Expected publishing disabled by default")
	}
	if cfg.KeepTemp || cfg.DryRun {
		t.Error("Expected keep_temp and dry_run to be false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestCopy(t *testing.T) {
	cfg := DefaultConfig()
	cp := cfg.Copy()
	cp.Fillers[0] = "changed.mp4"
	cp.Canonical.Width = 1
	if cfg.Fillers[0] != "phases/voice.mp4" || cfg.Canonical.Width != 1280 {
		t.Error("Expected copy to be independent of the original")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError bool
		errorText   string
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:        "missing output",
			modify:      func(c *Config) { c.Output = " " },
			expectError: true,
			errorText:   "output file is required",
		},
		{
			name:        "no fillers",
			modify:      func(c *Config) { c.Fillers = nil },
			expectError: true,
			errorText:   "at least one filler",
		},
		{
			name:        "filler name collision",
			modify:      func(c *Config) { c.Fillers = []string{"a/voice.mp4", "b/voice.mp4"} },
			expectError: true,
			errorText:   "share the file name voice.mp4",
		},
		{
			name:        "zero segment length",
			modify:      func(c *Config) { c.SegmentLength = 0 },
			expectError: true,
			errorText:   "segment length must be positive",
		},
		{
			name:        "segment length too long",
			modify:      func(c *Config) { c.SegmentLength = 86401 },
			expectError: true,
			errorText:   "cannot exceed",
		},
		{
			name:        "zero workers",
			modify:      func(c *Config) { c.Workers = 0 },
			expectError: true,
			errorText:   "workers must be at least 1",
		},
		{
			name:        "negative timeout",
			modify:      func(c *Config) { c.ProcessTimeout = -time.Second },
			expectError: true,
			errorText:   "process timeout cannot be negative",
		},
		{
			name:        "zero width",
			modify:      func(c *Config) { c.Canonical.Width = 0 },
			expectError: true,
			errorText:   "width and height must be positive",
		},
		{
			name:        "zero timescale",
			modify:      func(c *Config) { c.Canonical.Timescale = 0 },
			expectError: true,
			errorText:   "timescale must be positive",
		},
		{
			name:        "suffix with separator",
			modify:      func(c *Config) { c.Canonical.Suffix = "/x" },
			expectError: true,
			errorText:   "suffix cannot contain",
		},
		{
			name:        "empty filter entry",
			modify:      func(c *Config) { c.Canonical.Filters = []string{"setsar=1", ""} },
			expectError: true,
			errorText:   "filters cannot contain empty entries",
		},
		{
			name:        "bad log level",
			modify:      func(c *Config) { c.Logging.Level = "loud" },
			expectError: true,
			errorText:   "invalid level 'loud'",
		},
		{
			name:        "bad log format",
			modify:      func(c *Config) { c.Logging.Format = "xml" },
			expectError: true,
			errorText:   "invalid format 'xml'",
		},
		{
			name:        "local publish without base path",
			modify:      func(c *Config) { c.Publish.Type = "local" },
			expectError: true,
			errorText:   "local.base_path required",
		},
		{
			name: "s3 publish",
			modify: func(c *Config) {
				c.Publish.Type = "s3"
				c.Publish.Bucket = "videos"
				c.Publish.S3.Region = "eu-west-1"
			},
		},
		{
			name: "s3 publish with half credentials",
			modify: func(c *Config) {
				c.Publish.Type = "s3"
				c.Publish.Bucket = "videos"
				c.Publish.S3.Region = "eu-west-1"
				c.Publish.S3.AccessKeyID = "AKIA"
			},
			expectError: true,
			errorText:   "must be set together",
		},
		{
			name:        "unknown publish type",
			modify:      func(c *Config) { c.Publish.Type = "ftp" },
			expectError: true,
			errorText:   "invalid type 'ftp'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if tt.expectError && err != nil && tt.errorText != "" {
				if !strings.Contains(err.Error(), tt.errorText) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorText, err.Error())
				}
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	cfg.SegmentLength = -1
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"workers", "segment length", "invalid format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}
