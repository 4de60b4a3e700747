package config

import (
	"slices"
	"time"

	"splicer/normalizer"
	"splicer/publish"
	"splicer/segmenter"
)

// Config holds all splicer configuration options
type Config struct {
	Output  string   `mapstructure:"output" yaml:"output"`
	Fillers []string `mapstructure:"fillers" yaml:"fillers"` // clips placed before every segment, cycled

	// Execution settings
	SegmentLength  int           `mapstructure:"segment_length" yaml:"segment_length"`   // seconds per segment
	Workers        int           `mapstructure:"workers" yaml:"workers"`                 // parallel encodes, 0 = one per CPU
	TempDir        string        `mapstructure:"temp_dir" yaml:"temp_dir"`               // empty = system default
	ProcessTimeout time.Duration `mapstructure:"process_timeout" yaml:"process_timeout"` // 0 = no limit

	// Engine binaries
	FFmpegPath  string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path" yaml:"ffprobe_path"`

	// Encoding every clip is normalized to before concatenation
	Canonical normalizer.Canonical `mapstructure:"canonical" yaml:"canonical"`

	Logging LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Publish publish.Config `mapstructure:"publish" yaml:"publish"`

	// Behavioral flags
	KeepTemp bool `mapstructure:"keep_temp" yaml:"keep_temp"` // leave temp directories behind
	DryRun   bool `mapstructure:"dry_run" yaml:"dry_run"`     // plan without running ffmpeg
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // auto, console, json
}

// DefaultFillers is the filler set used when none is configured.
func DefaultFillers() []string {
	return []string{"phases/voice.mp4", "phases/touch.mp4", "phases/hold.mp4"}
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output:  "output.mp4",
		Fillers: DefaultFillers(),

		SegmentLength:  segmenter.DefaultSegmentLength,
		Workers:        1,   // one encode at a time
		ProcessTimeout: 0,

		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",

		Canonical: normalizer.DefaultCanonical(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},

		Publish: publish.Config{
			Type: "none",
		},

		KeepTemp: false,
		DryRun:   false,
	}
}

// Copy creates a deep copy of the config
func (c *Config) Copy() *Config {
	cp := *c
	cp.Fillers = slices.Clone(c.Fillers)
	cp.Canonical.Filters = slices.Clone(c.Canonical.Filters)
	cp.Canonical.ExtraArgs = slices.Clone(c.Canonical.ExtraArgs)
	return &cp
}

// LogLevelValues returns valid logging.level values
func LogLevelValues() []string {
	return []string{"debug", "info", "warn", "error"}
}

// LogFormatValues returns valid logging.format values
func LogFormatValues() []string {
	return []string{"auto", "console", "json"}
}

// PublishTypeValues returns valid publish.type values
func PublishTypeValues() []string {
	return []string{"none", "local", "s3"}
}
