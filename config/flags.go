package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps each flag that overrides a config value to its config key.
var flagKeys = map[string]string{
	"output":          "output",
	"filler":          "fillers",
	"workers":         "workers",
	"segment-length":  "segment_length",
	"keep-temp":       "keep_temp",
	"dry-run":         "dry_run",
	"temp-dir":        "temp_dir",
	"process-timeout": "process_timeout",
	"ffmpeg":          "ffmpeg_path",
	"ffprobe":         "ffprobe_path",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
}

// RegisterFlags declares every configuration flag on fs. Defaults shown in
// help text come from DefaultConfig; a flag only overrides the config file
// when the user sets it.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.StringP("config", "c", "", "Path to config file (default: search ./splicer.yaml, ~/.splicer/config.yaml, /etc/splicer/config.yaml)")

	fs.StringP("output", "o", d.Output, "Output file path")
	fs.StringArray("filler", nil, "Filler clip placed before each segment, repeatable (replaces the configured set)")

	fs.Int("workers", d.Workers, fmt.Sprintf("Parallel normalization encodes, 0 = one per CPU (%d here)", runtime.NumCPU()))
	fs.Int("segment-length", d.SegmentLength, "Target segment length in seconds")
	fs.String("temp-dir", d.TempDir, "Directory for temporary files (default: system temp dir)")
	fs.Duration("process-timeout", d.ProcessTimeout, "Kill an ffmpeg/ffprobe run after this long, 0 = no limit")
	fs.String("ffmpeg", d.FFmpegPath, "ffmpeg executable")
	fs.String("ffprobe", d.FFprobePath, "ffprobe executable")

	fs.Bool("keep-temp", d.KeepTemp, "Keep temporary segment and filler directories")
	fs.Bool("dry-run", d.DryRun, "Probe inputs and print the plan without encoding")

	fs.String("log-level", d.Logging.Level, "Log level: debug, info, warn, error")
	fs.String("log-format", d.Logging.Format, "Log format: auto, console, json")
}

// BindFlags connects the registered flags to their config keys. Flags absent
// from fs are skipped.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// ConfigFlag returns the value of --config, or "" when unset.
func ConfigFlag(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	path, err := fs.GetString("config")
	if err != nil {
		return ""
	}
	return path
}
