package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"splicer/segmenter"
)

// Validate checks if the configuration is valid. Every problem is reported,
// not just the first.
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.Output) == "" {
		errors = append(errors, "output file is required")
	}

	// Filler set
	if len(c.Fillers) == 0 {
		errors = append(errors, "at least one filler clip is required")
	}
	seen := make(map[string]string, len(c.Fillers))
	for _, f := range c.Fillers {
		if strings.TrimSpace(f) == "" {
			errors = append(errors, "filler path cannot be empty")
			continue
		}
		base := filepath.Base(f)
		if prev, ok := seen[base]; ok {
			errors = append(errors, fmt.Sprintf("fillers %s and %s share the file name %s", prev, f, base))
			continue
		}
		seen[base] = f
	}

	// Execution settings
	if c.SegmentLength <= 0 {
		errors = append(errors, "segment length must be positive")
	} else if c.SegmentLength > segmenter.MaxSegmentLength {
		errors = append(errors, fmt.Sprintf("segment length cannot exceed %d seconds", segmenter.MaxSegmentLength))
	}
	if c.Workers < 1 {
		errors = append(errors, "workers must be at least 1")
	}
	if c.ProcessTimeout < 0 {
		errors = append(errors, "process timeout cannot be negative (use 0 for no limit)")
	}
	if c.FFmpegPath == "" {
		errors = append(errors, "ffmpeg_path is required")
	}
	if c.FFprobePath == "" {
		errors = append(errors, "ffprobe_path is required")
	}

	if err := c.validateCanonical(); err != nil {
		errors = append(errors, fmt.Sprintf("canonical config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.validatePublish(); err != nil {
		errors = append(errors, fmt.Sprintf("publish config: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c *Config) validateCanonical() error {
	var errors []string
	cn := c.Canonical

	if cn.Width <= 0 || cn.Height <= 0 {
		errors = append(errors, "width and height must be positive")
	}
	if cn.FrameRate <= 0 {
		errors = append(errors, "frame rate must be positive")
	}
	if cn.Timescale <= 0 {
		errors = append(errors, "timescale must be positive")
	}
	if cn.Suffix == "" {
		errors = append(errors, "suffix is required")
	} else if strings.ContainsAny(cn.Suffix, `/\`) {
		errors = append(errors, "suffix cannot contain path separators")
	}
	if cn.VideoCodec == "" {
		errors = append(errors, "video codec is required")
	}
	if cn.CRF > 51 {
		errors = append(errors, "CRF must be between 0 and 51")
	}
	if cn.AudioCodec == "" {
		errors = append(errors, "audio codec is required")
	}
	if cn.AudioSampleRate < 0 {
		errors = append(errors, "audio sample rate cannot be negative")
	}
	if cn.AudioChannels < 0 || cn.AudioChannels > 8 {
		errors = append(errors, "audio channels must be between 0 and 8")
	}
	if slices.Contains(cn.Filters, "") {
		errors = append(errors, "filters cannot contain empty entries")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}

// Validate checks if logging configuration is valid
func (lc *LoggingConfig) Validate() error {
	var errors []string

	if !slices.Contains(LogLevelValues(), strings.ToLower(lc.Level)) {
		errors = append(errors, fmt.Sprintf("invalid level '%s', must be one of: %s",
			lc.Level, strings.Join(LogLevelValues(), ", ")))
	}
	if !slices.Contains(LogFormatValues(), strings.ToLower(lc.Format)) {
		errors = append(errors, fmt.Sprintf("invalid format '%s', must be one of: %s",
			lc.Format, strings.Join(LogFormatValues(), ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}

func (c *Config) validatePublish() error {
	p := c.Publish
	switch strings.ToLower(p.Type) {
	case "", "none":
		return nil
	case "local":
		if p.Local.BasePath == "" {
			return fmt.Errorf("local.base_path required for local publishing")
		}
	case "s3":
		var errors []string
		if p.Bucket == "" {
			errors = append(errors, "bucket required")
		}
		if p.S3.Region == "" {
			errors = append(errors, "s3.region required")
		}
		if (p.S3.AccessKeyID == "") != (p.S3.SecretAccessKey == "") {
			errors = append(errors, "s3.access_key_id and s3.secret_access_key must be set together")
		}
		if len(errors) > 0 {
			return fmt.Errorf("%s", strings.Join(errors, ", "))
		}
	default:
		return fmt.Errorf("invalid type '%s', must be one of: %s",
			p.Type, strings.Join(PublishTypeValues(), ", "))
	}
	return nil
}
