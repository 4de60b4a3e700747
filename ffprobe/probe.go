// Package ffprobe provides utilities for extracting metadata from media files
// using the ffprobe command-line tool.
package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"splicer/command"
	"splicer/models"
)

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	AvgFrameRate string `json:"avg_frame_rate,omitempty"`
	SampleRate   string `json:"sample_rate,omitempty"`
	Channels     int    `json:"channels,omitempty"`
}

// Format represents the container format information.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// ProbeResult holds the metadata extracted from a media file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// GetDuration returns the duration of the media file in seconds.
//
// Returns an error if the duration cannot be parsed.
func (pr *ProbeResult) GetDuration() (float64, error) {
	if pr.Format.Duration == "" {
		return 0, fmt.Errorf("duration not available in format metadata")
	}

	duration, err := strconv.ParseFloat(pr.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", pr.Format.Duration, err)
	}

	return duration, nil
}

// GetVideoStreams returns all video streams from the media file.
func (pr *ProbeResult) GetVideoStreams() []Stream {
	var videoStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "video" {
			videoStreams = append(videoStreams, stream)
		}
	}
	return videoStreams
}

// Codec returns the codec name of the first stream of the given type
// ("video", "audio"), or "" when there is none.
func (pr *ProbeResult) Codec(codecType string) string {
	for _, stream := range pr.Streams {
		if stream.CodecType == codecType {
			return stream.CodecName
		}
	}
	return ""
}

// Size returns the container size in bytes, or 0 when unknown.
func (pr *ProbeResult) Size() int64 {
	n, err := strconv.ParseInt(pr.Format.Size, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Resolution returns the first video stream's dimensions, or 0x0.
func (pr *ProbeResult) Resolution() (int, int) {
	streams := pr.GetVideoStreams()
	if len(streams) == 0 {
		return 0, 0
	}
	return streams[0].Width, streams[0].Height
}

// FrameRate returns the first video stream's average frame rate, rounded to
// the nearest integer, or 0 when unknown.
func (pr *ProbeResult) FrameRate() int {
	streams := pr.GetVideoStreams()
	if len(streams) == 0 {
		return 0
	}
	num, den, ok := strings.Cut(streams[0].AvgFrameRate, "/")
	if !ok {
		return 0
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return int(math.Round(n / d))
}

// Prober runs ffprobe through a command.Runner. No results are cached; every
// call spawns one process.
type Prober struct {
	runner command.Runner
	binary string
	logger *zap.Logger
}

// NewProber creates a Prober. An empty binary defaults to "ffprobe".
func NewProber(runner command.Runner, binary string, logger *zap.Logger) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{runner: runner, binary: binary, logger: logger}
}

// DurationArgs returns the ffprobe arguments that print only the container
// duration for path.
func DurationArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// Duration returns the clip's duration in whole seconds, truncated with floor.
//
// Any failure (missing file, unreadable container, no duration) is reported
// as models.ErrProbe.
func (p *Prober) Duration(ctx context.Context, path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, models.NewStageError("probe", path, models.ErrProbe, fmt.Errorf("source path cannot be empty"))
	}

	out, err := p.runner.Run(ctx, p.binary, DurationArgs(path)...)
	if err != nil {
		return 0, models.NewStageError("probe", path, models.ErrProbe, err)
	}

	seconds, err := ParseDuration(out)
	if err != nil {
		return 0, models.NewStageError("probe", path, models.ErrProbe, err)
	}

	p.logger.Debug("probed duration", zap.String("path", path), zap.Int("seconds", seconds))
	return seconds, nil
}

// Probe returns clip with its duration filled in. A clip that already has a
// known duration is returned unchanged without running ffprobe.
func (p *Prober) Probe(ctx context.Context, clip models.ClipRef) (models.ClipRef, error) {
	if clip.HasDuration {
		return clip, nil
	}
	seconds, err := p.Duration(ctx, clip.Path)
	if err != nil {
		return clip, err
	}
	return clip.WithDuration(seconds), nil
}

// Inspect analyzes a media file and returns its stream and format metadata.
func (p *Prober) Inspect(ctx context.Context, path string) (*ProbeResult, error) {
	if path == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	}

	out, err := p.runner.Run(ctx, p.binary, args...)
	if err != nil {
		return nil, models.NewStageError("probe", path, models.ErrProbe, err)
	}

	var result ProbeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, models.NewStageError("probe", path, models.ErrProbe,
			fmt.Errorf("failed to parse ffprobe JSON output: %w", err))
	}
	return &result, nil
}

// MaxDuration is the longest duration, in seconds, ParseDuration accepts.
const MaxDuration = math.MaxInt32

// ParseDuration parses ffprobe's bare duration output and floors it.
func ParseDuration(out []byte) (int, error) {
	text := strings.TrimSpace(string(out))
	if text == "" || text == "N/A" {
		return 0, fmt.Errorf("duration not reported")
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", text, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, fmt.Errorf("invalid duration '%s'", text)
	}
	if value > MaxDuration {
		return 0, fmt.Errorf("duration '%s' exceeds %d seconds", text, MaxDuration)
	}

	return int(math.Floor(value)), nil
}
