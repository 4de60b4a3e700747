package normalize

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"splicer/command"
)

// NormalizeBuilder re-encodes a clip to a fixed resolution, frame rate and
// track timescale so that clips from different sources can be joined by
// stream copy.
type NormalizeBuilder struct {
	binary     string
	runner     command.Runner
	inputPath  string
	outputPath string

	// Canonical geometry and timing
	width     int
	height    int
	frameRate int
	timescale int

	// Video encoding settings
	codec       string
	crf         int
	preset      string
	pixelFormat string

	// Audio encoding settings
	audioCodec      string
	audioSampleRate int
	audioChannels   int

	// Filters applied after scaling
	filters []string

	extraArgs []string
	priority  int
}

// NewNormalizeBuilder creates a builder with the default canonical target:
// 1280x720 at 30 fps with a 1000 tick track timescale.
func NewNormalizeBuilder(inputPath, outputPath string) *NormalizeBuilder {
	return &NormalizeBuilder{
		binary:      "ffmpeg",
		inputPath:   inputPath,
		outputPath:  outputPath,
		width:       1280,
		height:      720,
		frameRate:   30,
		timescale:   1000,
		codec:       "libx264",
		crf:         23,
		preset:      "medium",
		pixelFormat: "yuv420p",
		audioCodec:  "aac",
		priority:    command.PriorityNormal,
		filters:     []string{},
		extraArgs:   []string{},
	}
}

// SetBinary overrides the ffmpeg executable.
func (n *NormalizeBuilder) SetBinary(binary string) *NormalizeBuilder {
	n.binary = binary
	return n
}

// SetRunner sets the runner used by Run.
func (n *NormalizeBuilder) SetRunner(runner command.Runner) *NormalizeBuilder {
	n.runner = runner
	return n
}

// Canonical Target

// SetResolution sets the output width and height in pixels.
func (n *NormalizeBuilder) SetResolution(width, height int) *NormalizeBuilder {
	n.width = width
	n.height = height
	return n
}

// SetFrameRate sets the forced output frame rate.
func (n *NormalizeBuilder) SetFrameRate(fps int) *NormalizeBuilder {
	n.frameRate = fps
	return n
}

// SetTimescale sets the video track timescale in ticks per second.
func (n *NormalizeBuilder) SetTimescale(timescale int) *NormalizeBuilder {
	n.timescale = timescale
	return n
}

// Encoding Configuration

// SetCodec sets the video codec (e.g., "libx264", "libx265"). An empty codec
// leaves the choice to the engine.
func (n *NormalizeBuilder) SetCodec(codec string) *NormalizeBuilder {
	n.codec = codec
	return n
}

// SetCRF sets the Constant Rate Factor (0-51, lower is better quality).
// A negative value omits the flag.
func (n *NormalizeBuilder) SetCRF(crf int) *NormalizeBuilder {
	n.crf = crf
	return n
}

// SetPreset sets the encoding preset (ultrafast ... veryslow)
func (n *NormalizeBuilder) SetPreset(preset string) *NormalizeBuilder {
	n.preset = preset
	return n
}

// SetPixelFormat sets the pixel format (e.g., "yuv420p")
func (n *NormalizeBuilder) SetPixelFormat(pixfmt string) *NormalizeBuilder {
	n.pixelFormat = pixfmt
	return n
}

// SetAudio sets the audio codec, sample rate and channel count.
// Zero values omit the corresponding flag.
func (n *NormalizeBuilder) SetAudio(codec string, sampleRate, channels int) *NormalizeBuilder {
	n.audioCodec = codec
	n.audioSampleRate = sampleRate
	n.audioChannels = channels
	return n
}

// AddFilter appends a video filter applied after scaling.
func (n *NormalizeBuilder) AddFilter(filter string) *NormalizeBuilder {
	n.filters = append(n.filters, filter)
	return n
}

// AddExtraArgs adds custom ffmpeg arguments placed before the output path.
func (n *NormalizeBuilder) AddExtraArgs(args ...string) *NormalizeBuilder {
	n.extraArgs = append(n.extraArgs, args...)
	return n
}

// SetPriority sets the task priority (higher = started first)
func (n *NormalizeBuilder) SetPriority(priority int) command.Command {
	n.priority = priority
	return n
}

// BuildArgs constructs the ffmpeg arguments for normalization.
func (n *NormalizeBuilder) BuildArgs() []string {
	args := []string{
		"-y",
		"-i", n.inputPath,
		"-vf", n.buildFilterChain(),
		"-r", strconv.Itoa(n.frameRate),
		"-video_track_timescale", strconv.Itoa(n.timescale),
	}

	if n.codec != "" {
		args = append(args, "-c:v", n.codec)
	}
	if n.preset != "" {
		args = append(args, "-preset", n.preset)
	}
	if n.crf >= 0 && n.crf <= 51 {
		args = append(args, "-crf", strconv.Itoa(n.crf))
	}
	if n.pixelFormat != "" {
		args = append(args, "-pix_fmt", n.pixelFormat)
	}

	if n.audioCodec != "" {
		args = append(args, "-c:a", n.audioCodec)
	}
	if n.audioSampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(n.audioSampleRate))
	}
	if n.audioChannels > 0 {
		args = append(args, "-ac", strconv.Itoa(n.audioChannels))
	}

	args = append(args, n.extraArgs...)
	args = append(args, n.outputPath)

	return args
}

// buildFilterChain returns the scale filter followed by any extra filters.
func (n *NormalizeBuilder) buildFilterChain() string {
	filters := make([]string, 0, len(n.filters)+1)
	filters = append(filters, fmt.Sprintf("scale=%d:%d", n.width, n.height))
	filters = append(filters, n.filters...)
	return strings.Join(filters, ",")
}

// Validate checks the canonical target.
func (n *NormalizeBuilder) Validate() error {
	if n.width <= 0 || n.height <= 0 {
		return fmt.Errorf("resolution must be positive, got %dx%d", n.width, n.height)
	}
	if n.frameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %d", n.frameRate)
	}
	if n.timescale <= 0 {
		return fmt.Errorf("timescale must be positive, got %d", n.timescale)
	}
	if n.inputPath == n.outputPath {
		return fmt.Errorf("output path must differ from input path: %s", n.inputPath)
	}
	return nil
}

// Run executes the re-encode.
func (n *NormalizeBuilder) Run(ctx context.Context) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if n.runner == nil {
		return fmt.Errorf("normalize %s: no runner configured", n.inputPath)
	}
	if _, err := n.runner.Run(ctx, n.binary, n.BuildArgs()...); err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// DryRun returns the command that would be executed without running it
func (n *NormalizeBuilder) DryRun() (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}
	return command.FormatCommandLine(n.binary, n.BuildArgs()), nil
}

// GetPriority returns the task priority
func (n *NormalizeBuilder) GetPriority() int {
	return n.priority
}

// GetTaskType returns the task type identifier
func (n *NormalizeBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeNormalize
}

// GetInputPath returns the input file path
func (n *NormalizeBuilder) GetInputPath() string {
	return n.inputPath
}

// GetOutputPath returns the output file path
func (n *NormalizeBuilder) GetOutputPath() string {
	return n.outputPath
}
