// Package normalizer re-encodes clips to the canonical format required for
// stream-copy concatenation.
package normalizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"splicer/command"
	"splicer/command/normalize"
	"splicer/models"
	"splicer/orchestrator"
)

const stage = "normalize"

// Canonical is the encoding every clip is converted to.
type Canonical struct {
	Width     int    `mapstructure:"width" yaml:"width"`
	Height    int    `mapstructure:"height" yaml:"height"`
	FrameRate int    `mapstructure:"frame_rate" yaml:"frame_rate"`
	Timescale int    `mapstructure:"timescale" yaml:"timescale"`
	Suffix    string `mapstructure:"suffix" yaml:"suffix"`

	VideoCodec  string `mapstructure:"video_codec" yaml:"video_codec"`
	Preset      string `mapstructure:"preset" yaml:"preset"`
	CRF         int    `mapstructure:"crf" yaml:"crf"`
	PixelFormat string `mapstructure:"pixel_format" yaml:"pixel_format"`

	// Zero sample rate or channel count keeps the source value.
	AudioCodec      string `mapstructure:"audio_codec" yaml:"audio_codec"`
	AudioSampleRate int    `mapstructure:"audio_sample_rate" yaml:"audio_sample_rate"`
	AudioChannels   int    `mapstructure:"audio_channels" yaml:"audio_channels"`

	// Filters run after the scale filter; ExtraArgs go just before the
	// output path.
	Filters   []string `mapstructure:"filters" yaml:"filters"`
	ExtraArgs []string `mapstructure:"extra_args" yaml:"extra_args"`
}

// DefaultCanonical returns 1280x720 at 30 fps with a 1000 tick timescale and
// the "_corrected" output suffix.
func DefaultCanonical() Canonical {
	return Canonical{
		Width:       1280,
		Height:      720,
		FrameRate:   30,
		Timescale:   1000,
		Suffix:      "_corrected",
		VideoCodec:  "libx264",
		Preset:      "medium",
		CRF:         23,
		PixelFormat: "yuv420p",
		AudioCodec:  "aac",
	}
}

// Matches reports whether a stream with the given geometry and rate already
// has the canonical resolution and frame rate. Clips are re-encoded either
// way; this only informs reports.
func (c Canonical) Matches(width, height, frameRate int) bool {
	return width == c.Width && height == c.Height && frameRate == c.FrameRate
}

// Normalizer converts clips to a Canonical encoding.
type Normalizer struct {
	runner  command.Runner
	binary  string
	target  Canonical
	workers int
	logger  *zap.Logger
}

// NewNormalizer creates a Normalizer running one encode at a time.
func NewNormalizer(runner command.Runner, target Canonical, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		runner:  runner,
		binary:  "ffmpeg",
		target:  target,
		workers: 1,
		logger:  logger,
	}
}

// SetBinary overrides the ffmpeg executable.
func (n *Normalizer) SetBinary(binary string) *Normalizer {
	if binary != "" {
		n.binary = binary
	}
	return n
}

// SetWorkers sets how many encodes NormalizeAll may run at once.
func (n *Normalizer) SetWorkers(workers int) *Normalizer {
	n.workers = max(workers, 1)
	return n
}

// Target returns the canonical encoding.
func (n *Normalizer) Target() Canonical {
	return n.target
}

// OutputPath returns where the normalized version of clip is written: next to
// the input, named <stem><suffix>.mp4.
func OutputPath(clip models.ClipRef, suffix string) string {
	return filepath.Join(filepath.Dir(clip.Path), clip.Stem()+suffix+".mp4")
}

// Command returns the re-encode command for clip.
func (n *Normalizer) Command(clip models.ClipRef) *normalize.NormalizeBuilder {
	t := n.target
	b := normalize.NewNormalizeBuilder(clip.Path, OutputPath(clip, t.Suffix)).
		SetBinary(n.binary).
		SetRunner(n.runner).
		SetResolution(t.Width, t.Height).
		SetFrameRate(t.FrameRate).
		SetTimescale(t.Timescale).
		SetCodec(t.VideoCodec).
		SetPreset(t.Preset).
		SetCRF(t.CRF).
		SetPixelFormat(t.PixelFormat).
		SetAudio(t.AudioCodec, t.AudioSampleRate, t.AudioChannels).
		AddExtraArgs(t.ExtraArgs...)
	for _, f := range t.Filters {
		b.AddFilter(f)
	}
	return b
}

// Normalize re-encodes a single clip.
func (n *Normalizer) Normalize(ctx context.Context, clip models.ClipRef) (models.NormalizedClip, error) {
	cmd := n.Command(clip)
	if err := cmd.Run(ctx); err != nil {
		return models.NormalizedClip{}, models.NewStageError(stage, clip.Path, models.ErrNormalization, err)
	}
	return n.mint(clip, cmd.GetOutputPath())
}

// NormalizeAll re-encodes clips using up to the configured number of workers.
//
// The result has one entry per input, in input order, regardless of which
// encode finished first. The first failure cancels the remaining encodes and
// fails the whole batch with models.ErrNormalization. A batch where one
// output would land on another output or on another clip's input is rejected
// with models.ErrInvalidParameter before anything runs.
func (n *Normalizer) NormalizeAll(ctx context.Context, label string, clips []models.ClipRef, priority int) ([]models.NormalizedClip, error) {
	if len(clips) == 0 {
		return []models.NormalizedClip{}, nil
	}

	orch := orchestrator.NewOrchestrator([]orchestrator.ResourceConstraint{
		{Type: orchestrator.ResourceEncode, MaxSlots: n.workers},
	}, n.logger)

	inputs := make(map[string]bool, len(clips))
	for _, clip := range clips {
		inputs[filepath.Clean(clip.Path)] = true
	}

	outputs := make(map[string]string, len(clips))
	for i, clip := range clips {
		cmd := n.Command(clip)
		cmd.SetPriority(priority)
		out := filepath.Clean(cmd.GetOutputPath())
		if prev, dup := outputs[out]; dup {
			return nil, models.NewStageError(stage, clip.Path, models.ErrInvalidParameter,
				fmt.Errorf("output %s would overwrite the normalized copy of %s", out, prev))
		}
		if inputs[out] {
			return nil, models.NewStageError(stage, clip.Path, models.ErrInvalidParameter,
				fmt.Errorf("output %s would overwrite another clip of the batch before it is encoded", out))
		}
		outputs[out] = clip.Path

		task := &orchestrator.Task{
			ID:       fmt.Sprintf("%s_%d", label, i+1),
			Command:  cmd,
			Resource: orchestrator.ResourceEncode,
		}
		if err := orch.AddTask(task); err != nil {
			return nil, models.NewStageError(stage, clip.Path, models.ErrNormalization, err)
		}
	}

	n.logger.Info("normalizing clips",
		zap.String("set", label),
		zap.Int("count", len(clips)),
		zap.Int("workers", n.workers))

	orch.SetProgressCallback(func(completed, total int, task *orchestrator.Task) {
		if task.Error != nil {
			return
		}
		n.logger.Info("clip normalized",
			zap.String("set", label),
			zap.String("clip", task.Command.GetInputPath()),
			zap.Int("done", completed),
			zap.Int("total", total))
	})

	results, err := orch.Execute(ctx)
	if err != nil {
		stats := orch.GetStats()
		n.logger.Warn("normalization aborted",
			zap.String("set", label),
			zap.Int("completed", stats["completed"]),
			zap.Int("failed", stats["failed"]),
			zap.Int("total", stats["total"]))
		var taskErr *orchestrator.TaskError
		if errors.As(err, &taskErr) {
			return nil, models.NewStageError(stage, taskErr.InputPath, models.ErrNormalization, taskErr.Err)
		}
		return nil, models.NewStageError(stage, "", models.ErrNormalization, err)
	}

	normalized := make([]models.NormalizedClip, len(clips))
	for i, result := range results {
		clip, err := n.mint(clips[result.Index], result.OutputPath)
		if err != nil {
			return nil, err
		}
		normalized[i] = clip
	}
	return normalized, nil
}

// mint checks the encode produced a file and tags it as normalized. A known
// source duration is carried over.
func (n *Normalizer) mint(source models.ClipRef, outputPath string) (models.NormalizedClip, error) {
	if _, err := os.Stat(outputPath); err != nil {
		return models.NormalizedClip{}, models.NewStageError(stage, source.Path, models.ErrNormalization,
			fmt.Errorf("output not created: %w", err))
	}
	out := models.NewClipRef(outputPath)
	if source.HasDuration {
		out = out.WithDuration(source.Duration)
	}
	return models.AssumeNormalized(out), nil
}
