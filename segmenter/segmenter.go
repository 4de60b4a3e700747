// Package segmenter splits a source clip into fixed-length stream-copied
// segments.
package segmenter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"splicer/command"
	"splicer/command/segment"
	"splicer/models"
)

const (
	// DefaultSegmentLength is the target segment length in seconds.
	DefaultSegmentLength = 120

	// MaxSegmentLength is the maximum allowed segment length in seconds (24 hours)
	MaxSegmentLength = 86400
)

const stage = "segment"

var lower = cases.Lower(language.Und)

// Segmenter splits clips into segments of a fixed target length.
type Segmenter struct {
	runner        command.Runner
	prober        DurationProber
	binary        string
	segmentLength int
	logger        *zap.Logger
}

// NewSegmenter creates a Segmenter with the default segment length.
func NewSegmenter(runner command.Runner, prober DurationProber, logger *zap.Logger) *Segmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Segmenter{
		runner:        runner,
		prober:        prober,
		binary:        "ffmpeg",
		segmentLength: DefaultSegmentLength,
		logger:        logger,
	}
}

// SetSegmentLength sets the target segment length in seconds.
func (s *Segmenter) SetSegmentLength(seconds int) *Segmenter {
	s.segmentLength = seconds
	return s
}

// SetBinary overrides the ffmpeg executable.
func (s *Segmenter) SetBinary(binary string) *Segmenter {
	if binary != "" {
		s.binary = binary
	}
	return s
}

// SegmentLength returns the configured target length.
func (s *Segmenter) SegmentLength() int {
	return s.segmentLength
}

// Plan probes clip if needed and computes its segment plan.
//
// The segment length is checked before any probe runs, so an invalid length
// never spawns a process.
func (s *Segmenter) Plan(ctx context.Context, clip models.ClipRef) (models.SegmentPlan, error) {
	if err := clip.Validate(); err != nil {
		return models.SegmentPlan{}, models.NewStageError(stage, clip.Path, models.ErrInvalidParameter, err)
	}
	if s.segmentLength <= 0 || s.segmentLength > MaxSegmentLength {
		return models.SegmentPlan{}, models.NewStageError(stage, clip.Path, models.ErrInvalidParameter,
			fmt.Errorf("segment length must be between 1 and %d seconds, got %d", MaxSegmentLength, s.segmentLength))
	}

	probed, err := s.prober.Probe(ctx, clip)
	if err != nil {
		return models.SegmentPlan{}, err
	}

	plan, err := models.NewSegmentPlan(probed, s.segmentLength, probed.Duration)
	if err != nil {
		kind := models.ErrInvalidParameter
		if errors.Is(err, models.ErrNothingToSplit) {
			kind = models.ErrNothingToSplit
		}
		return models.SegmentPlan{}, models.NewStageError(stage, clip.Path, kind, err)
	}
	return plan, nil
}

// Commands returns one stream-copy command per planned segment, writing into
// outDir, together with the Segment each command will produce.
func (s *Segmenter) Commands(plan models.SegmentPlan, outDir string) ([]*segment.SegmentBuilder, []models.Segment, error) {
	builders := make([]*segment.SegmentBuilder, 0, plan.Count)
	segments := make([]models.Segment, 0, plan.Count)

	for i := 1; i <= plan.Count; i++ {
		name, err := SegmentName(plan.Source.Path, i, plan.Count)
		if err != nil {
			return nil, nil, models.NewStageError(stage, plan.Source.Path, models.ErrInvalidParameter, err)
		}
		outputPath := filepath.Join(outDir, name)

		seg := models.Segment{
			Clip:       models.NewClipRef(outputPath).WithDuration(plan.Length(i)),
			SourcePath: plan.Source.Path,
			Index:      i,
			Count:      plan.Count,
			Start:      plan.Start(i),
			Length:     plan.Length(i),
		}
		if err := seg.Validate(); err != nil {
			return nil, nil, models.NewStageError(stage, plan.Source.Path, models.ErrInvalidParameter,
				fmt.Errorf("invalid segment %d: %w", i, err))
		}

		// Every segment requests the full target length; the engine clamps
		// the last one at end of stream.
		builders = append(builders, segment.NewSegmentBuilder(plan.Source.Path, outputPath, seg.Start, plan.TargetLength).
			SetBinary(s.binary).
			SetRunner(s.runner))
		segments = append(segments, seg)
	}

	return builders, segments, nil
}

// Split divides clip into ceil(duration/length) segments written to outDir.
//
// A clip that fits in one segment fails with models.ErrNothingToSplit. If
// any extraction fails, segments already written are removed and the call
// fails with models.ErrSegmentation; no partial result is returned.
func (s *Segmenter) Split(ctx context.Context, clip models.ClipRef, outDir string) ([]models.Segment, error) {
	plan, err := s.Plan(ctx, clip)
	if err != nil {
		return nil, err
	}

	builders, segments, err := s.Commands(plan, outDir)
	if err != nil {
		return nil, err
	}

	s.logger.Info("splitting clip",
		zap.String("source", clip.Path),
		zap.Int("duration", plan.TotalDuration),
		zap.Int("segments", plan.Count),
		zap.Int("segment_length", plan.TargetLength))

	for i, builder := range builders {
		err := builder.Run(ctx)
		if err == nil {
			_, err = os.Stat(builder.GetOutputPath())
		}
		if err != nil {
			removeSegments(segments[:i+1])
			return nil, models.NewStageError(stage, clip.Path, models.ErrSegmentation,
				fmt.Errorf("segment %d of %d: %w", i+1, plan.Count, err))
		}
		s.logger.Debug("segment written",
			zap.String("path", builder.GetOutputPath()),
			zap.Int("index", i+1),
			zap.Int("count", plan.Count))
	}

	if err := ValidateSegments(segments); err != nil {
		removeSegments(segments)
		return nil, models.NewStageError(stage, clip.Path, models.ErrSegmentation, err)
	}
	return segments, nil
}

// SegmentName returns the deterministic file name of the index-th of count
// segments of source: the base name lower-cased with spaces replaced by
// underscores, suffixed with -<index>-of-<count>, keeping the extension.
func SegmentName(source string, index, count int) (string, error) {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" || ext == "." || stem == "" {
		return "", fmt.Errorf("no file extension in %q", base)
	}
	if index < 1 || index > count {
		return "", fmt.Errorf("segment index %d out of range [1, %d]", index, count)
	}

	stem = strings.ReplaceAll(lower.String(stem), " ", "_")
	return fmt.Sprintf("%s-%d-of-%d%s", stem, index, count, ext), nil
}

// ValidateSegments validates a sequence of segments for completeness and
// contiguity.
func ValidateSegments(segments []models.Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("segment list is empty")
	}

	for i := range segments {
		if err := segments[i].Validate(); err != nil {
			return fmt.Errorf("segment %d is invalid: %w", i+1, err)
		}
	}

	first := segments[0]
	seen := make(map[string]bool, len(segments))
	for i, seg := range segments {
		if seg.SourcePath != first.SourcePath {
			return fmt.Errorf("segment %d has different source path: expected %s, got %s",
				i+1, first.SourcePath, seg.SourcePath)
		}
		if seg.Index != i+1 || seg.Count != len(segments) {
			return fmt.Errorf("segment %d has incorrect numbering: %d of %d", i+1, seg.Index, seg.Count)
		}
		if seen[seg.Clip.Path] {
			return fmt.Errorf("segment %d reuses output path %s", i+1, seg.Clip.Path)
		}
		seen[seg.Clip.Path] = true
	}

	for i := 0; i < len(segments)-1; i++ {
		if segments[i].End() != segments[i+1].Start {
			return fmt.Errorf("segments %d and %d are not contiguous: %d ends at %ds, %d starts at %ds",
				i+1, i+2, i+1, segments[i].End(), i+2, segments[i+1].Start)
		}
	}

	return nil
}

func removeSegments(segments []models.Segment) {
	for _, seg := range segments {
		_ = os.Remove(seg.Clip.Path)
	}
}
