// Package pipeline drives a splice run: split every input into segments,
// normalize segments and fillers, interleave them and concatenate the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"splicer/command"
	"splicer/concatenator"
	"splicer/config"
	"splicer/ffprobe"
	"splicer/interleave"
	"splicer/models"
	"splicer/normalizer"
	"splicer/segmenter"
)

// Stage names a step of the run. Errors are tagged with the stage that
// produced them.
type Stage string

const (
	StageInit             Stage = "init"
	StageSegmentSources   Stage = "segment-sources"
	StageNormalizeSources Stage = "normalize-sources"
	StageNormalizeFillers Stage = "normalize-fillers"
	StageInterleave       Stage = "interleave"
	StageConcatenate      Stage = "concatenate"
	StagePublish          Stage = "publish"
	StageCleanup          Stage = "cleanup"
)

// Publisher uploads the finished output. It returns the key it was stored
// under.
type Publisher interface {
	Publish(ctx context.Context, outputPath string) (string, error)
}

// Result describes a successful run.
type Result struct {
	Inputs       []models.SegmentPlan
	Segments     []models.Segment
	Fillers      []models.NormalizedClip
	Sequence     []models.NormalizedClip
	OutputPath   string
	OutputSize   int64
	PublishedKey string
	Elapsed      time.Duration
}

// Pipeline runs the stages in order, with no retries. Any stage failure
// aborts the run.
type Pipeline struct {
	cfg          *config.Config
	runner       command.Runner
	prober       *ffprobe.Prober
	segmenter    *segmenter.Segmenter
	normalizer   *normalizer.Normalizer
	concatenator *concatenator.Concatenator
	publisher    Publisher
	logger       *zap.Logger
}

// New wires the stage components from cfg. Every engine call goes through
// runner.
func New(cfg *config.Config, runner command.Runner, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	prober := ffprobe.NewProber(runner, cfg.FFprobePath, logger)
	return &Pipeline{
		cfg:    cfg,
		runner: runner,
		prober: prober,
		segmenter: segmenter.NewSegmenter(runner, prober, logger).
			SetSegmentLength(cfg.SegmentLength).
			SetBinary(cfg.FFmpegPath),
		normalizer: normalizer.NewNormalizer(runner, cfg.Canonical, logger).
			SetBinary(cfg.FFmpegPath).
			SetWorkers(cfg.Workers),
		concatenator: concatenator.NewConcatenator(runner, logger).
			SetBinary(cfg.FFmpegPath).
			SetTempDir(cfg.TempDir),
		logger: logger,
	}
}

// SetPublisher enables the publish stage.
func (p *Pipeline) SetPublisher(publisher Publisher) *Pipeline {
	p.publisher = publisher
	return p
}

// Run splices inputs into the configured output file.
//
// Temp directories are removed and the output lock is released on every
// exit path, including cancellation, unless keep_temp is set.
func (p *Pipeline) Run(ctx context.Context, inputs []string) (*Result, error) {
	started := time.Now()
	output := p.cfg.Output

	// Init
	sources, err := p.checkInputs(inputs)
	if err != nil {
		return nil, err
	}
	lock, err := LockOutput(output)
	if err != nil {
		return nil, err
	}
	ws := NewWorkspace(p.cfg.TempDir, p.cfg.KeepTemp, p.logger)
	defer func() {
		p.logger.Debug("stage", zap.String("stage", string(StageCleanup)))
		if relErr := ws.Release(); relErr != nil {
			p.logger.Warn("failed to remove temp directories", zap.Error(relErr))
		}
		if unlockErr := lock.Unlock(); unlockErr != nil {
			p.logger.Warn("failed to release output lock", zap.Error(unlockErr))
		}
	}()

	if err := removeStale(output); err != nil {
		return nil, models.NewStageError(string(StageInit), output, models.ErrInvalidParameter, err)
	}

	result := &Result{OutputPath: output}

	// SegmentSources
	p.enter(StageSegmentSources)
	result.Inputs, result.Segments, err = p.segmentSources(ctx, ws, sources)
	if err != nil {
		return nil, err
	}

	// NormalizeSources
	p.enter(StageNormalizeSources)
	segmentClips := make([]models.ClipRef, len(result.Segments))
	for i, seg := range result.Segments {
		segmentClips[i] = seg.Clip
	}
	normalizedSources, err := p.normalizer.NormalizeAll(ctx, "sources", segmentClips, command.PriorityNormal)
	if err != nil {
		return nil, err
	}

	// NormalizeFillers
	p.enter(StageNormalizeFillers)
	fillerCopies, err := p.copyFillers(ws)
	if err != nil {
		return nil, err
	}
	result.Fillers, err = p.normalizer.NormalizeAll(ctx, "fillers", fillerCopies, command.PriorityLow)
	if err != nil {
		return nil, err
	}

	// Interleave
	p.enter(StageInterleave)
	sequence, err := interleave.Interleave(normalizedSources, result.Fillers)
	if err != nil {
		return nil, err
	}

	// Concatenate
	p.enter(StageConcatenate)
	if err := p.concatenator.Concatenate(ctx, sequence, output); err != nil {
		return nil, err
	}
	result.Sequence = make([]models.NormalizedClip, 0, interleave.Len(len(normalizedSources)))
	for clip := range sequence {
		result.Sequence = append(result.Sequence, clip)
	}
	if info, statErr := os.Stat(output); statErr == nil {
		result.OutputSize = info.Size()
	}

	// Publish
	if p.publisher != nil {
		p.enter(StagePublish)
		result.PublishedKey, err = p.publisher.Publish(ctx, output)
		if err != nil {
			return nil, err
		}
	}

	result.Elapsed = time.Since(started)
	p.logger.Info("splice complete",
		zap.String("output", output),
		zap.Int("clips", len(result.Sequence)),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (p *Pipeline) enter(stage Stage) {
	p.logger.Debug("stage", zap.String("stage", string(stage)))
}

// checkInputs rejects an empty input list, an empty filler set and fillers
// that would collide once copied into one directory.
func (p *Pipeline) checkInputs(inputs []string) ([]models.ClipRef, error) {
	if len(inputs) == 0 {
		return nil, models.NewStageError(string(StageInit), "", models.ErrInvalidParameter,
			fmt.Errorf("at least one input video is required"))
	}
	if len(p.cfg.Fillers) == 0 {
		return nil, models.NewStageError(string(StageInit), "", models.ErrEmptyFillerSet,
			fmt.Errorf("%d inputs but no filler clips", len(inputs)))
	}
	if err := checkFillerNames(p.cfg.Fillers, p.cfg.Canonical.Suffix); err != nil {
		return nil, err
	}

	sources := make([]models.ClipRef, len(inputs))
	for i, in := range inputs {
		clip := models.NewClipRef(in)
		if err := clip.Validate(); err != nil {
			return nil, models.NewStageError(string(StageInit), in, models.ErrInvalidParameter, err)
		}
		sources[i] = clip
	}

	if err := checkOutput(p.cfg.Output, append(slices.Clone(inputs), p.cfg.Fillers...)); err != nil {
		return nil, err
	}
	return sources, nil
}

// checkFillerNames rejects fillers that would collide once copied into the
// shared filler directory: equal base names, or one filler named like the
// normalized copy of another.
func checkFillerNames(fillers []string, suffix string) error {
	seen := make(map[string]string, len(fillers))
	for _, f := range fillers {
		base := filepath.Base(f)
		if prev, dup := seen[base]; dup {
			return models.NewStageError(string(StageNormalizeFillers), f, models.ErrInvalidParameter,
				fmt.Errorf("filler %s has the same file name as %s", f, prev))
		}
		seen[base] = f
	}
	for _, f := range fillers {
		out := filepath.Base(normalizer.OutputPath(models.NewClipRef(f), suffix))
		if other, clash := seen[out]; clash {
			return models.NewStageError(string(StageNormalizeFillers), f, models.ErrInvalidParameter,
				fmt.Errorf("normalizing filler %s would overwrite filler %s", f, other))
		}
	}
	return nil
}

// checkOutput rejects an output path that names one of the run's own input
// or filler files, which Init would otherwise delete as a stale output.
func checkOutput(output string, files []string) error {
	target, err := filepath.Abs(output)
	if err != nil {
		return models.NewStageError(string(StageInit), output, models.ErrInvalidParameter, err)
	}
	targetInfo, statErr := os.Stat(target)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		same := abs == target
		if !same && statErr == nil {
			if info, err := os.Stat(abs); err == nil {
				same = os.SameFile(targetInfo, info)
			}
		}
		if same {
			return models.NewStageError(string(StageInit), output, models.ErrInvalidParameter,
				fmt.Errorf("output %s is also an input of the run", output))
		}
	}
	return nil
}

// removeStale deletes an output left by an earlier run.
func removeStale(output string) error {
	if err := os.Remove(output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing output: %w", err)
	}
	return nil
}

// segmentSources plans every input before splitting any, so a clip that is
// too short fails the run before work starts. Each input is split into its
// own temp directory.
func (p *Pipeline) segmentSources(ctx context.Context, ws *Workspace, sources []models.ClipRef) ([]models.SegmentPlan, []models.Segment, error) {
	plans := make([]models.SegmentPlan, len(sources))
	for i, src := range sources {
		plan, err := p.segmenter.Plan(ctx, src)
		if err != nil {
			return nil, nil, err
		}
		plans[i] = plan
	}

	var segments []models.Segment
	for i, plan := range plans {
		p.logger.Info("processing input",
			zap.String("input", plan.Source.Path),
			zap.Int("index", i+1),
			zap.Int("total", len(plans)))

		dir, err := ws.Dir(DirPrefix(plan.Source.Path))
		if err != nil {
			return nil, nil, models.NewStageError(string(StageSegmentSources), plan.Source.Path, models.ErrSegmentation,
				fmt.Errorf("create temp directory: %w", err))
		}
		segs, err := p.segmenter.Split(ctx, plan.Source, dir)
		if err != nil {
			return nil, nil, err
		}
		segments = append(segments, segs...)
	}
	return plans, segments, nil
}

// copyFillers copies every filler into a fresh temp directory so the
// originals are never touched.
func (p *Pipeline) copyFillers(ws *Workspace) ([]models.ClipRef, error) {
	dir, err := ws.Dir("fillers")
	if err != nil {
		return nil, models.NewStageError(string(StageNormalizeFillers), "", models.ErrNormalization,
			fmt.Errorf("create temp directory: %w", err))
	}

	copies := make([]models.ClipRef, len(p.cfg.Fillers))
	for i, f := range p.cfg.Fillers {
		dst := filepath.Join(dir, filepath.Base(f))
		if err := copyFile(f, dst); err != nil {
			return nil, models.NewStageError(string(StageNormalizeFillers), f, models.ErrInvalidParameter, err)
		}
		copies[i] = models.NewClipRef(dst)
	}
	return copies, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open filler: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create filler copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy filler: %w", err)
	}
	return out.Close()
}
