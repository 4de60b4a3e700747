package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"splicer/interleave"
	"splicer/models"
	"splicer/normalizer"
	"splicer/report"
)

// placeholderSuffix stands in for the random part of a temp directory name
// in a dry run.
const placeholderSuffix = "-XXXXXX"

// DryRun is what a run would do, computed without running ffmpeg or
// touching the filesystem. Inputs are still probed.
type DryRun struct {
	Plans      []models.SegmentPlan
	Commands   []string
	Schedule   []report.Entry
	Manifest   string
	ConcatLine string
}

// Plan probes inputs and builds every command a Run would execute.
func (p *Pipeline) Plan(ctx context.Context, inputs []string) (*DryRun, error) {
	sources, err := p.checkInputs(inputs)
	if err != nil {
		return nil, err
	}

	base := p.cfg.TempDir
	if base == "" {
		base = os.TempDir()
	}

	dr := &DryRun{}
	var primary []report.Entry
	var segClips []models.ClipRef
	var normalized []models.NormalizedClip

	for _, src := range sources {
		plan, err := p.segmenter.Plan(ctx, src)
		if err != nil {
			return nil, err
		}
		dr.Plans = append(dr.Plans, plan)

		dir := filepath.Join(base, DirPrefix(src.Path)+placeholderSuffix)
		builders, segments, err := p.segmenter.Commands(plan, dir)
		if err != nil {
			return nil, err
		}
		for i, b := range builders {
			line, err := b.DryRun()
			if err != nil {
				return nil, models.NewStageError(string(StageSegmentSources), src.Path, models.ErrInvalidParameter, err)
			}
			dr.Commands = append(dr.Commands, line)

			seg := segments[i]
			segClips = append(segClips, seg.Clip)
			out := normalizer.OutputPath(seg.Clip, p.cfg.Canonical.Suffix)
			primary = append(primary, report.Entry{
				Path:   out,
				Source: seg.SourcePath,
				Start:  seg.Start,
				Length: seg.Length,
			})
			normalized = append(normalized, models.AssumeNormalized(models.NewClipRef(out)))
		}
	}

	if err := p.appendNormalizeLines(dr, StageNormalizeSources, segClips); err != nil {
		return nil, err
	}

	fillerDir := filepath.Join(base, "fillers"+placeholderSuffix)
	fillerCopies := make([]models.ClipRef, len(p.cfg.Fillers))
	fillerEntries := make([]report.Entry, len(p.cfg.Fillers))
	fillerClips := make([]models.NormalizedClip, len(p.cfg.Fillers))
	for i, f := range p.cfg.Fillers {
		fillerCopies[i] = models.NewClipRef(filepath.Join(fillerDir, filepath.Base(f)))
		out := normalizer.OutputPath(fillerCopies[i], p.cfg.Canonical.Suffix)
		fillerEntries[i] = report.Entry{Filler: true, Path: out}
		fillerClips[i] = models.AssumeNormalized(models.NewClipRef(out))
	}
	if err := p.appendNormalizeLines(dr, StageNormalizeFillers, fillerCopies); err != nil {
		return nil, err
	}

	schedule, err := interleave.Collect(primary, fillerEntries)
	if err != nil {
		return nil, err
	}
	dr.Schedule = schedule

	sequence, err := interleave.Interleave(normalized, fillerClips)
	if err != nil {
		return nil, err
	}
	dr.Manifest, dr.ConcatLine, err = p.concatenator.Preview(sequence, p.cfg.Output)
	if err != nil {
		return nil, err
	}
	dr.Commands = append(dr.Commands, dr.ConcatLine)

	return dr, nil
}

func (p *Pipeline) appendNormalizeLines(dr *DryRun, stage Stage, clips []models.ClipRef) error {
	for _, clip := range clips {
		line, err := p.normalizer.Command(clip).DryRun()
		if err != nil {
			return models.NewStageError(string(stage), clip.Path, models.ErrInvalidParameter, err)
		}
		dr.Commands = append(dr.Commands, line)
	}
	return nil
}

// Render writes the plan as tables followed by the engine commands and the
// concat manifest.
func (dr *DryRun) Render(w io.Writer) error {
	sections := []string{
		report.RenderPlans(dr.Plans),
		report.RenderSchedule(dr.Schedule),
	}
	for _, s := range sections {
		if _, err := fmt.Fprintf(w, "%s\n\n", s); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "Commands:"); err != nil {
		return err
	}
	for i, line := range dr.Commands {
		if _, err := fmt.Fprintf(w, "%3d  %s\n", i+1, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\nManifest:\n%s", dr.Manifest)
	return err
}

// SegmentCount returns the total number of segments planned.
func (dr *DryRun) SegmentCount() int {
	n := 0
	for _, p := range dr.Plans {
		n += p.Count
	}
	return n
}
