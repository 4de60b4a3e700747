package segmenter

import (
	"context"

	"splicer/models"
)

// DurationProber fills in a clip's duration.
//
// This interface decouples the segmenter from the ffprobe package so plans can
// be tested with fixed durations. *ffprobe.Prober satisfies it.
type DurationProber interface {
	// Probe returns clip with HasDuration set. Clips that already carry a
	// duration may be returned unchanged.
	Probe(ctx context.Context, clip models.ClipRef) (models.ClipRef, error)
}
