package pipeline

import "splicer/report"

// Summary converts a result into the run summary table rows.
func (r *Result) Summary(runID string) report.Summary {
	return report.Summary{
		RunID:          runID,
		Inputs:         len(r.Inputs),
		Segments:       len(r.Segments),
		Fillers:        len(r.Fillers),
		SequenceLength: len(r.Sequence),
		OutputPath:     r.OutputPath,
		OutputSize:     r.OutputSize,
		Elapsed:        r.Elapsed,
		PublishedKey:   r.PublishedKey,
	}
}
