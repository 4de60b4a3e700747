package models

import (
	"fmt"
	"strings"
)

// SegmentPlan describes how one source clip is divided into fixed-length
// segments.
//
// Count is always ceil(TotalDuration / TargetLength). A plan with Count <= 1
// is invalid: the clip is too short to split and callers should treat the
// source as already being a single segment.
type SegmentPlan struct {
	Source        ClipRef `json:"source"`
	TargetLength  int     `json:"target_length"`
	TotalDuration int     `json:"total_duration"`
	Count         int     `json:"count"`
}

// NewSegmentPlan computes and validates a plan.
//
// Returns ErrInvalidParameter for a non-positive target length or a negative
// duration, and ErrNothingToSplit when the clip fits in a single segment.
func NewSegmentPlan(source ClipRef, targetLength, totalDuration int) (SegmentPlan, error) {
	if targetLength <= 0 {
		return SegmentPlan{}, fmt.Errorf("%w: segment length must be positive, got %d", ErrInvalidParameter, targetLength)
	}
	if totalDuration < 0 {
		return SegmentPlan{}, fmt.Errorf("%w: duration cannot be negative, got %d", ErrInvalidParameter, totalDuration)
	}

	plan := SegmentPlan{
		Source:        source,
		TargetLength:  targetLength,
		TotalDuration: totalDuration,
		Count:         CeilDiv(totalDuration, targetLength),
	}
	if plan.Count <= 1 {
		return SegmentPlan{}, fmt.Errorf("%w: %s is %ds long, target length is %ds",
			ErrNothingToSplit, source.Path, totalDuration, targetLength)
	}
	return plan, nil
}

// Start returns the start offset in seconds of the n-th segment (1-based).
func (p SegmentPlan) Start(index int) int {
	return (index - 1) * p.TargetLength
}

// Length returns the playback length in seconds of the n-th segment
// (1-based). Every segment but the last is exactly TargetLength long.
func (p SegmentPlan) Length(index int) int {
	if index < p.Count {
		return p.TargetLength
	}
	return p.TotalDuration - p.Start(index)
}

// CeilDiv returns ceil(a / b) for non-negative a and positive b.
func CeilDiv(a, b int) int {
	return a/b + min(a%b, 1)
}

// Segment is one stream-copied slice of a source clip.
//
// Index is 1-based and Count is the total number of segments produced for the
// same source; both feed the deterministic file name
// <basename>-<index>-of-<count>.<ext>.
type Segment struct {
	Clip       ClipRef `json:"clip"`
	SourcePath string  `json:"source_path"`
	Index      int     `json:"index"`
	Count      int     `json:"count"`
	Start      int     `json:"start"`
	Length     int     `json:"length"`
}

// Validate checks if the Segment has valid data.
//
// Returns an error if:
//   - the clip path or source path is empty
//   - Index is outside [1, Count]
//   - Length is not positive
func (s *Segment) Validate() error {
	if strings.TrimSpace(s.SourcePath) == "" {
		return fmt.Errorf("source_path cannot be empty")
	}
	if err := s.Clip.Validate(); err != nil {
		return fmt.Errorf("clip: %w", err)
	}
	if s.Count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if s.Index < 1 || s.Index > s.Count {
		return fmt.Errorf("index %d out of range [1, %d]", s.Index, s.Count)
	}
	if s.Start < 0 {
		return fmt.Errorf("start cannot be negative")
	}
	if s.Length <= 0 {
		return fmt.Errorf("length must be greater than 0")
	}
	return nil
}

// End returns the end offset in seconds within the source clip.
func (s *Segment) End() int {
	return s.Start + s.Length
}
