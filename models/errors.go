package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the pipeline wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrProbe            = errors.New("probe failed")
	ErrNothingToSplit   = errors.New("nothing to split")
	ErrSegmentation     = errors.New("segmentation failed")
	ErrNormalization    = errors.New("normalization failed")
	ErrEmptyFillerSet   = errors.New("empty filler set")
	ErrConcatenation    = errors.New("concatenation failed")
	ErrPublish          = errors.New("publish failed")
)

// StageError attaches the failing pipeline stage and clip to an error.
type StageError struct {
	Stage string
	Path  string
	Kind  error
	Err   error
}

// NewStageError builds a StageError. Kind should be one of the Err* values.
func NewStageError(stage, path string, kind, err error) *StageError {
	return &StageError{Stage: stage, Path: path, Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	msg := e.Stage
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Kind != nil && (e.Err == nil || !errors.Is(e.Err, e.Kind)) {
		msg = fmt.Sprintf("%s: %v", msg, e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches the error kind in addition to anything in the wrapped chain.
func (e *StageError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// StageOf returns the stage name of the outermost StageError in err's chain.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
