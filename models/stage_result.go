package models

import (
	"fmt"
	"strings"
)

// StageResult represents the outcome of one task inside a pooled stage.
//
// Index is the task's position in the submitted batch; results are always
// reported in that order regardless of which task finished first.
//
// Use NewStageResultSuccess or NewStageResultFailure to create validated instances.
type StageResult struct {
	Index      int    `json:"index"`
	TaskID     string `json:"task_id"`
	OutputPath string `json:"output_path"`
	Success    bool   `json:"success"`
	Error      error  `json:"error"`
}

// NewStageResultSuccess creates a successful StageResult with validation.
//
// Returns an error if outputPath is empty or whitespace-only.
func NewStageResultSuccess(index int, taskID, outputPath string) (*StageResult, error) {
	r := &StageResult{
		Index:      index,
		TaskID:     taskID,
		OutputPath: outputPath,
		Success:    true,
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stage result: %w", err)
	}
	return r, nil
}

// NewStageResultFailure creates a failed StageResult.
//
// The error parameter must not be nil.
func NewStageResultFailure(index int, taskID string, taskErr error) (*StageResult, error) {
	if taskErr == nil {
		return nil, fmt.Errorf("invalid stage result: error cannot be nil for failed result")
	}
	return &StageResult{
		Index:   index,
		TaskID:  taskID,
		Success: false,
		Error:   taskErr,
	}, nil
}

// Validate checks if the StageResult has consistent state.
//
// Returns an error if:
//   - Success is true but Error is not nil
//   - Success is false but Error is nil
//   - Success is true but OutputPath is empty
//   - Success is false but OutputPath is set
func (r *StageResult) Validate() error {
	if r.Success && r.Error != nil {
		return fmt.Errorf("inconsistent state: Success is true but Error is not nil")
	}
	if !r.Success && r.Error == nil {
		return fmt.Errorf("failed result must have an error")
	}
	if r.Success && strings.TrimSpace(r.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty for successful result")
	}
	if !r.Success && strings.TrimSpace(r.OutputPath) != "" {
		return fmt.Errorf("failed result should not have output_path")
	}
	return nil
}
