package segment

import (
	"context"
	"fmt"
	"strconv"

	"splicer/command"
)

// SegmentBuilder builds the engine command that extracts one segment of a
// source clip by stream copy.
//
// The command requests a fixed length from the start offset; for the last
// segment the engine stops at end of stream.
type SegmentBuilder struct {
	binary     string
	runner     command.Runner
	sourcePath string
	outputPath string
	start      int
	length     int
	priority   int
}

// NewSegmentBuilder creates a builder for the segment [start, start+length)
// of sourcePath written to outputPath. Times are in whole seconds.
func NewSegmentBuilder(sourcePath, outputPath string, start, length int) *SegmentBuilder {
	return &SegmentBuilder{
		binary:     "ffmpeg",
		sourcePath: sourcePath,
		outputPath: outputPath,
		start:      start,
		length:     length,
		priority:   command.PriorityNormal,
	}
}

// SetBinary overrides the ffmpeg executable.
func (s *SegmentBuilder) SetBinary(binary string) *SegmentBuilder {
	s.binary = binary
	return s
}

// SetRunner sets the runner used by Run.
func (s *SegmentBuilder) SetRunner(runner command.Runner) *SegmentBuilder {
	s.runner = runner
	return s
}

// BuildArgs constructs the engine arguments for a stream-copy split.
// Timestamps are reset so each segment starts at zero.
func (s *SegmentBuilder) BuildArgs() []string {
	return []string{
		"-y",
		"-i", s.sourcePath,
		"-vcodec", "copy",
		"-acodec", "copy",
		"-reset_timestamps", "1",
		"-ss", strconv.Itoa(s.start),
		"-t", strconv.Itoa(s.length),
		s.outputPath,
	}
}

// Run executes the segment extraction.
func (s *SegmentBuilder) Run(ctx context.Context) error {
	if s.runner == nil {
		return fmt.Errorf("segment %s: no runner configured", s.outputPath)
	}
	if _, err := s.runner.Run(ctx, s.binary, s.BuildArgs()...); err != nil {
		return fmt.Errorf("segment split failed: %w", err)
	}
	return nil
}

// DryRun returns the command string without executing.
func (s *SegmentBuilder) DryRun() (string, error) {
	if s.length <= 0 {
		return "", fmt.Errorf("segment length must be positive, got %d", s.length)
	}
	return command.FormatCommandLine(s.binary, s.BuildArgs()), nil
}

// GetPriority returns the task priority.
func (s *SegmentBuilder) GetPriority() int {
	return s.priority
}

// SetPriority sets the task priority.
func (s *SegmentBuilder) SetPriority(priority int) command.Command {
	s.priority = priority
	return s
}

// GetTaskType returns the task type identifier.
func (s *SegmentBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeSegment
}

// GetInputPath returns the source clip path.
func (s *SegmentBuilder) GetInputPath() string {
	return s.sourcePath
}

// GetOutputPath returns the segment path.
func (s *SegmentBuilder) GetOutputPath() string {
	return s.outputPath
}
