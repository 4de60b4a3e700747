// Package command provides the Command interface and the engine runner used to
// build and execute ffmpeg/ffprobe invocations.
//
// Each pipeline stage has its own builder (segment, normalize) implementing
// Command, so the orchestrator can schedule them without knowing what they do.
package command

import (
	"context"
	"strings"
)

// Priority levels for task execution in the orchestrator.
// Higher priority tasks are started first when several are ready.
const (
	PriorityLow    = 0 // Low priority tasks (e.g., filler clips)
	PriorityNormal = 5 // Normal priority tasks (e.g., source segments)
)

// TaskType represents the kind of engine invocation.
type TaskType string

const (
	TaskTypeSegment   TaskType = "segment"   // Stream-copy split
	TaskTypeNormalize TaskType = "normalize" // Re-encode to the canonical format
)

// Command represents an engine invocation that can be built, executed, or previewed.
//
// Example usage:
//
//	cmd := segment.NewSegmentBuilder("in.mp4", "/tmp/x/in-1-of-2.mp4", 0, 120).
//		SetRunner(runner)
//
//	// Preview the command
//	line, _ := cmd.DryRun()
//
//	// Execute the command
//	err := cmd.Run(ctx)
type Command interface {
	// BuildArgs constructs and returns the engine arguments as a slice.
	// The returned slice is suitable for exec.CommandContext(ctx, binary, args...).
	BuildArgs() []string

	// Run executes the command and blocks until it exits.
	//
	// Returns an error if the command fails to start, exits non-zero,
	// or ctx is cancelled.
	Run(ctx context.Context) error

	// DryRun returns the command line as a string without executing it.
	DryRun() (string, error)

	// GetPriority returns the priority level for task scheduling.
	GetPriority() int

	// SetPriority sets the priority level for task scheduling.
	// Returns the Command for method chaining.
	SetPriority(priority int) Command

	// GetTaskType returns the type of task.
	GetTaskType() TaskType

	// GetInputPath returns the primary input file path for this command.
	GetInputPath() string

	// GetOutputPath returns the output file path for this command.
	GetOutputPath() string
}

// FormatCommandLine renders a binary and its arguments as a single
// shell-pasteable line. Arguments containing anything outside
// [A-Za-z0-9_@%+=:,./-] are single-quoted.
func FormatCommandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(binary))
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsFunc(arg, needsQuote) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("_@%+=:,./-", r)
}
