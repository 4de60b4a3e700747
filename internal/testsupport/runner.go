package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Call records one engine invocation seen by FakeRunner.
type Call struct {
	Binary string
	Args   []string
}

// Flag returns the value following name in the call's arguments, or "".
func (c Call) Flag(name string) string {
	for i := 0; i < len(c.Args)-1; i++ {
		if c.Args[i] == name {
			return c.Args[i+1]
		}
	}
	return ""
}

// Output returns the last argument, which is the output path for ffmpeg
// invocations and the input path for ffprobe.
func (c Call) Output() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// FakeRunner stands in for ffmpeg and ffprobe.
//
// Probe calls are answered from a per-path duration table. Every other call
// materializes its output file so later stages can stat it. Concat manifests
// are captured before the caller deletes them.
type FakeRunner struct {
	mu        sync.Mutex
	durations map[string]string
	calls     []Call
	manifests []string
	active    int
	maxActive int

	// Delay makes every call block for the given duration (or until the
	// context is cancelled).
	Delay time.Duration

	// FailOn, when set, is consulted before each call; a non-nil error is
	// returned as the call's result.
	FailOn func(binary string, args []string) error
}

// NewFakeRunner creates an empty fake engine.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{durations: make(map[string]string)}
}

// SetDuration registers the duration ffprobe reports for path.
func (f *FakeRunner) SetDuration(path string, seconds float64) {
	f.SetProbeOutput(path, fmt.Sprintf("%.6f\n", seconds))
}

// SetProbeOutput registers raw ffprobe stdout for path.
func (f *FakeRunner) SetProbeOutput(path, stdout string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations[path] = stdout
}

// Run implements command.Runner.
func (f *FakeRunner) Run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	call := Call{Binary: binary, Args: slices.Clone(args)}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailOn != nil {
		if err := f.FailOn(binary, args); err != nil {
			return nil, err
		}
	}

	if strings.Contains(filepath.Base(binary), "ffprobe") {
		return f.probe(call.Output())
	}

	if call.Flag("-f") == "concat" {
		data, err := os.ReadFile(call.Flag("-i"))
		if err != nil {
			return nil, fmt.Errorf("fake concat: %w", err)
		}
		f.mu.Lock()
		f.manifests = append(f.manifests, string(data))
		f.mu.Unlock()
	}

	output := call.Output()
	content := fmt.Sprintf("%s %s\n", filepath.Base(binary), strings.Join(args, " "))
	if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("fake %s: %w", binary, err)
	}
	return nil, nil
}

func (f *FakeRunner) probe(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, ok := f.durations[path]
	if !ok {
		return nil, fmt.Errorf("%s: No such file or directory", path)
	}
	return []byte(out), nil
}

// Calls returns a copy of every recorded invocation in call order.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns the recorded invocations whose binary base name contains name.
func (f *FakeRunner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if strings.Contains(filepath.Base(c.Binary), name) {
			out = append(out, c)
		}
	}
	return out
}

// Manifests returns the contents of every concat manifest seen.
func (f *FakeRunner) Manifests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.manifests)
}

// MaxConcurrent reports the highest number of overlapping calls observed.
func (f *FakeRunner) MaxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}
