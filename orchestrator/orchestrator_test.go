package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"splicer/command"
)

// MockCommand is a test command that simulates work
type MockCommand struct {
	id         string
	outputPath string
	duration   time.Duration
	shouldFail bool
	executed   atomic.Bool
	cancelled  atomic.Bool
	priority   int
	onRun      func()
	onExit     func()
}

func (m *MockCommand) Run(ctx context.Context) error {
	if m.onRun != nil {
		m.onRun()
	}
	if m.onExit != nil {
		defer m.onExit()
	}
	select {
	case <-time.After(m.duration):
	case <-ctx.Done():
		m.cancelled.Store(true)
		return ctx.Err()
	}
	m.executed.Store(true)
	if m.shouldFail {
		return errors.New("mock command failed")
	}
	return nil
}

func (m *MockCommand) GetOutputPath() string {
	return m.outputPath
}

func (m *MockCommand) DryRun() (string, error) {
	return fmt.Sprintf("ffmpeg mock command %s", m.id), nil
}

func (m *MockCommand) BuildArgs() []string {
	return []string{"-i", "input.mp4", "-c:v", "copy", m.outputPath}
}

func (m *MockCommand) GetPriority() int {
	return m.priority
}

func (m *MockCommand) SetPriority(priority int) command.Command {
	m.priority = priority
	return m
}

func (m *MockCommand) GetTaskType() command.TaskType {
	return command.TaskTypeNormalize
}

func (m *MockCommand) GetInputPath() string {
	return "/in/" + m.id + ".mp4"
}

func newMock(id string, d time.Duration) *MockCommand {
	return &MockCommand{id: id, outputPath: "/tmp/" + id + ".mp4", duration: d}
}

func TestOrchestrator_Parallel(t *testing.T) {
	orch := NewOrchestrator([]ResourceConstraint{
		{Type: ResourceEncode, MaxSlots: 3},
	}, zap.NewNop())

	for _, id := range []string{"A", "B", "C"} {
		orch.AddTask(&Task{ID: id, Command: newMock(id, 100*time.Millisecond), Resource: ResourceEncode})
	}

	start := time.Now()
	results, err := orch.Execute(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}

	// If parallel, should take ~100ms. If sequential, would take ~300ms
	if elapsed > 250*time.Millisecond {
		t.Errorf("Tasks should run in parallel, took %v", elapsed)
	}
}

func TestOrchestrator_ResourceConstraint(t *testing.T) {
	orch := NewOrchestrator([]ResourceConstraint{
		{Type: ResourceEncode, MaxSlots: 2},
	}, nil)

	var current, peak atomic.Int32
	for i := range 6 {
		id := fmt.Sprintf("T%d", i)
		mock := newMock(id, 20*time.Millisecond)
		mock.onRun = func() {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
		}
		mock.onExit = func() { current.Add(-1) }
		orch.AddTask(&Task{ID: id, Command: mock, Resource: ResourceEncode})
	}

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("Expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
}

func TestOrchestrator_ResultsInInsertionOrder(t *testing.T) {
	orch := NewOrchestrator([]ResourceConstraint{
		{Type: ResourceEncode, MaxSlots: 4},
	}, nil)

	// Later tasks finish first.
	durations := []time.Duration{80, 60, 40, 20}
	for i, d := range durations {
		id := fmt.Sprintf("T%d", i)
		orch.AddTask(&Task{ID: id, Command: newMock(id, d*time.Millisecond), Resource: ResourceEncode})
	}

	var finished []string
	orch.SetProgressCallback(func(completed, total int, task *Task) {
		finished = append(finished, task.ID)
	})

	results, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	for i, result := range results {
		if result.Index != i || result.TaskID != fmt.Sprintf("T%d", i) {
			t.Errorf("Result %d out of order: %+v", i, result)
		}
		if err := result.Validate(); err != nil {
			t.Errorf("Result %d invalid: %v", i, err)
		}
	}
	if len(finished) != 4 || finished[0] != "T3" {
		t.Errorf("Expected completion order to start with T3, got %v", finished)
	}
}

func TestOrchestrator_FailFast(t *testing.T) {
	orch := NewOrchestrator([]ResourceConstraint{
		{Type: ResourceEncode, MaxSlots: 2},
	}, nil)

	failing := newMock("bad", 10*time.Millisecond)
	failing.shouldFail = true
	slow := newMock("slow", 5*time.Second)
	queued := newMock("queued", 10*time.Millisecond)

	orch.AddTask(&Task{ID: "bad", Command: failing, Resource: ResourceEncode})
	orch.AddTask(&Task{ID: "slow", Command: slow, Resource: ResourceEncode})
	orch.AddTask(&Task{ID: "queued", Command: queued, Resource: ResourceEncode})

	start := time.Now()
	results, err := orch.Execute(context.Background())
	if err == nil {
		t.Fatal("Expected error from failing task")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Running tasks should be cancelled after the first failure")
	}

	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("Expected *TaskError, got %T", err)
	}
	if taskErr.TaskID != "bad" || taskErr.InputPath != "/in/bad.mp4" {
		t.Errorf("Unexpected task error %+v", taskErr)
	}

	if !slow.cancelled.Load() {
		t.Error("Expected running task to observe cancellation")
	}
	if queued.executed.Load() {
		t.Error("Queued task should never start after a failure")
	}

	if stats := orch.GetStats(); stats["failed"] != 3 || stats["completed"] != 0 {
		t.Errorf("Expected every task marked failed, got %v", stats)
	}
	if len(results) != 3 {
		t.Fatalf("Expected a result for every task, got %d", len(results))
	}
	if !errors.Is(results[2].Error, ErrSkipped) {
		t.Errorf("Expected skipped result for queued task, got %v", results[2].Error)
	}
}

func TestOrchestrator_ParentCancelled(t *testing.T) {
	orch := NewOrchestrator(nil, nil)
	orch.AddTask(&Task{ID: "A", Command: newMock("A", 5*time.Second), Resource: ResourceEncode})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := orch.Execute(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestOrchestrator_PriorityOrder(t *testing.T) {
	orch := NewOrchestrator([]ResourceConstraint{
		{Type: ResourceEncode, MaxSlots: 1},
	}, nil)

	low := newMock("low", time.Millisecond)
	low.SetPriority(command.PriorityLow)
	high := newMock("high", time.Millisecond)
	high.SetPriority(command.PriorityNormal)

	orch.AddTask(&Task{ID: "low", Command: low, Resource: ResourceEncode})
	orch.AddTask(&Task{ID: "high", Command: high, Resource: ResourceEncode})

	var order []string
	orch.SetProgressCallback(func(_, _ int, task *Task) {
		order = append(order, task.ID)
	})
	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(order) != 2 || order[0] != "high" {
		t.Errorf("Expected high priority task first, got %v", order)
	}
}

func TestOrchestrator_Validation(t *testing.T) {
	t.Run("zero slots", func(t *testing.T) {
		orch := NewOrchestrator([]ResourceConstraint{{Type: ResourceEncode, MaxSlots: 0}}, nil)
		orch.AddTask(&Task{ID: "A", Command: newMock("A", 0), Resource: ResourceEncode})
		if _, err := orch.Execute(context.Background()); err == nil {
			t.Error("Expected error for zero slots")
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		orch := NewOrchestrator(nil, nil)
		orch.AddTask(&Task{ID: "A", Command: newMock("A", 0)})
		if err := orch.AddTask(&Task{ID: "A", Command: newMock("A", 0)}); err == nil {
			t.Error("Expected duplicate error")
		}
	})

	t.Run("nil command", func(t *testing.T) {
		orch := NewOrchestrator(nil, nil)
		if err := orch.AddTask(&Task{ID: "A"}); err == nil {
			t.Error("Expected error for nil command")
		}
	})
}

func TestOrchestrator_EmptyRun(t *testing.T) {
	results, err := NewOrchestrator(nil, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}

func TestOrchestrator_GetStats(t *testing.T) {
	orch := NewOrchestrator(nil, nil)
	orch.AddTask(&Task{ID: "A", Command: newMock("A", time.Millisecond)})
	orch.AddTask(&Task{ID: "B", Command: newMock("B", time.Millisecond)})

	stats := orch.GetStats()
	if stats["total"] != 2 || stats["pending"] != 2 {
		t.Errorf("Unexpected stats before run: %v", stats)
	}

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	stats = orch.GetStats()
	if stats["completed"] != 2 {
		t.Errorf("Unexpected stats after run: %v", stats)
	}
}
