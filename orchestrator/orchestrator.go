package orchestrator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"splicer/command"
	"splicer/models"
)

// ResourceType represents a class of work that shares a concurrency limit.
type ResourceType string

// ResourceEncode is re-encoding, bounded by the worker count.
const ResourceEncode ResourceType = "encode"

// ErrSkipped marks tasks that never started because the run was aborted.
var ErrSkipped = errors.New("skipped after earlier failure")

// Task represents a unit of work and the resource it occupies while running
type Task struct {
	ID        string
	Command   command.Command
	Resource  ResourceType
	Status    TaskStatus
	Error     error
	Result    *models.StageResult
	StartTime time.Time
	EndTime   time.Time

	index int
}

// TaskStatus represents the current state of a task
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskCompleted
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	default:
		return fmt.Sprintf("TaskStatus(%d)", int(s))
	}
}

// ResourceConstraint defines limits for a resource type
type ResourceConstraint struct {
	Type     ResourceType
	MaxSlots int // Maximum concurrent tasks for this resource
}

// TaskError reports the first task failure of a run.
type TaskError struct {
	TaskID    string
	InputPath string
	Err       error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Orchestrator runs tasks by priority within per-resource slot limits.
//
// Execution is fail-fast: the first failure cancels the context passed to
// running commands, no further tasks are started, and Execute returns that
// failure once every running task has exited. Results are always reported in
// the order tasks were added, never in completion order.
type Orchestrator struct {
	tasks       map[string]*Task
	order       []*Task
	constraints map[ResourceType]*ResourceConstraint
	logger      *zap.Logger

	tasksMutex sync.RWMutex

	// Progress tracking
	onProgress func(completed, total int, task *Task)
}

// NewOrchestrator creates a new orchestrator with resource constraints.
// Resources without a constraint run unbounded.
func NewOrchestrator(constraints []ResourceConstraint, logger *zap.Logger) *Orchestrator {
	constraintMap := make(map[ResourceType]*ResourceConstraint)
	for i := range constraints {
		constraintMap[constraints[i].Type] = &constraints[i]
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		tasks:       make(map[string]*Task),
		constraints: constraintMap,
		logger:      logger,
	}
}

// AddTask adds a task to the orchestrator
func (o *Orchestrator) AddTask(task *Task) error {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	if task.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if task.Command == nil {
		return fmt.Errorf("task %s has no command", task.ID)
	}
	if _, exists := o.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	task.Status = TaskPending
	task.index = len(o.order)
	o.tasks[task.ID] = task
	o.order = append(o.order, task)
	return nil
}

// SetProgressCallback sets a callback for progress updates. The callback runs
// on the scheduler goroutine, one call per finished task.
func (o *Orchestrator) SetProgressCallback(callback func(completed, total int, task *Task)) {
	o.onProgress = callback
}

type completion struct {
	task *Task
	err  error
}

// Execute runs all tasks and returns one result per task in insertion order.
func (o *Orchestrator) Execute(ctx context.Context) ([]*models.StageResult, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := len(o.order)
	completed := 0
	running := 0
	active := make(map[ResourceType]int)
	doneCh := make(chan completion)
	var firstErr error

	for completed < total {
		if firstErr == nil && ctx.Err() == nil {
			for _, task := range o.readyTasks() {
				if !o.tryAcquire(active, task.Resource) {
					continue
				}
				running++
				o.start(runCtx, task, doneCh)
			}
		}

		if running == 0 {
			break
		}

		done := <-doneCh
		running--
		completed++
		active[done.task.Resource]--

		if err := o.finish(done); err != nil && firstErr == nil {
			firstErr = &TaskError{TaskID: done.task.ID, InputPath: done.task.Command.GetInputPath(), Err: err}
			o.logger.Debug("task failed, aborting run",
				zap.String("task", done.task.ID),
				zap.String("type", string(done.task.Command.GetTaskType())),
				zap.Error(err))
			cancel()
		}

		if o.onProgress != nil {
			o.onProgress(completed, total, done.task)
		}
	}

	if firstErr == nil {
		if err := ctx.Err(); err != nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		o.skipPending()
	}

	results := make([]*models.StageResult, 0, total)
	for _, task := range o.order {
		if task.Result != nil {
			results = append(results, task.Result)
		}
	}
	return results, firstErr
}

// readyTasks returns pending tasks, highest priority first, then insertion
// order.
func (o *Orchestrator) readyTasks() []*Task {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	ready := make([]*Task, 0)
	for _, task := range o.order {
		if task.Status == TaskPending {
			ready = append(ready, task)
		}
	}
	slices.SortStableFunc(ready, func(a, b *Task) int {
		return cmp.Compare(b.Command.GetPriority(), a.Command.GetPriority())
	})
	return ready
}

// tryAcquire attempts to take a slot for resourceType.
func (o *Orchestrator) tryAcquire(active map[ResourceType]int, resourceType ResourceType) bool {
	constraint, exists := o.constraints[resourceType]
	if exists && active[resourceType] >= constraint.MaxSlots {
		return false
	}
	active[resourceType]++
	return true
}

func (o *Orchestrator) start(ctx context.Context, task *Task, doneCh chan<- completion) {
	o.tasksMutex.Lock()
	task.Status = TaskRunning
	task.StartTime = time.Now()
	o.tasksMutex.Unlock()

	go func() {
		err := task.Command.Run(ctx)
		doneCh <- completion{task: task, err: err}
	}()
}

// finish records the outcome of a task and returns its error, if any.
func (o *Orchestrator) finish(done completion) error {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	task := done.task
	task.EndTime = time.Now()

	var result *models.StageResult
	var err error
	if done.err != nil {
		task.Status = TaskFailed
		task.Error = done.err
		result, err = models.NewStageResultFailure(task.index, task.ID, done.err)
	} else {
		task.Status = TaskCompleted
		result, err = models.NewStageResultSuccess(task.index, task.ID, task.Command.GetOutputPath())
	}
	if err != nil {
		task.Status = TaskFailed
		task.Error = err
		result = &models.StageResult{Index: task.index, TaskID: task.ID, Error: err}
	}
	task.Result = result
	return task.Error
}

// skipPending marks every task that never started as failed.
func (o *Orchestrator) skipPending() {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	for _, task := range o.order {
		if task.Status != TaskPending {
			continue
		}
		task.Status = TaskFailed
		task.Error = ErrSkipped
		task.Result = &models.StageResult{Index: task.index, TaskID: task.ID, Error: ErrSkipped}
	}
}

// validate checks the resource limits before a run.
func (o *Orchestrator) validate() error {
	for resourceType, constraint := range o.constraints {
		if constraint.MaxSlots < 1 {
			return fmt.Errorf("resource %s must allow at least one slot, got %d", resourceType, constraint.MaxSlots)
		}
	}
	return nil
}

// GetStats returns execution statistics keyed by status name plus "total".
func (o *Orchestrator) GetStats() map[string]int {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	stats := map[string]int{
		"total":     len(o.order),
		"pending":   0,
		"running":   0,
		"completed": 0,
		"failed":    0,
	}
	for _, task := range o.order {
		stats[task.Status.String()]++
	}
	return stats
}
