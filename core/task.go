package core

import "fmt"

// TaskFunc is the body of a task. It runs on ctx, the context that currently
// owns t.
type TaskFunc func(ctx *Context, t *Task)

// TaskState is the lifecycle position of a task.
type TaskState int32

const (
	TaskCreated TaskState = iota
	TaskScheduled
	TaskRunning
	TaskFinished
)

func (s TaskState) String() string {
	switch s {
	case TaskCreated:
		return "created"
	case TaskScheduled:
		return "scheduled"
	case TaskRunning:
		return "running"
	case TaskFinished:
		return "finished"
	default:
		return fmt.Sprintf("TaskState(%d)", int32(s))
	}
}

// MigrateHook is notified when a queued task moves from one context to another.
// It runs on the victim's goroutine while both contexts are locked, before the
// task becomes visible in to's queue.
type MigrateHook interface {
	TaskMigrated(from, to *Context, t *Task)
}

// FinishHook is notified once a task's function returns without rescheduling.
type FinishHook interface {
	TaskFinished(ctx *Context, t *Task)
}

// MigrateFunc adapts a function to MigrateHook.
type MigrateFunc func(from, to *Context, t *Task)

// TaskMigrated calls f.
func (f MigrateFunc) TaskMigrated(from, to *Context, t *Task) { f(from, to, t) }

// FinishFunc adapts a function to FinishHook.
type FinishFunc func(ctx *Context, t *Task)

// TaskFinished calls f.
func (f FinishFunc) TaskFinished(ctx *Context, t *Task) { f(ctx, t) }

// Task is the schedulable unit. Tasks are obtained from Context.NewTask and are
// owned by whichever context holds them; once finished they are recycled, so a
// *Task must not be retained past its finish hooks.
type Task struct {
	fn      TaskFunc
	Payload any

	state     TaskState
	owner     int
	onMigrate []MigrateHook
	onFinish  []FinishHook
}

// State returns the lifecycle state.
func (t *Task) State() TaskState {
	return t.state
}

// Owner returns the index of the context that last queued or ran the task.
func (t *Task) Owner() int {
	return t.owner
}

// OnMigrate appends a migrate hook. Hooks run in registration order.
func (t *Task) OnMigrate(h MigrateHook) {
	t.onMigrate = append(t.onMigrate, h)
}

// OnFinish appends a finish hook. Hooks run in registration order.
func (t *Task) OnFinish(h FinishHook) {
	t.onFinish = append(t.onFinish, h)
}

func (t *Task) init(fn TaskFunc, payload any, owner int) {
	t.fn = fn
	t.Payload = payload
	t.state = TaskCreated
	t.owner = owner
}

func (t *Task) migrated(from, to *Context) {
	for _, h := range t.onMigrate {
		h.TaskMigrated(from, to, t)
	}
	t.owner = to.index
}

func (t *Task) finished(ctx *Context) {
	t.state = TaskFinished
	for _, h := range t.onFinish {
		h.TaskFinished(ctx, t)
	}
}

// reset drops every reference so the task can sit in a free list.
func (t *Task) reset() {
	t.fn = nil
	t.Payload = nil
	clear(t.onMigrate)
	t.onMigrate = t.onMigrate[:0]
	clear(t.onFinish)
	t.onFinish = t.onFinish[:0]
}
