package fleet

import "github.com/Swind/go-fleet/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the fleet package for most use cases.

// Context is one execution context, passed to every task.
type Context = core.Context

// Task is the schedulable unit
type Task = core.Task

// TaskFunc is the body of a task
type TaskFunc = core.TaskFunc

// RangeFunc is the body of a range task, called once per index
type RangeFunc = core.RangeFunc

// Group starts a set of tasks together and runs successors once they finish
type Group = core.Group

// After runs a trigger task once every tracked task has finished
type After = core.After

// SCounter is a sharded semaphore counter for custom fan-in logic
type SCounter = core.SCounter

// Local holds one value per execution context
type Local[T any] = core.Local[T]

// Pool recycles instances with a free stack per context
type Pool[T any] = core.Pool[T]

// PoolFuncs are the callbacks of a Pool
type PoolFuncs[T any] = core.PoolFuncs[T]

// MigrateFunc adapts a function to a migrate hook
type MigrateFunc = core.MigrateFunc

// FinishFunc adapts a function to a finish hook
type FinishFunc = core.FinishFunc

// Constructors bound to the current context
var (
	NewGroup    = core.NewGroup
	NewAfter    = core.NewAfter
	NewSCounter = core.NewSCounter
)

// NewLocal allocates one T per context of ctx's fleet.
func NewLocal[T any](ctx *Context, init, done func(index int, v *T)) *Local[T] {
	return core.NewLocal(ctx.Count(), init, done)
}

// NewPool creates a pool sized for ctx's fleet.
func NewPool[T any](ctx *Context, funcs PoolFuncs[T]) *Pool[T] {
	return core.NewPool(ctx, funcs)
}
