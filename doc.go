// Package fleet is a work-stealing runtime for fine-grained, CPU-bound tasks.
//
// A Fleet runs one goroutine per execution context. Each context owns a ready
// queue; tasks submit more tasks onto the queue of the context running them,
// and contexts that run dry steal half of a busy context's queue. Fleet.Run
// returns once every queue is empty at the same time.
//
// # Quick Start
//
//	f := fleet.New()
//	defer f.Free()
//
//	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
//		for i := 0; i < 1000; i++ {
//			ctx.SubmitLater(work, i)
//		}
//	}, nil)
//
// # Key Concepts
//
// Context: one worker's slice of the runtime. Every Context method must be
// called from a task (or hook) running on that context.
//
// Task: a TaskFunc plus a payload, with optional migrate and finish hooks. A
// running task may reschedule itself instead of finishing.
//
// Local: one value per context, for lock-free accumulation.
//
// Group, After and SCounter: fan-in primitives. A successor starts only after
// every tracked task, on every context, has finished.
//
// # Thread Safety
//
// Tasks run concurrently on different contexts but a context runs one task at
// a time, so per-context state reached through Local needs no locking.
//
// For more details, see https://github.com/Swind/go-fleet
package fleet
