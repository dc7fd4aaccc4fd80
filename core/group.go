package core

import "sync/atomic"

type groupShard struct {
	pending    []*Task
	successors []*Group
}

// Group is a set of tasks started together. Once every task in the group has
// finished, on every context, the groups registered with RunAfter are started.
//
// Tasks added before Start are held back; Start queues all of them on the
// calling context. Every Add preceding Start must happen-before the Start
// call, which holds when the adds are made by the task calling Start or by
// tasks that finished before it was submitted.
type Group struct {
	counter  *SCounter
	shards   *Local[groupShard]
	started  bool
	finished atomic.Bool
}

// NewGroup creates an empty, stopped group.
func NewGroup(ctx *Context) *Group {
	return &Group{
		counter: NewSCounter(ctx),
		shards:  NewLocal[groupShard](ctx.count, nil, nil),
	}
}

// Add puts t into the group. t must not be submitted yet. If the group was
// already started, t is queued on ctx right away.
func (g *Group) Add(ctx *Context, t *Task) {
	if g.finished.Load() {
		panic("Group: Add on a finished group")
	}
	if t.state != TaskCreated {
		panic("Group: can only add an unsubmitted task")
	}
	g.counter.Inc(ctx)
	t.OnMigrate(g)
	t.OnFinish(g)
	if g.started {
		ctx.RunLater(t)
		return
	}
	sh := g.shards.Get(ctx)
	sh.pending = append(sh.pending, t)
}

// Submit creates a task on ctx and adds it to the group.
func (g *Group) Submit(ctx *Context, fn TaskFunc, payload any) *Task {
	t := ctx.NewTask(fn, payload)
	g.Add(ctx, t)
	return t
}

// Start queues every pending task on ctx, in the order each context added
// them. Starting an empty group finishes it immediately.
func (g *Group) Start(ctx *Context) {
	if g.started {
		panic("Group: started twice")
	}
	g.started = true
	g.shards.ForEach(func(i int, sh *groupShard) {
		for j, t := range sh.pending {
			g.counter.MigrateIndex(i, ctx.index)
			ctx.RunLater(t)
			sh.pending[j] = nil
		}
		sh.pending = sh.pending[:0]
	})
	if ctx.tracing(TraceTasks) {
		ctx.tracef("group started (%d contexts pending)", g.counter.Active())
	}
	if g.counter.Active() == 0 {
		g.finish(ctx)
	}
}

// RunAfter registers successor to be started on whichever context finishes
// this group's last task.
func (g *Group) RunAfter(ctx *Context, successor *Group) {
	if g.finished.Load() {
		panic("Group: RunAfter on a finished group")
	}
	sh := g.shards.Get(ctx)
	sh.successors = append(sh.successors, successor)
}

// Started reports whether Start was called.
func (g *Group) Started() bool {
	return g.started
}

// Finished reports whether every task in the group has finished.
func (g *Group) Finished() bool {
	return g.finished.Load()
}

// TaskMigrated follows a group task to its new context.
func (g *Group) TaskMigrated(from, to *Context, t *Task) {
	g.counter.Migrate(from, to)
}

// TaskFinished counts a group task off.
func (g *Group) TaskFinished(ctx *Context, t *Task) {
	if g.counter.Dec(ctx) {
		g.finish(ctx)
	}
}

func (g *Group) finish(ctx *Context) {
	var successors []*Group
	g.shards.ForEach(func(_ int, sh *groupShard) {
		successors = append(successors, sh.successors...)
	})
	g.finished.Store(true)
	g.shards.Free()
	g.counter.Free()
	if ctx.tracing(TraceTasks) {
		ctx.tracef("group finished (%d successors)", len(successors))
	}
	for _, next := range successors {
		next.Start(ctx)
	}
}
