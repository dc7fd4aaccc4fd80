package core

// After releases a trigger task once every task tracked against it, on every
// context, has finished.
//
// The task that creates an After is tracked too, so tracked tasks finishing
// early cannot fire the trigger while the creator is still adding more. All
// Track calls must therefore happen in the creating task or in tasks that are
// themselves tracked.
type After struct {
	counter *SCounter
	trigger *Task
}

// NewAfter creates an After on ctx that will run trigger. trigger must come
// from NewTask and not yet be submitted. Must be called from a running task.
func NewAfter(ctx *Context, trigger *Task) *After {
	if ctx.current == nil {
		panic("After: NewAfter called outside a running task")
	}
	if trigger == nil || trigger.state != TaskCreated {
		panic("After: trigger must be an unsubmitted task")
	}
	a, reused := ctx.afters.Get()
	if reused {
		a.counter.reset()
	} else {
		a.counter = newSCounter(ctx.count)
	}
	a.trigger = trigger
	a.track(ctx, ctx.current)
	return a
}

// Track makes the After wait for t. t must not be submitted yet; it will be
// counted on ctx, so it must be submitted on ctx.
func (a *After) Track(ctx *Context, t *Task) {
	if t.state != TaskCreated {
		panic("After: can only track an unsubmitted task")
	}
	a.track(ctx, t)
}

func (a *After) track(ctx *Context, t *Task) {
	if a.trigger == nil {
		panic("After: tracking on a fired After")
	}
	a.counter.Inc(ctx)
	t.OnMigrate(a)
	t.OnFinish(a)
}

// TaskMigrated moves the tracked unit along with the task.
func (a *After) TaskMigrated(from, to *Context, t *Task) {
	a.counter.Migrate(from, to)
}

// TaskFinished counts the task off and fires the trigger on the last one.
func (a *After) TaskFinished(ctx *Context, t *Task) {
	if a.counter.Dec(ctx) {
		a.fire(ctx)
	}
}

// Active returns the number of contexts still holding tracked tasks.
func (a *After) Active() int64 {
	return a.counter.Active()
}

func (a *After) fire(ctx *Context) {
	trigger := a.trigger
	a.trigger = nil
	ctx.afters.Release(a)
	if ctx.tracing(TraceTasks) {
		ctx.tracef("after fired")
	}
	ctx.Run(trigger)
}

// Then runs first now and second once first, and the calling task, have
// finished.
func (c *Context) Then(first TaskFunc, firstPayload any, second TaskFunc, secondPayload any) {
	a := NewAfter(c, c.NewTask(second, secondPayload))
	t := c.NewTask(first, firstPayload)
	a.Track(c, t)
	c.Run(t)
}
