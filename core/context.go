package core

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Steal-intent values. Any value >= 0 is the index of the thief that claimed
// the context.
const (
	stealNobody  int32 = -1
	stealBlocked int32 = -2
)

// Hand-off results published by a victim into the thief's handoff slot.
const (
	handoffIdle int32 = iota
	handoffWaiting
	handoffEmpty
	handoffDelivered
)

// Context is one execution context: a worker goroutine's ready queue, its
// recycling lists and the fields a single thief uses to steal from it.
//
// Every method except Index, Count and Scheduler must be called from the
// goroutine currently running this context, i.e. from inside a task, hook or
// callback that the scheduler invoked on it.
type Context struct {
	index int
	count int
	sched *Scheduler

	queue      *Deque
	active     bool
	current    *Task
	roundLeft  int
	roundSteps int
	nextVictim int
	backoff    Backoff

	tasks   *FreeList[Task]
	afters  *FreeList[After]
	buffers *Buffers

	lock        SpinLock
	stealIntent PaddedInt32
	handoff     PaddedInt32

	counters contextCounters
}

func newContext(s *Scheduler, index, count int) *Context {
	c := &Context{
		index:   index,
		count:   count,
		sched:   s,
		queue:   NewDeque(),
		tasks:   NewFreeList[Task](s.config.FreeListCapacity),
		afters:  NewFreeList[After](s.config.FreeListCapacity),
		buffers: NewBuffers(s.config.BufferListCapacity),
		backoff: NewBackoff(&s.config.Backoff),
	}
	c.stealIntent.Store(stealBlocked)
	return c
}

// Index returns this context's position in the fleet.
func (c *Context) Index() int { return c.index }

// Count returns the number of contexts in the fleet.
func (c *Context) Count() int { return c.count }

// Scheduler returns the scheduler owning this context.
func (c *Context) Scheduler() *Scheduler { return c.sched }

// Current returns the task whose function is running, or nil inside hooks.
func (c *Context) Current() *Task { return c.current }

// QueueLen returns the number of tasks waiting in the ready queue.
func (c *Context) QueueLen() int { return c.queue.Len() }

// NewTask returns a task from this context's free list, ready to be tracked
// or submitted.
func (c *Context) NewTask(fn TaskFunc, payload any) *Task {
	claim := c.tasks.Claim()
	if fn == nil {
		c.tasks.Abandon(claim)
		panic("Context: NewTask with nil TaskFunc")
	}
	t, _ := c.tasks.Commit(claim)
	t.init(fn, payload, c.index)
	return t
}

// Run queues t ahead of everything already queued on this context.
func (c *Context) Run(t *Task) {
	c.schedule(t)
	c.queue.PushHead(t)
}

// RunLater queues t behind everything already queued on this context.
func (c *Context) RunLater(t *Task) {
	c.schedule(t)
	c.queue.PushTail(t)
}

// Submit creates a task and runs it before already-queued work.
func (c *Context) Submit(fn TaskFunc, payload any) *Task {
	t := c.NewTask(fn, payload)
	c.Run(t)
	return t
}

// SubmitLater creates a task and runs it after already-queued work.
func (c *Context) SubmitLater(fn TaskFunc, payload any) *Task {
	t := c.NewTask(fn, payload)
	c.RunLater(t)
	return t
}

func (c *Context) schedule(t *Task) {
	if t.state != TaskCreated {
		panic(fmt.Sprintf("Context: cannot submit a %s task", t.state))
	}
	t.state = TaskScheduled
	t.owner = c.index
}

// Reschedule puts the running task back at the head of the queue instead of
// finishing it. Its finish hooks are deferred to the generation that returns
// without rescheduling.
func (c *Context) Reschedule(t *Task) {
	c.reschedule(t)
	c.queue.PushHead(t)
}

// RescheduleLater is Reschedule at the tail of the queue.
func (c *Context) RescheduleLater(t *Task) {
	c.reschedule(t)
	c.queue.PushTail(t)
}

func (c *Context) reschedule(t *Task) {
	if t != c.current || t.state != TaskRunning {
		panic("Context: only the running task can reschedule itself")
	}
	t.state = TaskScheduled
}

// AllocBuffer returns a zeroed scratch buffer of length n from this context's
// size-class buckets.
func (c *Context) AllocBuffer(n int) []byte {
	return c.buffers.Alloc(n)
}

// ReleaseBuffer returns a buffer obtained from any context's AllocBuffer.
func (c *Context) ReleaseBuffer(b []byte) {
	c.buffers.Release(b)
}

// Budget returns how many task steps remain in the current round.
func (c *Context) Budget() int {
	return c.roundLeft
}

// consume charges n extra steps to the current round.
func (c *Context) consume(n int) {
	c.roundSteps += n
	c.roundLeft -= n
	if c.roundLeft < 0 {
		c.roundLeft = 0
	}
}

func (c *Context) tracing(level int) bool {
	return c.sched.config.Verbosity >= level
}

func (c *Context) tracef(format string, args ...any) {
	c.sched.config.Logger.Debug(fmt.Sprintf("[%d] ", c.index) + fmt.Sprintf(format, args...))
}

// execute runs one task step and finishes the task unless it rescheduled
// itself.
func (c *Context) execute(t *Task) {
	t.state = TaskRunning
	t.owner = c.index
	c.current = t
	c.invoke(t)
	c.current = nil
	if t.state != TaskRunning {
		return
	}
	t.finished(c)
	t.reset()
	c.tasks.Release(t)
}

func (c *Context) invoke(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			c.counters.panics.Add(1)
			c.sched.config.PanicHandler.HandlePanic(c.index, r, debug.Stack())
			c.sched.config.Metrics.RecordTaskPanic(c.index, r)
		}
	}()
	t.fn(c, t)
}

// prepare resets per-run state. Context 0 starts active and unblocked; every
// other context starts idle and blocked against thieves.
func (c *Context) prepare(active bool) {
	c.active = active
	c.current = nil
	c.nextVictim = c.index
	c.backoff.Reset()
	c.handoff.Store(handoffIdle)
	if active {
		c.stealIntent.Store(stealNobody)
	} else {
		c.stealIntent.Store(stealBlocked)
	}
}

// publish copies the owner-only allocation counters where Stats can read them.
func (c *Context) publish() {
	c.counters.queueDepth.Store(int64(c.queue.Len()))
	c.counters.tasks.store(c.tasks.Stats())
	c.counters.buffers.store(c.buffers.Stats())
}

type allocCounters struct {
	allocated atomic.Int64
	reused    atomic.Int64
	released  atomic.Int64
	dropped   atomic.Int64
	free      atomic.Int64
}

func (a *allocCounters) store(s AllocStats) {
	a.allocated.Store(s.Allocated)
	a.reused.Store(s.Reused)
	a.released.Store(s.Released)
	a.dropped.Store(s.Dropped)
	a.free.Store(int64(s.Free))
}

func (a *allocCounters) load() AllocStats {
	return AllocStats{
		Allocated: a.allocated.Load(),
		Reused:    a.reused.Load(),
		Released:  a.released.Load(),
		Dropped:   a.dropped.Load(),
		Free:      int(a.free.Load()),
	}
}

func (c *Context) stats() ContextStats {
	k := &c.counters
	return ContextStats{
		Index:        c.index,
		Executed:     k.executed.Load(),
		Stolen:       k.stolen.Load(),
		Given:        k.given.Load(),
		Steals:       k.steals.Load(),
		FailedSteals: k.failedSteals.Load(),
		Panics:       k.panics.Load(),
		QueueDepth:   int(k.queueDepth.Load()),
		Tasks:        k.tasks.load(),
		Buffers:      k.buffers.load(),
		CPUTime:      time.Duration(k.cpuTime.Load()),
		WallTime:     time.Duration(k.wallTime.Load()),
	}
}
