package core

import (
	"fmt"
	"sync/atomic"
)

// Scheduler owns the execution contexts of a fleet and implements the
// per-context work loop and the stealing protocol. It does not start
// goroutines itself: the owner calls Seed once per run and then Work(i) on one
// goroutine per context.
type Scheduler struct {
	config   SchedulerConfig
	contexts []*Context
	active   Counter
	runs     atomic.Int64
}

// NewScheduler creates count contexts. Panics if count < 1.
func NewScheduler(count int, config *SchedulerConfig) *Scheduler {
	if count < 1 {
		panic(fmt.Sprintf("Scheduler: context count must be at least 1, got %d", count))
	}
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	s := &Scheduler{config: config.withDefaults()}
	s.contexts = make([]*Context, count)
	for i := range s.contexts {
		s.contexts[i] = newContext(s, i, count)
	}
	return s
}

// Count returns the number of contexts.
func (s *Scheduler) Count() int { return len(s.contexts) }

// Context returns the context with the given index.
func (s *Scheduler) Context(index int) *Context { return s.contexts[index] }

// Config returns the effective configuration.
func (s *Scheduler) Config() SchedulerConfig { return s.config }

// ActiveContexts returns how many contexts currently hold work.
func (s *Scheduler) ActiveContexts() int { return int(s.active.Load()) }

// Seed prepares a run: every context is reset, context 0 receives the entry
// task and becomes the only active context. Must not be called while any
// Work call is in progress.
func (s *Scheduler) Seed(fn TaskFunc, payload any) {
	for _, c := range s.contexts {
		c.prepare(c.index == 0)
	}
	c0 := s.contexts[0]
	c0.Run(c0.NewTask(fn, payload))
	s.active.Reset(1)
	s.runs.Add(1)
}

// Work runs context index until the whole fleet is quiescent.
func (s *Scheduler) Work(index int) {
	c := s.contexts[index]
	sw := startStopwatch(s.config.MeasureTiming)
	if c.tracing(TraceLifecycle) {
		c.tracef("starting (active=%v)", c.active)
	}

	c.loop()

	cpu, wall := sw.stop()
	if s.config.MeasureTiming {
		c.counters.cpuTime.Add(int64(cpu))
		c.counters.wallTime.Add(int64(wall))
		s.config.Metrics.RecordContextTime(c.index, cpu, wall)
	}
	c.publish()
	if c.tracing(TraceLifecycle) {
		c.tracef("quiescent")
	}
}

// loop alternates between draining the local queue and stealing until the
// fleet's active-context count reaches zero.
func (c *Context) loop() {
	if !c.active && !c.steal() {
		return
	}
	for {
		c.drain()
		c.block()
		if c.sched.active.Dec() {
			return
		}
		if !c.steal() {
			return
		}
	}
}

// drain runs rounds until the ready queue is empty. Each round starts with a
// checkpoint where a waiting thief is served first.
func (c *Context) drain() {
	roundSize := c.sched.config.RoundSize
	metrics := c.sched.config.Metrics
	for {
		if thief := c.stealIntent.Load(); thief >= 0 {
			c.serve(thief)
		}
		depth := c.queue.Len()
		c.counters.queueDepth.Store(int64(depth))
		metrics.RecordQueueDepth(c.index, depth)

		c.roundLeft = roundSize
		c.roundSteps = 0
		for c.roundLeft > 0 {
			t := c.queue.PopHead()
			if t == nil {
				break
			}
			c.roundLeft--
			c.roundSteps++
			if c.tracing(TraceTasks) {
				c.tracef("running task (queued=%d)", c.queue.Len())
			}
			c.execute(t)
		}
		c.roundLeft = 0
		if c.roundSteps > 0 {
			c.counters.executed.Add(int64(c.roundSteps))
			metrics.RecordTasksExecuted(c.index, c.roundSteps)
		}
		c.publish()
		if c.queue.IsEmpty() {
			return
		}
	}
}

// block marks the drained context as unavailable to thieves. A thief that
// claimed it in the meantime is answered first (with nothing to give).
func (c *Context) block() {
	for {
		cur := c.stealIntent.Load()
		switch {
		case cur == stealNobody:
			if c.stealIntent.CompareAndSwap(stealNobody, stealBlocked) {
				c.active = false
				return
			}
		case cur == stealBlocked:
			c.active = false
			return
		default:
			c.serve(cur)
		}
	}
}

// serve hands ⌊n/2⌋ tasks from the tail of the queue to the thief that
// claimed this context, then releases the claim.
func (c *Context) serve(thiefIndex int32) {
	thief := c.sched.contexts[thiefIndex]

	c.lock.Lock()
	thief.lock.Lock()
	n := c.queue.StealHalf(thief.queue, func(t *Task) {
		t.migrated(c, thief)
	})
	if n > 0 {
		// Counted on the thief's behalf while this context is still active,
		// so the total never touches zero while work is in flight.
		c.sched.active.Inc()
	}
	thief.lock.Unlock()
	c.lock.Unlock()

	if n > 0 {
		c.counters.given.Add(int64(n))
		thief.handoff.Store(handoffDelivered)
	} else {
		thief.handoff.Store(handoffEmpty)
	}
	c.stealIntent.Store(stealNobody)

	if c.tracing(TraceSteals) {
		c.tracef("gave %d tasks to %d", n, thiefIndex)
	}
}

// pickVictim returns the next context after the last one tried, skipping
// this one.
func (c *Context) pickVictim() *Context {
	c.nextVictim = (c.nextVictim + 1) % c.count
	if c.nextVictim == c.index {
		c.nextVictim = (c.nextVictim + 1) % c.count
	}
	return c.sched.contexts[c.nextVictim]
}

// steal waits for work from another context. It returns true once a victim
// handed over tasks, or false when the fleet became quiescent.
func (c *Context) steal() bool {
	s := c.sched
	c.backoff.Reset()
	for {
		if s.active.Load() == 0 {
			return false
		}
		if c.count == 1 {
			c.backoff.Pause()
			continue
		}

		victim := c.pickVictim()
		c.handoff.Store(handoffWaiting)
		if !victim.stealIntent.CompareAndSwap(stealNobody, int32(c.index)) {
			c.handoff.Store(handoffIdle)
			c.counters.failedSteals.Add(1)
			s.config.Metrics.RecordStealFailed(c.index, "busy")
			c.backoff.Pause()
			continue
		}

		wait := NewBackoff(&s.config.Backoff)
		result := c.handoff.Load()
		for result == handoffWaiting {
			wait.Pause()
			result = c.handoff.Load()
		}
		c.handoff.Store(handoffIdle)

		if result == handoffDelivered {
			n := c.queue.Len()
			c.active = true
			c.stealIntent.Store(stealNobody)
			c.counters.steals.Add(1)
			c.counters.stolen.Add(int64(n))
			s.config.Metrics.RecordSteal(c.index, victim.index, n)
			if c.tracing(TraceSteals) {
				c.tracef("stole %d tasks from %d", n, victim.index)
			}
			return true
		}

		c.counters.failedSteals.Add(1)
		s.config.Metrics.RecordStealFailed(c.index, "empty")
		c.backoff.Pause()
	}
}

// Stats returns a snapshot of every context's counters. Safe to call at any
// time, including during a run.
func (s *Scheduler) Stats() SchedulerStats {
	stats := SchedulerStats{
		Contexts:       len(s.contexts),
		ActiveContexts: s.ActiveContexts(),
		Runs:           s.runs.Load(),
		PerContext:     make([]ContextStats, len(s.contexts)),
	}
	for i, c := range s.contexts {
		stats.PerContext[i] = c.stats()
	}
	return stats
}

// Drain releases every task still queued and empties all recycling lists.
// Queued tasks are dropped without running their hooks. Must not be called
// while any Work call is in progress.
func (s *Scheduler) Drain() {
	for _, c := range s.contexts {
		c.queue.Drain(func(t *Task) {
			t.reset()
			c.tasks.Release(t)
		})
		c.tasks.Drain(nil)
		c.afters.Drain(func(a *After) {
			a.counter.Free()
		})
		c.buffers.Drain()
		c.publish()
	}
}
