package core

import (
	"sync/atomic"
	"time"
)

// ContextStats represents runtime observability state for one execution context.
type ContextStats struct {
	Index        int
	Executed     int64 // task steps run (range iterations count individually)
	Stolen       int64 // tasks received from victims
	Given        int64 // tasks handed to thieves
	Steals       int64 // successful steal hand-offs as thief
	FailedSteals int64 // attempts that found the victim busy or empty
	Panics       int64
	QueueDepth   int // at the last checkpoint
	Tasks        AllocStats
	Buffers      AllocStats
	CPUTime      time.Duration
	WallTime     time.Duration
}

// SchedulerStats represents runtime observability state for a scheduler.
type SchedulerStats struct {
	Contexts       int
	ActiveContexts int
	Runs           int64
	PerContext     []ContextStats
}

// Executed returns the total number of task steps run.
func (s SchedulerStats) Executed() int64 {
	var n int64
	for _, c := range s.PerContext {
		n += c.Executed
	}
	return n
}

// Steals returns the total number of successful hand-offs.
func (s SchedulerStats) Steals() int64 {
	var n int64
	for _, c := range s.PerContext {
		n += c.Steals
	}
	return n
}

// Tasks returns the task allocation counters summed over all contexts.
func (s SchedulerStats) Tasks() AllocStats {
	var a AllocStats
	for _, c := range s.PerContext {
		a = a.Add(c.Tasks)
	}
	return a
}

// contextCounters are written by the owning context and read by Stats from
// any goroutine.
type contextCounters struct {
	_            Pad
	executed     atomic.Int64
	stolen       atomic.Int64
	given        atomic.Int64
	steals       atomic.Int64
	failedSteals atomic.Int64
	panics       atomic.Int64
	queueDepth   atomic.Int64
	cpuTime      atomic.Int64
	wallTime     atomic.Int64
	tasks        allocCounters
	buffers      allocCounters
	_            Pad
}
