package fleet

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"

	"github.com/Swind/go-fleet/core"
)

// Fleet owns a set of execution contexts and runs task graphs on them, one
// goroutine per context. Contexts are allocated on the first Run and again
// whenever the context count changes.
type Fleet struct {
	mu      deadlock.Mutex
	config  core.SchedulerConfig
	count   int
	running bool
	freed   bool
	runs    sync.WaitGroup

	sched atomic.Pointer[core.Scheduler]
}

// Stats represents runtime observability state for a fleet.
type Stats struct {
	core.SchedulerStats
	Running bool
}

// New creates a fleet with one context per CPU and the default configuration.
func New() *Fleet {
	return NewWithConfig(runtime.NumCPU(), nil)
}

// NewWithConfig creates a fleet with count contexts. A nil config selects the
// defaults; a count below 1 selects one context per CPU.
func NewWithConfig(count int, config *core.SchedulerConfig) *Fleet {
	if count < 1 {
		count = runtime.NumCPU()
	}
	if config == nil {
		config = core.DefaultSchedulerConfig()
	}
	return &Fleet{config: *config, count: count}
}

// ContextCount returns the number of contexts the next Run will use.
func (f *Fleet) ContextCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// SetContextCount changes the number of contexts. The existing contexts are
// released and new ones are allocated by the next Run. Panics if n < 1 or if
// the fleet is running.
func (f *Fleet) SetContextCount(n int) {
	if n < 1 {
		panic(fmt.Sprintf("Fleet: context count must be at least 1, got %d", n))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		panic("Fleet: SetContextCount while running")
	}
	if f.freed {
		panic("Fleet: use after Free")
	}
	if n == f.count {
		return
	}
	f.count = n
	if s := f.sched.Swap(nil); s != nil {
		s.Drain()
	}
}

// Run seeds context 0 with fn and blocks until every context has observed
// that the fleet is quiescent. Panics when called while another Run is in
// progress, including from inside a task, or after Free.
func (f *Fleet) Run(fn core.TaskFunc, payload any) {
	if fn == nil {
		panic("Fleet: Run with nil TaskFunc")
	}
	s := f.begin()
	defer f.end()

	s.Seed(fn, payload)
	var wg sync.WaitGroup
	for i := 0; i < s.Count(); i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			s.Work(index)
		}(i)
	}
	wg.Wait()
}

func (f *Fleet) begin() *core.Scheduler {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.freed {
		panic("Fleet: use after Free")
	}
	if f.running {
		panic("Fleet: Run while running")
	}
	s := f.sched.Load()
	if s == nil {
		s = core.NewScheduler(f.count, &f.config)
		f.sched.Store(s)
	}
	f.running = true
	f.runs.Add(1)
	return s
}

func (f *Fleet) end() {
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
	f.runs.Done()
}

// Running reports whether a Run is in progress.
func (f *Fleet) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Stats returns a snapshot of the fleet's counters. Safe to call at any time.
func (f *Fleet) Stats() Stats {
	running := f.Running()
	s := f.sched.Load()
	if s == nil {
		return Stats{SchedulerStats: core.SchedulerStats{Contexts: f.ContextCount()}, Running: running}
	}
	return Stats{SchedulerStats: s.Stats(), Running: running}
}

// Free waits for a Run in progress, reports per-context timing when
// MeasureTiming is enabled and releases every context. Calling Free again is
// a no-op.
func (f *Fleet) Free() {
	f.mu.Lock()
	if f.freed {
		f.mu.Unlock()
		return
	}
	f.freed = true
	f.mu.Unlock()

	f.runs.Wait()

	s := f.sched.Load()
	if s == nil {
		return
	}
	if f.config.MeasureTiming {
		reportTiming(s.Config().Logger, s.Stats())
	}
	s.Drain()
}

func reportTiming(logger core.Logger, stats core.SchedulerStats) {
	for _, c := range stats.PerContext {
		logger.Info(fmt.Sprintf("[%d] timing", c.Index),
			core.F("cpu", core.FormatSeconds(c.CPUTime)),
			core.F("wall", core.FormatSeconds(c.WallTime)),
			core.F("executed", c.Executed),
			core.F("stolen", c.Stolen),
		)
	}
}
