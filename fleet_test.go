package fleet_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Swind/go-fleet"
	"github.com/Swind/go-fleet/core"
)

func quietConfig() *core.SchedulerConfig {
	cfg := core.DefaultSchedulerConfig()
	cfg.Logger = core.NewNoOpLogger()
	return cfg
}

// TestFleet_WorkConservation verifies every submitted task runs exactly once
// Given: Fleets with 1, 2, 4 and 8 contexts
// When: A bulk range [0, N) of tasks each increments a shared counter
// Then: The counter equals N and no task is left allocated
func TestFleet_WorkConservation(t *testing.T) {
	for _, contexts := range []int{1, 2, 4, 8} {
		for _, n := range []int{0, 1, 1000, 1000000} {
			t.Run(fmt.Sprintf("contexts=%d/n=%d", contexts, n), func(t *testing.T) {
				if testing.Short() && n > 1000 {
					t.Skip("large run")
				}
				f := fleet.NewWithConfig(contexts, quietConfig())
				defer f.Free()
				var count atomic.Int64

				f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
					for i := 0; i < n; i++ {
						ctx.SubmitLater(func(*fleet.Context, *fleet.Task) { count.Add(1) }, nil)
					}
				}, nil)

				if got := count.Load(); got != int64(n) {
					t.Errorf("count = %d, want %d", got, n)
				}
				stats := f.Stats()
				if got := stats.Executed(); got != int64(n)+1 {
					t.Errorf("Executed() = %d, want %d", got, n+1)
				}
				if live := stats.Tasks().Live(); live != 0 {
					t.Errorf("live tasks = %d, want 0", live)
				}
			})
		}
	}
}

// TestFleet_RunTwice verifies contexts are reused across runs
func TestFleet_RunTwice(t *testing.T) {
	f := fleet.NewWithConfig(4, quietConfig())
	defer f.Free()

	for run := 1; run <= 2; run++ {
		var count atomic.Int64
		f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
			for i := 0; i < 5000; i++ {
				ctx.Submit(func(*fleet.Context, *fleet.Task) { count.Add(1) }, nil)
			}
		}, nil)
		if count.Load() != 5000 {
			t.Errorf("run %d: count = %d, want 5000", run, count.Load())
		}
	}

	stats := f.Stats()
	if stats.Runs != 2 {
		t.Errorf("Runs = %d, want 2", stats.Runs)
	}
	if stats.Tasks().Reused == 0 {
		t.Error("second run did not reuse any recycled task")
	}
}

// TestFleet_SetContextCount verifies contexts are reallocated lazily
// Given: A fleet that already ran on 2 contexts
// When: The context count is changed to 3 and the fleet runs again
// Then: Tasks see 3 contexts and Stats reports 3 contexts
func TestFleet_SetContextCount(t *testing.T) {
	f := fleet.NewWithConfig(2, quietConfig())
	defer f.Free()

	var seen atomic.Int64
	entry := func(ctx *fleet.Context, _ *fleet.Task) { seen.Store(int64(ctx.Count())) }

	f.Run(entry, nil)
	if seen.Load() != 2 {
		t.Fatalf("Count() = %d, want 2", seen.Load())
	}

	f.SetContextCount(3)
	if f.ContextCount() != 3 {
		t.Errorf("ContextCount() = %d, want 3", f.ContextCount())
	}
	f.Run(entry, nil)
	if seen.Load() != 3 {
		t.Errorf("Count() = %d, want 3", seen.Load())
	}
	if got := f.Stats().Contexts; got != 3 {
		t.Errorf("Stats().Contexts = %d, want 3", got)
	}
}

// TestFleet_Misuse verifies invalid calls panic
func TestFleet_Misuse(t *testing.T) {
	tests := []struct {
		name string
		fn   func(f *fleet.Fleet)
	}{
		{"zero contexts", func(f *fleet.Fleet) { f.SetContextCount(0) }},
		{"nil task", func(f *fleet.Fleet) { f.Run(nil, nil) }},
		{"run after free", func(f *fleet.Fleet) {
			f.Free()
			f.Run(func(*fleet.Context, *fleet.Task) {}, nil)
		}},
		{"nested run", func(f *fleet.Fleet) {
			var inner any
			f.Run(func(*fleet.Context, *fleet.Task) {
				defer func() { inner = recover() }()
				f.Run(func(*fleet.Context, *fleet.Task) {}, nil)
			}, nil)
			panic(inner)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fleet.NewWithConfig(2, quietConfig())
			defer f.Free()
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn(f)
		})
	}
}

// TestFleet_FreeIdempotent verifies teardown empties every list and can repeat
// Given: A fleet that ran tasks using buffers and barriers
// When: Free is called twice
// Then: No allocation is live and every free list is empty
func TestFleet_FreeIdempotent(t *testing.T) {
	f := fleet.NewWithConfig(4, quietConfig())
	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		a := fleet.NewAfter(ctx, ctx.NewTask(func(*fleet.Context, *fleet.Task) {}, nil))
		for i := 0; i < 10000; i++ {
			task := ctx.NewTask(func(ctx *fleet.Context, _ *fleet.Task) {
				buf := ctx.AllocBuffer(48)
				buf[0] = 1
				ctx.ReleaseBuffer(buf)
			}, nil)
			a.Track(ctx, task)
			ctx.RunLater(task)
		}
	}, nil)

	f.Free()
	f.Free()

	stats := f.Stats()
	for _, c := range stats.PerContext {
		if c.Tasks.Free != 0 || c.Buffers.Free != 0 {
			t.Errorf("context %d still holds %d tasks, %d buffers", c.Index, c.Tasks.Free, c.Buffers.Free)
		}
		if c.Buffers.Live() != 0 {
			t.Errorf("context %d: %d buffers live", c.Index, c.Buffers.Live())
		}
	}
	if live := stats.Tasks().Live(); live != 0 {
		t.Errorf("live tasks = %d, want 0", live)
	}
}

// TestFleet_MeasureTiming verifies timing is collected and reported at Free
func TestFleet_MeasureTiming(t *testing.T) {
	cfg := quietConfig()
	cfg.MeasureTiming = true
	logger := &recordingLogger{}
	cfg.Logger = logger
	f := fleet.NewWithConfig(2, cfg)

	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		for i := 0; i < 1000; i++ {
			ctx.SubmitLater(func(*fleet.Context, *fleet.Task) {}, nil)
		}
	}, nil)
	stats := f.Stats()
	f.Free()

	for _, c := range stats.PerContext {
		if c.WallTime <= 0 {
			t.Errorf("context %d WallTime = %v, want > 0", c.Index, c.WallTime)
		}
	}
	if got := logger.infos.Load(); got != 2 {
		t.Errorf("timing lines = %d, want 2", got)
	}
}

type recordingLogger struct {
	core.NoOpLogger
	infos atomic.Int64
}

func (l *recordingLogger) Info(string, ...core.Field) { l.infos.Add(1) }

// TestDefaultFleet verifies the process-wide helpers
func TestDefaultFleet(t *testing.T) {
	defer fleet.ShutdownDefault()

	var ran atomic.Bool
	fleet.RunDefault(func(*fleet.Context, *fleet.Task) { ran.Store(true) }, nil)
	if !ran.Load() {
		t.Error("RunDefault did not run the entry task")
	}
	first := fleet.Default()
	if fleet.Default() != first {
		t.Error("Default() returned a different fleet")
	}

	fleet.ShutdownDefault()
	if fleet.Default() == first {
		t.Error("Default() after ShutdownDefault returned the freed fleet")
	}
}
