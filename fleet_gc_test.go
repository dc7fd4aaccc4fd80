package fleet_test

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swind/go-fleet"
)

// TestFleet_GC_AfterFree verifies nothing keeps a freed fleet alive
// Given: A fleet that ran a task graph and was freed
// When: The last reference is dropped and the GC runs
// Then: The fleet is finalized and no worker goroutine is left behind
func TestFleet_GC_AfterFree(t *testing.T) {
	before := runtime.NumGoroutine()
	var finalized atomic.Bool

	func() {
		f := fleet.NewWithConfig(4, quietConfig())
		runtime.SetFinalizer(f, func(*fleet.Fleet) { finalized.Store(true) })
		f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
			for i := 0; i < 1000; i++ {
				ctx.SubmitLater(func(*fleet.Context, *fleet.Task) {}, nil)
			}
		}, nil)
		f.Free()
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !finalized.Load() && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if !finalized.Load() {
		t.Error("fleet was not garbage collected after Free")
	}
	if after := runtime.NumGoroutine(); after > before {
		t.Errorf("goroutines = %d, want at most %d", after, before)
	}
}
