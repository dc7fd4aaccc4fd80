package core

import (
	"sync"
	"testing"
	"time"
	"unsafe"
)

// TestRoundToCacheLine verifies cache line rounding
// Given: Sizes around cache line boundaries
// When: RoundToCacheLine is called
// Then: Each size is rounded up to the next multiple of CacheLineSize
func TestRoundToCacheLine(t *testing.T) {
	tests := []struct {
		in, want uintptr
	}{
		{0, 0},
		{1, 64},
		{63, 64},
		{64, 64},
		{65, 128},
		{200, 256},
	}
	for _, tt := range tests {
		if got := RoundToCacheLine(tt.in); got != tt.want {
			t.Errorf("RoundToCacheLine(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestPaddedTypes_Size verifies padded atomics fill a cache line
func TestPaddedTypes_Size(t *testing.T) {
	if got := unsafe.Sizeof(PaddedInt64{}); got != CacheLineSize {
		t.Errorf("sizeof(PaddedInt64) = %d, want %d", got, CacheLineSize)
	}
	if got := unsafe.Sizeof(PaddedInt32{}); got != CacheLineSize {
		t.Errorf("sizeof(PaddedInt32) = %d, want %d", got, CacheLineSize)
	}
	var l localShard[int64]
	if got := unsafe.Sizeof(l); got < 2*CacheLineSize+8 {
		t.Errorf("sizeof(localShard) = %d, want at least %d", got, 2*CacheLineSize+8)
	}
}

// TestCounter_DecToZero verifies the zero signal
// Given: A counter incremented 3 times
// When: It is decremented 3 times
// Then: Only the last Dec reports zero
func TestCounter_DecToZero(t *testing.T) {
	var c Counter
	for i := 0; i < 3; i++ {
		c.Inc()
	}
	if c.Dec() || c.Dec() {
		t.Fatal("Dec reported zero early")
	}
	if !c.Dec() {
		t.Error("last Dec did not report zero")
	}
	if got := c.Load(); got != 0 {
		t.Errorf("Load() = %d, want 0", got)
	}
}

// TestCounter_Concurrent verifies exactly one goroutine observes zero
func TestCounter_Concurrent(t *testing.T) {
	const n = 1000
	var c Counter
	c.Reset(n)

	var wg sync.WaitGroup
	hits := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Dec() {
				hits <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(hits)

	count := 0
	for range hits {
		count++
	}
	if count != 1 {
		t.Errorf("zero observed %d times, want 1", count)
	}
}

// TestCounter_BelowZeroPanics verifies misuse is caught
func TestCounter_BelowZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when decrementing below zero")
		}
	}()
	var c Counter
	c.Dec()
}

// TestBackoff_Escalates verifies the policy progresses to capped sleeps
// Given: A policy with one step per phase and a 2ms cap
// When: Pause is called past every phase
// Then: Count tracks the calls and late pauses do not exceed the cap by much
func TestBackoff_Escalates(t *testing.T) {
	policy := BackoffPolicy{
		SpinSteps:        1,
		IntenseSpinSteps: 1,
		IntenseSpinCount: 1,
		YieldSteps:       1,
		ShortSleepSteps:  1,
		MinSleep:         time.Microsecond,
		MaxSleep:         2 * time.Millisecond,
	}
	b := NewBackoff(&policy)
	for i := 0; i < 4; i++ {
		b.Pause()
	}
	if got := b.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}

	for i := 0; i < 500; i++ {
		b.Pause()
	}
	start := time.Now()
	b.Pause()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("capped pause took %v", elapsed)
	}

	b.Reset()
	if got := b.Count(); got != 0 {
		t.Errorf("Count() after Reset = %d, want 0", got)
	}
}

// TestBackoffPolicy_Defaults verifies zero fields fall back to defaults
func TestBackoffPolicy_Defaults(t *testing.T) {
	p := BackoffPolicy{MaxSleep: 5 * time.Millisecond}.withDefaults()
	d := DefaultBackoffPolicy()
	if p.SpinSteps != d.SpinSteps || p.YieldSteps != d.YieldSteps || p.MinSleep != d.MinSleep {
		t.Errorf("withDefaults() = %+v, want defaults with MaxSleep 5ms", p)
	}
	if p.MaxSleep != 5*time.Millisecond {
		t.Errorf("MaxSleep = %v, want 5ms", p.MaxSleep)
	}
}

// TestSpinLock_MutualExclusion verifies the lock serializes writers
// Given: 8 goroutines incrementing a plain int under the lock
// When: All goroutines finish
// Then: No increment is lost
func TestSpinLock_MutualExclusion(t *testing.T) {
	const workers, perWorker = 8, 10000
	var lock SpinLock
	total := 0

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				lock.Lock()
				total++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	if total != workers*perWorker {
		t.Errorf("total = %d, want %d", total, workers*perWorker)
	}
}

// TestSpinLock_TryLock verifies TryLock fails while held
func TestSpinLock_TryLock(t *testing.T) {
	var lock SpinLock
	if !lock.TryLock() {
		t.Fatal("TryLock on free lock failed")
	}
	if lock.TryLock() {
		t.Error("TryLock on held lock succeeded")
	}
	lock.Unlock()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on unlock of unlocked lock")
		}
	}()
	lock.Unlock()
}

// TestFormatSeconds verifies the timing report format
func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0.000000"},
		{1500 * time.Microsecond, "0.001500"},
		{2*time.Second + 250*time.Millisecond, "2.250000"},
	}
	for _, tt := range tests {
		if got := FormatSeconds(tt.in); got != tt.want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestStopwatch verifies enabled timing reports non-negative durations
func TestStopwatch(t *testing.T) {
	sw := startStopwatch(true)
	spin(1000)
	cpu, wall := sw.stop()
	if cpu < 0 || wall < 0 {
		t.Errorf("stop() = (%v, %v), want non-negative durations", cpu, wall)
	}

	cpu, wall = startStopwatch(false).stop()
	if cpu != 0 || wall != 0 {
		t.Errorf("disabled stop() = (%v, %v), want zeros", cpu, wall)
	}
}
