package core

import (
	"runtime"
	"sync/atomic"
	"time"
)

// BackoffPolicy describes how a waiting goroutine escalates from spinning to
// sleeping. Each call to Backoff.Pause advances one step.
type BackoffPolicy struct {
	// SpinSteps is the number of single spin steps.
	SpinSteps int
	// IntenseSpinSteps is the number of steps spinning IntenseSpinCount times.
	IntenseSpinSteps int
	// IntenseSpinCount is the number of spins per intense step.
	IntenseSpinCount int
	// YieldSteps is the number of steps that yield the processor.
	YieldSteps int
	// ShortSleepSteps is the number of steps sleeping for MinSleep.
	ShortSleepSteps int
	// MinSleep is the first sleep duration; later sleeps grow by MinSleep per step.
	MinSleep time.Duration
	// MaxSleep caps the sleep duration.
	MaxSleep time.Duration
}

// DefaultBackoffPolicy returns spin(10) -> intense spin(10) -> yield(4) ->
// short sleeps(26) -> growing sleeps capped at 2ms.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		SpinSteps:        10,
		IntenseSpinSteps: 10,
		IntenseSpinCount: 50,
		YieldSteps:       4,
		ShortSleepSteps:  26,
		MinSleep:         time.Microsecond,
		MaxSleep:         2 * time.Millisecond,
	}
}

func (p BackoffPolicy) withDefaults() BackoffPolicy {
	d := DefaultBackoffPolicy()
	if p.SpinSteps <= 0 {
		p.SpinSteps = d.SpinSteps
	}
	if p.IntenseSpinSteps <= 0 {
		p.IntenseSpinSteps = d.IntenseSpinSteps
	}
	if p.IntenseSpinCount <= 0 {
		p.IntenseSpinCount = d.IntenseSpinCount
	}
	if p.YieldSteps <= 0 {
		p.YieldSteps = d.YieldSteps
	}
	if p.ShortSleepSteps <= 0 {
		p.ShortSleepSteps = d.ShortSleepSteps
	}
	if p.MinSleep <= 0 {
		p.MinSleep = d.MinSleep
	}
	if p.MaxSleep < p.MinSleep {
		p.MaxSleep = p.MinSleep
	}
	return p
}

// Backoff is a reusable escalating wait. The zero value uses the default policy.
type Backoff struct {
	policy *BackoffPolicy
	count  int
}

// NewBackoff creates a Backoff following policy.
func NewBackoff(policy *BackoffPolicy) Backoff {
	return Backoff{policy: policy}
}

var (
	defaultBackoffPolicy = DefaultBackoffPolicy()
	spinSink             atomic.Uint32
)

func spin(n int) {
	for i := 0; i < n; i++ {
		spinSink.Load()
	}
}

// Pause waits for the current step and advances to the next one.
func (b *Backoff) Pause() {
	p := b.policy
	if p == nil {
		p = &defaultBackoffPolicy
	}
	step := b.count
	b.count++

	if step < p.SpinSteps {
		spin(1)
		return
	}
	step -= p.SpinSteps
	if step < p.IntenseSpinSteps {
		spin(p.IntenseSpinCount)
		return
	}
	step -= p.IntenseSpinSteps
	if step < p.YieldSteps {
		runtime.Gosched()
		return
	}
	step -= p.YieldSteps
	if step < p.ShortSleepSteps {
		time.Sleep(p.MinSleep)
		return
	}
	step -= p.ShortSleepSteps
	d := time.Duration(step+1) * p.MinSleep * 10
	if d > p.MaxSleep {
		d = p.MaxSleep
	}
	time.Sleep(d)
}

// Reset returns to the first spin step.
func (b *Backoff) Reset() {
	b.count = 0
}

// Count returns the number of Pause calls since the last Reset.
func (b *Backoff) Count() int {
	return b.count
}
