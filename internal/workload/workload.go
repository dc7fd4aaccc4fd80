// Package workload holds the summation programs used to exercise and time a
// fleet. Each one computes sum(0..max) a different way and can check its own
// result against the closed form.
package workload

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Swind/go-fleet"
)

// ErrMismatch is wrapped by every Verify failure.
var ErrMismatch = errors.New("result mismatch")

// Example is one workload. RunNative and RunInFleet store a result that Verify
// then checks.
type Example interface {
	Name() string
	RunNative()
	RunInFleet(f *fleet.Fleet)
	Verify() error
}

// ExpectedSum returns 0 + 1 + ... + (max-1).
func ExpectedSum(max uint64) uint64 {
	if max == 0 {
		return 0
	}
	if max%2 == 0 {
		return max / 2 * (max - 1)
	}
	return (max - 1) / 2 * max
}

func nativeSum(max uint64) uint64 {
	var sum uint64
	for i := uint64(0); i < max; i++ {
		sum += i
	}
	return sum
}

func check(name string, got, want uint64) error {
	if got != want {
		return fmt.Errorf("%s: got %d, want %d: %w", name, got, want, ErrMismatch)
	}
	return nil
}

// sumLocal adds up a per-context accumulator.
func sumLocal(l *fleet.Local[uint64]) uint64 {
	var total uint64
	l.ForEach(func(_ int, v *uint64) { total += *v })
	return total
}

// Factory builds an example for a maximum and, where relevant, a batch size.
type Factory func(max uint64, batchSize int) Example

var registry = map[string]Factory{
	"sequential_run":       func(max uint64, _ int) Example { return NewSequentialRun(max) },
	"sequential_return":    func(max uint64, _ int) Example { return NewSequentialReturn(max) },
	"concurrent_unbatched": func(max uint64, _ int) Example { return NewConcurrentUnbatched(max) },
	"concurrent_batched":   func(max uint64, batch int) Example { return NewConcurrentBatched(batch, max) },
	"range":                func(max uint64, _ int) Example { return NewRange(max) },
	"fan_in":               func(max uint64, _ int) Example { return NewFanIn(max) },
	"checksum":             func(max uint64, _ int) Example { return NewChecksum(max, 64) },
}

// Names lists the registered examples in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the named example.
func Lookup(name string, max uint64, batchSize int) (Example, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown example %q", name)
	}
	if name == "concurrent_batched" && batchSize < 1 {
		return nil, fmt.Errorf("concurrent_batched: batch size must be at least 1, got %d", batchSize)
	}
	return factory(max, batchSize), nil
}
