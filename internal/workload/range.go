package workload

import (
	"fmt"

	"github.com/Swind/go-fleet"
)

// Range adds every index through one bulk range task.
type Range struct {
	max    uint64
	sums   *fleet.Local[uint64]
	result uint64
}

func NewRange(max uint64) *Range {
	return &Range{max: max}
}

func (e *Range) Name() string { return fmt.Sprintf("range:%d", e.max) }

func (e *Range) RunNative() { e.result = nativeSum(e.max) }

func (e *Range) RunInFleet(f *fleet.Fleet) {
	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		e.sums = fleet.NewLocal[uint64](ctx, nil, nil)
		ctx.SubmitRange(e.add, nil, 0, int(e.max))
	}, nil)
	e.result = sumLocal(e.sums)
	e.sums.Free()
}

func (e *Range) add(ctx *fleet.Context, _ any, i int) {
	*e.sums.Get(ctx) += uint64(i)
}

func (e *Range) Verify() error {
	return check("range", e.result, ExpectedSum(e.max))
}

// FanIn queues one task per index, tracked by an After whose trigger folds the
// per-context sums into the result. The trigger also records whether every
// index had been added by the time it ran.
type FanIn struct {
	max      uint64
	sums     *fleet.Local[uint64]
	added    *fleet.Local[uint64]
	result   uint64
	complete bool
	fired    int
}

func NewFanIn(max uint64) *FanIn {
	return &FanIn{max: max}
}

func (e *FanIn) Name() string { return fmt.Sprintf("fan_in:%d", e.max) }

func (e *FanIn) RunNative() {
	e.result = nativeSum(e.max)
	e.complete = true
	e.fired = 1
}

func (e *FanIn) RunInFleet(f *fleet.Fleet) {
	e.result, e.complete, e.fired = 0, false, 0
	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		e.sums = fleet.NewLocal[uint64](ctx, nil, nil)
		e.added = fleet.NewLocal[uint64](ctx, nil, nil)
		after := fleet.NewAfter(ctx, ctx.NewTask(e.collect, nil))
		for i := uint64(0); i < e.max; i++ {
			t := ctx.NewTask(e.addOne, i)
			after.Track(ctx, t)
			ctx.RunLater(t)
		}
	}, nil)
	e.sums.Free()
	e.added.Free()
}

func (e *FanIn) addOne(ctx *fleet.Context, t *fleet.Task) {
	*e.sums.Get(ctx) += t.Payload.(uint64)
	*e.added.Get(ctx)++
}

func (e *FanIn) collect(*fleet.Context, *fleet.Task) {
	e.fired++
	e.result = sumLocal(e.sums)
	e.complete = sumLocal(e.added) == e.max
}

func (e *FanIn) Verify() error {
	if e.fired != 1 {
		return fmt.Errorf("fan_in: trigger ran %d times, want 1: %w", e.fired, ErrMismatch)
	}
	if !e.complete {
		return fmt.Errorf("fan_in: trigger ran before every task finished: %w", ErrMismatch)
	}
	return check("fan_in", e.result, ExpectedSum(e.max))
}

// Checksum fills a scratch buffer per index from the context's buffer
// allocator and adds up its bytes.
type Checksum struct {
	max    uint64
	size   int
	sums   *fleet.Local[uint64]
	result uint64
}

func NewChecksum(max uint64, size int) *Checksum {
	return &Checksum{max: max, size: size}
}

func (e *Checksum) Name() string { return fmt.Sprintf("checksum:%d:%d", e.size, e.max) }

func (e *Checksum) RunNative() {
	buf := make([]byte, e.size)
	var sum uint64
	for i := uint64(0); i < e.max; i++ {
		sum += fillAndSum(buf, i)
	}
	e.result = sum
}

func (e *Checksum) RunInFleet(f *fleet.Fleet) {
	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		e.sums = fleet.NewLocal[uint64](ctx, nil, nil)
		for i := uint64(0); i < e.max; i++ {
			ctx.SubmitLater(e.addOne, i)
		}
	}, nil)
	e.result = sumLocal(e.sums)
	e.sums.Free()
}

func (e *Checksum) addOne(ctx *fleet.Context, t *fleet.Task) {
	buf := ctx.AllocBuffer(e.size)
	*e.sums.Get(ctx) += fillAndSum(buf, t.Payload.(uint64))
	ctx.ReleaseBuffer(buf)
}

func fillAndSum(buf []byte, i uint64) uint64 {
	var sum uint64
	for j := range buf {
		buf[j] = byte(i)
		sum += uint64(buf[j])
	}
	return sum
}

// expected is size * sum(i mod 256) over [0, max).
func (e *Checksum) expected() uint64 {
	cycles, rem := e.max/256, e.max%256
	return uint64(e.size) * (cycles*ExpectedSum(256) + ExpectedSum(rem))
}

func (e *Checksum) Verify() error {
	return check("checksum", e.result, e.expected())
}
