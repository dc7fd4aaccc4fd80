package workload

import (
	"fmt"

	"github.com/Swind/go-fleet"
)

// ConcurrentUnbatched queues one task per index from the entry task and
// accumulates into per-context sums.
type ConcurrentUnbatched struct {
	max    uint64
	sums   *fleet.Local[uint64]
	result uint64
}

func NewConcurrentUnbatched(max uint64) *ConcurrentUnbatched {
	return &ConcurrentUnbatched{max: max}
}

func (e *ConcurrentUnbatched) Name() string {
	return fmt.Sprintf("concurrent_unbatched:%d", e.max)
}

func (e *ConcurrentUnbatched) RunNative() { e.result = nativeSum(e.max) }

func (e *ConcurrentUnbatched) RunInFleet(f *fleet.Fleet) {
	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		e.sums = fleet.NewLocal[uint64](ctx, nil, nil)
		for i := uint64(0); i < e.max; i++ {
			ctx.SubmitLater(e.addOne, i)
		}
	}, nil)
	e.result = sumLocal(e.sums)
	e.sums.Free()
}

func (e *ConcurrentUnbatched) addOne(ctx *fleet.Context, t *fleet.Task) {
	*e.sums.Get(ctx) += t.Payload.(uint64)
}

func (e *ConcurrentUnbatched) Verify() error {
	return check("concurrent_unbatched", e.result, ExpectedSum(e.max))
}

// ConcurrentBatched queues indices batchSize at a time: each batch task first
// queues the next batch task, then one task per index of its own batch. Batch
// descriptors come from a per-context pool and go back to it when the batch
// task finishes.
type ConcurrentBatched struct {
	batchSize uint64
	max       uint64
	sums      *fleet.Local[uint64]
	batches   *fleet.Pool[batch]
	result    uint64
}

type batch struct {
	lo uint64
}

func NewConcurrentBatched(batchSize int, max uint64) *ConcurrentBatched {
	return &ConcurrentBatched{batchSize: uint64(batchSize), max: max}
}

func (e *ConcurrentBatched) Name() string {
	return fmt.Sprintf("concurrent_batched:%d:%d", e.batchSize, e.max)
}

func (e *ConcurrentBatched) RunNative() { e.result = nativeSum(e.max) }

func (e *ConcurrentBatched) RunInFleet(f *fleet.Fleet) {
	f.Run(func(ctx *fleet.Context, _ *fleet.Task) {
		e.sums = fleet.NewLocal[uint64](ctx, nil, nil)
		e.batches = fleet.NewPool(ctx, fleet.PoolFuncs[batch]{
			New: func() *batch { return &batch{} },
		})
		e.submitBatch(ctx, 0)
	}, nil)
	e.result = sumLocal(e.sums)
	e.sums.Free()
	e.batches.Free()
}

func (e *ConcurrentBatched) submitBatch(ctx *fleet.Context, lo uint64) {
	b := e.batches.Get(ctx)
	b.lo = lo
	t := ctx.NewTask(e.scheduleBatch, b)
	t.OnFinish(fleet.FinishFunc(e.releaseBatch))
	ctx.Run(t)
}

func (e *ConcurrentBatched) releaseBatch(ctx *fleet.Context, t *fleet.Task) {
	e.batches.Put(ctx, t.Payload.(*batch))
}

func (e *ConcurrentBatched) scheduleBatch(ctx *fleet.Context, t *fleet.Task) {
	i := t.Payload.(*batch).lo
	j := i + e.batchSize
	if j >= e.max {
		j = e.max
	} else {
		e.submitBatch(ctx, j)
	}
	for ; i < j; i++ {
		ctx.Submit(e.addOne, i)
	}
}

func (e *ConcurrentBatched) addOne(ctx *fleet.Context, t *fleet.Task) {
	*e.sums.Get(ctx) += t.Payload.(uint64)
}

func (e *ConcurrentBatched) Verify() error {
	return check("concurrent_batched", e.result, ExpectedSum(e.max))
}
