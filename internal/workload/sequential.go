package workload

import (
	"fmt"

	"github.com/Swind/go-fleet"
)

// SequentialRun adds each index in its own task; every task submits the next
// one, so there is never more than one task queued.
type SequentialRun struct {
	max    uint64
	result uint64
}

func NewSequentialRun(max uint64) *SequentialRun {
	return &SequentialRun{max: max}
}

func (e *SequentialRun) Name() string { return fmt.Sprintf("sequential_run:%d", e.max) }

func (e *SequentialRun) RunNative() { e.result = nativeSum(e.max) }

func (e *SequentialRun) RunInFleet(f *fleet.Fleet) {
	e.result = 0
	f.Run(e.addOne, uint64(0))
}

func (e *SequentialRun) addOne(ctx *fleet.Context, t *fleet.Task) {
	i := t.Payload.(uint64)
	if i < e.max {
		e.result += i
		ctx.Submit(e.addOne, i+1)
	}
}

func (e *SequentialRun) Verify() error {
	return check("sequential_run", e.result, ExpectedSum(e.max))
}

// SequentialReturn is SequentialRun with a single task that reschedules
// itself instead of submitting a new one.
type SequentialReturn struct {
	max    uint64
	result uint64
}

type counterState struct {
	next uint64
}

func NewSequentialReturn(max uint64) *SequentialReturn {
	return &SequentialReturn{max: max}
}

func (e *SequentialReturn) Name() string { return fmt.Sprintf("sequential_return:%d", e.max) }

func (e *SequentialReturn) RunNative() { e.result = nativeSum(e.max) }

func (e *SequentialReturn) RunInFleet(f *fleet.Fleet) {
	e.result = 0
	f.Run(e.addOne, &counterState{})
}

func (e *SequentialReturn) addOne(ctx *fleet.Context, t *fleet.Task) {
	st := t.Payload.(*counterState)
	if st.next < e.max {
		e.result += st.next
		st.next++
		ctx.Reschedule(t)
	}
}

func (e *SequentialReturn) Verify() error {
	return check("sequential_return", e.result, ExpectedSum(e.max))
}
