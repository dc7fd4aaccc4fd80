package core

import "fmt"

// RangeFunc is the body of a range task, called once per index.
type RangeFunc func(ctx *Context, payload any, i int)

type rangeTask struct {
	fn      RangeFunc
	payload any
	next    int
	hi      int
}

// SubmitRange queues a task that calls fn for every i in [lo, hi), ahead of
// already-queued work. Each step runs as many indices as the current round
// allows and then requeues the remainder at the tail, where a thief can take
// it. Indices count against the round budget.
func (c *Context) SubmitRange(fn RangeFunc, payload any, lo, hi int) *Task {
	t := c.newRangeTask(fn, payload, lo, hi)
	c.Run(t)
	return t
}

// SubmitRangeLater is SubmitRange behind already-queued work.
func (c *Context) SubmitRangeLater(fn RangeFunc, payload any, lo, hi int) *Task {
	t := c.newRangeTask(fn, payload, lo, hi)
	c.RunLater(t)
	return t
}

// NewRangeTask creates an unsubmitted range task, so that it can be tracked
// before it is queued.
func (c *Context) NewRangeTask(fn RangeFunc, payload any, lo, hi int) *Task {
	return c.newRangeTask(fn, payload, lo, hi)
}

func (c *Context) newRangeTask(fn RangeFunc, payload any, lo, hi int) *Task {
	if fn == nil {
		panic("Context: range task with nil RangeFunc")
	}
	if hi < lo {
		panic(fmt.Sprintf("Context: invalid range [%d, %d)", lo, hi))
	}
	return c.NewTask(runRange, &rangeTask{fn: fn, payload: payload, next: lo, hi: hi})
}

func runRange(ctx *Context, t *Task) {
	r := t.Payload.(*rangeTask)
	n := min(r.hi-r.next, ctx.Budget()+1)
	for i := r.next; i < r.next+n; i++ {
		r.fn(ctx, r.payload, i)
	}
	r.next += n
	if n > 1 {
		ctx.consume(n - 1)
	}
	if r.next < r.hi {
		ctx.RescheduleLater(t)
	}
}
