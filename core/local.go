package core

import "fmt"

// localShard fences one instance with a cache line on each side so that two
// contexts never write to the same line.
type localShard[T any] struct {
	_     Pad
	value T
	_     Pad
}

// Local holds one instance of T per execution context.
//
// A shard is only touched by its owning context, except while a steal
// hand-off holds both contexts' locks, or once every owner has finished with
// it (Free, ForEach after a run).
type Local[T any] struct {
	shards []localShard[T]
	done   func(index int, v *T)
}

// NewLocal allocates count shards and runs init on each one, in index order.
// init and done may be nil.
func NewLocal[T any](count int, init, done func(index int, v *T)) *Local[T] {
	if count < 1 {
		panic(fmt.Sprintf("Local: count must be at least 1, got %d", count))
	}
	l := &Local[T]{
		shards: make([]localShard[T], count),
		done:   done,
	}
	if init != nil {
		for i := range l.shards {
			init(i, &l.shards[i].value)
		}
	}
	return l
}

// Get returns the shard owned by ctx.
func (l *Local[T]) Get(ctx *Context) *T {
	return &l.shards[ctx.index].value
}

// GetIndex returns the shard of the context with the given index.
func (l *Local[T]) GetIndex(index int) *T {
	return &l.shards[index].value
}

// Len returns the number of shards.
func (l *Local[T]) Len() int {
	return len(l.shards)
}

// ForEach calls fn for every shard in index order.
func (l *Local[T]) ForEach(fn func(index int, v *T)) {
	for i := range l.shards {
		fn(i, &l.shards[i].value)
	}
}

// Reset runs fn over every shard, for reuse of a recycled Local.
func (l *Local[T]) Reset(fn func(index int, v *T)) {
	l.ForEach(fn)
}

// Free runs the done callback on every shard and drops them. Calling Free twice
// is a no-op.
func (l *Local[T]) Free() {
	if l.shards == nil {
		return
	}
	if l.done != nil {
		for i := range l.shards {
			l.done(i, &l.shards[i].value)
		}
	}
	l.shards = nil
}

// Freed reports whether Free has been called.
func (l *Local[T]) Freed() bool {
	return l.shards == nil
}
