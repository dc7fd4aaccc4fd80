package core

// AllocStats counts what a free list handed out and took back.
type AllocStats struct {
	Allocated int64 // fresh allocations
	Reused    int64 // instances taken from the free list
	Released  int64 // instances returned (kept or dropped)
	Dropped   int64 // releases that did not fit in the free list
	Free      int   // instances currently held by the free list
}

// Live is the number of instances handed out and not yet released.
func (s AllocStats) Live() int64 {
	return s.Allocated + s.Reused - s.Released
}

// Add returns the sum of two snapshots.
func (s AllocStats) Add(o AllocStats) AllocStats {
	return AllocStats{
		Allocated: s.Allocated + o.Allocated,
		Reused:    s.Reused + o.Reused,
		Released:  s.Released + o.Released,
		Dropped:   s.Dropped + o.Dropped,
		Free:      s.Free + o.Free,
	}
}

// Claim is a reservation on a free list, taken before an operation that may
// still fail. Commit turns it into an instance; Abandon gives it back.
type Claim[T any] struct {
	item *T
}

// FreeList recycles instances of T for a single owning context. It is bounded:
// releases beyond the capacity are left to the garbage collector.
// A FreeList is not safe for concurrent use.
type FreeList[T any] struct {
	items    []*T
	capacity int
	stats    AllocStats
}

// NewFreeList creates a free list holding at most capacity instances.
func NewFreeList[T any](capacity int) *FreeList[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &FreeList[T]{
		items:    make([]*T, 0, min(capacity, 64)),
		capacity: capacity,
	}
}

// Claim reserves the most recently released instance, if any.
func (f *FreeList[T]) Claim() Claim[T] {
	n := len(f.items)
	if n == 0 {
		return Claim[T]{}
	}
	item := f.items[n-1]
	f.items[n-1] = nil
	f.items = f.items[:n-1]
	return Claim[T]{item: item}
}

// Commit finishes a claim, allocating a fresh instance if the free list was
// empty when the claim was taken. The second result reports reuse.
func (f *FreeList[T]) Commit(c Claim[T]) (*T, bool) {
	if c.item == nil {
		f.stats.Allocated++
		return new(T), false
	}
	f.stats.Reused++
	return c.item, true
}

// Abandon returns a claimed instance without counting it as handed out.
func (f *FreeList[T]) Abandon(c Claim[T]) {
	if c.item != nil {
		f.items = append(f.items, c.item)
	}
}

// Get is Claim followed by Commit.
func (f *FreeList[T]) Get() (*T, bool) {
	return f.Commit(f.Claim())
}

// Release returns an instance. The caller must have reset it.
func (f *FreeList[T]) Release(item *T) {
	f.stats.Released++
	if len(f.items) >= f.capacity {
		f.stats.Dropped++
		return
	}
	f.items = append(f.items, item)
}

// Len returns the number of instances held.
func (f *FreeList[T]) Len() int {
	return len(f.items)
}

// Drain drops every held instance, calling fn on each first when non-nil.
func (f *FreeList[T]) Drain(fn func(*T)) {
	for i, item := range f.items {
		if fn != nil {
			fn(item)
		}
		f.items[i] = nil
	}
	f.items = f.items[:0]
}

// Stats returns a snapshot of the counters.
func (f *FreeList[T]) Stats() AllocStats {
	s := f.stats
	s.Free = len(f.items)
	return s
}
