package core

import "fmt"

type scounterShard struct {
	count int
}

// SCounter is a sharded semaphore counter. Each context counts its own pending
// units; the shared active count only moves when a shard goes 0→1 or back to
// 0, so it equals the number of contexts holding pending units.
//
// Shard i may only be touched by context i, or by a victim during a steal
// hand-off to or from context i.
type SCounter struct {
	active Counter
	shards *Local[scounterShard]
}

// NewSCounter creates a counter with one shard per context of ctx's fleet.
func NewSCounter(ctx *Context) *SCounter {
	return newSCounter(ctx.count)
}

func newSCounter(count int) *SCounter {
	return &SCounter{shards: NewLocal[scounterShard](count, nil, nil)}
}

// Inc adds a pending unit on ctx's shard.
func (s *SCounter) Inc(ctx *Context) {
	s.IncIndex(ctx.index)
}

// IncIndex adds a pending unit on shard index.
func (s *SCounter) IncIndex(index int) {
	sh := s.shards.GetIndex(index)
	sh.count++
	if sh.count == 1 {
		s.active.Inc()
	}
}

// Dec removes a pending unit from ctx's shard. It reports true when this was
// the last pending unit across every shard.
func (s *SCounter) Dec(ctx *Context) bool {
	return s.DecIndex(ctx.index)
}

// DecIndex is Dec on shard index.
func (s *SCounter) DecIndex(index int) bool {
	sh := s.shards.GetIndex(index)
	if sh.count == 0 {
		panic(fmt.Sprintf("SCounter: shard %d decremented below zero", index))
	}
	sh.count--
	if sh.count == 0 {
		return s.active.Dec()
	}
	return false
}

// Migrate moves one pending unit from one context's shard to another's.
func (s *SCounter) Migrate(from, to *Context) {
	s.MigrateIndex(from.index, to.index)
}

// MigrateIndex moves one pending unit from shard from to shard to. The active
// count changes only if exactly one side crossed zero.
func (s *SCounter) MigrateIndex(from, to int) {
	if from == to {
		return
	}
	src := s.shards.GetIndex(from)
	dst := s.shards.GetIndex(to)
	if src.count == 0 {
		panic(fmt.Sprintf("SCounter: migrating from empty shard %d", from))
	}
	src.count--
	dst.count++
	switch {
	case dst.count == 1 && src.count == 0:
		// one shard went idle, another became active
	case dst.count == 1:
		s.active.Inc()
	case src.count == 0:
		// dst was already active, so this cannot reach zero
		s.active.Dec()
	}
}

// Pending returns the number of pending units on shard index.
func (s *SCounter) Pending(index int) int {
	return s.shards.GetIndex(index).count
}

// Active returns the number of shards holding pending units.
func (s *SCounter) Active() int64 {
	return s.active.Load()
}

// reset zeroes every shard for reuse.
func (s *SCounter) reset() {
	s.shards.Reset(func(_ int, sh *scounterShard) { sh.count = 0 })
	s.active.Reset(0)
}

// Free releases the shards.
func (s *SCounter) Free() {
	s.shards.Free()
}
