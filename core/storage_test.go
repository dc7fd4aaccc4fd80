package core

import "testing"

// TestLocal_InitAndDone verifies per-shard callbacks
// Given: A Local with 4 shards and init/done callbacks
// When: The Local is created, written through GetIndex and freed twice
// Then: init runs once per shard, done sees the written values once, Free is idempotent
func TestLocal_InitAndDone(t *testing.T) {
	var inits, dones []int
	l := NewLocal(4,
		func(i int, v *int) { inits = append(inits, i); *v = i * 10 },
		func(i int, v *int) { dones = append(dones, *v) },
	)
	if l.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", l.Len())
	}
	*l.GetIndex(2) += 5

	l.Free()
	l.Free()

	if len(inits) != 4 {
		t.Errorf("init ran %d times, want 4", len(inits))
	}
	want := []int{0, 10, 25, 30}
	if len(dones) != len(want) {
		t.Fatalf("done ran %d times, want %d", len(dones), len(want))
	}
	for i := range want {
		if dones[i] != want[i] {
			t.Errorf("done[%d] saw %d, want %d", i, dones[i], want[i])
		}
	}
	if !l.Freed() {
		t.Error("Freed() = false after Free")
	}
}

// TestLocal_InvalidCount verifies count validation
func TestLocal_InvalidCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero shards")
		}
	}()
	NewLocal[int](0, nil, nil)
}

// TestLocal_PerContextSums verifies shards accumulate independently during a run
// Given: A Local[int64] accumulator on a 4-context scheduler
// When: 10000 tasks each add their value to the current context's shard
// Then: The shards sum to the closed-form total
func TestLocal_PerContextSums(t *testing.T) {
	const n = 10000
	s := NewScheduler(4, testConfig())
	sums := NewLocal[int64](s.Count(), nil, nil)

	runScheduler(s, func(ctx *Context, _ *Task) {
		for i := 0; i < n; i++ {
			ctx.SubmitLater(func(ctx *Context, t *Task) {
				*sums.Get(ctx) += int64(t.Payload.(int))
			}, i)
		}
	}, nil)

	var total int64
	sums.ForEach(func(_ int, v *int64) { total += *v })
	if want := int64(n * (n - 1) / 2); total != want {
		t.Errorf("total = %d, want %d", total, want)
	}
}

// TestFreeList_ClaimCommit verifies reservation and accounting
// Given: An empty free list with capacity 2
// When: Instances are claimed, committed, abandoned and released
// Then: Reuse follows LIFO order and Live tracks outstanding instances
func TestFreeList_ClaimCommit(t *testing.T) {
	f := NewFreeList[int](2)

	a, reused := f.Commit(f.Claim())
	if reused {
		t.Error("first Commit reported reuse")
	}
	b, _ := f.Get()
	c, _ := f.Get()
	if f.Stats().Live() != 3 {
		t.Errorf("Live() = %d, want 3", f.Stats().Live())
	}

	f.Release(a)
	f.Release(b)
	f.Release(c) // over capacity
	st := f.Stats()
	if st.Free != 2 || st.Dropped != 1 || st.Live() != 0 {
		t.Errorf("Stats() = %+v, want Free 2, Dropped 1, Live 0", st)
	}

	claim := f.Claim()
	f.Abandon(claim)
	if f.Len() != 2 {
		t.Errorf("Len() after Abandon = %d, want 2", f.Len())
	}

	got, reused := f.Get()
	if !reused || got != b {
		t.Errorf("Get() = (%p, %v), want (%p, true)", got, reused, b)
	}

	drained := 0
	f.Drain(func(*int) { drained++ })
	if drained != 1 || f.Len() != 0 {
		t.Errorf("Drain visited %d, Len() = %d, want 1 and 0", drained, f.Len())
	}
}

// TestBuffers_SizeClasses verifies bucket selection and reuse
func TestBuffers_SizeClasses(t *testing.T) {
	b := NewBuffers(4)
	tests := []struct {
		n       int
		wantCap int
	}{
		{0, 8},
		{8, 8},
		{9, 64},
		{200, 256},
		{1024, 1024},
		{1025, 1025},
	}
	for _, tt := range tests {
		buf := b.Alloc(tt.n)
		if len(buf) != tt.n || cap(buf) != tt.wantCap {
			t.Errorf("Alloc(%d): len %d cap %d, want len %d cap %d", tt.n, len(buf), cap(buf), tt.n, tt.wantCap)
		}
		b.Release(buf)
	}

	st := b.Stats()
	if st.Free != 4 || st.Dropped != 1 || st.Reused != 1 {
		t.Errorf("Stats() = %+v, want Free 4, Dropped 1, Reused 1", st)
	}

	buf := b.Alloc(40)
	buf[0] = 7
	b.Release(buf)
	again := b.Alloc(50)
	if again[0] != 0 {
		t.Error("reused buffer was not zeroed")
	}
	if b.Stats().Reused != 3 {
		t.Errorf("Reused = %d, want 3", b.Stats().Reused)
	}

	b.Release(again)
	b.Drain()
	if b.Stats().Free != 0 {
		t.Errorf("Free after Drain = %d, want 0", b.Stats().Free)
	}
}

// TestPool_Recycles verifies Get/Put across contexts and Done on Free
func TestPool_Recycles(t *testing.T) {
	created, reused, done := 0, 0, 0
	p := NewPoolCount(2, PoolFuncs[[]int]{
		New:   func() *[]int { created++; v := make([]int, 0, 4); return &v },
		Reuse: func(v *[]int) { reused++; *v = (*v)[:0] },
		Done:  func(*[]int) { done++ },
	})
	s := NewScheduler(2, testConfig())
	c0, c1 := s.Context(0), s.Context(1)

	a := p.Get(c0)
	*a = append(*a, 1)
	p.Put(c1, a)
	b := p.Get(c1)
	if b != a || len(*b) != 0 {
		t.Errorf("Get on c1 = %p (len %d), want recycled %p with len 0", b, len(*b), a)
	}
	p.Put(c1, b)

	st := p.Stats()
	if st.Allocated != 1 || st.Reused != 1 || st.Live() != 0 || st.Free != 1 {
		t.Errorf("Stats() = %+v", st)
	}

	p.Free()
	if created != 1 || reused != 1 || done != 1 {
		t.Errorf("created=%d reused=%d done=%d, want 1 1 1", created, reused, done)
	}
}
