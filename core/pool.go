package core

// PoolFuncs are the callbacks of a Pool. New is required; Reuse and Done may
// be nil.
type PoolFuncs[T any] struct {
	New   func() *T  // builds a fresh instance
	Reuse func(v *T) // prepares a recycled instance
	Done  func(v *T) // called on every unused instance when the pool is freed
}

type poolShard[T any] struct {
	unused []*T
	stats  AllocStats
}

// Pool recycles instances of T with a free stack per context. An instance may
// be returned on a different context than the one it came from.
type Pool[T any] struct {
	funcs  PoolFuncs[T]
	shards *Local[poolShard[T]]
}

// NewPool creates a pool sized for ctx's fleet.
func NewPool[T any](ctx *Context, funcs PoolFuncs[T]) *Pool[T] {
	return NewPoolCount(ctx.count, funcs)
}

// NewPoolCount creates a pool with count shards.
func NewPoolCount[T any](count int, funcs PoolFuncs[T]) *Pool[T] {
	if funcs.New == nil {
		panic("Pool: New callback is required")
	}
	p := &Pool[T]{funcs: funcs}
	p.shards = NewLocal(count, nil, func(_ int, sh *poolShard[T]) {
		for i, v := range sh.unused {
			if p.funcs.Done != nil {
				p.funcs.Done(v)
			}
			sh.unused[i] = nil
		}
		sh.unused = nil
	})
	return p
}

// Get returns an instance from ctx's stack, or a new one.
func (p *Pool[T]) Get(ctx *Context) *T {
	sh := p.shards.Get(ctx)
	n := len(sh.unused)
	if n == 0 {
		sh.stats.Allocated++
		return p.funcs.New()
	}
	v := sh.unused[n-1]
	sh.unused[n-1] = nil
	sh.unused = sh.unused[:n-1]
	sh.stats.Reused++
	if p.funcs.Reuse != nil {
		p.funcs.Reuse(v)
	}
	return v
}

// Put returns an instance to ctx's stack.
func (p *Pool[T]) Put(ctx *Context, v *T) {
	sh := p.shards.Get(ctx)
	sh.unused = append(sh.unused, v)
	sh.stats.Released++
}

// Stats sums the shard counters. Only meaningful when no context is running.
func (p *Pool[T]) Stats() AllocStats {
	var s AllocStats
	p.shards.ForEach(func(_ int, sh *poolShard[T]) {
		st := sh.stats
		st.Free = len(sh.unused)
		s = s.Add(st)
	})
	return s
}

// Free runs Done on every unused instance and drops the shards.
func (p *Pool[T]) Free() {
	p.shards.Free()
}
