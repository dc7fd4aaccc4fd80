package core

// Buffer size classes. Requests above the largest class fall back to make.
var bufferClasses = [...]int{8, 64, 256, 1024}

// Buffers is a per-context allocator of byte slices bucketed by size class.
// It is not safe for concurrent use; a buffer released on another context
// simply lands in that context's buckets.
type Buffers struct {
	buckets  [len(bufferClasses)][][]byte
	capacity int
	stats    AllocStats
}

// NewBuffers creates an allocator keeping at most capacity buffers per class.
func NewBuffers(capacity int) *Buffers {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffers{capacity: capacity}
}

func bufferClass(n int) int {
	for i, size := range bufferClasses {
		if n <= size {
			return i
		}
	}
	return -1
}

// Alloc returns a zeroed slice of length n.
func (b *Buffers) Alloc(n int) []byte {
	if n < 0 {
		panic("Buffers: negative size")
	}
	class := bufferClass(n)
	if class < 0 {
		b.stats.Allocated++
		return make([]byte, n)
	}
	bucket := b.buckets[class]
	if k := len(bucket); k > 0 {
		buf := bucket[k-1]
		bucket[k-1] = nil
		b.buckets[class] = bucket[:k-1]
		b.stats.Reused++
		buf = buf[:n]
		clear(buf)
		return buf
	}
	b.stats.Allocated++
	return make([]byte, n, bufferClasses[class])
}

// Release returns buf to the bucket matching its capacity.
func (b *Buffers) Release(buf []byte) {
	if buf == nil {
		return
	}
	b.stats.Released++
	class := -1
	for i, size := range bufferClasses {
		if cap(buf) == size {
			class = i
			break
		}
	}
	if class < 0 || len(b.buckets[class]) >= b.capacity {
		b.stats.Dropped++
		return
	}
	b.buckets[class] = append(b.buckets[class], buf[:0])
}

// Drain drops every held buffer.
func (b *Buffers) Drain() {
	for i := range b.buckets {
		clear(b.buckets[i])
		b.buckets[i] = nil
	}
}

// Stats returns a snapshot of the counters.
func (b *Buffers) Stats() AllocStats {
	s := b.stats
	for i := range b.buckets {
		s.Free += len(b.buckets[i])
	}
	return s
}
