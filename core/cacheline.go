package core

import "sync/atomic"

// CacheLineSize is the padding unit used to keep per-context state on separate
// cache lines.
const CacheLineSize = 64

// Pad occupies one full cache line.
type Pad [CacheLineSize]byte

// RoundUp rounds n up to the next multiple of align. align must be a power of two.
func RoundUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// RoundToCacheLine rounds n up to a multiple of CacheLineSize.
func RoundToCacheLine(n uintptr) uintptr {
	return RoundUp(n, CacheLineSize)
}

// PaddedInt64 is an atomic int64 that owns its cache line.
type PaddedInt64 struct {
	atomic.Int64
	_ [CacheLineSize - 8]byte
}

// PaddedInt32 is an atomic int32 that owns its cache line.
type PaddedInt32 struct {
	atomic.Int32
	_ [CacheLineSize - 4]byte
}
