package core

// SpinLock is a test-and-test-and-set lock that backs off while contended.
// It guards a context's queue while a steal hand-off is in progress.
type SpinLock struct {
	state PaddedInt32
}

// Lock acquires the lock.
func (l *SpinLock) Lock() {
	var bo Backoff
	for {
		for l.state.Load() != 0 {
			bo.Pause()
		}
		if l.state.CompareAndSwap(0, 1) {
			return
		}
	}
}

// TryLock acquires the lock if it is free.
func (l *SpinLock) TryLock() bool {
	return l.state.Load() == 0 && l.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock.
func (l *SpinLock) Unlock() {
	if !l.state.CompareAndSwap(1, 0) {
		panic("SpinLock: unlock of unlocked lock")
	}
}
