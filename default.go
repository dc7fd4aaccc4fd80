package fleet

import "github.com/sasha-s/go-deadlock"

var (
	defaultFleet *Fleet
	defaultMu    deadlock.Mutex
)

// Default returns the process-wide fleet, creating it on first use with one
// context per CPU.
func Default() *Fleet {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultFleet == nil {
		defaultFleet = New()
	}
	return defaultFleet
}

// RunDefault runs fn on the process-wide fleet.
func RunDefault(fn TaskFunc, payload any) {
	Default().Run(fn, payload)
}

// ShutdownDefault frees the process-wide fleet. A later Default call creates a
// new one.
func ShutdownDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultFleet != nil {
		defaultFleet.Free()
		defaultFleet = nil
	}
}
