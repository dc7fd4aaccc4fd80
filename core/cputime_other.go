//go:build !linux

package core

import "time"

// threadCPUTime is unavailable on this platform; callers fall back to wall time.
func threadCPUTime() time.Duration {
	return 0
}

const threadCPUTimeSupported = false
