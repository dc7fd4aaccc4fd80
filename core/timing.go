package core

import (
	"fmt"
	"runtime"
	"time"
)

// stopwatch measures one context loop. With CPU timing it pins the goroutine
// to its OS thread so the thread clock belongs to this context alone.
type stopwatch struct {
	enabled  bool
	cpuStart time.Duration
	start    time.Time
}

func startStopwatch(enabled bool) stopwatch {
	if !enabled {
		return stopwatch{}
	}
	if threadCPUTimeSupported {
		runtime.LockOSThread()
	}
	return stopwatch{enabled: true, cpuStart: threadCPUTime(), start: time.Now()}
}

// stop returns CPU and wall time since start. Without a thread clock the CPU
// time is reported as the wall time.
func (s stopwatch) stop() (cpu, wall time.Duration) {
	if !s.enabled {
		return 0, 0
	}
	wall = time.Since(s.start)
	if threadCPUTimeSupported {
		cpu = threadCPUTime() - s.cpuStart
		runtime.UnlockOSThread()
	} else {
		cpu = wall
	}
	return cpu, wall
}

// FormatSeconds renders d as seconds with microsecond precision, e.g. "1.250000".
func FormatSeconds(d time.Duration) string {
	usec := d.Microseconds()
	return fmt.Sprintf("%d.%06d", usec/1000000, usec%1000000)
}
