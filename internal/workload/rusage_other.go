//go:build !unix

package workload

import "time"

func processCPUTime() time.Duration { return 0 }

const processCPUTimeSupported = false
