package workload

import (
	"fmt"
	"io"
	"time"

	"github.com/Swind/go-fleet"
	"github.com/Swind/go-fleet/core"
)

// Runner times examples and prints one line per configuration:
//
//	<name>\t<config>\t<seconds>.<microseconds>
//
// or FAILED in place of the time when verification fails. Times are process
// CPU time where the platform provides it, wall time otherwise.
type Runner struct {
	Out io.Writer
	// NewFleet builds the fleet for a context count.
	NewFleet func(contexts int) *fleet.Fleet
	Logger   core.Logger
}

// NewRunner creates a runner printing to out with default fleets.
func NewRunner(out io.Writer) *Runner {
	return &Runner{
		Out: out,
		NewFleet: func(contexts int) *fleet.Fleet {
			return fleet.NewWithConfig(contexts, nil)
		},
		Logger: core.NewDefaultLogger(),
	}
}

// Result is the outcome of one timed configuration.
type Result struct {
	Example string
	Config  string
	Elapsed time.Duration
	Err     error
}

// RunNative times the plain loop.
func (r *Runner) RunNative(ex Example) Result {
	return r.timed(ex, "native", ex.RunNative)
}

// RunFleet times the example on a fresh fleet with the given context count.
// The config column reads "single" for one context and the count otherwise.
func (r *Runner) RunFleet(ex Example, contexts int) Result {
	label := "single"
	if contexts > 1 {
		label = fmt.Sprintf("%d", contexts)
	}
	f := r.NewFleet(contexts)
	defer f.Free()
	return r.timed(ex, label, func() { ex.RunInFleet(f) })
}

// RunAll runs native and then each context count in turn.
func (r *Runner) RunAll(ex Example, contexts []int) []Result {
	results := []Result{r.RunNative(ex)}
	for _, n := range contexts {
		results = append(results, r.RunFleet(ex, n))
	}
	return results
}

func (r *Runner) timed(ex Example, config string, run func()) Result {
	start, wall := processCPUTime(), time.Now()
	run()
	elapsed := processCPUTime() - start
	if !processCPUTimeSupported {
		elapsed = time.Since(wall)
	}

	res := Result{Example: ex.Name(), Config: config, Elapsed: elapsed, Err: ex.Verify()}
	if res.Err != nil {
		if r.Logger != nil {
			r.Logger.Error("verification failed", core.F("example", res.Example), core.F("config", config), core.F("error", res.Err))
		}
		fmt.Fprintf(r.Out, "%s\t%s\tFAILED\n", res.Example, config)
		return res
	}
	fmt.Fprintf(r.Out, "%s\t%s\t%s\n", res.Example, config, core.FormatSeconds(elapsed))
	return res
}
