package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-fleet"
	"github.com/Swind/go-fleet/core"
	"github.com/Swind/go-fleet/internal/workload"
	obs "github.com/Swind/go-fleet/observability/prometheus"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run examples natively and on fleets",

		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "example",
				Aliases: []string{"e"},
				Usage:   "Examples to run (default: all, see list)",
			},
			&cli.Uint64Flag{
				Name:    "max",
				Aliases: []string{"m"},
				Value:   10000000,
				Usage:   "Sum the integers in [0, max)",
			},
			&cli.IntSliceFlag{
				Name:    "batch-size",
				Aliases: []string{"b"},
				Value:   cli.NewIntSlice(16, 256, 1024),
				Usage:   "Batch sizes for concurrent_batched",
			},
			&cli.IntSliceFlag{
				Name:    "contexts",
				Aliases: []string{"c"},
				Usage:   "Fleet sizes to time (default: 1 and the CPU count)",
			},
			&cli.PathFlag{
				Name:  "config",
				Usage: "YAML file with fleet tunables",
			},
			&cli.IntFlag{
				Name:  "round-size",
				Usage: "Task steps per round (overrides config)",
			},
			&cli.IntFlag{
				Name:  "verbosity",
				Usage: "Debug trace level 0-3 (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "measure-timing",
				Usage: "Report per-context CPU and wall time at teardown",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :2112",
			},
		},

		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	// 1. Get flags
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	names := c.StringSlice("example")
	if len(names) == 0 {
		names = workload.Names()
	}
	contexts := c.IntSlice("contexts")
	if len(contexts) == 0 {
		contexts = []int{1}
		if n := runtime.NumCPU(); n > 1 {
			contexts = append(contexts, n)
		}
	}

	// 2. Validate
	for _, n := range contexts {
		if n < 1 {
			return cli.Exit(fmt.Sprintf("contexts must be at least 1, got %d", n), 1)
		}
	}
	examples, err := buildExamples(names, c.Uint64("max"), c.IntSlice("batch-size"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	// 3. Wire metrics
	var metrics core.Metrics
	var poller *obs.SnapshotPoller
	if addr := c.String("metrics-addr"); addr != "" {
		reg := prom.NewRegistry()
		exporter, err := obs.NewMetricsExporter("fleet", reg, obs.ExporterOptions{})
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
		poller, err = obs.NewSnapshotPoller(reg, 100*time.Millisecond)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
		stop, err := serveMetrics(addr, reg)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
		defer stop()
		poller.Start(c.Context)
		defer poller.Stop()
		metrics = exporter
	}

	// 4. Run
	runner := workload.NewRunner(c.App.Writer)
	runner.NewFleet = func(n int) *fleet.Fleet {
		fc := *cfg
		fc.Contexts = n
		f := fleet.NewFromConfig(&fc, func(sc *core.SchedulerConfig) {
			if metrics != nil {
				sc.Metrics = metrics
			}
		})
		poller.AddFleet("bench", f)
		return f
	}

	failed := 0
	for _, ex := range examples {
		for _, res := range runner.RunAll(ex, contexts) {
			if res.Err != nil {
				failed++
			}
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d runs failed verification", failed), 1)
	}
	return nil
}

func loadConfig(c *cli.Context) (*fleet.Config, error) {
	cfg := fleet.DefaultConfig()
	if path := c.Path("config"); path != "" {
		loaded, err := fleet.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("round-size") {
		cfg.RoundSize = c.Int("round-size")
	}
	if c.IsSet("verbosity") {
		cfg.Verbosity = c.Int("verbosity")
	}
	if c.IsSet("measure-timing") {
		cfg.MeasureTiming = c.Bool("measure-timing")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildExamples(names []string, max uint64, batchSizes []int) ([]workload.Example, error) {
	var examples []workload.Example
	for _, name := range names {
		if name != "concurrent_batched" {
			ex, err := workload.Lookup(name, max, 0)
			if err != nil {
				return nil, err
			}
			examples = append(examples, ex)
			continue
		}
		for _, size := range batchSizes {
			ex, err := workload.Lookup(name, max, size)
			if err != nil {
				return nil, err
			}
			examples = append(examples, ex)
		}
	}
	return examples, nil
}

// serveMetrics starts a /metrics endpoint and returns a function shutting it
// down.
func serveMetrics(addr string, reg *prom.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("metrics server: %v\n", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
