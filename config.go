package fleet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Swind/go-fleet/core"
)

// Config is the file form of a fleet's tunables. Zero values select defaults.
//
//	contexts: 8
//	round_size: 64
//	measure_timing: true
//	backoff:
//	  max_sleep: 2ms
type Config struct {
	Contexts           int           `yaml:"contexts"`
	RoundSize          int           `yaml:"round_size"`
	FreeListCapacity   int           `yaml:"free_list_capacity"`
	BufferListCapacity int           `yaml:"buffer_list_capacity"`
	MeasureTiming      bool          `yaml:"measure_timing"`
	Verbosity          int           `yaml:"verbosity"`
	Backoff            BackoffConfig `yaml:"backoff"`
}

// BackoffConfig mirrors core.BackoffPolicy.
type BackoffConfig struct {
	SpinSteps        int           `yaml:"spin_steps"`
	IntenseSpinSteps int           `yaml:"intense_spin_steps"`
	IntenseSpinCount int           `yaml:"intense_spin_count"`
	YieldSteps       int           `yaml:"yield_steps"`
	ShortSleepSteps  int           `yaml:"short_sleep_steps"`
	MinSleep         time.Duration `yaml:"min_sleep"`
	MaxSleep         time.Duration `yaml:"max_sleep"`
}

// DefaultConfig returns the defaults: one context per CPU, rounds of 64
// steps, 1024 recycled tasks per context and a 2ms idle sleep cap.
func DefaultConfig() *Config {
	p := core.DefaultBackoffPolicy()
	return &Config{
		Contexts:           runtime.NumCPU(),
		RoundSize:          core.DefaultRoundSize,
		FreeListCapacity:   core.DefaultFreeListCapacity,
		BufferListCapacity: core.DefaultBufferListCapacity,
		Backoff: BackoffConfig{
			SpinSteps:        p.SpinSteps,
			IntenseSpinSteps: p.IntenseSpinSteps,
			IntenseSpinCount: p.IntenseSpinCount,
			YieldSteps:       p.YieldSteps,
			ShortSleepSteps:  p.ShortSleepSteps,
			MinSleep:         p.MinSleep,
			MaxSleep:         p.MaxSleep,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range field.
func (c *Config) Validate() error {
	switch {
	case c.Contexts < 0:
		return fmt.Errorf("contexts: must not be negative, got %d", c.Contexts)
	case c.RoundSize < 0:
		return fmt.Errorf("round_size: must not be negative, got %d", c.RoundSize)
	case c.FreeListCapacity < 0:
		return fmt.Errorf("free_list_capacity: must not be negative, got %d", c.FreeListCapacity)
	case c.BufferListCapacity < 0:
		return fmt.Errorf("buffer_list_capacity: must not be negative, got %d", c.BufferListCapacity)
	case c.Verbosity < core.TraceOff || c.Verbosity > core.TraceTasks:
		return fmt.Errorf("verbosity: must be between %d and %d, got %d", core.TraceOff, core.TraceTasks, c.Verbosity)
	case c.Backoff.MinSleep < 0 || c.Backoff.MaxSleep < 0:
		return errors.New("backoff: sleep durations must not be negative")
	}
	return nil
}

// SchedulerConfig converts c into a core configuration with default handlers.
func (c *Config) SchedulerConfig() *core.SchedulerConfig {
	sc := core.DefaultSchedulerConfig()
	sc.RoundSize = c.RoundSize
	sc.FreeListCapacity = c.FreeListCapacity
	sc.BufferListCapacity = c.BufferListCapacity
	sc.MeasureTiming = c.MeasureTiming
	sc.Verbosity = c.Verbosity
	sc.Backoff = core.BackoffPolicy{
		SpinSteps:        c.Backoff.SpinSteps,
		IntenseSpinSteps: c.Backoff.IntenseSpinSteps,
		IntenseSpinCount: c.Backoff.IntenseSpinCount,
		YieldSteps:       c.Backoff.YieldSteps,
		ShortSleepSteps:  c.Backoff.ShortSleepSteps,
		MinSleep:         c.Backoff.MinSleep,
		MaxSleep:         c.Backoff.MaxSleep,
	}
	return sc
}

// NewFromConfig creates a fleet from c. Handlers (logger, metrics, panic
// handler) can be replaced with the optional customize callback.
func NewFromConfig(c *Config, customize func(*core.SchedulerConfig)) *Fleet {
	sc := c.SchedulerConfig()
	if customize != nil {
		customize(sc)
	}
	return NewWithConfig(c.Contexts, sc)
}
