package core

import (
	"sync"
	"testing"
)

func testConfig() *SchedulerConfig {
	cfg := DefaultSchedulerConfig()
	cfg.Logger = NewNoOpLogger()
	return cfg
}

// runScheduler seeds s and runs one goroutine per context until quiescence.
func runScheduler(s *Scheduler, fn TaskFunc, payload any) {
	s.Seed(fn, payload)
	var wg sync.WaitGroup
	for i := 0; i < s.Count(); i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			s.Work(index)
		}(i)
	}
	wg.Wait()
}

// runningTask makes t the running task of c, as the scheduler would.
func runningTask(c *Context, t *Task) {
	t.state = TaskRunning
	c.current = t
}

func noopTask(*Context, *Task) {}

func assertLive(t *testing.T, s *Scheduler) {
	t.Helper()
	if live := s.Stats().Tasks().Live(); live != 0 {
		t.Errorf("live tasks = %d, want 0", live)
	}
}
