package schedule

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Ticker runs a job on a fixed interval and can be paused and resumed.
// Resuming restarts the interval from the moment of resumption.
//
// Sub-second intervals are rounded up to one second by cron.
type Ticker struct {
	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	stopped bool
}

// NewTicker creates a paused Ticker that will run job every interval.
func NewTicker(interval time.Duration, job func()) *Ticker {
	c := cron.New()
	c.Schedule(cron.Every(interval), cron.FuncJob(job))
	return &Ticker{cron: c}
}

// Start begins (or resumes) ticking. It is a no-op after Stop.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.stopped {
		return
	}
	t.cron.Start()
	t.running = true
}

// Pause halts ticking without waiting for a running job.
func (t *Ticker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.cron.Stop()
	t.running = false
}

// Resume is Start under the name the visibility handler uses.
func (t *Ticker) Resume() {
	t.Start()
}

// Stop halts ticking for good.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.cron.Stop()
		t.running = false
	}
	t.stopped = true
}

// Running reports whether the ticker is currently active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
