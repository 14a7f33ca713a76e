package dashboard

import (
	"context"
	"log/slog"
	"sync"
)

// Ticker is the periodic trigger driving a Poller.
type Ticker interface {
	Start()
	Pause()
	Resume()
	Stop()
	Running() bool
}

// Poller couples a Dispatcher to a Ticker and to display visibility.
// While hidden no cycle runs and the ticker is paused; becoming visible
// again refreshes immediately and resumes the ticker.
type Poller struct {
	ctx    context.Context
	d      *Dispatcher
	ticker Ticker
	logger *slog.Logger

	mu      sync.Mutex
	visible bool
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewPoller creates a stopped Poller. Cycles run under ctx.
func NewPoller(ctx context.Context, d *Dispatcher, ticker Ticker, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{ctx: ctx, d: d, ticker: ticker, logger: logger, visible: true}
}

// Tick is the ticker job. It is ignored while hidden or closed.
func (p *Poller) Tick() {
	p.d.RefreshAllIf(p.ctx, p.shown)
}

// shown and open are cycle guards. The dispatcher evaluates them under its
// own lock, so p.mu is always taken after d.mu and never the reverse.
func (p *Poller) shown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible && !p.closed
}

func (p *Poller) open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Start runs the initial cycle and starts the ticker.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	visible := p.visible
	p.mu.Unlock()

	if visible {
		p.refreshAsync(p.shown)
		p.ticker.Start()
	}
}

// RefreshNow starts a cycle in the background, superseding any in flight.
func (p *Poller) RefreshNow() {
	if p.open() {
		p.refreshAsync(p.open)
	}
}

// SetVisible reacts to the display being hidden or shown.
func (p *Poller) SetVisible(visible bool) {
	p.mu.Lock()
	if p.closed || p.visible == visible {
		p.mu.Unlock()
		return
	}
	p.visible = visible
	started := p.started
	p.mu.Unlock()

	if !started {
		return
	}
	if !visible {
		p.logger.Debug("display hidden, pausing refresh")
		p.d.Cancel()
		p.ticker.Pause()
		return
	}
	p.logger.Debug("display visible, resuming refresh")
	p.refreshAsync(p.shown)
	p.ticker.Resume()
}

// Visible reports the last visibility passed to SetVisible.
func (p *Poller) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Close stops the ticker, cancels the active cycle and waits for it.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.ticker.Stop()
	p.d.Cancel()
	p.wg.Wait()
}

// Wait blocks until background cycles started by the Poller finish.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) refreshAsync(guard func() bool) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.d.RefreshAllIf(p.ctx, guard)
	}()
}
