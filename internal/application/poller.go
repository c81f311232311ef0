package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// triggerRequest represents a manual sync trigger.
type triggerRequest struct {
	filter model.SyncFilter
	done   chan triggerResult
}

type triggerResult struct {
	result model.SyncResult
	err    error
}

// Poller runs unfiltered sync passes on a fixed interval. Failures are
// logged and never propagate. Manual triggers are routed through the same
// loop so they never overlap a scheduled pass.
type Poller struct {
	runner    SyncRunner
	interval  time.Duration
	triggerCh chan triggerRequest

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
	last    *model.SyncResult
}

// NewPoller creates a Poller that invokes runner every interval.
func NewPoller(runner SyncRunner, interval time.Duration) *Poller {
	return &Poller{
		runner:    runner,
		interval:  interval,
		triggerCh: make(chan triggerRequest),
	}
}

// Start runs the polling loop. It blocks until ctx is canceled or Stop is
// called. Calling Start on a running Poller returns immediately.
func (p *Poller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		cancel()
		slog.Warn("poller already running")
		return
	}
	stopped := make(chan struct{})
	p.cancel = cancel
	p.stopped = stopped
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		p.cancel = nil
		p.stopped = nil
		p.mu.Unlock()
		close(stopped)
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	slog.Info("poller started", "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller stopped")
			return
		case <-ticker.C:
			if _, err := p.run(ctx, model.SyncFilter{}); err != nil {
				slog.Error("scheduled sync failed", "error", err)
			}
		case req := <-p.triggerCh:
			result, err := p.run(ctx, req.filter)
			req.done <- triggerResult{result: result, err: err}
		}
	}
}

// Stop cancels a running loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, stopped := p.cancel, p.stopped
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// TriggerNow runs a sync pass through the polling loop, bypassing the
// interval. It blocks until the pass completes or ctx is canceled.
func (p *Poller) TriggerNow(ctx context.Context, filter model.SyncFilter) (model.SyncResult, error) {
	done := make(chan triggerResult, 1)
	req := triggerRequest{filter: filter, done: done}

	select {
	case p.triggerCh <- req:
	case <-ctx.Done():
		return model.SyncResult{}, ctx.Err()
	}

	select {
	case res := <-done:
		return res.result, res.err
	case <-ctx.Done():
		return model.SyncResult{}, ctx.Err()
	}
}

// LastResult returns the result of the most recent successful pass.
func (p *Poller) LastResult() (model.SyncResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return model.SyncResult{}, false
	}
	return *p.last, true
}

func (p *Poller) run(ctx context.Context, filter model.SyncFilter) (model.SyncResult, error) {
	result, err := p.runner.SyncNow(ctx, filter)
	if err != nil {
		return result, err
	}

	p.mu.Lock()
	p.last = &result
	p.mu.Unlock()

	for _, msg := range result.Errors {
		slog.Warn("link sync error", "error", msg)
	}
	return result, nil
}

// Compile-time interface satisfaction check.
var _ SyncRunner = (*Poller)(nil)

// SyncNow satisfies SyncRunner by delegating to TriggerNow, so callers that
// hold a Poller share its loop.
func (p *Poller) SyncNow(ctx context.Context, filter model.SyncFilter) (model.SyncResult, error) {
	return p.TriggerNow(ctx, filter)
}
