// Package pusher coalesces bursts of local edits into a single remote push.
package pusher

import (
	"context"
	"log"
	"sync"
	"time"

	"visitroute/internal/model"
)

const DefaultDelay = 1200 * time.Millisecond

// Pusher holds at most one armed timer. Scheduling again before it fires
// replaces it, so only the last edit in a burst triggers a push. The
// snapshot is taken when the timer fires, not when it was armed.
type Pusher struct {
	Delay    time.Duration
	Timeout  time.Duration
	Snapshot func() []model.Client
	Push     func(ctx context.Context, clients []model.Client) error
	OnError  func(error)

	mu      sync.Mutex
	timer   *time.Timer
	armed   uint64 // id of the timer in p.timer
	stopped bool
}

func New(snapshot func() []model.Client, push func(ctx context.Context, clients []model.Client) error) *Pusher {
	return &Pusher{Delay: DefaultDelay, Timeout: 30 * time.Second, Snapshot: snapshot, Push: push}
}

// Schedule (re)arms the timer.
func (p *Pusher) Schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	d := p.Delay
	if d <= 0 {
		d = DefaultDelay
	}
	p.armed++
	id := p.armed
	p.timer = time.AfterFunc(d, func() { p.fire(id) })
}

// Pending reports whether a push is armed but has not fired.
func (p *Pusher) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

// fire runs timer id. A timer that was replaced, flushed or stopped while
// it waited for the lock does nothing.
func (p *Pusher) fire(id uint64) {
	p.mu.Lock()
	if p.stopped || id != p.armed || p.timer == nil {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.mu.Unlock()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	p.run(ctx)
}

// Flush disarms any pending timer and pushes the current snapshot now.
func (p *Pusher) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	return p.run(ctx)
}

// Stop disarms the timer; later Schedule calls are ignored.
func (p *Pusher) Stop() {
	p.mu.Lock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
}

func (p *Pusher) run(ctx context.Context) error {
	if p.Push == nil || p.Snapshot == nil {
		return nil
	}
	err := p.Push(ctx, p.Snapshot())
	if err != nil {
		log.Printf("pusher: remote push failed: %v", err)
		if p.OnError != nil {
			p.OnError(err)
		}
	}
	return err
}
