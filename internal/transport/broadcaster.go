// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	applog "looper/internal/log"
)

// DefaultInterval is used when a Broadcaster is given a non-positive interval.
const DefaultInterval = 33 * time.Millisecond

// Broadcaster pulls a Status from its source on every tick and sends it on
// each transport. A failing transport is logged and skipped; it does not
// stop the others.
type Broadcaster struct {
	source     StatusSource
	transports []Transport
	interval   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBroadcaster creates a broadcaster. It does nothing until Start or Run.
func NewBroadcaster(source StatusSource, interval time.Duration, transports ...Transport) *Broadcaster {
	if interval <= 0 {
		interval = DefaultInterval
		applog.Warnf("Broadcaster: Invalid interval provided, defaulting to %s", interval)
	}
	return &Broadcaster{
		source:     source,
		transports: transports,
		interval:   interval,
	}
}

// Run broadcasts until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Broadcast()
		}
	}
}

// Broadcast sends one status snapshot to every transport.
func (b *Broadcaster) Broadcast() error {
	status := b.source.Status()
	var errs []error
	for _, t := range b.transports {
		if err := t.Send(status); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		applog.Debugf("Broadcaster: %v", err)
	}
	return err
}

// Start runs the broadcaster on its own goroutine. Calling Start while
// running is a no-op.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	done := b.done

	go func() {
		defer close(done)
		b.Run(ctx)
	}()
	applog.Debugf("Broadcaster: Started (Interval: %s, Transports: %d)", b.interval, len(b.transports))
}

// Stop halts the goroutine started by Start and waits for it to exit.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
