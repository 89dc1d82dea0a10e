// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	applog "looper/internal/log"
	"looper/internal/transport"
)

// UDPPublisher periodically fetches the looper status, packs it into a
// Packet and sends it with a UDPSender. It runs in a separate goroutine
// managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	source   transport.StatusSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum  uint32
	packetBuffer *bytes.Buffer // Reused for every packet.
	failures     int
}

// NewUDPPublisher creates a publisher. If the interval is invalid (<= 0), it
// defaults to transport.DefaultInterval.
func NewUDPPublisher(interval time.Duration, sender *UDPSender, source transport.StatusSource) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: status source cannot be nil")
	}
	if interval <= 0 {
		interval = transport.DefaultInterval
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	return &UDPPublisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, PacketSize)),
	}, nil
}

// Start begins the periodic publishing. Calling Start while running is a
// no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, doneChan := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publishing to %s every %s", p.sender.Target(), p.interval)
		for {
			select {
			case <-ticker.C:
				p.Publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Calling Stop when not running is a no-op.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Stopped after %d packets", p.sequenceNum)
	return nil
}

// Publish builds and sends one packet. Only the publisher goroutine or a
// caller that has not started the publisher may call it.
func (p *UDPPublisher) Publish() error {
	p.sequenceNum++
	pkt := NewPacket(p.sequenceNum, p.source.Status())

	if err := pkt.MarshalTo(p.packetBuffer); err != nil {
		applog.Errorf("UDPPublisher: Error packing status: %v", err)
		return err
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		// First failure, then every 100th.
		if p.failures%100 == 0 {
			applog.Warnf("UDPPublisher: Error sending packet %d: %v", p.sequenceNum, err)
		}
		p.failures++
		return err
	}
	return nil
}

// Close stops the publisher and closes the sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

// Ensure UDPPublisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*UDPPublisher)(nil)
