// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"sync/atomic"

	applog "looper/internal/log"
)

// LoggingTransport implements the Transport interface by logging payloads
// at debug level. It stands in for the network surfaces in headless runs.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data when debug logging is on. It fails only if
// that data cannot be encoded.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if applog.GetLevel() > applog.LevelDebug {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	applog.Debugf("Transport: #%d %s", n, b)
	return nil
}

// Sent returns the number of payloads seen.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.sent.Load()
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed after %d messages", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
