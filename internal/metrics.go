package internal

import (
	"fmt"
	"sync/atomic"
)

// Metrics counts client-side chat activity for the status line and debug
// dumps.
type Metrics struct {
	sent            atomic.Uint64
	received        atomic.Uint64
	dropped         atomic.Uint64
	uploadedBytes   atomic.Uint64
	downloadedBytes atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncSent() {
	m.sent.Add(1)
}

func (m *Metrics) IncReceived() {
	m.received.Add(1)
}

// IncDropped counts deliveries that did not land in the open conversation.
func (m *Metrics) IncDropped() {
	m.dropped.Add(1)
}

func (m *Metrics) AddUploadedBytes(n int64) {
	if n > 0 {
		m.uploadedBytes.Add(uint64(n))
	}
}

func (m *Metrics) AddDownloadedBytes(n int64) {
	if n > 0 {
		m.downloadedBytes.Add(uint64(n))
	}
}

func (m *Metrics) Sent() uint64     { return m.sent.Load() }
func (m *Metrics) Received() uint64 { return m.received.Load() }
func (m *Metrics) Dropped() uint64  { return m.dropped.Load() }

func (m *Metrics) String() string {
	return fmt.Sprintf("sent %d • received %d • up %s • down %s",
		m.sent.Load(), m.received.Load(),
		humanBytes(m.uploadedBytes.Load()), humanBytes(m.downloadedBytes.Load()))
}

func humanBytes(n uint64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
