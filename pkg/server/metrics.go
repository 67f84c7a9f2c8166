package server

import (
	"sync/atomic"
	"time"
)

// ServerMetrics is a snapshot of the server's stream counters.
type ServerMetrics struct {
	// Streams
	ActiveStreams int64 `json:"active_streams"`
	TotalStreams  int64 `json:"total_streams"`
	FailedStreams int64 `json:"failed_streams"`
	PeakStreams   int64 `json:"peak_streams"`

	// Decoding
	ActionsDecoded int64 `json:"actions_decoded"`
	BytesDecoded   int64 `json:"bytes_decoded"`
	FramesSkipped  int64 `json:"frames_skipped"`

	// Uploads
	Uploads int64 `json:"uploads"`

	// Timestamp
	CollectedAt time.Time `json:"collected_at"`
}

// MetricsCollector keeps the counters behind ServerMetrics.
type MetricsCollector struct {
	activeStreams  atomic.Int64
	totalStreams   atomic.Int64
	failedStreams  atomic.Int64
	peakStreams    atomic.Int64
	actionsDecoded atomic.Int64
	bytesDecoded   atomic.Int64
	framesSkipped  atomic.Int64
	uploads        atomic.Int64
}

// NewMetricsCollector creates a new MetricsCollector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// StreamStarted records the start of a stream.
func (m *MetricsCollector) StreamStarted() {
	m.totalStreams.Add(1)
	active := m.activeStreams.Add(1)
	for {
		peak := m.peakStreams.Load()
		if active <= peak || m.peakStreams.CompareAndSwap(peak, active) {
			return
		}
	}
}

// StreamFinished records the end of a stream.
func (m *MetricsCollector) StreamFinished(err error, actions int, bytes int64, skipped int) {
	m.activeStreams.Add(-1)
	if err != nil {
		m.failedStreams.Add(1)
	}
	m.actionsDecoded.Add(int64(actions))
	m.bytesDecoded.Add(bytes)
	m.framesSkipped.Add(int64(skipped))
}

// RecordUpload counts a stored recording.
func (m *MetricsCollector) RecordUpload() {
	m.uploads.Add(1)
}

// Snapshot returns the current counters.
func (m *MetricsCollector) Snapshot() *ServerMetrics {
	return &ServerMetrics{
		ActiveStreams:  m.activeStreams.Load(),
		TotalStreams:   m.totalStreams.Load(),
		FailedStreams:  m.failedStreams.Load(),
		PeakStreams:    m.peakStreams.Load(),
		ActionsDecoded: m.actionsDecoded.Load(),
		BytesDecoded:   m.bytesDecoded.Load(),
		FramesSkipped:  m.framesSkipped.Load(),
		Uploads:        m.uploads.Load(),
		CollectedAt:    time.Now(),
	}
}

// Reset zeroes every counter except the active stream count.
func (m *MetricsCollector) Reset() {
	m.totalStreams.Store(0)
	m.failedStreams.Store(0)
	m.peakStreams.Store(m.activeStreams.Load())
	m.actionsDecoded.Store(0)
	m.bytesDecoded.Store(0)
	m.framesSkipped.Store(0)
	m.uploads.Store(0)
}
