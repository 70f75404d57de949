package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	auctionsStarted atomic.Uint64
	swapsExecuted   atomic.Uint64
	buysRejected    atomic.Uint64
	priceReads      atomic.Uint64

	// Gauges
	activeAuctions atomic.Int32
	feedClients    atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordAuctionStarted records a successful StartAuction.
func (m *Metrics) RecordAuctionStarted() {
	m.auctionsStarted.Add(1)
	m.activeAuctions.Add(1)
}

// RecordSwapExecuted records a settled auction.
func (m *Metrics) RecordSwapExecuted() {
	m.swapsExecuted.Add(1)
	m.activeAuctions.Add(-1)
}

// RecordBuyRejected records a Buy that failed its preconditions.
func (m *Metrics) RecordBuyRejected() {
	m.buysRejected.Add(1)
}

// RecordPriceRead records a CurrentPrice read.
func (m *Metrics) RecordPriceRead() {
	m.priceReads.Add(1)
}

// IncrementFeedClients increments connected feed clients by 1.
func (m *Metrics) IncrementFeedClients() {
	m.feedClients.Add(1)
}

// DecrementFeedClients decrements connected feed clients by 1.
func (m *Metrics) DecrementFeedClients() {
	m.feedClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	AuctionsStarted uint64
	SwapsExecuted   uint64
	BuysRejected    uint64
	PriceReads      uint64
	ActiveAuctions  int32
	FeedClients     int32
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		AuctionsStarted: m.auctionsStarted.Load(),
		SwapsExecuted:   m.swapsExecuted.Load(),
		BuysRejected:    m.buysRejected.Load(),
		PriceReads:      m.priceReads.Load(),
		ActiveAuctions:  m.activeAuctions.Load(),
		FeedClients:     m.feedClients.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.auctionsStarted.Store(0)
	m.swapsExecuted.Store(0)
	m.buysRejected.Store(0)
	m.priceReads.Store(0)
	m.activeAuctions.Store(0)
	m.feedClients.Store(0)
}
