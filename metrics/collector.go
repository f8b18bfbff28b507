// Package metrics provides per-run narration metrics.
//
// The Collector accumulates counters while a Narrator runs. It is a leaf
// package: channel names are plain strings so the collector stays free of
// dependencies on the adapter package.
package metrics

import (
	"maps"
	"slices"
	"sync"
)

// Snapshot is an immutable point-in-time view of all narration metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Fan-out, keyed by channel name (act, scene, beat, aside)
	Invocations map[string]int64 `json:"invocations" yaml:"invocations"`
	Wraps       map[string]int64 `json:"wraps" yaml:"wraps"`
	Closes      map[string]int64 `json:"closes" yaml:"closes"`

	// Kinked buffering
	Recorded int64 `json:"recorded" yaml:"recorded"`
	Cleared  int64 `json:"cleared" yaml:"cleared"`
	Flushed  int64 `json:"flushed" yaml:"flushed"`
	Flushes  int64 `json:"flushes" yaml:"flushes"`

	// Narration off the air
	Passthrough int64 `json:"passthrough" yaml:"passthrough"`

	// Beats
	DerivedAsides int64 `json:"derived_asides" yaml:"derived_asides"`
	WorkFailures  int64 `json:"work_failures" yaml:"work_failures"`

	// Dimensions (informational, set at construction)
	RunID    string   `json:"run_id" yaml:"run_id"`
	Adapters []string `json:"adapters" yaml:"adapters"`
}

// TotalWraps returns the sum of wraps over all channels.
func (s Snapshot) TotalWraps() int64 {
	var n int64
	for _, v := range s.Wraps {
		n += v
	}
	return n
}

// TotalCloses returns the sum of closes over all channels.
func (s Snapshot) TotalCloses() int64 {
	var n int64
	for _, v := range s.Closes {
		n += v
	}
	return n
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	invocations map[string]int64
	wraps       map[string]int64
	closes      map[string]int64

	recorded int64
	cleared  int64
	flushed  int64
	flushes  int64

	passthrough int64

	derivedAsides int64
	workFailures  int64

	runID    string
	adapters []string
}

// NewCollector creates a Collector with dimension labels.
// adapters lists the registered adapter names in registration order.
func NewCollector(runID string, adapters ...string) *Collector {
	return &Collector{
		invocations: make(map[string]int64),
		wraps:       make(map[string]int64),
		closes:      make(map[string]int64),
		runID:       runID,
		adapters:    slices.Clone(adapters),
	}
}

// --- Fan-out ---

// IncInvocation records a channel invocation that reached the adapters.
func (c *Collector) IncInvocation(channel string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.invocations[channel]++
	c.mu.Unlock()
}

// IncWrap records one adapter wrap.
func (c *Collector) IncWrap(channel string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.wraps[channel]++
	c.mu.Unlock()
}

// IncClose records one token close.
func (c *Collector) IncClose(channel string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.closes[channel]++
	c.mu.Unlock()
}

// --- Kinked buffering ---

// IncRecorded records a narration captured while the cable was kinked.
func (c *Collector) IncRecorded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recorded++
	c.mu.Unlock()
}

// AddCleared records n buffered narrations discarded by a clear.
func (c *Collector) AddCleared(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.cleared += int64(n)
	c.mu.Unlock()
}

// AddFlushed records a flush that replayed n buffered narrations.
func (c *Collector) AddFlushed(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.flushes++
	c.flushed += int64(n)
	c.mu.Unlock()
}

// --- Off the air ---

// IncPassthrough records an invocation made while narration was off the air.
func (c *Collector) IncPassthrough() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.passthrough++
	c.mu.Unlock()
}

// --- Beats ---

// IncDerivedAside records an aside emitted for a beat's return value.
func (c *Collector) IncDerivedAside() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.derivedAsides++
	c.mu.Unlock()
}

// IncWorkFailure records narrated work that returned an error.
func (c *Collector) IncWorkFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.workFailures++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Invocations: maps.Clone(c.invocations),
		Wraps:       maps.Clone(c.wraps),
		Closes:      maps.Clone(c.closes),

		Recorded: c.recorded,
		Cleared:  c.cleared,
		Flushed:  c.flushed,
		Flushes:  c.flushes,

		Passthrough: c.passthrough,

		DerivedAsides: c.derivedAsides,
		WorkFailures:  c.workFailures,

		RunID:    c.runID,
		Adapters: slices.Clone(c.adapters),
	}
}
