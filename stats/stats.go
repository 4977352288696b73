// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package stats keeps the process-wide counters and latency
// distributions reported by bigjob executors and runners. A Map is
// safe for concurrent use; its Snapshot is a plain value suitable for
// rendering on debug endpoints.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are recorded in microseconds, between 1µs and 10 minutes,
// with three significant digits.
const (
	minLatency = 1
	maxLatency = int64(10 * time.Minute / time.Microsecond)
	sigFigs    = 3
)

// Values is a snapshot of the counters in a Map.
type Values map[string]int64

// String returns the values sorted by key, as "key:value" pairs.
func (v Values) String() string {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for i, key := range keys {
		keys[i] = fmt.Sprintf("%s:%d", key, v[key])
	}
	return strings.Join(keys, " ")
}

// Latency summarizes a timer's distribution.
type Latency struct {
	Count int64         `json:"count"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

// A Snapshot is a point-in-time copy of a Map.
type Snapshot struct {
	Counters Values             `json:"counters"`
	Timers   map[string]Latency `json:"timers"`
}

// A Map is a set of named counters and timers.
type Map struct {
	mu       sync.Mutex
	counters map[string]*Int
	timers   map[string]*Timer
}

// NewMap returns a fresh Map.
func NewMap() *Map {
	return &Map{
		counters: make(map[string]*Int),
		timers:   make(map[string]*Timer),
	}
}

// Int returns the counter with the provided name, creating it if
// needed. Int on a nil Map returns a nil counter, which ignores
// updates.
func (m *Map) Int(name string) *Int {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.counters[name]
	if v == nil {
		v = new(Int)
		m.counters[name] = v
	}
	return v
}

// Timer returns the timer with the provided name, creating it if
// needed. Timer on a nil Map returns a nil timer, which ignores
// observations.
func (m *Map) Timer(name string) *Timer {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.timers[name]
	if t == nil {
		t = &Timer{hist: hdrhistogram.New(minLatency, maxLatency, sigFigs)}
		m.timers[name] = t
	}
	return t
}

// Snapshot returns the current state of all counters and timers.
func (m *Map) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(Values), Timers: make(map[string]Latency)}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.counters {
		snap.Counters[k] = v.Get()
	}
	for k, t := range m.timers {
		snap.Timers[k] = t.Latency()
	}
	return snap
}

// An Int is an integer counter that may be updated atomically.
type Int struct {
	val int64
}

// Add increments v by delta.
func (v *Int) Add(delta int64) {
	if v == nil {
		return
	}
	atomic.AddInt64(&v.val, delta)
}

// Get returns the current value of a counter.
func (v *Int) Get() int64 {
	if v == nil {
		return 0
	}
	return atomic.LoadInt64(&v.val)
}

// A Timer records a distribution of durations.
type Timer struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// Observe records d. Durations outside of the trackable range are
// clamped to it.
func (t *Timer) Observe(d time.Duration) {
	if t == nil {
		return
	}
	us := int64(d / time.Microsecond)
	if us < minLatency {
		us = minLatency
	}
	if us > maxLatency {
		us = maxLatency
	}
	t.mu.Lock()
	// The value is within range, so RecordValue cannot fail.
	_ = t.hist.RecordValue(us)
	t.mu.Unlock()
}

// Latency returns a summary of the durations observed so far.
func (t *Timer) Latency() Latency {
	if t == nil {
		return Latency{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Latency{
		Count: t.hist.TotalCount(),
		Mean:  time.Duration(t.hist.Mean() * float64(time.Microsecond)),
		P50:   us(t.hist.ValueAtQuantile(50)),
		P99:   us(t.hist.ValueAtQuantile(99)),
		Max:   us(t.hist.Max()),
	}
}
