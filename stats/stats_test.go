// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"testing"
	"time"
)

func TestCounters(t *testing.T) {
	m := NewMap()
	var (
		x = m.Int("x")
		_ = m.Int("y")
	)
	if got, want := x.Get(), int64(0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	x.Add(123)
	m.Int("x").Add(123)
	if got, want := x.Get(), int64(123*2); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	snap := m.Snapshot()
	if got, want := len(snap.Counters), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := snap.Counters.String(), "x:246 y:0"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTimer(t *testing.T) {
	m := NewMap()
	timer := m.Timer("run")
	for i := 1; i <= 100; i++ {
		timer.Observe(time.Duration(i) * time.Millisecond)
	}
	timer.Observe(-time.Second)
	lat := m.Snapshot().Timers["run"]
	if got, want := lat.Count, int64(101); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if lat.P50 < 49*time.Millisecond || lat.P50 > 51*time.Millisecond {
		t.Errorf("p50: got %v", lat.P50)
	}
	if lat.Max < 99*time.Millisecond || lat.Max > 101*time.Millisecond {
		t.Errorf("max: got %v", lat.Max)
	}
}

func TestNilMap(t *testing.T) {
	var m *Map
	m.Int("x").Add(1)
	m.Timer("t").Observe(time.Second)
	if got, want := m.Int("x").Get(), int64(0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := m.Snapshot(); len(got.Counters) != 0 || len(got.Timers) != 0 {
		t.Errorf("got %v, want empty snapshot", got)
	}
}
