// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigjob

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DeviceKind is the execution context tag under which an operation
// runs.
type DeviceKind int

const (
	// Fallback devices run all work inline on the calling goroutine.
	Fallback DeviceKind = iota
	// Accelerated devices dispatch work onto a bounded stream of
	// goroutines. Work dispatched to an accelerated device is only
	// guaranteed to be complete after Sync returns.
	Accelerated
)

// String returns the device tag as it appears in results.
func (k DeviceKind) String() string {
	switch k {
	case Fallback:
		return "fallback"
	case Accelerated:
		return "accelerated"
	default:
		return fmt.Sprintf("device(%d)", int(k))
	}
}

// A Device is the execution context of a single invocation. It is
// resolved once, before the operation is dispatched, and is never
// changed while the operation runs. Devices are not shared between
// invocations.
type Device struct {
	kind  DeviceKind
	procs int

	mu  sync.Mutex
	g   *errgroup.Group
	err error
}

// NewDevice returns a device of the given kind. Accelerated devices
// run at most procs pieces of work concurrently; procs is ignored for
// fallback devices.
func NewDevice(kind DeviceKind, procs int) *Device {
	if procs < 1 {
		procs = 1
	}
	d := &Device{kind: kind, procs: procs}
	if kind == Accelerated {
		d.g = new(errgroup.Group)
		d.g.SetLimit(procs)
	}
	return d
}

// Kind returns the device's tag.
func (d *Device) Kind() DeviceKind { return d.kind }

// Procs returns the number of concurrent work items the device
// supports. It is 1 for fallback devices.
func (d *Device) Procs() int {
	if d.kind != Accelerated {
		return 1
	}
	return d.procs
}

// Go dispatches fn on the device. Fallback devices run fn
// immediately; accelerated devices may run it asynchronously. Errors
// and panics are reported by the next call to Sync.
func (d *Device) Go(fn func() error) {
	if d.kind != Accelerated {
		if err := protect(fn); err != nil {
			d.mu.Lock()
			if d.err == nil {
				d.err = err
			}
			d.mu.Unlock()
		}
		return
	}
	d.g.Go(func() error { return protect(fn) })
}

// Sync waits for all work dispatched with Go to complete and returns
// the first error reported by that work since the last call to Sync.
func (d *Device) Sync() error {
	var err error
	if d.kind == Accelerated {
		err = d.g.Wait()
		// errgroup retains its first error; start a fresh stream so
		// that later work is reported independently.
		d.g = new(errgroup.Group)
		d.g.SetLimit(d.procs)
	}
	d.mu.Lock()
	if err == nil {
		err = d.err
	}
	d.err = nil
	d.mu.Unlock()
	return err
}

// Split divides n units of work into at most Procs contiguous ranges
// and dispatches fn(i, lo, hi) for the i'th range [lo, hi).
func (d *Device) Split(n int, fn func(i, lo, hi int) error) {
	p := d.Procs()
	if p > n {
		p = n
	}
	if p < 1 {
		return
	}
	size := n / p
	for i := 0; i < p; i++ {
		i := i
		lo, hi := i*size, (i+1)*size
		if i == p-1 {
			hi = n
		}
		d.Go(func() error { return fn(i, lo, hi) })
	}
}

func protect(fn func() error) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("device work panicked: %v", e)
		}
	}()
	return fn()
}
