// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package exec runs bigjob operations. An Executor performs single
// invocations: it resolves the payload's operation to a kernel,
// selects the device on which the kernel runs, and measures the
// kernel's elapsed time. A Runner builds on the executor to split a
// job into chunks, execute the chunks concurrently, and aggregate
// their values.
package exec

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/bigjob"
	"github.com/grailbio/bigjob/kernel"
	"github.com/grailbio/bigjob/stats"
)

// A Logger is a sink for diagnostics. Diagnostics never influence
// results.
type Logger interface {
	Printf(format string, v ...interface{})
}

type baseLogger struct{}

func (baseLogger) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// DefaultLogger writes diagnostics through grailbio/base/log.
var DefaultLogger Logger = baseLogger{}

// lookup resolves operations to kernels. It is replaced in tests.
var lookup = kernel.Lookup

// An Executor runs operations. The zero Executor probes for an
// accelerator with EnvProber, runs accelerated work on up to NumCPU
// goroutines, and logs with DefaultLogger. Executors may be used
// concurrently; invocations share no mutable state apart from the
// executor's counters.
type Executor struct {
	// Mode determines how devices are selected.
	Mode DeviceMode
	// Prober is consulted once per invocation when Mode is not
	// ForceFallback. If nil, EnvProber is used.
	Prober Prober
	// Procs is the concurrency of accelerated devices. If zero,
	// runtime.NumCPU is used.
	Procs int
	// Log receives diagnostics. If nil, DefaultLogger is used.
	Log Logger
	// Stats, if not nil, collects execution counters and latencies.
	Stats *stats.Map

	index uint64
}

// Execute runs the operation named by p and returns its result.
// Errors are of the kinds defined by package bigjob, except for
// context errors, which are returned as is.
func (e *Executor) Execute(ctx context.Context, p bigjob.Payload) (*bigjob.Result, error) {
	inv := e.Invoke(ctx, p)
	if err := inv.Err(); err != nil {
		return nil, err
	}
	return inv.Result(), nil
}

// Invoke runs the operation named by p and returns the completed
// invocation, which is always in a terminal state. Kernel panics are
// recovered and fail the invocation.
func (e *Executor) Invoke(ctx context.Context, p bigjob.Payload) *Invocation {
	inv := newInvocation(atomic.AddUint64(&e.index, 1) - 1)
	e.Stats.Int("executions").Add(1)
	name, err := p.Operation()
	if err != nil {
		e.failed(inv, err)
		return inv
	}
	op, err := bigjob.ParseOp(name)
	if err != nil {
		e.failed(inv, err)
		return inv
	}
	k, ok := lookup(op)
	if !ok {
		e.failed(inv, bigjob.Errorf(bigjob.UnsupportedOperation, "Unsupported operation: %s", name))
		return inv
	}
	if err := ctx.Err(); err != nil {
		e.failed(inv, err)
		return inv
	}
	inv.dispatch(op)
	dev := e.device()
	inv.run(dev.Kind())
	e.Stats.Int("op." + op.String()).Add(1)
	if _, ok := p.Seed(); k.Randomized && !ok {
		e.Stats.Int("unseeded").Add(1)
	}

	start := time.Now()
	r, err := call(k.Run, p, dev)
	// Flush work the kernel left unsynchronized, also on failure.
	if serr := dev.Sync(); err == nil {
		err = serr
	}
	elapsed := time.Since(start)
	switch {
	case err != nil:
	case r == nil:
		err = bigjob.Errorf(bigjob.NullResult, "Task returned null result")
	default:
		r.Device = dev.Kind()
		r.Elapsed = elapsed
		r.TimeKey = k.TimeKey
	}
	if err != nil {
		e.failed(inv, err)
		return inv
	}
	e.Stats.Timer("execute").Observe(elapsed)
	e.Stats.Timer("op." + op.String()).Observe(elapsed)
	inv.succeed(r)
	return inv
}

func (e *Executor) failed(inv *Invocation, err error) {
	e.Stats.Int("failures").Add(1)
	e.log().Printf("%s: %v", inv, err)
	inv.fail(err)
}

// device selects the device for a single invocation.
func (e *Executor) device() *bigjob.Device {
	if e.Mode == ForceFallback {
		return bigjob.NewDevice(bigjob.Fallback, 1)
	}
	prober := e.Prober
	if prober == nil {
		prober = EnvProber
	}
	if !probe(prober) {
		e.Stats.Int("fallback").Add(1)
		e.log().Printf("accelerator not available, using fallback")
		return bigjob.NewDevice(bigjob.Fallback, 1)
	}
	procs := e.Procs
	if procs <= 0 {
		procs = runtime.NumCPU()
	}
	return bigjob.NewDevice(bigjob.Accelerated, procs)
}

func (e *Executor) log() Logger {
	if e.Log == nil {
		return DefaultLogger
	}
	return e.Log
}

// call runs fn, converting a panic into an error.
func call(fn kernel.Func, p bigjob.Payload, dev *bigjob.Device) (r *bigjob.Result, err error) {
	defer func() {
		if e := recover(); e != nil {
			r, err = nil, fmt.Errorf("operation panicked: %v", e)
		}
	}()
	return fn(p, dev)
}
