// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/grailbio/bigjob"
)

// State represents the progress of an Invocation. State values are
// defined so that their magnitudes correspond with progression: an
// invocation only ever moves to a larger-valued state.
type State int

const (
	// Idle is the initial state of an invocation.
	Idle State = iota
	// Dispatching indicates that the operation has been resolved and
	// the invocation's device is being selected.
	Dispatching
	// Running is the state of an invocation whose operation is
	// computing.
	Running

	// Succeeded indicates that the invocation produced a result.
	//
	// All states greater than or equal to Succeeded are terminal.
	Succeeded
	// Failed indicates that the invocation produced an error.
	Failed

	maxState
)

var states = [...]string{
	Idle:        "IDLE",
	Dispatching: "DISPATCHING",
	Running:     "RUNNING",
	Succeeded:   "SUCCEEDED",
	Failed:      "FAILED",
}

// String returns the state as an upper-case string.
func (s State) String() string {
	if s < 0 || s >= maxState {
		return fmt.Sprintf("STATE(%d)", int(s))
	}
	return states[s]
}

// Terminal tells whether s is a final state.
func (s State) Terminal() bool {
	return s >= Succeeded
}

// An Invocation is a single execution of an operation by an
// Executor. Invocations are created in state Idle and end in exactly
// one of Succeeded or Failed. Waiters may observe state changes with
// WaitState.
type Invocation struct {
	// Index is the invocation's ordinal within its executor.
	Index uint64
	// Op is the operation being invoked. It is valid once the
	// invocation has left state Idle.
	Op bigjob.Op

	mu     sync.Mutex
	waitc  chan struct{}
	state  State
	device bigjob.DeviceKind
	result *bigjob.Result
	err    error
}

func newInvocation(index uint64) *Invocation {
	return &Invocation{Index: index}
}

// State returns the invocation's current state.
func (inv *Invocation) State() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// Device returns the device the invocation was dispatched to.
func (inv *Invocation) Device() bigjob.DeviceKind {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.device
}

// Result returns the invocation's result, which is non-nil only in
// state Succeeded.
func (inv *Invocation) Result() *bigjob.Result {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.result
}

// Err returns the invocation's error, which is non-nil only in state
// Failed.
func (inv *Invocation) Err() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.err
}

// String returns a short, human-readable description of the
// invocation's state.
func (inv *Invocation) String() string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	var b bytes.Buffer
	fmt.Fprintf(&b, "invocation %d", inv.Index)
	if inv.state > Idle {
		fmt.Fprintf(&b, " %s", inv.Op)
	}
	fmt.Fprintf(&b, " %s", inv.state)
	if inv.err != nil {
		fmt.Fprintf(&b, ": %v", inv.err)
	}
	return b.String()
}

// WaitState returns when the invocation's state is at least the
// provided state, or else when the context is done.
func (inv *Invocation) WaitState(ctx context.Context, state State) (State, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for inv.state < state {
		if inv.waitc == nil {
			inv.waitc = make(chan struct{})
		}
		waitc := inv.waitc
		inv.mu.Unlock()
		select {
		case <-waitc:
		case <-ctx.Done():
			inv.mu.Lock()
			return inv.state, ctx.Err()
		}
		inv.mu.Lock()
	}
	return inv.state, nil
}

// set moves the invocation to the provided state and notifies
// waiters. The caller must hold inv.mu.
func (inv *Invocation) set(state State) {
	if state <= inv.state {
		log.Panicf("invocation %d: invalid transition %s -> %s", inv.Index, inv.state, state)
	}
	inv.state = state
	if inv.waitc != nil {
		close(inv.waitc)
		inv.waitc = nil
	}
}

func (inv *Invocation) dispatch(op bigjob.Op) {
	inv.mu.Lock()
	inv.Op = op
	inv.set(Dispatching)
	inv.mu.Unlock()
}

func (inv *Invocation) run(device bigjob.DeviceKind) {
	inv.mu.Lock()
	inv.device = device
	inv.set(Running)
	inv.mu.Unlock()
}

func (inv *Invocation) succeed(r *bigjob.Result) {
	inv.mu.Lock()
	inv.result = r
	inv.set(Succeeded)
	inv.mu.Unlock()
}

func (inv *Invocation) fail(err error) {
	inv.mu.Lock()
	inv.err = err
	inv.set(Failed)
	inv.mu.Unlock()
}
