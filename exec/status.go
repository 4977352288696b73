// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"sync"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/status"
)

// chunkCounts tracks the number of chunks of a job in each state and
// reports them to a status task.
type chunkCounts struct {
	mu      sync.Mutex
	task    *status.Task
	idle    int
	running int
	done    int
	failed  int
}

// newChunkCounts returns counts for n idle chunks, reported to task.
// Task may be nil.
func newChunkCounts(n int, task *status.Task) *chunkCounts {
	c := &chunkCounts{task: task, idle: n}
	c.print()
	return c
}

// move moves one chunk from state from to state to.
func (c *chunkCounts) move(from, to State) {
	c.mu.Lock()
	c.add(from, -1)
	c.add(to, 1)
	c.print()
	c.mu.Unlock()
}

func (c *chunkCounts) add(state State, n int) {
	switch state {
	case Idle, Dispatching:
		c.idle += n
	case Running:
		c.running += n
	case Succeeded:
		c.done += n
	case Failed:
		c.failed += n
	default:
		log.Panicf("unhandled chunk state: %v", state)
	}
}

func (c *chunkCounts) print() {
	if c.task == nil {
		return
	}
	if c.failed > 0 {
		c.task.Printf("chunks idle/running/done/failed: %d/%d/%d/%d", c.idle, c.running, c.done, c.failed)
		return
	}
	c.task.Printf("chunks idle/running/done: %d/%d/%d", c.idle, c.running, c.done)
}

func (c *chunkCounts) snapshot() (idle, running, done, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idle, c.running, c.done, c.failed
}
