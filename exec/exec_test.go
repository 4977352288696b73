// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/grailbio/bigjob"
	"github.com/grailbio/bigjob/kernel"
)

// recorder is a Logger that keeps its diagnostics.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Printf(format string, v ...interface{}) {
	r.mu.Lock()
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
	r.mu.Unlock()
}

func (r *recorder) contains(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

// withKernel replaces the kernel for op for the duration of a test.
func withKernel(t *testing.T, op bigjob.Op, fn kernel.Func) {
	t.Helper()
	saved := lookup
	lookup = func(o bigjob.Op) (kernel.Kernel, bool) {
		k, ok := saved(o)
		if o == op {
			k.Run, k.TimeKey = fn, "elapsed"
		}
		return k, ok
	}
	t.Cleanup(func() { lookup = saved })
}

func sumPayload(numbers ...interface{}) bigjob.Payload {
	return bigjob.Payload{"operation": "sum", "numbers": numbers}
}
