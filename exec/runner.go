// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grailbio/base/limiter"
	"github.com/grailbio/base/retry"
	"github.com/grailbio/base/status"
	"github.com/grailbio/bigjob"
	"golang.org/x/sync/errgroup"
)

const (
	// NumbersKey is the payload field that is split across chunks.
	NumbersKey = "numbers"
	// AggregateKey is the payload field naming the aggregation mode
	// of a chunked job.
	AggregateKey = "aggregate"
	// DefaultChunks is the number of chunks used when a job does not
	// specify one.
	DefaultChunks = 2
	// MaxChunks is the largest number of chunks a job may be split
	// into.
	MaxChunks = bigjob.MaxChunks
)

var defaultRetryPolicy = retry.Backoff(100*time.Millisecond, 5*time.Second, 2)

// A Job is a payload to be run by a Runner.
type Job struct {
	// ID identifies the job. Run assigns a random ID if it is empty.
	ID string
	// Payload is the job's payload. Payloads of chunked operations
	// (see kernel.Kernel) that carry a numeric NumbersKey array are
	// split into Chunks chunks; others run as a single invocation.
	Payload bigjob.Payload
	// Chunks is the number of chunks, at most MaxChunks. If zero,
	// DefaultChunks is used.
	Chunks int
}

// NewJob returns a job with a fresh ID.
func NewJob(p bigjob.Payload, chunks int) Job {
	return Job{ID: uuid.New().String(), Payload: p, Chunks: chunks}
}

// An Outcome is the result of a job.
type Outcome struct {
	// ID is the job's ID.
	ID string `json:"id"`
	// Result is the aggregated value of a chunked job, or the
	// *bigjob.Result of a job run as a single invocation.
	Result interface{} `json:"result"`
}

// A Runner runs jobs: it splits the job's input into chunks, runs one
// invocation per chunk concurrently, and aggregates the chunks'
// values. Chunks that fail or time out contribute no value.
type Runner struct {
	// Executor runs the invocations.
	Executor *Executor
	// Parallelism bounds the number of concurrently running chunks.
	// If zero, all chunks of a job may run concurrently.
	Parallelism int
	// Retries is the number of times a failed chunk is retried.
	// Only errors outside of the bigjob error taxonomy, such as
	// timeouts and panics, are retried.
	Retries int
	// RetryPolicy determines the wait between retries. If nil, an
	// exponential backoff policy is used.
	RetryPolicy retry.Policy
	// ChunkTimeout, if positive, bounds the time spent on each
	// invocation.
	ChunkTimeout time.Duration
	// Status, if not nil, receives job and chunk progress.
	Status *status.Status
}

// Run runs the provided job. Run returns when the job is complete or
// ctx is done; in the latter case the context's error is returned.
func (r *Runner) Run(ctx context.Context, job Job) (Outcome, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	out := Outcome{ID: job.ID}
	stats := r.Executor.Stats
	stats.Int("jobs").Add(1)
	start := time.Now()
	defer func() { stats.Timer("job").Observe(time.Since(start)) }()

	name, err := job.Payload.Operation()
	if err != nil {
		return out, err
	}
	op, err := bigjob.ParseOp(name)
	if err != nil {
		return out, err
	}
	k, _ := lookup(op)
	numbers := job.Payload.Floats(NumbersKey, nil)
	if numbers == nil || !k.Chunked {
		res, err := r.Execute(ctx, job.Payload)
		if err != nil {
			return out, err
		}
		out.Result = res
		return out, nil
	}
	mode, err := bigjob.ParseMode(job.Payload.Text(AggregateKey, bigjob.Sum.String()))
	if err != nil {
		return out, err
	}
	chunks := job.Chunks
	if chunks == 0 {
		chunks = DefaultChunks
	}
	if chunks < 1 || chunks > MaxChunks {
		return out, bigjob.Errorf(bigjob.InvalidChunkCount,
			"Invalid chunk count: %d (must be between 1 and %d)", chunks, MaxChunks)
	}
	parts, err := bigjob.Split(numbers, chunks)
	if err != nil {
		return out, err
	}
	values, err := r.runChunks(ctx, job, parts)
	if err != nil {
		return out, err
	}
	out.Result, err = bigjob.Aggregate(values, mode)
	return out, err
}

// runChunks runs one invocation for each part and returns the value
// of each invocation, in order. Failed invocations have nil values.
func (r *Runner) runChunks(ctx context.Context, job Job, parts [][]float64) ([]*float64, error) {
	stats := r.Executor.Stats
	var task *status.Task
	if r.Status != nil {
		task = r.Status.Group("jobs").Start(job.ID)
		defer task.Done()
	}
	counts := newChunkCounts(len(parts), task)

	parallelism := r.Parallelism
	if parallelism <= 0 {
		parallelism = len(parts)
	}
	lim := limiter.New()
	lim.Release(parallelism)

	values := make([]*float64, len(parts))
	var g errgroup.Group
	for i, part := range parts {
		i, part := i, part
		// Chunks wait for capacity before a goroutine is started for
		// them, so that at most parallelism goroutines exist.
		if err := lim.Acquire(ctx, 1); err != nil {
			g.Wait()
			return nil, err
		}
		g.Go(func() error {
			defer lim.Release(1)
			counts.move(Idle, Running)
			stats.Int("chunks").Add(1)
			res, err := r.runChunk(ctx, job.Payload.With(NumbersKey, part))
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				counts.move(Running, Failed)
				stats.Int("chunk_failures").Add(1)
				r.Executor.log().Printf("job %s: chunk %d: %v", job.ID, i, err)
				return nil
			}
			counts.move(Running, Succeeded)
			if v, ok := res.Value(); ok {
				values[i] = &v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

// runChunk runs a single chunk, retrying it according to the
// runner's retry policy.
func (r *Runner) runChunk(ctx context.Context, p bigjob.Payload) (*bigjob.Result, error) {
	policy := r.RetryPolicy
	if policy == nil {
		policy = defaultRetryPolicy
	}
	for retries := 0; ; retries++ {
		res, err := r.Execute(ctx, p)
		if err == nil || retries >= r.Retries || bigjob.KindOf(err) != bigjob.Other || ctx.Err() != nil {
			return res, err
		}
		r.Executor.Stats.Int("retries").Add(1)
		if werr := retry.Wait(ctx, policy, retries); werr != nil {
			return nil, err
		}
	}
}

// Execute runs a single invocation of p without retries. It returns
// early if ctx is done or the chunk timeout expires; the abandoned
// invocation runs to completion in the background and its result is
// discarded.
func (r *Runner) Execute(ctx context.Context, p bigjob.Payload) (*bigjob.Result, error) {
	parent := ctx
	if r.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.ChunkTimeout)
		defer cancel()
	}
	type reply struct {
		res *bigjob.Result
		err error
	}
	replyc := make(chan reply, 1)
	go func() {
		res, err := r.Executor.Execute(ctx, p)
		replyc <- reply{res, err}
	}()
	select {
	case rep := <-replyc:
		return rep.res, rep.err
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("invocation timed out after %s", r.ChunkTimeout)
	}
}
