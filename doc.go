// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bigjob implements a small job distribution harness. A unit
// of work (a numeric array, a render or compute request) is split into
// independent chunks, each chunk is executed by a worker that
// dispatches on a named operation, and the partial results are
// combined into a single answer.
//
// Package bigjob defines the data model shared by the rest of the
// module: payloads (Payload), operation names (Op), execution devices
// (Device), results (Result), and the splitting (Split) and
// aggregation (Aggregate) functions. Operation implementations live in
// package kernel; invocation and job orchestration live in package
// exec; the textual request/response boundary lives in package jobio.
//
// A job is run as follows:
//
//	chunks, err := bigjob.Split(numbers, 3)
//	// run each chunk through an exec.Executor, possibly in parallel
//	total, err := bigjob.Aggregate(values, bigjob.Sum)
//
// Splitting is deterministic: the contents of each chunk depend only on
// the input and the chunk count. Aggregation tolerates missing
// (failed) chunk results.
//
// # Errors
//
// Errors produced by this module carry a Kind (see Error). Kinds are
// used by the boundary adapters to decide the shape of a response, but
// every error is ultimately rendered as {"error": message}.
package bigjob
