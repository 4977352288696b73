// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigjob

// MaxChunks is the largest supported chunk count.
const MaxChunks = 1024

// Split partitions items into exactly n contiguous chunks. Each chunk
// holds len(items)/n items, taken in input order, except the last
// chunk, which also receives the len(items)%n remaining items. The
// remainder is not distributed, so the last chunk may be up to n-1
// items larger than the others.
//
// When n exceeds len(items), the leading chunks are empty. Split
// returns an InvalidChunkCount error if n < 1 or n > MaxChunks.
//
// The chunks share no backing storage with each other: appending to
// one never overwrites another.
func Split[T any](items []T, n int) ([][]T, error) {
	if n < 1 || n > MaxChunks {
		return nil, Errorf(InvalidChunkCount, "Invalid chunk count: %d (must be between 1 and %d)", n, MaxChunks)
	}
	size := len(items) / n
	chunks := make([][]T, n)
	for i := range chunks {
		lo, hi := i*size, (i+1)*size
		if i == n-1 {
			hi = len(items)
		}
		chunks[i] = items[lo:hi:hi]
	}
	return chunks, nil
}
