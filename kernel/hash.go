// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"math/rand"

	"github.com/grailbio/bigjob"
	"github.com/spaolacci/murmur3"
)

const (
	hashBlockSize = 1000
	// maxDifficulty keeps 10^difficulty within a uint64.
	maxDifficulty = 18
)

// cryptoHash hashes a fixed random block once per iteration, salted
// by the iteration number, and counts the hashes that are divisible
// by 10^difficulty.
func cryptoHash(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	iterations, err := bounded(p, "iterations", 100000, maxHashes)
	if err != nil {
		return nil, err
	}
	difficulty := p.Int("difficulty", 1)
	if difficulty < 0 || difficulty > maxDifficulty {
		return nil, bigjob.Errorf(bigjob.InvalidInput,
			"Invalid payload: difficulty must be between 0 and %d, got %d", maxDifficulty, difficulty)
	}
	modulus := uint64(1)
	for i := 0; i < difficulty; i++ {
		modulus *= 10
	}
	data := make([]byte, hashBlockSize)
	rand.New(rand.NewSource(seed(p, 1))).Read(data)

	counts := make([]int, dev.Procs())
	dev.Split(iterations, func(shard, lo, hi int) error {
		var n int
		for i := lo; i < hi; i++ {
			if uint64(murmur3.Sum32WithSeed(data, uint32(i+1)))%modulus == 0 {
				n++
			}
		}
		counts[shard] = n
		return nil
	})
	if err := dev.Sync(); err != nil {
		return nil, err
	}
	var valid int
	for _, n := range counts {
		valid += n
	}
	return bigjob.NewResult("Crypto hashing completed").
		Set("iterations", iterations).
		Set("valid_hashes", valid).
		Set("difficulty", difficulty).
		Set(bigjob.ValueKey, valid), nil
}
