// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"math/rand"

	"github.com/grailbio/bigjob"
)

// simulationBlock is the number of samples drawn from each random
// stream. Streams are seeded per block so that the estimate does not
// depend on how blocks are distributed over the device.
const simulationBlock = 1 << 16

// monteCarlo estimates pi from the fraction of uniform samples in
// [-1,1]x[-1,1] that fall inside the unit circle.
func monteCarlo(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	simulations, err := bounded(p, "simulations", 1000000, maxSimulations)
	if err != nil {
		return nil, err
	}
	base := randomSeed(p)
	nblock := (simulations + simulationBlock - 1) / simulationBlock
	inside := make([]int, nblock)
	dev.Split(nblock, func(_, lo, hi int) error {
		for b := lo; b < hi; b++ {
			r := rand.New(rand.NewSource(base + int64(b)))
			n := simulationBlock
			if b == nblock-1 {
				n = simulations - b*simulationBlock
			}
			var count int
			for i := 0; i < n; i++ {
				x, y := 2*r.Float64()-1, 2*r.Float64()-1
				if x*x+y*y <= 1 {
					count++
				}
			}
			inside[b] = count
		}
		return nil
	})
	if err := dev.Sync(); err != nil {
		return nil, err
	}
	var total int
	for _, n := range inside {
		total += n
	}
	pi := bigjob.Round(4*float64(total)/float64(simulations), 6)
	return bigjob.NewResult("Monte Carlo simulation completed").
		Set("simulations", simulations).
		Set("pi_estimate", pi).
		Set(bigjob.ValueKey, pi), nil
}
