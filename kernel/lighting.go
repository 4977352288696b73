// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"
	"math/rand"

	"github.com/grailbio/bigjob"
	"gonum.org/v1/gonum/floats"
)

// lightField is the side of the square patch sampled for each light.
const lightField = 100

// computeLighting accumulates the contribution of each light source
// over a patch of randomly oriented surface samples.
func computeLighting(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	lights := p.List("lightSources", nil)
	base := randomSeed(p)
	intensities := make([]float64, len(lights))
	fields := make([][]float64, len(lights))
	for i, l := range lights {
		i := i
		intensities[i] = 1
		if m, ok := l.(map[string]interface{}); ok {
			intensities[i] = bigjob.Payload(m).Float("intensity", 1)
		}
		intensity := intensities[i]
		field := make([]float64, lightField*lightField*3)
		fields[i] = field
		dev.Go(func() error {
			r := rand.New(rand.NewSource(base + int64(i)))
			for j := range field {
				field[j] = intensity * r.Float64()
			}
			return nil
		})
	}
	if err := dev.Sync(); err != nil {
		return nil, err
	}
	luminance := make([]float64, lightField*lightField*3)
	for _, f := range fields {
		floats.Add(luminance, f)
	}
	total := bigjob.Round(floats.Sum(intensities), 3)
	return bigjob.NewResult(fmt.Sprintf("Lighting computed for %d light sources", len(lights))).
		Set("totalIntensity", total).
		Set("meanLuminance", bigjob.Round(floats.Sum(luminance)/float64(len(luminance)), 6)).
		Set("lightCount", len(lights)).
		Set(bigjob.ValueKey, total), nil
}
