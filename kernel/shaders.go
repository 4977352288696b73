// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"
	"math"

	"github.com/grailbio/bigjob"
)

// shaderIterations gives the cost of each known shader model.
// Unknown shaders cost the same as the standard one.
var shaderIterations = map[string]int{
	"standard": 50,
	"pbr":      200,
	"toon":     100,
}

func applyShaders(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	shader := p.Text("shaderType", "standard")
	iterations, ok := shaderIterations[shader]
	if !ok {
		iterations = shaderIterations["standard"]
	}
	dev.Split(iterations, func(_, lo, hi int) error {
		spin(lo, hi, func(x float64) float64 { return math.Sin(x*0.1)*math.Cos(x*0.1) + math.Tan(x*0.01) })
		return nil
	})
	if err := dev.Sync(); err != nil {
		return nil, err
	}
	return bigjob.NewResult(fmt.Sprintf("%s shader applied successfully", shader)).
		Set("shaderType", shader).
		Set("iterations", iterations).
		Set(bigjob.ValueKey, iterations), nil
}
