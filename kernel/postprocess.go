// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"math"
	"strings"

	"github.com/grailbio/bigjob"
)

type effect struct {
	passes int
	pass   func(x float64) float64
}

// effects lists the post-processing effects that do work. Other
// effects are echoed in the result but cost nothing.
var effects = map[string]effect{
	"bloom":         {50, func(x float64) float64 { return math.Exp(-x * 0.1) }},
	"motion_blur":   {30, func(x float64) float64 { return math.Sqrt(x+1) * math.Log(x+1) }},
	"color_grading": {40, func(x float64) float64 { return math.Pow(x*0.1, 2.2) }},
}

func postProcess(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	applied := p.Strings("effects", nil)
	if applied == nil {
		applied = []string{}
	}
	for _, name := range applied {
		e, ok := effects[name]
		if !ok {
			continue
		}
		dev.Go(func() error {
			spin(0, e.passes, e.pass)
			return nil
		})
	}
	if err := dev.Sync(); err != nil {
		return nil, err
	}
	return bigjob.NewResult("Post-processing applied: "+strings.Join(applied, ", ")).
		Set("effectsApplied", applied).
		Set(bigjob.ValueKey, len(applied)), nil
}
