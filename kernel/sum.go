// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"

	"github.com/grailbio/bigjob"
	"gonum.org/v1/gonum/floats"
)

func sum(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	numbers := p.Floats("numbers", nil)
	partial := make([]float64, dev.Procs())
	dev.Split(len(numbers), func(i, lo, hi int) error {
		partial[i] = floats.Sum(numbers[lo:hi])
		return nil
	})
	if err := dev.Sync(); err != nil {
		return nil, err
	}
	return bigjob.NewResult(fmt.Sprintf("Sum of %d numbers", len(numbers))).
		Set("count", len(numbers)).
		Set(bigjob.ValueKey, floats.Sum(partial)), nil
}
