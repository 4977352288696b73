// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"
	"math/rand"

	"github.com/grailbio/bigjob"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// maxSample is the largest corner of the product that is echoed in
// the result.
const maxSample = 4

func matrixMult(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	size, err := bounded(p, "matrixSize", 512, maxMatrixSize)
	if err != nil {
		return nil, err
	}
	iterations, err := bounded(p, "iterations", 10, maxIterations)
	if err != nil {
		return nil, err
	}
	r := rand.New(rand.NewSource(seed(p, 1)))
	a, b := randomDense(r, size, size), randomDense(r, size, size)
	c := mat.NewDense(size, size, nil)
	for i := 0; i < iterations; i++ {
		// Each range of rows of the product is computed independently.
		dev.Split(size, func(_, lo, hi int) error {
			c.Slice(lo, hi, 0, size).(*mat.Dense).Mul(a.Slice(lo, hi, 0, size), b)
			return nil
		})
		if err := dev.Sync(); err != nil {
			return nil, err
		}
	}
	n := size
	if n > maxSample {
		n = maxSample
	}
	sample := make([][]float64, n)
	for i := range sample {
		sample[i] = make([]float64, n)
		for j := range sample[i] {
			sample[i][j] = bigjob.Round(c.At(i, j), 3)
		}
	}
	data := c.RawMatrix().Data
	total := bigjob.Round(floats.Sum(data), 3)
	return bigjob.NewResult(fmt.Sprintf("Matrix multiplication completed - %dx%d matrices", size, size)).
		Set("sample_result", sample).
		Set("statistics", map[string]interface{}{
			"sum":  total,
			"mean": bigjob.Round(stat.Mean(data, nil), 3),
			"max":  bigjob.Round(floats.Max(data), 3),
			"min":  bigjob.Round(floats.Min(data), 3),
		}).
		Set("size", size).
		Set("iterations", iterations).
		Set(bigjob.ValueKey, total), nil
}

func randomDense(r *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}
