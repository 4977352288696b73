// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"math"
	"math/rand"

	"github.com/grailbio/bigjob"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	neuralInputs       = 784
	neuralClasses      = 10
	neuralBatchesEpoch = 10
	neuralRate         = 0.01
)

type layer struct {
	w *mat.Dense
	b []float64
}

type gradient struct {
	w mat.Dense
	b []float64
}

// neuralTrain trains a fully connected ReLU network with a softmax
// output on a fixed synthetic batch, using plain gradient descent.
func neuralTrain(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	batch, err := bounded(p, "batchSize", 64, maxBatchSize)
	if err != nil {
		return nil, err
	}
	epochs, err := bounded(p, "epochs", 5, maxEpochs)
	if err != nil {
		return nil, err
	}
	sizes := p.Ints("layers", []int{128, 64, 32})
	if len(sizes) > maxLayers {
		return nil, bigjob.Errorf(bigjob.InvalidInput, "Invalid payload: at most %d layers are supported, got %d", maxLayers, len(sizes))
	}
	for _, n := range sizes {
		if n < 1 || n > maxLayerWidth {
			return nil, bigjob.Errorf(bigjob.InvalidInput,
				"Invalid payload: layer sizes must be between 1 and %d, got %v", maxLayerWidth, sizes)
		}
	}
	r := rand.New(rand.NewSource(seed(p, 1)))

	var (
		net  []layer
		prev = neuralInputs
	)
	for _, n := range append(append([]int(nil), sizes...), neuralClasses) {
		w := randomDense(r, prev, n)
		w.Scale(math.Sqrt(2/float64(prev)), w)
		net = append(net, layer{w: w, b: make([]float64, n)})
		prev = n
	}
	x := randomDense(r, batch, neuralInputs)
	labels := make([]int, batch)
	for i := range labels {
		labels[i] = r.Intn(neuralClasses)
	}

	var loss float64
	grads := make([]gradient, len(net))
	for epoch := 0; epoch < epochs; epoch++ {
		for step := 0; step < neuralBatchesEpoch; step++ {
			pre, acts := forward(net, x)
			var dz *mat.Dense
			loss, dz = softmaxLoss(acts[len(acts)-1], labels)
			for i := len(net) - 1; i >= 0; i-- {
				g := &grads[i]
				g.w.Reset()
				g.w.Mul(acts[i].T(), dz)
				g.b = columnSums(dz)
				if i == 0 {
					break
				}
				var da mat.Dense
				da.Mul(dz, net[i].w.T())
				z := pre[i-1]
				da.Apply(func(r, c int, v float64) float64 {
					if z.At(r, c) <= 0 {
						return 0
					}
					return v
				}, &da)
				dz = &da
			}
			for i := range net {
				l, g := net[i], &grads[i]
				dev.Go(func() error {
					g.w.Scale(neuralRate, &g.w)
					l.w.Sub(l.w, &g.w)
					floats.AddScaled(l.b, -neuralRate, g.b)
					return nil
				})
			}
			if err := dev.Sync(); err != nil {
				return nil, err
			}
		}
	}
	loss = bigjob.Round(loss, 6)
	return bigjob.NewResult("Neural network training completed").
		Set("epochs", epochs).
		Set("batch_size", batch).
		Set("layers", sizes).
		Set("loss", loss).
		Set(bigjob.ValueKey, loss), nil
}

// forward returns the pre-activations and activations of each layer.
// acts[0] is the input; the last activation is the linear output.
func forward(net []layer, x *mat.Dense) (pre, acts []*mat.Dense) {
	acts = []*mat.Dense{x}
	for i, l := range net {
		z := new(mat.Dense)
		z.Mul(acts[i], l.w)
		rows, _ := z.Dims()
		for r := 0; r < rows; r++ {
			floats.Add(z.RawRowView(r), l.b)
		}
		pre = append(pre, z)
		if i == len(net)-1 {
			acts = append(acts, z)
			break
		}
		a := new(mat.Dense)
		a.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, z)
		acts = append(acts, a)
	}
	return pre, acts
}

// softmaxLoss returns the mean cross entropy loss of the logits with
// respect to labels, together with its gradient.
func softmaxLoss(logits *mat.Dense, labels []int) (float64, *mat.Dense) {
	rows, cols := logits.Dims()
	grad := mat.NewDense(rows, cols, nil)
	var loss float64
	for r := 0; r < rows; r++ {
		row := logits.RawRowView(r)
		g := grad.RawRowView(r)
		top := floats.Max(row)
		var z float64
		for c, v := range row {
			g[c] = math.Exp(v - top)
			z += g[c]
		}
		floats.Scale(1/z, g)
		loss -= math.Log(math.Max(g[labels[r]], 1e-300))
		g[labels[r]]--
		floats.Scale(1/float64(rows), g)
	}
	return loss / float64(rows), grad
}

func columnSums(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	sums := make([]float64, cols)
	for r := 0; r < rows; r++ {
		floats.Add(sums, m.RawRowView(r))
	}
	return sums
}
