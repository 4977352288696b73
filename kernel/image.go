// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"math/rand"

	"github.com/grailbio/bigjob"
	"gonum.org/v1/gonum/floats"
)

const imageChannels = 3

// imageFilter repeatedly blurs a synthetic image with a 3x3 box
// kernel, zero padded at the borders. Channels are filtered
// independently.
func imageFilter(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	size, err := bounded(p, "imageSize", 1024, maxImageSize)
	if err != nil {
		return nil, err
	}
	iterations, err := bounded(p, "iterations", 5, maxIterations)
	if err != nil {
		return nil, err
	}
	r := rand.New(rand.NewSource(seed(p, 1)))
	var (
		image     [imageChannels][]float64
		processed [imageChannels][]float64
	)
	for c := range image {
		image[c] = make([]float64, size*size)
		processed[c] = make([]float64, size*size)
		for i := range image[c] {
			image[c][i] = r.NormFloat64()
		}
	}
	for i := 0; i < iterations; i++ {
		for c := range image {
			src, dst := image[c], processed[c]
			dev.Split(size, func(_, lo, hi int) error {
				boxBlur(dst, src, size, lo, hi)
				return nil
			})
		}
		if err := dev.Sync(); err != nil {
			return nil, err
		}
		image, processed = processed, image
	}
	var total float64
	for c := range image {
		total += floats.Sum(image[c])
	}
	mean := bigjob.Round(total/float64(imageChannels*size*size), 6)
	return bigjob.NewResult("Image processing completed").
		Set("image_size", size).
		Set("iterations", iterations).
		Set("mean_intensity", mean).
		Set(bigjob.ValueKey, mean), nil
}

// boxBlur computes rows [lo, hi) of the blurred square image src
// into dst.
func boxBlur(dst, src []float64, size, lo, hi int) {
	for y := lo; y < hi; y++ {
		for x := 0; x < size; x++ {
			var acc float64
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= size {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= size {
						continue
					}
					acc += src[yy*size+xx]
				}
			}
			dst[y*size+x] = acc / 9
		}
	}
}
