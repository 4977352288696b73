// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package kernel provides the operation kernels executed by bigjob
// workers. Each bigjob.Op is bound to exactly one kernel through a
// static table; Lookup retrieves it. Kernels are pure functions of
// their payload and device, apart from the explicitly randomized
// kernels, which are deterministic only when the payload carries a
// seed.
package kernel

import (
	"time"

	"github.com/grailbio/base/must"
	"github.com/grailbio/bigjob"
)

// A Func computes the result of an operation. Funcs may dispatch work
// on the provided device; the caller synchronizes the device before
// measuring elapsed time.
type Func func(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error)

// A Kernel is the implementation of an Op.
type Kernel struct {
	// Run computes the operation.
	Run Func
	// TimeKey is the result field that carries elapsed time.
	TimeKey string
	// Randomized tells whether the kernel samples randomness when the
	// payload does not provide a seed.
	Randomized bool
	// Chunked tells whether the kernel's "numbers" field may be split
	// across invocations whose values are then aggregated.
	Chunked bool
}

var kernels = [...]Kernel{
	bigjob.OpSum:             {Run: sum, TimeKey: "time", Chunked: true},
	bigjob.OpMatrixMult:      {Run: matrixMult, TimeKey: "time"},
	bigjob.OpImageFilter:     {Run: imageFilter, TimeKey: "time"},
	bigjob.OpNeuralTrain:     {Run: neuralTrain, TimeKey: "time"},
	bigjob.OpCryptoHash:      {Run: cryptoHash, TimeKey: "time"},
	bigjob.OpMonteCarlo:      {Run: monteCarlo, TimeKey: "time", Randomized: true},
	bigjob.OpRenderFrame:     {Run: renderFrame, TimeKey: "renderTime"},
	bigjob.OpComputeLighting: {Run: computeLighting, TimeKey: "computeTime", Randomized: true},
	bigjob.OpApplyShaders:    {Run: applyShaders, TimeKey: "shaderTime"},
	bigjob.OpPostProcess:     {Run: postProcess, TimeKey: "processTime"},
}

func init() {
	must.True(len(kernels) == int(bigjob.NumOp), "kernel table does not cover all ops")
	for op, k := range kernels {
		must.Truef(k.Run != nil, "no kernel for op %v", bigjob.Op(op))
	}
}

// Lookup returns the kernel for op.
func Lookup(op bigjob.Op) (Kernel, bool) {
	if op < 0 || int(op) >= len(kernels) {
		return Kernel{}, false
	}
	return kernels[op], true
}

// Limits on size parameters. They bound the memory an invocation may
// allocate, so that oversized requests fail with an error instead of
// exhausting the process.
const (
	maxMatrixSize  = 2048
	maxImageSize   = 2048
	maxIterations  = 1000
	maxBatchSize   = 1024
	maxLayerWidth  = 1024
	maxLayers      = 8
	maxEpochs      = 1000
	maxHashes      = 1 << 30
	maxSimulations = 1 << 30
	maxViewport    = 8192
	// maxRenderWork bounds objects*width*height for a frame.
	maxRenderWork = 1 << 34
)

// bounded returns the integer parameter key, defaulted to def, and
// fails unless it is between 1 and max.
func bounded(p bigjob.Payload, key string, def, max int) (int, error) {
	f := p.Float(key, float64(def))
	if f < 1 || f > float64(max) {
		return 0, bigjob.Errorf(bigjob.InvalidInput, "Invalid payload: %s must be between 1 and %d, got %v", key, max, f)
	}
	return int(f), nil
}

// seed returns the payload's seed, or def if it carries none.
func seed(p bigjob.Payload, def int64) int64 {
	if s, ok := p.Seed(); ok {
		return s
	}
	return def
}

// randomSeed returns the payload's seed, or a time-derived seed if it
// carries none.
func randomSeed(p bigjob.Payload) int64 {
	return seed(p, time.Now().UnixNano())
}

// spin evaluates f at each integer in [lo, hi). It stands in for
// shading work whose output is not part of the result.
func spin(lo, hi int, f func(x float64) float64) {
	var acc float64
	for i := lo; i < hi; i++ {
		acc += f(float64(i))
	}
	_ = acc
}
