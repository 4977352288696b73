// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigjob

// An Op names an operation that a worker can perform. Ops form a
// closed set: every Op has exactly one implementation, registered in
// package kernel.
type Op int

const (
	// OpSum sums the payload's numbers.
	OpSum Op = iota
	// OpMatrixMult multiplies random square matrices.
	OpMatrixMult
	// OpImageFilter applies a box blur to a synthetic image.
	OpImageFilter
	// OpNeuralTrain trains a small fully connected network on
	// synthetic data.
	OpNeuralTrain
	// OpCryptoHash counts hashes that meet a difficulty target.
	OpCryptoHash
	// OpMonteCarlo estimates pi by sampling.
	OpMonteCarlo
	// OpRenderFrame renders a scene description to an SVG frame.
	OpRenderFrame
	// OpComputeLighting accumulates sampled light contributions.
	OpComputeLighting
	// OpApplyShaders simulates a shader pass.
	OpApplyShaders
	// OpPostProcess applies a list of post-processing effects.
	OpPostProcess

	// NumOp is the number of defined ops.
	NumOp
)

var opNames = [...]string{
	OpSum:             "sum",
	OpMatrixMult:      "matrix_mult",
	OpImageFilter:     "image_filter",
	OpNeuralTrain:     "neural_train",
	OpCryptoHash:      "crypto_hash",
	OpMonteCarlo:      "monte_carlo",
	OpRenderFrame:     "render_frame",
	OpComputeLighting: "compute_lighting",
	OpApplyShaders:    "apply_shaders",
	OpPostProcess:     "post_process",
}

var opsByName map[string]Op

func init() {
	opsByName = make(map[string]Op, NumOp)
	for op, name := range opNames {
		opsByName[name] = Op(op)
	}
}

// String returns the operation's wire name.
func (op Op) String() string {
	if op < 0 || op >= NumOp {
		return "unknown"
	}
	return opNames[op]
}

// ParseOp returns the Op with the provided wire name. Unknown names
// produce an UnsupportedOperation error carrying the name.
func ParseOp(name string) (Op, error) {
	op, ok := opsByName[name]
	if !ok {
		return 0, Errorf(UnsupportedOperation, "Unsupported operation: %s", name)
	}
	return op, nil
}

// Ops returns all defined ops in order.
func Ops() []Op {
	ops := make([]Op, NumOp)
	for i := range ops {
		ops[i] = Op(i)
	}
	return ops
}
