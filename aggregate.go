// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigjob

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mode is an aggregation mode: the reduction used to combine chunk
// results into a final value.
type Mode int

const (
	// Sum is the arithmetic sum. The sum of no values is 0.
	Sum Mode = iota
	// Mean is the arithmetic mean. The mean of no values is an
	// EmptyAggregationSet error.
	Mean
	// Min is the smallest value.
	Min
	// Max is the largest value.
	Max

	maxMode
)

var modes = [...]string{
	Sum:  "sum",
	Mean: "mean",
	Min:  "min",
	Max:  "max",
}

// String returns the mode's name.
func (m Mode) String() string {
	if m < 0 || m >= maxMode {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modes[m]
}

// ParseMode returns the mode with the given name. Unknown names are an
// UnsupportedOperation error; they are never mapped to a default.
func ParseMode(name string) (Mode, error) {
	for m, s := range modes {
		if s == name {
			return Mode(m), nil
		}
	}
	return 0, Errorf(UnsupportedOperation, "Unsupported aggregation: %s", name)
}

// Aggregate reduces results with the provided mode. Nil entries
// (results of chunks that failed or were never computed) are dropped
// before reduction, so aggregation proceeds over whatever subset of
// results is present.
func Aggregate(results []*float64, mode Mode) (float64, error) {
	values := make([]float64, 0, len(results))
	for _, r := range results {
		if r != nil {
			values = append(values, *r)
		}
	}
	return AggregateValues(values, mode)
}

// AggregateValues reduces values with the provided mode.
func AggregateValues(values []float64, mode Mode) (float64, error) {
	if mode < 0 || mode >= maxMode {
		return 0, Errorf(UnsupportedOperation, "Unsupported aggregation: %s", mode)
	}
	if mode == Sum {
		return floats.Sum(values), nil
	}
	if len(values) == 0 {
		return 0, Errorf(EmptyAggregationSet, "Cannot compute %s of an empty result set", mode)
	}
	switch mode {
	case Mean:
		return stat.Mean(values, nil), nil
	case Min:
		return floats.Min(values), nil
	default:
		return floats.Max(values), nil
	}
}
