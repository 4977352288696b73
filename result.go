// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigjob

import (
	"encoding/json"
	"math"
	"time"
)

const (
	// SummaryKey is the result field holding the human readable summary.
	SummaryKey = "result"
	// DeviceKey is the result field holding the device tag.
	DeviceKey = "device"
	// ValueKey is the result field holding the operation's aggregable
	// numeric value.
	ValueKey = "value"
	// DefaultTimeKey is the result field holding elapsed seconds for
	// operations that do not name their own.
	DefaultTimeKey = "time"
)

// A Result is the outcome of exactly one operation. Every result
// carries a summary, the operation specific fields (including echoed
// input parameters), the device it ran on, and the elapsed
// computation time. Results render to JSON as a single flat object:
//
//	{"result": summary, ...fields..., "device": tag, timeKey: seconds}
type Result struct {
	Summary string
	Fields  map[string]interface{}
	Device  DeviceKind
	Elapsed time.Duration
	// TimeKey names the field carrying Elapsed. DefaultTimeKey is used
	// if it is empty.
	TimeKey string
}

// NewResult returns a result with the provided summary.
func NewResult(summary string) *Result {
	return &Result{Summary: summary, Fields: make(map[string]interface{})}
}

// Set sets a field and returns the result, so that calls may be
// chained.
func (r *Result) Set(key string, value interface{}) *Result {
	if r.Fields == nil {
		r.Fields = make(map[string]interface{})
	}
	r.Fields[key] = value
	return r
}

// Get returns the value of a field.
func (r *Result) Get(key string) (interface{}, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Value returns the result's aggregable value, if it has one.
func (r *Result) Value() (float64, bool) {
	if r == nil {
		return 0, false
	}
	return toFloat(r.Fields[ValueKey])
}

// Seconds returns the elapsed time in seconds, rounded to millisecond
// precision.
func (r *Result) Seconds() float64 {
	return Round(r.Elapsed.Seconds(), 3)
}

// Map returns the flattened representation of the result.
func (r *Result) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Fields)+3)
	for k, v := range r.Fields {
		m[k] = v
	}
	key := r.TimeKey
	if key == "" {
		key = DefaultTimeKey
	}
	m[SummaryKey] = r.Summary
	m[DeviceKey] = r.Device.String()
	m[key] = r.Seconds()
	return m
}

// MarshalJSON implements json.Marshaler.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
