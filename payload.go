// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigjob

import (
	"encoding/json"
	"math"
)

// A Payload is the loosely typed record handed to a worker. It is
// usually decoded from JSON, so numbers are float64, arrays are
// []interface{}, and objects are map[string]interface{}. The only
// mandatory field is "operation"; all other fields are operation
// parameters that are defaulted when absent.
//
// Payloads are treated as immutable once handed to an executor.
type Payload map[string]interface{}

// OperationKey is the payload field naming the operation.
const OperationKey = "operation"

// Operation returns the payload's operation name. It returns an
// InvalidInput error if the field is missing or is not a string.
func (p Payload) Operation() (string, error) {
	v, ok := p[OperationKey]
	if !ok {
		return "", Errorf(InvalidInput, "Invalid payload: missing %q field", OperationKey)
	}
	name, ok := v.(string)
	if !ok {
		return "", Errorf(InvalidInput, "Invalid payload: %q must be a string, got %T", OperationKey, v)
	}
	return name, nil
}

// Has tells whether the payload contains the key.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// With returns a shallow copy of p with key set to value.
func (p Payload) With(key string, value interface{}) Payload {
	q := make(Payload, len(p)+1)
	for k, v := range p {
		q[k] = v
	}
	q[key] = value
	return q
}

// Float returns the numeric value of key, or def.
func (p Payload) Float(key string, def float64) float64 {
	if f, ok := toFloat(p[key]); ok {
		return f
	}
	return def
}

// Int returns the integral value of key, or def. Non-integral
// numbers are truncated.
func (p Payload) Int(key string, def int) int {
	f, ok := toFloat(p[key])
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int(f)
}

// Text returns the string value of key, or def.
func (p Payload) Text(key string, def string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return def
}

// List returns the array value of key, or def.
func (p Payload) List(key string, def []interface{}) []interface{} {
	switch v := p[key].(type) {
	case []interface{}:
		return v
	case []float64:
		l := make([]interface{}, len(v))
		for i := range v {
			l[i] = v[i]
		}
		return l
	}
	return def
}

// Object returns the object value of key, or def.
func (p Payload) Object(key string, def map[string]interface{}) map[string]interface{} {
	switch v := p[key].(type) {
	case map[string]interface{}:
		return v
	case Payload:
		return v
	}
	return def
}

// Floats returns the numeric array value of key. Non-numeric
// elements are skipped. If the key is absent, Floats returns def.
func (p Payload) Floats(key string, def []float64) []float64 {
	if v, ok := p[key].([]float64); ok {
		return v
	}
	list, ok := p[key].([]interface{})
	if !ok {
		return def
	}
	out := make([]float64, 0, len(list))
	for _, e := range list {
		if f, ok := toFloat(e); ok {
			out = append(out, f)
		}
	}
	return out
}

// Ints returns the integral array value of key, or def.
func (p Payload) Ints(key string, def []int) []int {
	if !p.Has(key) {
		return def
	}
	fs := p.Floats(key, nil)
	if fs == nil {
		return def
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(f)
	}
	return out
}

// Strings returns the string array value of key, or def. Non-string
// elements are skipped.
func (p Payload) Strings(key string, def []string) []string {
	if v, ok := p[key].([]string); ok {
		return v
	}
	list, ok := p[key].([]interface{})
	if !ok {
		return def
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Seed returns the payload's "seed" field and whether it was set.
func (p Payload) Seed() (int64, bool) {
	f, ok := toFloat(p["seed"])
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
