// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigjob

import (
	"encoding/json"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func decode(t *testing.T, s string) Payload {
	t.Helper()
	var p Payload
	assert.NoError(t, json.Unmarshal([]byte(s), &p))
	return p
}

func TestPayloadDefaults(t *testing.T) {
	p := decode(t, `{"operation": "matrix_mult", "matrixSize": 4, "name": 12, "layers": [8, 4], "effects": ["bloom", 3]}`)
	name, err := p.Operation()
	assert.NoError(t, err)
	expect.EQ(t, name, "matrix_mult")
	expect.EQ(t, p.Int("matrixSize", 512), 4)
	expect.EQ(t, p.Int("iterations", 10), 10)
	expect.EQ(t, p.Float("matrixSize", 0), 4.0)
	// Wrong types are defaulted rather than rejected.
	expect.EQ(t, p.Text("name", "none"), "none")
	expect.EQ(t, p.Ints("layers", nil), []int{8, 4})
	expect.EQ(t, p.Ints("missing", []int{1}), []int{1})
	expect.EQ(t, p.Strings("effects", nil), []string{"bloom"})
	if _, ok := p.Seed(); ok {
		t.Error("unexpected seed")
	}
}

func TestPayloadOperation(t *testing.T) {
	for _, s := range []string{`{}`, `{"operation": 3}`} {
		_, err := decode(t, s).Operation()
		if !Is(InvalidInput, err) {
			t.Errorf("%s: got %v, want InvalidInput", s, err)
		}
	}
}

func TestPayloadWith(t *testing.T) {
	p := Payload{"operation": "sum", "numbers": []interface{}{1.0, 2.0}}
	q := p.With("numbers", []interface{}{3.0})
	expect.EQ(t, p.Floats("numbers", nil), []float64{1, 2})
	expect.EQ(t, q.Floats("numbers", nil), []float64{3})
	expect.EQ(t, q.Text("operation", ""), "sum")
}
