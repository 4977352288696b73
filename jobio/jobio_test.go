// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package jobio

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/grailbio/bigjob"
	"github.com/grailbio/testutil/expect"
)

// respond runs Respond and checks that exactly one line of valid JSON
// was written. It returns the decoded line.
func respond(t *testing.T, fn func() (interface{}, error)) map[string]interface{} {
	t.Helper()
	var b bytes.Buffer
	if _, err := Respond(&b, fn); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if strings.Count(out, "\n") != 1 || !strings.HasSuffix(out, "\n") {
		t.Fatalf("not a single line: %q", out)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	return m
}

func TestRespond(t *testing.T) {
	m := respond(t, func() (interface{}, error) {
		return bigjob.NewResult("ok").Set("count", 2), nil
	})
	expect.EQ(t, m["result"], "ok")
	expect.EQ(t, m["count"], 2.0)

	m = respond(t, func() (interface{}, error) {
		return nil, bigjob.Errorf(bigjob.UnsupportedOperation, "Unsupported operation: warp")
	})
	expect.EQ(t, m, map[string]interface{}{"error": "Unsupported operation: warp"})

	m = respond(t, func() (interface{}, error) { return nil, nil })
	expect.EQ(t, m["error"], "Task returned null result")

	m = respond(t, func() (interface{}, error) {
		var r *bigjob.Result
		return r, nil
	})
	expect.EQ(t, m["error"], "Task returned null result")

	m = respond(t, func() (interface{}, error) { panic("kaboom") })
	expect.EQ(t, m["error"], "kaboom")

	m = respond(t, func() (interface{}, error) { return make(chan int), nil })
	if msg, _ := m["error"].(string); !strings.HasPrefix(msg, "encode result:") {
		t.Errorf("got %v", m)
	}
}

func TestRespondScalar(t *testing.T) {
	var b bytes.Buffer
	reported, err := Respond(&b, func() (interface{}, error) { return 20.0, nil })
	if reported != nil || err != nil {
		t.Fatal(reported, err)
	}
	if got, want := b.String(), "20\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRespondReportsError(t *testing.T) {
	want := errors.New("downstream")
	var b bytes.Buffer
	reported, err := Respond(&b, func() (interface{}, error) { return nil, want })
	if err != nil {
		t.Fatal(err)
	}
	if reported != want {
		t.Errorf("got %v, want %v", reported, want)
	}
}

func TestMalformed(t *testing.T) {
	for _, decode := range []func() error{
		func() error { _, err := DecodePayload(`{"operation": `); return err },
		func() error { _, err := DecodePayload(`null`); return err },
		func() error { _, err := DecodePayload(`[1, 2]`); return err },
		func() error { _, err := DecodeItems(`{"a": 1}`); return err },
		func() error { _, err := DecodeItems(`null`); return err },
		func() error { _, err := DecodeResults(`[1, "two"]`); return err },
		func() error { _, err := ParseChunkCount("three"); return err },
	} {
		err := decode()
		if !bigjob.Is(bigjob.InvalidInput, err) {
			t.Errorf("got %v, want InvalidInput", err)
			continue
		}
		if !strings.HasPrefix(err.Error(), "Invalid payload: ") {
			t.Errorf("bad message %q", err)
		}
		m := respond(t, func() (interface{}, error) { return nil, err })
		if len(m) != 1 || m["error"] != err.Error() {
			t.Errorf("got %v", m)
		}
	}
}

func TestDecode(t *testing.T) {
	p, err := DecodePayload(`{"operation": "sum", "numbers": [1, 2]}`)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := p.Floats("numbers", nil), []float64{1, 2}; len(got) != 2 || got[1] != want[1] {
		t.Errorf("got %v, want %v", got, want)
	}
	items, err := DecodeItems(`[1, "a", {"b": null}]`)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(items[2]), `{"b": null}`; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	results, err := DecodeResults(`[10, null, 30]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[1] != nil || *results[2] != 30 {
		t.Errorf("got %v", results)
	}
	n, err := ParseChunkCount(" 3 ")
	if err != nil || n != 3 {
		t.Errorf("got %v, %v, want 3", n, err)
	}
	if n, err := ParseChunkCount("0"); err != nil || n != 0 {
		t.Errorf("got %v, %v, want 0", n, err)
	}
}
