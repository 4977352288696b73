// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package jobio implements the textual boundary of bigjob: it decodes
// request arguments and writes responses. Every response is exactly
// one line of JSON, either a success body or an object of the form
//
//	{"error": "<message>"}
//
// Respond guarantees this even when the downstream call fails or
// panics.
package jobio

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/bigjob"
)

// ErrorKey is the field of an error response.
const ErrorKey = "error"

// errNullResult is returned for downstream calls that produce neither
// a value nor an error.
var errNullResult = bigjob.Errorf(bigjob.NullResult, "Task returned null result")

func invalid(format string, v ...interface{}) error {
	return bigjob.Errorf(bigjob.InvalidInput, "Invalid payload: "+format, v...)
}

// DecodePayload decodes a JSON object into a payload.
func DecodePayload(arg string) (bigjob.Payload, error) {
	var p bigjob.Payload
	if err := json.Unmarshal([]byte(arg), &p); err != nil {
		return nil, invalid("%v", err)
	}
	if p == nil {
		return nil, invalid("expected a JSON object")
	}
	return p, nil
}

// DecodeItems decodes a JSON array. The array's elements are kept
// undecoded so that they may be split and re-encoded verbatim.
func DecodeItems(arg string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(arg), &items); err != nil {
		return nil, invalid("%v", err)
	}
	if items == nil {
		return nil, invalid("expected a JSON array")
	}
	return items, nil
}

// DecodeResults decodes a JSON array of numbers. Null elements decode
// to nil.
func DecodeResults(arg string) ([]*float64, error) {
	var results []*float64
	if err := json.Unmarshal([]byte(arg), &results); err != nil {
		return nil, invalid("%v", err)
	}
	if results == nil {
		return nil, invalid("expected a JSON array")
	}
	return results, nil
}

// ParseChunkCount parses a chunk count. Counts that are well-formed
// integers but out of range are reported by bigjob.Split.
func ParseChunkCount(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, invalid("chunk count %q is not an integer", arg)
	}
	return n, nil
}

// Respond calls fn and writes its outcome to w as a single line of
// JSON. Errors, including panics in fn and values that cannot be
// encoded, are written as error responses. A nil value without an
// error is written as a NullResult error. Respond returns the error
// that was reported, if any, and any error writing to w.
func Respond(w io.Writer, fn func() (interface{}, error)) (reported, werr error) {
	var b []byte
	v, err := call(fn)
	if err == nil && isNil(v) {
		err = errNullResult
	}
	if err == nil {
		b, err = json.Marshal(v)
		if err != nil {
			err = fmt.Errorf("encode result: %v", err)
		}
	}
	if err != nil {
		b = Error(err)
	}
	_, werr = w.Write(append(b, '\n'))
	return err, werr
}

// Error returns the error response body for err.
func Error(err error) []byte {
	b, _ := json.Marshal(map[string]string{ErrorKey: err.Error()})
	return b
}

func call(fn func() (interface{}, error)) (v interface{}, err error) {
	defer func() {
		if e := recover(); e != nil {
			v, err = nil, fmt.Errorf("%v", e)
		}
	}()
	return fn()
}

// isNil tells whether v is nil or a nil *bigjob.Result.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	r, ok := v.(*bigjob.Result)
	return ok && r == nil
}
