// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/bigjob/jobflags"
	"github.com/grailbio/testutil"
)

func newFlags(t *testing.T, dir string, args ...string) *jobflags.Flags {
	t.Helper()
	fs := flag.NewFlagSet("bigjob", flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	fl := new(jobflags.Flags)
	jobflags.RegisterFlags(fs, fl, "")
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	// Keep tests independent of the user's profile.
	fl.Config = filepath.Join(dir, "missing.yaml")
	return fl
}

func runCommand(t *testing.T, fl *jobflags.Flags, args ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	code := run(fl, args, &out)
	line := out.String()
	if strings.Count(line, "\n") != 1 || !strings.HasSuffix(line, "\n") {
		t.Fatalf("expected a single line of output, got %q", line)
	}
	return strings.TrimSpace(line), code
}

func decode(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return v
}

func TestUsageErrors(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "bigjob")
	defer cleanup()
	fl := newFlags(t, dir)
	for _, c := range []struct {
		args []string
		err  string
	}{
		{nil, "No command provided"},
		{[]string{"frobnicate"}, "Unknown command: frobnicate"},
		{[]string{"execute"}, "No payload provided"},
		{[]string{"run"}, "No payload provided"},
		{[]string{"split", "[1,2]"}, "No chunk count provided"},
		{[]string{"aggregate"}, "No payload provided"},
		{[]string{"aggregate", "[1,2]"}, "No aggregation mode provided"},
	} {
		line, code := runCommand(t, fl, c.args...)
		if got, want := code, 2; got != want {
			t.Errorf("%v: got %v, want %v", c.args, got, want)
		}
		if got, want := decode(t, line)["error"], c.err; got != want {
			t.Errorf("%v: got %v, want %v", c.args, got, want)
		}
	}
}

func TestExecute(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "bigjob")
	defer cleanup()
	fl := newFlags(t, dir, "-device=fallback")
	line, code := runCommand(t, fl, "execute", `{"operation":"sum","numbers":[1,2,3]}`)
	if got, want := code, 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	v := decode(t, line)
	if got, want := v["result"], "Sum of 3 numbers"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := v["value"], 6.0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := v["device"], "fallback"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	line, code = runCommand(t, fl, "execute", `{"operation":"teleport"}`)
	if got, want := code, 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, ok := decode(t, line)["error"]; !ok {
		t.Errorf("expected an error, got %s", line)
	}

	line, _ = runCommand(t, fl, "execute", `not json`)
	if msg, _ := decode(t, line)["error"].(string); !strings.HasPrefix(msg, "Invalid payload") {
		t.Errorf("got %q, want invalid payload error", msg)
	}
}

func TestSplit(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "bigjob")
	defer cleanup()
	fl := newFlags(t, dir)
	line, code := runCommand(t, fl, "split", `[1,2,3,4,5]`, "2")
	if got, want := code, 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := line, `[[1,2],[3,4,5]]`; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	line, _ = runCommand(t, fl, "split", `[1,2]`, "0")
	if _, ok := decode(t, line)["error"]; !ok {
		t.Errorf("expected an error, got %s", line)
	}
}

func TestAggregate(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "bigjob")
	defer cleanup()
	fl := newFlags(t, dir)
	for _, c := range []struct {
		mode, want string
	}{
		{"sum", "10"},
		{"mean", "2.5"},
		{"min", "1"},
		{"max", "4"},
	} {
		line, code := runCommand(t, fl, "aggregate", `[1,2,null,3,4]`, c.mode)
		if got, want := code, 0; got != want {
			t.Errorf("%s: got %v, want %v", c.mode, got, want)
		}
		if got, want := line, c.want; got != want {
			t.Errorf("%s: got %v, want %v", c.mode, got, want)
		}
	}
	line, _ := runCommand(t, fl, "aggregate", `[null]`, "mean")
	if _, ok := decode(t, line)["error"]; !ok {
		t.Errorf("expected an error, got %s", line)
	}
	line, _ = runCommand(t, fl, "aggregate", `[1]`, "median")
	if _, ok := decode(t, line)["error"]; !ok {
		t.Errorf("expected an error, got %s", line)
	}
}

func TestRun(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "bigjob")
	defer cleanup()
	output := filepath.Join(dir, "out.json")
	fl := newFlags(t, dir, "-chunks=3", "-o="+output)
	line, code := runCommand(t, fl, "run", `{"operation":"sum","numbers":[1,2,3,4,5,6,7,8,9,10]}`)
	if got, want := code, 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	v := decode(t, line)
	if got, want := v["result"], 55.0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if id, _ := v["id"].(string); id == "" {
		t.Errorf("missing job id in %s", line)
	}
	b, err := ioutil.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(b)), line; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOversizedRequests(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "bigjob")
	defer cleanup()
	for _, c := range []struct {
		flags []string
		args  []string
		err   string
	}{
		{nil, []string{"execute", `{"operation":"matrix_mult","matrixSize":3000000,"iterations":1}`},
			"Invalid payload: matrixSize must be between 1 and 2048"},
		{nil, []string{"execute", `{"operation":"image_filter","imageSize":1e9}`},
			"Invalid payload: imageSize must be between 1 and 2048"},
		{nil, []string{"execute", `{"operation":"neural_train","layers":[64,100000000]}`},
			"Invalid payload: layer sizes must be between 1 and 1024"},
		{[]string{"-chunks=1000000000"}, []string{"run", `{"operation":"sum","numbers":[1,2,3]}`},
			"Invalid chunk count: 1000000000"},
		{nil, []string{"split", `[1,2,3]`, "1000000000000"},
			"Invalid chunk count: 1000000000000"},
	} {
		fl := newFlags(t, dir, c.flags...)
		line, code := runCommand(t, fl, c.args...)
		if got, want := code, 0; got != want {
			t.Errorf("%v: got %v, want %v", c.args, got, want)
		}
		v := decode(t, line)
		if msg, _ := v["error"].(string); !strings.HasPrefix(msg, c.err) || len(v) != 1 {
			t.Errorf("%v: got %v, want error with prefix %q", c.args, v, c.err)
		}
	}
}
