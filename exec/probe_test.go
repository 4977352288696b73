// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"os"
	"testing"

	"github.com/grailbio/base/errors"
)

func TestParseDeviceMode(t *testing.T) {
	for _, mode := range []DeviceMode{Auto, RequireAccelerated, ForceFallback} {
		got, err := ParseDeviceMode(mode.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != mode {
			t.Errorf("got %v, want %v", got, mode)
		}
	}
	if got, err := ParseDeviceMode(""); err != nil || got != Auto {
		t.Errorf("got %v, %v, want auto", got, err)
	}
	if _, err := ParseDeviceMode("tpu"); !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want invalid", err)
	}
}

func TestEnvProber(t *testing.T) {
	defer os.Setenv(DeviceEnv, os.Getenv(DeviceEnv))
	os.Setenv(DeviceEnv, "accelerated")
	if !EnvProber.Available() {
		t.Error("expected accelerator")
	}
	os.Setenv(DeviceEnv, "FALLBACK")
	if EnvProber.Available() {
		t.Error("unexpected accelerator")
	}
}

func TestProbeRecovers(t *testing.T) {
	if probe(ProberFunc(func() bool { panic("boom") })) {
		t.Error("panicking prober reported an accelerator")
	}
	if !probe(ProberFunc(func() bool { return true })) {
		t.Error("prober result lost")
	}
}
