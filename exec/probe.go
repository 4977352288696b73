// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/grailbio/base/errors"
)

// DeviceEnv is the environment variable consulted by EnvProber. It
// may be set to "accelerated" or "fallback" to override detection.
const DeviceEnv = "BIGJOB_DEVICE"

// DeviceMode selects how an executor chooses the device for each
// invocation.
type DeviceMode int

const (
	// Auto probes for an accelerator and falls back if there is none.
	Auto DeviceMode = iota
	// RequireAccelerated asks for an accelerated device. If the probe
	// reports none, the invocation still runs on a fallback device.
	RequireAccelerated
	// ForceFallback always uses a fallback device without probing.
	ForceFallback
)

var deviceModes = [...]string{
	Auto:               "auto",
	RequireAccelerated: "accelerated",
	ForceFallback:      "fallback",
}

// String returns the mode's name, as accepted by ParseDeviceMode.
func (m DeviceMode) String() string {
	if m < 0 || int(m) >= len(deviceModes) {
		return fmt.Sprintf("devicemode(%d)", int(m))
	}
	return deviceModes[m]
}

// ParseDeviceMode returns the mode with the provided name. The empty
// name is Auto.
func ParseDeviceMode(name string) (DeviceMode, error) {
	if name == "" {
		return Auto, nil
	}
	for m, n := range deviceModes {
		if n == name {
			return DeviceMode(m), nil
		}
	}
	return Auto, errors.E(errors.Invalid, fmt.Sprintf("unknown device mode %q", name))
}

// A Prober reports whether an accelerated device is available.
type Prober interface {
	Available() bool
}

// ProberFunc adapts a function to a Prober.
type ProberFunc func() bool

// Available implements Prober.
func (f ProberFunc) Available() bool { return f() }

// EnvProber reports an accelerator when DeviceEnv is "accelerated",
// none when it is "fallback", and otherwise when more than one CPU is
// available to the process.
var EnvProber Prober = ProberFunc(func() bool {
	switch strings.ToLower(os.Getenv(DeviceEnv)) {
	case "accelerated":
		return true
	case "fallback":
		return false
	}
	return runtime.NumCPU() > 1
})

// probe calls p, treating a panicking prober as reporting no
// accelerator.
func probe(p Prober) (ok bool) {
	defer func() {
		if e := recover(); e != nil {
			ok = false
		}
	}()
	return p.Available()
}
