// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package jobflags provides flag support for use by bigjob command
// line applications.
package jobflags

import (
	"flag"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/bigjob/exec"
)

// DeviceFlag is a flag.Value that selects an exec.DeviceMode.
type DeviceFlag struct {
	Mode exec.DeviceMode
}

// String implements flag.Value.String
func (d *DeviceFlag) String() string {
	return d.Mode.String()
}

// Set implements flag.Value.Set
func (d *DeviceFlag) Set(v string) error {
	mode, err := exec.ParseDeviceMode(v)
	if err != nil {
		return err
	}
	d.Mode = mode
	return nil
}

// Get implements flag.Getter.Get
func (d *DeviceFlag) Get() interface{} {
	return d.Mode
}

// Flags represents all of the flags that can be used to configure a
// bigjob command.
type Flags struct {
	Device        DeviceFlag
	Procs         int
	Parallelism   int
	Chunks        int
	Retries       int
	ChunkTimeout  time.Duration
	JobTimeout    time.Duration
	HTTPAddress   cmdutil.NetworkAddressFlag
	ConsoleStatus bool
	Config        string
	Output        string
	fs            *flag.FlagSet
	prefix        string
}

// Defaults represents default values for the supported flags.
type Defaults struct {
	Device        string
	Procs         int
	Parallelism   int
	Chunks        int
	Retries       int
	ChunkTimeout  time.Duration
	JobTimeout    time.Duration
	HTTPAddress   string
	ConsoleStatus bool
	Config        string
}

// DefaultConfig is the location of the configuration profile read
// when -config is not given.
var DefaultConfig = os.ExpandEnv("$HOME/.bigjob/config.yaml")

// RegisterFlags registers the bigjob command line flags with the
// supplied flag set. The flag names will be prefixed with the supplied
// prefix.
func RegisterFlags(fs *flag.FlagSet, fl *Flags, prefix string) {
	RegisterFlagsWithDefaults(fs, fl, prefix, Defaults{
		Device:      "auto",
		Procs:       runtime.GOMAXPROCS(0),
		Chunks:      exec.DefaultChunks,
		JobTimeout:  30 * time.Second,
		HTTPAddress: ":5001",
		Config:      DefaultConfig,
	})
}

// RegisterFlagsWithDefaults registers the bigjob command line flags
// with the supplied flag set and defaults. The flag names will be
// prefixed with the supplied prefix.
func RegisterFlagsWithDefaults(fs *flag.FlagSet, fl *Flags, prefix string, defaults Defaults) {
	fs.Var(&fl.Device, prefix+"device", "device selection: auto, accelerated or fallback")
	fl.Device.Set(defaults.Device)
	fs.IntVar(&fl.Procs, prefix+"procs", defaults.Procs, "number of concurrent work items on an accelerated device")
	fs.IntVar(&fl.Parallelism, prefix+"parallelism", defaults.Parallelism, "maximum number of chunks run concurrently, 0 runs all chunks of a job concurrently")
	fs.IntVar(&fl.Chunks, prefix+"chunks", defaults.Chunks, "number of chunks a job's numbers are split into")
	fs.IntVar(&fl.Retries, prefix+"retries", defaults.Retries, "number of times a failed chunk is retried")
	fs.DurationVar(&fl.ChunkTimeout, prefix+"chunk-timeout", defaults.ChunkTimeout, "maximum time spent on one chunk, 0 for no limit")
	fs.DurationVar(&fl.JobTimeout, prefix+"job-timeout", defaults.JobTimeout, "maximum time spent on one job, 0 for no limit")
	fs.Var(&fl.HTTPAddress, prefix+"http", "address of the job server")
	fl.HTTPAddress.Set(defaults.HTTPAddress)
	fl.HTTPAddress.Specified = false
	fs.BoolVar(&fl.ConsoleStatus, prefix+"console-status", defaults.ConsoleStatus, "print status to stderr")
	fs.StringVar(&fl.Config, prefix+"config", defaults.Config, "path of the YAML configuration profile")
	fs.StringVar(&fl.Output, prefix+"o", "", "also write the response of the run command to this path")
	fl.fs = fs
	fl.prefix = prefix
}

// FlagSet returns the flag set with which the flags were registered,
// and the prefix of their names.
func (fl *Flags) FlagSet() (*flag.FlagSet, string) {
	return fl.fs, fl.prefix
}

// Specified tells whether the named flag, without its prefix, was set on
// the command line.
func (fl *Flags) Specified(name string) bool {
	if fl.fs == nil {
		return false
	}
	var set bool
	fl.fs.Visit(func(f *flag.Flag) {
		if f.Name == fl.prefix+name {
			set = true
		}
	})
	return set
}

// Usage returns an appropriate io.Writer for printing out help/usage
// messages as per the underlying flag.Flagset.
func (fl *Flags) Usage() io.Writer {
	if fl.fs == nil {
		return os.Stderr
	}
	if wr := fl.fs.Output(); wr != nil {
		return wr
	}
	return os.Stderr
}

// Executor returns an executor configured by the flags.
func (fl *Flags) Executor() *exec.Executor {
	return &exec.Executor{Mode: fl.Device.Mode, Procs: fl.Procs}
}

// Runner returns a runner configured by the flags, running its
// invocations on e.
func (fl *Flags) Runner(e *exec.Executor) *exec.Runner {
	return &exec.Runner{
		Executor:     e,
		Parallelism:  fl.Parallelism,
		Retries:      fl.Retries,
		ChunkTimeout: fl.ChunkTimeout,
	}
}
