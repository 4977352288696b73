// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package jobconfig provides a mechanism to configure bigjob commands
// from a shared YAML profile. By default the profile is read from
// $HOME/.bigjob/config.yaml; the -config flag names another. Values in
// the profile supply defaults for flags that were not given on the
// command line:
//
//	device: accelerated
//	parallelism: 4
//	retries: 2
//	chunk_timeout: 5s
package jobconfig

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bigjob/jobflags"
	"gopkg.in/yaml.v3"
)

// A Profile is the contents of a configuration file. Absent fields
// leave the corresponding flags at their defaults.
type Profile struct {
	Device        string `yaml:"device,omitempty"`
	Procs         int    `yaml:"procs,omitempty"`
	Parallelism   int    `yaml:"parallelism,omitempty"`
	Chunks        int    `yaml:"chunks,omitempty"`
	Retries       int    `yaml:"retries,omitempty"`
	ChunkTimeout  string `yaml:"chunk_timeout,omitempty"`
	JobTimeout    string `yaml:"job_timeout,omitempty"`
	HTTP          string `yaml:"http,omitempty"`
	ConsoleStatus *bool  `yaml:"console_status,omitempty"`
}

// Read reads a profile from path. If the file does not exist and
// required is false, Read returns an empty profile.
func Read(ctx context.Context, path string, required bool) (Profile, error) {
	var p Profile
	f, err := file.Open(ctx, path)
	if err != nil {
		if errors.Is(errors.NotExist, err) && !required {
			return p, nil
		}
		return p, errors.E(err, "jobconfig: open profile")
	}
	defer f.Close(ctx)
	b, err := ioutil.ReadAll(f.Reader(ctx))
	if err != nil {
		return p, errors.E(err, fmt.Sprintf("jobconfig: read %s", path))
	}
	return p, Decode(b, &p)
}

// Decode decodes a YAML profile. Unknown keys are an error.
func Decode(b []byte, p *Profile) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && err != io.EOF {
		return errors.E(errors.Invalid, "jobconfig: decode profile", err)
	}
	return nil
}

// settings returns the profile's values keyed by flag name.
func (p Profile) settings() map[string]string {
	s := make(map[string]string)
	put := func(name, value string) {
		if value != "" {
			s[name] = value
		}
	}
	num := func(name string, n int) {
		if n != 0 {
			s[name] = strconv.Itoa(n)
		}
	}
	put("device", p.Device)
	num("procs", p.Procs)
	num("parallelism", p.Parallelism)
	num("chunks", p.Chunks)
	num("retries", p.Retries)
	put("chunk-timeout", p.ChunkTimeout)
	put("job-timeout", p.JobTimeout)
	put("http", p.HTTP)
	if p.ConsoleStatus != nil {
		s["console-status"] = strconv.FormatBool(*p.ConsoleStatus)
	}
	return s
}

// Apply sets the flags in fl that were not given on the command line
// to the profile's values.
func (p Profile) Apply(fl *jobflags.Flags) error {
	fs, prefix := fl.FlagSet()
	if fs == nil {
		return errors.E(errors.Invalid, "jobconfig: flags are not registered")
	}
	for name, value := range p.settings() {
		if fl.Specified(name) {
			continue
		}
		if err := fs.Set(prefix+name, value); err != nil {
			return errors.E(errors.Invalid, fmt.Sprintf("jobconfig: %s: %q", name, value), err)
		}
	}
	return nil
}

// Parse reads the profile named by fl's -config flag and applies it
// to fl. The profile must exist if -config was given explicitly.
func Parse(ctx context.Context, fl *jobflags.Flags) error {
	p, err := Read(ctx, fl.Config, fl.Specified("config"))
	if err != nil {
		return err
	}
	log.Debug.Printf("jobconfig: profile %s: %+v", fl.Config, p)
	return p.Apply(fl)
}
