// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package jobcmd provides utilities for implementing bigjob-based
// command line tools. Init builds an execution environment from the
// flags of package jobflags and the shared configuration profile of
// package jobconfig; DisplayStatus reports job progress on the
// console.
//
// A jobcmd tool follows this form:
//
//	func main() {
//		var fl jobflags.Flags
//		jobflags.RegisterFlags(flag.CommandLine, &fl, "")
//		log.AddFlags()
//		flag.Parse()
//		env, err := jobcmd.Init(ctx, &fl)
//		if err != nil {
//			log.Fatal(err)
//		}
//		out, err := env.Runner.Run(ctx, exec.NewJob(payload, fl.Chunks))
//		// ...
//	}
package jobcmd

import (
	"context"
	"io"
	"os"

	"github.com/grailbio/base/status"
	"github.com/grailbio/bigjob/exec"
	"github.com/grailbio/bigjob/jobconfig"
	"github.com/grailbio/bigjob/jobflags"
	"github.com/grailbio/bigjob/stats"
)

// An Env is the execution environment of a command.
type Env struct {
	Executor *exec.Executor
	Runner   *exec.Runner
	Status   *status.Status
	Stats    *stats.Map
}

// Init reads the configuration profile named by the flags, applies it
// to fl, and returns an environment configured accordingly.
func Init(ctx context.Context, fl *jobflags.Flags) (*Env, error) {
	if err := jobconfig.Parse(ctx, fl); err != nil {
		return nil, err
	}
	env := &Env{
		Status: new(status.Status),
		Stats:  stats.NewMap(),
	}
	env.Executor = fl.Executor()
	env.Executor.Stats = env.Stats
	env.Runner = fl.Runner(env.Executor)
	env.Runner.Status = env.Status
	DisplayStatus(*fl, env.Status, os.Stderr)
	return env, nil
}

// DisplayStatus arranges for job status to be displayed on w if the
// flags request console status.
func DisplayStatus(fl jobflags.Flags, s *status.Status, w io.Writer) {
	if fl.ConsoleStatus {
		var console status.Reporter
		go console.Go(w, s)
	}
}
