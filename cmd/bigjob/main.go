// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command bigjob splits jobs into chunks, executes operations on them,
// and aggregates their results. Each command writes exactly one line
// of JSON to stdout; diagnostics go to stderr.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"github.com/grailbio/bigjob/jobflags"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Bigjob splits, executes and aggregates compute jobs.

Usage:

	bigjob [flags] <command> [arguments]

The commands are:

	execute '<payload>'           execute a single operation
	split '<array>' <n>           split an array into n chunks
	aggregate '<numbers>' <mode>  aggregate numbers with sum, mean, min or max
	run '<payload>'               split, execute and aggregate a job
	serve                         serve jobs over HTTP

The flags are:

`)
	flag.PrintDefaults()
}

func main() {
	log.AddFlags()
	log.SetFlags(0)
	log.SetPrefix("bigjob: ")
	must.Func = log.Fatal
	flag.Usage = usage
	var fl jobflags.Flags
	jobflags.RegisterFlags(flag.CommandLine, &fl, "")
	flag.Parse()
	os.Exit(run(&fl, flag.Args(), os.Stdout))
}

// run runs the command given by args and returns the process exit
// code: 2 for usage errors, 1 if the command could not be set up, and
// 0 otherwise, including when the response written to stdout is an
// error.
func run(fl *jobflags.Flags, args []string, stdout io.Writer) int {
	if len(args) == 0 {
		usageError(stdout, "No command provided")
		return 2
	}
	cmd, args := args[0], args[1:]
	c, ok := commands[cmd]
	if !ok {
		usageError(stdout, fmt.Sprintf("Unknown command: %s", cmd))
		return 2
	}
	if len(args) < len(c.args) {
		usageError(stdout, fmt.Sprintf("No %s provided", c.args[len(args)]))
		return 2
	}
	return c.run(fl, args, stdout)
}
