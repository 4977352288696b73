// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	baseerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bigjob"
	"github.com/grailbio/bigjob/exec"
	"github.com/grailbio/bigjob/jobcmd"
	"github.com/grailbio/bigjob/jobflags"
	"github.com/grailbio/bigjob/jobio"
	"github.com/grailbio/bigjob/server"
)

type command struct {
	// args names the required arguments.
	args []string
	run  func(fl *jobflags.Flags, args []string, stdout io.Writer) int
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"execute":   {[]string{"payload"}, executeCmd},
		"split":     {[]string{"payload", "chunk count"}, splitCmd},
		"aggregate": {[]string{"payload", "aggregation mode"}, aggregateCmd},
		"run":       {[]string{"payload"}, runCmd},
		"serve":     {nil, serveCmd},
	}
}

func usageError(w io.Writer, msg string) {
	w.Write(append(jobio.Error(errors.New(msg)), '\n'))
	fmt.Fprintln(os.Stderr, msg)
}

// respond writes the outcome of fn to w, logging errors.
func respond(w io.Writer, fn func() (interface{}, error)) int {
	reported, err := jobio.Respond(w, fn)
	if reported != nil {
		log.Error.Print(reported)
	}
	if err != nil {
		log.Error.Printf("write response: %v", err)
		return 1
	}
	return 0
}

// timeout reports job timeouts the way the server does.
func timeout(err error) error {
	if err == context.DeadlineExceeded {
		return errors.New(server.ErrTimeout)
	}
	return err
}

func setup(fl *jobflags.Flags, stdout io.Writer) (*jobcmd.Env, context.Context, context.CancelFunc, bool) {
	env, err := jobcmd.Init(context.Background(), fl)
	if err != nil {
		log.Error.Print(err)
		stdout.Write(append(jobio.Error(err), '\n'))
		return nil, nil, nil, false
	}
	if fl.JobTimeout <= 0 {
		ctx, cancel := context.WithCancel(context.Background())
		return env, ctx, cancel, true
	}
	ctx, cancel := context.WithTimeout(context.Background(), fl.JobTimeout)
	return env, ctx, cancel, true
}

func executeCmd(fl *jobflags.Flags, args []string, stdout io.Writer) int {
	env, ctx, cancel, ok := setup(fl, stdout)
	if !ok {
		return 1
	}
	defer cancel()
	return respond(stdout, func() (interface{}, error) {
		p, err := jobio.DecodePayload(args[0])
		if err != nil {
			return nil, err
		}
		res, err := env.Runner.Execute(ctx, p)
		if err != nil {
			return nil, timeout(err)
		}
		return res, nil
	})
}

func splitCmd(_ *jobflags.Flags, args []string, stdout io.Writer) int {
	return respond(stdout, func() (interface{}, error) {
		items, err := jobio.DecodeItems(args[0])
		if err != nil {
			return nil, err
		}
		n, err := jobio.ParseChunkCount(args[1])
		if err != nil {
			return nil, err
		}
		return bigjob.Split(items, n)
	})
}

func aggregateCmd(_ *jobflags.Flags, args []string, stdout io.Writer) int {
	return respond(stdout, func() (interface{}, error) {
		results, err := jobio.DecodeResults(args[0])
		if err != nil {
			return nil, err
		}
		mode, err := bigjob.ParseMode(args[1])
		if err != nil {
			return nil, err
		}
		return bigjob.Aggregate(results, mode)
	})
}

func runCmd(fl *jobflags.Flags, args []string, stdout io.Writer) int {
	env, ctx, cancel, ok := setup(fl, stdout)
	if !ok {
		return 1
	}
	defer cancel()
	var line bytes.Buffer
	code := respond(&line, func() (interface{}, error) {
		p, err := jobio.DecodePayload(args[0])
		if err != nil {
			return nil, err
		}
		out, err := env.Runner.Run(ctx, exec.NewJob(p, fl.Chunks))
		if err != nil {
			return nil, timeout(err)
		}
		return out, nil
	})
	if _, err := stdout.Write(line.Bytes()); err != nil {
		log.Error.Printf("write response: %v", err)
		return 1
	}
	if fl.Output != "" {
		if err := writeFile(context.Background(), fl.Output, line.Bytes()); err != nil {
			log.Error.Print(err)
			return 1
		}
	}
	return code
}

func serveCmd(fl *jobflags.Flags, _ []string, stdout io.Writer) int {
	env, _, cancel, ok := setup(fl, stdout)
	if !ok {
		return 1
	}
	defer cancel()
	config := server.DefaultConfig()
	config.JobTimeout = fl.JobTimeout
	config.DefaultChunks = fl.Chunks
	srv := server.New(env.Runner, env.Status, config)
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		if err := srv.Shutdown(); err != nil {
			log.Error.Printf("shutdown: %v", err)
		}
	}()
	if err := srv.Listen(fl.HTTPAddress.Address); err != nil {
		log.Error.Printf("serve %s: %v", fl.HTTPAddress.Address, err)
		return 1
	}
	return 0
}

// writeFile writes b to path, which may be any path supported by
// grailbio/base/file.
func writeFile(ctx context.Context, path string, b []byte) error {
	f, err := file.Create(ctx, path)
	if err != nil {
		return baseerrors.E(err, fmt.Sprintf("create %s", path))
	}
	if _, err := f.Writer(ctx).Write(b); err != nil {
		f.Close(ctx)
		return baseerrors.E(err, fmt.Sprintf("write %s", path))
	}
	if err := f.Close(ctx); err != nil {
		return baseerrors.E(err, fmt.Sprintf("close %s", path))
	}
	return nil
}
