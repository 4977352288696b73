// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package server exposes a bigjob runner over HTTP:
//
//	POST /run-job       {"payload": {...}, "numPeers": n} -> {"id": ..., "result": ...}
//	POST /execute       {...payload...}                   -> result
//	GET  /health        -> {"status": "ok"}
//	GET  /debug/status  -> job and chunk status
//	GET  /debug/stats   -> counters and latencies
//
// Failures are reported as {"error": "<message>"}.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/status"
	"github.com/grailbio/bigjob"
	"github.com/grailbio/bigjob/exec"
)

// ErrTimeout is the message reported for jobs that exceed the job
// timeout.
const ErrTimeout = "Job timed out"

// Config holds the configuration of the server.
type Config struct {
	// JobTimeout bounds the time spent on each request. If zero,
	// requests are not bounded.
	JobTimeout time.Duration
	// DefaultChunks is the number of chunks used for jobs that do not
	// specify numPeers.
	DefaultChunks int
	// ReadTimeout and WriteTimeout bound request reads and response
	// writes.
	ReadTimeout, WriteTimeout time.Duration
	// AccessLog receives one line per request. If nil, requests are
	// logged to stderr.
	AccessLog io.Writer
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		JobTimeout:    30 * time.Second,
		DefaultChunks: exec.DefaultChunks,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
	}
}

// A Server serves jobs from a runner.
type Server struct {
	app    *fiber.App
	runner *exec.Runner
	status *status.Status
	config Config
}

// New returns a server that runs jobs with r and reports their
// status from s, which may be nil.
func New(r *exec.Runner, s *status.Status, config Config) *Server {
	if s == nil {
		s = new(status.Status)
	}
	if config.DefaultChunks <= 0 {
		config.DefaultChunks = exec.DefaultChunks
	}
	if config.AccessLog == nil {
		config.AccessLog = os.Stderr
	}
	srv := &Server{
		app: fiber.New(fiber.Config{
			ReadTimeout:           config.ReadTimeout,
			WriteTimeout:          config.WriteTimeout,
			ErrorHandler:          errorHandler,
			AppName:               "bigjob",
			DisableStartupMessage: true,
		}),
		runner: r,
		status: s,
		config: config,
	}
	srv.app.Use(fiberrecover.New())
	srv.app.Use(logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} ${path}\n",
		Output: config.AccessLog,
	}))
	srv.app.Get("/health", srv.health)
	srv.app.Post("/run-job", srv.runJob)
	srv.app.Post("/execute", srv.execute)
	srv.app.Get("/debug/status", adaptor.HTTPHandler(status.Handler(s)))
	srv.app.Get("/debug/stats", srv.stats)
	return srv
}

// App returns the server's fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves requests on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	log.Printf("bigjob server listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for active requests to finish.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// jobRequest is the body of a /run-job request.
type jobRequest struct {
	Payload  bigjob.Payload `json:"payload"`
	NumPeers int            `json:"numPeers"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) runJob(c *fiber.Ctx) error {
	var req jobRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "Invalid payload: "+err.Error())
	}
	if req.Payload == nil {
		return badRequest(c, "Invalid payload: missing payload")
	}
	if req.NumPeers < 0 || req.NumPeers > exec.MaxChunks {
		return badRequest(c, fmt.Sprintf("Invalid payload: numPeers must be between 1 and %d, got %d", exec.MaxChunks, req.NumPeers))
	}
	chunks := req.NumPeers
	if chunks == 0 {
		chunks = s.config.DefaultChunks
	}
	ctx, cancel := s.context(c)
	defer cancel()
	out, err := s.runner.Run(ctx, exec.NewJob(req.Payload, chunks))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(out)
}

func (s *Server) execute(c *fiber.Ctx) error {
	var p bigjob.Payload
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		return badRequest(c, "Invalid payload: "+err.Error())
	}
	if p == nil {
		return badRequest(c, "Invalid payload: expected a JSON object")
	}
	ctx, cancel := s.context(c)
	defer cancel()
	res, err := s.runner.Execute(ctx, p)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) stats(c *fiber.Ctx) error {
	return c.JSON(s.runner.Executor.Stats.Snapshot())
}

// context returns the context for a request, bounded by the job
// timeout.
func (s *Server) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if s.config.JobTimeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), s.config.JobTimeout)
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	msg := err.Error()
	if err == context.DeadlineExceeded {
		msg = ErrTimeout
	}
	log.Error.Printf("%s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// errorHandler renders errors returned by handlers and middleware,
// including recovered panics, in the response vocabulary of the
// server.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
