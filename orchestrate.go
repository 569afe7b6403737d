// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"rsc.io/rfx/refactor"
)

// A workRequest is what the orchestrator sends a worker process:
// one request to run in one build target.
type workRequest struct {
	Dir     string            `msgpack:"dir"`
	Unit    string            `msgpack:"unit"`
	Pattern string            `msgpack:"pattern"`
	Config  refactor.Config   `msgpack:"config"`
	Options refactor.Options  `msgpack:"options"`
	Request *refactor.Request `msgpack:"request"`
}

// An orchestrator runs a request in every build target matching a set
// of package patterns, each in a worker process of its own, and
// collects their outputs.
type orchestrator struct {
	settings *settings
	log      *zap.Logger
	exe      string // rfx binary run as "rfx worker"
	inproc   bool   // run targets one after another in this process
	jobs     int    // maximum number of concurrent workers; 0 means GOMAXPROCS
}

// run runs req in dir for every target matching patterns and returns
// their outputs in listing order.
func (o *orchestrator) run(ctx context.Context, dir string, req *refactor.Request, patterns []string) ([]*refactor.Output, error) {
	s := o.settings.session(dir, o.log)
	targets, err := s.Targets(ctx, patterns...)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, newErrPrecondition("no packages match %v", patterns)
	}
	o.log.Debug("targets", zap.Int("count", len(targets)), zap.Bool("inproc", o.inproc))

	outs := make([]*refactor.Output, len(targets))
	if o.inproc {
		e := refactor.NewEngine(s, kinds())
		for i, t := range targets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outs[i] = e.Output(ctx, t, req)
		}
		return outs, nil
	}

	jobs := o.jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, t := range targets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			outs[i] = o.spawn(gctx, dir, t, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// spawn runs req for t in a worker process. A worker that fails
// yields an Output carrying an Internal error.
func (o *orchestrator) spawn(ctx context.Context, dir string, t *refactor.Target, req *refactor.Request) *refactor.Output {
	fail := func(format string, args ...any) *refactor.Output {
		e := refactor.Errorf(refactor.Internal, format, args...)
		e.Refactoring = req.Kind
		return &refactor.Output{Unit: t.ID, Test: t.Test, Errors: []*refactor.Error{e}}
	}

	s := o.settings.session(dir, o.log)
	in, err := msgpack.Marshal(&workRequest{
		Dir:     dir,
		Unit:    t.ID,
		Pattern: t.Dir,
		Config:  s.Config,
		Options: s.Options,
		Request: req,
	})
	if err != nil {
		return fail("encoding request: %v", err)
	}

	args := []string{"worker"}
	if o.log.Core().Enabled(zapcore.DebugLevel) {
		args = append(args, "-v")
	}
	cmd := exec.CommandContext(ctx, o.exe, args...)
	cmd.Dir = dir
	cmd.Stdin = bytes.NewReader(in)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		o.log.Debug("worker failed", zap.String("unit", t.ID), zap.Error(err), zap.ByteString("stderr", stderr.Bytes()))
		return fail("worker for %s: %v\n%s", t.ID, err, stderr.Bytes())
	}
	out := new(refactor.Output)
	if err := msgpack.Unmarshal(stdout.Bytes(), out); err != nil {
		return fail("worker for %s: decoding output: %v", t.ID, err)
	}
	o.log.Debug("worker done", zap.String("unit", t.ID), zap.Int("groups", len(out.Groups)), zap.Int("errors", len(out.Errors)))
	return out
}

// runUnit runs wr in this process. It is the body of a worker.
func runUnit(ctx context.Context, wr *workRequest, log *zap.Logger) *refactor.Output {
	s := refactor.NewSession(wr.Dir, log)
	s.Config = wr.Config
	s.Options = wr.Options
	targets, err := s.Targets(ctx, wr.Pattern)
	if err != nil {
		return &refactor.Output{Unit: wr.Unit, Errors: []*refactor.Error{refactor.AsError(err)}}
	}
	for _, t := range targets {
		if t.ID == wr.Unit {
			return refactor.NewEngine(s, kinds()).Output(ctx, t, wr.Request)
		}
	}
	err = fmt.Errorf("no build target %s in %s", wr.Unit, wr.Pattern)
	return &refactor.Output{Unit: wr.Unit, Errors: []*refactor.Error{refactor.AsError(err)}}
}
