// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// An Engine runs refactoring requests against the build targets
// of a session.
type Engine struct {
	Session *Session
	Kinds   Table
}

// NewEngine returns an engine running the kinds in table.
func NewEngine(s *Session, kinds Table) *Engine {
	return &Engine{Session: s, Kinds: kinds}
}

func (e *Engine) log() *zap.Logger { return e.Session.log() }

// Output runs req in t and reports the outcome in the form consumed by
// Aggregate.
func (e *Engine) Output(ctx context.Context, t *Target, req *Request) *Output {
	out := &Output{Unit: t.ID, Test: t.Test}
	if req.Scan {
		cands, err := e.Scan(ctx, t, req.Kind)
		if err != nil {
			out.Errors = append(out.Errors, withKind(AsError(err), req.Kind))
			return out
		}
		out.Candidates = cands
		return out
	}
	res := e.Run(ctx, t, req)
	if res.Err != nil {
		out.Errors = append(out.Errors, res.Err)
		return out
	}
	out.Groups = res.Groups
	out.Marker = res.Marker
	return out
}

// Scan returns the candidates for kind in t. A composite kind proposes
// the candidates of its first step.
func (e *Engine) Scan(ctx context.Context, t *Target, kind string) ([]Candidate, error) {
	steps, err := e.Kinds.Steps(kind)
	if err != nil {
		return nil, err
	}
	k := steps[0]
	if k.Scan == nil {
		return nil, Errorf(Internal, "refactoring kind %q cannot scan", kind)
	}
	var cands []Candidate
	_, err = e.Session.Compile(ctx, t, PhaseCallbacks{Phase: k.Phase, Fn: func(u *Unit) {
		cands = Candidates(u, SortSpans(k.Scan(u)))
	}})
	if err != nil {
		return nil, err
	}
	e.log().Debug("scan", zap.String("unit", t.ID), zap.String("kind", kind), zap.Int("candidates", len(cands)))
	return cands, nil
}

// Run performs req in t. The kind is resolved before anything is
// compiled, so an unknown kind fails without touching the target.
func (e *Engine) Run(ctx context.Context, t *Target, req *Request) *Result {
	steps, err := e.Kinds.Steps(req.Kind)
	if err != nil {
		return &Result{Err: withKind(AsError(err), req.Kind)}
	}
	overlay := e.Session.overlay().Clone()
	for _, g := range req.Prior {
		overlay.Add(g)
	}
	res, err := e.pipeline(ctx, t, req, steps, overlay)
	if err != nil {
		e.log().Debug("refactoring failed", zap.String("unit", t.ID), zap.String("kind", req.Kind), zap.Error(err))
		return &Result{Err: withKind(AsError(err), req.Kind)}
	}
	return res
}

// step runs one simple kind in a fresh compilation of t through s.
func (e *Engine) step(ctx context.Context, s *Session, t *Target, k *Kind, index int, sel Selection, name string, edited, chained bool) (Group, string, error) {
	t, err := s.Refresh(ctx, t)
	if err != nil {
		return nil, "", err
	}
	var (
		g       Group
		marker  string
		stepErr error
	)
	_, err = s.Compile(ctx, t, PhaseCallbacks{Phase: k.Phase, Fn: func(u *Unit) {
		g, marker, stepErr = e.apply(u, k, index, sel, name, chained)
	}})
	if err != nil {
		var ce *CompileError
		if edited && errors.As(err, &ce) {
			// The edits of earlier steps broke the program.
			return nil, "", &Error{Kind: PostEditCompileFailed, Message: ce.Error(), Codes: ce.Diags.Codes(), Hard: true}
		}
		return nil, "", err
	}
	if stepErr != nil {
		return nil, "", withKind(AsError(stepErr), k.Name)
	}
	return g, marker, nil
}

// apply resolves sel in u and runs k there.
func (e *Engine) apply(u *Unit, k *Kind, index int, sel Selection, name string, chained bool) (g Group, marker string, err error) {
	defer func() {
		if r := recover(); r != nil {
			u.Log.Error("refactoring panicked", zap.String("kind", k.Name), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			g, marker, err = nil, "", Errorf(Internal, "%s panicked: %v", k.Name, r)
		}
	}()
	a, err := Resolve(u, sel)
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		name = u.Options.defaultName()
	}
	c := &Context{
		Unit:    u,
		Anchor:  a,
		Edits:   NewBuilder(u),
		Name:    name,
		Log:     u.Log.With(zap.String("kind", k.Name)),
		Chained: chained,
		kind:    k.Name,
		step:    index,
	}
	if err := k.Apply(c); err != nil {
		return nil, "", err
	}
	g, err = c.Edits.Group()
	if err != nil {
		return nil, "", Errorf(Internal, "%v", err)
	}
	c.Log.Debug("applied", zap.Stringer("selection", sel), zap.Int("replacements", len(g)))
	return g, c.marker, nil
}

func withKind(e *Error, kind string) *Error {
	if e != nil && e.Refactoring == "" {
		e2 := *e
		e2.Refactoring = kind
		return &e2
	}
	return e
}

// String returns a one-line summary of r.
func (r *Result) String() string {
	if r.Err != nil {
		return "error: " + r.Err.Error()
	}
	n := 0
	for _, g := range r.Groups {
		n += len(g)
	}
	return fmt.Sprintf("%d groups, %d replacements", len(r.Groups), n)
}
