// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testKinds returns a table of small refactorings exercising the engine.
func testKinds() Table {
	t := make(Table)
	// declare appends a variable declaration to the selected file.
	t.Register(&Kind{
		Name:  "declare",
		Phase: PhaseSyntax,
		Scan:  func(u *Unit) []Span { return ScanStmtRanges(u, 0) },
		Apply: func(c *Context) error {
			f := c.Anchor.File
			c.Edits.Insert(f.Pos(len(f.Text)), "\nvar "+c.Marked(c.Name)+" = 1\n")
			return nil
		},
	})
	// retype gives the selected variable an explicit type.
	t.Register(&Kind{
		Name:  "retype",
		Phase: PhaseTypes,
		Apply: func(c *Context) error {
			c.Edits.Insert(c.Anchor.Span.End, " int")
			return nil
		},
	})
	// spoil appends a declaration that does not type-check.
	t.Register(&Kind{
		Name:  "spoil",
		Phase: PhaseSyntax,
		Apply: func(c *Context) error {
			f := c.Anchor.File
			c.Edits.Insert(f.Pos(len(f.Text)), "\nvar spoiled int = \"x\"\n")
			return nil
		},
	})
	t.Register(&Kind{
		Name:  "crash",
		Phase: PhaseSyntax,
		Apply: func(c *Context) error { panic("boom") },
	})
	t.Register(&Kind{
		Name:  "declare-int",
		Steps: []string{"declare", "retype"},
	})
	t.Register(&Kind{
		Name:  "bad-composite",
		Steps: []string{"declare", "declare-int"},
	})
	return t
}

type engineTest struct {
	e    *Engine
	t    *Target
	file string
	logs *observer.ObservedLogs
}

func newEngineTest(t *testing.T, src string) *engineTest {
	t.Helper()
	dir := t.TempDir()
	name := filepath.Join(dir, "x.go")
	require.NoError(t, os.WriteFile(name, []byte(src), 0666))
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewSession(dir, zap.New(core))
	return &engineTest{
		e:    NewEngine(s, testKinds()),
		t:    FileTarget("m", name),
		file: name,
		logs: logs,
	}
}

func (et *engineTest) run(req *Request) *Result {
	if req.Selection == (Selection{}) {
		req.Selection = Selection{File: "x.go"}
	}
	return et.e.Run(context.Background(), et.t, req)
}

// preview returns the file after applying res.
func (et *engineTest) preview(t *testing.T, res *Result) string {
	t.Helper()
	text, err := os.ReadFile(et.file)
	require.NoError(t, err)
	out, err := Preview(et.file, text, res.Groups)
	require.NoError(t, err)
	return string(out)
}

func (et *engineTest) compiles() int {
	return et.logs.FilterMessage("compile").Len()
}

const engineSrc = "package m\n\nfunc f() {\n\ta := 1\n\t_ = a\n}\n"

func TestEngineSimple(t *testing.T) {
	et := newEngineTest(t, engineSrc)
	res := et.run(&Request{Kind: "declare", Name: "v"})
	require.Nil(t, res.Err)
	require.Len(t, res.Groups, 1, "a simple kind has no marker group")
	assert.Empty(t, res.Marker)
	out := et.preview(t, res)
	assert.True(t, strings.HasSuffix(out, "\nvar v = 1\n"), "got:\n%s", out)
	assert.NotContains(t, out, "/*rfx:")
	assert.Equal(t, 2, et.compiles(), "one compilation to refactor and one to validate")

	data, err := os.ReadFile(et.file)
	require.NoError(t, err)
	assert.Equal(t, engineSrc, string(data), "the engine wrote to disk")
}

func TestEngineDefaultName(t *testing.T) {
	et := newEngineTest(t, engineSrc)
	res := et.run(&Request{Kind: "declare"})
	require.Nil(t, res.Err)
	assert.Contains(t, et.preview(t, res), "var "+DefaultName+" = 1")
}

func TestEngineSkipValidation(t *testing.T) {
	et := newEngineTest(t, engineSrc)
	res := et.run(&Request{Kind: "spoil", SkipValidation: true})
	require.Nil(t, res.Err)
	assert.Len(t, res.Groups, 1)
	assert.Equal(t, 1, et.compiles())

	res = et.run(&Request{Kind: "spoil"})
	require.NotNil(t, res.Err)
	assert.Equal(t, PostEditCompileFailed, res.Err.Kind)
	assert.True(t, res.Err.Hard)
	assert.NotEmpty(t, res.Err.Codes)
	assert.Equal(t, "spoil", res.Err.Refactoring)
	assert.Empty(t, res.Groups)
}

func TestEngineComposite(t *testing.T) {
	et := newEngineTest(t, engineSrc)
	res := et.run(&Request{Kind: "declare-int", Name: "v"})
	require.Nil(t, res.Err)
	// One group per step and one removing the marker pair.
	require.Len(t, res.Groups, 3)
	assert.Len(t, res.Groups[2], 2)
	assert.Empty(t, res.Marker)
	out := et.preview(t, res)
	assert.Contains(t, out, "\nvar v int = 1\n")
	assert.NotContains(t, out, "/*rfx:")
	assert.Equal(t, 4, et.compiles())
}

func TestEngineKeepMarkers(t *testing.T) {
	et := newEngineTest(t, engineSrc)
	res := et.run(&Request{Kind: "declare", Name: "v", Composite: true})
	require.Nil(t, res.Err)
	require.Len(t, res.Groups, 1)
	require.NotEmpty(t, res.Marker)
	out := et.preview(t, res)
	assert.Contains(t, out, "var "+MarkerStart(DefaultMarkerTag, res.Marker)+"v"+MarkerEnd(DefaultMarkerTag, res.Marker)+" = 1")

	// The next step, run separately, picks up the marker.
	next := et.run(&Request{Kind: "retype", Selection: MarkerSelection(res.Marker), Prior: res.Groups})
	require.Nil(t, next.Err)
	assert.Len(t, next.Groups, 2)
	all := append(append([]Group(nil), res.Groups...), next.Groups...)
	out = et.preview(t, &Result{Groups: all})
	assert.Contains(t, out, "\nvar v int = 1\n")
}

func TestEngineErrors(t *testing.T) {
	et := newEngineTest(t, engineSrc)
	for _, tt := range []struct {
		req  *Request
		kind ErrorKind
		hard bool
		msg  string
	}{
		{&Request{Kind: "nonesuch"}, Internal, true, "unknown"},
		{&Request{Kind: "bad-composite"}, Internal, true, "invalid step"},
		{&Request{Kind: "crash"}, Internal, true, "panicked"},
		{&Request{Kind: "retype", Selection: MarkerSelection("gone")}, NotApplicable, false, "not found"},
		{&Request{Kind: "declare", Selection: Selection{File: "y.go"}}, NotApplicable, false, "not part of"},
	} {
		t.Run(tt.req.Kind, func(t *testing.T) {
			res := et.run(tt.req)
			require.NotNil(t, res.Err)
			assert.Equal(t, tt.kind, res.Err.Kind)
			assert.Equal(t, tt.hard, res.Err.Hard)
			assert.Contains(t, res.Err.Message, tt.msg)
			assert.Empty(t, res.Groups)
		})
	}
}

func TestEngineInitialCompileFailed(t *testing.T) {
	et := newEngineTest(t, "package m\n\nvar x int = \"s\"\n")
	res := et.run(&Request{Kind: "retype", Selection: Selection{File: "x.go", Addr: "/x/"}})
	require.NotNil(t, res.Err)
	assert.Equal(t, InitialCompileFailed, res.Err.Kind)
	assert.True(t, res.Err.Hard)

	// A kind that needs only syntax still runs.
	res = et.run(&Request{Kind: "declare", SkipValidation: true})
	assert.Nil(t, res.Err)
}

func TestEngineOutput(t *testing.T) {
	et := newEngineTest(t, engineSrc)
	ctx := context.Background()

	out := et.e.Output(ctx, et.t, &Request{Kind: "declare", Scan: true})
	assert.Empty(t, out.Errors)
	assert.Len(t, out.Candidates, 3)
	assert.Equal(t, "m", out.Unit)

	out = et.e.Output(ctx, et.t, &Request{Kind: "retype", Scan: true})
	require.Len(t, out.Errors, 1)
	assert.Equal(t, Internal, out.Errors[0].Kind)

	out = et.e.Output(ctx, et.t, &Request{Kind: "declare", Selection: Selection{File: "x.go"}})
	assert.Empty(t, out.Errors)
	assert.Len(t, out.Groups, 1)
}

func TestEngineCanceled(t *testing.T) {
	et := newEngineTest(t, engineSrc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := et.e.Run(ctx, et.t, &Request{Kind: "declare", Selection: Selection{File: "x.go"}})
	require.NotNil(t, res.Err)
	assert.Equal(t, Internal, res.Err.Kind)
}
