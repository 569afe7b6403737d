// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"bytes"
	"context"
	"go/ast"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// compileSource compiles src as the only file, x.go, of package m.
func compileSource(t *testing.T, src string) *Unit {
	t.Helper()
	dir := t.TempDir()
	name := filepath.Join(dir, "x.go")
	require.NoError(t, os.WriteFile(name, []byte(src), 0666))
	s := NewSession(dir, zaptest.NewLogger(t))
	u, err := s.Compile(context.Background(), FileTarget("m", name), NoCallbacks{})
	require.NoError(t, err)
	require.Equal(t, PhaseTypes, u.Phase)
	return u
}

// funcDecl returns the declaration of the top-level function name in u.
func funcDecl(t *testing.T, u *Unit, name string) *ast.FuncDecl {
	t.Helper()
	for _, f := range u.Files {
		for _, d := range f.Syntax.Decls {
			if fd, ok := d.(*ast.FuncDecl); ok && fd.Recv == nil && fd.Name.Name == name {
				return fd
			}
		}
	}
	t.Fatalf("no function %s", name)
	return nil
}

// posOf returns the position of the first occurrence of s in f.
func posOf(t *testing.T, f *File, s string) (pos, end int) {
	t.Helper()
	i := bytes.Index(f.Text, []byte(s))
	require.GreaterOrEqual(t, i, 0, "%q not found", s)
	return i, i + len(s)
}

func TestApplyLayered(t *testing.T) {
	text := []byte("abcdef")
	g1 := Group{
		{File: "f", Start: 0, End: 1, Text: "A"},
		{File: "f", Start: 4, End: 6, Text: ""},
		{File: "other", Start: 0, End: 100, Text: "ignored"},
	}
	g2 := Group{{File: "f", Start: 4, End: 4, Text: "!"}}

	out, err := Apply("f", text, g1)
	require.NoError(t, err)
	assert.Equal(t, "Abcd", string(out))
	assert.Equal(t, "abcdef", string(text), "Apply modified its input")

	out, err = Preview("f", text, []Group{g1, g2})
	require.NoError(t, err)
	assert.Equal(t, "Abcd!", string(out))

	_, err = Apply("f", text, Group{{File: "f", Start: 3, End: 10}})
	assert.Error(t, err)
}

func TestGroupCheck(t *testing.T) {
	ok := Group{{File: "f", Start: 0, End: 2}, {File: "f", Start: 2, End: 4}, {File: "g", Start: 1, End: 3}}
	assert.NoError(t, ok.Check())

	bad := Group{{File: "f", Start: 0, End: 3}, {File: "f", Start: 2, End: 4}}
	assert.Error(t, bad.Check())

	assert.Equal(t, []string{"f", "g"}, ok.Files())
	s := ok.Sorted()
	assert.Equal(t, "f", s[0].File)
	assert.Equal(t, 2, s[0].Start, "replacements are applied from the end")
}

func TestBuilder(t *testing.T) {
	u := compileSource(t, "package m\n\nvar x = 1\n")
	f := u.Files[0]
	lo, hi := posOf(t, f, "x")

	b := NewBuilder(u)
	b.Insert(f.Pos(lo), "/*a*/")
	b.Replace(f.Pos(lo), f.Pos(hi), "y")
	b.Insert(f.Pos(lo), "/*b*/")
	b.Replace(f.Pos(lo), f.Pos(hi), "y")
	g, err := b.Group()
	require.NoError(t, err)
	require.Len(t, g, 1)
	assert.Equal(t, Replacement{
		File:      f.Name,
		Start:     lo,
		End:       hi,
		Text:      "/*a*//*b*/y",
		StartLine: 3,
		StartChar: 5,
		EndLine:   3,
		EndChar:   6,
	}, g[0])

	out, err := Apply(f.Name, f.Text, g)
	require.NoError(t, err)
	assert.Equal(t, "package m\n\nvar /*a*//*b*/y = 1\n", string(out))
}

func TestBuilderConflict(t *testing.T) {
	u := compileSource(t, "package m\n\nvar x = 1\n")
	f := u.Files[0]
	lo, hi := posOf(t, f, "x = 1")

	b := NewBuilder(u)
	b.Replace(f.Pos(lo), f.Pos(hi), "z = 2")
	b.Replace(f.Pos(lo+2), f.Pos(hi), "= 3")
	_, err := b.Group()
	assert.ErrorContains(t, err, "conflicting edits")
}

func TestBuilderMarked(t *testing.T) {
	u := compileSource(t, "package m\n\nvar x = 1\n")
	f := u.Files[0]
	lo, hi := posOf(t, f, "x")

	b := NewBuilder(u)
	b.Mark("id", f.Pos(lo), f.Pos(hi))
	g, err := b.Group()
	require.NoError(t, err)
	out, err := Apply(f.Name, f.Text, g)
	require.NoError(t, err)
	assert.Contains(t, string(out), "var /*rfx:id:start*/x/*rfx:id:end*/ = 1")
	assert.Equal(t, "/*rfx:id:start*/x/*rfx:id:end*/", b.Marked("id", "x"))
}

func TestTextBuffer(t *testing.T) {
	buf := NewTextBuffer(10, "hello world")
	buf.Replace(10, 15, "HELLO")
	buf.Insert(21, "!")
	buf.Insert(16, "big ")
	buf.Insert(16, "wide ")
	assert.Equal(t, "HELLO big wide world!", buf.String())

	bad := NewTextBuffer(10, "hello")
	bad.Replace(10, 14, "x")
	bad.Replace(12, 13, "y")
	assert.Panics(t, func() { _ = bad.String() })
}
