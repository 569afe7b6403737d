// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanStmtRanges(t *testing.T) {
	u := compileSource(t, `package m

func f() {
	a := 1
	b := a
	_ = b
}

func g() {}
`)
	// Three statements give 3+2+1 runs; an empty body gives none.
	assert.Len(t, ScanStmtRanges(u, 0), 6)
	assert.Len(t, ScanStmtRanges(u, 2), 5)
	assert.Len(t, ScanStmtRanges(u, 1), 3)

	cands := Candidates(u, ScanStmtRanges(u, 0))
	require.Len(t, cands, 6)
	first, last := cands[0], cands[len(cands)-1]
	assert.Equal(t, 1, first.Size)
	assert.Equal(t, "_ = b", string(u.Files[0].Text[last.From:last.To]))
}

func TestScanStmtRangesGenerated(t *testing.T) {
	u := compileSource(t, `// Code generated by hand. DO NOT EDIT.

package m

func f() {
	a := 1
	_ = a
}
`)
	assert.Empty(t, ScanStmtRanges(u, 0))
}

func TestSortSpans(t *testing.T) {
	spans := SortSpans([]Span{{5, 9}, {1, 4}, {5, 7}, {1, 4}})
	assert.Equal(t, []Span{{1, 4}, {5, 7}, {5, 9}}, spans)
}

// captures returns the modes of the variables the last function
// literal in fn captures, by name.
func captures(t *testing.T, u *Unit, fn string) map[string]CaptureMode {
	t.Helper()
	fd := funcDecl(t, u, fn)
	var lit *ast.FuncLit
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		if l, ok := n.(*ast.FuncLit); ok {
			lit = l
		}
		return true
	})
	require.NotNil(t, lit)
	modes := make(map[string]CaptureMode)
	var last types.Object
	for _, c := range AnalyzeCaptures(u, NodeSpan(lit), fd) {
		if last != nil {
			assert.Less(t, last.Pos(), c.Var.Pos(), "captures out of declaration order")
		}
		last = c.Var
		modes[c.Var.Name()] = c.Mode
	}
	return modes
}

const captureSrc = `package m

type mu struct{ n int }

func (*mu) Lock()   {}
func (*mu) Unlock() {}

type guarded struct {
	m mu
	v int
}

func mutate() int {
	x, y, z := 1, 2, 3
	func() {
		x++
		_ = y
	}()
	return x + y + z
}

func branches(c bool) int {
	x := 0
	func() {
		if c {
			_ = x
		} else {
			x = 1
		}
	}()
	return x
}

func move(ch chan []int) {
	s := []int{1}
	func() {
		ch <- s
	}()
}

func moveUsedAfter(ch chan []int) []int {
	s := []int{1}
	func() {
		ch <- s
	}()
	return s
}

func borrow() int {
	var g guarded
	func() {
		_ = g.v
	}()
	return g.v
}

func addr() *int {
	n := 0
	var p *int
	func() {
		p = &n
	}()
	return p
}

func readByEarlierClosure(ch chan int) (r int) {
	x := 1
	defer func() { r = x }()
	func() {
		x = 5
		ch <- x
	}()
	return
}
`

func TestAnalyzeCaptures(t *testing.T) {
	u := compileSource(t, captureSrc)
	for _, tt := range []struct {
		fn   string
		want map[string]CaptureMode
	}{
		{"mutate", map[string]CaptureMode{"x": Mutate, "y": Copy}},
		{"branches", map[string]CaptureMode{"c": Copy, "x": Mutate}},
		{"move", map[string]CaptureMode{"ch": Copy, "s": Move}},
		{"moveUsedAfter", map[string]CaptureMode{"ch": Copy, "s": Copy}},
		{"borrow", map[string]CaptureMode{"g": Borrow}},
		{"addr", map[string]CaptureMode{"n": Mutate, "p": Mutate}},
		{"readByEarlierClosure", map[string]CaptureMode{"ch": Copy, "x": Mutate}},
	} {
		t.Run(tt.fn, func(t *testing.T) {
			assert.Equal(t, tt.want, captures(t, u, tt.fn))
		})
	}

	assert.True(t, Mutate.ByPointer())
	assert.True(t, Borrow.ByPointer())
	assert.False(t, Copy.ByPointer())
	assert.False(t, Move.ByPointer())
}

func TestDeclaredUsedAfter(t *testing.T) {
	u := compileSource(t, `package m

func f() int {
	a := 1
	b, c := 2, 3
	_ = c
	a++
	return a + b
}

func g() int {
	const k = 1
	return k
}
`)
	fd := funcDecl(t, u, "f")
	locals, err := DeclaredUsedAfter(u, fd.Body.List[:3], fd)
	require.NoError(t, err)
	require.Len(t, locals, 2)
	assert.Equal(t, "a", locals[0].Var.Name())
	assert.True(t, locals[0].MutatedAfter)
	assert.Equal(t, "b", locals[1].Var.Name())
	assert.False(t, locals[1].MutatedAfter)

	// Nothing declared in the last statement.
	locals, err = DeclaredUsedAfter(u, fd.Body.List[4:], fd)
	require.NoError(t, err)
	assert.Empty(t, locals)

	fd = funcDecl(t, u, "g")
	_, err = DeclaredUsedAfter(u, fd.Body.List[:1], fd)
	require.Error(t, err)
	assert.Equal(t, NotApplicable, AsError(err).Kind)
}

func TestDeclaredUsedAfterAliased(t *testing.T) {
	u := compileSource(t, `package m

type buf struct{ n int }

func (b *buf) add() { b.n++ }

func f() int {
	x, y, z := 1, 2, 3
	var b buf
	var arr [2]int
	p := &x
	inc := func() { y++ }
	b.add()
	s := arr[:]
	w := z
	inc()
	*p = 3
	return x + y + z + w + b.n + len(s) + arr[0]
}
`)
	fd := funcDecl(t, u, "f")
	locals, err := DeclaredUsedAfter(u, fd.Body.List[:9], fd)
	require.NoError(t, err)
	aliased := make(map[string]bool)
	for _, l := range locals {
		aliased[l.Var.Name()] = l.Aliased
	}
	assert.Equal(t, map[string]bool{
		"x": true, "y": true, "z": false, "b": true, "arr": true,
		"p": false, "s": false, "w": false,
	}, aliased)
}

func TestCollectExits(t *testing.T) {
	u := compileSource(t, `package m

func f(xs []int) (int, error) {
	for _, x := range xs {
		if x < 0 {
			continue
		}
		if x == 0 {
			break
		}
		if x > 10 {
			return x, nil
		}
		for {
			break
		}
		func() {
			return
		}()
	}
	return 0, nil
}

func g() {
	defer func() {}()
}

func h() {
	goto L
L:
}
`)
	fd := funcDecl(t, u, "f")
	loop := fd.Body.List[0].(*ast.RangeStmt)
	exits, err := CollectExits(u, loop.Body.List, fd)
	require.NoError(t, err)
	var kinds []ExitKind
	for i, e := range exits {
		assert.Equal(t, i, e.Disc)
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []ExitKind{ExitTail, ExitContinue, ExitBreak, ExitReturn}, kinds)
	assert.Nil(t, exits[1].Payload)
	assert.NotNil(t, exits[3].Payload)
	assert.True(t, HasValueExits(exits))
	assert.False(t, HasValueExits(exits[:3]))

	// Around the whole loop, only the return leaves.
	exits, err = CollectExits(u, fd.Body.List[:1], fd)
	require.NoError(t, err)
	require.Len(t, exits, 2)
	assert.Equal(t, ExitReturn, exits[1].Kind)

	for _, name := range []string{"g", "h"} {
		fd := funcDecl(t, u, name)
		_, err := CollectExits(u, fd.Body.List[:1], fd)
		require.Error(t, err, name)
		assert.Equal(t, NotApplicable, AsError(err).Kind, name)
	}
}

func TestCollectFieldUses(t *testing.T) {
	u := compileSource(t, `package m

type T struct {
	f int
	g string
}

func use() {
	a := T{f: 1, g: "x"}
	b := T{}
	p := &a.f
	a.f = 2
	var c T
	_, _ = b, c
	_ = p
	if a == (T{f: 1}) {
	}
	for a.f = range []int{1} {
	}
}
`)
	tn := u.Types.Scope().Lookup("T").(*types.TypeName)
	named := tn.Type().(*types.Named)
	field := named.Underlying().(*types.Struct).Field(0)
	fu := CollectFieldUses(u, named, field)

	assert.Len(t, fu.Constructs, 2)
	assert.Len(t, fu.Implicit, 2, "T{} and var c T")
	assert.Len(t, fu.Compared, 1)
	require.Len(t, fu.Accesses, 3)
	assert.NotNil(t, fu.Accesses[0].Addr)
	assert.Nil(t, fu.Accesses[1].Addr)
	for _, a := range fu.Accesses {
		assert.True(t, a.Mutates, u.NodeText(a.Sel))
	}
	assert.Len(t, fu.Copies, 2, "b and c assigned to _")

	require.Len(t, fu.Patterns, 2)
	assert.Equal(t, PatternOther, fu.Patterns[0].Kind)
	assert.Equal(t, PatternBinding, fu.Patterns[1].Kind)
	assert.Same(t, fu.Patterns[0], fu.Unsafe())
}

func TestCollectFieldUsesZeroAndCopies(t *testing.T) {
	u := compileSource(t, `package m

type T struct{ f int }

type U struct{ t T }

func (t T) get() int { return t.f }

func id[E any](e E) E { return e }

func use(p *T, ts []T) (r T) {
	s := make([]T, 1)
	e := make([]T, 0)
	var arr [2]T
	m := map[string]T{}
	v := T{f: 1}
	w := v
	_ = p.get()
	_ = id(v)
	for _, x := range ts {
		_ = x.f
	}
	_, _, _, _, _ = s, e, arr, m, w
	return
}
`)
	named := u.Types.Scope().Lookup("T").(*types.TypeName).Type().(*types.Named)
	fu := CollectFieldUses(u, named, named.Underlying().(*types.Struct).Field(0))
	texts := func(nodes []ast.Node) []string {
		var out []string
		for _, n := range nodes {
			out = append(out, u.NodeText(n))
		}
		return out
	}
	assert.ElementsMatch(t, []string{"struct{ t T }", "[2]T", "map[string]T", "make([]T, 1)", "r T", "id"}, texts(fu.Implicit))
	for i := 1; i < len(fu.Implicit); i++ {
		assert.Less(t, fu.Implicit[i-1].Pos(), fu.Implicit[i].Pos())
	}
	assert.ElementsMatch(t, []string{"v", "p", "v", "x", "w"}, texts(fu.Copies))
	assert.Nil(t, fu.Mutated(), "f is only read")
}

func TestCollectReferences(t *testing.T) {
	u := compileSource(t, `package m

type T struct{}

func (T) M() {}

func F(t T) {}

func use() {
	var t T
	F(t)
	g := F
	_ = g
	t.M()
	h := T.M
	_ = h
}
`)
	kinds := func(id DefID) []RefKind {
		var out []RefKind
		for _, r := range CollectReferences(u, id) {
			out = append(out, r.Kind)
		}
		return out
	}
	f := DefID{PkgPath: "m", Name: "F"}
	m := DefID{PkgPath: "m", Name: "T.M"}
	assert.Equal(t, []RefKind{RefDecl, RefCall, RefValue}, kinds(f))
	assert.Equal(t, []RefKind{RefDecl, RefMethodCall, RefValue}, kinds(m))

	obj := m.Object(u)
	require.NotNil(t, obj)
	got, ok := DefIDOf(obj)
	require.True(t, ok)
	assert.Equal(t, m, got)
	assert.Equal(t, "m.T.M", got.String())

	assert.Nil(t, DefID{PkgPath: "m", Name: "T.N"}.Object(u))
	assert.Nil(t, DefID{PkgPath: "other", Name: "F"}.Object(u))
}
