// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/token"
	"go/types"
	"sort"
)

// A CaptureMode is how a region of code uses a variable declared outside it.
// Modes are ordered: a stronger mode subsumes the weaker ones.
type CaptureMode int

const (
	// Copy: the variable is only read, and its value may be copied.
	Copy CaptureMode = iota

	// Borrow: the variable is only read, but its type must not be copied,
	// such as a struct containing a sync.Mutex.
	Borrow

	// Mutate: the variable is assigned, incremented, has its address
	// taken or has a pointer method called on it.
	Mutate

	// Move: the value is handed off (sent, returned, stored or passed to
	// go/defer) and the variable is dead after the region.
	Move
)

func (m CaptureMode) String() string {
	switch m {
	case Copy:
		return "copy"
	case Borrow:
		return "borrow"
	case Mutate:
		return "mutate"
	case Move:
		return "move"
	}
	return "CaptureMode(?)"
}

// ByPointer reports whether a variable captured in mode m must be passed
// by pointer to keep its meaning.
func (m CaptureMode) ByPointer() bool {
	return m == Borrow || m == Mutate
}

// A Capture is a local variable declared outside a region and used in it.
type Capture struct {
	Var   *types.Var
	Mode  CaptureMode
	First token.Pos // first use in the region
}

// AnalyzeCaptures reports the local variables of fn that are declared
// outside scope and used inside it, each with the strongest mode observed
// over all its uses in scope. The modes of uses in different branches are
// joined: one mutating use makes the variable Mutate no matter which
// branch it is on. Captures are ordered by declaration.
func AnalyzeCaptures(u *Unit, scope Span, fn ast.Node) []*Capture {
	byVar := make(map[*types.Var]*Capture)
	WalkRange(fn, scope.Pos, scope.End, func(stack []ast.Node) {
		id, ok := stack[0].(*ast.Ident)
		if !ok || !scope.Contains(id) {
			return
		}
		v, ok := u.Info.Uses[id].(*types.Var)
		if !ok || v.IsField() || !isLocalOf(v, fn) || (scope.Pos <= v.Pos() && v.Pos() < scope.End) {
			return
		}
		mode := useMode(u, v, stack)
		if mode == Move && (usedOutside(u, v, fn, scope) || addrTaken(u, v, fn)) {
			mode = Copy
			if noCopy(v.Type()) {
				mode = Borrow
			}
		}
		c := byVar[v]
		if c == nil {
			c = &Capture{Var: v, Mode: mode, First: id.Pos()}
			byVar[v] = c
		}
		if mode > c.Mode {
			c.Mode = mode
		}
	})

	var list []*Capture
	for _, c := range byVar {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Var.Pos() < list[j].Var.Pos() })
	return list
}

// isLocalOf reports whether v is declared inside fn,
// including its parameters and results.
func isLocalOf(v *types.Var, fn ast.Node) bool {
	return v.Pkg() != nil && v.Parent() != v.Pkg().Scope() && fn.Pos() <= v.Pos() && v.Pos() < fn.End()
}

// useMode classifies the use of v at stack[0].
func useMode(u *Unit, v *types.Var, stack []ast.Node) CaptureMode {
	if mutatedAt(u, stack) {
		return Mutate
	}
	if movedAt(stack) {
		return Move
	}
	if noCopy(v.Type()) {
		return Borrow
	}
	return Copy
}

// mutatedAt reports whether the use of a variable or field at stack[0]
// can change it, directly or through an addressable selector chain
// such as v.f.g or v[i] on an array.
func mutatedAt(u *Unit, stack []ast.Node) bool {
	mutated, _ := accessAt(u, stack)
	return mutated
}

// addressedAt reports whether the use of a variable at stack[0] takes
// its address, or the address of part of it: &v.f, a pointer method
// call, or slicing an array.
func addressedAt(u *Unit, stack []ast.Node) bool {
	_, addressed := accessAt(u, stack)
	return addressed
}

func accessAt(u *Unit, stack []ast.Node) (mutated, addressed bool) {
	x, ok := stack[0].(ast.Expr)
	if !ok {
		return false, false
	}
	i := 1
	for ; i < len(stack); i++ {
		switch p := stack[i].(type) {
		case *ast.ParenExpr:
			x = p
			continue
		case *ast.SelectorExpr:
			if p.X != x {
				return false, false
			}
			sel := u.Info.Selections[p]
			if sel == nil {
				return false, false
			}
			if sel.Kind() == types.MethodVal {
				// A pointer method on an addressable value takes its address.
				taken := pointerRecv(sel.Obj().(*types.Func)) && !isPointer(u.Info.TypeOf(x))
				return taken, taken
			}
			if isPointer(u.Info.TypeOf(x)) || sel.Indirect() {
				return false, false
			}
			x = p
			continue
		case *ast.IndexExpr:
			if p.X != x {
				return false, false
			}
			if _, ok := u.Info.TypeOf(x).Underlying().(*types.Array); !ok {
				return false, false
			}
			x = p
			continue
		case *ast.SliceExpr:
			// Slicing an array takes its address.
			if p.X != x {
				return false, false
			}
			_, ok := u.Info.TypeOf(x).Underlying().(*types.Array)
			return ok, ok
		case *ast.UnaryExpr:
			taken := p.Op == token.AND && p.X == x
			return taken, taken
		case *ast.IncDecStmt:
			return p.X == x, false
		case *ast.AssignStmt:
			for _, l := range p.Lhs {
				if l == x {
					return true, false
				}
			}
			return false, false
		case *ast.RangeStmt:
			return p.Tok == token.ASSIGN && (p.Key == x || p.Value == x), false
		}
		break
	}
	return false, false
}

// movedAt reports whether the variable at stack[0] is handed off whole.
func movedAt(stack []ast.Node) bool {
	x := stack[0]
	for _, n := range stack[1:] {
		switch p := n.(type) {
		case *ast.ParenExpr:
			x = p
			continue
		case *ast.SendStmt:
			return p.Value == x
		case *ast.ReturnStmt:
			return true
		case *ast.KeyValueExpr:
			return p.Value == x
		case *ast.CompositeLit:
			return true
		case *ast.CallExpr:
			for _, s := range stack {
				switch s := s.(type) {
				case *ast.GoStmt:
					return s.Call == p && p.Fun != x
				case *ast.DeferStmt:
					return s.Call == p && p.Fun != x
				}
			}
			return false
		}
		return false
	}
	return false
}

// usedOutside reports whether v is used in fn outside scope at a point
// that can execute after it: later in the text, anywhere in a loop
// that encloses scope within v's own scope, or in a closure that does
// not contain scope, which may be called or deferred to run later.
func usedOutside(u *Unit, v *types.Var, fn ast.Node, scope Span) bool {
	after := scope.End
	loop := enclosingLoop(fn, scope, v)
	used := false
	Walk(fn, func(stack []ast.Node) {
		if used {
			return
		}
		id, ok := stack[0].(*ast.Ident)
		if !ok || u.Info.Uses[id] != v || scope.Contains(id) {
			return
		}
		switch {
		case id.Pos() >= after:
			used = true
		case loop != nil && loop.Pos() <= id.Pos() && id.End() <= loop.End():
			used = true
		default:
			for _, n := range stack[1:] {
				if lit, ok := n.(*ast.FuncLit); ok && !(lit.Pos() <= scope.Pos && scope.End <= lit.End()) {
					used = true
					break
				}
			}
		}
	})
	return used
}

// enclosingLoop returns the outermost loop in fn that encloses scope
// but not the declaration of v.
func enclosingLoop(fn ast.Node, scope Span, v *types.Var) ast.Node {
	var loop ast.Node
	ast.Inspect(fn, func(n ast.Node) bool {
		if n == nil || loop != nil {
			return false
		}
		if n.Pos() > scope.Pos || n.End() < scope.End {
			return false
		}
		switch n.(type) {
		case *ast.ForStmt, *ast.RangeStmt:
			if !(n.Pos() <= v.Pos() && v.Pos() < n.End()) {
				loop = n
				return false
			}
		case *ast.FuncLit:
			if n.Pos() < scope.Pos {
				// A closure may run any number of times.
				loop = n
				return false
			}
		}
		return true
	})
	return loop
}

// addrTaken reports whether the address of v is taken anywhere in fn,
// explicitly or by calling a pointer method.
func addrTaken(u *Unit, v *types.Var, fn ast.Node) bool {
	taken := false
	Walk(fn, func(stack []ast.Node) {
		if taken {
			return
		}
		if id, ok := stack[0].(*ast.Ident); ok && u.Info.Uses[id] == v {
			for _, n := range stack[1:] {
				switch p := n.(type) {
				case *ast.ParenExpr:
					continue
				case *ast.UnaryExpr:
					taken = p.Op == token.AND
				case *ast.SelectorExpr:
					if sel := u.Info.Selections[p]; sel != nil && sel.Kind() == types.MethodVal {
						taken = pointerRecv(sel.Obj().(*types.Func)) && !isPointer(v.Type())
					}
				}
				break
			}
		}
	})
	return taken
}

func pointerRecv(fn *types.Func) bool {
	recv := fn.Type().(*types.Signature).Recv()
	return recv != nil && isPointer(recv.Type())
}

func isPointer(t types.Type) bool {
	if t == nil {
		return false
	}
	_, ok := t.Underlying().(*types.Pointer)
	return ok
}

// noCopy reports whether values of type t must not be copied after
// first use: t contains, by value, a type with Lock and Unlock methods
// on its pointer.
func noCopy(t types.Type) bool {
	return lockPath(t, make(map[types.Type]bool))
}

func lockPath(t types.Type, seen map[types.Type]bool) bool {
	if t == nil || seen[t] {
		return false
	}
	seen[t] = true
	if _, ok := t.Underlying().(*types.Interface); ok {
		return false
	}
	if _, ok := t.(*types.Named); ok {
		ms := types.NewMethodSet(types.NewPointer(t))
		if ms.Lookup(nil, "Lock") != nil && ms.Lookup(nil, "Unlock") != nil {
			if types.NewMethodSet(t).Lookup(nil, "Lock") == nil {
				return true
			}
		}
	}
	switch u := t.Underlying().(type) {
	case *types.Struct:
		for i := 0; i < u.NumFields(); i++ {
			if lockPath(u.Field(i).Type(), seen) {
				return true
			}
		}
	case *types.Array:
		return lockPath(u.Elem(), seen)
	}
	return false
}
