// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"sort"
)

// A PatternKind classifies a use of a field as an assignment target
// or as part of a value that is matched against.
type PatternKind int

const (
	// PatternBinding stores into the field, as a target of a
	// tuple assignment or of a range clause.
	PatternBinding PatternKind = iota

	// PatternOther matches against the field's value: a keyed
	// literal compared with == or != or used as a switch case.
	PatternOther
)

// A FieldConstruct is an expression initializing the field in a
// composite literal.
type FieldConstruct struct {
	Lit   *ast.CompositeLit
	Key   *ast.KeyValueExpr // nil for a positional element
	Value ast.Expr
}

// A FieldAccess is a selector v.f naming the field.
type FieldAccess struct {
	Sel     *ast.SelectorExpr
	Addr    *ast.UnaryExpr // enclosing &v.f, if any
	Chain   bool           // v.f is itself the operand of a selector
	Mutates bool           // v.f is assigned, or its address is taken
}

// A FieldPattern is an occurrence of the field in a pattern position.
type FieldPattern struct {
	Kind PatternKind
	Node ast.Node
}

// FieldUses partitions the occurrences of a struct field.
type FieldUses struct {
	Field      *types.Var
	Struct     *types.Named // named struct type declaring the field
	Constructs []*FieldConstruct
	Accesses   []*FieldAccess
	Patterns   []*FieldPattern
	Compared   []ast.Node // comparisons or map keys of the struct type

	// Implicit lists the places that can make a zero value of the
	// struct, which omits the field: literals without it, var
	// declarations and new, named results, make of a slice, types
	// holding the struct by value (arrays, other structs, map values,
	// channel elements) and generic instantiations with it.
	// It is sorted by position.
	Implicit []ast.Node

	// Copies lists the expressions that copy an existing value of the
	// struct: variables, fields, elements and dereferences used as
	// values, including value method receivers and range values.
	Copies []ast.Node
}

// Mutated returns the first access that can change the field's value
// in place, or nil.
func (fu *FieldUses) Mutated() *FieldAccess {
	for _, a := range fu.Accesses {
		if a.Mutates {
			return a
		}
	}
	return nil
}

// Unsafe returns the first pattern occurrence that is not a binding.
func (fu *FieldUses) Unsafe() *FieldPattern {
	for _, p := range fu.Patterns {
		if p.Kind == PatternOther {
			return p
		}
	}
	return nil
}

// CollectFieldUses returns the uses in u of field, which is declared
// in the named struct type st.
func CollectFieldUses(u *Unit, st *types.Named, field *types.Var) *FieldUses {
	fu := &FieldUses{Field: field, Struct: st}
	isT := func(t types.Type) bool { return t != nil && types.Identical(t, st) }

	for _, f := range u.Files {
		Walk(f.Syntax, func(stack []ast.Node) {
			if e, ok := stack[0].(ast.Expr); ok && copiedAt(u, e, stack, isT) {
				fu.Copies = append(fu.Copies, e)
			}
			switch n := stack[0].(type) {
			case *ast.CompositeLit:
				if !isT(u.Info.TypeOf(n)) {
					return
				}
				found := false
				for i, elt := range n.Elts {
					if kv, ok := elt.(*ast.KeyValueExpr); ok {
						if id, ok := kv.Key.(*ast.Ident); ok && u.Info.Uses[id] == field {
							fu.Constructs = append(fu.Constructs, &FieldConstruct{Lit: n, Key: kv, Value: kv.Value})
							found = true
							if matchedAgainst(stack) {
								fu.Patterns = append(fu.Patterns, &FieldPattern{PatternOther, kv})
							}
						}
						continue
					}
					if fieldIndex(st, field) == i {
						fu.Constructs = append(fu.Constructs, &FieldConstruct{Lit: n, Value: elt})
						found = true
						if matchedAgainst(stack) {
							fu.Patterns = append(fu.Patterns, &FieldPattern{PatternOther, elt})
						}
					}
				}
				if !found {
					fu.Implicit = append(fu.Implicit, n)
				}

			case *ast.ValueSpec:
				if n.Type != nil && len(n.Values) == 0 && isT(u.Info.TypeOf(n.Type)) {
					fu.Implicit = append(fu.Implicit, n)
				}

			case *ast.CallExpr:
				id, ok := Unparen(n.Fun).(*ast.Ident)
				if !ok || len(n.Args) == 0 {
					return
				}
				b, ok := u.Info.Uses[id].(*types.Builtin)
				if !ok {
					return
				}
				switch b.Name() {
				case "new":
					if isT(u.Info.TypeOf(n.Args[0])) {
						fu.Implicit = append(fu.Implicit, n)
					}
				case "make":
					// Only make([]T, 0) creates no elements.
					if sl, ok := u.Info.TypeOf(n.Args[0]).Underlying().(*types.Slice); ok && (isT(sl.Elem()) || holds(sl.Elem(), st)) && !(len(n.Args) == 2 && isZero(u, n.Args[1])) {
						fu.Implicit = append(fu.Implicit, n)
					}
				}

			case *ast.FuncType:
				if n.Results == nil {
					return
				}
				for _, r := range n.Results.List {
					if len(r.Names) > 0 && isT(u.Info.TypeOf(r.Type)) {
						fu.Implicit = append(fu.Implicit, r)
					}
				}

			case *ast.RangeStmt:
				if n.Value != nil && isT(u.Info.TypeOf(n.Value)) {
					fu.Copies = append(fu.Copies, n.Value)
				}

			case *ast.SelectorExpr:
				s := u.Info.Selections[n]
				if s != nil && s.Kind() == types.MethodVal && !pointerRecv(s.Obj().(*types.Func)) {
					// p.m() with a value method copies *p.
					if pt, ok := u.Info.TypeOf(n.X).Underlying().(*types.Pointer); ok && isT(pt.Elem()) {
						fu.Copies = append(fu.Copies, n.X)
					}
				}
				if s == nil || s.Kind() != types.FieldVal || s.Obj() != field {
					return
				}
				a := &FieldAccess{Sel: n, Mutates: mutatedAt(u, stack)}
				if len(stack) > 1 {
					switch p := stack[1].(type) {
					case *ast.UnaryExpr:
						if p.Op == token.AND {
							a.Addr = p
						}
					case *ast.SelectorExpr:
						a.Chain = p.X == n
					}
				}
				fu.Accesses = append(fu.Accesses, a)
				if bindingTarget(n, stack) {
					fu.Patterns = append(fu.Patterns, &FieldPattern{PatternBinding, n})
				}

			case *ast.BinaryExpr:
				if (n.Op == token.EQL || n.Op == token.NEQ) && (isT(u.Info.TypeOf(n.X)) || isT(u.Info.TypeOf(n.Y))) {
					fu.Compared = append(fu.Compared, n)
				}

			case *ast.SwitchStmt:
				if n.Tag != nil && isT(u.Info.TypeOf(n.Tag)) {
					fu.Compared = append(fu.Compared, n)
				}

			case *ast.MapType:
				if isT(u.Info.TypeOf(n.Key)) {
					fu.Compared = append(fu.Compared, n)
				}
			}
		})
	}

	for e, tv := range u.Info.Types {
		if tv.IsType() && holds(tv.Type, st) {
			fu.Implicit = append(fu.Implicit, e)
		}
	}
	for id, inst := range u.Info.Instances {
		for i := 0; i < inst.TypeArgs.Len(); i++ {
			if t := inst.TypeArgs.At(i); isT(t) || holds(t, st) {
				fu.Implicit = append(fu.Implicit, id)
				break
			}
		}
	}
	sort.Slice(fu.Implicit, func(i, j int) bool { return fu.Implicit[i].Pos() < fu.Implicit[j].Pos() })
	return fu
}

// holds reports whether a zero value of t contains a value of type st:
// t is an array, struct, map or channel with st, or a type holding st,
// as an element. Pointers and slices hold no values of their own.
func holds(t types.Type, st *types.Named) bool {
	return holdsIn(t, st, make(map[types.Type]bool))
}

func holdsIn(t types.Type, st *types.Named, seen map[types.Type]bool) bool {
	if t == nil || seen[t] {
		return false
	}
	seen[t] = true
	elem := func(e types.Type) bool { return types.Identical(e, st) || holdsIn(e, st, seen) }
	switch t := t.Underlying().(type) {
	case *types.Array:
		return elem(t.Elem())
	case *types.Map:
		return elem(t.Elem())
	case *types.Chan:
		return elem(t.Elem())
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			if elem(t.Field(i).Type()) {
				return true
			}
		}
	}
	return false
}

func isZero(u *Unit, x ast.Expr) bool {
	v := u.Info.Types[x].Value
	return v != nil && v.Kind() == constant.Int && constant.Sign(v) == 0
}

// copiedAt reports whether the expression e at stack[0] copies an
// existing value of the struct: e is a variable, field, element or
// dereference of the struct type, used as a value rather than as an
// operand of a field selector, &, a pointer method, a comparison or an
// assignment target.
func copiedAt(u *Unit, e ast.Expr, stack []ast.Node, isT func(types.Type) bool) bool {
	tv, ok := u.Info.Types[e]
	if !ok || !tv.IsValue() || !isT(tv.Type) {
		return false
	}
	switch e := e.(type) {
	case *ast.Ident:
		if _, ok := u.Info.Uses[e].(*types.Var); !ok {
			return false
		}
	case *ast.SelectorExpr:
		if s := u.Info.Selections[e]; s != nil {
			if s.Kind() != types.FieldVal {
				return false
			}
		} else if _, ok := u.Info.Uses[e.Sel].(*types.Var); !ok {
			return false
		}
	case *ast.IndexExpr, *ast.StarExpr:
	default:
		return false
	}
	x := ast.Node(e)
	for _, n := range stack[1:] {
		switch p := n.(type) {
		case *ast.ParenExpr:
			x = p
			continue
		case *ast.SelectorExpr:
			if p.X != x {
				return false
			}
			if s := u.Info.Selections[p]; s != nil && s.Kind() == types.MethodVal {
				return !pointerRecv(s.Obj().(*types.Func))
			}
			return false
		case *ast.UnaryExpr:
			return p.Op != token.AND
		case *ast.BinaryExpr:
			return false
		case *ast.KeyValueExpr:
			return p.Value == x
		case *ast.AssignStmt:
			for _, l := range p.Lhs {
				if l == x {
					return false
				}
			}
		case *ast.RangeStmt:
			return false
		}
		return true
	}
	return false
}

func fieldIndex(st *types.Named, field *types.Var) int {
	s := st.Underlying().(*types.Struct)
	for i := 0; i < s.NumFields(); i++ {
		if s.Field(i) == field {
			return i
		}
	}
	return -1
}

// matchedAgainst reports whether the composite literal at stack[0] is
// a value compared with == or != or listed as a switch case.
func matchedAgainst(stack []ast.Node) bool {
	x := stack[0]
	for _, n := range stack[1:] {
		switch p := n.(type) {
		case *ast.ParenExpr:
			x = p
			continue
		case *ast.BinaryExpr:
			return p.Op == token.EQL || p.Op == token.NEQ
		case *ast.CaseClause:
			for _, e := range p.List {
				if e == x {
					return true
				}
			}
		}
		return false
	}
	return false
}

// bindingTarget reports whether the selector sel is stored into by a
// tuple assignment or a range clause.
func bindingTarget(sel *ast.SelectorExpr, stack []ast.Node) bool {
	if len(stack) < 2 {
		return false
	}
	switch p := stack[1].(type) {
	case *ast.AssignStmt:
		if len(p.Lhs) < 2 {
			return false
		}
		for _, l := range p.Lhs {
			if l == sel {
				return true
			}
		}
	case *ast.RangeStmt:
		return p.Key == sel || p.Value == sel
	}
	return false
}
