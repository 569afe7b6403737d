// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/types"
	"sort"
)

// A Local is a variable declared in a statement range and used after it.
type Local struct {
	Var          *types.Var
	MutatedAfter bool // some later use may change it

	// Aliased is set if the range takes the address of the variable,
	// or of part of it, or refers to it from a function literal.
	// A copy of the variable carried out of the range would then
	// diverge from the alias.
	Aliased bool
}

// DeclaredUsedAfter returns the variables declared at the top level of
// stmts and used after them in fn, ordered by declaration.
// Constants and types declared in stmts and used after them cannot be
// carried out of a function literal, so they are a NotApplicable error.
func DeclaredUsedAfter(u *Unit, stmts []ast.Stmt, fn ast.Node) ([]*Local, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	scope := Span{stmts[0].Pos(), stmts[len(stmts)-1].End()}

	// Objects declared directly in the statement list.
	decls := make(map[types.Object]bool)
	for _, s := range stmts {
		for _, id := range topLevelDefs(s) {
			if obj := u.Info.Defs[id]; obj != nil {
				decls[obj] = true
			}
		}
	}

	aliased := make(map[types.Object]bool)
	byVar := make(map[*types.Var]*Local)
	var err error
	Walk(fn, func(stack []ast.Node) {
		id, ok := stack[0].(*ast.Ident)
		if !ok {
			return
		}
		if scope.Contains(id) {
			if obj := u.Info.Uses[id]; obj != nil && decls[obj] && (addressedAt(u, stack) || inLitWithin(stack, scope)) {
				aliased[obj] = true
			}
			return
		}
		if id.Pos() < scope.End {
			return
		}
		obj := u.Info.Uses[id]
		if obj == nil || !decls[obj] {
			return
		}
		switch obj := obj.(type) {
		case *types.Var:
			l := byVar[obj]
			if l == nil {
				l = &Local{Var: obj}
				byVar[obj] = l
			}
			if mutatedAt(u, stack) {
				l.MutatedAfter = true
			}
		default:
			if err == nil {
				err = NotApplicablef("%s %s is declared in the selection and used after it, at %s",
					objKind(obj), obj.Name(), u.Addr(id.Pos()))
			}
		}
	})
	if err != nil {
		return nil, err
	}

	var list []*Local
	for v, l := range byVar {
		l.Aliased = aliased[v]
		list = append(list, l)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Var.Pos() < list[j].Var.Pos() })
	return list, nil
}

// inLitWithin reports whether stack[0] is inside a function literal
// that is itself inside scope.
func inLitWithin(stack []ast.Node, scope Span) bool {
	for _, n := range stack[1:] {
		if lit, ok := n.(*ast.FuncLit); ok && scope.Contains(lit) {
			return true
		}
	}
	return false
}

// topLevelDefs returns the identifiers that s declares in its
// enclosing block.
func topLevelDefs(s ast.Stmt) []*ast.Ident {
	var ids []*ast.Ident
	switch s := s.(type) {
	case *ast.AssignStmt:
		for _, l := range s.Lhs {
			if id, ok := l.(*ast.Ident); ok && id.Name != "_" {
				ids = append(ids, id)
			}
		}
	case *ast.DeclStmt:
		gen, ok := s.Decl.(*ast.GenDecl)
		if !ok {
			break
		}
		for _, spec := range gen.Specs {
			switch spec := spec.(type) {
			case *ast.ValueSpec:
				ids = append(ids, spec.Names...)
			case *ast.TypeSpec:
				ids = append(ids, spec.Name)
			}
		}
	case *ast.LabeledStmt:
		return topLevelDefs(s.Stmt)
	}
	return ids
}

func objKind(obj types.Object) string {
	switch obj.(type) {
	case *types.Const:
		return "constant"
	case *types.TypeName:
		return "type"
	case *types.Var:
		return "variable"
	case *types.Func:
		return "function"
	case *types.Label:
		return "label"
	}
	return "object"
}
