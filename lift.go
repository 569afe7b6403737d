// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/ast/astutil"
	"rsc.io/rfx/refactor"
)

var liftClosureKind = &refactor.Kind{
	Name:  "lift-closure",
	Doc:   "turn an immediately invoked function literal into a top-level function",
	Phase: refactor.PhaseTypes,
	Scan:  scanIIFEs,
	Apply: liftClosure,
}

func scanIIFEs(u *refactor.Unit) []refactor.Span {
	var spans []refactor.Span
	u.ForEachFile(func(f *refactor.File) {
		ast.Inspect(f.Syntax, func(n ast.Node) bool {
			if call, ok := n.(*ast.CallExpr); ok {
				if _, ok := refactor.IsIIFE(call); ok && !u.Synthetic(call) {
					spans = append(spans, refactor.NodeSpan(call))
				}
			}
			return true
		})
	})
	return spans
}

// findIIFE returns the immediately invoked function literal enclosing
// the selection or, failing that, the first one inside it, along with
// the stack of nodes enclosing the call.
func findIIFE(a *refactor.Anchor) (*ast.CallExpr, *ast.FuncLit, []ast.Node) {
	for i, n := range a.Stack {
		if call, ok := n.(*ast.CallExpr); ok {
			if lit, ok := refactor.IsIIFE(call); ok {
				return call, lit, a.Stack[i:]
			}
		}
	}
	if len(a.Stack) == 0 {
		return nil, nil, nil
	}
	var (
		call *ast.CallExpr
		lit  *ast.FuncLit
	)
	ast.Inspect(a.Stack[0], func(n ast.Node) bool {
		if call != nil {
			return false
		}
		if c, ok := n.(*ast.CallExpr); ok && a.Span.Contains(c) {
			if l, ok := refactor.IsIIFE(c); ok {
				call, lit = c, l
				return false
			}
		}
		return true
	})
	if call == nil {
		return nil, nil, nil
	}
	stack, _ := astutil.PathEnclosingInterval(a.File.Syntax, call.Pos(), call.End())
	return call, lit, stack
}

// liftClosure replaces func(params) R { body }(args) with
// name(captures, args) and declares
//
//	func name(captures, params) R { body }
//
// after the enclosing top-level declaration. Captured variables that
// the body changes, or whose type must not be copied, are passed by
// pointer and dereferenced in the body. All captures of a literal run
// by go or defer are passed by pointer, since the body runs later.
func liftClosure(c *refactor.Context) error {
	u, a := c.Unit, c.Anchor
	call, lit, stack := findIIFE(a)
	if call == nil {
		return refactor.NotApplicablef("%s: no immediately invoked function literal selected", u.Addr(a.Span.Pos))
	}
	if u.Synthetic(call) {
		return refactor.NotApplicablef("%s: function literal is generated", u.Addr(call.Pos()))
	}
	name := c.Name
	if !token.IsIdentifier(name) {
		return refactor.Errorf(refactor.Internal, "invalid function name %q", name)
	}
	if u.Types.Scope().Lookup(name) != nil || u.LookupAt(name, call.Pos()) != nil {
		return refactor.NotApplicablef("%s: %s is already declared", u.Addr(call.Pos()), name)
	}
	decl := refactor.EnclosingDecl(stack)
	if decl == nil {
		return refactor.NotApplicablef("%s: function literal is not in a declaration", u.Addr(call.Pos()))
	}
	fn, _, _ := refactor.EnclosingFunc(stack[1:])

	if sig, ok := u.Info.TypeOf(lit).(*types.Signature); ok {
		if why := unliftable(sig); why != "" {
			return refactor.NotApplicablef("%s: function literal %s", u.Addr(lit.Pos()), why)
		}
	}
	var caps []*refactor.Capture
	if fn != nil {
		caps = refactor.AnalyzeCaptures(u, refactor.NodeSpan(lit), fn)
		if err := checkLocalRefs(u, lit, fn); err != nil {
			return err
		}
	}
	later := false
	if len(stack) > 1 {
		switch p := stack[1].(type) {
		case *ast.GoStmt:
			later = p.Call == call
		case *ast.DeferStmt:
			later = p.Call == call
		}
	}

	f := a.File
	byPtr := make(map[*types.Var]bool)
	var params, args []string
	for _, cp := range caps {
		if why := unliftable(cp.Var.Type()); why != "" {
			return refactor.NotApplicablef("%s: captured variable %s %s", u.Addr(cp.First), cp.Var.Name(), why)
		}
		t := c.Edits.TypeString(f, decl.End(), cp.Var.Type())
		if later || cp.Mode.ByPointer() {
			byPtr[cp.Var] = true
			params = append(params, cp.Var.Name()+" *"+t)
			args = append(args, "&"+cp.Var.Name())
		} else {
			params = append(params, cp.Var.Name()+" "+t)
			args = append(args, cp.Var.Name())
		}
		c.Log.Debug("capture", zap.String("var", cp.Var.Name()), zap.Stringer("mode", cp.Mode), zap.Bool("pointer", byPtr[cp.Var]))
	}
	for _, field := range lit.Type.Params.List {
		t := u.NodeText(field.Type)
		if len(field.Names) == 0 {
			params = append(params, "_ "+t)
			continue
		}
		var names []string
		for _, id := range field.Names {
			names = append(names, id.Name)
		}
		params = append(params, strings.Join(names, ", ")+" "+t)
	}
	if len(call.Args) > 0 {
		args = append(args, string(u.Text(call.Args[0].Pos(), call.Rparen)))
	}

	body := derefCaptures(u, lit.Body, byPtr)
	body = f.Reindent(refactor.NodeSpan(lit.Body), body, f.Indent(lit.Pos()), "")
	results := ""
	if lit.Type.Results != nil {
		results = " " + u.NodeText(lit.Type.Results)
	}
	c.Edits.Insert(decl.End(), fmt.Sprintf("\n\nfunc %s(%s)%s %s", c.Marked(name), strings.Join(params, ", "), results, body))
	c.Edits.ReplaceNode(call, name+"("+strings.Join(args, ", ")+")")
	c.Log.Debug("lift closure", zap.String("at", u.Addr(call.Pos())), zap.String("name", name), zap.Int("captures", len(caps)))
	return nil
}

// derefCaptures returns the text of body with each use of a variable in
// byPtr rewritten to go through the pointer parameter of the same name.
func derefCaptures(u *refactor.Unit, body *ast.BlockStmt, byPtr map[*types.Var]bool) string {
	buf := refactor.NewTextBuffer(body.Pos(), u.NodeText(body))
	refactor.Walk(body, func(stack []ast.Node) {
		id, ok := stack[0].(*ast.Ident)
		if !ok {
			return
		}
		v, ok := u.Info.Uses[id].(*types.Var)
		if !ok || !byPtr[v] {
			return
		}
		var x ast.Node = id
		k := 1
		for ; k < len(stack); k++ {
			p, ok := stack[k].(*ast.ParenExpr)
			if !ok {
				break
			}
			x = p
		}
		if k < len(stack) {
			switch p := stack[k].(type) {
			case *ast.UnaryExpr:
				if p.Op == token.AND {
					buf.Replace(p.Pos(), p.End(), id.Name)
					return
				}
			case *ast.SelectorExpr:
				if p.X == x && autoDeref(v.Type()) {
					return
				}
			}
		}
		buf.Replace(id.Pos(), id.End(), "(*"+id.Name+")")
	})
	return buf.String()
}

// autoDeref reports whether a selector x.f on a variable x of type t
// means the same when x is a pointer to t.
func autoDeref(t types.Type) bool {
	switch t.Underlying().(type) {
	case *types.Pointer, *types.Interface:
		return false
	}
	return true
}

// checkLocalRefs reports an error if lit refers to a constant or type
// declared in fn outside lit, which a top-level function cannot see.
func checkLocalRefs(u *refactor.Unit, lit *ast.FuncLit, fn ast.Node) error {
	var err error
	ast.Inspect(lit.Body, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok || err != nil {
			return err == nil
		}
		switch obj := u.Info.Uses[id].(type) {
		case *types.Const, *types.TypeName:
			p := obj.Pos()
			if fn.Pos() <= p && p < fn.End() && !(lit.Pos() <= p && p < lit.End()) {
				err = refactor.NotApplicablef("%s: %s is declared in the enclosing function", u.Addr(id.Pos()), id.Name)
			}
		}
		return true
	})
	return err
}

// unliftable returns a description of why a value of type t cannot
// appear in a top-level function, or "" if it can.
func unliftable(t types.Type) string {
	var why string
	var visit func(t types.Type)
	visit = func(t types.Type) {
		if why != "" || t == nil {
			return
		}
		switch t := t.(type) {
		case *types.TypeParam:
			why = "has a type parameter type"
		case *types.Named:
			obj := t.Obj()
			if obj.Pkg() != nil && obj.Parent() != obj.Pkg().Scope() {
				why = "has type " + obj.Name() + ", which is local to the enclosing function"
				return
			}
			for i := 0; i < t.TypeArgs().Len(); i++ {
				visit(t.TypeArgs().At(i))
			}
		case *types.Pointer:
			visit(t.Elem())
		case *types.Slice:
			visit(t.Elem())
		case *types.Array:
			visit(t.Elem())
		case *types.Chan:
			visit(t.Elem())
		case *types.Map:
			visit(t.Key())
			visit(t.Elem())
		case *types.Signature:
			visit(t.Params())
			visit(t.Results())
		case *types.Tuple:
			for i := 0; i < t.Len(); i++ {
				visit(t.At(i).Type())
			}
		case *types.Struct:
			for i := 0; i < t.NumFields(); i++ {
				visit(t.Field(i).Type())
			}
		}
	}
	visit(t)
	return why
}
