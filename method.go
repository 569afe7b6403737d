// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"go.uber.org/zap"
	"rsc.io/rfx/refactor"
)

var makeMethodKind = &refactor.Kind{
	Name:  "make-method",
	Doc:   "turn a function into a method of the type of one of its parameters",
	Phase: refactor.PhaseTypes,
	Scan:  scanMethodCandidates,
	Apply: makeMethod,
}

func scanMethodCandidates(u *refactor.Unit) []refactor.Span {
	var spans []refactor.Span
	u.ForEachFile(func(f *refactor.File) {
		for _, d := range f.Syntax.Decls {
			fd, ok := d.(*ast.FuncDecl)
			if !ok || fd.Recv != nil || fd.Body == nil || u.Synthetic(fd) {
				continue
			}
			if fn, ok := u.Info.Defs[fd.Name].(*types.Func); ok {
				if _, _, ok := receiverParam(u, fn); ok {
					spans = append(spans, refactor.NodeSpan(fd.Name))
				}
			}
		}
	})
	return spans
}

// selectedFunc returns the top-level function declaration the selection
// names or lies in.
func selectedFunc(u *refactor.Unit, a *refactor.Anchor) *ast.FuncDecl {
	if a.Item != nil && (a.Item.Kind == refactor.ItemFunc || a.Item.Kind == refactor.ItemMethod) {
		for _, n := range u.SyntaxAt(a.Item.Obj.Pos()) {
			if fd, ok := n.(*ast.FuncDecl); ok {
				return fd
			}
		}
		return nil
	}
	for _, n := range a.Stack {
		if fd, ok := n.(*ast.FuncDecl); ok {
			return fd
		}
	}
	return nil
}

// receiverParam returns the first parameter of fn whose type is a named
// type, or a pointer to one, that is declared in fn's package and can
// have methods.
func receiverParam(u *refactor.Unit, fn *types.Func) (int, *types.Named, bool) {
	sig := fn.Type().(*types.Signature)
	for i := 0; i < sig.Params().Len(); i++ {
		if sig.Variadic() && i == sig.Params().Len()-1 {
			break
		}
		t := types.Unalias(sig.Params().At(i).Type())
		if p, ok := t.(*types.Pointer); ok {
			t = types.Unalias(p.Elem())
		}
		named, ok := t.(*types.Named)
		if !ok || named.Obj().Pkg() != u.Types || named.Obj().Parent() != u.Types.Scope() || named.TypeParams().Len() > 0 {
			continue
		}
		switch named.Underlying().(type) {
		case *types.Interface, *types.Pointer:
			continue
		}
		return i, named, true
	}
	return 0, nil, false
}

// makeMethod rewrites
//
//	func F(a A, t T, b B)
//
// where T is a named type of the same package into
//
//	func (t T) F(a A, b B)
//
// and each call F(x, y, z) into y.F(x, z). A use of F as a value
// becomes the method expression T.F when t is the first parameter.
func makeMethod(c *refactor.Context) error {
	u, a := c.Unit, c.Anchor
	fd := selectedFunc(u, a)
	if fd == nil {
		return refactor.NotApplicablef("%s: no function selected", u.Addr(a.Span.Pos))
	}
	if fd.Recv != nil {
		return refactor.NotApplicablef("%s: %s is already a method", u.Addr(fd.Pos()), fd.Name.Name)
	}
	if fd.Type.TypeParams != nil {
		return refactor.NotApplicablef("%s: %s is generic", u.Addr(fd.Pos()), fd.Name.Name)
	}
	fn, ok := u.Info.Defs[fd.Name].(*types.Func)
	if !ok {
		return refactor.Errorf(refactor.Internal, "%s: no type information for %s", u.Addr(fd.Pos()), fd.Name.Name)
	}
	idx, named, ok := receiverParam(u, fn)
	if !ok {
		return refactor.NotApplicablef("%s: %s has no parameter of a named type of this package", u.Addr(fd.Pos()), fn.Name())
	}
	if obj, _, _ := types.LookupFieldOrMethod(named, true, u.Types, fn.Name()); obj != nil {
		return refactor.NotApplicablef("%s: %s already has a field or method %s", u.Addr(fd.Pos()), named.Obj().Name(), fn.Name())
	}
	sig := fn.Type().(*types.Signature)
	recvVar := sig.Params().At(idx)
	_, ptrRecv := recvVar.Type().(*types.Pointer)
	id, _ := refactor.DefIDOf(fn)
	refs := refactor.CollectReferences(u, id)

	// Check every use before editing anything.
	var calls []refactor.Span
	for _, r := range refs {
		switch r.Kind {
		case refactor.RefCall:
			if r.Call.Ellipsis.IsValid() || len(r.Call.Args) != sig.Params().Len() {
				return refactor.NotApplicablef("%s: cannot rewrite call of %s", u.Addr(r.Call.Pos()), fn.Name())
			}
			for _, s := range calls {
				if s.Contains(r.Call) {
					return refactor.NotApplicablef("%s: call of %s is an argument of another", u.Addr(r.Call.Pos()), fn.Name())
				}
			}
			calls = append(calls, refactor.NodeSpan(r.Call))
		case refactor.RefValue:
			if idx != 0 {
				return refactor.NotApplicablef("%s: %s is used as a value", u.Addr(r.Ident.Pos()), fn.Name())
			}
		case refactor.RefQualified:
			return refactor.NotApplicablef("%s: %s is used from another package", u.Addr(r.Ident.Pos()), fn.Name())
		}
	}

	// The declaration.
	var recvField, rest []string
	for _, field := range fd.Type.Params.List {
		t := u.NodeText(field.Type)
		if len(field.Names) == 0 {
			if len(recvField) == 0 && len(rest) == idx {
				recvField = append(recvField, t)
			} else {
				rest = append(rest, t)
			}
			continue
		}
		var names []string
		for _, n := range field.Names {
			if u.Info.Defs[n] == recvVar {
				recvField = append(recvField, n.Name+" "+t)
				continue
			}
			names = append(names, n.Name)
		}
		if len(names) > 0 {
			rest = append(rest, strings.Join(names, ", ")+" "+t)
		}
	}
	if len(recvField) != 1 {
		return refactor.Errorf(refactor.Internal, "%s: cannot find receiver parameter of %s", u.Addr(fd.Pos()), fn.Name())
	}
	c.Edits.Insert(fd.Name.Pos(), "("+recvField[0]+") ")
	params := fd.Type.Params
	c.Edits.Replace(params.Opening, params.Closing+1, "("+strings.Join(rest, ", ")+")")
	c.Mark(fd.Name.Pos(), fd.Name.End())

	recvType := named.Obj().Name()
	if ptrRecv {
		recvType = "(*" + recvType + ")"
	}
	for _, r := range refs {
		switch r.Kind {
		case refactor.RefCall:
			var args []string
			for i, arg := range r.Call.Args {
				if i != idx {
					args = append(args, u.NodeText(arg))
				}
			}
			recv := receiverText(u, r.Call.Args[idx], ptrRecv)
			c.Edits.ReplaceNode(r.Call, recv+"."+fn.Name()+"("+strings.Join(args, ", ")+")")
		case refactor.RefValue:
			c.Edits.ReplaceNode(r.Ident, recvType+"."+fn.Name())
		}
	}
	c.Log.Debug("make method", zap.String("func", fn.Name()), zap.String("type", named.Obj().Name()), zap.Int("refs", len(refs)))
	return nil
}

// receiverText returns the text of arg for use as the operand of a
// method call. An argument &x for a pointer receiver becomes x, which
// the method call takes the address of.
func receiverText(u *refactor.Unit, arg ast.Expr, ptrRecv bool) string {
	if ptrRecv {
		if x, ok := arg.(*ast.UnaryExpr); ok && x.Op == token.AND {
			switch refactor.Unparen(x.X).(type) {
			case *ast.Ident, *ast.SelectorExpr, *ast.IndexExpr:
				return u.NodeText(x.X)
			}
		}
	}
	switch arg.(type) {
	case *ast.Ident, *ast.SelectorExpr, *ast.CallExpr, *ast.IndexExpr, *ast.ParenExpr:
		return u.NodeText(arg)
	}
	return "(" + u.NodeText(arg) + ")"
}
