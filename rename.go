// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"go/ast"
	"go/token"
	"go/types"

	"go.uber.org/zap"
	"rsc.io/rfx/refactor"
)

var renameKind = &refactor.Kind{
	Name:  "rename",
	Doc:   "rename a function or method and every reference to it",
	Phase: refactor.PhaseTypes,
	Scan:  scanFuncNames,
	Apply: rename,
}

func scanFuncNames(u *refactor.Unit) []refactor.Span {
	var spans []refactor.Span
	u.ForEachFile(func(f *refactor.File) {
		for _, d := range f.Syntax.Decls {
			fd, ok := d.(*ast.FuncDecl)
			if !ok || u.Synthetic(fd) {
				continue
			}
			if _, ok := refactor.DefIDOf(u.Info.Defs[fd.Name]); ok {
				spans = append(spans, refactor.NodeSpan(fd.Name))
			}
		}
	})
	return spans
}

// selectedObject returns the object named by the selection.
func selectedObject(u *refactor.Unit, a *refactor.Anchor) types.Object {
	if a.Item != nil {
		return a.Item.Obj
	}
	for _, n := range a.Stack {
		switch n := n.(type) {
		case *ast.Ident:
			if obj := u.Info.Defs[n]; obj != nil {
				return obj
			}
			return u.Info.Uses[n]
		case *ast.SelectorExpr:
			return u.Info.Uses[n.Sel]
		case *ast.FuncDecl:
			return u.Info.Defs[n.Name]
		}
	}
	return nil
}

// checkInterfaces reports an error if renaming method fn to name could
// change which interfaces its receiver type satisfies: the type, or a
// pointer to it, implements an interface that needs fn, or an interface
// has a method name with fn's signature.
func checkInterfaces(u *refactor.Unit, fn *types.Func, name string) error {
	sig := fn.Type().(*types.Signature)
	base := sig.Recv().Type()
	if p, ok := base.(*types.Pointer); ok {
		base = p.Elem()
	}
	qual := types.RelativeTo(u.Types)
	for _, t := range interfaces(u) {
		iface := t.Underlying().(*types.Interface)
		for i := 0; i < iface.NumMethods(); i++ {
			m := iface.Method(i)
			if !m.Exported() && m.Pkg() != fn.Pkg() {
				continue
			}
			switch m.Name() {
			case fn.Name():
				for _, v := range []types.Type{base, types.NewPointer(base)} {
					if types.Implements(v, iface) {
						return refactor.Rejectf("%s: %s implements %s, which needs method %s",
							u.Addr(fn.Pos()), types.TypeString(v, qual), types.TypeString(t, qual), fn.Name())
					}
				}
			case name:
				if types.Identical(withoutRecv(sig), m.Type()) {
					return refactor.Rejectf("%s: %s could come to implement %s, which has a method %s",
						u.Addr(fn.Pos()), types.TypeString(base, qual), types.TypeString(t, qual), name)
				}
			}
		}
	}
	return nil
}

func withoutRecv(sig *types.Signature) *types.Signature {
	return types.NewSignatureType(nil, nil, nil, sig.Params(), sig.Results(), sig.Variadic())
}

// interfaces returns the interface types visible to u: error, those
// declared in u or in the packages it imports, and those its code
// mentions. Generic interfaces are only returned instantiated.
func interfaces(u *refactor.Unit) []types.Type {
	seen := make(map[types.Type]bool)
	var list []types.Type
	add := func(t types.Type) {
		if t == nil || seen[t] {
			return
		}
		if _, ok := t.Underlying().(*types.Interface); !ok {
			return
		}
		if named, ok := t.(*types.Named); ok && named.TypeParams().Len() > named.TypeArgs().Len() {
			return
		}
		seen[t] = true
		list = append(list, t)
	}
	addScope := func(s *types.Scope) {
		for _, n := range s.Names() {
			if tn, ok := s.Lookup(n).(*types.TypeName); ok {
				add(tn.Type())
			}
		}
	}
	add(types.Universe.Lookup("error").Type())
	addScope(u.Types.Scope())
	for _, p := range u.Types.Imports() {
		addScope(p.Scope())
	}
	for _, tv := range u.Info.Types {
		add(tv.Type)
	}
	return list
}

// rename renames the function or method selected to c.Name, with its
// declaration and every reference in the unit.
func rename(c *refactor.Context) error {
	u, a := c.Unit, c.Anchor
	obj := selectedObject(u, a)
	id, ok := refactor.DefIDOf(obj)
	if !ok {
		return refactor.NotApplicablef("%s: no function or method selected", u.Addr(a.Span.Pos))
	}
	if id.PkgPath != u.Types.Path() {
		return refactor.NotApplicablef("%s is declared in another package", id)
	}
	fn := obj.(*types.Func)
	name := c.Name
	if !token.IsIdentifier(name) {
		return refactor.Errorf(refactor.Internal, "invalid name %q", name)
	}
	if name == fn.Name() {
		return refactor.NotApplicablef("%s is already named %s", id, name)
	}
	if recv := fn.Type().(*types.Signature).Recv(); recv != nil {
		if obj, _, _ := types.LookupFieldOrMethod(recv.Type(), true, u.Types, name); obj != nil {
			return refactor.NotApplicablef("%s: %s already has a field or method %s", u.Addr(fn.Pos()), recv.Type(), name)
		}
		if err := checkInterfaces(u, fn, name); err != nil {
			return err
		}
	} else if u.Types.Scope().Lookup(name) != nil {
		return refactor.NotApplicablef("%s: %s is already declared", u.Addr(fn.Pos()), name)
	}

	refs := refactor.CollectReferences(u, id)
	for _, r := range refs {
		if r.Kind == refactor.RefCall || (r.Kind == refactor.RefValue && r.Sel == nil) {
			if other := u.LookupAt(name, r.Ident.Pos()); other != nil && other.Parent() != u.Types.Scope() {
				return refactor.NotApplicablef("%s: %s would refer to the local %s", u.Addr(r.Ident.Pos()), name, other.Name())
			}
		}
	}
	for _, r := range refs {
		c.Edits.ReplaceNode(r.Ident, name)
		if r.Kind == refactor.RefDecl {
			c.Mark(r.Ident.Pos(), r.Ident.End())
		}
	}
	c.Log.Debug("rename", zap.Stringer("def", id), zap.String("to", name), zap.Int("refs", len(refs)))
	return nil
}
