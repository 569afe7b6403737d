// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/types"
	"strings"
)

// A DefID identifies a package-level function ("F") or a method of a
// named type ("T.M") independently of any one compilation.
type DefID struct {
	PkgPath string
	Name    string
}

func (id DefID) String() string {
	if id.PkgPath == "" {
		return id.Name
	}
	return id.PkgPath + "." + id.Name
}

// IsZero reports whether id identifies nothing.
func (id DefID) IsZero() bool { return id.Name == "" }

// DefIDOf returns the DefID of obj, which must be a package-level
// function or a method of a named non-interface type.
func DefIDOf(obj types.Object) (DefID, bool) {
	fn, ok := obj.(*types.Func)
	if !ok || fn.Pkg() == nil {
		return DefID{}, false
	}
	fn = fn.Origin()
	recv := fn.Type().(*types.Signature).Recv()
	if recv == nil {
		if fn.Parent() != fn.Pkg().Scope() {
			return DefID{}, false
		}
		return DefID{fn.Pkg().Path(), fn.Name()}, true
	}
	rtyp := recv.Type()
	if ptr, ok := rtyp.(*types.Pointer); ok {
		rtyp = ptr.Elem()
	}
	named, ok := rtyp.(*types.Named)
	if !ok {
		return DefID{}, false
	}
	if _, ok := named.Underlying().(*types.Interface); ok {
		// Interface methods have no single definition.
		return DefID{}, false
	}
	return DefID{fn.Pkg().Path(), named.Obj().Name() + "." + fn.Name()}, true
}

// Object resolves id in u, or returns nil.
func (id DefID) Object(u *Unit) *types.Func {
	if u.Types == nil {
		return nil
	}
	pkg := u.Types
	if id.PkgPath != pkg.Path() {
		pkg = nil
		for _, imp := range u.Types.Imports() {
			if imp.Path() == id.PkgPath {
				pkg = imp
			}
		}
		if pkg == nil {
			return nil
		}
	}
	if typ, name, ok := strings.Cut(id.Name, "."); ok {
		tn, ok := pkg.Scope().Lookup(typ).(*types.TypeName)
		if !ok {
			return nil
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			return nil
		}
		for j := 0; j < named.NumMethods(); j++ {
			if named.Method(j).Name() == name {
				return named.Method(j)
			}
		}
		return nil
	}
	fn, _ := pkg.Scope().Lookup(id.Name).(*types.Func)
	return fn
}

// A RefKind says how a reference names a definition.
type RefKind int

const (
	RefDecl       RefKind = iota // the declaring identifier
	RefCall                      // F(...)
	RefQualified                 // pkg.F(...)
	RefValue                     // F, pkg.F, T.M or x.M used as a value
	RefMethodCall                // x.M(...), including promoted methods
)

func (k RefKind) String() string {
	switch k {
	case RefDecl:
		return "decl"
	case RefCall:
		return "call"
	case RefQualified:
		return "qualified"
	case RefValue:
		return "value"
	case RefMethodCall:
		return "method call"
	}
	return "RefKind(?)"
}

// A Reference is one occurrence of a definition's name.
type Reference struct {
	Kind     RefKind
	Ident    *ast.Ident
	File     *File
	Sel      *ast.SelectorExpr // enclosing selector, if the name is selected
	Call     *ast.CallExpr     // enclosing call, if the reference is called
	Recv     ast.Expr          // receiver expression of a method call or value
	Implicit bool              // Recv is reached through embedded fields
}

// CollectReferences returns every occurrence in u of the name of the
// definition id, in source order. Calls through interfaces are not
// references to any concrete method and are not reported.
func CollectReferences(u *Unit, id DefID) []*Reference {
	var refs []*Reference
	for _, f := range u.Files {
		Walk(f.Syntax, func(stack []ast.Node) {
			ident, ok := stack[0].(*ast.Ident)
			if !ok {
				return
			}
			obj := u.Info.Defs[ident]
			decl := obj != nil
			if !decl {
				obj = u.Info.Uses[ident]
			}
			if obj == nil {
				return
			}
			if got, ok := DefIDOf(obj); !ok || got != id {
				return
			}
			r := &Reference{Ident: ident, File: f}
			if decl {
				r.Kind = RefDecl
				refs = append(refs, r)
				return
			}
			parent := ast.Node(nil)
			if len(stack) > 1 {
				parent = stack[1]
			}
			if sel, ok := parent.(*ast.SelectorExpr); ok && sel.Sel == ident {
				r.Sel = sel
				parent = nil
				if len(stack) > 2 {
					parent = stack[2]
				}
			}
			var outer ast.Node = ident
			if r.Sel != nil {
				outer = r.Sel
			}
			if call, ok := parent.(*ast.CallExpr); ok && call.Fun == outer {
				r.Call = call
			}
			switch {
			case r.Sel == nil && r.Call != nil:
				r.Kind = RefCall
			case r.Sel == nil:
				r.Kind = RefValue
			default:
				s := u.Info.Selections[r.Sel]
				switch {
				case s == nil:
					// Qualified identifier pkg.F.
					r.Kind = RefQualified
					if r.Call == nil {
						r.Kind = RefValue
					}
				case s.Kind() == types.MethodVal:
					r.Recv = r.Sel.X
					r.Implicit = len(s.Index()) > 1
					r.Kind = RefMethodCall
					if r.Call == nil {
						r.Kind = RefValue
					}
				default:
					// Method expression T.M.
					r.Kind = RefValue
				}
			}
			refs = append(refs, r)
		})
	}
	return refs
}
