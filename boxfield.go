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

var boxFieldKind = &refactor.Kind{
	Name:  "box-field",
	Doc:   "change a struct field of type T to *T, rewriting its uses",
	Phase: refactor.PhaseTypes,
	Scan:  scanFields,
	Apply: boxField,
}

func scanFields(u *refactor.Unit) []refactor.Span {
	compared := comparedTypes(u)
	var spans []refactor.Span
	u.ForEachFile(func(f *refactor.File) {
		for _, d := range f.Syntax.Decls {
			gd, ok := d.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				st, ok := ts.Type.(*ast.StructType)
				if !ok || ts.TypeParams != nil || ts.Assign.IsValid() || u.Synthetic(ts) {
					continue
				}
				tn, ok := u.Info.Defs[ts.Name].(*types.TypeName)
				if !ok || compared[tn] {
					continue
				}
				for _, field := range st.Fields.List {
					for _, id := range field.Names {
						if v, ok := u.Info.Defs[id].(*types.Var); ok && boxable(v) == "" && !indirect(v.Type()) {
							spans = append(spans, refactor.NodeSpan(id))
						}
					}
				}
			}
		}
	})
	return spans
}

// comparedTypes returns the named types whose values u compares,
// switches on or uses as map keys.
func comparedTypes(u *refactor.Unit) map[*types.TypeName]bool {
	m := make(map[*types.TypeName]bool)
	add := func(t types.Type) {
		if named, ok := t.(*types.Named); ok {
			m[named.Obj()] = true
		}
	}
	for _, f := range u.Files {
		ast.Inspect(f.Syntax, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.BinaryExpr:
				if n.Op == token.EQL || n.Op == token.NEQ {
					add(u.Info.TypeOf(n.X))
					add(u.Info.TypeOf(n.Y))
				}
			case *ast.SwitchStmt:
				if n.Tag != nil {
					add(u.Info.TypeOf(n.Tag))
				}
			case *ast.MapType:
				add(u.Info.TypeOf(n.Key))
			}
			return true
		})
	}
	return m
}

// boxable returns why field v cannot be boxed, or "".
func boxable(v *types.Var) string {
	if v.Embedded() {
		return "is embedded"
	}
	switch types.Unalias(v.Type()).(type) {
	case *types.Pointer:
		return "is already a pointer"
	case *types.TypeParam:
		return "has a type parameter type"
	}
	return ""
}

// indirect reports whether values of t already refer to their contents,
// so that boxing them gains nothing.
func indirect(t types.Type) bool {
	switch t := t.Underlying().(type) {
	case *types.Slice, *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return true
	case *types.Basic:
		return t.Kind() == types.UnsafePointer
	}
	return false
}

// selectedField returns the struct field the selection names, along with
// the named type declaring it and the declaring syntax.
func selectedField(u *refactor.Unit, a *refactor.Anchor) (*types.Named, *types.Var, *ast.Field) {
	var stack []ast.Node
	var v *types.Var
	if a.Item != nil {
		if a.Item.Kind != refactor.ItemField || a.Item.Outer == nil || a.Item.Outer.Kind != refactor.ItemType {
			return nil, nil, nil
		}
		v = a.Item.Obj.(*types.Var)
		stack = u.SyntaxAt(v.Pos())
	} else {
		stack = a.Stack
	}
	for i, n := range stack {
		field, ok := n.(*ast.Field)
		if !ok || i+3 >= len(stack) {
			continue
		}
		if _, ok := stack[i+2].(*ast.StructType); !ok {
			return nil, nil, nil
		}
		ts, ok := stack[i+3].(*ast.TypeSpec)
		if !ok {
			return nil, nil, nil
		}
		tn, ok := u.Info.Defs[ts.Name].(*types.TypeName)
		if !ok {
			return nil, nil, nil
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			return nil, nil, nil
		}
		if v == nil {
			for _, id := range field.Names {
				if a.Span.Contains(id) || len(field.Names) == 1 || (id.Pos() <= a.Span.Pos && a.Span.End <= id.End()) {
					v, _ = u.Info.Defs[id].(*types.Var)
					break
				}
			}
		}
		if v == nil {
			return nil, nil, nil
		}
		return named, v, field
	}
	return nil, nil, nil
}

// boxField changes the type of a field f from T to *T. Literals
// initializing f take the address of the value, reads and writes of f
// dereference it, and &v.f becomes v.f.
//
// The rewrite is refused if a zero value of the struct can ever exist,
// since f would then be nil. That covers literals omitting f, var
// declarations, new, named results, make of a slice, and any type or
// instantiation holding the struct by value. It is also refused if f
// appears in a literal that is compared or switched on, or if the struct
// itself is compared or used as a map key, since pointers compare by
// identity. Copies of a struct value share the boxed value, so if any
// value is copied, f must never be changed in place or have its address
// taken.
func boxField(c *refactor.Context) error {
	u, a := c.Unit, c.Anchor
	named, field, decl := selectedField(u, a)
	if field == nil {
		return refactor.NotApplicablef("%s: no struct field selected", u.Addr(a.Span.Pos))
	}
	if why := boxable(field); why != "" {
		return refactor.NotApplicablef("%s: field %s %s", u.Addr(field.Pos()), field.Name(), why)
	}
	if named.TypeParams().Len() > 0 {
		return refactor.NotApplicablef("%s: %s is generic", u.Addr(field.Pos()), named.Obj().Name())
	}
	if u.Synthetic(decl) {
		return refactor.NotApplicablef("%s: field %s is generated", u.Addr(field.Pos()), field.Name())
	}

	fu := refactor.CollectFieldUses(u, named, field)
	if p := fu.Unsafe(); p != nil {
		return refactor.Rejectf("%s: field %s used in pattern", u.Addr(p.Node.Pos()), field.Name())
	}
	if len(fu.Implicit) > 0 {
		n := fu.Implicit[0]
		return refactor.Rejectf("%s: %s is created without setting field %s, which would be nil", u.Addr(n.Pos()), named.Obj().Name(), field.Name())
	}
	if len(fu.Compared) > 0 {
		n := fu.Compared[0]
		return refactor.Rejectf("%s: %s values are compared, so field %s cannot become a pointer", u.Addr(n.Pos()), named.Obj().Name(), field.Name())
	}
	if m := fu.Mutated(); m != nil && len(fu.Copies) > 0 {
		return refactor.Rejectf("%s: %s values are copied and field %s is changed at %s, so the copies would share it",
			u.Addr(fu.Copies[0].Pos()), named.Obj().Name(), field.Name(), u.Addr(m.Sel.Pos()))
	}

	// The declaration.
	f := u.FileAt(decl.Pos())
	if len(decl.Names) == 1 {
		c.Edits.Insert(decl.Type.Pos(), "*")
	} else {
		var others []string
		for _, id := range decl.Names {
			if u.Info.Defs[id] != field {
				others = append(others, id.Name)
			}
		}
		typ := u.NodeText(decl.Type)
		line := strings.Join(others, ", ") + " " + typ
		if decl.Tag != nil {
			line += " " + decl.Tag.Value
		}
		c.Edits.Replace(decl.Names[0].Pos(), decl.Type.End(), line+"\n"+f.Indent(decl.Pos())+field.Name()+" *"+typ)
	}

	for _, k := range fu.Constructs {
		if _, ok := k.Value.(*ast.CompositeLit); ok {
			c.Edits.Insert(k.Value.Pos(), "&")
			continue
		}
		vf := u.FileAt(k.Value.Pos())
		t := c.Edits.TypeString(vf, k.Value.Pos(), field.Type())
		c.Edits.Insert(k.Value.Pos(), "func(v "+t+") *"+t+" { return &v }(")
		c.Edits.Insert(k.Value.End(), ")")
	}
	for _, acc := range fu.Accesses {
		switch {
		case acc.Addr != nil:
			c.Edits.Delete(acc.Addr.OpPos, acc.Sel.Pos())
		case acc.Chain:
			// v.f.g dereferences v.f implicitly.
		default:
			c.Edits.Insert(acc.Sel.Pos(), "(*")
			c.Edits.Insert(acc.Sel.End(), ")")
		}
	}
	c.Mark(decl.Pos(), decl.End())
	c.Log.Debug("box field",
		zap.String("field", named.Obj().Name()+"."+field.Name()),
		zap.Int("constructs", len(fu.Constructs)),
		zap.Int("accesses", len(fu.Accesses)))
	return nil
}
