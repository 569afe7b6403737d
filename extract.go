// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"rsc.io/rfx/refactor"
)

var extractBlockKind = &refactor.Kind{
	Name:  "extract-block",
	Doc:   "wrap a run of statements in an immediately invoked function literal",
	Phase: refactor.PhaseTypes,
	Scan: func(u *refactor.Unit) []refactor.Span {
		return refactor.ScanStmtRanges(u, u.Options.MaxBlockStatements)
	},
	Apply: extractBlock,
}

// extractBlock replaces the selected statements S with
//
//	x, y := func() (T, U) {
//		S
//		return x, y
//	}()
//
// where x and y are the variables S declares that are used after it.
// If control can leave S other than by falling off its end, the
// function literal also returns which way it left, and the statements
// that follow it dispatch on that to the original return, break or
// continue.
func extractBlock(c *refactor.Context) error {
	u, a := c.Unit, c.Anchor
	owner, list, i, j, ok := a.Stmts()
	if !ok {
		return refactor.NotApplicablef("%s: selection does not cover whole statements", u.Addr(a.Span.Pos))
	}
	stmts := list[i:j]
	for _, s := range stmts {
		if u.Synthetic(s) {
			return refactor.NotApplicablef("%s: statement is generated", u.Addr(s.Pos()))
		}
	}
	fn, ftyp, _ := refactor.EnclosingFunc(a.Stack)
	if fn == nil {
		return refactor.NotApplicablef("%s: statements are not in a function", u.Addr(a.Span.Pos))
	}
	first, last := stmts[0], stmts[len(stmts)-1]
	span := refactor.Span{Pos: first.Pos(), End: last.End()}

	locals, err := refactor.DeclaredUsedAfter(u, stmts, fn)
	if err != nil {
		return err
	}
	for _, l := range locals {
		if named, ok := types.Unalias(l.Var.Type()).(*types.Named); ok && span.Pos <= named.Obj().Pos() && named.Obj().Pos() < span.End {
			return refactor.NotApplicablef("%s has type %s, which is declared in the selection", l.Var.Name(), named.Obj().Name())
		}
		if l.Aliased {
			how := "used"
			if l.MutatedAfter {
				how = "changed"
			}
			return refactor.NotApplicablef("%s: %s is aliased in the selection and %s after it", u.Addr(l.Var.Pos()), l.Var.Name(), how)
		}
	}
	exits, err := refactor.CollectExits(u, stmts, fn)
	if err != nil {
		return err
	}
	sig := funcSig(u, fn)
	for _, e := range exits {
		if e.Kind == refactor.ExitReturn {
			ret := e.Stmt.(*ast.ReturnStmt)
			if len(ret.Results) == 1 && sig.Results().Len() > 1 {
				return refactor.NotApplicablef("%s: return of a multi-value call", u.Addr(ret.Pos()))
			}
		}
	}

	f := a.File
	taken := make(map[string]bool)
	for _, l := range locals {
		taken[l.Var.Name()] = true
	}
	scope := blockScope(u, owner, ftyp)
	typ := func(t types.Type) string { return c.Edits.TypeString(f, first.Pos(), t) }

	var (
		lhs     []string // variables assigned the results
		results []string // result types of the literal
		slots   []string // variables holding the values of a return
		zeros   []string // zero values of slots
	)
	disc := ""
	if len(exits) > 1 {
		disc = freshName(u, first.Pos(), scope, "exit", taken)
		lhs = append(lhs, disc)
		results = append(results, "int")
	}
	if refactor.HasValueExits(exits) {
		for k := 0; k < sig.Results().Len(); k++ {
			t := sig.Results().At(k).Type()
			slots = append(slots, freshName(u, first.Pos(), scope, "r"+strconv.Itoa(k), taken))
			results = append(results, typ(t))
			zeros = append(zeros, zeroValue(c, first.Pos(), t))
		}
	}
	lhs = append(lhs, slots...)
	var localZeros []string
	for _, l := range locals {
		lhs = append(lhs, l.Var.Name())
		results = append(results, typ(l.Var.Type()))
		localZeros = append(localZeros, zeroValue(c, first.Pos(), l.Var.Type()))
	}

	// Rewrite the exits to return from the literal.
	body := refactor.NewTextBuffer(first.Pos(), string(u.Text(first.Pos(), last.End())))
	for _, e := range exits[1:] {
		vals := []string{strconv.Itoa(e.Disc)}
		if len(slots) > 0 {
			if e.Payload != nil {
				vals = append(vals, string(u.Text(e.Payload.Pos, e.Payload.End)))
			} else {
				vals = append(vals, zeros...)
			}
		}
		vals = append(vals, localZeros...)
		body.Replace(e.Stmt.Pos(), e.Stmt.End(), "return "+strings.Join(vals, ", "))
	}

	ind := f.Indent(first.Pos())
	var tail []string
	if disc != "" {
		tail = append(tail, "0")
		tail = append(tail, zeros...)
	}
	for _, l := range locals {
		tail = append(tail, l.Var.Name())
	}

	var lit strings.Builder
	lit.WriteString("func() ")
	switch len(results) {
	case 0:
	case 1:
		lit.WriteString(results[0] + " ")
	default:
		lit.WriteString("(" + strings.Join(results, ", ") + ") ")
	}
	fmt.Fprintf(&lit, "{\n%s\t%s\n", ind, f.Reindent(span, body.String(), ind, ind+"\t"))
	if len(tail) > 0 {
		fmt.Fprintf(&lit, "%s\treturn %s\n", ind, strings.Join(tail, ", "))
	}
	fmt.Fprintf(&lit, "%s}()", ind)

	var repl strings.Builder
	if len(lhs) > 0 {
		repl.WriteString(strings.Join(lhs, ", ") + " := ")
	}
	repl.WriteString(c.Marked(lit.String()))
	for _, e := range exits[1:] {
		var action string
		switch e.Kind {
		case refactor.ExitReturn:
			action = "return"
			if e.Payload != nil {
				action += " " + strings.Join(slots, ", ")
			}
		case refactor.ExitBreak:
			action = "break"
		case refactor.ExitContinue:
			action = "continue"
		}
		if e.Label != "" {
			action += " " + e.Label
		}
		fmt.Fprintf(&repl, "\n%sif %s == %d {\n%s\t%s\n%s}", ind, disc, e.Disc, ind, action, ind)
	}
	c.Edits.Replace(first.Pos(), last.End(), repl.String())
	c.Log.Debug("extract block",
		zap.String("at", u.Addr(first.Pos())),
		zap.Int("stmts", len(stmts)),
		zap.Int("locals", len(locals)),
		zap.Int("exits", len(exits)))
	return nil
}

// funcSig returns the signature of the function declaration or literal fn.
func funcSig(u *refactor.Unit, fn ast.Node) *types.Signature {
	switch fn := fn.(type) {
	case *ast.FuncDecl:
		if obj, ok := u.Info.Defs[fn.Name].(*types.Func); ok {
			return obj.Type().(*types.Signature)
		}
	case *ast.FuncLit:
		if sig, ok := u.Info.TypeOf(fn).(*types.Signature); ok {
			return sig
		}
	}
	return types.NewSignatureType(nil, nil, nil, nil, nil, false)
}

// blockScope returns the scope of the statement list owned by owner.
// A function body shares the scope of the function type.
func blockScope(u *refactor.Unit, owner ast.Node, ftyp *ast.FuncType) *types.Scope {
	if s := u.Info.Scopes[owner]; s != nil {
		return s
	}
	return u.Info.Scopes[ftyp]
}

// freshName returns base, or base followed by a number, choosing a name
// that is not visible at pos, not declared in scope and not in taken.
// The name is added to taken.
func freshName(u *refactor.Unit, pos token.Pos, scope *types.Scope, base string, taken map[string]bool) string {
	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name += strconv.Itoa(i)
		}
		if taken[name] || u.LookupAt(name, pos) != nil {
			continue
		}
		if scope != nil && scope.Lookup(name) != nil {
			continue
		}
		taken[name] = true
		return name
	}
}

// zeroValue returns an expression for the zero value of t,
// for use at pos.
func zeroValue(c *refactor.Context, pos token.Pos, t types.Type) string {
	if _, ok := t.(*types.TypeParam); !ok {
		switch ut := t.Underlying().(type) {
		case *types.Basic:
			switch {
			case ut.Info()&types.IsBoolean != 0:
				return "false"
			case ut.Info()&types.IsString != 0:
				return `""`
			case ut.Info()&types.IsNumeric != 0:
				return "0"
			case ut.Kind() == types.UnsafePointer:
				return "nil"
			}
		case *types.Pointer, *types.Slice, *types.Map, *types.Chan, *types.Signature, *types.Interface:
			return "nil"
		}
	}
	return "*new(" + c.Edits.TypeString(c.Anchor.File, pos, t) + ")"
}
