// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/token"
	"go/types"
)

// An ExitKind is how control leaves a statement range.
type ExitKind int

const (
	ExitTail     ExitKind = iota // falls off the end
	ExitReturn                   // returns from the enclosing function
	ExitBreak                    // breaks out of a statement enclosing the range
	ExitContinue                 // continues a loop enclosing the range
)

func (k ExitKind) String() string {
	switch k {
	case ExitTail:
		return "tail"
	case ExitReturn:
		return "return"
	case ExitBreak:
		return "break"
	case ExitContinue:
		return "continue"
	}
	return "ExitKind(?)"
}

// An Exit is one way control leaves a statement range.
type Exit struct {
	Kind    ExitKind
	Disc    int      // discriminant: 0 for the tail, then 1, 2, ... in source order
	Stmt    ast.Stmt // the return or branch statement; nil for the tail
	Label   string   // label of a break or continue, if any
	Payload *Span    // results of a return, if any
}

// CollectExits returns the exits of the statement range stmts, the tail
// exit first. Returns and branches inside function literals do not leave
// the range and are not reported.
//
// A range is not liftable into a function literal if it contains a goto
// to a label outside it, a fallthrough, a defer, or a label that is the
// target of a branch outside it; these are NotApplicable errors.
func CollectExits(u *Unit, stmts []ast.Stmt, fn ast.Node) ([]*Exit, error) {
	exits := []*Exit{{Kind: ExitTail}}
	if len(stmts) == 0 {
		return exits, nil
	}
	scope := Span{stmts[0].Pos(), stmts[len(stmts)-1].End()}

	// Labels declared in the range.
	labels := make(map[types.Object]bool)
	for _, s := range stmts {
		ast.Inspect(s, func(n ast.Node) bool {
			if _, ok := n.(*ast.FuncLit); ok {
				return false
			}
			if l, ok := n.(*ast.LabeledStmt); ok {
				if obj := u.Info.Defs[l.Label]; obj != nil {
					labels[obj] = true
				}
			}
			return true
		})
	}

	var err error
	fail := func(pos token.Pos, format string, args ...any) {
		if err == nil {
			err = NotApplicablef("%s: "+format, append([]any{u.Addr(pos)}, args...)...)
		}
	}

	// Branches outside the range to labels inside it.
	ast.Inspect(fn, func(n ast.Node) bool {
		b, ok := n.(*ast.BranchStmt)
		if !ok || b.Label == nil || scope.Contains(b) {
			return true
		}
		if labels[u.Info.Uses[b.Label]] {
			fail(b.Pos(), "label %s is the target of a %s outside the selection", b.Label.Name, b.Tok)
		}
		return true
	})

	for _, s := range stmts {
		WalkRange(s, scope.Pos, scope.End, func(stack []ast.Node) {
			if inFuncLit(stack) {
				return
			}
			switch n := stack[0].(type) {
			case *ast.DeferStmt:
				fail(n.Pos(), "defer would run when the extracted code returns")

			case *ast.ReturnStmt:
				e := &Exit{Kind: ExitReturn, Stmt: n}
				if len(n.Results) > 0 {
					e.Payload = &Span{n.Results[0].Pos(), n.Results[len(n.Results)-1].End()}
				}
				exits = append(exits, e)

			case *ast.BranchStmt:
				switch n.Tok {
				case token.GOTO:
					if !labels[u.Info.Uses[n.Label]] {
						fail(n.Pos(), "goto %s leaves the selection", n.Label.Name)
					}
				case token.FALLTHROUGH:
					fail(n.Pos(), "fallthrough cannot be extracted")
				case token.BREAK, token.CONTINUE:
					if branchTargetInside(u, n, stack, labels) {
						return
					}
					e := &Exit{Kind: ExitBreak, Stmt: n}
					if n.Tok == token.CONTINUE {
						e.Kind = ExitContinue
					}
					if n.Label != nil {
						e.Label = n.Label.Name
					}
					exits = append(exits, e)
				}
			}
		})
	}
	if err != nil {
		return nil, err
	}
	for i, e := range exits {
		e.Disc = i
	}
	return exits, nil
}

func inFuncLit(stack []ast.Node) bool {
	for _, n := range stack[1:] {
		if _, ok := n.(*ast.FuncLit); ok {
			return true
		}
	}
	return false
}

// branchTargetInside reports whether the break or continue b, with the
// stack of nodes enclosing it within one statement of the range, targets
// a statement inside the range.
func branchTargetInside(u *Unit, b *ast.BranchStmt, stack []ast.Node, labels map[types.Object]bool) bool {
	if b.Label != nil {
		return labels[u.Info.Uses[b.Label]]
	}
	for _, n := range stack[1:] {
		switch n.(type) {
		case *ast.ForStmt, *ast.RangeStmt:
			return true
		case *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
			if b.Tok == token.BREAK {
				return true
			}
		}
	}
	return false
}

// HasValueExits reports whether some exit returns values.
func HasValueExits(exits []*Exit) bool {
	for _, e := range exits {
		if e.Payload != nil {
			return true
		}
	}
	return false
}
