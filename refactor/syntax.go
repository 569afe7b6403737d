// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/token"
	"strings"
)

// Walk calls f for every node in the tree rooted at n, passing the
// stack of enclosing nodes, innermost first.
func Walk(n ast.Node, f func(stack []ast.Node)) {
	WalkRange(n, 0, token.Pos(^uint(0)>>1), f)
}

// WalkRange is like Walk but skips nodes entirely outside [lo, hi).
func WalkRange(n ast.Node, lo, hi token.Pos, f func(stack []ast.Node)) {
	var stack []ast.Node
	var stackPos int

	ast.Inspect(n, func(n ast.Node) bool {
		if n == nil {
			stackPos++
			return true
		}
		if n.End() < lo || hi <= n.Pos() {
			return false
		}
		if stackPos == 0 {
			old := len(stack)
			stack = append(stack, nil)
			stack = stack[:cap(stack)]
			copy(stack[len(stack)-old:], stack[:old])
			stackPos = len(stack) - old
		}
		stackPos--
		stack[stackPos] = n
		f(stack[stackPos:])
		return true
	})

	if stackPos != len(stack) {
		panic("internal stack error")
	}
}

// Unparen returns x with any enclosing parentheses removed.
func Unparen(x ast.Expr) ast.Expr {
	for {
		p, ok := x.(*ast.ParenExpr)
		if !ok {
			return x
		}
		x = p.X
	}
}

// StmtLists calls f for every statement list in n: the bodies of
// blocks, case clauses and comm clauses.
func StmtLists(n ast.Node, f func(owner ast.Node, list []ast.Stmt)) {
	ast.Inspect(n, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.BlockStmt:
			f(n, n.List)
		case *ast.CaseClause:
			f(n, n.Body)
		case *ast.CommClause:
			f(n, n.Body)
		}
		return true
	})
}

// EnclosingFunc returns the innermost function declaration or literal
// on stack, along with its type and body.
func EnclosingFunc(stack []ast.Node) (fn ast.Node, typ *ast.FuncType, body *ast.BlockStmt) {
	for _, n := range stack {
		switch n := n.(type) {
		case *ast.FuncDecl:
			return n, n.Type, n.Body
		case *ast.FuncLit:
			return n, n.Type, n.Body
		}
	}
	return nil, nil, nil
}

// EnclosingDecl returns the top-level declaration on stack.
func EnclosingDecl(stack []ast.Node) ast.Decl {
	for i := len(stack) - 1; i >= 0; i-- {
		if d, ok := stack[i].(ast.Decl); ok {
			return d
		}
	}
	return nil
}

// IsIIFE reports whether call immediately invokes a function literal,
// and returns the literal.
func IsIIFE(call *ast.CallExpr) (*ast.FuncLit, bool) {
	lit, ok := Unparen(call.Fun).(*ast.FuncLit)
	return lit, ok
}

// lineStart returns the position of the start of the line containing pos.
func (f *File) lineStart(pos token.Pos) token.Pos {
	off := f.Offset(pos)
	for off > 0 && f.Text[off-1] != '\n' {
		off--
	}
	return f.Pos(off)
}

// Indent returns the leading white space of the line containing pos.
func (f *File) Indent(pos token.Pos) string {
	start := f.Offset(f.lineStart(pos))
	end := start
	for end < len(f.Text) && (f.Text[end] == ' ' || f.Text[end] == '\t') {
		end++
	}
	return string(f.Text[start:end])
}

// Reindent returns text, the source of span after edits that keep its
// lines, with each line after the first moved from indentation from to
// indentation to. Lines inside multi-line string literals are kept.
func (f *File) Reindent(span Span, text, from, to string) string {
	if from == to {
		return text
	}
	first := f.tf.Line(span.Pos)
	keep := make(map[int]bool)
	WalkRange(f.Syntax, span.Pos, span.End, func(stack []ast.Node) {
		lit, ok := stack[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return
		}
		for l := f.tf.Line(lit.Pos()) + 1; l <= f.tf.Line(lit.End()); l++ {
			keep[l-first] = true
		}
	})
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if keep[i] || lines[i] == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(lines[i], from); ok {
			lines[i] = to + rest
		}
	}
	return strings.Join(lines, "\n")
}
