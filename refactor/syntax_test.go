// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReindent(t *testing.T) {
	u := compileSource(t, "package m\n\nfunc f() {\n\tif true {\n\t\ta := 1\n\t\ts := `x\n\ty`\n\n\t\t_, _ = a, s\n\t}\n}\n")
	f := u.Files[0]
	body := funcDecl(t, u, "f").Body.List[0].(*ast.IfStmt).Body
	span := Span{body.List[0].Pos(), body.List[len(body.List)-1].End()}
	text := string(u.Text(span.Pos, span.End))

	assert.Equal(t, "a := 1\ns := `x\n\ty`\n\n_, _ = a, s", f.Reindent(span, text, "\t\t", ""))
	assert.Equal(t, "a := 1\n\t\t\ts := `x\n\ty`\n\n\t\t\t_, _ = a, s", f.Reindent(span, text, "\t\t", "\t\t\t"))
	assert.Equal(t, text, f.Reindent(span, text, "\t", "\t"))

	// The whole block, closing brace included.
	span = NodeSpan(body)
	assert.Equal(t, "{\n\ta := 1\n\ts := `x\n\ty`\n\n\t_, _ = a, s\n}", f.Reindent(span, string(u.Text(span.Pos, span.End)), "\t", ""))
}
