// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Adapted from golang.org/x/tools/go/ast/astutil/imports.go
// and from gofix's import insertion code.

package refactor

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"sort"
	"strconv"
	"strings"
)

type newImport struct {
	id  string
	pkg *types.Package
}

// importName returns the explicit name of s, or "".
func importName(s *ast.ImportSpec) string {
	if s.Name == nil {
		return ""
	}
	return s.Name.Name
}

// importPath returns the unquoted import path of s,
// or "" if the path is not properly quoted.
func importPath(s *ast.ImportSpec) string {
	t, err := strconv.Unquote(s.Path.Value)
	if err != nil {
		return ""
	}
	return t
}

// NeedImport returns the name by which code inserted at pos in f can
// refer to pkg, arranging for an import to be added if f lacks one.
func (b *Builder) NeedImport(f *File, pos token.Pos, pkg *types.Package) string {
	if pkg == b.u.Types {
		return ""
	}
	want := pkg.Name()
	for _, imp := range f.Syntax.Imports {
		if importPath(imp) != pkg.Path() {
			continue
		}
		name := importName(imp)
		if name == "" {
			name = pkg.Name()
		}
		if name == "_" || name == "." {
			continue
		}
		return name
	}

	names := []string{want, want + "pkg", want + "_"}
	want = ""
	for _, id := range names {
		if obj := b.u.LookupAt(id, pos); obj == nil {
			want = id
			break
		} else if obj, ok := obj.(*types.PkgName); ok && obj.Imported().Path() == pkg.Path() {
			want = id
			break
		}
	}
	if want == "" {
		want = pkg.Name()
	}

	if b.imports == nil {
		b.imports = make(map[*File][]newImport)
	}
	key := newImport{want, pkg}
	for _, p := range b.imports[f] {
		if p == key {
			return want
		}
	}
	b.imports[f] = append(b.imports[f], key)
	return want
}

// TypeString formats t for insertion at pos in f,
// adding imports as needed.
func (b *Builder) TypeString(f *File, pos token.Pos, t types.Type) string {
	return types.TypeString(t, func(p *types.Package) string {
		return b.NeedImport(f, pos, p)
	})
}

func (b *Builder) addImports() {
	files := make([]*File, 0, len(b.imports))
	for f := range b.imports {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	for _, f := range files {
		b.addImportList(f, b.imports[f])
	}
	b.imports = nil
}

func (b *Builder) addImportList(file *File, list []newImport) {
	f := file.Syntax
	imps := f.Decls
	for i, d := range f.Decls {
		if d, ok := d.(*ast.GenDecl); !ok || d.Tok != token.IMPORT {
			imps = f.Decls[:i]
			break
		}
	}

	// Assign each import to an import statement.
	needs := make(map[*ast.ImportSpec][]newImport)
	impOf := make(map[*ast.ImportSpec]*ast.GenDecl)
	var firstImp *ast.GenDecl
	for _, need := range list {
		// Find an import decl to add to.
		// Same logic as go fix.
		var (
			bestMatch = -1
			bestSpec  *ast.ImportSpec
		)
		for i := range imps {
			imp := imps[i].(*ast.GenDecl)
			// Do not add to import "C", to avoid disrupting the
			// association with its doc comment, breaking cgo.
			if declImports(imp, "C") {
				continue
			}
			if firstImp == nil {
				firstImp = imp
			}

			// Compute longest shared prefix with imports in this block.
			for j := range imp.Specs {
				spec := imp.Specs[j].(*ast.ImportSpec)
				impOf[spec] = imp
				n := matchLen(importPath(spec), need.pkg.Path())
				if n > bestMatch {
					bestMatch = n
					bestSpec = spec
				}
			}
		}
		needs[bestSpec] = append(needs[bestSpec], need)
	}

	makeBlock := func(imp *ast.GenDecl) {
		if imp.Lparen == token.NoPos {
			imp.Lparen = imp.TokPos + token.Pos(len("import"))
			b.Insert(imp.Lparen, " (")
			imp.Rparen = imp.End()
			b.Insert(imp.Rparen, "\n)")
		}
	}
	spec := func(need newImport) string {
		id := need.id
		if id == need.pkg.Name() {
			id = ""
		}
		if id == "" {
			return strconv.Quote(need.pkg.Path())
		}
		return id + " " + strconv.Quote(need.pkg.Path())
	}

	// Add imports near each target spec.
	for i := range imps {
		imp := imps[i].(*ast.GenDecl)
		for j := range imp.Specs {
			s := imp.Specs[j].(*ast.ImportSpec)
			if needs[s] == nil {
				continue
			}
			makeBlock(impOf[s])
			for _, need := range needs[s] {
				b.Insert(s.Pos(), spec(need)+"\n\t")
			}
		}
	}

	if needs[nil] != nil {
		// Imports we didn't know what to do with.
		var buf bytes.Buffer
		kind := -1
		all := needs[nil]
		sort.Slice(all, func(i, j int) bool {
			if ki, kj := pathKind(all[i].pkg.Path()), pathKind(all[j].pkg.Path()); ki != kj {
				return ki < kj
			}
			return all[i].pkg.Path() < all[j].pkg.Path()
		})
		for _, need := range all {
			if k := pathKind(need.pkg.Path()); k != kind {
				buf.WriteString("\n")
				kind = k
			}
			fmt.Fprintf(&buf, "\t%s\n", spec(need))
		}
		pos := f.Name.End()
		if len(imps) > 0 {
			pos = imps[len(imps)-1].End()
		}
		if len(all) == 1 {
			b.Insert(pos, "\n\nimport "+strings.TrimSpace(buf.String()))
		} else {
			b.Insert(pos, "\n\nimport ("+buf.String()+")")
		}
	}
}

// declImports reports whether gen contains an import of path.
func declImports(gen *ast.GenDecl, path string) bool {
	if gen.Tok != token.IMPORT {
		return false
	}
	for _, spec := range gen.Specs {
		impspec := spec.(*ast.ImportSpec)
		if importPath(impspec) == path {
			return true
		}
	}
	return false
}

// matchLen returns the length of the longest prefix shared by x and y.
func matchLen(x, y string) int {
	if pathKind(x) != pathKind(y) {
		return -1
	}

	i := 0
	for i < len(x) && i < len(y) && x[i] == y[i] {
		i++
	}
	return i
}

func pathKind(x string) int {
	first, _, _ := strings.Cut(x, "/")
	if strings.Contains(first, ".") {
		return 2
	}
	if first == "cmd" {
		return 1
	}
	return 0
}
