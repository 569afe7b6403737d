// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"fmt"
	"go/ast"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
)

// A Span is a range of source positions [Pos, End) in one compilation.
// Spans do not survive across compilations; markers do.
type Span struct {
	Pos, End token.Pos
}

// NodeSpan returns the span of n.
func NodeSpan(n ast.Node) Span { return Span{n.Pos(), n.End()} }

// Contains reports whether n lies entirely within s.
func (s Span) Contains(n ast.Node) bool {
	return s.Pos <= n.Pos() && n.End() <= s.End
}

// Overlaps reports whether n and s share at least one position.
func (s Span) Overlaps(n ast.Node) bool {
	return n.Pos() < s.End && s.Pos < n.End()
}

// A Selection names the target of a refactoring request,
// in one of these forms:
//
//	file.go:from:to   byte offsets in file.go
//	file.go:addr      a sam address, such as /re/ or 12,14
//	file.go           the whole file
//	@id               the text between the marker comments for id
//	T.f               a package-level declaration, method or field
type Selection struct {
	File   string `json:"file,omitempty" yaml:"file,omitempty" msgpack:"file"`
	Addr   string `json:"addr,omitempty" yaml:"addr,omitempty" msgpack:"addr"`
	Item   string `json:"item,omitempty" yaml:"item,omitempty" msgpack:"item"`
	Marker string `json:"marker,omitempty" yaml:"marker,omitempty" msgpack:"marker"`
}

var (
	byteRangeRE = regexp.MustCompile(`^([0-9]+):([0-9]+)$`)
	itemRE      = regexp.MustCompile(`^[\pL_][\pL\pN_]*(\.[\pL_][\pL\pN_]*)*$`)
)

// ParseSelection parses the textual form of a selection.
func ParseSelection(s string) (Selection, error) {
	switch {
	case s == "":
		return Selection{}, Errorf(Internal, "empty selection")
	case strings.HasPrefix(s, "@"):
		if s == "@" {
			return Selection{}, Errorf(Internal, "empty marker id")
		}
		return Selection{Marker: s[1:]}, nil
	case strings.HasSuffix(s, ".go"):
		return Selection{File: s}, nil
	}
	if file, addr, ok := strings.Cut(s, ".go:"); ok {
		file += ".go"
		if m := byteRangeRE.FindStringSubmatch(addr); m != nil {
			from, _ := strconv.Atoi(m[1])
			to, _ := strconv.Atoi(m[2])
			if from > to {
				return Selection{}, Errorf(Internal, "invalid byte range %d:%d", from, to)
			}
			return RangeSelection(file, from, to), nil
		}
		return Selection{File: file, Addr: addr}, nil
	}
	if itemRE.MatchString(s) {
		return Selection{Item: s}, nil
	}
	return Selection{}, Errorf(Internal, "cannot parse selection %q", s)
}

// RangeSelection selects the bytes [from, to) of file.
func RangeSelection(file string, from, to int) Selection {
	return Selection{File: file, Addr: fmt.Sprintf("#%d,#%d", from, to)}
}

// MarkerSelection selects the text between the markers for id.
func MarkerSelection(id string) Selection {
	return Selection{Marker: id}
}

func (s Selection) String() string {
	switch {
	case s.Marker != "":
		return "@" + s.Marker
	case s.Item != "":
		return s.Item
	case s.Addr != "":
		return s.File + ":" + s.Addr
	}
	return s.File
}

// An Anchor is a selection resolved in one compilation.
type Anchor struct {
	File  *File
	Span  Span
	Stack []ast.Node // nodes enclosing Span, innermost first
	Exact bool       // Span is exactly the extent of Stack[0]
	Item  *Item      // set for selections by name
}

// Resolve resolves sel in u. A selection naming something u does not
// contain is a NotApplicable error.
func Resolve(u *Unit, sel Selection) (*Anchor, error) {
	var (
		f    *File
		span Span
		item *Item
	)
	switch {
	case sel.Marker != "":
		tag := u.markerTag()
		for _, file := range u.Files {
			if lo, hi, ok := FindMarker(file.Text, tag, sel.Marker); ok {
				f, span = file, Span{file.Pos(lo), file.Pos(hi)}
				break
			}
		}
		if f == nil {
			return nil, NotApplicablef("marker %s not found in %s", sel.Marker, u.Target)
		}

	case sel.Item != "":
		if u.Types == nil {
			return nil, Errorf(Internal, "selecting %s needs type information", sel.Item)
		}
		item = u.Lookup(sel.Item)
		if item.Kind == ItemNotFound {
			return nil, NotApplicablef("%s not found in %s", sel.Item, u.Target)
		}
		span = item.Span()
		f = u.FileAt(span.Pos)
		if f == nil {
			return nil, NotApplicablef("%s is not declared in %s", sel.Item, u.Target)
		}

	case sel.File != "":
		f = u.FileByName(sel.File)
		if f == nil {
			return nil, NotApplicablef("%s is not part of %s", sel.File, u.Target)
		}
		lo, hi, err := addrToByteRange(sel.Addr, 0, f.Text)
		if err != nil {
			return nil, Errorf(Internal, "invalid address %s: %v", sel, err)
		}
		span = Span{f.Pos(lo), f.Pos(hi)}

	default:
		return nil, Errorf(Internal, "empty selection")
	}

	a := &Anchor{File: f, Span: span, Item: item}
	a.Stack, a.Exact = astutil.PathEnclosingInterval(f.Syntax, span.Pos, span.End)
	return a, nil
}

// Text returns the selected source text.
func (a *Anchor) Text() []byte {
	return a.File.Text[a.File.Offset(a.Span.Pos):a.File.Offset(a.Span.End)]
}

// Stmts returns the statements covered by the selection: the longest
// run of a single statement list lying within the span, where no other
// statement of that list is only partly selected.
func (a *Anchor) Stmts() (owner ast.Node, list []ast.Stmt, i, j int, ok bool) {
	for _, n := range a.Stack {
		var body []ast.Stmt
		switch n := n.(type) {
		case *ast.BlockStmt:
			body = n.List
		case *ast.CaseClause:
			body = n.Body
		case *ast.CommClause:
			body = n.Body
		default:
			continue
		}
		i, j = -1, -1
		for k, s := range body {
			switch {
			case a.Span.Contains(s):
				if i < 0 {
					i = k
				}
				j = k + 1
			case a.Span.Overlaps(s):
				return nil, nil, 0, 0, false
			}
		}
		if i >= 0 {
			return n, body, i, j, true
		}
	}
	return nil, nil, 0, 0, false
}

// Node returns the innermost node enclosing the selection.
func (a *Anchor) Node() ast.Node {
	if len(a.Stack) == 0 {
		return nil
	}
	return a.Stack[0]
}
