// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"sort"
)

// SortSpans sorts spans by start and then end, removing duplicates.
func SortSpans(spans []Span) []Span {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Pos != spans[j].Pos {
			return spans[i].Pos < spans[j].Pos
		}
		return spans[i].End < spans[j].End
	})
	out := spans[:0]
	for i, s := range spans {
		if i > 0 && s == spans[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ScanStmtRanges returns every contiguous run of statements in every
// statement list of u: N(N+1)/2 runs for a list of N statements.
// Statements in generated code or under //line directives are skipped,
// and split the runs around them. If max > 0, runs are at most max
// statements long.
func ScanStmtRanges(u *Unit, max int) []Span {
	var spans []Span
	u.ForEachFile(func(f *File) {
		StmtLists(f.Syntax, func(_ ast.Node, list []ast.Stmt) {
			spans = append(spans, stmtRanges(u, list, max)...)
		})
	})
	return SortSpans(spans)
}

func stmtRanges(u *Unit, list []ast.Stmt, max int) []Span {
	var spans []Span
	start := 0
	flush := func(end int) {
		run := list[start:end]
		for i := range run {
			for j := i; j < len(run); j++ {
				if max > 0 && j-i+1 > max {
					break
				}
				spans = append(spans, Span{run[i].Pos(), run[j].End()})
			}
		}
	}
	for k, s := range list {
		if u.Synthetic(s) {
			flush(k)
			start = k + 1
		}
	}
	flush(len(list))
	return spans
}

// A Candidate is a span proposed as the target of a refactoring,
// in file-relative byte offsets.
type Candidate struct {
	File string `json:"file" yaml:"file" msgpack:"file"`
	From int    `json:"from" yaml:"from" msgpack:"from"`
	To   int    `json:"to" yaml:"to" msgpack:"to"`
	Size int    `json:"size,omitempty" yaml:"size,omitempty" msgpack:"size"`
}

func (c Candidate) less(d Candidate) bool {
	if c.File != d.File {
		return c.File < d.File
	}
	if c.From != d.From {
		return c.From < d.From
	}
	if c.To != d.To {
		return c.To < d.To
	}
	return c.Size < d.Size
}

// Candidates converts spans of u into candidates.
// The size of a candidate is its length in lines.
func Candidates(u *Unit, spans []Span) []Candidate {
	var out []Candidate
	for _, s := range spans {
		f := u.FileAt(s.Pos)
		if f == nil {
			continue
		}
		lo, hi := f.Offset(s.Pos), f.Offset(s.End)
		l1, _ := f.Lines.Position(lo)
		l2, _ := f.Lines.Position(hi)
		out = append(out, Candidate{File: f.Name, From: lo, To: hi, Size: l2 - l1 + 1})
	}
	return out
}
