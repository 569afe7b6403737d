// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"
	"strings"
)

// A Replacement replaces the bytes [Start, End) of File with Text.
// The line and character bounds are 1-based and exist for human display;
// Start and End are authoritative.
type Replacement struct {
	File      string `json:"file" yaml:"file" msgpack:"file"`
	Start     int    `json:"byte_start" yaml:"byte_start" msgpack:"byte_start"`
	End       int    `json:"byte_end" yaml:"byte_end" msgpack:"byte_end"`
	Text      string `json:"replacement" yaml:"replacement" msgpack:"replacement"`
	StartLine int    `json:"line_start" yaml:"line_start" msgpack:"line_start"`
	StartChar int    `json:"char_start" yaml:"char_start" msgpack:"char_start"`
	EndLine   int    `json:"line_end" yaml:"line_end" msgpack:"line_end"`
	EndChar   int    `json:"char_end" yaml:"char_end" msgpack:"char_end"`
}

func (r Replacement) String() string {
	return fmt.Sprintf("%s:#%d,#%d %q", r.File, r.Start, r.End, r.Text)
}

func (r Replacement) overlaps(s Replacement) bool {
	return r.File == s.File && r.Start < s.End && s.Start < r.End
}

// A Group is the set of replacements realizing one refactoring result.
// Replacements in a group do not overlap.
//
// Groups are layered: the offsets of a group refer to the file text
// after all earlier groups of the same result have been applied.
type Group []Replacement

// Sorted returns a copy of g sorted by file and then by descending start
// offset, the order in which replacements must be applied.
func (g Group) Sorted() Group {
	out := append(Group(nil), g...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Start != out[j].Start {
			return out[i].Start > out[j].Start
		}
		return out[i].End > out[j].End
	})
	return out
}

// Files returns the sorted list of files g touches.
func (g Group) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, r := range g {
		if !seen[r.File] {
			seen[r.File] = true
			files = append(files, r.File)
		}
	}
	sort.Strings(files)
	return files
}

// Check reports an error if any two replacements in g overlap.
func (g Group) Check() error {
	for _, r := range g {
		if r.Start < 0 || r.End < r.Start {
			return fmt.Errorf("invalid replacement %v", r)
		}
	}
	s := g.Sorted()
	for i := 1; i < len(s); i++ {
		if s[i].overlaps(s[i-1]) {
			return fmt.Errorf("overlapping replacements %v and %v", s[i], s[i-1])
		}
	}
	return nil
}

// key returns a string identifying the content of g, independent of
// replacement order.
func (g Group) key() string {
	var b strings.Builder
	for _, r := range g.Sorted() {
		fmt.Fprintf(&b, "%s\x00%d\x00%d\x00%s\x00", r.File, r.Start, r.End, r.Text)
	}
	return b.String()
}

// Apply returns text with the replacements of g that belong to file applied.
// Replacements are applied in descending start order so that earlier
// offsets stay valid.
func Apply(file string, text []byte, g Group) ([]byte, error) {
	out := text
	copied := false
	for _, r := range g.Sorted() {
		if r.File != file {
			continue
		}
		if r.Start < 0 || r.End < r.Start || r.End > len(out) {
			return nil, fmt.Errorf("%s: replacement [%d,%d) out of range [0,%d)", file, r.Start, r.End, len(out))
		}
		if !copied {
			out = append([]byte(nil), out...)
			copied = true
		}
		tail := append([]byte(r.Text), out[r.End:]...)
		out = append(out[:r.Start], tail...)
	}
	return out, nil
}

// Preview reconstructs the final content of file from its original text
// and the layered replacement groups of a result.
func Preview(file string, text []byte, groups []Group) ([]byte, error) {
	var err error
	for _, g := range groups {
		text, err = Apply(file, text, g)
		if err != nil {
			return nil, err
		}
	}
	return text, nil
}

// A Builder accumulates the replacements of one refactoring, in token.Pos
// coordinates of a compiled Unit, and turns them into a Group.
type Builder struct {
	u       *Unit
	tag     string
	edits   []posEdit
	imports map[*File][]newImport
}

type posEdit struct {
	pos, end token.Pos
	text     string
	seq      int
}

// NewBuilder returns a Builder for edits to files of u.
func NewBuilder(u *Unit) *Builder {
	return &Builder{u: u, tag: u.markerTag()}
}

// Replace replaces the text [pos, end) with text.
// Several insertions at the same position are kept in call order.
func (b *Builder) Replace(pos, end token.Pos, text string) {
	b.edits = append(b.edits, posEdit{pos, end, text, len(b.edits)})
}

// Insert inserts text at pos.
func (b *Builder) Insert(pos token.Pos, text string) {
	b.Replace(pos, pos, text)
}

// Delete deletes the text [pos, end).
func (b *Builder) Delete(pos, end token.Pos) {
	b.Replace(pos, end, "")
}

// ReplaceNode replaces the text of n with text.
func (b *Builder) ReplaceNode(n ast.Node, text string) {
	b.Replace(n.Pos(), n.End(), text)
}

// Mark wraps [pos, end) in a marker comment pair for id.
func (b *Builder) Mark(id string, pos, end token.Pos) {
	b.Insert(pos, MarkerStart(b.tag, id))
	b.Insert(end, MarkerEnd(b.tag, id))
}

// Marked returns text wrapped in a marker comment pair for id.
func (b *Builder) Marked(id, text string) string {
	return MarkerStart(b.tag, id) + text + MarkerEnd(b.tag, id)
}

// Len returns the number of edits recorded so far.
func (b *Builder) Len() int {
	return len(b.edits)
}

type fileEdit struct {
	file       *File
	start, end int
	text       string
	seq        int
}

// Group converts the recorded edits into a Group sorted by descending
// start offset. Identical edits are collapsed, insertions at the start of
// another edit are folded into it, and any other overlap is an error.
func (b *Builder) Group() (Group, error) {
	b.addImports()
	var list []fileEdit
	for _, e := range b.edits {
		f := b.u.FileAt(e.pos)
		if f == nil {
			return nil, fmt.Errorf("edit at %v is outside the unit's files", b.u.Fset.Position(e.pos))
		}
		if e.end < e.pos || f.Offset(e.end) < 0 || f.Offset(e.end) > len(f.Text) {
			return nil, fmt.Errorf("edit %s spans files", b.u.Addr(e.pos))
		}
		list = append(list, fileEdit{f, f.Offset(e.pos), f.Offset(e.end), e.text, e.seq})
	}
	sort.SliceStable(list, func(i, j int) bool {
		x, y := list[i], list[j]
		if x.file.Name != y.file.Name {
			return x.file.Name < y.file.Name
		}
		if x.start != y.start {
			return x.start < y.start
		}
		if x.end != y.end {
			return x.end < y.end
		}
		return x.seq < y.seq
	})

	var merged []fileEdit
	for i, e := range list {
		if i > 0 {
			p := list[i-1]
			if p.file == e.file && p.start == e.start && p.end == e.end && p.text == e.text && e.start != e.end {
				continue
			}
		}
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.file == e.file && last.start == e.start && last.start == last.end {
				// An insertion at the start of e: keep it in front.
				last.end = e.end
				last.text += e.text
				continue
			}
			if last.file == e.file && e.start < last.end {
				return nil, fmt.Errorf("conflicting edits at %s:#%d,#%d and #%d,#%d",
					e.file.Name, last.start, last.end, e.start, e.end)
			}
		}
		merged = append(merged, e)
	}

	g := make(Group, 0, len(merged))
	for _, e := range merged {
		sl, sc := e.file.Lines.Position(e.start)
		el, ec := e.file.Lines.Position(e.end)
		g = append(g, Replacement{
			File:      e.file.Name,
			Start:     e.start,
			End:       e.end,
			Text:      e.text,
			StartLine: sl,
			StartChar: sc,
			EndLine:   el,
			EndChar:   ec,
		})
	}
	return g.Sorted(), nil
}

// A TextBuffer queues edits to a detached piece of text, such as code
// being moved, using the token.Pos coordinates the text had in its file.
type TextBuffer struct {
	base  token.Pos
	text  string
	edits []posEdit
}

// NewTextBuffer returns a buffer for text, which starts at pos.
func NewTextBuffer(pos token.Pos, text string) *TextBuffer {
	return &TextBuffer{base: pos, text: text}
}

// Replace replaces [pos, end) with text.
func (t *TextBuffer) Replace(pos, end token.Pos, text string) {
	t.edits = append(t.edits, posEdit{pos, end, text, len(t.edits)})
}

// Insert inserts text at pos.
func (t *TextBuffer) Insert(pos token.Pos, text string) {
	t.Replace(pos, pos, text)
}

// String returns the edited text. It panics on overlapping edits,
// which indicate a bug in the caller.
func (t *TextBuffer) String() string {
	edits := append([]posEdit(nil), t.edits...)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].pos != edits[j].pos {
			return edits[i].pos < edits[j].pos
		}
		return edits[i].seq < edits[j].seq
	})
	var b strings.Builder
	off := 0
	for _, e := range edits {
		start, end := int(e.pos-t.base), int(e.end-t.base)
		if start < off || end < start || end > len(t.text) {
			panic(fmt.Sprintf("invalid edit [%d,%d) after offset %d", start, end, off))
		}
		b.WriteString(t.text[off:start])
		b.WriteString(e.text)
		off = end
	}
	b.WriteString(t.text[off:])
	return b.String()
}
