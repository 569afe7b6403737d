// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"fortio.org/safecast"
)

// A LineIndex maps byte offsets in a text to 1-based line and character
// positions. Characters count runes, not bytes.
type LineIndex struct {
	text   []byte
	starts []uint32 // byte offset of the start of each line
}

// NewLineIndex returns the line index for text.
func NewLineIndex(text []byte) *LineIndex {
	n, err := safecast.Conv[uint32](len(text))
	if err != nil {
		panic(fmt.Errorf("text too large for line index: %w", err))
	}
	starts := []uint32{0}
	for i := uint32(0); i < n; i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// Lines returns the number of lines in the text.
func (x *LineIndex) Lines() int {
	return len(x.starts)
}

// Position returns the line and character of the byte offset off.
// Offsets past the end of the text are clamped.
func (x *LineIndex) Position(off int) (line, char int) {
	if off < 0 {
		off = 0
	}
	if off > len(x.text) {
		off = len(x.text)
	}
	o := uint32(off)
	i := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > o }) - 1
	start := int(x.starts[i])
	return i + 1, utf8.RuneCount(x.text[start:off]) + 1
}

// Offset returns the byte offset of the given line and character,
// the inverse of Position.
func (x *LineIndex) Offset(line, char int) (int, error) {
	if line < 1 || line > len(x.starts) {
		return 0, fmt.Errorf("line %d out of range [1, %d]", line, len(x.starts))
	}
	off := int(x.starts[line-1])
	for c := 1; c < char; c++ {
		if off >= len(x.text) || x.text[off] == '\n' {
			return 0, fmt.Errorf("character %d out of range on line %d", char, line)
		}
		_, size := utf8.DecodeRune(x.text[off:])
		off += size
	}
	return off, nil
}
