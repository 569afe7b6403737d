// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import "testing"

func TestLineIndex(t *testing.T) {
	x := NewLineIndex([]byte("ab\nçd\n"))
	if n := x.Lines(); n != 3 {
		t.Errorf("Lines() = %d, want 3", n)
	}
	for _, tt := range []struct {
		off        int
		line, char int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{5, 2, 2}, // ç is two bytes
		{6, 2, 3},
		{7, 3, 1},
		{100, 3, 1},
		{-1, 1, 1},
	} {
		line, char := x.Position(tt.off)
		if line != tt.line || char != tt.char {
			t.Errorf("Position(%d) = %d, %d, want %d, %d", tt.off, line, char, tt.line, tt.char)
		}
		if tt.off < 0 || tt.off > 7 {
			continue
		}
		off, err := x.Offset(line, char)
		if err != nil || off != tt.off {
			t.Errorf("Offset(%d, %d) = %d, %v, want %d", line, char, off, err, tt.off)
		}
	}
	if _, err := x.Offset(2, 4); err == nil {
		t.Errorf("Offset(2, 4) succeeded past the end of the line")
	}
	if _, err := x.Offset(4, 1); err == nil {
		t.Errorf("Offset(4, 1) succeeded past the last line")
	}
}
