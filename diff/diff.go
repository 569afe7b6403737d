// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff renders the difference between two versions of a file
// as a unified diff.
package diff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff of old and new, with three lines of
// context, or nil if they are equal.
func Diff(oldName string, old []byte, newName string, new []byte) ([]byte, error) {
	if bytes.Equal(old, new) {
		return nil, nil
	}
	u := difflib.UnifiedDiff{
		A:        splitLines(old),
		B:        splitLines(new),
		FromFile: oldName,
		ToFile:   newName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	return []byte(fmt.Sprintf("diff %s %s\n", oldName, newName) + text), nil
}

// splitLines splits text after each newline. A final line without one
// gets one, so that it prints as a line of its own.
func splitLines(text []byte) []string {
	lines := strings.SplitAfter(string(text), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}
