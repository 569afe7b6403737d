// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// An Overlay is a virtual view of the file system: file contents as on disk
// (or as set explicitly) with pending replacement groups folded in.
// Groups are only ever appended. Nothing is written to disk.
type Overlay struct {
	files  map[string][]byte // explicit contents, keyed by absolute path
	groups []Group

	readFile func(string) ([]byte, error)
}

// NewOverlay returns an overlay with the given pending groups.
func NewOverlay(groups ...Group) *Overlay {
	o := &Overlay{readFile: os.ReadFile}
	for _, g := range groups {
		o.Add(g)
	}
	return o
}

// Clone returns a copy of o that shares its contents but can be
// appended to independently.
func (o *Overlay) Clone() *Overlay {
	c := &Overlay{
		files:    o.files,
		groups:   append([]Group(nil), o.groups...),
		readFile: o.readFile,
	}
	return c
}

// SetFile makes name read as text before any groups are applied.
func (o *Overlay) SetFile(name string, text []byte) {
	if o.files == nil {
		o.files = make(map[string][]byte)
	}
	o.files[abs(name)] = text
}

// Add appends a group of pending replacements.
func (o *Overlay) Add(g Group) {
	if len(g) > 0 {
		o.groups = append(o.groups, g)
	}
}

// Groups returns the pending groups, in application order.
func (o *Overlay) Groups() []Group {
	return o.groups
}

// ReadFile returns the content of name with every pending group applied.
func (o *Overlay) ReadFile(name string) ([]byte, error) {
	name = abs(name)
	text, ok := o.files[name]
	if !ok {
		var err error
		text, err = o.readFile(name)
		if err != nil {
			return nil, err
		}
	}
	return Preview(name, text, o.groups)
}

// Files returns the full content of every file that differs from disk,
// in the form go/packages expects for Config.Overlay.
func (o *Overlay) Files() (map[string][]byte, error) {
	names := make(map[string]bool)
	for name := range o.files {
		names[name] = true
	}
	for _, g := range o.groups {
		for _, name := range g.Files() {
			names[name] = true
		}
	}
	out := make(map[string][]byte)
	for name := range names {
		text, err := o.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("overlay: %w", err)
		}
		out[name] = text
	}
	return out, nil
}

// fingerprint summarizes the overlaid files other than those in skip.
func (o *Overlay) fingerprint(skip map[string]bool) (string, error) {
	files, err := o.Files()
	if err != nil {
		return "", err
	}
	var names []string
	for name := range files {
		if !skip[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%s\x00%d\x00", name, len(files[name]))
		h.Write(files[name])
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func abs(name string) string {
	if a, err := filepath.Abs(name); err == nil {
		return a
	}
	return name
}
