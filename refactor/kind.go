// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/token"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// A Kind is a refactoring, identified by name.
//
// A simple kind runs in one compilation: at its Phase checkpoint the
// engine resolves the selection and calls Apply, which records edits in
// the context's Builder. A composite kind has no Apply; it runs the
// kinds named in Steps in order, each in a fresh compilation that sees
// the edits of the steps before it.
type Kind struct {
	Name  string
	Doc   string
	Phase Phase

	// Scan returns the spans of u that the kind could apply to.
	Scan func(u *Unit) []Span

	// Apply performs the refactoring at c.Anchor.
	Apply func(c *Context) error

	Steps []string
}

// Composite reports whether k is made of steps.
func (k *Kind) Composite() bool { return len(k.Steps) > 0 }

// A Context is passed to Kind.Apply.
type Context struct {
	Unit   *Unit
	Anchor *Anchor
	Edits  *Builder
	Name   string // name for declarations the refactoring introduces
	Log    *zap.Logger

	// Chained is set when the edits feed a later step, which finds its
	// selection through the marker left by this one.
	Chained bool

	kind   string
	step   int
	seq    int
	marker string
}

// NewMarker returns a new marker id, distinct from the others c has
// made. The id of the last marker created is passed as the selection
// of the next step of a composite.
func (c *Context) NewMarker() string {
	c.seq++
	name, off := "", 0
	if a := c.Anchor; a != nil && a.File != nil {
		name, off = filepath.Base(a.File.Name), a.File.Offset(a.Span.Pos)
	}
	c.marker = MarkerID(c.kind, c.step, name, off, c.seq)
	return c.marker
}

// Mark wraps [pos, end) in a marker pair if c is chained.
func (c *Context) Mark(pos, end token.Pos) {
	if c.Chained {
		c.Edits.Mark(c.NewMarker(), pos, end)
	}
}

// Marked returns text wrapped in a marker pair if c is chained.
func (c *Context) Marked(text string) string {
	if !c.Chained {
		return text
	}
	return c.Edits.Marked(c.NewMarker(), text)
}

// A Table maps kind names to kinds.
type Table map[string]*Kind

// Register adds k to t.
func (t Table) Register(k *Kind) {
	if t[k.Name] != nil {
		panic("duplicate refactoring kind " + k.Name)
	}
	t[k.Name] = k
}

// Names returns the sorted names of the kinds in t.
func (t Table) Names() []string {
	var names []string
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Steps resolves name to the list of simple kinds it runs.
func (t Table) Steps(name string) ([]*Kind, error) {
	k := t[name]
	if k == nil {
		return nil, Errorf(Internal, "unknown refactoring kind %q", name)
	}
	if !k.Composite() {
		if k.Apply == nil {
			return nil, Errorf(Internal, "refactoring kind %q has no implementation", name)
		}
		return []*Kind{k}, nil
	}
	var steps []*Kind
	for _, s := range k.Steps {
		sk := t[s]
		if sk == nil || sk.Composite() || sk.Apply == nil {
			return nil, Errorf(Internal, "refactoring kind %q: invalid step %q", name, s)
		}
		steps = append(steps, sk)
	}
	return steps, nil
}
