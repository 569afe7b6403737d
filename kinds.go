// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "rsc.io/rfx/refactor"

// kinds returns the table of refactorings rfx runs.
func kinds() refactor.Table {
	t := make(refactor.Table)
	for _, k := range []*refactor.Kind{
		extractBlockKind,
		liftClosureKind,
		makeMethodKind,
		boxFieldKind,
		renameKind,
		{
			Name:  "extract-function",
			Doc:   "move a run of statements into a new top-level function",
			Steps: []string{"extract-block", "lift-closure"},
		},
		{
			Name:  "extract-method",
			Doc:   "move a run of statements into a new method",
			Steps: []string{"extract-block", "lift-closure", "make-method"},
		},
	} {
		t.Register(k)
	}
	return t
}
