// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import "sort"

// Aggregate merges the outputs of several build targets.
//
// Candidates are merged, deduplicated and sorted. Groups are kept once
// each, in the order first seen, sorted for application. Errors follow
// two rules: if any target failed hard, only hard errors are kept, so
// that a target where the refactoring merely does not apply cannot hide
// a real failure; otherwise advisory errors are kept only if no target
// produced edits.
func Aggregate(outputs ...*Output) *Output {
	agg := new(Output)
	seenCand := make(map[Candidate]bool)
	seenGroup := make(map[string]bool)
	hard := false
	for _, o := range outputs {
		if o == nil {
			continue
		}
		for _, c := range o.Candidates {
			if !seenCand[c] {
				seenCand[c] = true
				agg.Candidates = append(agg.Candidates, c)
			}
		}
		for _, g := range o.Groups {
			k := g.key()
			if !seenGroup[k] {
				seenGroup[k] = true
				agg.Groups = append(agg.Groups, g.Sorted())
			}
		}
		if agg.Marker == "" {
			agg.Marker = o.Marker
		}
		hard = hard || o.HasHardError()
	}
	sort.Slice(agg.Candidates, func(i, j int) bool { return agg.Candidates[i].less(agg.Candidates[j]) })

	for _, o := range outputs {
		if o == nil {
			continue
		}
		for _, e := range o.Errors {
			switch {
			case hard && e.Hard:
				agg.Errors = append(agg.Errors, e)
			case !hard && len(agg.Groups) == 0:
				agg.Errors = append(agg.Errors, e)
			}
		}
	}
	return agg
}
