// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	g := Group{{File: "f", Start: 1, End: 2, Text: "x"}, {File: "f", Start: 5, End: 6, Text: "y"}}
	reordered := Group{g[1], g[0]}
	soft := NotApplicablef("not here")
	soft2 := NotApplicablef("not there either")
	hard := Errorf(PostEditCompileFailed, "broken")
	reject := Rejectf("would change meaning")

	for _, tt := range []struct {
		name   string
		outs   []*Output
		groups int
		errs   []*Error
	}{
		{
			name:   "edits hide advisory errors",
			outs:   []*Output{{Unit: "p", Groups: []Group{g}}, {Unit: "p [p.test]", Errors: []*Error{soft}}},
			groups: 1,
		},
		{
			name: "advisory errors without edits",
			outs: []*Output{{Unit: "p", Errors: []*Error{soft}}, {Unit: "p_test", Errors: []*Error{soft2}}},
			errs: []*Error{soft, soft2},
		},
		{
			name:   "hard errors win",
			outs:   []*Output{{Unit: "p", Groups: []Group{g}}, {Unit: "p [p.test]", Errors: []*Error{hard}}, {Unit: "p_test", Errors: []*Error{soft}}},
			groups: 1,
			errs:   []*Error{hard},
		},
		{
			name: "rejections are hard",
			outs: []*Output{{Unit: "p", Errors: []*Error{reject}}, {Unit: "p_test", Errors: []*Error{soft}}},
			errs: []*Error{reject},
		},
		{
			name:   "identical groups are kept once",
			outs:   []*Output{{Unit: "p", Groups: []Group{g}}, {Unit: "p [p.test]", Groups: []Group{reordered}}, nil},
			groups: 1,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			agg := Aggregate(tt.outs...)
			assert.Len(t, agg.Groups, tt.groups)
			assert.Equal(t, tt.errs, agg.Errors)
		})
	}
}

func TestAggregateCandidates(t *testing.T) {
	a := Candidate{File: "a.go", From: 10, To: 20, Size: 1}
	b := Candidate{File: "a.go", From: 10, To: 30, Size: 2}
	c := Candidate{File: "b.go", From: 0, To: 5, Size: 1}
	agg := Aggregate(
		&Output{Unit: "p", Candidates: []Candidate{c, a}},
		&Output{Unit: "p [p.test]", Candidates: []Candidate{b, a, c}},
	)
	if diff := cmp.Diff([]Candidate{a, b, c}, agg.Candidates); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}
