// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// pipeline runs steps in order. Each step compiles t afresh through an
// overlay holding the groups of every earlier step, and finds its
// selection through the marker the previous step left. The first
// failure ends the pipeline and discards all groups.
//
// Unless req.Composite is set, a final group removes every marker
// comment from the edited files.
func (e *Engine) pipeline(ctx context.Context, t *Target, req *Request, steps []*Kind, overlay *Overlay) (*Result, error) {
	sel := req.Selection
	edited := len(overlay.Groups()) > 0
	var (
		groups []Group
		marker string
	)
	for i, k := range steps {
		s := e.Session.WithOverlay(overlay)
		g, m, err := e.step(ctx, s, t, k, i, sel, req.Name, edited, i+1 < len(steps) || req.Composite)
		if err != nil {
			return nil, withKind(AsError(err), k.Name)
		}
		if len(g) > 0 {
			overlay.Add(g)
			groups = append(groups, g)
			edited = true
		}
		if !req.SkipValidation && len(g) > 0 {
			if err := Validate(ctx, s, t); err != nil {
				return nil, withKind(AsError(err), k.Name)
			}
		}
		marker = m
		if i+1 < len(steps) {
			if m == "" {
				return nil, Errorf(Internal, "%s left no marker for %s", k.Name, steps[i+1].Name)
			}
			sel = MarkerSelection(m)
			e.log().Debug("next step", zap.String("kind", steps[i+1].Name), zap.String("marker", m))
		}
	}

	if !req.Composite {
		g, err := stripMarkers(overlay, e.Session.Options.markerTag())
		if err != nil {
			return nil, Errorf(Internal, "removing markers: %v", err)
		}
		if len(g) > 0 {
			groups = append(groups, g)
		}
		marker = ""
	}
	return &Result{Groups: groups, Marker: marker}, nil
}

// stripMarkers returns a group deleting every marker comment in the
// files the overlay has edited, computed on their final text.
func stripMarkers(o *Overlay, tag string) (Group, error) {
	files, err := o.Files()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var g Group
	for _, name := range names {
		text := files[name]
		ranges := MarkerRanges(text, tag)
		if len(ranges) == 0 {
			continue
		}
		lines := NewLineIndex(text)
		for _, r := range ranges {
			sl, sc := lines.Position(r[0])
			el, ec := lines.Position(r[1])
			g = append(g, Replacement{
				File:      name,
				Start:     r[0],
				End:       r[1],
				StartLine: sl,
				StartChar: sc,
				EndLine:   el,
				EndChar:   ec,
			})
		}
	}
	return g.Sorted(), nil
}
