// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultMarkerTag is the tag of marker comments when none is configured.
const DefaultMarkerTag = "rfx"

// Marker comments are block comments of the form
//
//	/*tag:id:start*/ ... /*tag:id:end*/
//
// They let one pipeline step find a position produced by an earlier step
// in a fresh compilation, where no syntax tree identity survives.
// Ids must not nest.

// MarkerStart returns the opening marker comment for id.
func MarkerStart(tag, id string) string {
	return "/*" + tag + ":" + id + ":start*/"
}

// MarkerEnd returns the closing marker comment for id.
func MarkerEnd(tag, id string) string {
	return "/*" + tag + ":" + id + ":end*/"
}

// MarkerID returns the id of the n'th marker left by step step of a
// pipeline, running kind at offset off of the file with base name file.
// Build targets sharing a file compute the same ids for the same
// refactoring, so their groups are identical.
func MarkerID(kind string, step int, file string, off, n int) string {
	key := fmt.Sprintf("%s/%d/%s:%d/%d", kind, step, file, off, n)
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

// FindMarker returns the offsets of the text between the first marker
// pair for id in text. The markers themselves are excluded.
func FindMarker(text []byte, tag, id string) (lo, hi int, ok bool) {
	start := []byte(MarkerStart(tag, id))
	i := bytes.Index(text, start)
	if i < 0 {
		return 0, 0, false
	}
	lo = i + len(start)
	j := bytes.Index(text[lo:], []byte(MarkerEnd(tag, id)))
	if j < 0 {
		return 0, 0, false
	}
	return lo, lo + j, true
}

func markerRE(tag string) *regexp.Regexp {
	return regexp.MustCompile(`/\*` + regexp.QuoteMeta(tag) + `:[0-9A-Za-z_-]+:(?:start|end)\*/`)
}

// MarkerRanges returns the byte ranges of every marker comment in text,
// in increasing order.
func MarkerRanges(text []byte, tag string) [][2]int {
	var out [][2]int
	for _, m := range markerRE(tag).FindAllIndex(text, -1) {
		out = append(out, [2]int{m[0], m[1]})
	}
	return out
}

// StripMarkers returns text with every marker comment removed.
func StripMarkers(text []byte, tag string) []byte {
	if !bytes.Contains(text, []byte("/*"+tag+":")) {
		return text
	}
	return markerRE(tag).ReplaceAll(text, nil)
}
