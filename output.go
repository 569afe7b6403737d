// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
	"rsc.io/rfx/diff"
	"rsc.io/rfx/refactor"
)

var (
	hardColor = color.New(color.FgRed, color.Bold)
	softColor = color.New(color.FgYellow)
)

// encode writes v to w in format, "json" or "yaml".
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "\t")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return newErrUsage("unknown format %q (want json or yaml)", format)
}

// printErrors prints errs to w, one per line, hard errors first.
func printErrors(w io.Writer, errs []*refactor.Error) {
	errs = append([]*refactor.Error(nil), errs...)
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Hard && !errs[j].Hard })
	for _, e := range errs {
		if e.Hard {
			hardColor.Fprint(w, "error")
		} else {
			softColor.Fprint(w, "not applicable")
		}
		fmt.Fprintf(w, ": %v\n", e)
	}
}

// printCandidates prints cands to w as an aligned table,
// with file names relative to root.
func printCandidates(w io.Writer, root string, cands []refactor.Candidate) {
	type row struct{ file, span, size string }
	rows := []row{{"FILE", "BYTES", "LINES"}}
	for _, c := range cands {
		rows = append(rows, row{
			file: relPath(root, c.File),
			span: fmt.Sprintf("%d:%d", c.From, c.To),
			size: strconv.Itoa(c.Size),
		})
	}
	fileWidth, spanWidth := 0, 0
	for _, r := range rows {
		fileWidth = max(fileWidth, runewidth.StringWidth(r.file))
		spanWidth = max(spanWidth, runewidth.StringWidth(r.span))
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s  %s\n",
			runewidth.FillRight(r.file, fileWidth),
			runewidth.FillLeft(r.span, spanWidth),
			r.size)
	}
}

func relPath(root, name string) string {
	if rel, err := filepath.Rel(root, name); err == nil && filepath.IsLocal(rel) {
		return rel
	}
	return name
}

// pickOutput returns the output whose groups edit the most files.
// Every build target sees the same files through different build
// lenses, and their groups are layered separately, so the edits of
// only one target can be applied.
func pickOutput(outs []*refactor.Output) *refactor.Output {
	var best *refactor.Output
	bestFiles := -1
	for _, o := range outs {
		if o == nil || len(o.Groups) == 0 {
			continue
		}
		files := make(map[string]bool)
		for _, g := range o.Groups {
			for _, f := range g.Files() {
				files[f] = true
			}
		}
		if len(files) > bestFiles {
			best, bestFiles = o, len(files)
		}
	}
	return best
}

// A fileChange is the old and new content of one edited file.
type fileChange struct {
	name     string
	old, new []byte
	mode     os.FileMode
}

// changes computes the final content of every file o edits.
func changes(o *refactor.Output) ([]*fileChange, error) {
	seen := make(map[string]bool)
	var names []string
	for _, g := range o.Groups {
		for _, f := range g.Files() {
			if !seen[f] {
				seen[f] = true
				names = append(names, f)
			}
		}
	}
	sort.Strings(names)

	var list []*fileChange
	for _, name := range names {
		fi, err := os.Stat(name)
		if err != nil {
			return nil, err
		}
		old, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		new, err := refactor.Preview(name, old, o.Groups)
		if err != nil {
			return nil, err
		}
		list = append(list, &fileChange{name: name, old: old, new: new, mode: fi.Mode().Perm()})
	}
	return list, nil
}

// showPreview writes the new content of each changed file to w.
func showPreview(w io.Writer, root string, list []*fileChange) {
	for _, c := range list {
		fmt.Fprintf(w, "== %s ==\n%s", relPath(root, c.name), c.new)
	}
}

// showDiff writes a unified diff of each changed file to w.
func showDiff(w io.Writer, root string, list []*fileChange) error {
	for _, c := range list {
		name := relPath(root, c.name)
		d, err := diff.Diff("a/"+name, c.old, "b/"+name, c.new)
		if err != nil {
			return err
		}
		w.Write(d)
	}
	return nil
}

// writeChanges writes each changed file back to disk.
func writeChanges(list []*fileChange) error {
	for _, c := range list {
		if err := os.WriteFile(c.name, c.new, c.mode); err != nil {
			return err
		}
	}
	return nil
}
