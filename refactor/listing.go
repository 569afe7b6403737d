// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"context"
	"fmt"
	"go/types"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"
)

// A Target is one build target: a package variant as compiled for a
// particular binary. A package p with tests yields the targets
//
//	p (the regular package)
//	p [p.test] (p compiled with its internal test files)
//	p_test [p.test] (the external test package)
//
// A source file may therefore belong to several targets.
// Targets are immutable once listed.
type Target struct {
	ID      string
	PkgPath string
	Name    string
	Dir     string
	Test    bool     // compiled for a test binary
	Files   []string // absolute paths of the Go files handed to the compiler
	Sizes   types.Sizes

	imports map[string]string // import path as written => package path
	exports map[string]string // package path => export data file
	source  bool              // import dependencies from source
}

func (t *Target) String() string { return t.ID }

// HasFile reports whether name is compiled as part of t.
func (t *Target) HasFile(name string) bool {
	name = abs(name)
	for _, f := range t.Files {
		if f == name {
			return true
		}
	}
	return false
}

const listMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedExportFile |
	packages.NeedTypesSizes |
	packages.NeedModule

type listCache = lru.Cache[string, []*Target]

func newListCache() *listCache {
	c, err := lru.New[string, []*Target](64)
	if err != nil {
		panic(err) // only for a non-positive size
	}
	return c
}

// Targets lists the build targets matching patterns, including test
// variants, as seen through the session's overlay.
// Synthesized test main packages are omitted.
func (s *Session) Targets(ctx context.Context, patterns ...string) ([]*Target, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	overlay, err := s.overlay().Files()
	if err != nil {
		return nil, err
	}
	fp, err := s.overlay().fingerprint(nil)
	if err != nil {
		return nil, err
	}
	key := strings.Join([]string{s.Dir, s.Config.String(), strings.Join(patterns, " "), fp}, "\x00")
	if ts, ok := s.cache.Get(key); ok {
		s.log().Debug("list cached", zap.Strings("patterns", patterns))
		return ts, nil
	}

	flags, envs, err := s.Config.flagsEnvs("go")
	if err != nil {
		return nil, err
	}
	cfg := &packages.Config{
		Context:    ctx,
		Mode:       listMode,
		Dir:        s.Dir,
		Env:        environ(envs),
		BuildFlags: flags,
		Tests:      true,
		Overlay:    overlay,
	}
	s.log().Debug("list", zap.Strings("patterns", patterns), zap.Strings("flags", flags))
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}

	var targets []*Target
	for _, p := range pkgs {
		if strings.HasSuffix(p.PkgPath, ".test") || strings.HasSuffix(p.ID, ".test") {
			continue
		}
		if len(p.CompiledGoFiles) == 0 && len(p.Errors) > 0 {
			return nil, fmt.Errorf("listing %s: %v", p.ID, p.Errors[0])
		}
		targets = append(targets, newTarget(p))
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })
	s.cache.Add(key, targets)
	return targets, nil
}

func newTarget(p *packages.Package) *Target {
	t := &Target{
		ID:      p.ID,
		PkgPath: p.PkgPath,
		Name:    p.Name,
		Test:    strings.Contains(p.ID, " ["),
		Sizes:   p.TypesSizes,
		imports: make(map[string]string),
		exports: make(map[string]string),
	}
	for _, name := range p.CompiledGoFiles {
		if strings.HasSuffix(name, ".go") {
			t.Files = append(t.Files, abs(name))
		}
	}
	if len(t.Files) > 0 {
		t.Dir = filepath.Dir(t.Files[0])
	}
	for path, imp := range p.Imports {
		t.imports[path] = imp.PkgPath
	}
	seen := make(map[string]bool)
	var visit func(*packages.Package)
	visit = func(p *packages.Package) {
		for _, imp := range p.Imports {
			if seen[imp.ID] {
				continue
			}
			seen[imp.ID] = true
			if imp.ExportFile != "" {
				t.exports[imp.PkgPath] = imp.ExportFile
			}
			visit(imp)
		}
	}
	visit(p)
	return t
}

// FileTarget returns a target made of the given files, outside any
// module. Dependencies are imported from source, so it is meant for
// small programs that import only the standard library.
func FileTarget(pkgPath string, files ...string) *Target {
	t := &Target{
		ID:      pkgPath,
		PkgPath: pkgPath,
		Sizes:   types.SizesFor("gc", runtime.GOARCH),
		source:  true,
	}
	for _, name := range files {
		name = abs(name)
		t.Files = append(t.Files, name)
		if strings.HasSuffix(name, "_test.go") {
			t.Test = true
		}
	}
	if len(t.Files) > 0 {
		t.Dir = filepath.Dir(t.Files[0])
	}
	return t
}

// Refresh returns the listing of t under the session's overlay.
// Listing again is needed only when the overlay changes files
// outside t, which may change t's dependencies.
func (s *Session) Refresh(ctx context.Context, t *Target) (*Target, error) {
	if t.source {
		return t, nil
	}
	own := make(map[string]bool)
	for _, f := range t.Files {
		own[f] = true
	}
	outside := false
	for _, g := range s.overlay().Groups() {
		for _, name := range g.Files() {
			if !own[abs(name)] {
				outside = true
			}
		}
	}
	if !outside {
		return t, nil
	}
	targets, err := s.Targets(ctx, t.PkgPath)
	if err != nil {
		return nil, err
	}
	for _, t2 := range targets {
		if t2.ID == t.ID {
			return t2, nil
		}
	}
	return nil, fmt.Errorf("target %s disappeared after edits", t.ID)
}
