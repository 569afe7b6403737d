// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"
	"rsc.io/rfx/refactor"
)

// settingsFile is the name of the optional settings file at the module root.
const settingsFile = ".rfx.toml"

// settings hold the per-module defaults read from settingsFile.
// Command-line flags override them.
type settings struct {
	ModRoot string `toml:"-"`
	ModPath string `toml:"-"`

	Tags               []string `toml:"tags"`
	MaxBlockStatements int      `toml:"max_block_statements"`
	MarkerTag          string   `toml:"marker_tag"`
	DefaultName        string   `toml:"default_name"`
	SkipValidation     bool     `toml:"skip_validation"`
	Jobs               int      `toml:"jobs"`
}

// loadSettings finds the module containing dir and reads its settings.
// A module without a settings file gets the defaults.
func loadSettings(dir string) (*settings, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	root, err := findModRoot(dir)
	if err != nil {
		return nil, err
	}
	gomod := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(gomod)
	if err != nil {
		return nil, err
	}
	mf, err := modfile.ParseLax(gomod, data, nil)
	if err != nil {
		return nil, err
	}
	if mf.Module == nil {
		return nil, fmt.Errorf("%s: no module statement", gomod)
	}
	st := &settings{ModRoot: root, ModPath: mf.Module.Mod.Path}

	path := filepath.Join(root, settingsFile)
	meta, err := toml.DecodeFile(path, st)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return st, nil
	case err != nil:
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		var keys []string
		for _, k := range undec {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown settings %s", path, strings.Join(keys, ", "))
	}
	if st.MaxBlockStatements < 0 {
		return nil, fmt.Errorf("%s: max_block_statements must not be negative", path)
	}
	return st, nil
}

// findModRoot returns the closest directory at or above dir
// that holds a go.mod file.
func findModRoot(dir string) (string, error) {
	for d := dir; ; {
		if fi, err := os.Stat(filepath.Join(d, "go.mod")); err == nil && !fi.IsDir() {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", fmt.Errorf("no go.mod found for %s", dir)
		}
		d = parent
	}
}

// session returns a compilation session for dir configured by st.
func (st *settings) session(dir string, log *zap.Logger) *refactor.Session {
	s := refactor.NewSession(dir, log)
	s.Config = refactor.Config{BuildTags: st.Tags}
	s.Options = refactor.Options{
		MarkerTag:          st.MarkerTag,
		MaxBlockStatements: st.MaxBlockStatements,
		DefaultName:        st.DefaultName,
	}
	return s
}
