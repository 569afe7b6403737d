// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// writeModule writes go.mod for module m and the given files into a
// new directory and returns it.
func writeModule(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	files["go.mod"] = "module example.com/m\n\ngo 1.22\n"
	for name, data := range files {
		name = filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(name), 0777))
		require.NoError(t, os.WriteFile(name, []byte(data), 0666))
	}
	return dir
}

func TestLoadSettingsDefaults(t *testing.T) {
	dir := writeModule(t, map[string]string{"sub/x.go": "package sub\n"})
	st, err := loadSettings(filepath.Join(dir, "sub"))
	require.NoError(t, err)
	assert.Equal(t, "example.com/m", st.ModPath)
	assert.Equal(t, dir, st.ModRoot)
	assert.Zero(t, st.MaxBlockStatements)
	assert.Empty(t, st.Tags)
}

func TestLoadSettings(t *testing.T) {
	dir := writeModule(t, map[string]string{
		settingsFile: `
tags = ["integration", "linux"]
max_block_statements = 8
marker_tag = "mark"
default_name = "helper"
skip_validation = true
jobs = 3
`,
	})
	st, err := loadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"integration", "linux"}, st.Tags)
	assert.Equal(t, 8, st.MaxBlockStatements)
	assert.True(t, st.SkipValidation)
	assert.Equal(t, 3, st.Jobs)

	s := st.session(dir, zaptest.NewLogger(t))
	assert.Equal(t, []string{"integration", "linux"}, s.Config.BuildTags)
	assert.Equal(t, "mark", s.Options.MarkerTag)
	assert.Equal(t, "helper", s.Options.DefaultName)
	assert.Equal(t, 8, s.Options.MaxBlockStatements)
}

func TestLoadSettingsErrors(t *testing.T) {
	for _, tt := range []struct {
		name, data, err string
	}{
		{"unknown", "colour = true\n", "unknown settings colour"},
		{"negative", "max_block_statements = -1\n", "must not be negative"},
		{"syntax", "tags = [\n", "failed to parse TOML"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeModule(t, map[string]string{settingsFile: tt.data})
			_, err := loadSettings(dir)
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestLoadSettingsNoModule(t *testing.T) {
	dir := t.TempDir()
	_, err := findModRoot(dir)
	if err == nil {
		t.Skip("temporary directory is inside a module")
	}
	_, err = loadSettings(dir)
	assert.ErrorContains(t, err, "no go.mod found")
}
