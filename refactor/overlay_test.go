// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlay(t *testing.T) {
	dir := t.TempDir()
	disk := filepath.Join(dir, "disk.go")
	require.NoError(t, os.WriteFile(disk, []byte("package p\n"), 0666))
	virt := filepath.Join(dir, "virt.go")

	o := NewOverlay(Group{{File: disk, Start: 8, End: 9, Text: "q"}})
	o.SetFile(virt, []byte("package v\n"))

	text, err := o.ReadFile(disk)
	require.NoError(t, err)
	assert.Equal(t, "package q\n", string(text))

	data, err := os.ReadFile(disk)
	require.NoError(t, err)
	assert.Equal(t, "package p\n", string(data), "overlay wrote to disk")

	files, err := o.Files()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		disk: []byte("package q\n"),
		virt: []byte("package v\n"),
	}, files)

	c := o.Clone()
	c.Add(Group{{File: virt, Start: 8, End: 9, Text: "w"}})
	assert.Len(t, o.Groups(), 1)
	assert.Len(t, c.Groups(), 2)
	text, err = c.ReadFile(virt)
	require.NoError(t, err)
	assert.Equal(t, "package w\n", string(text))

	_, err = o.ReadFile(filepath.Join(dir, "missing.go"))
	assert.Error(t, err)
}

func TestOverlayFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.go")
	b := filepath.Join(dir, "b.go")
	o := NewOverlay()
	o.SetFile(a, []byte("package a\n"))
	o.SetFile(b, []byte("package b\n"))

	fp1, err := o.fingerprint(nil)
	require.NoError(t, err)
	fp2, err := o.fingerprint(map[string]bool{b: true})
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)

	c := o.Clone()
	c.Add(Group{{File: b, Start: 0, End: 0, Text: "// x\n"}})
	fp3, err := c.fingerprint(map[string]bool{b: true})
	require.NoError(t, err)
	assert.Equal(t, fp2, fp3, "changes to skipped files must not matter")
}
