// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
	"golang.org/x/tools/txtar"
	"rsc.io/rfx/refactor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestRun runs the cases in testdata. The comment of each archive
// holds the request, one "key value" line each:
//
//	kind extract-block
//	sel x.go:/a := 1/
//	name helper
//
// A file want/x.go holds the expected content of x.go after the
// refactoring, and a file error holds text the error must contain.
func TestRun(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txt")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no test cases")

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			require.NoError(t, err)
			req := parseTestRequest(t, ar.Comment)

			dir := t.TempDir()
			var names []string
			want := make(map[string][]byte)
			var wantErr string
			for _, f := range ar.Files {
				switch {
				case f.Name == "error":
					wantErr = strings.TrimSpace(string(f.Data))
				case strings.HasPrefix(f.Name, "want/"):
					want[strings.TrimPrefix(f.Name, "want/")] = f.Data
				default:
					targ := filepath.Join(dir, f.Name)
					require.NoError(t, os.WriteFile(targ, f.Data, 0666))
					names = append(names, targ)
				}
			}
			sort.Strings(names)

			s := refactor.NewSession(dir, zaptest.NewLogger(t))
			e := refactor.NewEngine(s, kinds())
			res := e.Run(context.Background(), refactor.FileTarget("m", names...), req)

			if wantErr != "" {
				require.NotNil(t, res.Err, "refactoring succeeded, want error %q", wantErr)
				assert.Contains(t, res.Err.Error(), wantErr)
				assert.Empty(t, res.Groups)
				return
			}
			require.Nil(t, res.Err)
			require.NotEmpty(t, want, "no want files")
			for name, w := range want {
				full := filepath.Join(dir, name)
				old, err := os.ReadFile(full)
				require.NoError(t, err)
				have, err := refactor.Preview(full, old, res.Groups)
				require.NoError(t, err)
				assert.NotContains(t, string(have), "/*rfx:", "markers left in %s", name)
				cmpSource(t, name, have, w)
			}
		})
	}
}

// parseTestRequest parses the request in the comment of a test archive.
func parseTestRequest(t *testing.T, comment []byte) *refactor.Request {
	t.Helper()
	req := new(refactor.Request)
	for _, line := range strings.Split(string(comment), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, _ := strings.Cut(line, " ")
		switch key {
		case "kind":
			req.Kind = val
		case "sel":
			sel, err := refactor.ParseSelection(val)
			require.NoError(t, err)
			req.Selection = sel
		case "name":
			req.Name = val
		case "unsafe":
			req.SkipValidation = true
		default:
			t.Fatalf("unknown request key %q", key)
		}
	}
	require.NotEmpty(t, req.Kind, "no kind")
	return req
}

// cmpSource compares have and want after formatting both.
func cmpSource(t *testing.T, name string, have, want []byte) {
	t.Helper()
	h, err := format.Source(have)
	require.NoError(t, err, "formatting result %s:\n%s", name, have)
	w, err := format.Source(want)
	require.NoError(t, err, "formatting want/%s", name)
	if !bytes.Equal(trimSpace(h), trimSpace(w)) {
		t.Errorf("%s:\n%s", name, h)
		t.Errorf("want:\n%s", w)
	}
}

func trimSpace(data []byte) []byte {
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		lines[i] = bytes.TrimRight(line, " ")
	}
	return bytes.Join(lines, []byte("\n"))
}

// TestCompositeTargets runs a composite over a package and its test
// variant. Both compute the same groups, so the aggregate applies them
// once.
func TestCompositeTargets(t *testing.T) {
	dir := t.TempDir()
	x := filepath.Join(dir, "x.go")
	old := []byte("package m\n\nfunc f() int {\n\ta := 1\n\tb := a - 1\n\treturn a + b\n}\n")
	require.NoError(t, os.WriteFile(x, old, 0666))
	xt := filepath.Join(dir, "x_test.go")
	require.NoError(t, os.WriteFile(xt, []byte("package m\n\nvar result = f()\n"), 0666))

	sel, err := refactor.ParseSelection("x.go:/a := 1/,/b := a - 1/")
	require.NoError(t, err)
	req := &refactor.Request{Kind: "extract-function", Selection: sel, Name: "pair"}
	e := refactor.NewEngine(refactor.NewSession(dir, zaptest.NewLogger(t)), kinds())

	var outs []*refactor.Output
	for _, targ := range []*refactor.Target{refactor.FileTarget("m", x), refactor.FileTarget("m", x, xt)} {
		out := e.Output(context.Background(), targ, req)
		require.Empty(t, out.Errors, "test variant %v", targ.Test)
		require.Len(t, out.Groups, 3, "extract-block, lift-closure and marker removal")
		outs = append(outs, out)
	}
	assert.Equal(t, outs[0].Groups, outs[1].Groups)

	agg := refactor.Aggregate(outs...)
	require.Empty(t, agg.Errors)
	assert.Len(t, agg.Groups, 3)
	have, err := refactor.Preview(x, old, agg.Groups)
	require.NoError(t, err)
	assert.NotContains(t, string(have), "/*rfx:")
	cmpSource(t, "x.go", have, []byte(`package m

func f() int {
	a, b := pair()
	return a + b
}

func pair() (int, int) {
	a := 1
	b := a - 1
	return a, b
}
`))
}

func TestKindsTable(t *testing.T) {
	table := kinds()
	for _, name := range table.Names() {
		steps, err := table.Steps(name)
		require.NoError(t, err, name)
		for _, k := range steps {
			assert.NotNil(t, k.Apply, "%s: step %s has no Apply", name, k.Name)
			assert.NotNil(t, k.Scan, "%s: step %s has no Scan", name, k.Name)
		}
	}
	steps, err := table.Steps("extract-method")
	require.NoError(t, err)
	var names []string
	for _, k := range steps {
		names = append(names, k.Name)
	}
	assert.Equal(t, []string{"extract-block", "lift-closure", "make-method"}, names)
}

func TestPrintKinds(t *testing.T) {
	var buf bytes.Buffer
	printKinds(&buf, kinds())
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, len(kinds()))
	width := len("extract-function")
	for _, line := range lines {
		require.Greater(t, len(line), width+2)
		assert.Equal(t, "  ", line[width:width+2], "misaligned: %q", line)
		assert.NotEqual(t, byte(' '), line[width+2], "misaligned: %q", line)
	}
	assert.Contains(t, buf.String(), "(extract-block, lift-closure)")
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 1, report(&buf, &errFailed{2}))
	assert.Empty(t, buf.String(), "failures are printed before")

	assert.Equal(t, 2, report(&buf, newErrUsage("missing --kind")))
	assert.Equal(t, "rfx: usage: missing --kind\n", buf.String())

	buf.Reset()
	assert.Equal(t, 1, report(&buf, newErrPrecondition("no packages match [.]")))
	assert.Equal(t, "rfx: no packages match [.]\n", buf.String())
}

func TestBtoi(t *testing.T) {
	assert.Equal(t, 2, btoi(true)+btoi(false)+btoi(true))
}
