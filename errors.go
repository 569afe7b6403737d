// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "fmt"

// errUsage indicates a malformed command line. Usage errors are
// independent of the source code being refactored.
type errUsage struct {
	err string
}

func newErrUsage(f string, args ...any) *errUsage {
	return &errUsage{fmt.Sprintf(f, args...)}
}

func (e *errUsage) Error() string {
	return "usage: " + e.err
}

// errPrecondition indicates that a command was well-formed, but the
// workspace does not meet some requirement of it. For example, no
// package matched the patterns given.
type errPrecondition struct {
	err string
}

func newErrPrecondition(f string, args ...any) *errPrecondition {
	return &errPrecondition{fmt.Sprintf(f, args...)}
}

func (e *errPrecondition) Error() string {
	return e.err
}

// errFailed reports that the refactoring failed. Its errors have
// already been printed.
type errFailed struct {
	n int
}

func (e *errFailed) Error() string {
	return fmt.Sprintf("%d errors", e.n)
}
