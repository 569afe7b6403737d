// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rfx performs semantic refactorings of Go packages.
//
// Usage:
//
//	rfx run --kind kind --sel selection [flags] [packages]
//	rfx candidates --kind kind [flags] [packages]
//	rfx kinds
//
// Every refactoring is computed from type information. Before an edit
// is reported, rfx applies it in memory and compiles the result; an
// edit that would not compile is reported as an error instead.
//
// A package is compiled once for each build target that contains it:
// the package, its test variant and its external test package. Each
// target runs in a worker process of its own, and the results are
// merged. A refactoring that does not apply to some target is not an
// error as long as it applies to another.
//
// # Kinds
//
// rfx kinds lists the refactorings:
//
//	extract-block     wrap statements in an immediately invoked function literal
//	lift-closure      turn an immediately invoked function literal into a function
//	make-method       turn a function into a method of its first parameter's type
//	box-field         change a struct field of type T to *T
//	rename            rename a function or method
//	extract-function  extract-block, then lift-closure
//	extract-method    extract-block, lift-closure, then make-method
//
// The last two are composite: each step runs on the output of the
// previous one, and the code the previous step introduced is found
// again through marker comments of the form
//
//	/*rfx:id:start*/ ... /*rfx:id:end*/
//
// The markers are removed once the last step succeeds. The --composite
// flag keeps them, so that a later run can select the code with @id and
// continue from the edits passed in with --prior.
//
// # Selections
//
// The --sel flag takes one of
//
//	file.go             the whole file
//	file.go:from:to     the byte offsets from through to in file.go
//	file.go:addr        a sam address in file.go, such as /re/, 12 or 12,14
//	@id                 the text between the markers for id
//	name                a package-level declaration
//	T.m                 a method or field of the type T
//
// # Output
//
// By default run prints the edits as JSON: a list of groups, each a
// list of replacements of byte ranges. The offsets of a group refer
// to the text produced by the groups before it. The --format flag
// selects YAML instead. The --preview, --diff and --write flags apply
// the edits and print the edited files, print a diff, or write the
// files back.
//
// candidates prints the places a refactoring could be tried, in file
// order. It does not check that the refactoring succeeds there.
//
// # Settings
//
// A module may hold a file .rfx.toml at its root setting defaults
// for the flags:
//
//	tags = ["integration"]      # build tags
//	max_block_statements = 8    # longest run of statements candidates reports (0=any)
//	marker_tag = "rfx"          # tag in marker comments
//	default_name = "extracted"  # name of new declarations when --name is not given
//	skip_validation = false     # do not compile the edited program
//	jobs = 4                    # maximum number of concurrent workers
//
// # Exit status
//
// Rfx exits with status 0 when the refactoring succeeded, 1 when it
// failed, and 2 for a malformed command line.
package main
