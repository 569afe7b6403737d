// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"go/types"
	"reflect"
	"sort"
	"strings"
)

// An ErrorKind classifies a failed refactoring.
type ErrorKind int

const (
	_ ErrorKind = iota

	// Internal is a malformed request or a bug: an unknown kind,
	// an unparsable selection, conflicting edits.
	Internal

	// InitialCompileFailed means the input did not compile
	// up to the phase the refactoring needs.
	InitialCompileFailed

	// PostEditCompileFailed means the edited program no longer compiles.
	PostEditCompileFailed

	// NotApplicable means the selection has no valid target for the
	// refactoring in this compilation unit. It is advisory.
	NotApplicable
)

var errorKindNames = []string{
	Internal:              "Internal",
	InitialCompileFailed:  "InitialCompileFailed",
	PostEditCompileFailed: "PostEditCompileFailed",
	NotApplicable:         "NotApplicable",
}

func (k ErrorKind) String() string {
	if k > 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ErrorKind) UnmarshalText(text []byte) error {
	for i, name := range errorKindNames {
		if name != "" && name == string(text) {
			*k = ErrorKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// An Error is the structured failure of one refactoring request.
type Error struct {
	Kind        ErrorKind `json:"kind" yaml:"kind" msgpack:"kind"`
	Message     string    `json:"message" yaml:"message" msgpack:"message"`
	Codes       []string  `json:"codes,omitempty" yaml:"codes,omitempty" msgpack:"codes"`
	Hard        bool      `json:"is_hard_error" yaml:"is_hard_error" msgpack:"hard"`
	Refactoring string    `json:"refactoring,omitempty" yaml:"refactoring,omitempty" msgpack:"refactoring"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Refactoring != "" {
		msg = e.Refactoring + ": " + msg
	}
	if len(e.Codes) > 0 {
		msg += " [" + strings.Join(e.Codes, ", ") + "]"
	}
	return msg
}

// Errorf returns a hard Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Hard: kind != NotApplicable}
}

// NotApplicablef returns a soft NotApplicable error.
func NotApplicablef(format string, args ...any) *Error {
	return Errorf(NotApplicable, format, args...)
}

// Rejectf returns a hard NotApplicable error: the selection is a valid
// target, but the refactoring would change the program's meaning there.
func Rejectf(format string, args ...any) *Error {
	e := Errorf(NotApplicable, format, args...)
	e.Hard = true
	return e
}

// AsError converts err to an *Error. Errors that are not already
// structured become Internal errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		return &Error{Kind: InitialCompileFailed, Message: ce.Error(), Codes: ce.Diags.Codes(), Hard: true}
	}
	return &Error{Kind: Internal, Message: err.Error(), Hard: true}
}

// A CompileError reports that a compilation stopped before reaching
// the requested phase.
type CompileError struct {
	Unit  string
	Phase Phase // phase that failed
	Diags *ErrorList
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s does not compile (%v): %v", e.Unit, e.Phase, e.Diags)
}

func (e *CompileError) Unwrap() error { return e.Diags }

// A Diag is a compiler diagnostic at a particular source position.
// It may have attached diagnostics at other positions
// (but those must not have secondary diagnostics).
type Diag struct {
	Pos  token.Position
	Msg  string
	Code string

	Secondary []*Diag
}

func (e *Diag) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return e.Msg
}

type diagKey struct {
	pos token.Position
	msg string
}

// ErrorList is a set of Diags. It is also an error itself. The zero value is
// an empty list, ready to use.
type ErrorList struct {
	errs []*Diag
	set  map[diagKey]bool
}

// Add adds an error to l. If the error is a Diag, scanner.Error, or
// types.Error, it uses the position information from the error. If the error is
// an ErrorList or a scanner.ErrorList, it merges all errors from that list into
// this list. Otherwise, it adds the error with no position information. It
// suppresses duplicate errors (same position and message).
func (l *ErrorList) Add(err error) {
	var e *Diag

	switch err := err.(type) {
	case nil:
		return

	case *ErrorList:
		for _, e := range err.errs {
			l.Add(e)
		}
		return

	case scanner.ErrorList:
		for _, e := range err {
			l.Add(e)
		}
		return

	case *Diag:
		e = err

	case *scanner.Error:
		e = &Diag{Pos: err.Pos, Msg: err.Msg, Code: "Syntax"}

	case types.Error:
		e = &Diag{Pos: err.Fset.Position(err.Pos), Msg: err.Msg, Code: typesCode(err)}
		if len(l.errs) > 0 && strings.HasPrefix(err.Msg, "\t") {
			// This is a secondary error. Attach it to the primary error.
			last := l.errs[len(l.errs)-1]
			last.Secondary = append(last.Secondary, e)
			return
		}

	default:
		e = &Diag{Msg: err.Error()}
	}

	k := diagKey{e.Pos, e.Msg}
	if !l.set[k] {
		if l.set == nil {
			l.set = make(map[diagKey]bool)
		}
		l.errs = append(l.errs, e)
		l.set[k] = true
	}
}

// typesCode returns the stable go/types error code of err, such as
// "Types0017". go/types does not export the code, so read it by reflection.
func typesCode(err types.Error) string {
	f := reflect.ValueOf(err).FieldByName("go116code")
	if !f.IsValid() || !f.CanInt() || f.Int() == 0 {
		return "Types"
	}
	return fmt.Sprintf("Types%04d", f.Int())
}

// Len returns the number of distinct primary diagnostics in l.
func (l *ErrorList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.errs)
}

// Diags returns the primary diagnostics in l.
func (l *ErrorList) Diags() []*Diag {
	if l == nil {
		return nil
	}
	return l.errs
}

// Codes returns the sorted, distinct diagnostic codes in l.
func (l *ErrorList) Codes() []string {
	if l == nil {
		return nil
	}
	seen := make(map[string]bool)
	var codes []string
	for _, e := range l.errs {
		if e.Code != "" && !seen[e.Code] {
			seen[e.Code] = true
			codes = append(codes, e.Code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Error sorts, deduplicates, and returns a "\n" separated list of formatted
// errors. Note that the result does not end in "\n" because the caller is
// expected to add that.
func (l *ErrorList) Error() string {
	if len(l.errs) == 0 {
		return "no errors"
	}

	sort.SliceStable(l.errs, func(i, j int) bool {
		p1, p2 := l.errs[i].Pos, l.errs[j].Pos
		if p1.Filename != p2.Filename {
			return p1.Filename < p2.Filename
		}
		return p1.Offset < p2.Offset
	})

	// Collapse duplicate messages that appear in many locations on the
	// assumption that the refactoring amplified some issue and the user doesn't
	// want to be flooded.
	count := make(map[string]int)
	for _, e := range l.errs {
		count[e.Msg]++
	}

	buf := new(strings.Builder)
	for _, e := range l.errs {
		msg := e.Msg
		switch {
		case count[msg] > 3:
			n := count[e.Msg]
			count[e.Msg] = -1
			msg += fmt.Sprintf(" [× %d]", n)

		case count[msg] < 0:
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}

		if e.Pos.IsValid() {
			fmt.Fprintf(buf, "%s: %s", e.Pos, msg)
		} else {
			fmt.Fprintf(buf, "%s", msg)
		}
		for _, e2 := range e.Secondary {
			fmt.Fprintf(buf, "\n%s", e2)
		}
	}
	return buf.String()
}

// Err returns an error equivalent to this error list.
// If the list is empty, Err returns nil.
func (l *ErrorList) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	return l
}
