// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

// A Request asks for one refactoring in one build target.
type Request struct {
	Kind      string    `json:"kind" yaml:"kind" msgpack:"kind"`
	Selection Selection `json:"selection" yaml:"selection" msgpack:"selection"`

	// SkipValidation returns the edits without compiling the result.
	SkipValidation bool `json:"skip_validation,omitempty" yaml:"skip_validation,omitempty" msgpack:"skip_validation"`

	// Prior holds the groups of earlier steps run on behalf of the
	// same composite refactoring. They are applied before compiling.
	Prior []Group `json:"prior,omitempty" yaml:"prior,omitempty" msgpack:"prior"`

	// Composite marks the request as a step of a composite refactoring
	// driven from outside: marker comments are left in place.
	Composite bool `json:"composite,omitempty" yaml:"composite,omitempty" msgpack:"composite"`

	// Name names the declaration the refactoring introduces, if any.
	Name string `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name"`

	// Scan asks for candidates instead of edits.
	Scan bool `json:"scan,omitempty" yaml:"scan,omitempty" msgpack:"scan"`
}

// A Result is the outcome of a request in one build target:
// either groups of edits or an error.
type Result struct {
	Groups []Group `json:"groups,omitempty" yaml:"groups,omitempty" msgpack:"groups"`
	Marker string  `json:"marker,omitempty" yaml:"marker,omitempty" msgpack:"marker"`
	Err    *Error  `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error"`
}

// An Output is everything one build target contributes to an answer.
type Output struct {
	Unit       string      `json:"unit" yaml:"unit" msgpack:"unit"`
	Test       bool        `json:"is_test" yaml:"is_test" msgpack:"is_test"`
	Candidates []Candidate `json:"candidates,omitempty" yaml:"candidates,omitempty" msgpack:"candidates"`
	Groups     []Group     `json:"groups,omitempty" yaml:"groups,omitempty" msgpack:"groups"`
	Errors     []*Error    `json:"errors,omitempty" yaml:"errors,omitempty" msgpack:"errors"`
	Marker     string      `json:"marker,omitempty" yaml:"marker,omitempty" msgpack:"marker"`
}

// HasHardError reports whether o carries an error that is not advisory.
func (o *Output) HasHardError() bool {
	for _, e := range o.Errors {
		if e.Hard {
			return true
		}
	}
	return false
}
