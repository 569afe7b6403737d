// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Validate compiles t as seen through the overlay of s, with no
// callbacks. A compilation failure is a PostEditCompileFailed error
// carrying the compiler's diagnostics and their codes.
func Validate(ctx context.Context, s *Session, t *Target) error {
	t, err := s.Refresh(ctx, t)
	if err != nil {
		return err
	}
	_, err = s.Compile(ctx, t, NoCallbacks{})
	var ce *CompileError
	if errors.As(err, &ce) {
		s.log().Debug("validation failed", zap.String("unit", t.ID), zap.Strings("codes", ce.Diags.Codes()))
		return &Error{
			Kind:    PostEditCompileFailed,
			Message: ce.Diags.Error(),
			Codes:   ce.Diags.Codes(),
			Hard:    true,
		}
	}
	return err
}
