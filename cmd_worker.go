// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "run one request in one build target (used by run and candidates)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveWorker(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	},
}

// serveWorker reads a workRequest from r, runs it and writes the
// resulting Output to w, both msgpack-encoded.
func serveWorker(ctx context.Context, r io.Reader, w io.Writer, log *zap.Logger) error {
	var wr workRequest
	if err := msgpack.NewDecoder(r).Decode(&wr); err != nil {
		return fmt.Errorf("reading request: %w", err)
	}
	if wr.Request == nil {
		return fmt.Errorf("reading request: no request")
	}
	log.Debug("worker", zap.String("unit", wr.Unit), zap.String("kind", wr.Request.Kind))
	out := runUnit(ctx, &wr, log)
	if err := msgpack.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
