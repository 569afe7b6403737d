// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"rsc.io/rfx/refactor"
)

var (
	verbose bool
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "rfx",
	Short: "Compiler-checked refactoring of Go packages",
	Long: `rfx performs semantic refactorings of Go code. Every edit is computed
from type information and checked by compiling the edited program
before it is reported.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Encoding = "console"
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debugging information")
	rootCmd.AddCommand(runCmd, candidatesCmd, kindsCmd, workerCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(report(os.Stderr, err))
	}
}

// report prints err and returns the exit status for it.
func report(w io.Writer, err error) int {
	var (
		usage  *errUsage
		failed *errFailed
	)
	switch {
	case errors.As(err, &failed):
		return 1
	case errors.As(err, &usage):
		fmt.Fprintf(w, "rfx: %v\n", err)
		return 2
	}
	fmt.Fprintf(w, "rfx: %v\n", err)
	return 1
}

// printKinds lists the kinds of t with their descriptions.
func printKinds(w io.Writer, t refactor.Table) {
	width := 0
	for _, name := range t.Names() {
		width = max(width, runewidth.StringWidth(name))
	}
	for _, name := range t.Names() {
		k := t[name]
		doc := k.Doc
		if k.Composite() {
			doc += " (" + strings.Join(k.Steps, ", ") + ")"
		}
		fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(name, width), doc)
	}
}
