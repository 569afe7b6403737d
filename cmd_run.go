// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"rsc.io/rfx/refactor"
)

// Flags shared by run and candidates.
var (
	flagKind   string
	flagTags   string
	flagFormat string
	flagInproc bool
	flagJobs   int
)

// Flags of run.
var (
	flagSel       string
	flagName      string
	flagUnsafe    bool
	flagPrior     string
	flagComposite bool
	flagPreview   bool
	flagDiff      bool
	flagWrite     bool
)

var runCmd = &cobra.Command{
	Use:   "run --kind kind --sel selection [packages]",
	Short: "Run a refactoring on the selected code",
	Long: `Run performs one refactoring in every build target containing the
selection: the package itself, its test variant and its external test
package. Each target is compiled in a worker process of its own, and
the edited program is compiled again to check the result.

A selection is one of

	file.go:from:to   byte offsets in file.go
	file.go:addr      a sam address, such as /re/ or 12,14
	@id               the text between marker comments for id
	T.f               a package-level declaration, method or field

By default the edits are printed as JSON. --preview, --diff and --write
apply them instead.`,
	RunE: runRefactor,
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates --kind kind [packages]",
	Short: "List the places a refactoring could apply to",
	RunE:  runCandidates,
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the refactorings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printKinds(cmd.OutOrStdout(), kinds())
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, candidatesCmd} {
		cmd.Flags().StringVar(&flagKind, "kind", "", "refactoring to run (see rfx kinds)")
		cmd.Flags().StringVar(&flagTags, "tags", "", "comma-separated build tags, overriding the settings file")
		cmd.Flags().BoolVar(&flagInproc, "inproc", false, "run build targets in this process, one after another")
		cmd.Flags().IntVar(&flagJobs, "jobs", 0, "maximum number of concurrent workers (0=settings or GOMAXPROCS)")
	}
	runCmd.Flags().StringVar(&flagFormat, "format", "json", "output format (json|yaml)")
	candidatesCmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table|json|yaml)")

	runCmd.Flags().StringVar(&flagSel, "sel", "", "selection to refactor")
	runCmd.Flags().StringVar(&flagName, "name", "", "name of the declaration the refactoring introduces")
	runCmd.Flags().BoolVar(&flagUnsafe, "unsafe", false, "skip compiling the edited program")
	runCmd.Flags().StringVar(&flagPrior, "prior", "", "file of edit groups (JSON or YAML) to apply before refactoring")
	runCmd.Flags().BoolVar(&flagComposite, "composite", false, "keep marker comments for a later step")
	runCmd.Flags().BoolVar(&flagPreview, "preview", false, "print the edited files")
	runCmd.Flags().BoolVar(&flagDiff, "diff", false, "print a diff of the edits")
	runCmd.Flags().BoolVar(&flagWrite, "write", false, "write the edited files")
}

// newOrchestrator returns an orchestrator for the module containing dir.
func newOrchestrator(dir string) (*orchestrator, error) {
	st, err := loadSettings(dir)
	if err != nil {
		return nil, err
	}
	if flagTags != "" {
		st.Tags = strings.Split(flagTags, ",")
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	jobs := flagJobs
	if jobs == 0 {
		jobs = st.Jobs
	}
	return &orchestrator{settings: st, log: logger, exe: exe, inproc: flagInproc, jobs: jobs}, nil
}

func checkKind(name string) error {
	if name == "" {
		return newErrUsage("missing --kind")
	}
	if _, err := kinds().Steps(name); err != nil {
		return newErrUsage("unknown refactoring %q (see rfx kinds)", name)
	}
	return nil
}

func runRefactor(cmd *cobra.Command, args []string) error {
	if err := checkKind(flagKind); err != nil {
		return err
	}
	if flagSel == "" {
		return newErrUsage("missing --sel")
	}
	sel, err := refactor.ParseSelection(flagSel)
	if err != nil {
		return newErrUsage("%v", err)
	}
	if n := btoi(flagPreview) + btoi(flagDiff) + btoi(flagWrite); n > 1 {
		return newErrUsage("at most one of --preview, --diff and --write")
	}
	if sel.File != "" {
		if sel.File, err = filepath.Abs(sel.File); err != nil {
			return err
		}
	}
	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"."}
		if sel.File != "" {
			patterns = []string{"file=" + sel.File}
		}
	}

	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	o, err := newOrchestrator(dir)
	if err != nil {
		return err
	}
	req := &refactor.Request{
		Kind:           flagKind,
		Selection:      sel,
		SkipValidation: flagUnsafe || o.settings.SkipValidation,
		Composite:      flagComposite,
		Name:           flagName,
	}
	if flagPrior != "" {
		if req.Prior, err = readGroups(flagPrior); err != nil {
			return err
		}
	}
	logger.Debug("run", zap.String("kind", req.Kind), zap.Stringer("selection", sel), zap.Strings("patterns", patterns))

	outs, err := o.run(cmd.Context(), dir, req, patterns)
	if err != nil {
		return err
	}
	agg := refactor.Aggregate(outs...)
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if !flagPreview && !flagDiff && !flagWrite {
		if err := encode(stdout, flagFormat, agg); err != nil {
			return err
		}
		if len(agg.Groups) == 0 && len(agg.Errors) > 0 {
			return &errFailed{len(agg.Errors)}
		}
		return nil
	}

	printErrors(stderr, agg.Errors)
	if agg.HasHardError() || len(agg.Groups) == 0 {
		return &errFailed{len(agg.Errors)}
	}
	list, err := changes(pickOutput(outs))
	if err != nil {
		return err
	}
	switch {
	case flagPreview:
		showPreview(stdout, o.settings.ModRoot, list)
	case flagDiff:
		return showDiff(stdout, o.settings.ModRoot, list)
	case flagWrite:
		if err := writeChanges(list); err != nil {
			return err
		}
		for _, c := range list {
			logger.Info("wrote", zap.String("file", c.name))
		}
	}
	return nil
}

func runCandidates(cmd *cobra.Command, args []string) error {
	if err := checkKind(flagKind); err != nil {
		return err
	}
	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	o, err := newOrchestrator(dir)
	if err != nil {
		return err
	}
	outs, err := o.run(cmd.Context(), dir, &refactor.Request{Kind: flagKind, Scan: true}, patterns)
	if err != nil {
		return err
	}
	agg := refactor.Aggregate(outs...)
	if flagFormat == "table" {
		printErrors(cmd.ErrOrStderr(), agg.Errors)
		printCandidates(cmd.OutOrStdout(), o.settings.ModRoot, agg.Candidates)
		return nil
	}
	return encode(cmd.OutOrStdout(), flagFormat, agg)
}

// readGroups reads a list of edit groups from file.
// YAML is a superset of JSON, so one decoder reads both.
func readGroups(file string) ([]refactor.Group, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var groups []refactor.Group
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	for i, g := range groups {
		if err := g.Check(); err != nil {
			return nil, fmt.Errorf("%s: group %d: %w", file, i, err)
		}
	}
	return groups, nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
