// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"context"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// A Phase is a checkpoint in a compilation.
type Phase int

const (
	_ Phase = iota

	// PhaseSyntax is reached once every file has parsed.
	// Only syntax is available.
	PhaseSyntax

	// PhaseTypes is reached once the target has type-checked.
	PhaseTypes
)

func (p Phase) String() string {
	switch p {
	case PhaseSyntax:
		return "syntax"
	case PhaseTypes:
		return "types"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// An Action tells a compilation whether to go on after a checkpoint.
type Action int

const (
	Continue Action = iota
	Stop
)

// Callbacks are invoked by Compile at its checkpoints.
// Either may return Stop to end the compilation early.
type Callbacks interface {
	AfterParse(u *Unit) Action
	AfterTypeCheck(u *Unit) Action
}

// NoCallbacks is a plain compilation.
type NoCallbacks struct{}

func (NoCallbacks) AfterParse(*Unit) Action     { return Continue }
func (NoCallbacks) AfterTypeCheck(*Unit) Action { return Continue }

// PhaseCallbacks calls Fn at exactly one checkpoint and then stops.
type PhaseCallbacks struct {
	Phase Phase
	Fn    func(*Unit)
}

func (c PhaseCallbacks) AfterParse(u *Unit) Action {
	if c.Phase != PhaseSyntax {
		return Continue
	}
	c.Fn(u)
	return Stop
}

func (c PhaseCallbacks) AfterTypeCheck(u *Unit) Action {
	if c.Phase != PhaseTypes {
		return Continue
	}
	c.Fn(u)
	return Stop
}

// A Session compiles build targets of one workspace.
// Every source file is read through its Overlay.
// A Session must not be used concurrently.
type Session struct {
	Dir     string // working directory for listing
	Config  Config
	Options Options
	Overlay *Overlay
	Log     *zap.Logger

	cache *listCache
}

// NewSession returns a session rooted at dir.
func NewSession(dir string, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{Dir: dir, Overlay: NewOverlay(), Log: log, cache: newListCache()}
}

// WithOverlay returns a session like s that reads through o.
// The two sessions share their listing cache.
func (s *Session) WithOverlay(o *Overlay) *Session {
	s2 := *s
	s2.Overlay = o
	if s2.cache == nil {
		s2.cache = newListCache()
		s.cache = s2.cache
	}
	return &s2
}

func (s *Session) overlay() *Overlay {
	if s.Overlay == nil {
		s.Overlay = NewOverlay()
	}
	return s.Overlay
}

func (s *Session) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Compile runs one compilation of t: parse, AfterParse, type-check,
// AfterTypeCheck. It returns a *CompileError if the compilation fails
// before a callback stops it.
func (s *Session) Compile(ctx context.Context, t *Target, cb Callbacks) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := s.log().With(zap.String("unit", t.ID))
	log.Debug("compile", zap.Int("files", len(t.Files)))

	u := &Unit{
		Target:  t,
		Fset:    token.NewFileSet(),
		Options: s.Options,
		Log:     log,
	}
	errs := new(ErrorList)
	for _, name := range t.Files {
		text, err := s.overlay().ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		syntax, err := parser.ParseFile(u.Fset, name, text, parser.ParseComments|parser.SkipObjectResolution)
		errs.Add(err)
		if syntax == nil {
			continue
		}
		u.Files = append(u.Files, newFile(u.Fset, name, text, syntax))
	}
	if errs.Len() > 0 {
		return nil, &CompileError{Unit: t.ID, Phase: PhaseSyntax, Diags: errs}
	}
	if len(u.Files) > 0 && t.Name == "" {
		u.Name = u.Files[0].Syntax.Name.Name
	} else {
		u.Name = t.Name
	}
	u.Phase = PhaseSyntax
	if cb.AfterParse(u) == Stop {
		return u, nil
	}

	conf := &types.Config{
		Error:    errs.Add,
		Importer: s.importer(u.Fset, t),
		Sizes:    t.Sizes,
	}
	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
		Instances:  make(map[*ast.Ident]types.Instance),
	}
	var files []*ast.File
	for _, f := range u.Files {
		files = append(files, f.Syntax)
	}
	pkg, _ := conf.Check(t.PkgPath, u.Fset, files, info)
	if errs.Len() > 0 {
		log.Debug("type errors", zap.Int("count", errs.Len()))
		return nil, &CompileError{Unit: t.ID, Phase: PhaseTypes, Diags: errs}
	}
	u.Types = pkg
	u.Info = info
	u.Phase = PhaseTypes
	cb.AfterTypeCheck(u)
	return u, nil
}

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

func (s *Session) importer(fset *token.FileSet, t *Target) types.Importer {
	if t.source {
		return importer.ForCompiler(fset, "source", nil)
	}
	gc := importer.ForCompiler(fset, "gc", func(path string) (io.ReadCloser, error) {
		file := t.exports[path]
		if file == "" {
			return nil, fmt.Errorf("no export data for %s", path)
		}
		return os.Open(file)
	})
	return importerFunc(func(path string) (*types.Package, error) {
		if path == "unsafe" {
			return types.Unsafe, nil
		}
		if p, ok := t.imports[path]; ok {
			path = p
		}
		return gc.Import(path)
	})
}

// A Unit is the result of one compilation of a Target.
// Positions in a Unit are meaningful only within it:
// every compilation has its own FileSet.
type Unit struct {
	Target  *Target
	Name    string // package name
	Fset    *token.FileSet
	Files   []*File // in Target.Files order
	Phase   Phase   // last checkpoint reached
	Types   *types.Package
	Info    *types.Info
	Options Options
	Log     *zap.Logger
}

func (u *Unit) markerTag() string { return u.Options.markerTag() }

// MarkerTag returns the tag of marker comments in u.
func (u *Unit) MarkerTag() string { return u.Options.markerTag() }

// File is a source file of a Unit, in both text and parsed form.
type File struct {
	Name      string // absolute path
	Text      []byte
	Syntax    *ast.File
	Lines     *LineIndex
	Generated bool // carries a "Code generated ... DO NOT EDIT." comment

	tf *token.File
}

func newFile(fset *token.FileSet, name string, text []byte, syntax *ast.File) *File {
	return &File{
		Name:      name,
		Text:      text,
		Syntax:    syntax,
		Lines:     NewLineIndex(text),
		Generated: ast.IsGenerated(syntax),
		tf:        fset.File(syntax.Package),
	}
}

// Offset returns the byte offset of pos in f.
func (f *File) Offset(pos token.Pos) int {
	return int(pos) - f.tf.Base()
}

// Pos returns the position of byte offset off in f.
func (f *File) Pos(off int) token.Pos {
	return token.Pos(f.tf.Base() + off)
}

// Contains reports whether pos lies within f (its end included).
func (f *File) Contains(pos token.Pos) bool {
	return f.tf.Base() <= int(pos) && int(pos) <= f.tf.Base()+f.tf.Size()
}

// FileAt returns the file of u containing pos, or nil.
func (u *Unit) FileAt(pos token.Pos) *File {
	if !pos.IsValid() {
		return nil
	}
	i := sort.Search(len(u.Files), func(i int) bool {
		return u.Files[i].tf.Base()+u.Files[i].tf.Size() >= int(pos)
	})
	// Files are added to the FileSet in order, so bases increase.
	if i < len(u.Files) && u.Files[i].Contains(pos) {
		return u.Files[i]
	}
	return nil
}

// FileByName returns the file of u with the given name.
// A relative name is taken relative to the target directory;
// a bare base name matches if it is unambiguous.
func (u *Unit) FileByName(name string) *File {
	full := name
	if !filepath.IsAbs(full) {
		full = filepath.Join(u.Target.Dir, name)
	}
	full = filepath.Clean(full)
	for _, f := range u.Files {
		if f.Name == full || f.Name == abs(name) {
			return f
		}
	}
	if filepath.Base(name) == name {
		var match *File
		for _, f := range u.Files {
			if filepath.Base(f.Name) == name {
				if match != nil {
					return nil
				}
				match = f
			}
		}
		return match
	}
	return nil
}

// ShortName returns name relative to the target directory when it is inside it.
func (u *Unit) ShortName(name string) string {
	if rel, err := filepath.Rel(u.Target.Dir, name); err == nil && filepath.IsLocal(rel) {
		return rel
	}
	return name
}

func (u *Unit) Position(pos token.Pos) token.Position {
	return u.Fset.Position(pos)
}

// Addr returns a short human-readable form of pos.
func (u *Unit) Addr(pos token.Pos) string {
	p := u.Fset.PositionFor(pos, false)
	p.Filename = u.ShortName(p.Filename)
	return p.String()
}

// Text returns the source text of [lo, hi).
func (u *Unit) Text(lo, hi token.Pos) []byte {
	f := u.FileAt(lo)
	if f == nil {
		panic("file not found")
	}
	return f.Text[f.Offset(lo):f.Offset(hi)]
}

// NodeText returns the source text of n.
func (u *Unit) NodeText(n ast.Node) string {
	return string(u.Text(n.Pos(), n.End()))
}

// Synthetic reports whether n lies in a generated file or has its
// position remapped by a //line directive. Edits there are not shown
// to users.
func (u *Unit) Synthetic(n ast.Node) bool {
	f := u.FileAt(n.Pos())
	if f == nil || f.Generated {
		return true
	}
	return u.Fset.Position(n.Pos()).Filename != f.Name
}

// SyntaxAt returns the stack of syntax nodes enclosing pos,
// innermost first.
func (u *Unit) SyntaxAt(pos token.Pos) []ast.Node {
	f := u.FileAt(pos)
	if f == nil {
		return nil
	}
	var stack []ast.Node
	ast.Inspect(f.Syntax, func(n ast.Node) bool {
		if n == nil || pos < n.Pos() || n.End() <= pos {
			return false
		}
		stack = append(stack, n)
		return true
	})
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack
}

// LookupAt returns the object name resolves to at pos.
func (u *Unit) LookupAt(name string, pos token.Pos) types.Object {
	f := u.FileAt(pos)
	if f == nil || u.Info == nil {
		return nil
	}
	scope := u.Info.Scopes[f.Syntax]
	if scope == nil {
		return nil
	}
	_, obj := scope.Innermost(pos).LookupParent(name, pos)
	return obj
}

// ForEachFile calls fn for every file of u that is not generated.
func (u *Unit) ForEachFile(fn func(f *File)) {
	for _, f := range u.Files {
		if !f.Generated {
			fn(f)
		}
	}
}
