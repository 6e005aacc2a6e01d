// Package modules turns css files into css modules: every class and
// keyframes name declared in a file gets a globally unique name and @import
// merges names of the imported module into the importer.
package modules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"cssmod/css"
	"cssmod/utils/debug"
)

var (
	// ErrImportCycle is reported when module imports itself directly or
	// through other modules.
	ErrImportCycle = errors.New("import cycle")
	// ErrNameCollision is reported in strict mode when two modules share file
	// stem and therefore name prefix.
	ErrNameCollision = errors.New("module name collision")
)

// Names maps local names as authored to assigned global names.
type Names map[string]string

// Module is a single css file after transformation. Names include names of
// all imported modules.
type Module struct {
	Path     string
	Children []Child
	Names    Names
	// Tree is parsed source, kept only with WithParseTrees.
	Tree []*css.Node
}

// Stem is file name without extension, it prefixes every global name of the
// module.
func (m *Module) Stem() string {
	base := filepath.Base(m.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// String renders module css.
func (m *Module) String() string {
	var b strings.Builder
	renderChildren(&b, m.Children)
	return b.String()
}

// Option configures Stylesheet.
type Option func(*Stylesheet)

// WithStrict makes modules sharing file stem a compilation error instead of
// a warning.
func WithStrict(strict bool) Option {
	return func(s *Stylesheet) {
		s.strict = strict
	}
}

// WithParseTrees keeps parsed source of every module for debugging.
func WithParseTrees(keep bool) Option {
	return func(s *Stylesheet) {
		s.keepTrees = keep
	}
}

// Stylesheet is a set of modules compiled together. All of them share a
// single counter, so every global name assigned in a compilation is unique.
// NOTE: not to be used concurrently.
type Stylesheet struct {
	log    *zap.Logger
	parser    *css.Parser
	strict    bool
	keepTrees bool

	modules map[string]*Module
	order   []*Module
	stems   map[string]string
	// paths being resolved, outermost first
	resolving []string

	namesCount uint64
}

// NewStylesheet creates an empty compilation.
func NewStylesheet(log *zap.Logger, options ...Option) *Stylesheet {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Stylesheet{
		log:     log.Named("modules"),
		parser:  css.NewParser(log),
		modules: make(map[string]*Module),
		stems:   make(map[string]string),
	}
	for _, setOpt := range options {
		setOpt(s)
	}
	return s
}

// AddModule reads, parses and transforms css file. A file which was already
// added or imported is returned as is.
func (s *Stylesheet) AddModule(path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve css module path '%s': %w", path, err)
	}
	return s.resolve(abs, readFile(abs))
}

// AddSource transforms css text as if it was read from path. Imports are
// resolved relative to path directory.
func (s *Stylesheet) AddSource(path string, src []byte) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve css module path '%s': %w", path, err)
	}
	return s.resolve(abs, func() ([]byte, error) { return src, nil })
}

// Module returns already compiled module by absolute path.
func (s *Stylesheet) Module(path string) (*Module, bool) {
	m, ok := s.modules[path]
	return m, ok
}

// Modules returns compiled modules in order of completion, imported modules
// always precede their importers.
func (s *Stylesheet) Modules() []*Module {
	return s.order
}

// NamesCount is the number of identifier occurrences processed so far.
func (s *Stylesheet) NamesCount() uint64 {
	return s.namesCount
}

// Bundle renders css of all modules.
func (s *Stylesheet) Bundle() string {
	var b strings.Builder
	for _, m := range s.order {
		renderChildren(&b, m.Children)
	}
	return b.String()
}

func readFile(path string) func() ([]byte, error) {
	return func() ([]byte, error) {
		return os.ReadFile(path)
	}
}

func (s *Stylesheet) resolve(path string, read func() ([]byte, error)) (*Module, error) {
	if m, ok := s.modules[path]; ok {
		return m, nil
	}
	if i := slices.Index(s.resolving, path); i >= 0 {
		chain := append(slices.Clone(s.resolving[i:]), path)
		return nil, fmt.Errorf("%w: %s", ErrImportCycle, strings.Join(chain, " -> "))
	}

	s.resolving = append(s.resolving, path)
	defer func() { s.resolving = s.resolving[:len(s.resolving)-1] }()

	src, err := read()
	if err != nil {
		return nil, fmt.Errorf("unable to read css module '%s': %w", path, err)
	}
	m, err := s.build(path, src)
	if err != nil {
		return nil, fmt.Errorf("css module '%s': %w", path, err)
	}
	if err := s.register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Stylesheet) build(path string, src []byte) (*Module, error) {
	nodes, err := s.parser.Parse(src, path)
	if err != nil {
		return nil, err
	}

	m := &Module{Path: path, Names: make(Names)}
	if s.keepTrees {
		m.Tree = nodes
	}
	sc := &scope{
		module: m,
		prefix: m.Stem(),
		dir:    filepath.Dir(path),
		sheet:  s,
	}
	first := s.namesCount
	if m.Children, err = sc.children(nodes); err != nil {
		return nil, err
	}

	s.log.Debug("Transformed CSS module",
		zap.String("path", path),
		zap.Int("children", len(m.Children)),
		zap.Int("names", len(m.Names)),
		zap.Uint64("occurrences", s.namesCount-first))
	return m, nil
}

func (s *Stylesheet) register(m *Module) error {
	stem := m.Stem()
	if other, ok := s.stems[stem]; ok {
		if s.strict {
			return fmt.Errorf("%w: '%s' and '%s' share name prefix '%s'", ErrNameCollision, other, m.Path, stem)
		}
		s.log.Warn("CSS modules share name prefix, global names differ only by ordinal",
			zap.String("prefix", stem), zap.String("first", other), zap.String("second", m.Path))
	} else {
		s.stems[stem] = m.Path
	}

	s.modules[m.Path] = m
	s.order = append(s.order, m)
	return nil
}

// Dump renders compiled modules with their name tables for debugging.
func (s *Stylesheet) Dump() string {
	tw := debug.NewTreeWriter()
	for _, m := range s.order {
		tw.Line(0, "module %s", m.Path)
		tw.Line(1, "names")
		tw.Table(2, m.Names)
		tw.Line(1, "children")
		dumpChildren(tw, 2, m.Children)
	}
	return tw.String()
}

func dumpChildren(tw *debug.TreeWriter, depth int, children []Child) {
	for _, c := range children {
		switch c := c.(type) {
		case *AtRule:
			tw.Line(depth, "@%s", c.Name)
			tw.TextBlock(depth+1, "rule", c.Rule)
			dumpChildren(tw, depth+1, c.Children)
		case *SelectRule:
			tw.TextBlock(depth, "selectrule", c.Rule)
			dumpChildren(tw, depth+1, c.Children)
		case *Property:
			tw.TextBlock(depth, c.Name, c.Value)
		case *Comment:
			tw.TextBlock(depth, "comment", c.Value)
		}
	}
}
