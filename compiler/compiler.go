// Package compiler drives compilation of a set of css modules: it discovers
// module files under project root, transforms them together and persists
// the css bundle and generated Go mappings.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/maruel/natural"
	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"cssmod/css"
	"cssmod/modules"
)

var skipDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
}

// Option configures Compiler.
type Option func(*Compiler)

// WithStrict fails compilation when modules share file stem.
func WithStrict(strict bool) Option {
	return func(c *Compiler) {
		c.strict = strict
	}
}

// WithWindowsHost records that lookups will be issued with backslash
// separated source paths.
func WithWindowsHost(windows bool) Option {
	return func(c *Compiler) {
		c.windowsHost = windows
	}
}

// WithPackage sets package name of generated mappings source.
func WithPackage(name string) Option {
	return func(c *Compiler) {
		c.pkg = name
	}
}

// WithMappingImport sets import path of runtime lookup package referenced by
// generated mappings source.
func WithMappingImport(path string) Option {
	return func(c *Compiler) {
		c.mappingImport = path
	}
}

// WithParseTrees keeps parse tree of every compiled module in the result.
func WithParseTrees(keep bool) Option {
	return func(c *Compiler) {
		c.keepTrees = keep
	}
}

// WithExclude sets gitignore style patterns of files AddModules never picks.
func WithExclude(patterns ...string) Option {
	return func(c *Compiler) {
		c.exclude = append(c.exclude, patterns...)
	}
}

// WithGitignore makes AddModules skip files ignored by root .gitignore.
func WithGitignore(respect bool) Option {
	return func(c *Compiler) {
		c.gitignore = respect
	}
}

// Compiler collects module files for a single compilation.
// NOTE: not to be used concurrently.
type Compiler struct {
	log  *zap.Logger
	root string

	inputs        map[string]struct{}
	strict        bool
	windowsHost   bool
	gitignore     bool
	keepTrees     bool
	pkg           string
	mappingImport string
	exclude       []string
}

// New creates compiler for project rooted at root. Module keys of generated
// mappings are paths relative to it.
func New(root string, log *zap.Logger, options ...Option) (*Compiler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve project root '%s': %w", root, err)
	}
	if fi, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("unable to access project root: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("project root '%s' is not a directory", abs)
	}

	c := &Compiler{
		log:    log.Named("compiler"),
		root:   abs,
		inputs:        make(map[string]struct{}),
		pkg:           "main",
		mappingImport: MappingImport,
	}
	for _, setOpt := range options {
		setOpt(c)
	}
	return c, nil
}

// Root returns absolute project root.
func (c *Compiler) Root() string {
	return c.root
}

// AddModule adds css file to compilation. Relative paths are resolved
// against project root.
func (c *Compiler) AddModule(path string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.root, path)
	}
	path = filepath.Clean(path)

	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("unable to add css module: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("css module '%s' is not a regular file", path)
	}
	if _, err := c.key(path); err != nil {
		return err
	}

	c.inputs[path] = struct{}{}
	c.log.Debug("CSS module added", zap.String("path", path))
	return nil
}

// AddModules adds every file under project root matching gitignore style
// pattern, so "*.css" selects css files at any depth and "web/**/*.css" only
// those under web. It returns number of files matched.
func (c *Compiler) AddModules(pattern string) (int, error) {
	if len(strings.TrimSpace(pattern)) == 0 {
		return 0, errors.New("empty css module pattern")
	}
	include := ignore.CompileIgnoreLines(pattern)
	exclude := ignore.CompileIgnoreLines(c.exclude...)

	var gi *ignore.GitIgnore
	if c.gitignore {
		gi = c.loadGitignore()
	}

	count := 0
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if path == c.root {
				return nil
			}
			if _, skip := skipDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(c.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !include.MatchesPath(rel) {
			return nil
		}
		if exclude.MatchesPath(rel) {
			c.log.Debug("CSS module excluded", zap.String("path", rel))
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			c.log.Debug("CSS module ignored by .gitignore", zap.String("path", rel))
			return nil
		}

		count++
		c.inputs[path] = struct{}{}
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("unable to discover css modules matching '%s': %w", pattern, err)
	}
	c.log.Debug("CSS modules discovered", zap.String("pattern", pattern), zap.Int("count", count))
	return count, nil
}

func (c *Compiler) loadGitignore() *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(c.root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// Inputs lists absolute paths of added modules in natural order.
func (c *Compiler) Inputs() []string {
	inputs := make([]string, 0, len(c.inputs))
	for path := range c.inputs {
		inputs = append(inputs, path)
	}
	sort.Sort(natural.StringSlice(inputs))
	return inputs
}

// key is posix style path of module relative to project root.
func (c *Compiler) key(path string) (string, error) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return "", fmt.Errorf("unable to make key for css module '%s': %w", path, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("css module '%s' is outside of project root '%s'", path, c.root)
	}
	return rel, nil
}

// Result describes finished compilation.
type Result struct {
	Sheet   *modules.Stylesheet
	Bundle  string
	Mapping string
}

// Build transforms added modules without writing anything.
func (c *Compiler) Build(ctx context.Context) (*Result, error) {
	if len(c.inputs) == 0 {
		return nil, errors.New("no css modules to compile")
	}

	sheet := modules.NewStylesheet(c.log, modules.WithStrict(c.strict), modules.WithParseTrees(c.keepTrees))
	for _, path := range c.Inputs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := sheet.AddModule(path); err != nil {
			return nil, fmt.Errorf("unable to compile: %w", err)
		}
	}

	src, err := c.generate(sheet)
	if err != nil {
		return nil, err
	}
	return &Result{Sheet: sheet, Bundle: sheet.Bundle(), Mapping: string(src)}, nil
}

// Compile transforms added modules and writes css bundle to bundlePath and
// generated mappings to MappingFile in mappingDir. Either both artifacts are
// written or neither is.
func (c *Compiler) Compile(ctx context.Context, bundlePath, mappingDir string) (*Result, error) {
	res, err := c.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mappingPath := filepath.Join(mappingDir, MappingFile)
	if err := writeArtifacts([]artifact{
		{path: bundlePath, data: []byte(res.Bundle)},
		{path: mappingPath, data: []byte(res.Mapping)},
	}); err != nil {
		return nil, err
	}

	c.log.Info("CSS modules compiled",
		zap.Int("modules", len(res.Sheet.Modules())),
		zap.Uint64("names", res.Sheet.NamesCount()),
		zap.String("bundle", bundlePath),
		zap.String("mapping", mappingPath))
	return res, nil
}

// moduleKeys returns keys of compiled modules in natural order together
// with paths they were compiled from.
func (c *Compiler) moduleKeys(sheet *modules.Stylesheet) ([]string, map[string]string, error) {
	paths := make(map[string]string, len(sheet.Modules()))
	for _, m := range sheet.Modules() {
		k, err := c.key(m.Path)
		if err != nil {
			return nil, nil, err
		}
		paths[k] = m.Path
	}
	keys := slices.Collect(maps.Keys(paths))
	sort.Sort(natural.StringSlice(keys))
	return keys, paths, nil
}

// ParseTrees renders parse trees kept by WithParseTrees, keyed by module
// key.
func (c *Compiler) ParseTrees(sheet *modules.Stylesheet) (map[string]string, error) {
	keys, paths, err := c.moduleKeys(sheet)
	if err != nil {
		return nil, err
	}
	trees := make(map[string]string, len(keys))
	for _, k := range keys {
		if m, ok := sheet.Module(paths[k]); ok && m.Tree != nil {
			trees[k] = css.Dump(m.Tree)
		}
	}
	return trees, nil
}
