package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssmod/state"
)

// Run is the action of compile command. Command line flags override
// configuration, positional arguments are module files or patterns.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Logger("compile")
	conf := env.Cfg.Compile

	root := conf.Root
	if cmd.IsSet("root") {
		root = cmd.String("root")
	}
	if len(root) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
		root = wd
	}

	bundle, mappingDir, pkg := conf.Bundle, conf.MappingDir, conf.Package
	if cmd.IsSet("bundle") {
		bundle = cmd.String("bundle")
	}
	if cmd.IsSet("out") {
		mappingDir = cmd.String("out")
	}
	if cmd.IsSet("package") {
		pkg = cmd.String("package")
	}
	mappingImport := conf.MappingImport
	if cmd.IsSet("mapping-import") {
		mappingImport = cmd.String("mapping-import")
	}
	strict := conf.Strict || cmd.Bool("strict")
	windows := conf.HostStyle.Windows(runtime.GOOS)
	if cmd.IsSet("windows-host") {
		windows = cmd.Bool("windows-host")
	}

	c, err := New(root, env.Log,
		WithStrict(strict),
		WithWindowsHost(windows),
		WithPackage(pkg),
		WithMappingImport(mappingImport),
		WithParseTrees(env.Rpt != nil),
		WithExclude(conf.Exclude...),
		WithGitignore(conf.RespectGitignore),
	)
	if err != nil {
		return err
	}

	patterns := cmd.Args().Slice()
	if len(patterns) == 0 {
		patterns = conf.Modules
	}
	if err := c.addAll(patterns); err != nil {
		return err
	}

	// relative destinations are relative to root, as module keys are
	if !filepath.IsAbs(bundle) {
		bundle = filepath.Join(c.Root(), bundle)
	}
	if !filepath.IsAbs(mappingDir) {
		mappingDir = filepath.Join(c.Root(), mappingDir)
	}

	log.Info("Compilation starting", zap.String("root", c.Root()), zap.Int("inputs", len(c.inputs)), zap.Bool("strict", strict), zap.Bool("windows host", windows))
	defer func(start time.Time) {
		log.Info("Compilation completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	for _, path := range c.Inputs() {
		if key, err := c.key(path); err == nil {
			if err := env.Rpt.StoreCopy("sources/"+key, path); err != nil {
				log.Warn("Unable to store css module in debug report", zap.String("path", path), zap.Error(err))
			}
		}
	}

	res, err := c.Compile(ctx, bundle, mappingDir)
	if err != nil {
		return err
	}

	if env.Rpt != nil {
		env.Rpt.StoreData("modules.txt", []byte(res.Sheet.Dump()))
		trees, err := c.ParseTrees(res.Sheet)
		if err != nil {
			log.Warn("Unable to dump parse trees in debug report", zap.Error(err))
		}
		for key, tree := range trees {
			env.Rpt.StoreData("trees/"+key+".txt", []byte(tree))
		}
		env.Rpt.Store("bundle.css", bundle)
		env.Rpt.Store(MappingFile, filepath.Join(mappingDir, MappingFile))
	}
	return nil
}

// addAll treats arguments naming existing files as modules and everything
// else as patterns.
func (c *Compiler) addAll(args []string) error {
	if len(args) == 0 {
		return errors.New("no css modules or patterns have been specified")
	}
	for _, arg := range args {
		path := arg
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.root, path)
		}
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			if err := c.AddModule(path); err != nil {
				return err
			}
			continue
		}
		n, err := c.AddModules(arg)
		if err != nil {
			return err
		}
		if n == 0 {
			c.log.Warn("Pattern did not match any css module", zap.String("pattern", arg))
		}
	}
	return nil
}
