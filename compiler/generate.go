package compiler

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/maruel/natural"

	"cssmod/modules"
)

const (
	// MappingFile is name of generated mappings source.
	MappingFile = "cssmod_mappings.go"
	// MappingImport is default import path of runtime lookup package
	// referenced by generated source.
	MappingImport = "cssmod/mapping"
)

var mappingTmpl = template.Must(template.New("mapping").Parse(`// Code generated by cssmod; DO NOT EDIT.

package {{.Package}}

import {{if .Alias}}mapping {{end}}"{{.Import}}"

func init() {
	mapping.MustInit(mapping.New().
		WindowsHost({{.WindowsHost}}){{range .Modules}}.
		Add({{printf "%q" .Key}}{{range .Pairs}},
			{{printf "%q" .Local}}, {{printf "%q" .Global}}{{end}}){{end}})
}
`))

type mappingPair struct {
	Local  string
	Global string
}

type mappingModule struct {
	Key   string
	Pairs []mappingPair
}

type mappingData struct {
	Package     string
	Import      string
	Alias       bool
	WindowsHost bool
	Modules     []mappingModule
}

// generate renders formatted Go source installing name tables of all
// compiled modules.
func (c *Compiler) generate(sheet *modules.Stylesheet) ([]byte, error) {
	if !token.IsIdentifier(c.pkg) {
		return nil, fmt.Errorf("invalid package name for generated mappings '%s'", c.pkg)
	}

	if !validImport(c.mappingImport) {
		return nil, fmt.Errorf("invalid import path of mapping package '%s'", c.mappingImport)
	}

	keys, paths, err := c.moduleKeys(sheet)
	if err != nil {
		return nil, err
	}

	data := mappingData{
		Package:     c.pkg,
		Import:      c.mappingImport,
		Alias:       path.Base(c.mappingImport) != "mapping",
		WindowsHost: c.windowsHost,
		Modules:     make([]mappingModule, 0, len(keys)),
	}
	for _, k := range keys {
		m, ok := sheet.Module(paths[k])
		if !ok {
			return nil, fmt.Errorf("css module '%s' is not compiled", paths[k])
		}
		data.Modules = append(data.Modules, mappingModule{Key: k, Pairs: sortedPairs(m.Names)})
	}

	var buf bytes.Buffer
	if err := mappingTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("unable to generate mappings: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("unable to format generated mappings: %w", err)
	}
	return src, nil
}

func sortedPairs(names modules.Names) []mappingPair {
	locals := make([]string, 0, len(names))
	for local := range names {
		locals = append(locals, local)
	}
	sort.Sort(natural.StringSlice(locals))

	pairs := make([]mappingPair, 0, len(locals))
	for _, local := range locals {
		pairs = append(pairs, mappingPair{Local: local, Global: names[local]})
	}
	return pairs
}

// validImport accepts slash separated import paths without spaces, quotes or
// relative elements.
func validImport(p string) bool {
	if p == "" || strings.ContainsAny(p, " \t\"`\\") {
		return false
	}
	for _, elem := range strings.Split(p, "/") {
		if elem == "" || elem == "." || elem == ".." {
			return false
		}
	}
	return true
}
