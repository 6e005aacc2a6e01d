// Package mapping answers runtime lookups of global css names. The table is
// generated at build time and installed once at program start:
//
//	func init() {
//		mapping.MustInit(mapping.New().
//			WindowsHost(false).
//			Add("web/app.css", "button", "app__button__0"))
//	}
//
// Every lookup failure is a programming error and panics: returning an
// empty class name would silently break page rendering.
package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/maruel/natural"

	"cssmod/modpath"
)

// ErrAlreadyInitialized is returned on attempt to install mappings twice.
var ErrAlreadyInitialized = errors.New("mappings were already initialized")

// Mapping is the name table of a single css module.
type Mapping struct {
	path  string
	names map[string]string
}

// Path is module key this table was registered under.
func (m *Mapping) Path() string {
	return m.path
}

// Lookup returns global name for local one.
func (m *Mapping) Lookup(local string) (string, bool) {
	global, ok := m.names[local]
	return global, ok
}

// Name returns global name for local one and panics if module does not
// have it.
func (m *Mapping) Name(local string) string {
	global, ok := m.names[local]
	if !ok {
		panic(fmt.Sprintf("name %q was not found in css module %q", local, m.path))
	}
	return global
}

// Classes returns space separated global names, ready to be used as value of
// class attribute.
func (m *Mapping) Classes(locals ...string) string {
	globals := make([]string, 0, len(locals))
	for _, local := range locals {
		globals = append(globals, m.Name(local))
	}
	return strings.Join(globals, " ")
}

// Locals lists local names of the module in natural order.
func (m *Mapping) Locals() []string {
	locals := make([]string, 0, len(m.names))
	for local := range m.names {
		locals = append(locals, local)
	}
	sort.Sort(natural.StringSlice(locals))
	return locals
}

// Mappings maps module keys (posix-style paths relative to the project root)
// to module name tables.
type Mappings struct {
	modules     map[string]*Mapping
	windowsHost bool
}

// New creates empty mappings.
func New() *Mappings {
	return &Mappings{modules: make(map[string]*Mapping)}
}

// WindowsHost records whether the program was built on a host with backslash
// path separators. Source paths of lookups are normalized accordingly.
func (ms *Mappings) WindowsHost(v bool) *Mappings {
	ms.windowsHost = v
	return ms
}

// Add registers name table of a module. Names are flattened pairs of local
// and global name.
func (ms *Mappings) Add(path string, names ...string) *Mappings {
	if len(names)%2 != 0 {
		panic(fmt.Sprintf("odd number of names for css module %q", path))
	}
	m := &Mapping{path: path, names: make(map[string]string, len(names)/2)}
	for i := 0; i < len(names); i += 2 {
		m.names[names[i]] = names[i+1]
	}
	ms.modules[path] = m
	return ms
}

// Keys lists registered module keys in natural order.
func (ms *Mappings) Keys() []string {
	keys := make([]string, 0, len(ms.modules))
	for k := range ms.modules {
		keys = append(keys, k)
	}
	sort.Sort(natural.StringSlice(keys))
	return keys
}

// Resolve computes module key from path of the source file issuing lookup
// and module path relative to it.
func (ms *Mappings) Resolve(source, module string) string {
	return modpath.Join(modpath.NormalizeForHost(source, ms.windowsHost), module)
}

// Get returns name table of module referenced from source file. It panics
// when there is no such module.
func (ms *Mappings) Get(source, module string) *Mapping {
	key := ms.Resolve(source, module)
	m, ok := ms.modules[key]
	if !ok {
		panic(fmt.Sprintf("css module %q was not found (key %q)", module, key))
	}
	return m
}

var installed atomic.Pointer[Mappings]

// Init installs process wide mappings. It may succeed only once.
func Init(ms *Mappings) error {
	if ms == nil {
		return errors.New("nil mappings")
	}
	if !installed.CompareAndSwap(nil, ms) {
		return ErrAlreadyInitialized
	}
	return nil
}

// MustInit is like Init but panics on failure.
func MustInit(ms *Mappings) {
	if err := Init(ms); err != nil {
		panic(fmt.Sprintf("unable to initialize css mappings: %v; call mapping.MustInit once early (generated mappings do it from init)", err))
	}
}

// Lookup returns name table of module referenced from source file using
// process wide mappings. It panics if mappings were not initialized or
// module is not known.
func Lookup(source, module string) *Mapping {
	ms := installed.Load()
	if ms == nil {
		panic("css mappings are not initialized; call mapping.MustInit once early (eg. import generated mappings package)")
	}
	return ms.Get(source, module)
}
