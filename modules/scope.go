package modules

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"cssmod/css"
)

// scope is the state of transformation of a single module.
type scope struct {
	module *Module
	// file stem, prefix of every global name
	prefix string
	// module directory, imports are relative to it
	dir   string
	sheet *Stylesheet
}

// assign returns global name for local one, creating it on first use. The
// shared counter is advanced on every call, so ordinals are unique but not
// contiguous.
func (sc *scope) assign(local string) string {
	global, ok := sc.module.Names[local]
	if !ok {
		global = fmt.Sprintf("%s__%s__%d", sc.prefix, local, sc.sheet.namesCount)
		sc.module.Names[local] = global
	}
	sc.sheet.namesCount++
	return global
}

func (sc *scope) children(nodes []*css.Node) ([]Child, error) {
	var children []Child
	for _, n := range nodes {
		var (
			c   Child
			err error
		)
		switch n.Kind {
		case css.KindComment:
			c = &Comment{Value: n.Text}
		case css.KindAtRule:
			c, err = sc.atRule(n)
		case css.KindSelectRule:
			c, err = sc.selectRule(n)
		case css.KindProperty:
			c, err = sc.property(n)
		default:
			err = fmt.Errorf("unexpected %s node at offset %d", n.Kind, n.Offset)
		}
		if err != nil {
			return nil, err
		}
		if c != nil {
			children = append(children, c)
		}
	}
	return children, nil
}

func (sc *scope) atRule(n *css.Node) (Child, error) {
	rule := strings.TrimSpace(n.Prelude)

	switch name := unprefixed(n.Name); name {
	case "import":
		// imported module is emitted on its own, import itself leaves nothing
		return nil, sc.importModule(rule)
	case "keyframes":
		if rule != "" {
			rule = sc.assign(rule)
		}
	}

	children, err := sc.children(n.Children)
	if err != nil {
		return nil, err
	}
	return &AtRule{Name: n.Name, Rule: rule, Children: children}, nil
}

func (sc *scope) importModule(prelude string) error {
	target, err := css.ImportPath(prelude)
	if err != nil {
		return fmt.Errorf("unable to recognize import '%s': %w", prelude, err)
	}

	path := filepath.FromSlash(target)
	if !filepath.IsAbs(path) {
		path = filepath.Join(sc.dir, path)
	}
	imported, err := sc.sheet.resolve(path, readFile(path))
	if err != nil {
		return fmt.Errorf("unable to import '%s': %w", target, err)
	}

	merged := 0
	for local, global := range imported.Names {
		if _, ok := sc.module.Names[local]; !ok {
			sc.module.Names[local] = global
			merged++
		}
	}
	sc.sheet.log.Debug("Imported CSS module",
		zap.String("module", sc.module.Path),
		zap.String("import", imported.Path),
		zap.Int("names", len(imported.Names)),
		zap.Int("merged", merged))
	return nil
}

func (sc *scope) selectRule(n *css.Node) (Child, error) {
	tokens, err := css.Selector(n.Prelude)
	if err != nil {
		return nil, fmt.Errorf("unable to recognize selector '%s': %w", strings.TrimSpace(n.Prelude), err)
	}
	rule := sc.replaceNames(tokens)

	children, err := sc.children(n.Children)
	if err != nil {
		return nil, err
	}
	return &SelectRule{Rule: rule, Children: children}, nil
}

func (sc *scope) property(n *css.Node) (Child, error) {
	value := strings.TrimSpace(n.Prelude)

	switch unprefixed(n.Name) {
	case "animation", "animation-name":
		tokens, err := css.Animation(n.Prelude)
		if err != nil {
			return nil, fmt.Errorf("unable to recognize %s value '%s': %w", n.Name, value, err)
		}
		value = sc.replaceNames(tokens)
	}
	return &Property{Name: n.Name, Value: value}, nil
}

// replaceNames copies structural tokens verbatim and substitutes global names
// for identifiers.
func (sc *scope) replaceNames(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		switch t.Kind {
		case css.TokenIdentifier:
			b.WriteString(sc.assign(strings.TrimSpace(t.Text)))
		case css.TokenClass:
			b.WriteByte('.')
			b.WriteString(sc.assign(strings.TrimSpace(t.Text)))
		default:
			b.WriteString(t.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// unprefixed lowercases at-rule or property name and drops vendor prefix:
// "-webkit-keyframes" becomes "keyframes".
func unprefixed(name string) string {
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "-") {
		if i := strings.IndexByte(name[1:], '-'); i >= 0 {
			return name[i+2:]
		}
	}
	return name
}
