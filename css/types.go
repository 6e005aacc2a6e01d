package css

import (
	"cssmod/utils/debug"
)

// Kind identifies grammar production which produced parse tree node.
type Kind int

const (
	KindComment Kind = iota
	KindAtRule
	KindSelectRule
	KindProperty
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindAtRule:
		return "atrule"
	case KindSelectRule:
		return "selectrule"
	case KindProperty:
		return "property"
	default:
		return "unknown"
	}
}

// Node is a single node of stylesheet parse tree.
type Node struct {
	Kind Kind
	// Name is at-rule name without "@" or property name.
	Name string
	// Prelude is raw matched source text: at-rule argument, selector or
	// property value. Whitespace is not trimmed.
	Prelude string
	// Text keeps comment verbatim.
	Text string
	// Block is set when node had {...} block, even an empty one.
	Block    bool
	Offset   int
	Children []*Node
}

// TokenKind tells which tokens of selector or animation value are
// identifiers.
type TokenKind int

const (
	// TokenText is structural syntax which must be copied verbatim.
	TokenText TokenKind = iota
	// TokenIdentifier is a bare identifier referencing keyframes.
	TokenIdentifier
	// TokenClass is class selector, Text does not include leading dot.
	TokenClass
)

// Token is a tagged piece of selector or property value.
type Token struct {
	Kind TokenKind
	Text string
}

// Dump renders parse tree in human readable form.
func Dump(nodes []*Node) string {
	tw := debug.NewTreeWriter()
	dumpNodes(tw, 0, nodes)
	return tw.String()
}

func dumpNodes(tw *debug.TreeWriter, depth int, nodes []*Node) {
	for _, n := range nodes {
		switch n.Kind {
		case KindComment:
			tw.TextBlock(depth, n.Kind.String(), n.Text)
		case KindAtRule:
			tw.Line(depth, "%s @%s (offset %d)", n.Kind, n.Name, n.Offset)
			tw.TextBlock(depth+1, "rule", n.Prelude)
		case KindSelectRule:
			tw.Line(depth, "%s (offset %d)", n.Kind, n.Offset)
			tw.TextBlock(depth+1, "rule", n.Prelude)
		case KindProperty:
			tw.Line(depth, "%s %s", n.Kind, n.Name)
			tw.TextBlock(depth+1, "value", n.Prelude)
		}
		dumpNodes(tw, depth+1, n.Children)
	}
}
