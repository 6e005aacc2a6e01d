package modules

import (
	"strings"
)

// Child is a top level or nested syntax node of a transformed module. Its
// variants are AtRule, SelectRule, Property and Comment.
type Child interface {
	// Render appends css text of the node.
	Render(b *strings.Builder)
	isChild()
}

// AtRule is "@name rule;" or "@name rule { children }". Rule is empty for
// at-rules without argument.
type AtRule struct {
	Name     string
	Rule     string
	Children []Child
}

// SelectRule is a selector with its declaration block. Rules without
// children render as nothing.
type SelectRule struct {
	Rule     string
	Children []Child
}

// Property is a single declaration. Value is empty for "name:;".
type Property struct {
	Name  string
	Value string
}

// Comment is kept verbatim.
type Comment struct {
	Value string
}

func (*AtRule) isChild()     {}
func (*SelectRule) isChild() {}
func (*Property) isChild()   {}
func (*Comment) isChild()    {}

func (r *AtRule) Render(b *strings.Builder) {
	b.WriteByte('@')
	b.WriteString(r.Name)
	if r.Rule != "" {
		b.WriteByte(' ')
		b.WriteString(r.Rule)
	}
	if len(r.Children) == 0 {
		if r.Rule != "" {
			b.WriteString("; ")
		} else {
			b.WriteByte(';')
		}
		return
	}
	b.WriteString(" { ")
	renderChildren(b, r.Children)
	b.WriteString("}\n")
}

func (r *SelectRule) Render(b *strings.Builder) {
	if len(r.Children) == 0 || r.Rule == "" {
		return
	}
	b.WriteString(r.Rule)
	b.WriteString(" { ")
	renderChildren(b, r.Children)
	b.WriteString("}\n")
}

func (p *Property) Render(b *strings.Builder) {
	b.WriteString(p.Name)
	if p.Value == "" {
		b.WriteString(":; ")
		return
	}
	b.WriteString(": ")
	b.WriteString(p.Value)
	b.WriteString("; ")
}

func (c *Comment) Render(b *strings.Builder) {
	b.WriteString(c.Value)
}

func renderChildren(b *strings.Builder, children []Child) {
	for _, c := range children {
		c.Render(b)
	}
}

// Format renders a single node.
func Format(c Child) string {
	var b strings.Builder
	c.Render(&b)
	return b.String()
}
