package css

import (
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses css module source into a parse tree.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse recognizes stylesheet production: a sequence of comments, at-rules and
// select rules up to the end of input.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) ([]*Node, error) {
	name := ""
	if len(source) > 0 {
		name = source[0]
	}
	p.log.Debug("Parsing CSS", zap.String("source", name), zap.Int("bytes", len(data)))

	g, err := newGrammar(data)
	if err != nil {
		return nil, err
	}
	nodes, err := g.stylesheet()
	if err != nil {
		p.log.Debug("CSS parse error", zap.String("source", name), zap.Error(err))
		return nil, err
	}
	return nodes, nil
}

type lexeme struct {
	tt     css.TokenType
	data   string
	offset int
}

func (l lexeme) eof() bool {
	return l.tt == css.ErrorToken
}

// lex splits input into tokens. Tokens cover input completely so offsets
// are running sums of token lengths.
func lex(data []byte) ([]lexeme, error) {
	l := css.NewLexer(parse.NewInputBytes(data))

	var (
		tokens []lexeme
		offset int
	)
	for {
		tt, text := l.Next()
		if tt == css.ErrorToken {
			break
		}
		switch tt {
		case css.BadStringToken, css.BadURLToken:
			return nil, newSyntaxError(data, offset, ErrUnexpected)
		}
		tokens = append(tokens, lexeme{tt: tt, data: string(text), offset: offset})
		offset += len(text)
	}
	if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, newSyntaxError(data, offset, ErrUnexpected)
	}
	return tokens, nil
}

type grammar struct {
	src    []byte
	tokens []lexeme
	pos    int
	// opened blocks, innermost last
	opens []lexeme
}

func newGrammar(data []byte) (*grammar, error) {
	tokens, err := lex(data)
	if err != nil {
		return nil, err
	}
	return &grammar{src: data, tokens: tokens}, nil
}

func (g *grammar) peek() lexeme {
	return g.peekAt(g.pos)
}

func (g *grammar) peekAt(i int) lexeme {
	if i < len(g.tokens) {
		return g.tokens[i]
	}
	return lexeme{tt: css.ErrorToken, offset: len(g.src)}
}

func (g *grammar) skipSpace() {
	for g.peek().tt == css.WhitespaceToken {
		g.pos++
	}
}

// text returns source covered by tokens [from, to).
func (g *grammar) text(from, to int) string {
	return string(g.src[g.peekAt(from).offset:g.peekAt(to).offset])
}

// fail reports unrecognized input at token t. Running out of input inside a
// block always means the block was never closed.
func (g *grammar) fail(t lexeme) error {
	if t.eof() && len(g.opens) > 0 {
		return newSyntaxError(g.src, g.opens[len(g.opens)-1].offset, ErrUnterminatedRuleset)
	}
	return newSyntaxError(g.src, t.offset, ErrUnexpected)
}

func (g *grammar) stylesheet() ([]*Node, error) {
	var nodes []*Node
	for {
		g.skipSpace()
		t := g.peek()

		var (
			n   *Node
			err error
		)
		switch t.tt {
		case css.ErrorToken:
			return nodes, nil
		case css.CDOToken, css.CDCToken:
			g.pos++
			continue
		case css.CommentToken:
			g.pos++
			n = &Node{Kind: KindComment, Text: t.data, Offset: t.offset}
		case css.AtKeywordToken:
			n, err = g.atRule()
		case css.RightBraceToken, css.SemicolonToken:
			return nil, g.fail(t)
		default:
			n, err = g.selectRule()
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

// prelude consumes tokens up to a brace or a semicolon outside of parentheses
// and returns covered source together with the token it stopped at.
func (g *grammar) prelude() (string, lexeme) {
	start, depth := g.pos, 0
	for {
		t := g.peek()
		switch t.tt {
		case css.ErrorToken, css.LeftBraceToken, css.RightBraceToken:
			return g.text(start, g.pos), t
		case css.SemicolonToken:
			if depth == 0 {
				return g.text(start, g.pos), t
			}
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		}
		g.pos++
	}
}

func (g *grammar) atRule() (*Node, error) {
	kw := g.peek()
	g.pos++

	n := &Node{
		Kind:   KindAtRule,
		Name:   strings.TrimPrefix(kw.data, "@"),
		Offset: kw.offset,
	}
	prelude, stop := g.prelude()
	n.Prelude = prelude

	switch stop.tt {
	case css.SemicolonToken:
		g.pos++
		return n, nil
	case css.LeftBraceToken:
		g.pos++
		children, err := g.block(stop)
		if err != nil {
			return nil, err
		}
		n.Block, n.Children = true, children
		return n, nil
	}
	return nil, g.fail(stop)
}

func (g *grammar) selectRule() (*Node, error) {
	start := g.peek()
	prelude, stop := g.prelude()
	if stop.tt != css.LeftBraceToken {
		if stop.eof() {
			return nil, g.fail(stop)
		}
		return nil, g.fail(start)
	}
	if strings.TrimSpace(prelude) == "" {
		// block without selector
		return nil, newSyntaxError(g.src, stop.offset, ErrUnexpected)
	}
	g.pos++

	children, err := g.block(stop)
	if err != nil {
		return nil, err
	}
	return &Node{
		Kind:     KindSelectRule,
		Prelude:  prelude,
		Block:    true,
		Offset:   start.offset,
		Children: children,
	}, nil
}

// block parses block content after opening brace up to and including
// matching closing brace.
func (g *grammar) block(open lexeme) ([]*Node, error) {
	g.opens = append(g.opens, open)
	defer func() { g.opens = g.opens[:len(g.opens)-1] }()

	var nodes []*Node
	for {
		g.skipSpace()
		t := g.peek()

		var (
			n   *Node
			err error
		)
		switch {
		case t.eof():
			return nil, g.fail(t)
		case t.tt == css.RightBraceToken:
			g.pos++
			return nodes, nil
		case t.tt == css.SemicolonToken:
			g.pos++
			continue
		case t.tt == css.CommentToken:
			g.pos++
			n = &Node{Kind: KindComment, Text: t.data, Offset: t.offset}
		case g.lineComment():
			continue
		case t.tt == css.AtKeywordToken:
			n, err = g.atRule()
		case g.nestedRuleset():
			n, err = g.selectRule()
		default:
			n, err = g.property()
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

// lineComment skips "// ..." up to the end of line. Those are not valid css
// and never make it to the output.
func (g *grammar) lineComment() bool {
	first, second := g.peek(), g.peekAt(g.pos+1)
	if first.tt != css.DelimToken || first.data != "/" || second.tt != css.DelimToken || second.data != "/" {
		return false
	}
	for g.pos += 2; ; g.pos++ {
		t := g.peek()
		if t.eof() {
			return true
		}
		if t.tt == css.WhitespaceToken && strings.ContainsAny(t.data, "\r\n") {
			return true
		}
	}
}

// nestedRuleset looks ahead to tell select rule from property: a select rule
// reaches opening brace before anything else terminates it.
func (g *grammar) nestedRuleset() bool {
	for i := g.pos; ; i++ {
		switch g.peekAt(i).tt {
		case css.LeftBraceToken:
			return true
		case css.ErrorToken, css.RightBraceToken, css.SemicolonToken:
			return false
		}
	}
}

func (g *grammar) property() (*Node, error) {
	name := g.peek()
	if name.tt != css.IdentToken {
		return nil, g.fail(name)
	}
	g.pos++
	g.skipSpace()
	if t := g.peek(); t.tt != css.ColonToken {
		return nil, g.fail(t)
	}
	g.pos++

	value, stop := g.prelude()
	switch stop.tt {
	case css.SemicolonToken:
		g.pos++
	case css.RightBraceToken:
		// last declaration in block may omit semicolon
	default:
		return nil, g.fail(stop)
	}
	return &Node{
		Kind:    KindProperty,
		Name:    name.data,
		Prelude: value,
		Offset:  name.offset,
	}, nil
}
