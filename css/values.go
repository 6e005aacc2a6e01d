package css

import (
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// animationKeywords are identifiers allowed in animation shorthand which do
// not reference keyframes.
var animationKeywords = map[string]struct{}{
	// global values
	"none": {}, "initial": {}, "inherit": {}, "unset": {}, "revert": {}, "revert-layer": {},
	// timing functions
	"linear": {}, "ease": {}, "ease-in": {}, "ease-out": {}, "ease-in-out": {},
	"step-start": {}, "step-end": {},
	// iteration count
	"infinite": {},
	// direction
	"normal": {}, "reverse": {}, "alternate": {}, "alternate-reverse": {},
	// fill mode
	"forwards": {}, "backwards": {}, "both": {},
	// play state
	"running": {}, "paused": {},
}

// Selector recognizes selector production and tags class selectors in it.
// Element names, ids, pseudo-classes and attribute selectors are structural.
func Selector(selector string) ([]Token, error) {
	lexemes, err := lex([]byte(selector))
	if err != nil {
		return nil, err
	}

	var (
		tokens []Token
		// attribute selector nesting
		depth int
	)
	for i := 0; i < len(lexemes); i++ {
		l := lexemes[i]
		switch l.tt {
		case css.LeftBraceToken, css.RightBraceToken, css.SemicolonToken:
			return nil, newSyntaxError([]byte(selector), l.offset, ErrUnexpected)
		case css.LeftBracketToken:
			depth++
		case css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.DelimToken:
			if l.data == "." && depth == 0 && i+1 < len(lexemes) && lexemes[i+1].tt == css.IdentToken {
				i++
				tokens = append(tokens, Token{Kind: TokenClass, Text: lexemes[i].data})
				continue
			}
		}
		tokens = append(tokens, Token{Kind: TokenText, Text: l.data})
	}
	return tokens, nil
}

// Animation recognizes value of animation and animation-name properties and
// tags identifiers naming keyframes. Keywords, durations, numbers and
// function arguments are structural.
func Animation(value string) ([]Token, error) {
	lexemes, err := lex([]byte(value))
	if err != nil {
		return nil, err
	}

	var (
		tokens []Token
		// function arguments nesting
		depth int
	)
	for _, l := range lexemes {
		kind := TokenText
		switch l.tt {
		case css.LeftBraceToken, css.RightBraceToken, css.SemicolonToken:
			return nil, newSyntaxError([]byte(value), l.offset, ErrUnexpected)
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			if depth > 0 {
				depth--
			}
		case css.IdentToken:
			if _, keyword := animationKeywords[strings.ToLower(l.data)]; !keyword && depth == 0 {
				kind = TokenIdentifier
			}
		}
		tokens = append(tokens, Token{Kind: kind, Text: l.data})
	}
	return tokens, nil
}

// ImportPath recognizes @import argument: a quoted path or url() reference.
// Anything following the path (media queries, layers) is ignored.
func ImportPath(prelude string) (string, error) {
	src := []byte(prelude)
	lexemes, err := lex(src)
	if err != nil {
		return "", err
	}

	inURL := false
	for _, l := range lexemes {
		switch l.tt {
		case css.WhitespaceToken, css.CommentToken:
			continue
		case css.StringToken:
			return unquote(l.data), nil
		case css.URLToken:
			// url(something) - the token data is the full url(...) string
			s := l.data[len("url(") : len(l.data)-1]
			return unquote(s), nil
		case css.FunctionToken:
			if !inURL && strings.EqualFold(l.data, "url(") {
				inURL = true
				continue
			}
		}
		return "", newSyntaxError(src, l.offset, ErrUnexpected)
	}
	return "", newSyntaxError(src, len(src), ErrUnexpected)
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
