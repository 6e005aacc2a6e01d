package css

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
)

var (
	// ErrUnterminatedRuleset is reported when block is not closed before end of input.
	ErrUnterminatedRuleset = errors.New("unterminated ruleset")
	// ErrUnexpected is reported for any other input grammar does not recognize.
	ErrUnexpected = errors.New("unexpected input")
)

// SyntaxError points to the place in the source grammar failed to recognize.
type SyntaxError struct {
	Err    error
	Line   int // 1-based
	Column int // 1-based, in runes
	Source string
}

func newSyntaxError(src []byte, offset int, kind error) *SyntaxError {
	offset = min(max(offset, 0), len(src))
	line, col, _ := parse.Position(bytes.NewReader(src), offset)

	start := bytes.LastIndexAny(src[:offset], "\r\n") + 1
	end := len(src)
	if i := bytes.IndexAny(src[offset:], "\r\n"); i >= 0 {
		end = offset + i
	}
	return &SyntaxError{
		Err:    kind,
		Line:   line,
		Column: col,
		Source: string(src[start:end]),
	}
}

// Error renders offending line with marker under the failed position:
//
//	unterminated ruleset at 1:3
//	 1 | p {
//	   |   ^
func (e *SyntaxError) Error() string {
	num := strconv.Itoa(e.Line)
	gutter := strings.Repeat(" ", len(num))

	var b strings.Builder
	fmt.Fprintf(&b, "%v at %d:%d\n", e.Err, e.Line, e.Column)
	fmt.Fprintf(&b, " %s | %s\n", num, e.Source)
	fmt.Fprintf(&b, " %s | ", gutter)
	col := 1
	for _, r := range e.Source {
		if col >= e.Column {
			break
		}
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
		col++
	}
	b.WriteByte('^')
	return b.String()
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
