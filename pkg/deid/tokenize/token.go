package tokenize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cognicore/deid/pkg/deid/internalerr"
)

// Token is an immutable slice of the source text. Offsets are half-open byte
// offsets into the source string.
type Token struct {
	text  string
	start int
	end   int
}

// NewToken validates the offsets against the text and returns a Token.
func NewToken(text string, start, end int) (Token, error) {
	// Errors carry offsets only; token text is document content.
	if start < 0 || end <= start {
		return Token{}, fmt.Errorf("token [%d:%d]: %w", start, end, internalerr.ErrInvalidInput)
	}
	if len(text) != end-start {
		return Token{}, fmt.Errorf("token [%d:%d]: span does not match text length %d: %w",
			start, end, len(text), internalerr.ErrInvalidInput)
	}
	return Token{text: text, start: start, end: end}, nil
}

// Text returns the token text.
func (t Token) Text() string { return t.text }

// Start returns the start offset.
func (t Token) Start() int { return t.start }

// End returns the end offset (exclusive).
func (t Token) End() int { return t.end }

// Len returns the number of bytes covered by the token.
func (t Token) Len() int { return t.end - t.start }

// IsSpace reports whether the token consists only of whitespace.
func (t Token) IsSpace() bool {
	return strings.TrimFunc(t.text, unicode.IsSpace) == ""
}

func (t Token) String() string {
	return fmt.Sprintf("%q[%d:%d]", t.text, t.start, t.end)
}
