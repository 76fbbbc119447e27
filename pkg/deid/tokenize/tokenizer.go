package tokenize

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/deid/pkg/deid/internalerr"
)

// Tokenizer splits text into a Sequence.
type Tokenizer interface {
	Tokenize(text string) (*Sequence, error)
}

// Tokenizer kinds accepted by ByName.
const (
	KindWhitespace   = "whitespace"
	KindWordBoundary = "word_boundary"
)

// ByName returns a built-in tokenizer.
func ByName(kind string) (Tokenizer, error) {
	switch kind {
	case KindWhitespace:
		return SpaceSplit{}, nil
	case KindWordBoundary, "":
		return WordBoundary{}, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q: %w", kind, internalerr.ErrInvalidConfig)
	}
}

// SpaceSplit produces one token per run of non-whitespace characters.
// Whitespace itself is not tokenized.
type SpaceSplit struct{}

// Tokenize implements Tokenizer.
func (SpaceSplit) Tokenize(text string) (*Sequence, error) {
	return split(text, func(r rune) int {
		if unicode.IsSpace(r) {
			return -1
		}
		return 0
	})
}

// WordBoundary splits on word boundaries: runs of word characters and runs of
// everything else alternate, so whitespace and punctuation become tokens too.
type WordBoundary struct{}

// Tokenize implements Tokenizer.
func (WordBoundary) Tokenize(text string) (*Sequence, error) {
	return split(text, func(r rune) int {
		if isWordRune(r) {
			return 1
		}
		return 0
	})
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) || r == '_'
}

// split cuts text wherever class changes. Runs of class -1 are dropped.
func split(text string, class func(rune) int) (*Sequence, error) {
	var tokens []Token

	start, cur := 0, -2
	emit := func(end int) {
		if cur >= 0 && end > start {
			tokens = append(tokens, Token{text: text[start:end], start: start, end: end})
		}
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		c := class(r)
		if c != cur {
			emit(i)
			start, cur = i, c
		}
		i += size
	}
	emit(len(text))

	return NewSequence(tokens)
}
