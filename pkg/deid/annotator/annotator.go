// Package annotator turns a token sequence into candidate annotations.
//
// Matchers never mutate their inputs and keep no per-document state, so a
// single matcher (and the lookup structures it holds) can serve many
// documents concurrently.
package annotator

import (
	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/tokenize"
)

// Matcher produces annotations for one document.
type Matcher interface {
	Match(seq *tokenize.Sequence, text string) ([]annotation.Annotation, error)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(seq *tokenize.Sequence, text string) ([]annotation.Annotation, error)

// Match implements Matcher.
func (f MatcherFunc) Match(seq *tokenize.Sequence, text string) ([]annotation.Annotation, error) {
	return f(seq, text)
}

// Base holds the tag and priority stamped on every annotation a matcher emits.
type Base struct {
	Tag      string
	Priority int
}

// span annotates text from the start of token first to the end of token
// last, re-slicing the source rather than joining token texts.
func span(seq *tokenize.Sequence, text string, first, last int, tag string, priority int) (annotation.Annotation, error) {
	return annotation.FromSource(text, seq.At(first).Start(), seq.At(last).End(), tag,
		annotation.WithPriority(priority),
		annotation.WithTokens(first, last),
	)
}
