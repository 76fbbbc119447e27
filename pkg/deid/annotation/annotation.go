// Package annotation holds the tagged-span data model shared by matchers,
// processors and redactors, together with the deterministic ordering every
// stage relies on.
package annotation

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/cognicore/deid/pkg/deid/internalerr"
)

// DefaultPriority is the priority of annotations created without one.
const DefaultPriority = 0

// noToken marks an annotation that was not produced on token boundaries.
const noToken = -1

// Annotation is a tagged span of the source text. All fields are set by New
// and never change, so an Annotation is a comparable value usable as a map
// key; two annotations are equal iff every field is equal.
type Annotation struct {
	text       string
	start      int
	end        int
	tag        string
	priority   int
	startToken int
	endToken   int
}

// Option configures optional annotation fields.
type Option func(*Annotation)

// WithPriority sets the priority used during overlap resolution.
func WithPriority(p int) Option {
	return func(a *Annotation) { a.priority = p }
}

// WithTokens records the indices of the first and last token of the span.
func WithTokens(first, last int) Option {
	return func(a *Annotation) {
		a.startToken = first
		a.endToken = last
	}
}

// New creates an annotation for text[start:end]. The text must match the
// offsets exactly and the span must not be empty.
func New(text string, start, end int, tag string, opts ...Option) (Annotation, error) {
	a := Annotation{
		text:       text,
		start:      start,
		end:        end,
		tag:        tag,
		priority:   DefaultPriority,
		startToken: noToken,
		endToken:   noToken,
	}
	for _, o := range opts {
		o(&a)
	}

	if start < 0 || end <= start {
		return Annotation{}, fmt.Errorf("annotation %q [%d:%d]: %w", tag, start, end, internalerr.ErrInvalidInput)
	}
	if len(text) != end-start {
		return Annotation{}, fmt.Errorf("annotation %q [%d:%d]: span does not match text length %d: %w",
			tag, start, end, len(text), internalerr.ErrInvalidInput)
	}
	if (a.startToken == noToken) != (a.endToken == noToken) || a.endToken < a.startToken {
		return Annotation{}, fmt.Errorf("annotation %q [%d:%d]: bad token bounds %d..%d: %w",
			tag, start, end, a.startToken, a.endToken, internalerr.ErrInvalidInput)
	}
	return a, nil
}

// FromSource slices text[start:end] and creates an annotation over it.
func FromSource(source string, start, end int, tag string, opts ...Option) (Annotation, error) {
	if start < 0 || end > len(source) || end <= start {
		return Annotation{}, fmt.Errorf("annotation %q [%d:%d] outside text of length %d: %w",
			tag, start, end, len(source), internalerr.ErrInvalidInput)
	}
	return New(source[start:end], start, end, tag, opts...)
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(text string, start, end int, tag string, opts ...Option) Annotation {
	a, err := New(text, start, end, tag, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// Text returns the annotated text.
func (a Annotation) Text() string { return a.text }

// Start returns the start offset.
func (a Annotation) Start() int { return a.start }

// End returns the end offset (exclusive).
func (a Annotation) End() int { return a.end }

// Tag returns the tag, e.g. "name" or "location".
func (a Annotation) Tag() string { return a.tag }

// Priority returns the priority used when resolving overlap.
func (a Annotation) Priority() int { return a.priority }

// Len is end - start.
func (a Annotation) Len() int { return a.end - a.start }

// Tokens returns the token bounds, if the annotation was token aligned.
func (a Annotation) Tokens() (first, last int, ok bool) {
	return a.startToken, a.endToken, a.startToken != noToken
}

// Overlaps reports whether the character ranges of a and b intersect.
func Overlaps(a, b Annotation) bool {
	return a.start < b.end && b.start < a.end
}

// Compare orders annotations by (start, -length, tag, priority, end, text,
// start token, end token): earlier spans first and, among spans starting at
// the same offset, longer spans first. Every field takes part, so the order
// depends only on content.
func Compare(a, b Annotation) int {
	if c := cmp.Compare(a.start, b.start); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Len(), a.Len()); c != 0 {
		return c
	}
	if c := strings.Compare(a.tag, b.tag); c != 0 {
		return c
	}
	if c := cmp.Compare(a.priority, b.priority); c != 0 {
		return c
	}
	if c := cmp.Compare(a.end, b.end); c != 0 {
		return c
	}
	if c := strings.Compare(a.text, b.text); c != 0 {
		return c
	}
	if c := cmp.Compare(a.startToken, b.startToken); c != 0 {
		return c
	}
	return cmp.Compare(a.endToken, b.endToken)
}

func (a Annotation) String() string {
	return fmt.Sprintf("%s[%d:%d]p%d", a.tag, a.start, a.end, a.priority)
}
