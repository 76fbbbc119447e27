package tokenize

import (
	"fmt"
	"sort"

	"github.com/cognicore/deid/pkg/deid/internalerr"
)

// Sequence is an ordered, read-only list of tokens. For every token it also
// records the index of the previous and next non-whitespace token, which
// matchers use to walk over the text without caring about spacing.
type Sequence struct {
	tokens []Token
	prev   []int
	next   []int
}

// NewSequence validates the tokens (ordered, non-overlapping, non-empty) and
// builds the navigation indices. The slice is copied.
func NewSequence(tokens []Token) (*Sequence, error) {
	owned := make([]Token, len(tokens))
	copy(owned, tokens)

	for i, tok := range owned {
		if tok.end <= tok.start {
			return nil, fmt.Errorf("token %d [%d:%d]: %w", i, tok.start, tok.end, internalerr.ErrInvalidInput)
		}
		if i > 0 && tok.start < owned[i-1].end {
			return nil, fmt.Errorf("token %d [%d:%d] overlaps [%d:%d]: %w",
				i, tok.start, tok.end, owned[i-1].start, owned[i-1].end, internalerr.ErrInvalidInput)
		}
	}

	s := &Sequence{
		tokens: owned,
		prev:   make([]int, len(owned)),
		next:   make([]int, len(owned)),
	}

	last := -1
	for i, tok := range owned {
		s.prev[i] = last
		if !tok.IsSpace() {
			last = i
		}
	}
	last = -1
	for i := len(owned) - 1; i >= 0; i-- {
		s.next[i] = last
		if !owned[i].IsSpace() {
			last = i
		}
	}

	return s, nil
}

// Len returns the number of tokens.
func (s *Sequence) Len() int { return len(s.tokens) }

// At returns the token at index i.
func (s *Sequence) At(i int) Token { return s.tokens[i] }

// Tokens returns a copy of the tokens.
func (s *Sequence) Tokens() []Token {
	out := make([]Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Texts returns the token texts in order.
func (s *Sequence) Texts() []string {
	out := make([]string, len(s.tokens))
	for i, tok := range s.tokens {
		out[i] = tok.text
	}
	return out
}

// Prev returns the index of the previous non-whitespace token.
func (s *Sequence) Prev(i int) (int, bool) {
	j := s.prev[i]
	return j, j >= 0
}

// Next returns the index of the next non-whitespace token.
func (s *Sequence) Next(i int) (int, bool) {
	j := s.next[i]
	return j, j >= 0
}

// PrevN walks n steps back over non-whitespace tokens.
func (s *Sequence) PrevN(i, n int) (int, bool) {
	for ; n > 0; n-- {
		var ok bool
		if i, ok = s.Prev(i); !ok {
			return -1, false
		}
	}
	return i, true
}

// NextN walks n steps forward over non-whitespace tokens.
func (s *Sequence) NextN(i, n int) (int, bool) {
	for ; n > 0; n-- {
		var ok bool
		if i, ok = s.Next(i); !ok {
			return -1, false
		}
	}
	return i, true
}

// IndexAt returns the index of the token starting at the given offset.
func (s *Sequence) IndexAt(start int) (int, bool) {
	i := sort.Search(len(s.tokens), func(i int) bool { return s.tokens[i].start >= start })
	if i < len(s.tokens) && s.tokens[i].start == start {
		return i, true
	}
	return -1, false
}

// Indices returns, in order, the indices of tokens whose text satisfies keep.
func (s *Sequence) Indices(keep func(text string) bool) []int {
	var out []int
	for i, tok := range s.tokens {
		if keep(tok.text) {
			out = append(out, i)
		}
	}
	return out
}
