package annotator

import (
	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/lookup"
	"github.com/cognicore/deid/pkg/deid/tokenize"
)

// TokenLookup annotates every token whose folded text is in a lookup set.
// A value's payload overrides the tag and priority, as in MultiTokenLookup.
type TokenLookup struct {
	Base
	set *lookup.Set
}

// NewTokenLookup creates a single-token lookup matcher.
func NewTokenLookup(base Base, set *lookup.Set) *TokenLookup {
	return &TokenLookup{Base: base, set: set}
}

// Match implements Matcher.
func (m *TokenLookup) Match(seq *tokenize.Sequence, text string) ([]annotation.Annotation, error) {
	var out []annotation.Annotation
	for _, i := range seq.Indices(m.set.Contains) {
		payload, _ := m.set.Lookup(seq.At(i).Text())
		tag, priority := payload.Resolve(m.Tag, m.Priority)
		a, err := span(seq, text, i, i, tag, priority)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// MultiTokenLookup annotates the longest lookup value starting at each token,
// using a trie over token texts. After a match the scan resumes behind it, so
// it never reports a match starting inside another of its own matches unless
// Overlapping is set.
type MultiTokenLookup struct {
	Base
	trie        *lookup.Trie
	Overlapping bool
}

// NewMultiTokenLookup creates a multi-token lookup matcher.
func NewMultiTokenLookup(base Base, trie *lookup.Trie) *MultiTokenLookup {
	return &MultiTokenLookup{Base: base, trie: trie}
}

// Match implements Matcher.
func (m *MultiTokenLookup) Match(seq *tokenize.Sequence, text string) ([]annotation.Annotation, error) {
	words := seq.Texts()

	var out []annotation.Annotation
	for i := 0; i < len(words); {
		n, payload, ok := m.trie.LongestMatch(words, i)
		if !ok {
			i++
			continue
		}

		tag, priority := payload.Resolve(m.Tag, m.Priority)
		a, err := span(seq, text, i, i+n-1, tag, priority)
		if err != nil {
			return nil, err
		}
		out = append(out, a)

		if m.Overlapping {
			i++
		} else {
			i += n
		}
	}
	return out, nil
}
