package lookup

import (
	"fmt"
	"sort"

	"github.com/cognicore/deid/pkg/deid/internalerr"
)

// Payload is the metadata attached to a lookup value. A nil payload, an empty
// Tag or a nil Priority means the matcher's own value applies.
type Payload struct {
	Tag      string
	Priority *int
}

// Priority returns a pointer to p, for Payload and Entry literals.
func Priority(p int) *int { return &p }

// Resolve applies the payload's overrides to a matcher's tag and priority.
func (p *Payload) Resolve(tag string, priority int) (string, int) {
	if p == nil {
		return tag, priority
	}
	if p.Tag != "" {
		tag = p.Tag
	}
	if p.Priority != nil {
		priority = *p.Priority
	}
	return tag, priority
}

// Trie is a prefix tree over sequences of folded token texts. Values that
// share a prefix share nodes, so "new york" and "new york city" walk the same
// first two nodes.
//
// A Trie is built once and then only read; concurrent LongestMatch calls are
// safe as long as nobody inserts at the same time.
type Trie struct {
	children map[string]*Trie
	terminal bool
	payload  *Payload
	size     int
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{children: make(map[string]*Trie)}
}

// Insert adds a multi-token value. Re-inserting a value replaces its payload.
func (t *Trie) Insert(words []string, payload *Payload) error {
	if len(words) == 0 {
		return fmt.Errorf("insert empty sequence: %w", internalerr.ErrInvalidInput)
	}

	node := t
	for i, w := range words {
		if w == "" {
			return fmt.Errorf("insert %q: empty word at position %d: %w", words, i, internalerr.ErrInvalidInput)
		}
		key := Fold(w)
		child, ok := node.children[key]
		if !ok {
			child = NewTrie()
			node.children[key] = child
		}
		node = child
	}

	if !node.terminal {
		t.size++
	}
	node.terminal = true
	node.payload = payload
	return nil
}

// LongestMatch follows words from start and returns the number of words
// consumed by the deepest terminal node on the path, together with that
// node's payload. ok is false when no terminal is reached.
func (t *Trie) LongestMatch(words []string, start int) (n int, payload *Payload, ok bool) {
	node := t
	for i := start; i < len(words); i++ {
		child, found := node.children[Fold(words[i])]
		if !found {
			break
		}
		node = child
		if node.terminal {
			n, payload, ok = i-start+1, node.payload, true
		}
	}
	return n, payload, ok
}

// Contains reports whether exactly this sequence was inserted.
func (t *Trie) Contains(words []string) bool {
	if len(words) == 0 {
		return false
	}
	node := t
	for _, w := range words {
		child, ok := node.children[Fold(w)]
		if !ok {
			return false
		}
		node = child
	}
	return node.terminal
}

// HasStart reports whether some value begins with word.
func (t *Trie) HasStart(word string) bool {
	_, ok := t.children[Fold(word)]
	return ok
}

// StartWords returns the folded first words of all values, sorted.
func (t *Trie) StartWords() []string {
	out := make([]string, 0, len(t.children))
	for w := range t.children {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct values inserted.
func (t *Trie) Len() int { return t.size }
