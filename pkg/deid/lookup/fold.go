package lookup

import (
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// casers are stateful; each goroutine borrows its own.
var casers = sync.Pool{
	New: func() any {
		c := cases.Fold()
		return &c
	},
}

// Fold returns the matching key for s: Unicode case folding followed by NFC
// normalization. It is used for every insert and every query so that keys
// compare equal regardless of case or composition.
func Fold(s string) string {
	c := casers.Get().(*cases.Caser)
	folded := c.String(s)
	casers.Put(c)
	return norm.NFC.String(folded)
}

// FoldAll folds each string in words.
func FoldAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = Fold(w)
	}
	return out
}
