package lookup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Modifier rewrites a lookup value before it is added.
type Modifier func(string) string

// Filter keeps a lookup value when it returns true.
type Filter func(string) bool

// Strip trims surrounding whitespace.
func Strip(s string) string { return strings.TrimSpace(s) }

// ASCIIFold maps accented letters to their base letter (Renée -> Renee).
func ASCIIFold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ReplaceValue replaces every occurrence of old with new.
func ReplaceValue(old, new string) Modifier {
	return func(s string) string { return strings.ReplaceAll(s, old, new) }
}

// MinLength keeps values of at least n characters.
func MinLength(n int) Filter {
	return func(s string) bool { return utf8.RuneCountInString(s) >= n }
}

// Clean applies modifiers in order, then drops values rejected by any filter
// or left empty.
func Clean(values []string, mods []Modifier, filters ...Filter) []string {
	out := make([]string, 0, len(values))
next:
	for _, v := range values {
		for _, m := range mods {
			v = m(v)
		}
		if v == "" {
			continue
		}
		for _, f := range filters {
			if !f(v) {
				continue next
			}
		}
		out = append(out, v)
	}
	return out
}

// MinLengthExpander adds modified variants of values that are long enough,
// keeping the original value as well.
type MinLengthExpander struct {
	Modifiers []Modifier
	MinLength int
}

// Expand returns v followed by its distinct variants.
func (e MinLengthExpander) Expand(v string) []string {
	out := []string{v}
	if utf8.RuneCountInString(v) < e.MinLength {
		return out
	}
	seen := map[string]bool{v: true}
	for _, m := range e.Modifiers {
		if mv := m(v); !seen[mv] {
			seen[mv] = true
			out = append(out, mv)
		}
	}
	return out
}

// ExpandAll expands every value.
func (e MinLengthExpander) ExpandAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, e.Expand(v)...)
	}
	return out
}
