package annotator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/lookup"
	"github.com/cognicore/deid/pkg/deid/tokenize"
)

// TokenPredicate decides whether a single token text matches one position of
// a sequence pattern.
type TokenPredicate func(text string) bool

// ParsePattern builds a predicate from its configuration form: a map with
// exactly one key naming the function, e.g. {"lookup": "first_names"} or
// {"and": [{"like_name": true}, {"neg_lookup": "stopwords"}]}.
//
// Supported functions: equal, re_match, is_initials, like_name, lookup,
// neg_lookup, and, or.
func ParsePattern(raw map[string]any, lookups map[string]*lookup.Set) (TokenPredicate, error) {
	if len(raw) != 1 {
		return nil, fmt.Errorf("token pattern %v must have exactly one key: %w", raw, internalerr.ErrInvalidConfig)
	}

	var (
		fn    string
		value any
	)
	for k, v := range raw {
		fn, value = k, v
	}

	switch fn {
	case "equal":
		s, err := asString(fn, value)
		if err != nil {
			return nil, err
		}
		return func(text string) bool { return text == s }, nil

	case "re_match":
		s, err := asString(fn, value)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(`^(?:` + s + `)`)
		if err != nil {
			return nil, fmt.Errorf("re_match %q: %v: %w", s, err, internalerr.ErrInvalidConfig)
		}
		return re.MatchString, nil

	case "is_initials":
		want, err := asBool(fn, value)
		if err != nil {
			return nil, err
		}
		return func(text string) bool { return isInitials(text) == want }, nil

	case "like_name":
		want, err := asBool(fn, value)
		if err != nil {
			return nil, err
		}
		return func(text string) bool { return likeName(text) == want }, nil

	case "lookup", "neg_lookup":
		name, err := asString(fn, value)
		if err != nil {
			return nil, err
		}
		set, ok := lookups[name]
		if !ok {
			return nil, fmt.Errorf("%s: unknown lookup %q: %w", fn, name, internalerr.ErrInvalidConfig)
		}
		if fn == "neg_lookup" {
			return func(text string) bool { return !set.Contains(text) }, nil
		}
		return set.Contains, nil

	case "and", "or":
		items, ok := value.([]any)
		if !ok || len(items) == 0 {
			return nil, fmt.Errorf("%s needs a non-empty list of patterns: %w", fn, internalerr.ErrInvalidConfig)
		}
		preds := make([]TokenPredicate, 0, len(items))
		for _, item := range items {
			sub, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: nested pattern %v is not a map: %w", fn, item, internalerr.ErrInvalidConfig)
			}
			p, err := ParsePattern(sub, lookups)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		if fn == "and" {
			return func(text string) bool {
				for _, p := range preds {
					if !p(text) {
						return false
					}
				}
				return true
			}, nil
		}
		return func(text string) bool {
			for _, p := range preds {
				if p(text) {
					return true
				}
			}
			return false
		}, nil

	default:
		return nil, fmt.Errorf("unknown token pattern function %q: %w", fn, internalerr.ErrInvalidConfig)
	}
}

func asString(fn string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s expects a string, got %T: %w", fn, v, internalerr.ErrInvalidConfig)
	}
	return s, nil
}

func asBool(fn string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s expects a bool, got %T: %w", fn, v, internalerr.ErrInvalidConfig)
	}
	return b, nil
}

// isInitials: at most four characters, all cased ones upper case.
func isInitials(text string) bool {
	if utf8.RuneCountInString(text) > 4 {
		return false
	}
	cased := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// likeName: at least three characters, title cased, no digits.
func likeName(text string) bool {
	if utf8.RuneCountInString(text) < 3 {
		return false
	}
	cased, prevCased := false, false
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			return false
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased, cased = true, true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased, cased = true, true
		default:
			prevCased = false
		}
	}
	return cased
}

// Sequence matches a fixed series of token predicates against consecutive
// non-whitespace tokens. Tokens whose trimmed text is in Skip (e.g. ".") are
// stepped over between positions.
type Sequence struct {
	Base
	pattern []TokenPredicate
	skip    map[string]struct{}

	// Start, when set, limits candidate start tokens to this set.
	Start *lookup.Set
}

// NewSequence creates a sequence matcher.
func NewSequence(base Base, pattern []TokenPredicate, skip []string) (*Sequence, error) {
	if len(pattern) == 0 {
		return nil, fmt.Errorf("sequence %q: empty pattern: %w", base.Tag, internalerr.ErrInvalidConfig)
	}
	s := &Sequence{Base: base, pattern: pattern, skip: make(map[string]struct{}, len(skip))}
	for _, w := range skip {
		s.skip[w] = struct{}{}
	}
	return s, nil
}

// Skip returns the skipped token texts, sorted.
func (m *Sequence) Skip() []string {
	out := make([]string, 0, len(m.skip))
	for w := range m.skip {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func (m *Sequence) skipped(tok tokenize.Token) bool {
	if tok.IsSpace() {
		return true
	}
	_, ok := m.skip[strings.TrimSpace(tok.Text())]
	return ok
}

// Match implements Matcher.
func (m *Sequence) Match(seq *tokenize.Sequence, text string) ([]annotation.Annotation, error) {
	var out []annotation.Annotation

	for start := 0; start < seq.Len(); start++ {
		tok := seq.At(start)
		if m.skipped(tok) {
			continue
		}
		if m.Start != nil && !m.Start.Contains(tok.Text()) {
			continue
		}

		end, ok := m.matchAt(seq, start)
		if !ok {
			continue
		}
		a, err := span(seq, text, start, end, m.Tag, m.Priority)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// matchAt returns the index of the last token matched when the whole pattern
// matches from start.
func (m *Sequence) matchAt(seq *tokenize.Sequence, start int) (int, bool) {
	cur, last := start, start
	for k, pred := range m.pattern {
		if k > 0 {
			var ok bool
			if cur, ok = seq.Next(last); !ok {
				return 0, false
			}
			for m.skipped(seq.At(cur)) {
				if cur, ok = seq.Next(cur); !ok {
					return 0, false
				}
			}
		}
		if !pred(seq.At(cur).Text()) {
			return 0, false
		}
		last = cur
	}
	return last, true
}
