package annotator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/lookup"
	"github.com/cognicore/deid/pkg/deid/tokenize"
)

func tokenized(t *testing.T, tok tokenize.Tokenizer, text string) *tokenize.Sequence {
	t.Helper()
	seq, err := tok.Tokenize(text)
	require.NoError(t, err)
	return seq
}

func texts(annos []annotation.Annotation) []string {
	out := make([]string, 0, len(annos))
	for _, a := range annos {
		out = append(out, a.Text())
	}
	return out
}

func TestTokenLookup(t *testing.T) {
	text := "Patient Jan Jansen saw jan"
	seq := tokenized(t, tokenize.WordBoundary{}, text)

	m := NewTokenLookup(Base{Tag: "name", Priority: 2}, lookup.NewSet("Jan"))
	got, err := m.Match(seq, text)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Jan", got[0].Text())
	assert.Equal(t, 8, got[0].Start())
	assert.Equal(t, 11, got[0].End())
	assert.Equal(t, "name", got[0].Tag())
	assert.Equal(t, 2, got[0].Priority())
	first, last, ok := got[0].Tokens()
	assert.True(t, ok)
	assert.Equal(t, 2, first)
	assert.Equal(t, 2, last)

	assert.Equal(t, "jan", got[1].Text())
	assert.Equal(t, 23, got[1].Start())
}

func TestTokenLookupNoMatches(t *testing.T) {
	text := "nothing to see"
	seq := tokenized(t, tokenize.WordBoundary{}, text)

	got, err := NewTokenLookup(Base{Tag: "name"}, lookup.NewSet("jan")).Match(seq, text)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMultiTokenLookupLongestMatch(t *testing.T) {
	trie := lookup.NewTrie()
	require.NoError(t, trie.Insert([]string{"new", "york"}, nil))
	require.NoError(t, trie.Insert([]string{"new", "york", "city", "hall"}, nil))

	text := "Meet at New York City Hall today"
	seq := tokenized(t, tokenize.SpaceSplit{}, text)

	got, err := NewMultiTokenLookup(Base{Tag: "location"}, trie).Match(seq, text)
	require.NoError(t, err)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, "New York City Hall", a.Text())
	assert.Equal(t, 8, a.Start())
	assert.Equal(t, 26, a.End())
	first, last, _ := a.Tokens()
	assert.Equal(t, 2, first)
	assert.Equal(t, 5, last)
}

func TestMultiTokenLookupWithWhitespaceTokens(t *testing.T) {
	tok := tokenize.WordBoundary{}
	trie := lookup.NewTrie()
	require.NoError(t, trie.Insert(tokenized(t, tok, "New York").Texts(), nil))

	text := "from new york, again"
	got, err := NewMultiTokenLookup(Base{Tag: "location"}, trie).Match(tokenized(t, tok, text), text)
	require.NoError(t, err)
	assert.Equal(t, []string{"new york"}, texts(got))
}

func TestMultiTokenLookupPayloadOverrides(t *testing.T) {
	trie := lookup.NewTrie()
	require.NoError(t, trie.Insert([]string{"amsterdam"}, &lookup.Payload{Tag: "city", Priority: lookup.Priority(3)}))
	require.NoError(t, trie.Insert([]string{"utrecht"}, nil))
	require.NoError(t, trie.Insert([]string{"leiden"}, &lookup.Payload{Tag: "city"}))

	text := "Amsterdam and Utrecht and Leiden"
	seq := tokenized(t, tokenize.SpaceSplit{}, text)

	got, err := NewMultiTokenLookup(Base{Tag: "location", Priority: 1}, trie).Match(seq, text)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "city", got[0].Tag())
	assert.Equal(t, 3, got[0].Priority())
	assert.Equal(t, "location", got[1].Tag())
	assert.Equal(t, 1, got[1].Priority())
	assert.Equal(t, "city", got[2].Tag())
	assert.Equal(t, 1, got[2].Priority(), "a tag-only payload keeps the annotator priority")
}

func TestTokenLookupPayloadOverrides(t *testing.T) {
	set := lookup.NewSet("Utrecht")
	set.Put("Leiden", &lookup.Payload{Tag: "city"})
	set.Put("Delft", &lookup.Payload{Tag: "city", Priority: lookup.Priority(7)})

	text := "Utrecht, Leiden, Delft"
	seq := tokenized(t, tokenize.WordBoundary{}, text)

	got, err := NewTokenLookup(Base{Tag: "location", Priority: 5}, set).Match(seq, text)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "location", got[0].Tag())
	assert.Equal(t, 5, got[0].Priority())
	assert.Equal(t, "city", got[1].Tag())
	assert.Equal(t, 5, got[1].Priority())
	assert.Equal(t, "city", got[2].Tag())
	assert.Equal(t, 7, got[2].Priority())
}

func TestMultiTokenLookupSkipAhead(t *testing.T) {
	trie := lookup.NewTrie()
	require.NoError(t, trie.Insert([]string{"a", "b"}, nil))
	require.NoError(t, trie.Insert([]string{"b", "c"}, nil))

	text := "a b c"
	seq := tokenized(t, tokenize.SpaceSplit{}, text)

	m := NewMultiTokenLookup(Base{Tag: "x"}, trie)
	got, err := m.Match(seq, text)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b"}, texts(got))

	m.Overlapping = true
	got, err = m.Match(seq, text)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b", "b c"}, texts(got))
}

func TestRegexp(t *testing.T) {
	text := "born 01-02-1990, seen 03-04-2001"
	seq := tokenized(t, tokenize.WordBoundary{}, text)

	whole, err := NewRegexp(Base{Tag: "date"}, `(\d{2})-(\d{2})-(\d{4})`, 0)
	require.NoError(t, err)
	got, err := whole.Match(seq, text)
	require.NoError(t, err)
	assert.Equal(t, []string{"01-02-1990", "03-04-2001"}, texts(got))
	assert.Equal(t, 5, got[0].Start())
	assert.Equal(t, 15, got[0].End())
	_, _, ok := got[0].Tokens()
	assert.False(t, ok)

	year, err := NewRegexp(Base{Tag: "year"}, `(\d{2})-(\d{2})-(\d{4})`, 3)
	require.NoError(t, err)
	got, err = year.Match(seq, text)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1990", got[0].Text())
	assert.Equal(t, 11, got[0].Start())
}

func TestRegexpInvalid(t *testing.T) {
	_, err := NewRegexp(Base{Tag: "x"}, `(unclosed`, 0)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))

	_, err = NewRegexp(Base{Tag: "x"}, `(a)`, 2)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
}

func TestRegexpPreMatchAndValidate(t *testing.T) {
	m, err := NewRegexp(Base{Tag: "date"}, `\d{4}`, 0)
	require.NoError(t, err)
	m.PreMatch = lookup.NewSet("born")

	text := "room 1234"
	got, err := m.Match(tokenized(t, tokenize.WordBoundary{}, text), text)
	require.NoError(t, err)
	assert.Empty(t, got)

	text = "Born in 1990, room 1234"
	m.Validate = func(text string, loc []int) bool { return text[loc[0]] == '1' && text[loc[1]-1] == '0' }
	got, err = m.Match(tokenized(t, tokenize.WordBoundary{}, text), text)
	require.NoError(t, err)
	assert.Equal(t, []string{"1990"}, texts(got))
}

func TestSequence(t *testing.T) {
	lookups := map[string]*lookup.Set{"first_names": lookup.NewSet("jan")}

	p1, err := ParsePattern(map[string]any{"lookup": "first_names"}, lookups)
	require.NoError(t, err)
	p2, err := ParsePattern(map[string]any{"like_name": true}, lookups)
	require.NoError(t, err)

	m, err := NewSequence(Base{Tag: "name", Priority: 1}, []TokenPredicate{p1, p2}, nil)
	require.NoError(t, err)

	text := "Dr. Jan Jansen en jan de Vries"
	got, err := m.Match(tokenized(t, tokenize.WordBoundary{}, text), text)
	require.NoError(t, err)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, "Jan Jansen", a.Text())
	assert.Equal(t, 4, a.Start())
	assert.Equal(t, 14, a.End())
	first, last, _ := a.Tokens()
	assert.Equal(t, 2, first)
	assert.Equal(t, 4, last)
}

func TestSequenceSkip(t *testing.T) {
	p1, err := ParsePattern(map[string]any{"equal": "Dr"}, nil)
	require.NoError(t, err)
	p2, err := ParsePattern(map[string]any{"like_name": true}, nil)
	require.NoError(t, err)

	text := "Dr. Jan"
	seq := tokenized(t, tokenize.WordBoundary{}, text)

	strict, err := NewSequence(Base{Tag: "name"}, []TokenPredicate{p1, p2}, nil)
	require.NoError(t, err)
	got, err := strict.Match(seq, text)
	require.NoError(t, err)
	assert.Empty(t, got)

	lenient, err := NewSequence(Base{Tag: "name"}, []TokenPredicate{p1, p2}, []string{"."})
	require.NoError(t, err)
	assert.Equal(t, []string{"."}, lenient.Skip())
	got, err = lenient.Match(seq, text)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dr. Jan"}, texts(got))
}

func TestSequenceStartSet(t *testing.T) {
	capital, err := ParsePattern(map[string]any{"re_match": `[A-Z]`}, nil)
	require.NoError(t, err)

	m, err := NewSequence(Base{Tag: "x"}, []TokenPredicate{capital}, nil)
	require.NoError(t, err)
	m.Start = lookup.NewSet("Bob")

	text := "Alice Bob Carol"
	got, err := m.Match(tokenized(t, tokenize.SpaceSplit{}, text), text)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, texts(got))
}

func TestNewSequenceEmptyPattern(t *testing.T) {
	_, err := NewSequence(Base{Tag: "x"}, nil, nil)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
}

func TestParsePatternFunctions(t *testing.T) {
	lookups := map[string]*lookup.Set{"stop": lookup.NewSet("de", "van")}

	tests := []struct {
		name    string
		raw     map[string]any
		matches []string
		rejects []string
	}{
		{"equal", map[string]any{"equal": "Dr"}, []string{"Dr"}, []string{"dr", "Drs"}},
		{"re_match anchored", map[string]any{"re_match": `\d+`}, []string{"12", "3a"}, []string{"a3"}},
		{"initials", map[string]any{"is_initials": true}, []string{"J", "JJ", "A.B."}, []string{"Jj", "ABCDE", "12"}},
		{"not initials", map[string]any{"is_initials": false}, []string{"Jan"}, []string{"JJ"}},
		{"like name", map[string]any{"like_name": true}, []string{"Jansen", "Jan-Willem"}, []string{"Jo", "jansen", "McDonald", "Jan2"}},
		{"lookup", map[string]any{"lookup": "stop"}, []string{"de", "Van"}, []string{"der"}},
		{"neg lookup", map[string]any{"neg_lookup": "stop"}, []string{"der"}, []string{"de"}},
		{"and", map[string]any{"and": []any{
			map[string]any{"like_name": true},
			map[string]any{"neg_lookup": "stop"},
		}}, []string{"Jansen"}, []string{"Van", "jansen"}},
		{"or", map[string]any{"or": []any{
			map[string]any{"equal": "x"},
			map[string]any{"equal": "y"},
		}}, []string{"x", "y"}, []string{"z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.raw, lookups)
			require.NoError(t, err)
			for _, s := range tt.matches {
				assert.True(t, p(s), "expected match for %q", s)
			}
			for _, s := range tt.rejects {
				assert.False(t, p(s), "expected no match for %q", s)
			}
		})
	}
}

func TestParsePatternErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"no key", map[string]any{}},
		{"two keys", map[string]any{"equal": "a", "like_name": true}},
		{"unknown function", map[string]any{"sounds_like": "x"}},
		{"unknown lookup", map[string]any{"lookup": "missing"}},
		{"wrong value type", map[string]any{"equal": 3}},
		{"bool expected", map[string]any{"like_name": "yes"}},
		{"bad regexp", map[string]any{"re_match": "("}},
		{"empty and", map[string]any{"and": []any{}}},
		{"nested not a map", map[string]any{"or": []any{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePattern(tt.raw, nil)
			assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestMatcherFunc(t *testing.T) {
	called := false
	var m Matcher = MatcherFunc(func(seq *tokenize.Sequence, text string) ([]annotation.Annotation, error) {
		called = true
		return nil, nil
	})
	_, err := m.Match(nil, "")
	require.NoError(t, err)
	assert.True(t, called)
}
