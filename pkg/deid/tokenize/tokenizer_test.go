package tokenize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/deid/pkg/deid/internalerr"
)

func TestSpaceSplit(t *testing.T) {
	seq, err := SpaceSplit{}.Tokenize("  Jan  Jansen, MD\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"Jan", "Jansen,", "MD"}, seq.Texts())
	assert.Equal(t, 2, seq.At(0).Start())
	assert.Equal(t, 5, seq.At(0).End())
	assert.Equal(t, 7, seq.At(1).Start())
}

func TestWordBoundary(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "Hello, world", []string{"Hello", ", ", "world"}},
		{"digits", "room 12b", []string{"room", " ", "12b"}},
		{"leading punctuation", "(Jan)", []string{"(", "Jan", ")"}},
		{"accented", "Renée Müller", []string{"Renée", " ", "Müller"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := WordBoundary{}.Tokenize(tt.text)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Equal(t, 0, seq.Len())
				return
			}
			assert.Equal(t, tt.want, seq.Texts())
		})
	}
}

func TestWordBoundaryOffsetsSliceSource(t *testing.T) {
	text := "Dr. Ölçer sees Ana"
	seq, err := WordBoundary{}.Tokenize(text)
	require.NoError(t, err)

	for i := 0; i < seq.Len(); i++ {
		tok := seq.At(i)
		assert.Equal(t, text[tok.Start():tok.End()], tok.Text())
	}
}

func TestSequenceNavigationSkipsWhitespace(t *testing.T) {
	seq, err := WordBoundary{}.Tokenize("Jan  de Vries")
	require.NoError(t, err)
	require.Equal(t, []string{"Jan", "  ", "de", " ", "Vries"}, seq.Texts())

	next, ok := seq.Next(0)
	require.True(t, ok)
	assert.Equal(t, "de", seq.At(next).Text())

	prev, ok := seq.Prev(4)
	require.True(t, ok)
	assert.Equal(t, "de", seq.At(prev).Text())

	_, ok = seq.Prev(0)
	assert.False(t, ok)
	_, ok = seq.Next(4)
	assert.False(t, ok)

	far, ok := seq.NextN(0, 2)
	require.True(t, ok)
	assert.Equal(t, "Vries", seq.At(far).Text())

	_, ok = seq.NextN(0, 3)
	assert.False(t, ok)

	back, ok := seq.PrevN(4, 2)
	require.True(t, ok)
	assert.Equal(t, 0, back)
}

func TestSequenceIndexAt(t *testing.T) {
	seq, err := SpaceSplit{}.Tokenize("a bb ccc")
	require.NoError(t, err)

	i, ok := seq.IndexAt(5)
	require.True(t, ok)
	assert.Equal(t, "ccc", seq.At(i).Text())

	_, ok = seq.IndexAt(3)
	assert.False(t, ok)
}

func TestNewTokenValidation(t *testing.T) {
	_, err := NewToken("abc", 3, 3)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	_, err = NewToken("abc", 0, 2)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
	assert.NotContains(t, err.Error(), "abc", "errors must not leak token text")

	tok, err := NewToken("abc", 4, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, tok.Len())
}

func TestNewSequenceRejectsOverlap(t *testing.T) {
	a, err := NewToken("abc", 0, 3)
	require.NoError(t, err)
	b, err := NewToken("cd", 2, 4)
	require.NoError(t, err)

	_, err = NewSequence([]Token{a, b})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
	assert.Contains(t, err.Error(), "[2:4] overlaps [0:3]")
	assert.NotContains(t, err.Error(), "abc")
	assert.NotContains(t, err.Error(), "cd")
}

func TestByName(t *testing.T) {
	tok, err := ByName(KindWhitespace)
	require.NoError(t, err)
	assert.IsType(t, SpaceSplit{}, tok)

	_, err = ByName("sentencepiece")
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
}
