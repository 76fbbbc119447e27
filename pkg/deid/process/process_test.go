package process

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/internalerr"
)

func at(t *testing.T, text string, start, end int, tag string, opts ...annotation.Option) annotation.Annotation {
	t.Helper()
	a, err := annotation.FromSource(text, start, end, tag, opts...)
	require.NoError(t, err)
	return a
}

func assertNoOverlap(t *testing.T, set annotation.Set) {
	t.Helper()
	sorted := set.Sorted()
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			assert.False(t, annotation.Overlaps(sorted[i], sorted[j]), "%s overlaps %s", sorted[i], sorted[j])
		}
	}
}

func TestOverlapResolverPriorityWins(t *testing.T) {
	text := "Jan Jansen lives in Jansen Street"
	name := at(t, text, 20, 26, "name")
	street := at(t, text, 20, 33, "location", annotation.WithPriority(1))
	person := at(t, text, 0, 10, "name")

	got, err := OverlapResolver{}.Process(annotation.NewSet(name, street, person), text)
	require.NoError(t, err)

	assert.True(t, got.Equal(annotation.NewSet(person, street)))
}

func TestOverlapResolverLaterHigherPriorityDisplaces(t *testing.T) {
	text := "aaaa bbbb cccc"
	long := at(t, text, 0, 9, "x")
	inner := at(t, text, 5, 14, "y", annotation.WithPriority(2))
	tail := at(t, text, 10, 14, "z")

	got, err := OverlapResolver{}.Process(annotation.NewSet(long, inner, tail), text)
	require.NoError(t, err)

	assert.Equal(t, []annotation.Annotation{inner}, got.Sorted())
}

func TestOverlapResolverLongerWinsOnTiedPriority(t *testing.T) {
	text := "New York City"
	short := at(t, text, 4, 8, "location")
	long := at(t, text, 0, 13, "location")

	got, err := OverlapResolver{}.Process(annotation.NewSet(short, long), text)
	require.NoError(t, err)
	assert.Equal(t, []annotation.Annotation{long}, got.Sorted())
}

func TestOverlapResolverTieIsDeterministic(t *testing.T) {
	text := "Jordan"
	a := at(t, text, 0, 6, "name")
	b := at(t, text, 0, 6, "location")

	first, err := OverlapResolver{}.Process(annotation.NewSet(a, b), text)
	require.NoError(t, err)
	require.Equal(t, 1, first.Len())

	for range 20 {
		again, err := OverlapResolver{}.Process(annotation.NewSet(b, a), text)
		require.NoError(t, err)
		assert.True(t, first.Equal(again))
	}
	// equal priority and length: the first in sort order (tag "location") stays
	assert.True(t, first.Contains(b))
}

func TestOverlapResolverIdempotentAndOverlapFree(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	set := annotation.NewSet(
		at(t, text, 0, 9, "a"),
		at(t, text, 4, 15, "b", annotation.WithPriority(1)),
		at(t, text, 10, 19, "c"),
		at(t, text, 16, 25, "a", annotation.WithPriority(3)),
		at(t, text, 20, 30, "b"),
		at(t, text, 31, 34, "c"),
		at(t, text, 35, 43, "a"),
		at(t, text, 40, 43, "b", annotation.WithPriority(1)),
	)

	once, err := OverlapResolver{}.Process(set, text)
	require.NoError(t, err)
	assertNoOverlap(t, once)

	twice, err := OverlapResolver{}.Process(once, text)
	require.NoError(t, err)
	assert.True(t, once.Equal(twice))
}

func TestOverlapResolverDoesNotMutateInput(t *testing.T) {
	text := "abcdef"
	set := annotation.NewSet(at(t, text, 0, 4, "x"), at(t, text, 2, 6, "y"))

	_, err := OverlapResolver{}.Process(set, text)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestOverlapResolverEmpty(t *testing.T) {
	got, err := OverlapResolver{}.Process(annotation.Set{}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestMergeAdjacentChain(t *testing.T) {
	text := "Dr. John Smith Jones saw"
	set := annotation.NewSet(
		at(t, text, 4, 8, "name", annotation.WithTokens(2, 2)),
		at(t, text, 9, 14, "name", annotation.WithPriority(2), annotation.WithTokens(4, 4)),
		at(t, text, 15, 20, "name", annotation.WithTokens(6, 6)),
	)

	m, err := NewMergeAdjacent("")
	require.NoError(t, err)
	got, err := m.Process(set, text)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())

	merged := got.Sorted()[0]
	assert.Equal(t, "John Smith Jones", merged.Text())
	assert.Equal(t, 4, merged.Start())
	assert.Equal(t, 20, merged.End())
	assert.Equal(t, 2, merged.Priority())
	first, last, ok := merged.Tokens()
	assert.True(t, ok)
	assert.Equal(t, 2, first)
	assert.Equal(t, 6, last)
}

func TestMergeAdjacentReslicesSource(t *testing.T) {
	text := "John\tSmith"
	set := annotation.NewSet(at(t, text, 0, 4, "name"), at(t, text, 5, 10, "name"))

	m, err := NewMergeAdjacent("")
	require.NoError(t, err)
	got, err := m.Process(set, text)
	require.NoError(t, err)
	assert.Equal(t, "John\tSmith", got.Sorted()[0].Text())
}

func TestMergeAdjacentKeepsApart(t *testing.T) {
	text := "John  Smith and Amsterdam Utrecht"
	set := annotation.NewSet(
		at(t, text, 0, 4, "name"),
		at(t, text, 6, 11, "name"),
		at(t, text, 16, 25, "location"),
		at(t, text, 26, 33, "name"),
	)

	m, err := NewMergeAdjacent("")
	require.NoError(t, err)
	got, err := m.Process(set, text)
	require.NoError(t, err)
	assert.True(t, got.Equal(set))
}

func TestMergeAdjacentCustomSeparator(t *testing.T) {
	text := "Jansen, Jan"
	set := annotation.NewSet(at(t, text, 0, 6, "name"), at(t, text, 8, 11, "name"))

	m, err := NewMergeAdjacent(`,?\s*`)
	require.NoError(t, err)
	got, err := m.Process(set, text)
	require.NoError(t, err)
	assert.Equal(t, "Jansen, Jan", got.Sorted()[0].Text())

	_, err = NewMergeAdjacent(`(`)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
}

func TestMergeAdjacentDropsTokensWhenOneSideLacksThem(t *testing.T) {
	text := "John Smith"
	set := annotation.NewSet(at(t, text, 0, 4, "name", annotation.WithTokens(0, 0)), at(t, text, 5, 10, "name"))

	m, err := NewMergeAdjacent("")
	require.NoError(t, err)
	got, err := m.Process(set, text)
	require.NoError(t, err)
	_, _, ok := got.Sorted()[0].Tokens()
	assert.False(t, ok)
}

func TestMergeAdjacentRejectsOverlap(t *testing.T) {
	text := "abcdef"
	set := annotation.NewSet(at(t, text, 0, 4, "x"), at(t, text, 2, 6, "x"))

	m, err := NewMergeAdjacent("")
	require.NoError(t, err)
	_, err = m.Process(set, text)
	assert.True(t, errors.Is(err, internalerr.ErrOverlap))
}

func TestProcessorFunc(t *testing.T) {
	var p Processor = ProcessorFunc(func(set annotation.Set, _ string) (annotation.Set, error) {
		return annotation.Set{}, nil
	})
	got, err := p.Process(annotation.NewSet(annotation.MustNew("a", 0, 1, "x")), "a")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}
