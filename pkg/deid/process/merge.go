package process

import (
	"fmt"
	"regexp"

	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/internalerr"
)

// DefaultSeparator allows zero or one whitespace character between merged
// annotations.
const DefaultSeparator = `\s?`

// MergeAdjacent joins annotations with the same tag when the text between them
// matches the separator pattern in full. Merging chains: a merged annotation
// can merge again with the next one.
type MergeAdjacent struct {
	sep *regexp.Regexp
}

// NewMergeAdjacent compiles separator; an empty separator means
// DefaultSeparator.
func NewMergeAdjacent(separator string) (*MergeAdjacent, error) {
	if separator == "" {
		separator = DefaultSeparator
	}
	re, err := regexp.Compile(`^(?:` + separator + `)$`)
	if err != nil {
		return nil, fmt.Errorf("merge separator %q: %v: %w", separator, err, internalerr.ErrInvalidConfig)
	}
	return &MergeAdjacent{sep: re}, nil
}

// Process implements Processor. The input must be free of overlap.
func (m *MergeAdjacent) Process(set annotation.Set, text string) (annotation.Set, error) {
	if set.HasOverlap() {
		return annotation.Set{}, fmt.Errorf("merge adjacent: %w", internalerr.ErrOverlap)
	}
	sorted := set.Sorted()
	if len(sorted) < 2 {
		return set.Clone(), nil
	}

	out := annotation.NewSet()
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if !m.adjacent(cur, next, text) {
			out.Add(cur)
			cur = next
			continue
		}
		merged, err := merge(cur, next, text)
		if err != nil {
			return annotation.Set{}, err
		}
		cur = merged
	}
	out.Add(cur)
	return out, nil
}

func (m *MergeAdjacent) adjacent(left, right annotation.Annotation, text string) bool {
	if left.Tag() != right.Tag() || right.End() > len(text) {
		return false
	}
	return m.sep.MatchString(text[left.End():right.Start()])
}

func merge(left, right annotation.Annotation, text string) (annotation.Annotation, error) {
	opts := []annotation.Option{annotation.WithPriority(max(left.Priority(), right.Priority()))}
	lf, _, lok := left.Tokens()
	_, rl, rok := right.Tokens()
	if lok && rok {
		opts = append(opts, annotation.WithTokens(lf, rl))
	}
	return annotation.FromSource(text, left.Start(), right.End(), left.Tag(), opts...)
}
