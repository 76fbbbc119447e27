package annotator

import (
	"fmt"
	"regexp"

	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/lookup"
	"github.com/cognicore/deid/pkg/deid/tokenize"
)

// Regexp annotates regular expression matches. Matches need not fall on
// token boundaries.
type Regexp struct {
	Base
	re    *regexp.Regexp
	group int

	// PreMatch, when set, skips documents in which no token is in the set.
	PreMatch *lookup.Set

	// Validate can reject individual matches; loc holds submatch indices.
	Validate func(text string, loc []int) bool
}

// NewRegexp compiles pattern and annotates capturing group group (0 for the
// whole match).
func NewRegexp(base Base, pattern string, group int) (*Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %v: %w", pattern, err, internalerr.ErrInvalidConfig)
	}
	if group < 0 || group > re.NumSubexp() {
		return nil, fmt.Errorf("pattern %q has no group %d: %w", pattern, group, internalerr.ErrInvalidConfig)
	}
	return &Regexp{Base: base, re: re, group: group}, nil
}

// Match implements Matcher.
func (m *Regexp) Match(seq *tokenize.Sequence, text string) ([]annotation.Annotation, error) {
	if m.PreMatch != nil && seq != nil && len(seq.Indices(m.PreMatch.Contains)) == 0 {
		return nil, nil
	}

	var out []annotation.Annotation
	for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2*m.group], loc[2*m.group+1]
		if start < 0 || start == end {
			continue
		}
		if m.Validate != nil && !m.Validate(text, loc) {
			continue
		}
		a, err := annotation.FromSource(text, start, end, m.Tag, annotation.WithPriority(m.Priority))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
