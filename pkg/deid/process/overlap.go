package process

import (
	"github.com/cognicore/deid/pkg/deid/annotation"
)

// OverlapResolver removes overlapping annotations. It sweeps the set once in
// sort order keeping a single current winner. An annotation overlapping the
// winner replaces it when it has a higher priority, or the same priority and
// a longer span; otherwise it is dropped. Losers are discarded whole, never
// trimmed.
type OverlapResolver struct{}

// Process implements Processor.
func (OverlapResolver) Process(set annotation.Set, _ string) (annotation.Set, error) {
	sorted := set.Sorted()
	if len(sorted) < 2 {
		return set.Clone(), nil
	}

	out := annotation.NewSet()
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if !annotation.Overlaps(cur, next) {
			out.Add(cur)
			cur = next
			continue
		}
		if beats(next, cur) {
			cur = next
		}
	}
	out.Add(cur)
	return out, nil
}

// beats reports whether challenger displaces an overlapping incumbent. On a
// full tie the incumbent, which comes first in sort order, stays.
func beats(challenger, incumbent annotation.Annotation) bool {
	if challenger.Priority() != incumbent.Priority() {
		return challenger.Priority() > incumbent.Priority()
	}
	return challenger.Len() > incumbent.Len()
}
