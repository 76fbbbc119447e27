package annotation

import (
	"iter"
	"slices"
)

// Set is a collection of annotations, deduplicated by full equality and
// always read back in Compare order regardless of insertion order.
type Set struct {
	items map[Annotation]struct{}
}

// NewSet creates a set with the given annotations.
func NewSet(annos ...Annotation) Set {
	s := Set{items: make(map[Annotation]struct{}, len(annos))}
	s.Add(annos...)
	return s
}

// Add inserts annotations; duplicates are ignored.
func (s *Set) Add(annos ...Annotation) {
	if s.items == nil {
		s.items = make(map[Annotation]struct{}, len(annos))
	}
	for _, a := range annos {
		s.items[a] = struct{}{}
	}
}

// Remove deletes an annotation.
func (s *Set) Remove(a Annotation) {
	delete(s.items, a)
}

// Contains reports whether a is in the set.
func (s Set) Contains(a Annotation) bool {
	_, ok := s.items[a]
	return ok
}

// Len returns the number of annotations.
func (s Set) Len() int { return len(s.items) }

// Sorted returns the annotations in Compare order.
func (s Set) Sorted() []Annotation {
	out := make([]Annotation, 0, len(s.items))
	for a := range s.items {
		out = append(out, a)
	}
	slices.SortFunc(out, Compare)
	return out
}

// All iterates the annotations in Compare order.
func (s Set) All() iter.Seq[Annotation] {
	sorted := s.Sorted()
	return func(yield func(Annotation) bool) {
		for _, a := range sorted {
			if !yield(a) {
				return
			}
		}
	}
}

// HasOverlap reports whether any two annotations intersect.
func (s Set) HasOverlap() bool {
	sorted := s.Sorted()
	maxEnd := -1
	for _, a := range sorted {
		if a.start < maxEnd {
			return true
		}
		maxEnd = max(maxEnd, a.end)
	}
	return false
}

// Tags returns the distinct tags in sorted order.
func (s Set) Tags() []string {
	seen := make(map[string]struct{})
	for a := range s.items {
		seen[a.tag] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both sets hold the same annotations.
func (s Set) Equal(other Set) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for a := range s.items {
		if _, ok := other.items[a]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := Set{items: make(map[Annotation]struct{}, len(s.items))}
	for a := range s.items {
		out.items[a] = struct{}{}
	}
	return out
}
