package lookup

import "sort"

// Set is a flat collection of folded lookup values with O(1) membership.
// Values may carry a Payload. It is read-only once handed to a matcher.
type Set struct {
	items map[string]*Payload
}

// NewSet creates a set holding the given values.
func NewSet(values ...string) *Set {
	s := &Set{items: make(map[string]*Payload, len(values))}
	s.Add(values...)
	return s
}

// Add inserts values without a payload. Empty strings are ignored, and a
// value already present keeps its payload.
func (s *Set) Add(values ...string) {
	for _, v := range values {
		if v == "" {
			continue
		}
		key := Fold(v)
		if _, ok := s.items[key]; !ok {
			s.items[key] = nil
		}
	}
}

// Put inserts v with payload p, replacing any payload v had.
func (s *Set) Put(v string, p *Payload) {
	if v == "" {
		return
	}
	s.items[Fold(v)] = p
}

// Remove deletes values, folding them first.
func (s *Set) Remove(values ...string) {
	for _, v := range values {
		delete(s.items, Fold(v))
	}
}

// Contains reports whether v is in the set.
func (s *Set) Contains(v string) bool {
	_, ok := s.items[Fold(v)]
	return ok
}

// ContainsFolded is Contains for a key that is already folded.
func (s *Set) ContainsFolded(key string) bool {
	_, ok := s.items[key]
	return ok
}

// Lookup reports whether v is in the set and returns its payload, which is
// nil for values added without one.
func (s *Set) Lookup(v string) (*Payload, bool) {
	p, ok := s.items[Fold(v)]
	return p, ok
}

// Len returns the number of distinct values.
func (s *Set) Len() int { return len(s.items) }

// Items returns the folded values in sorted order.
func (s *Set) Items() []string {
	out := make([]string, 0, len(s.items))
	for v := range s.items {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Union adds every value of other to s and returns s. Payloads from other
// replace those in s.
func (s *Set) Union(other *Set) *Set {
	for v, p := range other.items {
		if cur, ok := s.items[v]; ok && p == nil {
			p = cur
		}
		s.items[v] = p
	}
	return s
}
