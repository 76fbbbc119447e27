package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu      sync.RWMutex
	lists   map[string]map[string]store.LookupValue
	records map[string]store.Record
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		lists:   make(map[string]map[string]store.LookupValue),
		records: make(map[string]store.Record),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertLookupValues adds values to a list, replacing the tag and priority of
// values already present.
func (s *Store) UpsertLookupValues(ctx context.Context, list string, values []store.LookupValue) error {
	if list == "" {
		return fmt.Errorf("upsert lookup values: empty list name: %w", internalerr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.lists[list]
	if !ok {
		m = make(map[string]store.LookupValue, len(values))
		s.lists[list] = m
	}
	for _, v := range values {
		v.Value = strings.TrimSpace(v.Value)
		if v.Value == "" {
			continue
		}
		v.Priority = copyPriority(v.Priority)
		m[v.Value] = v
	}
	return nil
}

func copyPriority(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// LookupValues returns the values of a list sorted by value.
func (s *Store) LookupValues(ctx context.Context, list string) ([]store.LookupValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.lists[list]
	if !ok {
		return nil, fmt.Errorf("lookup list %q: %w", list, internalerr.ErrNotFound)
	}
	out := make([]store.LookupValue, 0, len(m))
	for _, v := range m {
		v.Priority = copyPriority(v.Priority)
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

// LookupLists returns the list names in sorted order.
func (s *Store) LookupLists(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.lists))
	for name := range s.lists {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// DeleteLookupList removes a list and its values.
func (s *Store) DeleteLookupList(ctx context.Context, list string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[list]; !ok {
		return fmt.Errorf("lookup list %q: %w", list, internalerr.ErrNotFound)
	}
	delete(s.lists, list)
	return nil
}

// SaveRecord stores a record. IDs are unique.
func (s *Store) SaveRecord(ctx context.Context, r store.Record) error {
	if r.ID == "" {
		return fmt.Errorf("save record: empty id: %w", internalerr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; ok {
		return fmt.Errorf("record %s: %w", r.ID, internalerr.ErrDuplicate)
	}
	s.records[r.ID] = copyRecord(r)
	return nil
}

// GetRecord returns a record by ID.
func (s *Store) GetRecord(ctx context.Context, id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return store.Record{}, fmt.Errorf("record %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRecord(r), nil
}

// ListRecords returns up to limit records, newest first.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	out := make([]store.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i] = copyRecord(out[i])
	}
	return out, nil
}

func copyRecord(r store.Record) store.Record {
	r.Spans = slices.Clone(r.Spans)
	return r
}
