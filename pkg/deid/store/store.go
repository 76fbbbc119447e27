// Package store defines persistence for lookup lists and redaction records.
package store

import (
	"context"
	"time"
)

// DefaultListLimit is used by ListRecords when limit <= 0.
const DefaultListLimit = 20

// Store persists named lookup lists and the outcome of redactions.
type Store interface {
	Close() error

	// Lookup lists
	UpsertLookupValues(ctx context.Context, list string, values []LookupValue) error
	LookupValues(ctx context.Context, list string) ([]LookupValue, error)
	LookupLists(ctx context.Context) ([]string, error)
	DeleteLookupList(ctx context.Context, list string) error

	// Redaction records
	SaveRecord(ctx context.Context, r Record) error
	GetRecord(ctx context.Context, id string) (Record, error)
	ListRecords(ctx context.Context, limit int) ([]Record, error)
}

// LookupValue is one entry of a lookup list. Tag and Priority are optional
// and override those of the annotator using the list; a nil Priority leaves
// the annotator's priority in place.
type LookupValue struct {
	Value    string
	Tag      string
	Priority *int
}

// Record is the audit trail of one redaction. It never holds the original
// text, only where spans were and what replaced them.
type Record struct {
	ID        string
	Source    string
	CreatedAt time.Time
	Redacted  string
	Spans     []Span
}

// Span is one replaced annotation.
type Span struct {
	Tag      string
	Start    int
	End      int
	Priority int
	Label    string
}
