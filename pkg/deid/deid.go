// Package deid is the entry point for deidentifying documents: it runs a
// configured pipeline, assigns every redaction an ID and keeps an audit
// record of it in a store.
package deid

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/cognicore/deid/internal/htmltext"
	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/pipeline"
	"github.com/cognicore/deid/pkg/deid/store"
)

// MetadataSource is the document metadata key holding the source name.
const MetadataSource = "source"

// Deid redacts documents and records the outcome
type Deid struct {
	pipeline *pipeline.Deidentifier
	store    store.Store
	log      zerolog.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// Options configures a Deid instance
type Options struct {
	Deidentifier *pipeline.Deidentifier
	// Store keeps redaction records. Optional.
	Store  store.Store
	Logger zerolog.Logger
}

// New creates a Deid instance with the given dependencies
func New(opts Options) *Deid {
	return &Deid{
		pipeline: opts.Deidentifier,
		store:    opts.Store,
		log:      opts.Logger,
		entropy:  ulid.Monotonic(rand.Reader, 0),
		now:      time.Now,
	}
}

// Close shuts down the store, if any
func (d *Deid) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

// Result is the outcome of one redaction
type Result struct {
	ID       string
	Source   string
	Redacted string
	Spans    []store.Span
	// FailSafe is set when processing failed and the fail-safe output was
	// used instead.
	FailSafe bool
}

// Redact deidentifies text. When the pipeline fails but produced fail-safe
// output, the result is returned and recorded together with the error.
func (d *Deid) Redact(ctx context.Context, source, text string) (Result, error) {
	doc, runErr := d.pipeline.Deidentify(text, pipeline.Metadata(MetadataSource, source))
	if doc == nil {
		return Result{}, runErr
	}

	redacted, ok := doc.Deidentified()
	if !ok {
		return Result{}, fmt.Errorf("pipeline has no redactor stage: %w", internalerr.ErrInvalidConfig)
	}

	res := Result{
		ID:       d.newID(),
		Source:   source,
		Redacted: redacted,
		FailSafe: runErr != nil,
	}
	for a := range doc.Annotations().All() {
		label, _ := doc.Label(a)
		res.Spans = append(res.Spans, store.Span{
			Tag:      a.Tag(),
			Start:    a.Start(),
			End:      a.End(),
			Priority: a.Priority(),
			Label:    label,
		})
	}

	if d.store != nil {
		rec := store.Record{
			ID:        res.ID,
			Source:    source,
			CreatedAt: d.now(),
			Redacted:  res.Redacted,
			Spans:     res.Spans,
		}
		if err := d.store.SaveRecord(ctx, rec); err != nil {
			return res, fmt.Errorf("save record %s: %w", res.ID, err)
		}
	}

	d.log.Info().
		Str("id", res.ID).
		Str("source", source).
		Int("spans", len(res.Spans)).
		Bool("fail_safe", res.FailSafe).
		Msg("document redacted")
	return res, runErr
}

// RedactHTML extracts the visible text of an HTML document and redacts it.
// Offsets in the result refer to the extracted text.
func (d *Deid) RedactHTML(ctx context.Context, source, doc string) (Result, error) {
	text, err := htmltext.Extract(strings.NewReader(doc))
	if err != nil {
		return Result{}, fmt.Errorf("extract html: %v: %w", err, internalerr.ErrInvalidInput)
	}
	return d.Redact(ctx, source, text)
}

// Record returns a stored redaction record
func (d *Deid) Record(ctx context.Context, id string) (store.Record, error) {
	if d.store == nil {
		return store.Record{}, internalerr.ErrStoreUnavailable
	}
	return d.store.GetRecord(ctx, id)
}

// Records returns the newest stored records
func (d *Deid) Records(ctx context.Context, limit int) ([]store.Record, error) {
	if d.store == nil {
		return nil, internalerr.ErrStoreUnavailable
	}
	return d.store.ListRecords(ctx, limit)
}

func (d *Deid) newID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(d.now()), d.entropy).String()
}
