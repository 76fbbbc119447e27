// Package pipeline wires tokenizers, matchers, processors and a redactor into
// an ordered, configurable chain of named stages.
package pipeline

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/redact"
	"github.com/cognicore/deid/pkg/deid/tokenize"
)

// Deidentifier runs a stage group over documents. Once built it is read-only
// and safe for concurrent use; every call works on its own Document.
type Deidentifier struct {
	tokenizers map[string]tokenize.Tokenizer
	root       *Group
	failSafe   redact.Redactor
	log        zerolog.Logger
}

// Option configures a Deidentifier.
type Option func(*Deidentifier)

// WithTokenizer registers a tokenizer under name.
func WithTokenizer(name string, t tokenize.Tokenizer) Option {
	return func(d *Deidentifier) { d.tokenizers[name] = t }
}

// WithFailSafe sets the redactor whose output replaces the text of a document
// that failed to process.
func WithFailSafe(r redact.Redactor) Option {
	return func(d *Deidentifier) { d.failSafe = r }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Deidentifier) { d.log = l }
}

// New creates a Deidentifier running root. Without an explicit default
// tokenizer, DefaultTokenizer is a tokenize.WordBoundary.
func New(root *Group, opts ...Option) *Deidentifier {
	d := &Deidentifier{
		tokenizers: make(map[string]tokenize.Tokenizer),
		root:       root,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(d)
	}
	if _, ok := d.tokenizers[DefaultTokenizer]; !ok {
		d.tokenizers[DefaultTokenizer] = tokenize.WordBoundary{}
	}
	return d
}

// Stages returns the root group.
func (d *Deidentifier) Stages() *Group { return d.root }

// Tokenizer returns the tokenizer registered under name.
func (d *Deidentifier) Tokenizer(name string) (tokenize.Tokenizer, bool) {
	if name == "" {
		name = DefaultTokenizer
	}
	t, ok := d.tokenizers[name]
	return t, ok
}

type runConfig struct {
	opts     RunOptions
	metadata map[string]any
}

// RunOption configures a single Deidentify call.
type RunOption func(*runConfig)

// Enable runs only the named stages.
func Enable(names ...string) RunOption {
	return func(c *runConfig) { c.opts.Enabled = append(c.opts.Enabled, names...) }
}

// Disable skips the named stages.
func Disable(names ...string) RunOption {
	return func(c *runConfig) { c.opts.Disabled = append(c.opts.Disabled, names...) }
}

// Metadata attaches a value to the document before any stage runs.
func Metadata(key string, value any) RunOption {
	return func(c *runConfig) {
		if c.metadata == nil {
			c.metadata = make(map[string]any)
		}
		c.metadata[key] = value
	}
}

// Deidentify runs the pipeline over text. A stage error abandons the
// document. With a fail-safe configured the returned document then carries
// the fail-safe output as its deidentified text; the error is returned either
// way.
func (d *Deidentifier) Deidentify(text string, opts ...RunOption) (*Document, error) {
	var cfg runConfig
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.opts.validate(); err != nil {
		return nil, err
	}

	doc := NewDocument(text, d.tokenizers)
	for k, v := range cfg.metadata {
		if err := doc.SetMetadata(k, v); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	err := d.root.run(doc, selection{only: toSet(cfg.opts.Enabled), except: toSet(cfg.opts.Disabled)}, d.log)
	if err != nil {
		return d.fail(doc, err)
	}

	d.log.Debug().
		Int("chars", len(text)).
		Int("annotations", doc.Annotations().Len()).
		Strs("tags", doc.Annotations().Tags()).
		Dur("took", time.Since(started)).
		Msg("document deidentified")
	return doc, nil
}

func (d *Deidentifier) fail(doc *Document, err error) (*Document, error) {
	if d.failSafe == nil {
		d.log.Error().Err(err).Msg("document failed")
		return nil, err
	}

	out, ferr := d.failSafe.Redact(doc.Text(), annotation.Set{})
	if ferr != nil {
		d.log.Error().Err(ferr).AnErr("cause", err).Msg("fail-safe redactor failed")
		return nil, err
	}
	doc.SetAnnotations(annotation.Set{})
	doc.labels = nil
	doc.setDeidentified(out)
	d.log.Warn().Err(err).Msg("document failed, fail-safe output used")
	return doc, err
}
