package pipeline

import (
	"fmt"

	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/tokenize"
)

// DefaultTokenizer is the tokenizer name used when a stage names none.
const DefaultTokenizer = "default"

// Document carries one text through the pipeline. A Document belongs to a
// single run and is not safe for concurrent use.
type Document struct {
	text       string
	tokenizers map[string]tokenize.Tokenizer
	sequences  map[string]*tokenize.Sequence
	metadata   map[string]any

	annotations  annotation.Set
	labels       map[annotation.Annotation]string
	deidentified string
	redacted     bool
}

// NewDocument creates a document. Token sequences are computed on first use,
// once per tokenizer name.
func NewDocument(text string, tokenizers map[string]tokenize.Tokenizer) *Document {
	return &Document{
		text:       text,
		tokenizers: tokenizers,
		sequences:  make(map[string]*tokenize.Sequence),
		metadata:   make(map[string]any),
	}
}

// Text returns the source text.
func (d *Document) Text() string { return d.text }

// Tokens returns the token sequence of the named tokenizer. An empty name
// selects DefaultTokenizer.
func (d *Document) Tokens(name string) (*tokenize.Sequence, error) {
	if name == "" {
		name = DefaultTokenizer
	}
	if seq, ok := d.sequences[name]; ok {
		return seq, nil
	}
	tok, ok := d.tokenizers[name]
	if !ok {
		return nil, fmt.Errorf("tokenizer %q: %w", name, internalerr.ErrNotFound)
	}
	seq, err := tok.Tokenize(d.text)
	if err != nil {
		return nil, fmt.Errorf("tokenize with %q: %w", name, err)
	}
	d.sequences[name] = seq
	return seq, nil
}

// SetMetadata stores a value under key. Each key can be set once.
func (d *Document) SetMetadata(key string, value any) error {
	if _, ok := d.metadata[key]; ok {
		return fmt.Errorf("metadata %q: %w", key, internalerr.ErrDuplicate)
	}
	d.metadata[key] = value
	return nil
}

// Metadata returns the value stored under key.
func (d *Document) Metadata(key string) (any, bool) {
	v, ok := d.metadata[key]
	return v, ok
}

// Annotations returns the current annotations.
func (d *Document) Annotations() annotation.Set { return d.annotations }

// AddAnnotations adds to the current annotations.
func (d *Document) AddAnnotations(annos ...annotation.Annotation) {
	d.annotations.Add(annos...)
}

// SetAnnotations replaces the current annotations.
func (d *Document) SetAnnotations(set annotation.Set) { d.annotations = set }

// Deidentified returns the redacted text; ok is false until a redactor ran.
func (d *Document) Deidentified() (text string, ok bool) {
	return d.deidentified, d.redacted
}

// Label returns the label the redactor used for a, if it reported labels.
func (d *Document) Label(a annotation.Annotation) (string, bool) {
	l, ok := d.labels[a]
	return l, ok
}

func (d *Document) setDeidentified(text string) {
	d.deidentified = text
	d.redacted = true
}
