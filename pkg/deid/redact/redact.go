// Package redact rewrites a document, replacing annotated spans with labels.
package redact

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/internalerr"
)

// Default label delimiters.
const (
	DefaultOpen  = "["
	DefaultClose = "]"
)

// Redactor produces the deidentified text for a document.
type Redactor interface {
	Redact(text string, set annotation.Set) (string, error)
}

// Simple replaces every annotation with Open + TAG-n + Close, where n counts
// distinct annotated texts per tag in set order, starting at 1. The same text
// under the same tag always gets the same label within a document.
type Simple struct {
	Open  string
	Close string

	// AllowOverlap skips annotations starting inside an earlier replaced span
	// instead of failing with ErrOverlap.
	AllowOverlap bool
}

// NewSimple returns a Simple redactor using the default delimiters.
func NewSimple() *Simple {
	return &Simple{Open: DefaultOpen, Close: DefaultClose}
}

type labelKey struct {
	tag  string
	text string
}

// Labels returns the label of every annotation in the set.
func (r *Simple) Labels(set annotation.Set) map[annotation.Annotation]string {
	counters := make(map[string]int)
	byKey := make(map[labelKey]string)
	out := make(map[annotation.Annotation]string, set.Len())

	for a := range set.All() {
		k := labelKey{tag: a.Tag(), text: a.Text()}
		label, ok := byKey[k]
		if !ok {
			counters[a.Tag()]++
			label = r.Open + strings.ToUpper(a.Tag()) + "-" + strconv.Itoa(counters[a.Tag()]) + r.Close
			byKey[k] = label
		}
		out[a] = label
	}
	return out
}

// Redact implements Redactor.
func (r *Simple) Redact(text string, set annotation.Set) (string, error) {
	if set.Len() == 0 {
		return text, nil
	}
	labels := r.Labels(set)

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for a := range set.All() {
		if a.End() > len(text) || text[a.Start():a.End()] != a.Text() {
			return "", fmt.Errorf("annotation %s does not match source text: %w", a, internalerr.ErrInvalidInput)
		}
		if a.Start() < cursor {
			if r.AllowOverlap {
				continue
			}
			return "", fmt.Errorf("annotation %s: %w", a, internalerr.ErrOverlap)
		}
		b.WriteString(text[cursor:a.Start()])
		b.WriteString(labels[a])
		cursor = a.End()
	}
	b.WriteString(text[cursor:])
	return b.String(), nil
}

// All ignores the annotations and replaces the whole document. It serves as
// the fail-safe output when a document could not be processed.
type All struct {
	Open  string
	Close string
}

// NewAll returns an All redactor using the default delimiters.
func NewAll() *All {
	return &All{Open: DefaultOpen, Close: DefaultClose}
}

// Redact implements Redactor.
func (r *All) Redact(string, annotation.Set) (string, error) {
	return r.Open + "REDACTED" + r.Close, nil
}
