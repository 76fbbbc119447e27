package pipeline

import (
	"fmt"

	"github.com/cognicore/deid/pkg/deid/annotation"
	"github.com/cognicore/deid/pkg/deid/annotator"
	"github.com/cognicore/deid/pkg/deid/process"
	"github.com/cognicore/deid/pkg/deid/redact"
)

// Stage is one step of the pipeline.
type Stage interface {
	Process(doc *Document) error
}

// StageFunc adapts a function to Stage.
type StageFunc func(doc *Document) error

// Process implements Stage.
func (f StageFunc) Process(doc *Document) error { return f(doc) }

// Annotate runs a matcher over the sequence of the named tokenizer and adds
// its annotations to the document.
func Annotate(m annotator.Matcher, tokenizer string) Stage {
	return StageFunc(func(doc *Document) error {
		seq, err := doc.Tokens(tokenizer)
		if err != nil {
			return err
		}
		annos, err := m.Match(seq, doc.Text())
		if err != nil {
			return fmt.Errorf("match: %w", err)
		}
		doc.AddAnnotations(annos...)
		return nil
	})
}

// Apply replaces the document's annotations with the processor's output.
func Apply(p process.Processor) Stage {
	return StageFunc(func(doc *Document) error {
		set, err := p.Process(doc.Annotations(), doc.Text())
		if err != nil {
			return err
		}
		doc.SetAnnotations(set)
		return nil
	})
}

// Labeler is implemented by redactors that can report the label of each
// annotation.
type Labeler interface {
	Labels(set annotation.Set) map[annotation.Annotation]string
}

// Redact sets the document's deidentified text, and its labels when r is a
// Labeler.
func Redact(r redact.Redactor) Stage {
	return StageFunc(func(doc *Document) error {
		out, err := r.Redact(doc.Text(), doc.Annotations())
		if err != nil {
			return err
		}
		if l, ok := r.(Labeler); ok {
			doc.labels = l.Labels(doc.Annotations())
		}
		doc.setDeidentified(out)
		return nil
	})
}
