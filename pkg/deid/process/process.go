// Package process post-processes annotation sets: resolving overlap between
// annotations from different matchers and merging adjacent spans.
package process

import (
	"github.com/cognicore/deid/pkg/deid/annotation"
)

// Processor transforms an annotation set for one document. Implementations
// must not mutate the input set.
type Processor interface {
	Process(set annotation.Set, text string) (annotation.Set, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(set annotation.Set, text string) (annotation.Set, error)

// Process implements Processor.
func (f ProcessorFunc) Process(set annotation.Set, text string) (annotation.Set, error) {
	return f(set, text)
}
