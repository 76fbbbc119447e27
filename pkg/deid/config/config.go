// Package config reads YAML pipeline definitions and builds a
// pipeline.Deidentifier from them.
//
// Example:
//
//	tokenizers:
//	  spaces: whitespace
//	lookups:
//	  first_names:
//	    files: [first_names.txt]
//	    modifiers: [strip]
//	    min_length: 2
//	annotators:
//	  - name: first_names
//	    type: token_lookup
//	    tag: name
//	    lookup: first_names
//	  - name: dates
//	    type: regexp
//	    tag: date
//	    pattern: '\d{2}-\d{2}-\d{4}'
//	redactor:
//	  type: simple
//	fail_safe: true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/pipeline"
	"github.com/cognicore/deid/pkg/deid/tokenize"
)

// Annotator types.
const (
	TypeTokenLookup      = "token_lookup"
	TypeMultiTokenLookup = "multi_token_lookup"
	TypeRegexp           = "regexp"
	TypeSequence         = "sequence"
)

// Processor types.
const (
	TypeOverlapResolver = "overlap_resolver"
	TypeMergeAdjacent   = "merge_adjacent"
)

// Redactor types.
const (
	RedactorSimple = "simple"
	RedactorAll    = "all"
)

// Lookup value modifiers.
const (
	ModifierStrip     = "strip"
	ModifierASCIIFold = "ascii_fold"
)

// Reserved stage names in the built pipeline.
const (
	StageAnnotators = "annotators"
	StageRedactor   = "redactor"
)

// Config is a pipeline definition.
type Config struct {
	Tokenizers map[string]string `yaml:"tokenizers"`
	Lookups    map[string]Lookup `yaml:"lookups"`
	Annotators []Annotator       `yaml:"annotators"`
	Processors []Processor       `yaml:"processors"`
	Redactor   Redactor          `yaml:"redactor"`
	FailSafe   bool              `yaml:"fail_safe"`

	// dir resolves relative lookup file paths.
	dir string
}

// Lookup describes where a lookup list comes from and how its values are
// cleaned. Sources are combined.
type Lookup struct {
	Values    []string          `yaml:"values"`
	Files     []string          `yaml:"files"`
	Lexicon   string            `yaml:"lexicon"`
	StoreList string            `yaml:"store_list"`
	Modifiers []string          `yaml:"modifiers"`
	Replace   map[string]string `yaml:"replace"`
	MinLength int               `yaml:"min_length"`
	Exclude   []string          `yaml:"exclude"`

	// Expand adds modified variants of values with at least
	// ExpandMinLength characters, keeping the originals.
	Expand          []string `yaml:"expand"`
	ExpandMinLength int      `yaml:"expand_min_length"`
}

// Annotator configures one matcher stage.
type Annotator struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Tag      string `yaml:"tag"`
	Priority int    `yaml:"priority"`

	// token_lookup, multi_token_lookup
	Lookup      string   `yaml:"lookup"`
	Values      []string `yaml:"values"`
	Overlapping bool     `yaml:"overlapping"`

	// regexp
	Pattern  string   `yaml:"pattern"`
	Group    int      `yaml:"group"`
	PreMatch []string `yaml:"pre_match"`

	// sequence
	Sequence []map[string]any `yaml:"sequence"`
	Skip     []string         `yaml:"skip"`

	Tokenizer string `yaml:"tokenizer"`
	Enabled   *bool  `yaml:"enabled"`
	Before    string `yaml:"before"`
	After     string `yaml:"after"`
}

// Processor configures one annotation post-processing stage.
type Processor struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Separator string `yaml:"separator"`
	Enabled   *bool  `yaml:"enabled"`
	Before    string `yaml:"before"`
	After     string `yaml:"after"`
}

// Redactor configures the final stage.
type Redactor struct {
	Type         string  `yaml:"type"`
	Open         *string `yaml:"open"`
	Close        *string `yaml:"close"`
	AllowOverlap bool    `yaml:"allow_overlap"`
}

// Load reads and validates a YAML configuration file. Relative lookup paths
// resolve against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes and validates a YAML configuration. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path resolves p against the configuration's directory.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Validate checks everything that can be checked without loading lookup
// sources. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format+": %w", append(args, internalerr.ErrInvalidConfig)...))
	}

	for _, name := range slices.Sorted(maps.Keys(c.Tokenizers)) {
		kind := c.Tokenizers[name]
		if _, err := tokenize.ByName(kind); err != nil {
			fail("tokenizer %q: unknown kind %q", name, kind)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(c.Lookups)) {
		l := c.Lookups[name]
		for _, m := range append(append([]string{}, l.Modifiers...), l.Expand...) {
			if _, ok := modifiers[m]; !ok {
				fail("lookup %q: unknown modifier %q", name, m)
			}
		}
		if l.MinLength < 0 || l.ExpandMinLength < 0 {
			fail("lookup %q: negative length", name)
		}
	}

	names := map[string]bool{StageAnnotators: true, StageRedactor: true}
	unique := func(kind, name string) {
		switch {
		case name == "":
			fail("%s without name", kind)
		case names[name]:
			fail("%s %q: duplicate or reserved name", kind, name)
		}
		names[name] = true
	}

	for _, a := range c.Annotators {
		unique("annotator", a.Name)
		if a.Tag == "" {
			fail("annotator %q: missing tag", a.Name)
		}
		if a.Tokenizer != "" && a.Tokenizer != pipeline.DefaultTokenizer {
			if _, ok := c.Tokenizers[a.Tokenizer]; !ok {
				fail("annotator %q: unknown tokenizer %q", a.Name, a.Tokenizer)
			}
		}
		if a.Lookup != "" {
			if _, ok := c.Lookups[a.Lookup]; !ok {
				fail("annotator %q: unknown lookup %q", a.Name, a.Lookup)
			}
		}

		switch a.Type {
		case TypeTokenLookup, TypeMultiTokenLookup:
			if a.Lookup == "" && len(a.Values) == 0 {
				fail("annotator %q: needs lookup or values", a.Name)
			}
		case TypeRegexp:
			if a.Pattern == "" {
				fail("annotator %q: missing pattern", a.Name)
			}
		case TypeSequence:
			if len(a.Sequence) == 0 {
				fail("annotator %q: empty sequence", a.Name)
			}
		default:
			fail("annotator %q: unknown type %q", a.Name, a.Type)
		}
	}

	for _, p := range c.Processors {
		unique("processor", p.Name)
		if p.Type != TypeOverlapResolver && p.Type != TypeMergeAdjacent {
			fail("processor %q: unknown type %q", p.Name, p.Type)
		}
	}

	switch c.Redactor.Type {
	case "", RedactorSimple, RedactorAll:
	default:
		fail("redactor: unknown type %q", c.Redactor.Type)
	}

	return errors.Join(errs...)
}
