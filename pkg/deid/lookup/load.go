package lookup

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadLines loads lookup values from a file with one value per line.
// Lines are stripped; blank lines and lines starting with # are skipped.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lookup file %s: %w", path, err)
	}

	var values []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		values = append(values, line)
	}
	return values, nil
}

// Entry is a lookup value with an optional tag and priority of its own. A nil
// Priority is unset, which is not the same as priority 0.
type Entry struct {
	Value    string `yaml:"value"`
	Tag      string `yaml:"tag,omitempty"`
	Priority *int   `yaml:"priority,omitempty"`
}

// Payload returns the entry's payload, or nil when it overrides nothing.
func (e Entry) Payload() *Payload {
	if e.Tag == "" && e.Priority == nil {
		return nil
	}
	return &Payload{Tag: e.Tag, Priority: e.Priority}
}

// Lexicon is a YAML lookup file.
//
// Expected format:
//
//	entries:
//	  - value: New York City
//	    tag: location
//	    priority: 5
//	  - value: pediatrician
type Lexicon struct {
	Entries []Entry `yaml:"entries"`
}

// LoadLexicon reads a YAML lexicon file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	return &lex, nil
}

// Values returns the bare values of the lexicon.
func (l *Lexicon) Values() []string {
	out := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		out = append(out, e.Value)
	}
	return out
}
