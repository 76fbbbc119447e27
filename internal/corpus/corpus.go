// Package corpus reads and writes batches of documents as JSON lines.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Item is one input document.
type Item struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source,omitempty"`
	Text   string `json:"text"`
	HTML   bool   `json:"html,omitempty"`
}

// Result is one output document. It never carries the input text.
type Result struct {
	ID       string `json:"id"`
	Source   string `json:"source,omitempty"`
	Redacted string `json:"redacted"`
	Error    string `json:"error,omitempty"`
}

// LoadJSONL loads items from a JSONL file, skipping malformed lines with a
// warning.
func LoadJSONL(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var items []Item
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			log.Warn().Str("file", path).Int("line", i+1).Err(err).Msg("skipping malformed JSON")
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid items found in %s", path)
	}

	return items, nil
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL[T any](w io.Writer, values []T) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return bw.Flush()
}
