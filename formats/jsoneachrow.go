package formats

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// maxLineSize bounds a single jsoneachrow line (16 MiB).
const maxLineSize = 16 << 20

// JSONEachRowParser decodes JSON Lines input, one document per line.
// Blank lines are skipped.
type JSONEachRowParser struct{}

func (p *JSONEachRowParser) Parse(data []byte) ([]map[string]any, error) {
	var documents []map[string]any

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		var doc map[string]any
		if err := sonic.UnmarshalString(text, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", line, err)
		}
		documents = append(documents, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}

	return documents, nil
}
