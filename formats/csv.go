package formats

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"lumen/models"

	"github.com/bytedance/sonic"
)

// CSVEncoder serializes the document page as CSV. The header is the
// sorted union of all document fields; nested values are embedded as
// JSON.
type CSVEncoder struct{}

func (e *CSVEncoder) Encode(response *models.SearchResponse) ([]byte, error) {
	columns := columnSet(response.Docs)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, err
	}

	for _, doc := range response.Docs {
		row := make([]string, len(columns))
		for i, column := range columns {
			cell, err := csvCell(doc[column])
			if err != nil {
				return nil, err
			}
			row[i] = cell
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func columnSet(docs []map[string]any) []string {
	seen := make(map[string]bool)
	for _, doc := range docs {
		for field := range doc {
			seen[field] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for field := range seen {
		columns = append(columns, field)
	}
	sort.Strings(columns)
	return columns
}

func csvCell(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool, int, int64, uint64, float32, float64:
		return fmt.Sprintf("%v", v), nil
	default:
		// Arrays and sub-documents are embedded as JSON
		encoded, err := sonic.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}
