package formats

import (
	"lumen/models"

	"github.com/bytedance/sonic"
)

// JSONEncoder serializes the full search response as JSON
type JSONEncoder struct{}

func (e *JSONEncoder) Encode(response *models.SearchResponse) ([]byte, error) {
	return sonic.Marshal(response)
}

// JSONArrayParser decodes a plain JSON body holding either an array of
// documents or a single document.
type JSONArrayParser struct{}

func (p *JSONArrayParser) Parse(data []byte) ([]map[string]any, error) {
	var documents []map[string]any
	if err := sonic.Unmarshal(data, &documents); err == nil {
		return documents, nil
	}

	var single map[string]any
	if err := sonic.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []map[string]any{single}, nil
}
