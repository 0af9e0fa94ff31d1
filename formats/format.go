package formats

import (
	"errors"
	"fmt"
	"strings"
)

// DocumentParser decodes an ingestion body into documents.
type DocumentParser interface {
	Parse(data []byte) ([]map[string]any, error)
}

// ErrUnsupportedFormat is returned for format names no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported format")

// GetParser returns the parser for an ingestion format name.
func GetParser(format string) (DocumentParser, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return &JSONArrayParser{}, nil
	case "jsoneachrow":
		return &JSONEachRowParser{}, nil
	case "msgpack":
		return &MsgpackParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
