package formats

import (
	"fmt"

	"github.com/hashicorp/go-msgpack/codec"
)

// MsgpackParser decodes MessagePack input. The body may be an array of
// documents or a single document.
type MsgpackParser struct{}

func (p *MsgpackParser) Parse(data []byte) ([]map[string]any, error) {
	var documents []map[string]any
	if err := codec.NewDecoderBytes(data, &codec.MsgpackHandle{}).Decode(&documents); err == nil {
		return documents, nil
	}

	var single map[string]any
	if err := codec.NewDecoderBytes(data, &codec.MsgpackHandle{}).Decode(&single); err != nil {
		return nil, fmt.Errorf("invalid MessagePack data: %w", err)
	}
	return []map[string]any{single}, nil
}
