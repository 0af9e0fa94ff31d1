package formats

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"

	"lumen/models"

	"github.com/bytedance/sonic"
)

// XMLEncoder serializes the search response as XML. Document fields
// become <field name="..."> elements so arbitrary field names never
// produce invalid element names.
type XMLEncoder struct{}

func (e *XMLEncoder) Encode(response *models.SearchResponse) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(xml.Header)
	buf.WriteString(`<results totalDocs="` + strconv.FormatUint(response.TotalDocs, 10) +
		`" totalPages="` + strconv.Itoa(response.TotalPages) +
		`" page="` + strconv.Itoa(response.Page) +
		`" limit="` + strconv.Itoa(response.Limit) + `">`)
	buf.WriteByte('\n')

	for _, doc := range response.Docs {
		buf.WriteString("  <doc>\n")

		fields := make([]string, 0, len(doc))
		for field := range doc {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			cell, err := xmlCell(doc[field])
			if err != nil {
				return nil, err
			}

			buf.WriteString(`    <field name="`)
			if err := xml.EscapeText(&buf, []byte(field)); err != nil {
				return nil, err
			}
			buf.WriteString(`">`)
			if err := xml.EscapeText(&buf, []byte(cell)); err != nil {
				return nil, err
			}
			buf.WriteString("</field>\n")
		}

		buf.WriteString("  </doc>\n")
	}

	buf.WriteString("</results>\n")
	return buf.Bytes(), nil
}

func xmlCell(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool, int, int64, uint64, float32, float64:
		return fmt.Sprintf("%v", v), nil
	default:
		encoded, err := sonic.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}
