package formats

import "lumen/models"

// ResultEncoder serializes a search response into one output format
type ResultEncoder interface {
	Encode(response *models.SearchResponse) ([]byte, error)
}

// GetEncoder returns the encoder for the given format, defaulting to JSON
func GetEncoder(format string) ResultEncoder {
	switch format {
	case models.FormatCSV:
		return &CSVEncoder{}
	case models.FormatXML:
		return &XMLEncoder{}
	default:
		return &JSONEncoder{}
	}
}

// ContentType returns the response Content-Type for the given format
func ContentType(format string) string {
	switch format {
	case models.FormatCSV:
		return "text/csv"
	case models.FormatXML:
		return "application/xml"
	default:
		return "application/json"
	}
}
