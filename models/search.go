package models

import "time"

// Search modes for the query parameter
const (
	SearchModeBasic    = "basic"
	SearchModeFulltext = "fulltext"
	SearchModeField    = "field"
)

// Document statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Output formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXML  = "xml"
)

// SortField is one entry of a multi-key sort, primary key first.
type SortField struct {
	Name  string `json:"name"`
	Order string `json:"order"` // "asc" or "desc"
}

// Aggregation is one validated aggregation request, parsed from an
// "op:field" token.
type Aggregation struct {
	Name  string `json:"name"` // the original token, used as result key
	Op    string `json:"op"`   // min, max, avg, sum, count
	Field string `json:"field"`
}

// SearchRequest is the validated, defaulted representation of all
// search query parameters. It is built once per request and never
// mutated afterwards.
type SearchRequest struct {
	Page  int
	Limit int

	Query       string
	SearchMode  string
	SearchField string

	Fields  []string
	Exclude []string

	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Locale   string

	Categories []string
	Tags       []string

	PriceMin  *float64
	PriceMax  *float64
	RatingMin *float64

	SortFields []SortField
	GroupBy    string
	Facets     []string

	Similar string

	Fuzzy         bool
	FuzzyDistance int

	// Near is the raw "lat,lon,radius" refinement. It is deliberately
	// not validated here: the geo engine parses it leniently and a
	// malformed value means "no geo constraint", not an error.
	Near string

	Aggregations []Aggregation

	Format string
	Depth  int
}

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeoSearchResult is a located document within the requested radius.
type GeoSearchResult struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"` // kilometers
}

// SimilarityResult is a candidate document scored by facet overlap
// with the reference document.
type SimilarityResult struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// FacetCount is one bucket of a facet breakdown.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchResponse is the result set returned by the search endpoint.
type SearchResponse struct {
	Docs       []map[string]any `json:"docs"`
	TotalDocs  uint64           `json:"totalDocs"`
	TotalPages int              `json:"totalPages"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`

	Facets       map[string][]FacetCount     `json:"facets,omitempty"`
	Groups       map[string][]map[string]any `json:"groups,omitempty"`
	Aggregations map[string]float64          `json:"aggregations,omitempty"`
}
