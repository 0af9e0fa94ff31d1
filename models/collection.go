package models

// CollectionConfig represents the configuration for a content collection
type CollectionConfig struct {
	Name       string `json:"name"`
	PrimaryKey string `json:"primaryKey"`

	// SearchFields are the text fields matched by the search query.
	// Empty means the default content fields.
	SearchFields []string `json:"searchFields,omitempty"`

	// Relations maps a relationship field to the collection its IDs
	// point at. Fields listed here are populated into sub-documents
	// when a search requests depth > 0.
	Relations map[string]string `json:"relations,omitempty"`

	ExcludeAttributes []string `json:"excludeAttributes,omitempty"`
}

// DefaultSearchFields are matched when a collection declares none.
var DefaultSearchFields = []string{"title", "content", "description"}

// TextFields returns the fields the search query is matched against.
func (c *CollectionConfig) TextFields() []string {
	if len(c.SearchFields) > 0 {
		return c.SearchFields
	}
	return DefaultSearchFields
}
