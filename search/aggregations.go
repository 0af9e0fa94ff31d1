package search

import (
	"lumen/models"
	"lumen/store"
)

// BuildAggregations maps validated aggregation requests onto the
// store's aggregation spec, keyed by the original op:field token so
// response keys echo what the client asked for.
func BuildAggregations(aggs []models.Aggregation) map[string]store.Aggregation {
	if len(aggs) == 0 {
		return nil
	}

	built := make(map[string]store.Aggregation, len(aggs))
	for _, agg := range aggs {
		built[agg.Name] = store.Aggregation{Op: agg.Op, Field: agg.Field}
	}
	return built
}
