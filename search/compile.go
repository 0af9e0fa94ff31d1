package search

import (
	"lumen/models"
	"lumen/store"
)

// Compile builds the store query for one search request. Clauses are
// conjoined in a fixed order: text match, categories, tags, price
// range, rating, status, date range, locale, then any ID-set
// constraints produced by the geo and similarity engines.
//
// The categories filter matches documents carrying ANY of the requested
// categories, while the tags filter requires ALL requested tags.
func Compile(req *models.SearchRequest, config *models.CollectionConfig, idSets [][]string) store.FindParams {
	var clauses []*store.Where

	if req.Query != "" {
		if clause := textClause(req, config); clause != nil {
			clauses = append(clauses, clause)
		}
	}

	if len(req.Categories) > 0 {
		clauses = append(clauses, store.Cond("categories", store.OpIn, req.Categories))
	}
	if len(req.Tags) > 0 {
		clauses = append(clauses, store.Cond("tags", store.OpAll, req.Tags))
	}

	if req.PriceMin != nil {
		clauses = append(clauses, store.Cond("price", store.OpGreaterEq, *req.PriceMin))
	}
	if req.PriceMax != nil {
		clauses = append(clauses, store.Cond("price", store.OpLessEq, *req.PriceMax))
	}
	if req.RatingMin != nil {
		clauses = append(clauses, store.Cond("rating", store.OpGreaterEq, *req.RatingMin))
	}

	if req.Status != "" {
		clauses = append(clauses, store.Cond("status", store.OpEquals, req.Status))
	}

	if req.DateFrom != nil {
		clauses = append(clauses, store.Cond("createdAt", store.OpGreaterEq, *req.DateFrom))
	}
	if req.DateTo != nil {
		clauses = append(clauses, store.Cond("createdAt", store.OpLessEq, *req.DateTo))
	}

	if req.Locale != "" {
		clauses = append(clauses, store.Cond("locale", store.OpEquals, req.Locale))
	}

	if len(idSets) > 0 {
		// Multiple refinements must all hold, so their ID sets are
		// intersected rather than letting the last one win.
		clauses = append(clauses, store.Cond("", store.OpIDIn, IntersectIDs(idSets)))
	}

	var where *store.Where
	if len(clauses) > 0 {
		where = store.And(clauses...)
	}

	return store.FindParams{
		Where:        where,
		Sort:         sortOrder(req.SortFields),
		GroupBy:      req.GroupBy,
		Facets:       req.Facets,
		Aggregations: BuildAggregations(req.Aggregations),
		Page:         req.Page,
		Limit:        req.Limit,
		Depth:        req.Depth,
		Fields:       req.Fields,
	}
}

// textClause builds the text-match part of the query for the requested
// search mode.
func textClause(req *models.SearchRequest, config *models.CollectionConfig) *store.Where {
	fuzziness := 0
	if req.Fuzzy {
		fuzziness = req.FuzzyDistance
	}

	match := func(field string) *store.Where {
		return &store.Where{Cond: &store.Condition{
			Field:     field,
			Op:        store.OpMatch,
			Value:     req.Query,
			Fuzziness: fuzziness,
		}}
	}

	switch req.SearchMode {
	case models.SearchModeFulltext:
		// Empty field matches against the composite text of the document
		return match("")
	case models.SearchModeField:
		return match(req.SearchField)
	default:
		fields := config.TextFields()
		children := make([]*store.Where, 0, len(fields))
		for _, field := range fields {
			children = append(children, match(field))
		}
		if len(children) == 1 {
			return children[0]
		}
		return store.Or(children...)
	}
}

// sortOrder translates sort entries into the store's convention, where
// a leading "-" means descending. Relevance order applies when no sort
// is requested.
func sortOrder(fields []models.SortField) []string {
	if len(fields) == 0 {
		return []string{"-_score"}
	}

	order := make([]string, 0, len(fields))
	for _, field := range fields {
		if field.Order == "desc" {
			order = append(order, "-"+field.Name)
		} else {
			order = append(order, field.Name)
		}
	}
	return order
}

// IntersectIDs intersects several ID sets, preserving the order of the
// first set. A single set passes through unchanged; disjoint sets
// produce an empty result, which the store treats as matching nothing.
func IntersectIDs(sets [][]string) []string {
	if len(sets) == 0 {
		return nil
	}

	result := sets[0]
	for _, set := range sets[1:] {
		members := make(map[string]bool, len(set))
		for _, id := range set {
			members[id] = true
		}

		kept := make([]string, 0, len(result))
		for _, id := range result {
			if members[id] {
				kept = append(kept, id)
			}
		}
		result = kept
	}

	if result == nil {
		result = []string{}
	}
	return result
}
