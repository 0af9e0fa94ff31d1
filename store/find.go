package store

import (
	"fmt"
	"math"
	"strings"
	"time"

	"lumen/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	// facetSize bounds how many buckets a facet breakdown returns.
	facetSize = 100

	// aggregationScanCap bounds how many matched documents an
	// aggregation pass reads. Aggregations over larger result sets are
	// computed from this sample.
	aggregationScanCap = 1000
)

// Find executes a composite query against a collection and returns one
// page of documents plus the requested facets, groups and aggregations.
func (s *CollectionStore) Find(collection string, params FindParams) (*FindResult, error) {
	index, config, err := s.GetCollection(collection)
	if err != nil {
		return nil, err
	}

	collLock := s.getCollectionLock(collection)
	collLock.RLock()
	defer collLock.RUnlock()

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 10
	}

	q := compileWhere(params.Where)

	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.From = (page - 1) * limit
	searchRequest.Size = limit
	if len(params.Fields) > 0 {
		searchRequest.Fields = params.Fields
	} else {
		searchRequest.Fields = []string{"*"}
	}
	if len(params.Sort) > 0 {
		searchRequest.SortBy(params.Sort)
	}
	for _, field := range params.Facets {
		searchRequest.AddFacet(field, bleve.NewFacetRequest(field, facetSize))
	}

	searchResult, err := index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	docs := make([]map[string]any, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		docs = append(docs, hitToDoc(hit.ID, hit.Fields, config.PrimaryKey))
	}

	if params.Depth > 0 {
		for _, doc := range docs {
			s.populate(doc, config, params.Depth)
		}
	}

	result := &FindResult{
		Docs:       docs,
		TotalDocs:  searchResult.Total,
		TotalPages: int(math.Ceil(float64(searchResult.Total) / float64(limit))),
	}

	if len(searchResult.Facets) > 0 {
		result.Facets = make(map[string][]models.FacetCount, len(searchResult.Facets))
		for name, facet := range searchResult.Facets {
			counts := make([]models.FacetCount, 0, facet.Terms.Len())
			for _, term := range facet.Terms.Terms() {
				counts = append(counts, models.FacetCount{Value: term.Term, Count: term.Count})
			}
			result.Facets[name] = counts
		}
	}

	if params.GroupBy != "" {
		result.Groups = groupDocs(docs, params.GroupBy)
	}

	if len(params.Aggregations) > 0 {
		aggs, err := s.aggregate(index, q, params.Aggregations)
		if err != nil {
			return nil, err
		}
		result.Aggregations = aggs
	}

	return result, nil
}

// FindByID returns a single document or ErrNotFound.
func (s *CollectionStore) FindByID(collection, id string) (map[string]any, error) {
	index, config, err := s.GetCollection(collection)
	if err != nil {
		return nil, err
	}

	collLock := s.getCollectionLock(collection)
	collLock.RLock()
	defer collLock.RUnlock()

	searchRequest := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	searchRequest.Fields = []string{"*"}

	searchResult, err := index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(searchResult.Hits) == 0 {
		return nil, ErrNotFound
	}

	hit := searchResult.Hits[0]
	return hitToDoc(hit.ID, hit.Fields, config.PrimaryKey), nil
}

// hitToDoc copies the stored fields of a hit into a document map,
// backfilling the primary key from the document ID when it was not
// among the retrieved fields.
func hitToDoc(id string, fields map[string]any, primaryKey string) map[string]any {
	doc := make(map[string]any, len(fields)+1)
	for name, value := range fields {
		doc[name] = value
	}
	if _, ok := doc[primaryKey]; !ok {
		doc[primaryKey] = id
	}
	return doc
}

// populate replaces bare relation IDs with the referenced documents,
// recursing depth levels. IDs whose target document does not exist are
// left as bare IDs.
func (s *CollectionStore) populate(doc map[string]any, config *models.CollectionConfig, depth int) {
	if depth <= 0 || len(config.Relations) == 0 {
		return
	}

	for field, target := range config.Relations {
		value, ok := doc[field]
		if !ok || value == nil {
			continue
		}

		switch v := value.(type) {
		case string:
			if sub := s.populateOne(target, v, depth); sub != nil {
				doc[field] = sub
			}
		case []any:
			populated := make([]any, len(v))
			for i, elem := range v {
				populated[i] = elem
				if id, ok := elem.(string); ok {
					if sub := s.populateOne(target, id, depth); sub != nil {
						populated[i] = sub
					}
				}
			}
			doc[field] = populated
		case []string:
			populated := make([]any, len(v))
			for i, id := range v {
				populated[i] = any(id)
				if sub := s.populateOne(target, id, depth); sub != nil {
					populated[i] = sub
				}
			}
			doc[field] = populated
		}
	}
}

func (s *CollectionStore) populateOne(collection, id string, depth int) map[string]any {
	sub, err := s.FindByID(collection, id)
	if err != nil {
		return nil
	}
	if _, targetConfig, err := s.GetCollection(collection); err == nil {
		s.populate(sub, targetConfig, depth-1)
	}
	return sub
}

// groupDocs buckets one page of documents by the string value of a
// field. Multi-valued fields contribute the document to every bucket.
func groupDocs(docs []map[string]any, field string) map[string][]map[string]any {
	groups := make(map[string][]map[string]any)
	for _, doc := range docs {
		for _, key := range groupKeys(doc[field]) {
			groups[key] = append(groups[key], doc)
		}
	}
	return groups
}

func groupKeys(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{""}
	case []any:
		keys := make([]string, 0, len(v))
		for _, elem := range v {
			keys = append(keys, fmt.Sprintf("%v", elem))
		}
		return keys
	case []string:
		return v
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

// aggregate runs a bounded scan over the matched set and computes the
// requested metrics.
func (s *CollectionStore) aggregate(index bleve.Index, q query.Query, aggs map[string]Aggregation) (map[string]float64, error) {
	fields := make([]string, 0, len(aggs))
	seen := make(map[string]bool, len(aggs))
	for _, agg := range aggs {
		if !seen[agg.Field] {
			seen[agg.Field] = true
			fields = append(fields, agg.Field)
		}
	}

	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = aggregationScanCap
	searchRequest.Fields = fields

	searchResult, err := index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("aggregation scan failed: %w", err)
	}

	type accumulator struct {
		min, max, sum float64
		count         int
	}
	accs := make(map[string]*accumulator, len(fields))
	for _, field := range fields {
		accs[field] = &accumulator{min: math.Inf(1), max: math.Inf(-1)}
	}

	for _, hit := range searchResult.Hits {
		for _, field := range fields {
			value, ok := toFloat(hit.Fields[field])
			if !ok {
				continue
			}
			acc := accs[field]
			acc.count++
			acc.sum += value
			if value < acc.min {
				acc.min = value
			}
			if value > acc.max {
				acc.max = value
			}
		}
	}

	results := make(map[string]float64, len(aggs))
	for name, agg := range aggs {
		acc := accs[agg.Field]
		switch agg.Op {
		case "count":
			results[name] = float64(acc.count)
		case "sum":
			results[name] = acc.sum
		case "min":
			if acc.count > 0 {
				results[name] = acc.min
			} else {
				results[name] = 0
			}
		case "max":
			if acc.count > 0 {
				results[name] = acc.max
			} else {
				results[name] = 0
			}
		case "avg":
			if acc.count > 0 {
				results[name] = acc.sum / float64(acc.count)
			} else {
				results[name] = 0
			}
		}
	}

	return results, nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// compileWhere turns a filter tree into a bleve query. A nil tree
// matches everything.
func compileWhere(w *Where) query.Query {
	if w == nil {
		return bleve.NewMatchAllQuery()
	}
	if q := compileNode(w); q != nil {
		return q
	}
	return bleve.NewMatchAllQuery()
}

func compileNode(w *Where) query.Query {
	if w == nil {
		return nil
	}

	if w.Cond != nil {
		return compileCondition(w.Cond)
	}

	if len(w.Or) > 0 {
		children := compileChildren(w.Or)
		if len(children) == 0 {
			return nil
		}
		return bleve.NewDisjunctionQuery(children...)
	}

	must := compileChildren(w.And)
	mustNot := compileChildren(w.Not)
	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}

	boolean := bleve.NewBooleanQuery()
	if len(must) > 0 {
		boolean.AddMust(must...)
	} else {
		boolean.AddMust(bleve.NewMatchAllQuery())
	}
	if len(mustNot) > 0 {
		boolean.AddMustNot(mustNot...)
	}
	return boolean
}

func compileChildren(nodes []*Where) []query.Query {
	queries := make([]query.Query, 0, len(nodes))
	for _, node := range nodes {
		if q := compileNode(node); q != nil {
			queries = append(queries, q)
		}
	}
	return queries
}

var inclusive = true

func compileCondition(c *Condition) query.Query {
	switch c.Op {
	case OpEquals:
		return equalsQuery(c.Field, c.Value)

	case OpIn:
		values := toValues(c.Value)
		if len(values) == 0 {
			return nil
		}
		children := make([]query.Query, 0, len(values))
		for _, v := range values {
			children = append(children, equalsQuery(c.Field, v))
		}
		return bleve.NewDisjunctionQuery(children...)

	case OpAll:
		values := toValues(c.Value)
		if len(values) == 0 {
			return nil
		}
		children := make([]query.Query, 0, len(values))
		for _, v := range values {
			children = append(children, equalsQuery(c.Field, v))
		}
		return bleve.NewConjunctionQuery(children...)

	case OpGreaterEq:
		switch v := c.Value.(type) {
		case time.Time:
			q := bleve.NewDateRangeInclusiveQuery(v, time.Time{}, &inclusive, &inclusive)
			q.SetField(c.Field)
			return q
		default:
			if f, ok := toFloat(c.Value); ok {
				q := bleve.NewNumericRangeInclusiveQuery(&f, nil, &inclusive, nil)
				q.SetField(c.Field)
				return q
			}
		}
		return nil

	case OpLessEq:
		switch v := c.Value.(type) {
		case time.Time:
			q := bleve.NewDateRangeInclusiveQuery(time.Time{}, v, &inclusive, &inclusive)
			q.SetField(c.Field)
			return q
		default:
			if f, ok := toFloat(c.Value); ok {
				q := bleve.NewNumericRangeInclusiveQuery(nil, &f, nil, &inclusive)
				q.SetField(c.Field)
				return q
			}
		}
		return nil

	case OpMatch:
		text, _ := c.Value.(string)
		if text == "" {
			return nil
		}
		q := bleve.NewMatchQuery(text)
		if c.Field != "" {
			q.SetField(c.Field)
		}
		if c.Fuzziness > 0 {
			q.SetFuzziness(c.Fuzziness)
		}
		return q

	case OpIDIn:
		ids := toStrings(c.Value)
		if len(ids) == 0 {
			// An empty ID set is a constraint that nothing satisfies,
			// not the absence of a constraint.
			return bleve.NewMatchNoneQuery()
		}
		return bleve.NewDocIDQuery(ids)
	}

	return nil
}

// equalsQuery builds an exact-match query appropriate for the value's
// type. Text fields are analyzed, so string equality matches on the
// lowercased token.
func equalsQuery(field string, value any) query.Query {
	switch v := value.(type) {
	case bool:
		q := bleve.NewBoolFieldQuery(v)
		q.SetField(field)
		return q
	case string:
		q := bleve.NewTermQuery(strings.ToLower(v))
		q.SetField(field)
		return q
	case time.Time:
		q := bleve.NewDateRangeInclusiveQuery(v, v, &inclusive, &inclusive)
		q.SetField(field)
		return q
	default:
		if f, ok := toFloat(value); ok {
			q := bleve.NewNumericRangeInclusiveQuery(&f, &f, &inclusive, &inclusive)
			q.SetField(field)
			return q
		}
		q := bleve.NewTermQuery(strings.ToLower(fmt.Sprintf("%v", value)))
		q.SetField(field)
		return q
	}
}

func toValues(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		values := make([]any, len(v))
		for i, s := range v {
			values[i] = s
		}
		return values
	case nil:
		return nil
	default:
		return []any{v}
	}
}

func toStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		strs := make([]string, 0, len(v))
		for _, elem := range v {
			strs = append(strs, fmt.Sprintf("%v", elem))
		}
		return strs
	case string:
		return []string{v}
	case nil:
		return nil
	default:
		return []string{fmt.Sprintf("%v", value)}
	}
}
