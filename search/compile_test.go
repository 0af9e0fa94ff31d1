package search

import (
	"reflect"
	"testing"

	"lumen/models"
	"lumen/store"
)

func TestCompileClauses(t *testing.T) {
	priceMin := 5.0
	priceMax := 20.0
	req := &models.SearchRequest{
		Page:       2,
		Limit:      25,
		Status:     models.StatusPublished,
		Categories: []string{"tech", "science"},
		Tags:       []string{"featured", "howto"},
		PriceMin:   &priceMin,
		PriceMax:   &priceMax,
		Locale:     "en",
		Depth:      1,
	}
	config := &models.CollectionConfig{Name: "posts", PrimaryKey: "id"}

	params := Compile(req, config, nil)

	if params.Page != 2 || params.Limit != 25 || params.Depth != 1 {
		t.Errorf("Paging not carried over: %+v", params)
	}

	clauses := params.Where.And
	if len(clauses) != 6 {
		t.Fatalf("Expected 6 clauses, got %d", len(clauses))
	}

	// Categories match ANY, tags require ALL
	if clauses[0].Cond.Field != "categories" || clauses[0].Cond.Op != store.OpIn {
		t.Errorf("Expected categories IN clause first, got %+v", clauses[0].Cond)
	}
	if clauses[1].Cond.Field != "tags" || clauses[1].Cond.Op != store.OpAll {
		t.Errorf("Expected tags ALL clause second, got %+v", clauses[1].Cond)
	}
	if clauses[2].Cond.Field != "price" || clauses[2].Cond.Op != store.OpGreaterEq {
		t.Errorf("Expected price lower bound, got %+v", clauses[2].Cond)
	}
	if clauses[3].Cond.Field != "price" || clauses[3].Cond.Op != store.OpLessEq {
		t.Errorf("Expected price upper bound, got %+v", clauses[3].Cond)
	}
	if clauses[4].Cond.Field != "status" || clauses[4].Cond.Value != models.StatusPublished {
		t.Errorf("Expected status clause, got %+v", clauses[4].Cond)
	}
	if clauses[5].Cond.Field != "locale" || clauses[5].Cond.Value != "en" {
		t.Errorf("Expected locale clause, got %+v", clauses[5].Cond)
	}
}

func TestCompileIDSets(t *testing.T) {
	req := &models.SearchRequest{Page: 1, Limit: 10}
	config := &models.CollectionConfig{Name: "posts", PrimaryKey: "id"}

	params := Compile(req, config, [][]string{
		{"a", "b", "c"},
		{"b", "c", "d"},
	})

	clauses := params.Where.And
	if len(clauses) != 1 {
		t.Fatalf("Expected a single ID clause, got %d clauses", len(clauses))
	}
	if clauses[0].Cond.Op != store.OpIDIn {
		t.Fatalf("Expected ID set clause, got %+v", clauses[0].Cond)
	}
	ids, ok := clauses[0].Cond.Value.([]string)
	if !ok || !reflect.DeepEqual(ids, []string{"b", "c"}) {
		t.Errorf("Expected intersected IDs [b c], got %v", clauses[0].Cond.Value)
	}
}

func TestTextClauseModes(t *testing.T) {
	config := &models.CollectionConfig{Name: "posts", PrimaryKey: "id"}

	// Basic mode searches every configured text field
	basic := textClause(&models.SearchRequest{Query: "go", SearchMode: models.SearchModeBasic}, config)
	if len(basic.Or) != len(models.DefaultSearchFields) {
		t.Fatalf("Expected %d OR branches, got %d", len(models.DefaultSearchFields), len(basic.Or))
	}

	// Fulltext mode matches the composite document text
	fulltext := textClause(&models.SearchRequest{Query: "go", SearchMode: models.SearchModeFulltext}, config)
	if fulltext.Cond == nil || fulltext.Cond.Field != "" {
		t.Errorf("Expected composite match, got %+v", fulltext)
	}

	// Field mode targets the named field
	field := textClause(&models.SearchRequest{
		Query:       "go",
		SearchMode:  models.SearchModeField,
		SearchField: "title",
	}, config)
	if field.Cond == nil || field.Cond.Field != "title" {
		t.Errorf("Expected field match on title, got %+v", field)
	}

	// Fuzziness only applies when requested
	fuzzy := textClause(&models.SearchRequest{
		Query:         "serch",
		SearchMode:    models.SearchModeFulltext,
		Fuzzy:         true,
		FuzzyDistance: 2,
	}, config)
	if fuzzy.Cond.Fuzziness != 2 {
		t.Errorf("Expected fuzziness 2, got %d", fuzzy.Cond.Fuzziness)
	}
	if fulltext.Cond.Fuzziness != 0 {
		t.Errorf("Expected no fuzziness by default, got %d", fulltext.Cond.Fuzziness)
	}

	// A single configured field needs no OR wrapper
	narrow := &models.CollectionConfig{Name: "posts", SearchFields: []string{"title"}}
	single := textClause(&models.SearchRequest{Query: "go", SearchMode: models.SearchModeBasic}, narrow)
	if single.Cond == nil || single.Cond.Field != "title" {
		t.Errorf("Expected direct match on single field, got %+v", single)
	}
}

func TestSortOrder(t *testing.T) {
	if order := sortOrder(nil); !reflect.DeepEqual(order, []string{"-_score"}) {
		t.Errorf("Expected relevance default, got %v", order)
	}

	order := sortOrder([]models.SortField{
		{Name: "price", Order: "desc"},
		{Name: "title", Order: "asc"},
	})
	if !reflect.DeepEqual(order, []string{"-price", "title"}) {
		t.Errorf("Unexpected sort order: %v", order)
	}
}

func TestIntersectIDs(t *testing.T) {
	if ids := IntersectIDs(nil); ids != nil {
		t.Errorf("Expected nil for no sets, got %v", ids)
	}

	// A single set passes through in order
	single := IntersectIDs([][]string{{"c", "a", "b"}})
	if !reflect.DeepEqual(single, []string{"c", "a", "b"}) {
		t.Errorf("Expected single set pass-through, got %v", single)
	}

	// Intersection preserves first-set order
	both := IntersectIDs([][]string{{"c", "a", "b"}, {"b", "c"}})
	if !reflect.DeepEqual(both, []string{"c", "b"}) {
		t.Errorf("Expected [c b], got %v", both)
	}

	// Disjoint sets yield an empty, non-nil result so the caller can
	// distinguish "matched nothing" from "no constraint"
	empty := IntersectIDs([][]string{{"a"}, {"b"}})
	if empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil result, got %v", empty)
	}
}

func TestBuildAggregations(t *testing.T) {
	if built := BuildAggregations(nil); built != nil {
		t.Errorf("Expected nil for no aggregations, got %v", built)
	}

	built := BuildAggregations([]models.Aggregation{
		{Name: "min:price", Op: "min", Field: "price"},
		{Name: "avg:rating", Op: "avg", Field: "rating"},
	})
	if len(built) != 2 {
		t.Fatalf("Expected 2 aggregations, got %d", len(built))
	}
	if agg := built["min:price"]; agg.Op != "min" || agg.Field != "price" {
		t.Errorf("Unexpected aggregation: %+v", agg)
	}
}
