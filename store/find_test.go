package store

import (
	"testing"

	"lumen/models"
)

func seedPosts(t *testing.T, s *CollectionStore, name string, relations map[string]string) {
	t.Helper()

	config := &models.CollectionConfig{
		Name:       name,
		PrimaryKey: "id",
		Relations:  relations,
	}
	if err := s.CreateCollection(config); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}

	docs := []map[string]any{
		{"id": "p1", "title": "go concurrency patterns", "status": "published", "price": 10.0, "rating": 4.5, "tags": []string{"go", "concurrency"}},
		{"id": "p2", "title": "rust ownership explained", "status": "published", "price": 20.0, "rating": 3.0, "tags": []string{"rust"}},
		{"id": "p3", "title": "go generics deep dive", "status": "draft", "price": 30.0, "rating": 5.0, "tags": []string{"go", "generics"}},
	}
	if err := s.AddDocumentsInternal(name, docs); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}
}

func TestFindFilters(t *testing.T) {
	s := Initialize(t.TempDir())
	seedPosts(t, s, "find_posts", nil)

	// Equality on an analyzed keyword field
	result, err := s.Find("find_posts", FindParams{
		Where: Cond("status", OpEquals, "published"),
		Page:  1,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.TotalDocs != 2 {
		t.Errorf("Expected 2 published docs, got %d", result.TotalDocs)
	}
	if result.TotalPages != 1 {
		t.Errorf("Expected 1 page, got %d", result.TotalPages)
	}

	// Inclusive numeric range boundaries
	result, err = s.Find("find_posts", FindParams{
		Where: And(
			Cond("price", OpGreaterEq, 10.0),
			Cond("price", OpLessEq, 20.0),
		),
		Page:  1,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.TotalDocs != 2 {
		t.Errorf("Expected 2 docs in price range, got %d", result.TotalDocs)
	}

	// Contains-all: both tags must be present
	result, err = s.Find("find_posts", FindParams{
		Where: Cond("tags", OpAll, []string{"go", "concurrency"}),
		Page:  1,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.TotalDocs != 1 {
		t.Errorf("Expected 1 doc with both tags, got %d", result.TotalDocs)
	}

	// Contains-any
	result, err = s.Find("find_posts", FindParams{
		Where: Cond("tags", OpIn, []string{"rust", "generics"}),
		Page:  1,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.TotalDocs != 2 {
		t.Errorf("Expected 2 docs with either tag, got %d", result.TotalDocs)
	}
}

func TestFindIDSetAndNegation(t *testing.T) {
	s := Initialize(t.TempDir())
	seedPosts(t, s, "find_ids", nil)

	// Restricting to an explicit ID set
	result, err := s.Find("find_ids", FindParams{
		Where: Cond("", OpIDIn, []string{"p1", "p3"}),
		Page:  1,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.TotalDocs != 2 {
		t.Errorf("Expected 2 docs in ID set, got %d", result.TotalDocs)
	}

	// An empty ID set matches nothing
	result, err = s.Find("find_ids", FindParams{
		Where: Cond("", OpIDIn, []string{}),
		Page:  1,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.TotalDocs != 0 {
		t.Errorf("Expected empty ID set to match nothing, got %d docs", result.TotalDocs)
	}

	// Negation excludes a document
	result, err = s.Find("find_ids", FindParams{
		Where: &Where{
			And: []*Where{Cond("status", OpEquals, "published")},
			Not: []*Where{Cond("", OpIDIn, []string{"p1"})},
		},
		Page:  1,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.TotalDocs != 1 {
		t.Errorf("Expected 1 doc after exclusion, got %d", result.TotalDocs)
	}
	if len(result.Docs) == 1 && result.Docs[0]["id"] != "p2" {
		t.Errorf("Expected p2, got %v", result.Docs[0]["id"])
	}
}

func TestFindSortAndPagination(t *testing.T) {
	s := Initialize(t.TempDir())
	seedPosts(t, s, "find_sort", nil)

	result, err := s.Find("find_sort", FindParams{
		Sort:  []string{"-price"},
		Page:  1,
		Limit: 2,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.TotalDocs != 3 {
		t.Errorf("Expected 3 total docs, got %d", result.TotalDocs)
	}
	if result.TotalPages != 2 {
		t.Errorf("Expected 2 pages, got %d", result.TotalPages)
	}
	if len(result.Docs) != 2 {
		t.Fatalf("Expected 2 docs on page 1, got %d", len(result.Docs))
	}
	if result.Docs[0]["id"] != "p3" {
		t.Errorf("Expected most expensive first, got %v", result.Docs[0]["id"])
	}

	result, err = s.Find("find_sort", FindParams{
		Sort:  []string{"-price"},
		Page:  2,
		Limit: 2,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(result.Docs) != 1 {
		t.Fatalf("Expected 1 doc on page 2, got %d", len(result.Docs))
	}
	if result.Docs[0]["id"] != "p1" {
		t.Errorf("Expected cheapest last, got %v", result.Docs[0]["id"])
	}
}

func TestFindFacetsGroupsAggregations(t *testing.T) {
	s := Initialize(t.TempDir())
	seedPosts(t, s, "find_facets", nil)

	result, err := s.Find("find_facets", FindParams{
		Facets:  []string{"status"},
		GroupBy: "status",
		Aggregations: map[string]Aggregation{
			"min:price":  {Op: "min", Field: "price"},
			"max:price":  {Op: "max", Field: "price"},
			"avg:rating": {Op: "avg", Field: "rating"},
			"sum:price":  {Op: "sum", Field: "price"},
		},
		Page:  1,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	buckets := result.Facets["status"]
	if len(buckets) != 2 {
		t.Fatalf("Expected 2 status buckets, got %d", len(buckets))
	}
	counts := map[string]int{}
	for _, b := range buckets {
		counts[b.Value] = b.Count
	}
	if counts["published"] != 2 || counts["draft"] != 1 {
		t.Errorf("Unexpected facet counts: %v", counts)
	}

	if len(result.Groups["published"]) != 2 || len(result.Groups["draft"]) != 1 {
		t.Errorf("Unexpected groups: %v", result.Groups)
	}

	if result.Aggregations["min:price"] != 10.0 {
		t.Errorf("Expected min 10, got %v", result.Aggregations["min:price"])
	}
	if result.Aggregations["max:price"] != 30.0 {
		t.Errorf("Expected max 30, got %v", result.Aggregations["max:price"])
	}
	if result.Aggregations["sum:price"] != 60.0 {
		t.Errorf("Expected sum 60, got %v", result.Aggregations["sum:price"])
	}
	avg := result.Aggregations["avg:rating"]
	if avg < 4.16 || avg > 4.17 {
		t.Errorf("Expected avg rating ~4.166, got %v", avg)
	}
}

func TestFindByIDAndPopulate(t *testing.T) {
	s := Initialize(t.TempDir())

	authors := &models.CollectionConfig{Name: "pop_authors", PrimaryKey: "id"}
	if err := s.CreateCollection(authors); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}
	if err := s.AddDocumentsInternal("pop_authors", []map[string]any{
		{"id": "a1", "name": "Morgan"},
	}); err != nil {
		t.Fatalf("Failed to add authors: %v", err)
	}

	posts := &models.CollectionConfig{
		Name:       "pop_posts",
		PrimaryKey: "id",
		Relations:  map[string]string{"author": "pop_authors"},
	}
	if err := s.CreateCollection(posts); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}
	if err := s.AddDocumentsInternal("pop_posts", []map[string]any{
		{"id": "p1", "title": "hello", "author": "a1"},
		{"id": "p2", "title": "orphan", "author": "missing"},
	}); err != nil {
		t.Fatalf("Failed to add posts: %v", err)
	}

	if _, err := s.FindByID("pop_posts", "nope"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	result, err := s.Find("pop_posts", FindParams{Page: 1, Limit: 10, Depth: 1})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	for _, doc := range result.Docs {
		switch doc["id"] {
		case "p1":
			author, ok := doc["author"].(map[string]any)
			if !ok {
				t.Fatalf("Expected populated author, got %T", doc["author"])
			}
			if author["name"] != "Morgan" {
				t.Errorf("Expected author Morgan, got %v", author["name"])
			}
		case "p2":
			// Missing targets stay bare IDs
			if doc["author"] != "missing" {
				t.Errorf("Expected bare ID for missing author, got %v", doc["author"])
			}
		}
	}

	// Depth 0 leaves relation fields untouched
	result, err = s.Find("pop_posts", FindParams{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	for _, doc := range result.Docs {
		if _, ok := doc["author"].(string); !ok {
			t.Errorf("Expected bare author ID at depth 0, got %T", doc["author"])
		}
	}
}
