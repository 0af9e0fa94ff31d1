package search

import (
	"testing"

	"lumen/models"
	"lumen/store"

	"go.uber.org/zap"
)

func TestExtractIDs(t *testing.T) {
	// Bare ID strings
	ids := ExtractIDs([]string{"c1", "c2", ""})
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("Unexpected IDs from []string: %v", ids)
	}

	// Populated sub-documents
	ids = ExtractIDs([]any{
		map[string]any{"id": "c1", "name": "Tech"},
		map[string]any{"id": "c2"},
	})
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("Unexpected IDs from populated shape: %v", ids)
	}

	// Mixed shapes in one array
	ids = ExtractIDs([]any{"c1", map[string]any{"id": "c2"}, map[string]any{"name": "no id"}, 42})
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("Unexpected IDs from mixed shape: %v", ids)
	}

	// Numeric IDs in sub-documents are stringified
	ids = ExtractIDs([]any{map[string]any{"id": float64(7)}})
	if len(ids) != 1 || ids[0] != "7" {
		t.Errorf("Unexpected IDs from numeric id: %v", ids)
	}

	if ids := ExtractIDs(nil); ids != nil {
		t.Errorf("Expected nil for nil value, got %v", ids)
	}
}

func seedSimilarityDocs(t *testing.T, s *store.CollectionStore, name string) {
	t.Helper()

	config := &models.CollectionConfig{Name: name, PrimaryKey: "id"}
	if err := s.CreateCollection(config); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}

	docs := []map[string]any{
		{"id": "ref", "title": "reference", "categories": []string{"c1", "c2"}, "tags": []string{"t1", "t2"}},
		// Shares both categories and one tag: score 2*2 + 1 = 5
		{"id": "close", "title": "close match", "categories": []string{"c1", "c2"}, "tags": []string{"t1"}},
		// Shares one category: score 2
		{"id": "category", "title": "category match", "categories": []string{"c1"}, "tags": []string{"other"}},
		// Shares one tag: score 1
		{"id": "tag", "title": "tag match", "categories": []string{"other"}, "tags": []string{"t2"}},
		// No overlap: never a candidate
		{"id": "unrelated", "title": "unrelated", "categories": []string{"x"}, "tags": []string{"y"}},
	}
	if err := s.AddDocumentsInternal(name, docs); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}
}

func TestSimilarScoring(t *testing.T) {
	s := store.Initialize(t.TempDir())
	logger := zap.NewNop()
	seedSimilarityDocs(t, s, "sim_posts")

	results := Similar(s, "sim_posts", "ref", logger)
	if len(results) != 3 {
		t.Fatalf("Expected 3 related documents, got %d: %+v", len(results), results)
	}

	for _, r := range results {
		if r.ID == "ref" {
			t.Error("Reference document must be excluded from its own results")
		}
		if r.ID == "unrelated" {
			t.Error("Document with no shared facets must not appear")
		}
	}

	if results[0].ID != "close" || results[0].Score != 5 {
		t.Errorf("Expected close with score 5 first, got %s with %d", results[0].ID, results[0].Score)
	}
	if results[1].Score < results[2].Score {
		t.Error("Expected results ordered by descending score")
	}

	scores := make(map[string]int)
	for _, r := range results {
		scores[r.ID] = r.Score
	}
	if scores["category"] != 2 {
		t.Errorf("Expected category overlap to score 2, got %d", scores["category"])
	}
	if scores["tag"] != 1 {
		t.Errorf("Expected tag overlap to score 1, got %d", scores["tag"])
	}
}

func TestSimilarFailsOpen(t *testing.T) {
	s := store.Initialize(t.TempDir())
	logger := zap.NewNop()

	// Unknown collection
	if results := Similar(s, "no_such_collection", "ref", logger); results != nil {
		t.Errorf("Expected nil for missing collection, got %+v", results)
	}

	config := &models.CollectionConfig{Name: "sim_empty", PrimaryKey: "id"}
	if err := s.CreateCollection(config); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}
	docs := []map[string]any{
		{"id": "plain", "title": "no facets at all"},
	}
	if err := s.AddDocumentsInternal("sim_empty", docs); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}

	// Unknown reference document
	if results := Similar(s, "sim_empty", "missing", logger); results != nil {
		t.Errorf("Expected nil for unknown reference, got %+v", results)
	}

	// A reference without categories or tags has nothing to match on:
	// a successful empty answer, not a failure
	if results := Similar(s, "sim_empty", "plain", logger); results == nil || len(results) != 0 {
		t.Errorf("Expected empty non-nil result for facet-less reference, got %+v", results)
	}
}
