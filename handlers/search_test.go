package handlers

import (
	"io"
	"net/http/httptest"
	"testing"

	"lumen/config"
	"lumen/models"
	"lumen/store"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) (*fiber.App, *store.CollectionStore) {
	t.Helper()

	s := store.Initialize(t.TempDir())
	cfg := &config.Config{GeoCollection: "locations"}
	logger := zap.NewNop()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		SetContext(c, &HandlerContext{
			Store:  s,
			Config: cfg,
			Logger: logger,
		})
		return c.Next()
	})
	app.Get("/api/v1/:collection/search", Search)

	return app, s
}

func seedCollection(t *testing.T, s *store.CollectionStore, name string) {
	t.Helper()

	if err := s.CreateCollection(&models.CollectionConfig{Name: name, PrimaryKey: "id"}); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}

	docs := []map[string]any{
		{"id": "p1", "title": "go concurrency patterns", "content": "channels and goroutines", "status": "published", "price": 10.0, "tags": []string{"go"}},
		{"id": "p2", "title": "rust ownership explained", "content": "borrow checker", "status": "published", "price": 20.0, "tags": []string{"rust"}},
		{"id": "p3", "title": "unfinished draft", "content": "wip", "status": "draft", "price": 30.0},
	}
	if err := s.AddDocumentsInternal(name, docs); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}
}

func TestSearchUnknownCollection(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/no_such_collection/search", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}

	var body ErrorResponse
	data, _ := io.ReadAll(resp.Body)
	if err := sonic.Unmarshal(data, &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body.Code != ErrorCodeCollectionNotFound {
		t.Errorf("Expected COLLECTION_NOT_FOUND, got %s", body.Code)
	}
}

func TestSearchValidationFailure(t *testing.T) {
	app, s := newTestApp(t)
	seedCollection(t, s, "search_invalid")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search_invalid/search?limit=0&depth=9", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}

	var body ValidationErrorResponse
	data, _ := io.ReadAll(resp.Body)
	if err := sonic.Unmarshal(data, &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body.Code != ErrorCodeValidationFailed {
		t.Errorf("Expected VALIDATION_FAILED, got %s", body.Code)
	}
	if len(body.Fields) != 2 {
		t.Fatalf("Expected both invalid parameters reported, got %+v", body.Fields)
	}

	params := map[string]bool{}
	for _, f := range body.Fields {
		params[f.Param] = true
	}
	if !params["limit"] || !params["depth"] {
		t.Errorf("Expected limit and depth errors, got %+v", body.Fields)
	}
}

func TestSearchDefaultsToPublished(t *testing.T) {
	app, s := newTestApp(t)
	seedCollection(t, s, "search_posts")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search_posts/search", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	if got := resp.Header.Get("X-Total-Count"); got != "2" {
		t.Errorf("Expected X-Total-Count 2, got %q", got)
	}
	if got := resp.Header.Get("X-Total-Pages"); got != "1" {
		t.Errorf("Expected X-Total-Pages 1, got %q", got)
	}
	if got := resp.Header.Get(fiber.HeaderContentType); got != "application/json" {
		t.Errorf("Expected application/json, got %q", got)
	}

	var body models.SearchResponse
	data, _ := io.ReadAll(resp.Body)
	if err := sonic.Unmarshal(data, &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(body.Docs) != 2 {
		t.Fatalf("Expected 2 published docs, got %d", len(body.Docs))
	}
	for _, doc := range body.Docs {
		if doc["status"] != "published" {
			t.Errorf("Draft document leaked into default results: %+v", doc)
		}
	}
}

func TestSearchDraftStatus(t *testing.T) {
	app, s := newTestApp(t)
	seedCollection(t, s, "search_drafts")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search_drafts/search?status=draft", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Total-Count"); got != "1" {
		t.Errorf("Expected X-Total-Count 1, got %q", got)
	}
}

func TestSearchExclude(t *testing.T) {
	app, s := newTestApp(t)
	seedCollection(t, s, "search_exclude")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search_exclude/search?exclude=content", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var body models.SearchResponse
	data, _ := io.ReadAll(resp.Body)
	if err := sonic.Unmarshal(data, &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(body.Docs) == 0 {
		t.Fatal("Expected results")
	}
	for _, doc := range body.Docs {
		if _, ok := doc["content"]; ok {
			t.Errorf("Excluded attribute still present: %+v", doc)
		}
		if _, ok := doc["title"]; !ok {
			t.Errorf("Unrelated attribute dropped: %+v", doc)
		}
	}
}

func TestSearchGeoEmptyResultMatchesNothing(t *testing.T) {
	app, s := newTestApp(t)
	seedCollection(t, s, "search_geo")

	if err := s.CreateCollection(&models.CollectionConfig{Name: "locations", PrimaryKey: "id"}); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}
	sites := []map[string]any{
		{"id": "paris", "name": "Paris", "latitude": 48.8566, "longitude": 2.3522},
	}
	if err := s.AddDocumentsInternal("locations", sites); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}

	// A radius that covers no located entity constrains the query to
	// nothing rather than dropping the geo filter
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search_geo/search?near=0,0,1", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Total-Count"); got != "0" {
		t.Errorf("Expected X-Total-Count 0, got %q", got)
	}

	var body models.SearchResponse
	data, _ := io.ReadAll(resp.Body)
	if err := sonic.Unmarshal(data, &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(body.Docs) != 0 {
		t.Fatalf("Expected no documents within radius, got %d", len(body.Docs))
	}

	// A malformed refinement still fails open and applies no constraint
	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/search_geo/search?near=bogus", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Total-Count"); got != "2" {
		t.Errorf("Expected X-Total-Count 2 for malformed refinement, got %q", got)
	}
}

func TestSearchCSVFormat(t *testing.T) {
	app, s := newTestApp(t)
	seedCollection(t, s, "search_csv")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search_csv/search?format=csv", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get(fiber.HeaderContentType); got != "text/csv" {
		t.Errorf("Expected text/csv, got %q", got)
	}
}

func TestSearchTextQuery(t *testing.T) {
	app, s := newTestApp(t)
	seedCollection(t, s, "search_text")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search_text/search?query=concurrency", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var body models.SearchResponse
	data, _ := io.ReadAll(resp.Body)
	if err := sonic.Unmarshal(data, &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(body.Docs) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(body.Docs))
	}
	if body.Docs[0]["id"] != "p1" {
		t.Errorf("Expected p1, got %v", body.Docs[0]["id"])
	}
}
