package search

import (
	"math"
	"testing"

	"lumen/models"
	"lumen/store"

	"go.uber.org/zap"
)

func TestHaversine(t *testing.T) {
	paris := models.GeoPoint{Lat: 48.8566, Lon: 2.3522}
	london := models.GeoPoint{Lat: 51.5074, Lon: -0.1278}

	if d := Haversine(paris, paris); d != 0 {
		t.Errorf("Expected zero distance to self, got %f", d)
	}

	d := Haversine(paris, london)
	if math.Abs(d-344) > 5 {
		t.Errorf("Expected Paris-London ~344km, got %f", d)
	}

	// Symmetry
	if back := Haversine(london, paris); math.Abs(d-back) > 1e-9 {
		t.Errorf("Expected symmetric distance, got %f and %f", d, back)
	}
}

func TestParseNear(t *testing.T) {
	center, radius, ok := ParseNear("48.8566,2.3522,10")
	if !ok {
		t.Fatal("Expected valid refinement to parse")
	}
	if center.Lat != 48.8566 || center.Lon != 2.3522 || radius != 10 {
		t.Errorf("Unexpected parse result: %+v radius %f", center, radius)
	}

	// Whitespace is tolerated
	if _, _, ok := ParseNear(" 48.85 , 2.35 , 5 "); !ok {
		t.Error("Expected whitespace-padded refinement to parse")
	}

	// Anything that is not three numbers is not a constraint
	for _, raw := range []string{"", "48.85", "48.85,2.35", "48.85,2.35,10,extra", "a,b,c", "48.85,east,10"} {
		if _, _, ok := ParseNear(raw); ok {
			t.Errorf("Expected %q to be rejected", raw)
		}
	}
}

func TestGeoSearch(t *testing.T) {
	s := store.Initialize(t.TempDir())
	logger := zap.NewNop()

	config := &models.CollectionConfig{Name: "geo_sites", PrimaryKey: "id"}
	if err := s.CreateCollection(config); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}

	docs := []map[string]any{
		{"id": "paris", "name": "Paris", "latitude": 48.8566, "longitude": 2.3522},
		{"id": "versailles", "name": "Versailles", "latitude": 48.8049, "longitude": 2.1204},
		{"id": "london", "name": "London", "latitude": 51.5074, "longitude": -0.1278},
		{"id": "nowhere", "name": "No coordinates"},
	}
	if err := s.AddDocumentsInternal("geo_sites", docs); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}

	// 50km around central Paris covers Versailles but not London
	results := GeoSearch(s, "geo_sites", "48.8566,2.3522,50", logger)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].ID != "paris" {
		t.Errorf("Expected nearest result first, got %s", results[0].ID)
	}
	if results[1].ID != "versailles" {
		t.Errorf("Expected versailles second, got %s", results[1].ID)
	}
	if results[0].Distance > results[1].Distance {
		t.Error("Expected results ordered by ascending distance")
	}

	// Malformed refinement fails open
	if results := GeoSearch(s, "geo_sites", "not-a-point", logger); results != nil {
		t.Errorf("Expected nil for malformed refinement, got %+v", results)
	}

	// Missing collection fails open
	if results := GeoSearch(s, "no_such_collection", "48.8566,2.3522,50", logger); results != nil {
		t.Errorf("Expected nil for missing collection, got %+v", results)
	}

	// A radius covering nothing is a successful empty answer, kept
	// distinct from the nil fail-open cases above
	if results := GeoSearch(s, "geo_sites", "0,0,1", logger); results == nil || len(results) != 0 {
		t.Errorf("Expected empty non-nil result, got %+v", results)
	}
}
