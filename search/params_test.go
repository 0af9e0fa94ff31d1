package search

import (
	"testing"

	"lumen/models"
)

func fieldErrors(verr *ValidationError) map[string]bool {
	params := make(map[string]bool)
	if verr == nil {
		return params
	}
	for _, f := range verr.Fields {
		params[f.Param] = true
	}
	return params
}

func TestParseRequestDefaults(t *testing.T) {
	req, verr := ParseRequest(map[string]string{})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}

	if req.Page != 1 {
		t.Errorf("Expected default page 1, got %d", req.Page)
	}
	if req.Limit != 10 {
		t.Errorf("Expected default limit 10, got %d", req.Limit)
	}
	if req.SearchMode != models.SearchModeBasic {
		t.Errorf("Expected default searchMode basic, got %s", req.SearchMode)
	}
	if req.Status != models.StatusPublished {
		t.Errorf("Expected default status published, got %s", req.Status)
	}
	if req.Format != models.FormatJSON {
		t.Errorf("Expected default format json, got %s", req.Format)
	}
	if req.Depth != 1 {
		t.Errorf("Expected default depth 1, got %d", req.Depth)
	}
	if req.FuzzyDistance != 2 {
		t.Errorf("Expected default fuzzyDistance 2, got %d", req.FuzzyDistance)
	}
}

func TestParseRequestCollectsAllErrors(t *testing.T) {
	req, verr := ParseRequest(map[string]string{
		"page":          "0",
		"limit":         "101",
		"fuzzyDistance": "4",
		"depth":         "-1",
		"ratingMin":     "5.5",
		"format":        "yaml",
	})

	if req != nil {
		t.Fatal("Expected nil request on validation failure")
	}
	if verr == nil {
		t.Fatal("Expected validation error")
	}
	if len(verr.Fields) != 6 {
		t.Fatalf("Expected 6 field errors, got %d: %v", len(verr.Fields), verr.Fields)
	}

	params := fieldErrors(verr)
	for _, param := range []string{"page", "limit", "fuzzyDistance", "depth", "ratingMin", "format"} {
		if !params[param] {
			t.Errorf("Expected error for parameter %s", param)
		}
	}
}

func TestParseRequestRangeBoundaries(t *testing.T) {
	// Boundary values are valid
	req, verr := ParseRequest(map[string]string{
		"page":          "1",
		"limit":         "100",
		"fuzzyDistance": "3",
		"depth":         "0",
		"ratingMin":     "5",
	})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}
	if req.Limit != 100 || req.FuzzyDistance != 3 || req.Depth != 0 {
		t.Errorf("Boundary values not applied: %+v", req)
	}
	if req.RatingMin == nil || *req.RatingMin != 5 {
		t.Errorf("Expected ratingMin 5, got %v", req.RatingMin)
	}

	// One past each boundary is rejected
	invalid := map[string]string{
		"page":          "0",
		"limit":         "0",
		"fuzzyDistance": "0",
		"depth":         "4",
		"ratingMin":     "-0.1",
	}
	for param, value := range invalid {
		_, verr := ParseRequest(map[string]string{param: value})
		if verr == nil || !fieldErrors(verr)[param] {
			t.Errorf("Expected %s=%s to be rejected", param, value)
		}
	}
}

func TestParseRequestPriceRangeAcceptsAnyNumber(t *testing.T) {
	// Prices are only typed as numbers; negatives pass through
	req, verr := ParseRequest(map[string]string{
		"priceMin": "-5",
		"priceMax": "-1.5",
	})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}
	if req.PriceMin == nil || *req.PriceMin != -5 {
		t.Errorf("Expected priceMin -5, got %v", req.PriceMin)
	}
	if req.PriceMax == nil || *req.PriceMax != -1.5 {
		t.Errorf("Expected priceMax -1.5, got %v", req.PriceMax)
	}
}

func TestParseRequestNonNumericValues(t *testing.T) {
	_, verr := ParseRequest(map[string]string{
		"page":     "abc",
		"limit":    "ten",
		"priceMin": "cheap",
		"fuzzy":    "maybe",
	})
	if verr == nil {
		t.Fatal("Expected validation error")
	}

	params := fieldErrors(verr)
	for _, param := range []string{"page", "limit", "priceMin", "fuzzy"} {
		if !params[param] {
			t.Errorf("Expected error for parameter %s", param)
		}
	}
}

func TestParseRequestEmptyValuesAreOmitted(t *testing.T) {
	req, verr := ParseRequest(map[string]string{
		"limit": "",
		"page":  "",
	})
	if verr != nil {
		t.Fatalf("Empty values must not fail validation: %v", verr)
	}
	if req.Page != 1 || req.Limit != 10 {
		t.Errorf("Expected defaults for empty values, got page=%d limit=%d", req.Page, req.Limit)
	}
}

func TestParseRequestSortFields(t *testing.T) {
	req, verr := ParseRequest(map[string]string{
		"sortFields": "price:desc,title",
	})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}

	if len(req.SortFields) != 2 {
		t.Fatalf("Expected 2 sort fields, got %d", len(req.SortFields))
	}
	if req.SortFields[0].Name != "price" || req.SortFields[0].Order != "desc" {
		t.Errorf("Unexpected first sort field: %+v", req.SortFields[0])
	}
	if req.SortFields[1].Name != "title" || req.SortFields[1].Order != "asc" {
		t.Errorf("Unexpected second sort field: %+v", req.SortFields[1])
	}

	// "sort" is accepted as alias
	req, verr = ParseRequest(map[string]string{"sort": "rating:desc"})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}
	if len(req.SortFields) != 1 || req.SortFields[0].Name != "rating" {
		t.Errorf("Alias sort not applied: %+v", req.SortFields)
	}

	// Invalid order is rejected
	_, verr = ParseRequest(map[string]string{"sortFields": "price:sideways"})
	if verr == nil || !fieldErrors(verr)["sortFields"] {
		t.Error("Expected invalid sort order to be rejected")
	}
}

func TestParseRequestAggregations(t *testing.T) {
	req, verr := ParseRequest(map[string]string{
		"aggregations": "min:price,avg:rating",
	})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}

	if len(req.Aggregations) != 2 {
		t.Fatalf("Expected 2 aggregations, got %d", len(req.Aggregations))
	}
	if req.Aggregations[0].Name != "min:price" || req.Aggregations[0].Op != "min" || req.Aggregations[0].Field != "price" {
		t.Errorf("Unexpected aggregation: %+v", req.Aggregations[0])
	}

	// Unknown op and missing field are rejected
	for _, value := range []string{"median:price", "min", "min:"} {
		_, verr := ParseRequest(map[string]string{"aggregations": value})
		if verr == nil || !fieldErrors(verr)["aggregations"] {
			t.Errorf("Expected aggregations=%q to be rejected", value)
		}
	}
}

func TestParseRequestFieldsExcludeConflict(t *testing.T) {
	_, verr := ParseRequest(map[string]string{
		"fields":  "title,price",
		"exclude": "content",
	})
	if verr == nil || !fieldErrors(verr)["fields"] {
		t.Error("Expected fields+exclude combination to be rejected")
	}
}

func TestParseRequestSearchFieldRequired(t *testing.T) {
	_, verr := ParseRequest(map[string]string{
		"searchMode": "field",
	})
	if verr == nil || !fieldErrors(verr)["searchField"] {
		t.Error("Expected searchMode=field without searchField to be rejected")
	}

	req, verr := ParseRequest(map[string]string{
		"searchMode":  "field",
		"searchField": "title",
	})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}
	if req.SearchField != "title" {
		t.Errorf("Expected searchField title, got %s", req.SearchField)
	}
}

func TestParseRequestDates(t *testing.T) {
	req, verr := ParseRequest(map[string]string{
		"dateFrom": "2024-01-02",
		"dateTo":   "2024-06-01T12:30:00Z",
	})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}
	if req.DateFrom == nil || req.DateFrom.Year() != 2024 || req.DateFrom.Day() != 2 {
		t.Errorf("Unexpected dateFrom: %v", req.DateFrom)
	}
	if req.DateTo == nil || req.DateTo.Hour() != 12 {
		t.Errorf("Unexpected dateTo: %v", req.DateTo)
	}

	_, verr = ParseRequest(map[string]string{"dateFrom": "yesterday"})
	if verr == nil || !fieldErrors(verr)["dateFrom"] {
		t.Error("Expected malformed dateFrom to be rejected")
	}
}

func TestParseRequestNearIsNotValidated(t *testing.T) {
	// The geo engine handles malformed refinements leniently, so the
	// validator passes them through untouched.
	req, verr := ParseRequest(map[string]string{"near": "not-a-point"})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}
	if req.Near != "not-a-point" {
		t.Errorf("Expected near to pass through, got %q", req.Near)
	}
}

func TestParseRequestStatus(t *testing.T) {
	req, verr := ParseRequest(map[string]string{"status": "draft"})
	if verr != nil {
		t.Fatalf("Unexpected validation error: %v", verr)
	}
	if req.Status != models.StatusDraft {
		t.Errorf("Expected status draft, got %s", req.Status)
	}

	_, verr = ParseRequest(map[string]string{"status": "archived"})
	if verr == nil || !fieldErrors(verr)["status"] {
		t.Error("Expected unknown status to be rejected")
	}
}
