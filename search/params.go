package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lumen/models"
)

// FieldError describes one rejected query parameter.
type FieldError struct {
	Param   string `json:"param"`
	Message string `json:"message"`
}

// ValidationError aggregates every rejected parameter of a request so a
// client can fix all of them in one round trip.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	params := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		params = append(params, f.Param)
	}
	return fmt.Sprintf("invalid parameters: %s", strings.Join(params, ", "))
}

func (e *ValidationError) add(param, message string) {
	e.Fields = append(e.Fields, FieldError{Param: param, Message: message})
}

var validAggregationOps = map[string]bool{
	"min": true, "max": true, "avg": true, "sum": true, "count": true,
}

// ParseRequest validates raw query parameters into a SearchRequest.
// Validation is strict: a parameter that is present but invalid is
// always an error, and every offending parameter is reported. Defaults
// apply only to omitted parameters.
func ParseRequest(params map[string]string) (*models.SearchRequest, *ValidationError) {
	verr := &ValidationError{}

	req := &models.SearchRequest{
		Page:          1,
		Limit:         10,
		SearchMode:    models.SearchModeBasic,
		Status:        models.StatusPublished,
		Format:        models.FormatJSON,
		Depth:         1,
		FuzzyDistance: 2,
	}

	if v, ok := present(params, "page"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			verr.add("page", "must be an integer >= 1")
		} else {
			req.Page = n
		}
	}

	if v, ok := present(params, "limit"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			verr.add("limit", "must be an integer between 1 and 100")
		} else {
			req.Limit = n
		}
	}

	if v, ok := present(params, "query"); ok {
		req.Query = v
	}

	if v, ok := present(params, "searchMode"); ok {
		switch v {
		case models.SearchModeBasic, models.SearchModeFulltext, models.SearchModeField:
			req.SearchMode = v
		default:
			verr.add("searchMode", "must be one of basic, fulltext, field")
		}
	}

	if v, ok := present(params, "searchField"); ok {
		req.SearchField = v
	}
	if req.SearchMode == models.SearchModeField && req.SearchField == "" {
		verr.add("searchField", "required when searchMode is field")
	}

	if v, ok := present(params, "fields"); ok {
		req.Fields = splitList(v)
	}
	if v, ok := present(params, "exclude"); ok {
		req.Exclude = splitList(v)
	}
	if len(req.Fields) > 0 && len(req.Exclude) > 0 {
		verr.add("fields", "cannot be combined with exclude")
	}

	if v, ok := present(params, "status"); ok {
		switch v {
		case models.StatusDraft, models.StatusPublished:
			req.Status = v
		default:
			verr.add("status", "must be draft or published")
		}
	}

	if v, ok := present(params, "dateFrom"); ok {
		t, err := parseDate(v)
		if err != nil {
			verr.add("dateFrom", "must be an RFC3339 timestamp or YYYY-MM-DD date")
		} else {
			req.DateFrom = &t
		}
	}
	if v, ok := present(params, "dateTo"); ok {
		t, err := parseDate(v)
		if err != nil {
			verr.add("dateTo", "must be an RFC3339 timestamp or YYYY-MM-DD date")
		} else {
			req.DateTo = &t
		}
	}

	if v, ok := present(params, "locale"); ok {
		req.Locale = v
	}

	if v, ok := present(params, "categories"); ok {
		req.Categories = splitList(v)
	}
	if v, ok := present(params, "tags"); ok {
		req.Tags = splitList(v)
	}

	if v, ok := present(params, "priceMin"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			verr.add("priceMin", "must be a number")
		} else {
			req.PriceMin = &f
		}
	}
	if v, ok := present(params, "priceMax"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			verr.add("priceMax", "must be a number")
		} else {
			req.PriceMax = &f
		}
	}
	if v, ok := present(params, "ratingMin"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 5 {
			verr.add("ratingMin", "must be a number between 0 and 5")
		} else {
			req.RatingMin = &f
		}
	}

	sortParam := "sortFields"
	v, ok := present(params, "sortFields")
	if !ok {
		// Accepted alias
		v, ok = present(params, "sort")
		sortParam = "sort"
	}
	if ok {
		for _, entry := range splitList(v) {
			name, order, found := strings.Cut(entry, ":")
			if name == "" {
				verr.add(sortParam, fmt.Sprintf("invalid entry %q", entry))
				continue
			}
			if !found {
				order = "asc"
			}
			if order != "asc" && order != "desc" {
				verr.add(sortParam, fmt.Sprintf("order of %q must be asc or desc", name))
				continue
			}
			req.SortFields = append(req.SortFields, models.SortField{Name: name, Order: order})
		}
	}

	if v, ok := present(params, "groupBy"); ok {
		req.GroupBy = v
	}
	if v, ok := present(params, "facets"); ok {
		req.Facets = splitList(v)
	}

	if v, ok := present(params, "similar"); ok {
		req.Similar = v
	}

	if v, ok := present(params, "fuzzy"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			verr.add("fuzzy", "must be a boolean")
		} else {
			req.Fuzzy = b
		}
	}
	if v, ok := present(params, "fuzzyDistance"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 3 {
			verr.add("fuzzyDistance", "must be an integer between 1 and 3")
		} else {
			req.FuzzyDistance = n
		}
	}

	// Deliberately not validated: the geo engine parses this leniently
	// and treats anything malformed as the absence of a constraint.
	if v, ok := present(params, "near"); ok {
		req.Near = v
	}

	if v, ok := present(params, "aggregations"); ok {
		for _, entry := range splitList(v) {
			op, field, found := strings.Cut(entry, ":")
			if !found || field == "" || !validAggregationOps[op] {
				verr.add("aggregations", fmt.Sprintf("invalid entry %q, expected op:field with op one of min, max, avg, sum, count", entry))
				continue
			}
			req.Aggregations = append(req.Aggregations, models.Aggregation{Name: entry, Op: op, Field: field})
		}
	}

	if v, ok := present(params, "format"); ok {
		switch v {
		case models.FormatJSON, models.FormatCSV, models.FormatXML:
			req.Format = v
		default:
			verr.add("format", "must be one of json, csv, xml")
		}
	}

	if v, ok := present(params, "depth"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 3 {
			verr.add("depth", "must be an integer between 0 and 3")
		} else {
			req.Depth = n
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return req, nil
}

// present reports whether a parameter was supplied with a non-empty
// value. Empty values are treated as omitted.
func present(params map[string]string, name string) (string, bool) {
	v, ok := params[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// splitList splits a comma-separated parameter, dropping empty entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}
	return list
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
