package search

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"lumen/models"
	"lumen/store"

	"go.uber.org/zap"
)

const (
	earthRadiusKm = 6371

	// geoCandidateLimit bounds how many located documents a geo
	// refinement considers. Documents beyond it are never ranked.
	geoCandidateLimit = 100
)

// Haversine returns the great-circle distance between two points in
// kilometers.
func Haversine(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// ParseNear parses a "lat,lon,radius" refinement. It is deliberately
// lenient: anything that is not three numbers reports false, never an
// error, because a malformed refinement means the absence of a geo
// constraint rather than a rejected request.
func ParseNear(raw string) (center models.GeoPoint, radius float64, ok bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return models.GeoPoint{}, 0, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.GeoPoint{}, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.GeoPoint{}, 0, false
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return models.GeoPoint{}, 0, false
	}

	return models.GeoPoint{Lat: lat, Lon: lon}, r, true
}

// GeoSearch resolves a raw "lat,lon,radius" refinement against the
// located-entity collection and returns the documents within the
// radius, nearest first. It fails open: malformed input, a missing
// collection or a store error all yield nil. A radius that covers no
// document yields an empty non-nil slice, which callers treat as a
// constraint matching nothing.
func GeoSearch(s *store.CollectionStore, collection, raw string, logger *zap.Logger) []models.GeoSearchResult {
	center, radius, ok := ParseNear(raw)
	if !ok {
		logger.Debug("Ignoring malformed geo refinement", zap.String("near", raw))
		return nil
	}

	_, config, err := s.GetCollection(collection)
	if err != nil {
		logger.Warn("Geo collection unavailable", zap.String("collection", collection), zap.Error(err))
		return nil
	}

	result, err := s.Find(collection, store.FindParams{
		Page:  1,
		Limit: geoCandidateLimit,
	})
	if err != nil {
		logger.Warn("Geo candidate scan failed", zap.String("collection", collection), zap.Error(err))
		return nil
	}

	within := make([]models.GeoSearchResult, 0, len(result.Docs))
	for _, doc := range result.Docs {
		lat, latOK := docFloat(doc, "latitude")
		lon, lonOK := docFloat(doc, "longitude")
		if !latOK || !lonOK {
			continue
		}

		distance := Haversine(center, models.GeoPoint{Lat: lat, Lon: lon})
		if distance > radius {
			continue
		}

		id, _ := doc[config.PrimaryKey].(string)
		if id == "" {
			continue
		}
		within = append(within, models.GeoSearchResult{ID: id, Distance: distance})
	}

	sort.SliceStable(within, func(i, j int) bool {
		return within[i].Distance < within[j].Distance
	})

	return within
}

func docFloat(doc map[string]any, field string) (float64, bool) {
	switch v := doc[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
