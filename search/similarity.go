package search

import (
	"fmt"
	"sort"

	"lumen/models"
	"lumen/store"

	"go.uber.org/zap"
)

// similarCandidateLimit caps how many candidates the similarity query
// retrieves before scoring.
const similarCandidateLimit = 10

// extractID normalizes one element of a categories/tags array. The
// element is either a bare ID string or a populated sub-document whose
// identity lives in its "id" field, depending on the depth the source
// document was fetched with.
func extractID(elem any) string {
	switch v := elem.(type) {
	case string:
		return v
	case map[string]any:
		switch id := v["id"].(type) {
		case string:
			return id
		case nil:
			return ""
		default:
			return fmt.Sprintf("%v", id)
		}
	default:
		return ""
	}
}

// ExtractIDs normalizes a categories/tags field value into the set of
// referenced IDs, whichever shape the elements arrived in.
func ExtractIDs(value any) []string {
	var elems []any
	switch v := value.(type) {
	case []any:
		elems = v
	case []string:
		ids := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				ids = append(ids, s)
			}
		}
		return ids
	case nil:
		return nil
	default:
		elems = []any{v}
	}

	ids := make([]string, 0, len(elems))
	for _, elem := range elems {
		if id := extractID(elem); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Similar finds documents related to a reference document by facet
// overlap: sharing a category weighs 2, sharing a tag weighs 1.
// Results are ordered best match first. The engine fails open: an
// unknown reference or a store error yields nil, never an error. A
// reference that legitimately has no related documents yields an
// empty non-nil slice.
func Similar(s *store.CollectionStore, collection, id string, logger *zap.Logger) []models.SimilarityResult {
	ref, err := s.FindByID(collection, id)
	if err != nil {
		logger.Debug("Similarity reference unavailable",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err))
		return nil
	}

	// A reference without categories or tags has nothing to match on:
	// that is a successful empty answer, not a failure, so the result is
	// empty rather than nil.
	refCategories := ExtractIDs(ref["categories"])
	refTags := ExtractIDs(ref["tags"])
	if len(refCategories) == 0 && len(refTags) == 0 {
		return []models.SimilarityResult{}
	}

	// Candidates share at least one category or one tag with the
	// reference; the reference itself is excluded.
	var shared []*store.Where
	if len(refCategories) > 0 {
		shared = append(shared, store.Cond("categories", store.OpIn, refCategories))
	}
	if len(refTags) > 0 {
		shared = append(shared, store.Cond("tags", store.OpIn, refTags))
	}

	where := &store.Where{
		And: []*store.Where{store.Or(shared...)},
		Not: []*store.Where{store.Cond("", store.OpIDIn, []string{id})},
	}

	_, config, err := s.GetCollection(collection)
	if err != nil {
		return nil
	}

	result, err := s.Find(collection, store.FindParams{
		Where: where,
		Page:  1,
		Limit: similarCandidateLimit,
	})
	if err != nil {
		logger.Warn("Similarity candidate query failed",
			zap.String("collection", collection),
			zap.Error(err))
		return nil
	}

	catSet := toSet(refCategories)
	tagSet := toSet(refTags)

	scored := make([]models.SimilarityResult, 0, len(result.Docs))
	for _, doc := range result.Docs {
		candidateID, _ := doc[config.PrimaryKey].(string)
		if candidateID == "" || candidateID == id {
			continue
		}

		score := 2*overlap(catSet, ExtractIDs(doc["categories"])) +
			overlap(tagSet, ExtractIDs(doc["tags"]))
		scored = append(scored, models.SimilarityResult{ID: candidateID, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func overlap(set map[string]bool, ids []string) int {
	seen := make(map[string]bool, len(ids))
	count := 0
	for _, id := range ids {
		if set[id] && !seen[id] {
			seen[id] = true
			count++
		}
	}
	return count
}
