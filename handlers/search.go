package handlers

import (
	"strconv"

	"lumen/formats"
	"lumen/models"
	"lumen/search"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Search handles GET /api/v1/:collection/search
//
// The pipeline runs in a fixed order: validate parameters, resolve the
// geo and similarity refinements into ID sets, compile the composite
// query, execute it, then format the page. Validation failures report
// every offending parameter with a 400; execution failures return a
// generic 500 and the detail is only logged. The geo and similarity
// refinements fail open, so only the primary query can fail a request.
func Search(c *fiber.Ctx) error {
	collection := c.Params("collection")
	ctx := GetContext(c)

	_, config, err := ctx.Store.GetCollection(collection)
	if err != nil {
		return NotFound(c, ErrorCodeCollectionNotFound, err.Error())
	}

	req, verr := search.ParseRequest(c.Queries())
	if verr != nil {
		return ValidationFailed(c, verr)
	}

	// A nil refinement result means the engine failed open and no
	// constraint applies. An empty non-nil result is a successful answer
	// of "nothing", so the empty ID set is kept and the query matches
	// no documents.
	var idSets [][]string
	if req.Near != "" {
		if located := search.GeoSearch(ctx.Store, ctx.Config.GeoCollection, req.Near, ctx.Logger); located != nil {
			ids := make([]string, len(located))
			for i, hit := range located {
				ids[i] = hit.ID
			}
			idSets = append(idSets, ids)
		}
	}
	if req.Similar != "" {
		if related := search.Similar(ctx.Store, collection, req.Similar, ctx.Logger); related != nil {
			ids := make([]string, len(related))
			for i, hit := range related {
				ids[i] = hit.ID
			}
			idSets = append(idSets, ids)
		}
	}

	result, err := ctx.Store.Find(collection, search.Compile(req, config, idSets))
	if err != nil {
		ctx.Logger.Error("Search execution failed",
			zap.String("collection", collection),
			zap.Error(err))
		return InternalError(c, ErrorCodeSearchFailed, "search failed")
	}

	// Exclusions are applied after retrieval; the validator guarantees
	// fields and exclude never arrive together.
	if len(req.Exclude) > 0 {
		for _, doc := range result.Docs {
			for _, attr := range req.Exclude {
				delete(doc, attr)
			}
		}
	}

	response := &models.SearchResponse{
		Docs:         result.Docs,
		TotalDocs:    result.TotalDocs,
		TotalPages:   result.TotalPages,
		Page:         req.Page,
		Limit:        req.Limit,
		Facets:       result.Facets,
		Groups:       result.Groups,
		Aggregations: result.Aggregations,
	}

	body, err := formats.GetEncoder(req.Format).Encode(response)
	if err != nil {
		ctx.Logger.Error("Response encoding failed",
			zap.String("collection", collection),
			zap.String("format", req.Format),
			zap.Error(err))
		return InternalError(c, ErrorCodeSerializationFailed, "failed to encode response")
	}

	c.Set("X-Total-Count", strconv.FormatUint(result.TotalDocs, 10))
	c.Set("X-Total-Pages", strconv.Itoa(result.TotalPages))
	c.Set(fiber.HeaderContentType, formats.ContentType(req.Format))
	return c.Send(body)
}
