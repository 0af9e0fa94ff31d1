package handlers

import (
	"encoding/json"

	"lumen/sources"

	"github.com/gofiber/fiber/v2"
)

// SourceManager is the interface for the source manager
type SourceManager interface {
	Create(collection string, sourceType string, id string, rawConfig json.RawMessage) (sources.Source, error)
	Get(id string) (sources.Source, error)
	List(collection string) []sources.Source
	ListAll() []sources.Source
	Delete(id string) error
}

// CreateSourceRequest is the request body for creating a source
type CreateSourceRequest struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Type       string          `json:"type"`
	Config     json.RawMessage `json:"config"`
}

// ListSources returns all sources, optionally filtered by collection
// GET /api/v1/sources
func ListSources(c *fiber.Ctx) error {
	ctx := GetContext(c)
	if ctx.SourceManager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "source manager not available",
		})
	}

	var sourceList []sources.Source
	if collection := c.Query("collection"); collection != "" {
		if _, _, err := ctx.Store.GetCollection(collection); err != nil {
			return NotFound(c, ErrorCodeCollectionNotFound, err.Error())
		}
		sourceList = ctx.SourceManager.List(collection)
	} else {
		sourceList = ctx.SourceManager.ListAll()
	}

	result := make([]sources.SourceInfo, 0, len(sourceList))
	for _, src := range sourceList {
		result = append(result, sources.ToInfo(src))
	}

	return c.JSON(fiber.Map{
		"sources": result,
	})
}

// CreateSource creates a new source syncing into a collection
// POST /api/v1/sources
func CreateSource(c *fiber.Ctx) error {
	ctx := GetContext(c)
	if ctx.SourceManager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "source manager not available",
		})
	}

	var req CreateSourceRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, ErrorCodeInvalidRequestBody, "invalid request body")
	}

	if req.ID == "" {
		return BadRequest(c, ErrorCodeMissingParameter, "id is required")
	}
	if req.Collection == "" {
		return BadRequest(c, ErrorCodeMissingParameter, "collection is required")
	}
	if req.Type == "" {
		return BadRequest(c, ErrorCodeMissingParameter, "type is required")
	}

	if _, _, err := ctx.Store.GetCollection(req.Collection); err != nil {
		return NotFound(c, ErrorCodeCollectionNotFound, err.Error())
	}

	src, err := ctx.SourceManager.Create(req.Collection, req.Type, req.ID, req.Config)
	if err != nil {
		return BadRequestWithDetails(c, ErrorCodeInvalidParameter, "failed to create source", err.Error())
	}

	// Auto-start the source
	if err := src.Start(c.Context()); err != nil {
		return InternalErrorWithDetails(c, ErrorCodeInternalError, "source created but failed to start", err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(sources.ToInfo(src))
}

// GetSource returns details of a specific source
// GET /api/v1/sources/:sourceid
func GetSource(c *fiber.Ctx) error {
	ctx := GetContext(c)
	if ctx.SourceManager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "source manager not available",
		})
	}

	src, err := ctx.SourceManager.Get(c.Params("sourceid"))
	if err != nil {
		return NotFound(c, ErrorCodeDocumentNotFound, err.Error())
	}

	return c.JSON(sources.ToInfo(src))
}

// DeleteSource removes a source
// DELETE /api/v1/sources/:sourceid
func DeleteSource(c *fiber.Ctx) error {
	ctx := GetContext(c)
	if ctx.SourceManager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "source manager not available",
		})
	}

	if err := ctx.SourceManager.Delete(c.Params("sourceid")); err != nil {
		return NotFound(c, ErrorCodeDocumentNotFound, err.Error())
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PauseSource pauses a running source
// POST /api/v1/sources/:sourceid/pause
func PauseSource(c *fiber.Ctx) error {
	return transitionSource(c, func(src sources.Source) error { return src.Pause() })
}

// ResumeSource resumes a paused source
// POST /api/v1/sources/:sourceid/resume
func ResumeSource(c *fiber.Ctx) error {
	return transitionSource(c, func(src sources.Source) error { return src.Resume() })
}

// ResyncSource triggers a full resynchronization
// POST /api/v1/sources/:sourceid/resync
func ResyncSource(c *fiber.Ctx) error {
	return transitionSource(c, func(src sources.Source) error { return src.Resync() })
}

func transitionSource(c *fiber.Ctx, transition func(sources.Source) error) error {
	ctx := GetContext(c)
	if ctx.SourceManager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "source manager not available",
		})
	}

	src, err := ctx.SourceManager.Get(c.Params("sourceid"))
	if err != nil {
		return NotFound(c, ErrorCodeDocumentNotFound, err.Error())
	}

	if err := transition(src); err != nil {
		return BadRequestWithDetails(c, ErrorCodeInvalidParameter, "state transition failed", err.Error())
	}

	return c.JSON(sources.ToInfo(src))
}
