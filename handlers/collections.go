package handlers

import (
	"encoding/json"
	"time"

	"lumen/models"
	"lumen/raft"
	"lumen/store"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

// ListCollections handles GET /api/v1/collections
func ListCollections(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	page := c.QueryInt("page", 0)

	// If page is provided, calculate offset from page
	if page > 0 {
		offset = (page - 1) * limit
	}

	s := store.GetStore()
	items := s.ListCollections(limit, offset)

	return c.JSON(fiber.Map{
		"items": items,
	})
}

// CreateCollection handles POST /api/v1/collections
func CreateCollection(c *fiber.Ctx) error {
	var config models.CollectionConfig
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&config); err != nil {
			return BadRequest(c, ErrorCodeInvalidRequestBody, "invalid request body")
		}
	}

	// Query parameters cover the simple case
	if config.Name == "" {
		config.Name = c.Query("name")
	}
	if config.PrimaryKey == "" {
		config.PrimaryKey = c.Query("primaryKey")
	}

	if config.Name == "" {
		return BadRequest(c, ErrorCodeMissingParameter, "name is required")
	}
	if config.PrimaryKey == "" {
		config.PrimaryKey = "id"
	}

	ctx := GetContext(c)

	// If Raft is enabled, apply command through consensus
	if IsRaftEnabled(c) {
		if !IsLeader(c) {
			return forwardOrRedirect(c)
		}

		payload, err := sonic.Marshal(&config)
		if err != nil {
			return InternalError(c, ErrorCodeSerializationFailed, "failed to serialize collection config")
		}

		cmd := raft.Command{
			Type: raft.CommandCreateCollection,
			Data: json.RawMessage(payload),
		}
		if err := ctx.RaftNode.Apply(cmd, 10*time.Second); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeRaftApplyFailed, "failed to create collection", err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(config)
	}

	// Single-node mode: apply directly
	if err := ctx.Store.CreateCollection(&config); err != nil {
		return Conflict(c, ErrorCodeResourceAlreadyExists, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(config)
}

// DeleteCollection handles DELETE /api/v1/collections/:name
func DeleteCollection(c *fiber.Ctx) error {
	name := c.Params("name")

	ctx := GetContext(c)

	// If Raft is enabled, apply command through consensus
	if IsRaftEnabled(c) {
		if !IsLeader(c) {
			return forwardOrRedirect(c)
		}

		payload, err := sonic.Marshal(raft.DeleteCollectionPayload{Name: name})
		if err != nil {
			return InternalError(c, ErrorCodeSerializationFailed, "failed to serialize command")
		}

		cmd := raft.Command{
			Type: raft.CommandDeleteCollection,
			Data: json.RawMessage(payload),
		}
		if err := ctx.RaftNode.Apply(cmd, 10*time.Second); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeRaftApplyFailed, "failed to delete collection", err.Error())
		}

		return c.Status(fiber.StatusNoContent).Send(nil)
	}

	// Single-node mode: apply directly
	if err := ctx.Store.DeleteCollection(name); err != nil {
		return NotFound(c, ErrorCodeCollectionNotFound, err.Error())
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}

// UpdateCollection handles PATCH /api/v1/collections/:name
func UpdateCollection(c *fiber.Ctx) error {
	name := c.Params("name")

	var config models.CollectionConfig
	if err := c.BodyParser(&config); err != nil {
		return BadRequest(c, ErrorCodeInvalidRequestBody, "invalid request body")
	}
	config.Name = name

	ctx := GetContext(c)

	// If Raft is enabled, apply command through consensus
	if IsRaftEnabled(c) {
		if !IsLeader(c) {
			return forwardOrRedirect(c)
		}

		payload, err := sonic.Marshal(&config)
		if err != nil {
			return InternalError(c, ErrorCodeSerializationFailed, "failed to serialize collection config")
		}

		cmd := raft.Command{
			Type: raft.CommandUpdateCollection,
			Data: json.RawMessage(payload),
		}
		if err := ctx.RaftNode.Apply(cmd, 10*time.Second); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeRaftApplyFailed, "failed to update collection", err.Error())
		}

		return c.JSON(config)
	}

	// Single-node mode: apply directly
	if err := ctx.Store.UpdateCollection(name, &config); err != nil {
		return NotFound(c, ErrorCodeCollectionNotFound, err.Error())
	}

	return c.JSON(config)
}
