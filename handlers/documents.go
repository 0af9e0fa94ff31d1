package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"lumen/formats"
	"lumen/models"
	"lumen/raft"
	"lumen/store"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AddDocuments handles POST /api/v1/:collection/documents
//
// The body is parsed per the format query parameter (jsoneachrow or
// msgpack). A missing collection is created on the fly with a primary
// key detected from the batch.
func AddDocuments(c *fiber.Ctx) error {
	collection := c.Params("collection")
	format := c.Query("format", "jsoneachrow")

	parser, err := formats.GetParser(format)
	if err != nil {
		return BadRequest(c, ErrorCodeInvalidFormat, fmt.Sprintf("unsupported format %q", format))
	}

	documents, err := parser.Parse(c.Body())
	if err != nil {
		return BadRequestWithDetails(c, ErrorCodeParseError, "failed to parse documents", err.Error())
	}
	if len(documents) == 0 {
		return BadRequest(c, ErrorCodeInvalidRequestBody, "no documents provided")
	}

	ctx := GetContext(c)

	_, config, err := ctx.Store.GetCollection(collection)
	if err != nil {
		// Auto-create the collection from the first batch
		primaryKey, detectErr := store.DetectPrimaryKey(documents)
		if detectErr != nil {
			return BadRequestWithDetails(c, ErrorCodeMissingParameter,
				"collection does not exist and primary key could not be detected", detectErr.Error())
		}

		config = &models.CollectionConfig{Name: collection, PrimaryKey: primaryKey}
		if createErr := applyCreateCollection(c, ctx, config); createErr != nil {
			return createErr
		}
	}

	// Fill in primary keys before replication so every replica indexes
	// the same IDs
	for _, doc := range documents {
		if id, ok := doc[config.PrimaryKey]; ok && id != nil {
			continue
		}
		uuidV7, err := uuid.NewV7()
		if err != nil {
			return InternalError(c, ErrorCodeUUIDGenerationFailed, "failed to generate document ID")
		}
		doc[config.PrimaryKey] = uuidV7.String()
	}

	if IsRaftEnabled(c) {
		if !IsLeader(c) {
			return forwardOrRedirect(c)
		}

		payload, err := sonic.Marshal(raft.AddDocumentsPayload{
			Collection: collection,
			Documents:  documents,
		})
		if err != nil {
			return InternalError(c, ErrorCodeSerializationFailed, "failed to serialize documents")
		}

		cmd := raft.Command{
			Type: raft.CommandAddDocuments,
			Data: json.RawMessage(payload),
		}
		if err := ctx.RaftNode.Apply(cmd, 10*time.Second); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeRaftApplyFailed, "failed to add documents", err.Error())
		}
	} else {
		if err := ctx.Store.AddDocumentsInternal(collection, documents); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeBatchOperationFailed, "failed to index documents", err.Error())
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"indexed": len(documents),
	})
}

// applyCreateCollection creates a collection through Raft when
// clustered, directly otherwise.
func applyCreateCollection(c *fiber.Ctx, ctx *HandlerContext, config *models.CollectionConfig) error {
	if IsRaftEnabled(c) {
		if !IsLeader(c) {
			return forwardOrRedirect(c)
		}

		payload, err := sonic.Marshal(config)
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
		return nil
	}

	if err := ctx.Store.CreateCollection(config); err != nil {
		return InternalErrorWithDetails(c, ErrorCodeCollectionOperationFailed, "failed to create collection", err.Error())
	}
	return nil
}

// DeleteDocuments handles DELETE /api/v1/:collection/documents
func DeleteDocuments(c *fiber.Ctx) error {
	collection := c.Params("collection")

	// Parse query parameters
	var params struct {
		Filter string   `query:"filter"`
		IDs    []string `query:"ids[]"`
	}
	if err := c.QueryParser(&params); err != nil {
		return BadRequestWithDetails(c, ErrorCodeInvalidParameter, "invalid query parameters", err.Error())
	}

	if len(params.IDs) == 0 && params.Filter == "" {
		return BadRequest(c, ErrorCodeMissingParameter, "must provide ids[] or filter parameter to delete documents")
	}

	ctx := GetContext(c)
	if _, _, err := ctx.Store.GetCollection(collection); err != nil {
		return NotFound(c, ErrorCodeCollectionNotFound, err.Error())
	}

	if IsRaftEnabled(c) {
		if !IsLeader(c) {
			return forwardOrRedirect(c)
		}

		payload, err := sonic.Marshal(raft.DeleteDocumentsPayload{
			Collection: collection,
			Filter:     params.Filter,
			IDs:        params.IDs,
		})
		if err != nil {
			return InternalError(c, ErrorCodeSerializationFailed, "failed to serialize command")
		}

		cmd := raft.Command{
			Type: raft.CommandDeleteDocuments,
			Data: json.RawMessage(payload),
		}
		if err := ctx.RaftNode.Apply(cmd, 10*time.Second); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeRaftApplyFailed, "failed to delete documents", err.Error())
		}
	} else {
		if err := ctx.Store.DeleteDocumentsInternal(collection, params.Filter, params.IDs); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeBatchOperationFailed, "failed to delete documents", err.Error())
		}
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}

// DeleteDocument handles DELETE /api/v1/:collection/documents/:documentid
func DeleteDocument(c *fiber.Ctx) error {
	collection := c.Params("collection")
	documentID := c.Params("documentid")

	ctx := GetContext(c)
	if _, _, err := ctx.Store.GetCollection(collection); err != nil {
		return NotFound(c, ErrorCodeCollectionNotFound, err.Error())
	}

	if IsRaftEnabled(c) {
		if !IsLeader(c) {
			return forwardOrRedirect(c)
		}

		payload, err := sonic.Marshal(raft.DeleteDocumentPayload{
			Collection: collection,
			DocumentID: documentID,
		})
		if err != nil {
			return InternalError(c, ErrorCodeSerializationFailed, "failed to serialize command")
		}

		cmd := raft.Command{
			Type: raft.CommandDeleteDocument,
			Data: json.RawMessage(payload),
		}
		if err := ctx.RaftNode.Apply(cmd, 10*time.Second); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeRaftApplyFailed, "failed to delete document", err.Error())
		}
	} else {
		if err := ctx.Store.DeleteDocumentInternal(collection, documentID); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeDocumentOperationFailed, "failed to delete document", err.Error())
		}
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}

// UpdateDocument handles PATCH /api/v1/:collection/documents/:documentid
func UpdateDocument(c *fiber.Ctx) error {
	collection := c.Params("collection")
	documentID := c.Params("documentid")

	ctx := GetContext(c)
	if _, _, err := ctx.Store.GetCollection(collection); err != nil {
		return NotFound(c, ErrorCodeCollectionNotFound, err.Error())
	}

	var updates map[string]any
	if err := c.BodyParser(&updates); err != nil {
		return BadRequest(c, ErrorCodeInvalidRequestBody, "invalid request body")
	}

	if IsRaftEnabled(c) {
		if !IsLeader(c) {
			return forwardOrRedirect(c)
		}

		payload, err := sonic.Marshal(raft.UpdateDocumentPayload{
			Collection: collection,
			DocumentID: documentID,
			Updates:    updates,
		})
		if err != nil {
			return InternalError(c, ErrorCodeSerializationFailed, "failed to serialize command")
		}

		cmd := raft.Command{
			Type: raft.CommandUpdateDocument,
			Data: json.RawMessage(payload),
		}
		if err := ctx.RaftNode.Apply(cmd, 10*time.Second); err != nil {
			return InternalErrorWithDetails(c, ErrorCodeRaftApplyFailed, "failed to update document", err.Error())
		}
	} else {
		if err := ctx.Store.UpdateDocumentInternal(collection, documentID, updates); err != nil {
			return NotFound(c, ErrorCodeDocumentNotFound, err.Error())
		}
	}

	updated, err := ctx.Store.FindByID(collection, documentID)
	if err != nil {
		return NotFound(c, ErrorCodeDocumentNotFound, "document not found")
	}
	return c.JSON(updated)
}

// GetDocument handles GET /api/v1/:collection/documents/:documentid
func GetDocument(c *fiber.Ctx) error {
	collection := c.Params("collection")
	documentID := c.Params("documentid")

	ctx := GetContext(c)
	if _, _, err := ctx.Store.GetCollection(collection); err != nil {
		return NotFound(c, ErrorCodeCollectionNotFound, err.Error())
	}

	doc, err := ctx.Store.FindByID(collection, documentID)
	if err != nil {
		return NotFound(c, ErrorCodeDocumentNotFound, "document not found")
	}
	return c.JSON(doc)
}
