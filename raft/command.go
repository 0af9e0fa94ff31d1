package raft

import "encoding/json"

// CommandType represents the type of operation to be replicated
type CommandType string

const (
	// Collection operations
	CommandCreateCollection CommandType = "create_collection"
	CommandDeleteCollection CommandType = "delete_collection"
	CommandUpdateCollection CommandType = "update_collection"

	// Document operations
	CommandAddDocuments    CommandType = "add_documents"
	CommandDeleteDocument  CommandType = "delete_document"
	CommandDeleteDocuments CommandType = "delete_documents"
	CommandUpdateDocument  CommandType = "update_document"
)

// Command represents a replicated operation that flows through Raft consensus
type Command struct {
	Type CommandType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Collection operation payloads
//
// Create and update commands carry the full models.CollectionConfig as
// their payload, so they have no dedicated payload type here.

// DeleteCollectionPayload contains data for deleting a collection
type DeleteCollectionPayload struct {
	Name string `json:"name"`
}

// Document operation payloads

// AddDocumentsPayload contains data for adding documents to a collection
type AddDocumentsPayload struct {
	Collection string           `json:"collection"`
	Documents  []map[string]any `json:"documents"`
}

// DeleteDocumentPayload contains data for deleting a single document
type DeleteDocumentPayload struct {
	Collection string `json:"collection"`
	DocumentID string `json:"document_id"`
}

// DeleteDocumentsPayload contains data for deleting multiple documents
type DeleteDocumentsPayload struct {
	Collection string   `json:"collection"`
	Filter     string   `json:"filter"`
	IDs        []string `json:"ids"`
}

// UpdateDocumentPayload contains data for updating a document
type UpdateDocumentPayload struct {
	Collection string         `json:"collection"`
	DocumentID string         `json:"document_id"`
	Updates    map[string]any `json:"updates"`
}
