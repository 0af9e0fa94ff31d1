package raft

import (
	"encoding/json"
	"fmt"
	"io"

	"lumen/models"
	"lumen/store"

	"github.com/hashicorp/raft"
)

// FSM implements the Raft finite state machine interface
// All state mutations flow through Apply() to ensure consistency
type FSM struct {
	store *store.CollectionStore
}

// NewFSM creates a new FSM with the given store
func NewFSM(store *store.CollectionStore) *FSM {
	return &FSM{store: store}
}

// Apply applies a Raft log entry to the FSM
// This is called by Raft when a command has been committed
func (f *FSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	switch cmd.Type {
	case CommandCreateCollection:
		return f.applyCreateCollection(cmd.Data)
	case CommandDeleteCollection:
		return f.applyDeleteCollection(cmd.Data)
	case CommandUpdateCollection:
		return f.applyUpdateCollection(cmd.Data)
	case CommandAddDocuments:
		return f.applyAddDocuments(cmd.Data)
	case CommandDeleteDocument:
		return f.applyDeleteDocument(cmd.Data)
	case CommandDeleteDocuments:
		return f.applyDeleteDocuments(cmd.Data)
	case CommandUpdateDocument:
		return f.applyUpdateDocument(cmd.Data)
	default:
		return fmt.Errorf("unknown command type: %s", cmd.Type)
	}
}

// Snapshot returns a snapshot of the current FSM state
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	return &fsmSnapshot{store: f.store}, nil
}

// Restore restores the FSM from a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	// Read snapshot data
	var configs map[string]*models.CollectionConfig
	if err := json.NewDecoder(rc).Decode(&configs); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	// Restore configuration metadata
	return f.store.RestoreConfigs(configs)
}

// Collection operation apply methods

func (f *FSM) applyCreateCollection(data json.RawMessage) interface{} {
	var config models.CollectionConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return err
	}

	return f.store.CreateCollectionInternal(&config)
}

func (f *FSM) applyDeleteCollection(data json.RawMessage) interface{} {
	var payload DeleteCollectionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	return f.store.DeleteCollectionInternal(payload.Name)
}

func (f *FSM) applyUpdateCollection(data json.RawMessage) interface{} {
	var config models.CollectionConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return err
	}

	return f.store.UpdateCollectionInternal(config.Name, &config)
}

// Document operation apply methods

func (f *FSM) applyAddDocuments(data json.RawMessage) interface{} {
	var payload AddDocumentsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	return f.store.AddDocumentsInternal(payload.Collection, payload.Documents)
}

func (f *FSM) applyDeleteDocument(data json.RawMessage) interface{} {
	var payload DeleteDocumentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	return f.store.DeleteDocumentInternal(payload.Collection, payload.DocumentID)
}

func (f *FSM) applyDeleteDocuments(data json.RawMessage) interface{} {
	var payload DeleteDocumentsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	return f.store.DeleteDocumentsInternal(payload.Collection, payload.Filter, payload.IDs)
}

func (f *FSM) applyUpdateDocument(data json.RawMessage) interface{} {
	var payload UpdateDocumentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	return f.store.UpdateDocumentInternal(payload.Collection, payload.DocumentID, payload.Updates)
}
