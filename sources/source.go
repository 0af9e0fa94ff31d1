package sources

import (
	"context"
	"encoding/json"
	"time"
)

// Status represents the current state of a source
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusFailed   Status = "failed"
	StatusSyncing  Status = "syncing"
)

// Statistics contains synchronization statistics
type Statistics struct {
	LastSyncAt       time.Time `json:"last_sync_at,omitempty"`
	DocumentsSynced  int64     `json:"documents_synced"`
	DocumentsDeleted int64     `json:"documents_deleted"`
	FullSyncComplete bool      `json:"full_sync_complete"`
	LastError        string    `json:"last_error,omitempty"`
	ErrorCount       int       `json:"error_count"`
}

// Source represents an external system that syncs content into a
// collection
type Source interface {
	// ID returns the unique identifier of this source
	ID() string

	// Collection returns the target collection name
	Collection() string

	// Type returns the source type (e.g., "postgres")
	Type() string

	// Status returns the current status
	Status() Status

	// Start begins synchronization
	Start(ctx context.Context) error

	// Stop halts synchronization
	Stop() error

	// Pause temporarily pauses synchronization
	Pause() error

	// Resume resumes a paused synchronization
	Resume() error

	// Resync triggers a full resynchronization
	Resync() error

	// Statistics returns current synchronization statistics
	Statistics() Statistics

	// Config returns the source configuration
	Config() json.RawMessage
}

// Config is the base configuration for all source types
type Config struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Type       string          `json:"type"`
	Config     json.RawMessage `json:"config"`
}

// SourceInfo contains information about a source for API responses
type SourceInfo struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Type       string          `json:"type"`
	Status     Status          `json:"status"`
	Config     json.RawMessage `json:"config"`
	Statistics Statistics      `json:"stats"`
}

// ToInfo converts a Source to SourceInfo for API responses
func ToInfo(s Source) SourceInfo {
	return SourceInfo{
		ID:         s.ID(),
		Collection: s.Collection(),
		Type:       s.Type(),
		Status:     s.Status(),
		Config:     s.Config(),
		Statistics: s.Statistics(),
	}
}
