package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lumen/raft"
	"lumen/sources"
	"lumen/store"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Source implements the sources.Source interface for PostgreSQL
type Source struct {
	id         string
	collection string
	config     *Config
	rawConfig  json.RawMessage

	connector *Connector
	schema    *Schema
	poller    *Poller
	listener  *Listener
	mapper    *Mapper

	store    *store.CollectionStore
	raftNode *raft.RaftNode
	logger   *zap.Logger

	status atomic.Value // sources.Status
	stats  struct {
		sync.RWMutex
		lastSyncAt       time.Time
		documentsSynced  int64
		documentsDeleted int64
		fullSyncComplete bool
		lastError        string
		errorCount       int
	}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewSource creates a new PostgreSQL source
func NewSource(cfg sources.Config, store *store.CollectionStore, raftNode *raft.RaftNode, logger *zap.Logger) (*Source, error) {
	// Parse the postgres-specific config
	var pgConfig Config
	if err := sonic.Unmarshal(cfg.Config, &pgConfig); err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	// Validate and apply defaults
	if err := pgConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	pgConfigWithDefaults := pgConfig.WithDefaults()

	src := &Source{
		id:         cfg.ID,
		collection: cfg.Collection,
		config:     pgConfigWithDefaults,
		rawConfig:  cfg.Config,
		store:      store,
		raftNode:   raftNode,
		logger:     logger.With(zap.String("source_id", cfg.ID), zap.String("collection", cfg.Collection)),
		mapper:     NewMapper(pgConfigWithDefaults),
	}

	src.status.Store(sources.StatusStopped)

	return src, nil
}

// Factory returns a factory function for creating PostgreSQL sources
func Factory(cfg sources.Config, store *store.CollectionStore, raftNode *raft.RaftNode, logger *zap.Logger) (sources.Source, error) {
	return NewSource(cfg, store, raftNode, logger)
}

// ID returns the source ID
func (s *Source) ID() string {
	return s.id
}

// Collection returns the target collection name
func (s *Source) Collection() string {
	return s.collection
}

// Type returns the source type
func (s *Source) Type() string {
	return "postgres"
}

// Status returns the current status
func (s *Source) Status() sources.Status {
	return s.status.Load().(sources.Status)
}

// Config returns the raw configuration
func (s *Source) Config() json.RawMessage {
	return s.rawConfig
}

// Statistics returns the current synchronization statistics
func (s *Source) Statistics() sources.Statistics {
	s.stats.RLock()
	defer s.stats.RUnlock()

	return sources.Statistics{
		LastSyncAt:       s.stats.lastSyncAt,
		DocumentsSynced:  s.stats.documentsSynced,
		DocumentsDeleted: s.stats.documentsDeleted,
		FullSyncComplete: s.stats.fullSyncComplete,
		LastError:        s.stats.lastError,
		ErrorCount:       s.stats.errorCount,
	}
}

// Start begins synchronization
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() == sources.StatusRunning {
		return nil // Already running
	}

	s.status.Store(sources.StatusStarting)
	s.logger.Info("Starting PostgreSQL source")

	// Create context for this source
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	// Create connector
	s.connector = NewConnector(ConnectorConfig{
		DSN:         s.config.DSN,
		MaxConns:    10,
		ConnTimeout: 30 * time.Second,
	}, s.logger)

	// Connect to PostgreSQL
	if err := s.connector.Connect(s.ctx); err != nil {
		s.setError(fmt.Sprintf("connection failed: %v", err))
		return err
	}

	// Create schema handler and ensure tables exist
	s.schema = NewSchema(s.connector.Pool(), s.config)
	if err := s.schema.CreateSyncTables(s.ctx); err != nil {
		s.setError(fmt.Sprintf("failed to create sync tables: %v", err))
		return err
	}

	// Create triggers if auto_triggers is enabled
	if s.config.AutoTriggers {
		if err := s.schema.CreateDeleteTrigger(s.ctx); err != nil {
			s.logger.Warn("Failed to create delete trigger", zap.Error(err))
		}
		if s.config.SyncMode == SyncModeListen {
			if err := s.schema.CreateNotifyTrigger(s.ctx); err != nil {
				s.logger.Warn("Failed to create notify trigger", zap.Error(err))
			}
		}
	}

	// Load sync state
	s.loadState()

	// Start sync based on mode
	if s.config.SyncMode == SyncModeListen {
		if err := s.startListenMode(); err != nil {
			s.setError(fmt.Sprintf("failed to start listen mode: %v", err))
			return err
		}
	} else {
		s.startPollingMode()
	}

	s.status.Store(sources.StatusRunning)
	s.logger.Info("PostgreSQL source started",
		zap.String("sync_mode", string(s.config.SyncMode)))

	return nil
}

// Stop halts synchronization
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() == sources.StatusStopped {
		return nil
	}

	s.logger.Info("Stopping PostgreSQL source")

	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()

	if s.listener != nil {
		s.listener.Stop()
	}

	if s.connector != nil {
		s.connector.Close()
	}

	// Save state before stopping
	s.saveState()

	s.status.Store(sources.StatusStopped)
	s.logger.Info("PostgreSQL source stopped")

	return nil
}

// Pause temporarily pauses synchronization
func (s *Source) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() != sources.StatusRunning {
		return fmt.Errorf("source is not running")
	}

	s.status.Store(sources.StatusPaused)
	s.logger.Info("PostgreSQL source paused")
	return nil
}

// Resume resumes a paused synchronization
func (s *Source) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() != sources.StatusPaused {
		return fmt.Errorf("source is not paused")
	}

	s.status.Store(sources.StatusRunning)
	s.logger.Info("PostgreSQL source resumed")
	return nil
}

// Resync triggers a full resynchronization
func (s *Source) Resync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Triggering full resync")

	// Reset state
	s.stats.Lock()
	s.stats.fullSyncComplete = false
	s.stats.documentsSynced = 0
	s.stats.documentsDeleted = 0
	s.stats.Unlock()

	if s.poller != nil {
		s.poller.ResetState()
	}

	// Clear sync state in database
	if s.connector != nil && s.connector.Pool() != nil {
		_, err := s.connector.Pool().Exec(s.ctx,
			"DELETE FROM __lumen_synchronization WHERE table_name = $1",
			s.config.Table)
		if err != nil {
			s.logger.Warn("Failed to clear sync state", zap.Error(err))
		}
	}

	return nil
}

// startPollingMode starts the polling sync loop
func (s *Source) startPollingMode() {
	s.poller = NewPoller(s.connector.Pool(), s.config, s.logger)
	s.poller.SetCallbacks(s.handleDocuments, s.handleDeletes)

	// Set initial state
	s.stats.RLock()
	s.poller.SetState(s.stats.lastSyncAt, "", s.stats.fullSyncComplete)
	s.stats.RUnlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pollLoop()
	}()
}

// pollLoop runs the polling loop
func (s *Source) pollLoop() {
	ticker := time.NewTicker(s.config.PollInterval.Duration())
	defer ticker.Stop()

	// Initial poll
	s.doPoll()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.Status() == sources.StatusPaused {
				continue
			}
			s.doPoll()
		}
	}
}

// doPoll performs a single poll cycle
func (s *Source) doPoll() {
	s.status.Store(sources.StatusSyncing)
	defer func() {
		if s.Status() == sources.StatusSyncing {
			s.status.Store(sources.StatusRunning)
		}
	}()

	if err := s.poller.Poll(s.ctx); err != nil {
		s.setError(fmt.Sprintf("poll failed: %v", err))
		return
	}

	// Update state from poller
	lastSyncAt, _, fullSyncComplete := s.poller.GetState()
	s.stats.Lock()
	s.stats.lastSyncAt = lastSyncAt
	s.stats.fullSyncComplete = fullSyncComplete
	s.stats.Unlock()

	// Persist state
	s.saveState()
}

// startListenMode starts the LISTEN/NOTIFY sync
func (s *Source) startListenMode() error {
	// First, do a full sync using poller
	s.poller = NewPoller(s.connector.Pool(), s.config, s.logger)
	s.poller.SetCallbacks(s.handleDocuments, s.handleDeletes)

	s.stats.RLock()
	fullSyncComplete := s.stats.fullSyncComplete
	s.stats.RUnlock()

	if !fullSyncComplete {
		s.logger.Info("Performing initial full sync before listening")
		if err := s.poller.Poll(s.ctx); err != nil {
			return fmt.Errorf("initial sync failed: %w", err)
		}

		lastSyncAt, _, complete := s.poller.GetState()
		s.stats.Lock()
		s.stats.lastSyncAt = lastSyncAt
		s.stats.fullSyncComplete = complete
		s.stats.Unlock()
		s.saveState()
	}

	// Start listener
	s.listener = NewListener(s.connector.Pool(), s.config, s.logger)
	s.listener.SetCallback(s.handleNotify)

	return s.listener.Start(s.ctx)
}

// handleDocuments processes synced documents
func (s *Source) handleDocuments(docs []map[string]any) error {
	if len(docs) == 0 {
		return nil
	}

	// Use Raft if enabled, otherwise direct store access
	if s.raftNode != nil && s.raftNode.IsLeader() {
		return s.applyDocumentsViaRaft(docs)
	}

	err := s.store.AddDocumentsInternal(s.collection, docs)
	if err != nil {
		return err
	}

	s.stats.Lock()
	s.stats.documentsSynced += int64(len(docs))
	s.stats.Unlock()

	return nil
}

// handleDeletes processes deleted document IDs
func (s *Source) handleDeletes(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	err := s.store.DeleteDocumentsInternal(s.collection, "", ids)
	if err != nil {
		return err
	}

	s.stats.Lock()
	s.stats.documentsDeleted += int64(len(ids))
	s.stats.Unlock()

	return nil
}

// handleNotify processes a LISTEN/NOTIFY event
func (s *Source) handleNotify(op string, id string) error {
	switch op {
	case "INSERT", "UPDATE":
		// Fetch the document and sync it
		doc, err := s.fetchDocument(id)
		if err != nil {
			return err
		}
		if doc != nil {
			return s.handleDocuments([]map[string]any{doc})
		}
	case "DELETE":
		return s.handleDeletes([]string{id})
	}
	return nil
}

// fetchDocument fetches a single document by primary key
func (s *Source) fetchDocument(id string) (map[string]any, error) {
	columns := "*"
	if len(s.config.Columns) > 0 {
		columns = strings.Join(s.config.Columns, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		columns, s.config.FullTableName(), s.config.PrimaryKey)

	rows, err := s.connector.Pool().Query(s.ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		return s.mapper.RowToDocument(rows)
	}

	return nil, nil
}

// applyDocumentsViaRaft applies documents through Raft consensus
func (s *Source) applyDocumentsViaRaft(docs []map[string]any) error {
	payload := raft.AddDocumentsPayload{
		Collection: s.collection,
		Documents:  docs,
	}

	payloadData, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}

	cmd := raft.Command{
		Type: raft.CommandAddDocuments,
		Data: payloadData,
	}

	if err := s.raftNode.Apply(cmd, 30*time.Second); err != nil {
		return err
	}

	s.stats.Lock()
	s.stats.documentsSynced += int64(len(docs))
	s.stats.Unlock()

	return nil
}

// loadState loads the sync state from PostgreSQL
func (s *Source) loadState() {
	if s.connector == nil || s.connector.Pool() == nil {
		return
	}

	var lastSyncAt *time.Time
	var lastID *string
	var fullSyncComplete bool

	err := s.connector.Pool().QueryRow(s.ctx,
		"SELECT last_sync_at, last_id, full_sync_complete FROM __lumen_synchronization WHERE table_name = $1",
		s.config.Table).Scan(&lastSyncAt, &lastID, &fullSyncComplete)

	if err != nil {
		// No state found, start fresh
		return
	}

	s.stats.Lock()
	if lastSyncAt != nil {
		s.stats.lastSyncAt = *lastSyncAt
	}
	s.stats.fullSyncComplete = fullSyncComplete
	s.stats.Unlock()
}

// saveState persists the sync state to PostgreSQL
func (s *Source) saveState() {
	if s.connector == nil || s.connector.Pool() == nil {
		return
	}

	s.stats.RLock()
	lastSyncAt := s.stats.lastSyncAt
	fullSyncComplete := s.stats.fullSyncComplete
	s.stats.RUnlock()

	_, err := s.connector.Pool().Exec(s.ctx, `
		INSERT INTO __lumen_synchronization (table_name, last_sync_at, full_sync_complete, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (table_name) DO UPDATE SET
			last_sync_at = EXCLUDED.last_sync_at,
			full_sync_complete = EXCLUDED.full_sync_complete,
			updated_at = NOW()
	`, s.config.Table, lastSyncAt, fullSyncComplete)

	if err != nil {
		s.logger.Warn("Failed to save sync state", zap.Error(err))
	}
}

// setError sets an error state
func (s *Source) setError(msg string) {
	s.stats.Lock()
	s.stats.lastError = msg
	s.stats.errorCount++
	s.stats.Unlock()
	s.status.Store(sources.StatusFailed)
	s.logger.Error("Source error", zap.String("error", msg))
}
