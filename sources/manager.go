package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lumen/raft"
	"lumen/store"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Factory is a function that creates a Source from configuration
type Factory func(cfg Config, store *store.CollectionStore, raftNode *raft.RaftNode, logger *zap.Logger) (Source, error)

// Manager manages all sources and their lifecycle
type Manager struct {
	sources    map[string]Source  // sourceID -> Source
	configs    map[string]Config  // sourceID -> Config (for persistence)
	factories  map[string]Factory // type -> Factory
	store      *store.CollectionStore
	raftNode   *raft.RaftNode
	logger     *zap.Logger
	configFile string
	mu         sync.RWMutex
}

// NewManager creates a new source manager
func NewManager(dataDir string, store *store.CollectionStore, raftNode *raft.RaftNode, logger *zap.Logger) *Manager {
	return &Manager{
		sources:    make(map[string]Source),
		configs:    make(map[string]Config),
		factories:  make(map[string]Factory),
		store:      store,
		raftNode:   raftNode,
		logger:     logger,
		configFile: filepath.Join(dataDir, "sources.json"),
	}
}

// RegisterFactory registers a factory for a given source type
func (m *Manager) RegisterFactory(sourceType string, factory Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[sourceType] = factory
}

// Load loads source configurations from disk and creates sources
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No config file yet
		}
		return fmt.Errorf("failed to read source config: %w", err)
	}

	var configs map[string]Config
	if err := sonic.Unmarshal(data, &configs); err != nil {
		return fmt.Errorf("failed to parse source config: %w", err)
	}

	m.configs = configs

	// Create sources from loaded configs
	for id, cfg := range configs {
		factory, ok := m.factories[cfg.Type]
		if !ok {
			m.logger.Warn("Unknown source type, skipping",
				zap.String("id", id),
				zap.String("type", cfg.Type))
			continue
		}

		source, err := factory(cfg, m.store, m.raftNode, m.logger)
		if err != nil {
			m.logger.Error("Failed to create source",
				zap.String("id", id),
				zap.Error(err))
			continue
		}

		m.sources[id] = source
	}

	return nil
}

// save persists source configurations to disk
func (m *Manager) save() error {
	data, err := sonic.ConfigDefault.MarshalIndent(m.configs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal source config: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write source config: %w", err)
	}

	return nil
}

// Create creates a new source
func (m *Manager) Create(collection string, sourceType string, id string, rawConfig json.RawMessage) (Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if source already exists
	if _, exists := m.sources[id]; exists {
		return nil, fmt.Errorf("source %s already exists", id)
	}

	// Check if collection exists
	if _, _, err := m.store.GetCollection(collection); err != nil {
		return nil, fmt.Errorf("collection %s not found", collection)
	}

	// Get factory for type
	factory, ok := m.factories[sourceType]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %s", sourceType)
	}

	cfg := Config{
		ID:         id,
		Collection: collection,
		Type:       sourceType,
		Config:     rawConfig,
	}

	// Create source
	source, err := factory(cfg, m.store, m.raftNode, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	m.sources[id] = source
	m.configs[id] = cfg

	if err := m.save(); err != nil {
		m.logger.Error("Failed to save source config", zap.Error(err))
	}

	return source, nil
}

// Get returns a source by ID
func (m *Manager) Get(id string) (Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %s not found", id)
	}

	return source, nil
}

// List returns all sources for a collection
func (m *Manager) List(collection string) []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Source
	for _, source := range m.sources {
		if source.Collection() == collection {
			result = append(result, source)
		}
	}

	return result
}

// ListAll returns all sources
func (m *Manager) ListAll() []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Source, 0, len(m.sources))
	for _, source := range m.sources {
		result = append(result, source)
	}

	return result
}

// Delete removes a source
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}

	// Stop the source first
	if err := source.Stop(); err != nil {
		m.logger.Warn("Error stopping source during delete",
			zap.String("id", id),
			zap.Error(err))
	}

	delete(m.sources, id)
	delete(m.configs, id)

	if err := m.save(); err != nil {
		m.logger.Error("Failed to save source config", zap.Error(err))
	}

	return nil
}

// StartAll starts all sources
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ctx == nil {
		ctx = context.Background()
	}

	var firstErr error
	for id, source := range m.sources {
		if err := source.Start(ctx); err != nil {
			m.logger.Error("Failed to start source",
				zap.String("id", id),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// StopAll stops all sources
func (m *Manager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var firstErr error
	for id, source := range m.sources {
		if err := source.Stop(); err != nil {
			m.logger.Error("Failed to stop source",
				zap.String("id", id),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
