package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"lumen/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/bytedance/sonic"
)

// CollectionStore manages all content collections
type CollectionStore struct {
	collections map[string]bleve.Index
	configs     map[string]*models.CollectionConfig
	collLocks   map[string]*sync.RWMutex
	mu          sync.RWMutex
	dataDir     string
	configFile  string
}

var store *CollectionStore
var once sync.Once

// Initialize initializes the store with the specified data directory
// Must be called before GetStore() if you want to use a custom data directory
// Returns the initialized CollectionStore
func Initialize(dataDir string) *CollectionStore {
	once.Do(func() {
		store = &CollectionStore{
			collections: make(map[string]bleve.Index),
			configs:     make(map[string]*models.CollectionConfig),
			collLocks:   make(map[string]*sync.RWMutex),
			dataDir:     dataDir,
			configFile:  filepath.Join(dataDir, "collections.json"),
		}
		store.loadConfigs()
	})
	return store
}

// GetStore returns the singleton instance of CollectionStore
func GetStore() *CollectionStore {
	once.Do(func() {
		// Default initialization if Initialize was not called
		store = &CollectionStore{
			collections: make(map[string]bleve.Index),
			configs:     make(map[string]*models.CollectionConfig),
			collLocks:   make(map[string]*sync.RWMutex),
			dataDir:     "./data",
			configFile:  "./data/collections.json",
		}
		store.loadConfigs()
	})
	return store
}

// getCollectionLock returns the lock for a specific collection, creating it if necessary
func (s *CollectionStore) getCollectionLock(name string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, exists := s.collLocks[name]; exists {
		return lock
	}

	lock := &sync.RWMutex{}
	s.collLocks[name] = lock
	return lock
}

// CreateCollection creates a new collection backed by a bleve index
func (s *CollectionStore) CreateCollection(config *models.CollectionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[config.Name]; exists {
		return fmt.Errorf("collection %s already exists", config.Name)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	indexPath := filepath.Join(s.dataDir, config.Name)

	var index bleve.Index
	var err error

	// Check if index directory already exists on disk
	if _, statErr := os.Stat(indexPath); statErr == nil {
		// Directory exists, try to open existing index
		index, err = bleve.Open(indexPath)
		if err != nil {
			// Failed to open, remove and recreate
			os.RemoveAll(indexPath)
			index, err = s.createNewIndex(indexPath, config)
			if err != nil {
				return err
			}
		}
	} else {
		// Directory doesn't exist, create new index
		index, err = s.createNewIndex(indexPath, config)
		if err != nil {
			return err
		}
	}

	s.collections[config.Name] = index
	s.configs[config.Name] = config
	s.collLocks[config.Name] = &sync.RWMutex{}
	s.saveConfigs()

	return nil
}

// createNewIndex creates a new bleve index with the given config
func (s *CollectionStore) createNewIndex(indexPath string, config *models.CollectionConfig) (bleve.Index, error) {
	indexMapping := bleve.NewIndexMapping()
	if len(config.ExcludeAttributes) > 0 {
		defaultMapping := indexMapping.DefaultMapping
		for _, attr := range config.ExcludeAttributes {
			disabledMapping := bleve.NewDocumentDisabledMapping()
			defaultMapping.AddSubDocumentMapping(attr, disabledMapping)
		}
	}
	index, err := bleve.New(indexPath, indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return index, nil
}

// GetCollection returns a collection's index and config by name
func (s *CollectionStore) GetCollection(name string) (bleve.Index, *models.CollectionConfig, error) {
	s.mu.RLock()
	index, exists := s.collections[name]
	config := s.configs[name]
	s.mu.RUnlock()

	if !exists {
		return nil, nil, fmt.Errorf("collection %s not found", name)
	}

	return index, config, nil
}

// DeleteCollection deletes a collection
func (s *CollectionStore) DeleteCollection(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, exists := s.collections[name]
	if !exists {
		return fmt.Errorf("collection %s not found", name)
	}

	// Close the index
	if err := index.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}

	// Delete the index directory
	indexPath := filepath.Join(s.dataDir, name)
	if err := os.RemoveAll(indexPath); err != nil {
		return fmt.Errorf("failed to delete index directory: %w", err)
	}

	delete(s.collections, name)
	delete(s.configs, name)
	delete(s.collLocks, name)
	s.saveConfigs()

	return nil
}

// UpdateCollection updates collection configuration
func (s *CollectionStore) UpdateCollection(name string, config *models.CollectionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[name]; !exists {
		return fmt.Errorf("collection %s not found", name)
	}

	config.Name = name // Ensure name doesn't change
	s.configs[name] = config
	s.saveConfigs()

	return nil
}

// CollectionCount reports how many collections exist.
func (s *CollectionStore) CollectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.configs)
}

// ListCollections returns all collection configurations with pagination
func (s *CollectionStore) ListCollections(limit, offset int) []*models.CollectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Convert map to slice
	allConfigs := make([]*models.CollectionConfig, 0, len(s.configs))
	for _, config := range s.configs {
		allConfigs = append(allConfigs, config)
	}
	sort.Slice(allConfigs, func(i, j int) bool {
		return allConfigs[i].Name < allConfigs[j].Name
	})

	// Apply pagination
	start := offset
	if start > len(allConfigs) {
		return []*models.CollectionConfig{}
	}

	end := start + limit
	if end > len(allConfigs) {
		end = len(allConfigs)
	}

	return allConfigs[start:end]
}

// loadConfigs loads collection configurations from disk
func (s *CollectionStore) loadConfigs() {
	// Create data directory if it doesn't exist
	os.MkdirAll(s.dataDir, 0755)

	data, err := os.ReadFile(s.configFile)
	if err != nil {
		return // No configs to load
	}

	var configs map[string]*models.CollectionConfig
	if err := sonic.Unmarshal(data, &configs); err != nil {
		return
	}

	s.configs = configs

	// Open existing indexes or recreate if missing
	for name, config := range configs {
		indexPath := filepath.Join(s.dataDir, name)

		// Check if index directory exists
		if _, err := os.Stat(indexPath); os.IsNotExist(err) {
			// Index directory doesn't exist, recreate it
			index, err := s.createNewIndex(indexPath, config)
			if err != nil {
				continue
			}
			s.collections[name] = index
			s.collLocks[name] = &sync.RWMutex{}
		} else {
			// Index directory exists, try to open it
			index, err := bleve.Open(indexPath)
			if err != nil {
				// Failed to open, try to recreate
				os.RemoveAll(indexPath)
				index, err = s.createNewIndex(indexPath, config)
				if err != nil {
					continue
				}
			}
			s.collections[name] = index
			s.collLocks[name] = &sync.RWMutex{}
		}
	}
}

// saveConfigs saves collection configurations to disk
func (s *CollectionStore) saveConfigs() {
	data, err := sonic.ConfigDefault.MarshalIndent(s.configs, "", "  ")
	if err != nil {
		return
	}

	os.WriteFile(s.configFile, data, 0644)
}

// GetAllConfigs returns all collection configurations (for snapshotting)
func (s *CollectionStore) GetAllConfigs() map[string]*models.CollectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make(map[string]*models.CollectionConfig, len(s.configs))
	for k, v := range s.configs {
		configs[k] = v
	}
	return configs
}

// RestoreConfigs restores collection configurations from snapshot
func (s *CollectionStore) RestoreConfigs(configs map[string]*models.CollectionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs = configs
	s.saveConfigs()
	return nil
}

// Internal methods (lock-free, called by FSM)

// CreateCollectionInternal creates a collection without locking (called by FSM)
func (s *CollectionStore) CreateCollectionInternal(config *models.CollectionConfig) error {
	if _, exists := s.collections[config.Name]; exists {
		return fmt.Errorf("collection %s already exists", config.Name)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	indexPath := filepath.Join(s.dataDir, config.Name)

	var index bleve.Index
	var err error

	// Check if index directory already exists on disk
	if _, statErr := os.Stat(indexPath); statErr == nil {
		// Directory exists, try to open existing index
		index, err = bleve.Open(indexPath)
		if err != nil {
			// Failed to open, remove and recreate
			os.RemoveAll(indexPath)
			index, err = s.createNewIndex(indexPath, config)
			if err != nil {
				return err
			}
		}
	} else {
		// Directory doesn't exist, create new index
		index, err = s.createNewIndex(indexPath, config)
		if err != nil {
			return err
		}
	}

	s.collections[config.Name] = index
	s.configs[config.Name] = config
	s.collLocks[config.Name] = &sync.RWMutex{}
	s.saveConfigs()

	return nil
}

// DeleteCollectionInternal deletes a collection without locking (called by FSM)
func (s *CollectionStore) DeleteCollectionInternal(name string) error {
	index, exists := s.collections[name]
	if !exists {
		return fmt.Errorf("collection %s not found", name)
	}

	// Close the index
	if err := index.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}

	// Delete the index directory
	indexPath := filepath.Join(s.dataDir, name)
	if err := os.RemoveAll(indexPath); err != nil {
		return fmt.Errorf("failed to delete index directory: %w", err)
	}

	delete(s.collections, name)
	delete(s.configs, name)
	delete(s.collLocks, name)
	s.saveConfigs()

	return nil
}

// UpdateCollectionInternal updates collection configuration without locking (called by FSM)
func (s *CollectionStore) UpdateCollectionInternal(name string, config *models.CollectionConfig) error {
	if _, exists := s.collections[name]; !exists {
		return fmt.Errorf("collection %s not found", name)
	}

	config.Name = name // Ensure name doesn't change
	s.configs[name] = config
	s.saveConfigs()

	return nil
}

// AddDocumentsInternal adds documents to a collection without locking (called by FSM)
func (s *CollectionStore) AddDocumentsInternal(collection string, documents []map[string]any) error {
	s.mu.RLock()
	index, exists := s.collections[collection]
	config := s.configs[collection]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("collection %s not found", collection)
	}

	collLock := s.getCollectionLock(collection)
	collLock.Lock()
	defer collLock.Unlock()

	batch := index.NewBatch()

	for _, doc := range documents {
		var docID string
		if id, ok := doc[config.PrimaryKey]; ok && id != nil {
			docID = fmt.Sprintf("%v", id)
		} else {
			return fmt.Errorf("document missing primary key %s", config.PrimaryKey)
		}

		if err := batch.Index(docID, doc); err != nil {
			return fmt.Errorf("failed to index document: %w", err)
		}
	}

	if err := index.Batch(batch); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

// DeleteDocumentInternal deletes a document without locking (called by FSM)
func (s *CollectionStore) DeleteDocumentInternal(collection, documentID string) error {
	s.mu.RLock()
	index, exists := s.collections[collection]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("collection %s not found", collection)
	}

	collLock := s.getCollectionLock(collection)
	collLock.Lock()
	defer collLock.Unlock()

	if err := index.Delete(documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}

// DeleteDocumentsInternal deletes multiple documents without locking (called by FSM)
func (s *CollectionStore) DeleteDocumentsInternal(collection, filter string, ids []string) error {
	s.mu.RLock()
	index, exists := s.collections[collection]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("collection %s not found", collection)
	}

	collLock := s.getCollectionLock(collection)
	collLock.Lock()
	defer collLock.Unlock()

	batch := index.NewBatch()

	// If specific IDs are provided
	if len(ids) > 0 {
		for _, id := range ids {
			batch.Delete(id)
		}
	} else if filter != "" {
		// Search with filter and delete matching documents using pagination
		query := bleve.NewQueryStringQuery(filter)
		pageSize := 10000
		offset := 0

		for {
			searchRequest := bleve.NewSearchRequest(query)
			searchRequest.From = offset
			searchRequest.Size = pageSize

			searchResult, err := index.Search(searchRequest)
			if err != nil {
				return fmt.Errorf("failed to search: %w", err)
			}

			// If no results, we're done
			if len(searchResult.Hits) == 0 {
				break
			}

			// Delete documents from this page
			for _, hit := range searchResult.Hits {
				batch.Delete(hit.ID)
			}

			// If we got fewer results than page size, we've reached the end
			if len(searchResult.Hits) < pageSize {
				break
			}

			offset += pageSize
		}
	} else {
		return fmt.Errorf("must provide ids or filter parameter to delete documents")
	}

	if err := index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	return nil
}

// UpdateDocumentInternal updates a document without locking (called by FSM)
func (s *CollectionStore) UpdateDocumentInternal(collection, documentID string, updates map[string]any) error {
	s.mu.RLock()
	index, exists := s.collections[collection]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("collection %s not found", collection)
	}

	collLock := s.getCollectionLock(collection)
	collLock.Lock()
	defer collLock.Unlock()

	// Get existing document by searching for it
	query := bleve.NewDocIDQuery([]string{documentID})
	searchRequest := bleve.NewSearchRequest(query)
	searchRequest.Fields = []string{"*"}
	searchResult, err := index.Search(searchRequest)
	if err != nil || len(searchResult.Hits) == 0 {
		return fmt.Errorf("document not found")
	}

	// Merge updates with existing document
	existingData := make(map[string]any)
	for fieldName, fieldValue := range searchResult.Hits[0].Fields {
		existingData[fieldName] = fieldValue
	}

	for key, value := range updates {
		existingData[key] = value
	}

	// Re-index the document
	if err := index.Index(documentID, existingData); err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	return nil
}

// DetectPrimaryKey analyzes documents and returns the primary key attribute
// Returns error if no candidates or multiple candidates are found
func DetectPrimaryKey(documents []map[string]any) (string, error) {
	if len(documents) == 0 {
		return "", fmt.Errorf("cannot detect primary key from empty document set")
	}

	// Collect all unique attribute names ending with "id" (case-insensitive)
	candidates := make(map[string]bool)

	for _, doc := range documents {
		for attr := range doc {
			if strings.HasSuffix(strings.ToLower(attr), "id") {
				candidates[attr] = true
			}
		}
	}

	// Validate exactly one candidate exists
	if len(candidates) == 0 {
		return "", fmt.Errorf("no primary key candidate found (no attribute ending with 'id')")
	}
	if len(candidates) > 1 {
		candidateList := make([]string, 0, len(candidates))
		for k := range candidates {
			candidateList = append(candidateList, k)
		}
		sort.Strings(candidateList)
		return "", fmt.Errorf("multiple primary key candidates found: %v", candidateList)
	}

	// Extract the single candidate
	for candidate := range candidates {
		return candidate, nil
	}

	return "", fmt.Errorf("unexpected error in primary key detection")
}
