package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riferrei/srclient"
	"go.uber.org/zap"
)

// ErrSchemaNotFound is returned when a schema id or subject is unknown
var ErrSchemaNotFound = errors.New("schema not found")

// schemaRegistry implements RegistryClient against a Confluent compatible registry
type schemaRegistry struct {
	client *srclient.SchemaRegistryClient
	config *Config
	logger *zap.Logger

	// Cache for schemas
	cache      map[int]*cachedSchema
	cacheMutex sync.RWMutex
	done       chan struct{}
	closeOnce  sync.Once

	// Metrics
	stats struct {
		sync.RWMutex
		cacheHits   int64
		cacheMisses int64
		errors      int64
		requests    int64
	}
}

// cachedSchema represents a cached schema with TTL
type cachedSchema struct {
	metadata  *SchemaMetadata
	expiresAt time.Time
}

// NewRegistryClient creates a new schema registry client
func NewRegistryClient(config *Config, logger *zap.Logger) (RegistryClient, error) {
	if config.RegistryURL == "" {
		return nil, errors.New("registry URL is required")
	}

	// Set defaults
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.CacheSize == 0 {
		config.CacheSize = 100
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}

	client := srclient.CreateSchemaRegistryClient(config.RegistryURL)
	if config.Username != "" && config.Password != "" {
		client.SetCredentials(config.Username, config.Password)
	}
	client.SetTimeout(config.Timeout)

	registry := &schemaRegistry{
		client: client,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}

	if config.CacheEnabled {
		registry.cache = make(map[int]*cachedSchema, config.CacheSize)
		go registry.cleanupCache()
	}

	logger.Info("Schema registry client initialized",
		zap.String("url", config.RegistryURL),
		zap.Bool("cache_enabled", config.CacheEnabled),
		zap.Int("cache_size", config.CacheSize),
	)

	return registry, nil
}

// GetSchema retrieves a schema by ID
func (r *schemaRegistry) GetSchema(ctx context.Context, schemaID int) (*SchemaMetadata, error) {
	r.recordRequest()

	if r.config.CacheEnabled {
		if cached := r.getFromCache(schemaID); cached != nil {
			r.recordCacheHit()
			return cached, nil
		}
		r.recordCacheMiss()
	}

	schema, err := r.client.GetSchema(schemaID)
	if err != nil {
		r.recordError()
		return nil, fmt.Errorf("failed to get schema %d: %w", schemaID, err)
	}

	metadata := &SchemaMetadata{
		ID:         schema.ID(),
		Version:    schema.Version(),
		Schema:     schema.Schema(),
		SchemaType: SchemaTypeAvro,
	}

	if r.config.CacheEnabled {
		r.addToCache(schemaID, metadata)
	}

	return metadata, nil
}

// GetLatestSchema retrieves the latest version of a schema for a subject
func (r *schemaRegistry) GetLatestSchema(ctx context.Context, subject string) (*SchemaMetadata, error) {
	r.recordRequest()

	schema, err := r.client.GetLatestSchema(subject)
	if err != nil {
		r.recordError()
		return nil, fmt.Errorf("failed to get latest schema for subject %s: %w", subject, err)
	}

	metadata := &SchemaMetadata{
		ID:         schema.ID(),
		Version:    schema.Version(),
		Schema:     schema.Schema(),
		Subject:    subject,
		SchemaType: SchemaTypeAvro,
	}

	if r.config.CacheEnabled {
		r.addToCache(schema.ID(), metadata)
	}

	return metadata, nil
}

// RegisterSchema registers a new schema or returns existing if identical
func (r *schemaRegistry) RegisterSchema(ctx context.Context, subject string, schema string, schemaType SchemaType) (*SchemaMetadata, error) {
	r.recordRequest()

	schemaObj, err := r.client.CreateSchema(subject, schema, srclient.SchemaType(schemaType))
	if err != nil {
		r.recordError()
		return nil, fmt.Errorf("failed to register schema for subject %s: %w", subject, err)
	}

	metadata := &SchemaMetadata{
		ID:         schemaObj.ID(),
		Version:    schemaObj.Version(),
		Schema:     schema,
		Subject:    subject,
		SchemaType: schemaType,
	}

	if r.config.CacheEnabled {
		r.addToCache(schemaObj.ID(), metadata)
	}

	r.logger.Info("Schema registered",
		zap.String("subject", subject),
		zap.Int("id", schemaObj.ID()),
		zap.Int("version", schemaObj.Version()),
	)

	return metadata, nil
}

// GetSubjects lists all subjects
func (r *schemaRegistry) GetSubjects(ctx context.Context) ([]string, error) {
	r.recordRequest()

	subjects, err := r.client.GetSubjects()
	if err != nil {
		r.recordError()
		return nil, fmt.Errorf("failed to get subjects: %w", err)
	}

	return subjects, nil
}

// Close stops the cache janitor and logs client statistics
func (r *schemaRegistry) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	r.logger.Info("Closing schema registry client", zap.Any("stats", r.GetStats()))
	return nil
}

// Cache management methods

func (r *schemaRegistry) getFromCache(schemaID int) *SchemaMetadata {
	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()

	cached, exists := r.cache[schemaID]
	if !exists || time.Now().After(cached.expiresAt) {
		return nil
	}

	return cached.metadata
}

func (r *schemaRegistry) addToCache(schemaID int, metadata *SchemaMetadata) {
	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()

	if len(r.cache) >= r.config.CacheSize {
		r.evictExpired()

		// Still full: drop an arbitrary entry
		if len(r.cache) >= r.config.CacheSize {
			for id := range r.cache {
				delete(r.cache, id)
				break
			}
		}
	}

	r.cache[schemaID] = &cachedSchema{
		metadata:  metadata,
		expiresAt: time.Now().Add(r.config.CacheTTL),
	}
}

func (r *schemaRegistry) evictExpired() {
	now := time.Now()
	for id, cached := range r.cache {
		if now.After(cached.expiresAt) {
			delete(r.cache, id)
		}
	}
}

func (r *schemaRegistry) cleanupCache() {
	ticker := time.NewTicker(r.config.CacheTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.cacheMutex.Lock()
			r.evictExpired()
			r.cacheMutex.Unlock()
		}
	}
}

// Metrics methods

func (r *schemaRegistry) recordRequest() {
	r.stats.Lock()
	r.stats.requests++
	r.stats.Unlock()
}

func (r *schemaRegistry) recordError() {
	r.stats.Lock()
	r.stats.errors++
	r.stats.Unlock()
}

func (r *schemaRegistry) recordCacheHit() {
	r.stats.Lock()
	r.stats.cacheHits++
	r.stats.Unlock()
}

func (r *schemaRegistry) recordCacheMiss() {
	r.stats.Lock()
	r.stats.cacheMisses++
	r.stats.Unlock()
}

// GetStats returns current registry statistics
func (r *schemaRegistry) GetStats() map[string]int64 {
	r.stats.RLock()
	defer r.stats.RUnlock()

	return map[string]int64{
		"cache_hits":   r.stats.cacheHits,
		"cache_misses": r.stats.cacheMisses,
		"errors":       r.stats.errors,
		"requests":     r.stats.requests,
	}
}

// LocalRegistry is an in-process registry used when no registry URL is
// configured. Ids are assigned sequentially from 1 and identical schemas
// registered under the same subject keep their id.
type LocalRegistry struct {
	mu       sync.RWMutex
	nextID   int
	byID     map[int]*SchemaMetadata
	subjects map[string][]*SchemaMetadata
}

// NewLocalRegistry creates an empty in-process registry
func NewLocalRegistry() *LocalRegistry {
	return &LocalRegistry{
		nextID:   1,
		byID:     make(map[int]*SchemaMetadata),
		subjects: make(map[string][]*SchemaMetadata),
	}
}

// GetSchema retrieves a schema by ID
func (r *LocalRegistry) GetSchema(ctx context.Context, schemaID int) (*SchemaMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, ok := r.byID[schemaID]
	if !ok {
		return nil, fmt.Errorf("schema %d: %w", schemaID, ErrSchemaNotFound)
	}
	return metadata, nil
}

// GetLatestSchema retrieves the latest version registered under subject
func (r *LocalRegistry) GetLatestSchema(ctx context.Context, subject string) (*SchemaMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.subjects[subject]
	if len(versions) == 0 {
		return nil, fmt.Errorf("subject %s: %w", subject, ErrSchemaNotFound)
	}
	return versions[len(versions)-1], nil
}

// RegisterSchema adds a new version to subject unless the latest is identical
func (r *LocalRegistry) RegisterSchema(ctx context.Context, subject string, schema string, schemaType SchemaType) (*SchemaMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.subjects[subject]
	if n := len(versions); n > 0 && versions[n-1].Schema == schema {
		return versions[n-1], nil
	}

	metadata := &SchemaMetadata{
		ID:         r.nextID,
		Version:    len(versions) + 1,
		Schema:     schema,
		Subject:    subject,
		SchemaType: schemaType,
	}
	r.nextID++
	r.byID[metadata.ID] = metadata
	r.subjects[subject] = append(versions, metadata)

	return metadata, nil
}

// GetSubjects lists registered subjects in name order
func (r *LocalRegistry) GetSubjects(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subjects := make([]string, 0, len(r.subjects))
	for s := range r.subjects {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects, nil
}

// Close is a no-op
func (r *LocalRegistry) Close() error {
	return nil
}
