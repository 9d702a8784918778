package core

import (
	"fmt"
	"os"
	"sync"
	"time"

	"bytescan/dtype"
)

// DefaultSchemaCacheEntries bounds the schema cache when none is configured.
const DefaultSchemaCacheEntries = 256

// SchemaCacheConfig holds configuration for the schema cache
type SchemaCacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries"` // zero or less means unbounded
	TTL        time.Duration `mapstructure:"ttl"`         // zero means entries never expire
}

type schemaCacheEntry struct {
	schema    *dtype.Schema
	createdAt time.Time
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Lookups   int64
	Entries   int
}

// HitRate returns the hit rate as a percentage
func (s CacheStats) HitRate() float64 {
	if s.Lookups == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(s.Lookups) * 100.0
}

// SchemaCache remembers schemas read from file metadata or inferred from
// file contents. Local files are keyed by path, size and modification
// time, so a rewritten file is read again. Eviction is least recently used.
type SchemaCache struct {
	config   SchemaCacheConfig
	entries  map[string]*schemaCacheEntry
	keyOrder []string // least recently used first
	mutex    sync.Mutex
	stats    CacheStats
}

// NewSchemaCache creates an empty cache.
func NewSchemaCache(config SchemaCacheConfig) *SchemaCache {
	return &SchemaCache{
		config:  config,
		entries: make(map[string]*schemaCacheEntry),
	}
}

// GetOrLoad returns the cached schema of location, calling load on a miss.
// variant separates schemas of one file read with different options, such
// as a CSV delimiter. Load errors are returned and not cached. A nil cache
// always loads.
func (sc *SchemaCache) GetOrLoad(location, variant string, load func() (*dtype.Schema, error)) (*dtype.Schema, error) {
	if sc == nil {
		return load()
	}
	key := cacheKey(location) + "|" + variant

	if schema, ok := sc.get(key); ok {
		GetTracer().Verbose(TraceComponentSchema, "Schema cache hit", TraceContext("location", location))
		return schema, nil
	}
	schema, err := load()
	if err != nil {
		return nil, err
	}
	sc.put(key, schema)
	return schema, nil
}

func cacheKey(location string) string {
	if IsRemote(location) {
		return location
	}
	info, err := os.Stat(location)
	if err != nil {
		return location
	}
	return fmt.Sprintf("%s|%d|%d", location, info.Size(), info.ModTime().UnixNano())
}

func (sc *SchemaCache) get(key string) (*dtype.Schema, bool) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.stats.Lookups++
	entry, exists := sc.entries[key]
	if !exists {
		sc.stats.Misses++
		return nil, false
	}
	if sc.isExpired(entry) {
		sc.removeEntry(key)
		sc.stats.Misses++
		return nil, false
	}

	sc.moveToEnd(key)
	sc.stats.Hits++
	return entry.schema, true
}

func (sc *SchemaCache) put(key string, schema *dtype.Schema) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if _, exists := sc.entries[key]; exists {
		sc.removeEntry(key)
	}
	sc.entries[key] = &schemaCacheEntry{schema: schema, createdAt: time.Now()}
	sc.keyOrder = append(sc.keyOrder, key)

	for sc.config.MaxEntries > 0 && len(sc.keyOrder) > sc.config.MaxEntries {
		sc.removeEntry(sc.keyOrder[0])
		sc.stats.Evictions++
	}
}

func (sc *SchemaCache) isExpired(entry *schemaCacheEntry) bool {
	if sc.config.TTL <= 0 {
		return false
	}
	return time.Since(entry.createdAt) > sc.config.TTL
}

// moveToEnd marks key as most recently used
func (sc *SchemaCache) moveToEnd(key string) {
	for i, k := range sc.keyOrder {
		if k == key {
			sc.keyOrder = append(sc.keyOrder[:i], sc.keyOrder[i+1:]...)
			break
		}
	}
	sc.keyOrder = append(sc.keyOrder, key)
}

func (sc *SchemaCache) removeEntry(key string) {
	if _, exists := sc.entries[key]; !exists {
		return
	}
	delete(sc.entries, key)
	for i, k := range sc.keyOrder {
		if k == key {
			sc.keyOrder = append(sc.keyOrder[:i], sc.keyOrder[i+1:]...)
			break
		}
	}
}

// Clear removes all entries from the cache
func (sc *SchemaCache) Clear() {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.entries = make(map[string]*schemaCacheEntry)
	sc.keyOrder = nil
}

// Stats returns current cache statistics
func (sc *SchemaCache) Stats() CacheStats {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	stats := sc.stats
	stats.Entries = len(sc.entries)
	return stats
}
