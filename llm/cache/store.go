package cache

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitalsight/assistcore/types"
)

// StoreConfig bounds a ResultStore.
type StoreConfig struct {
	MaxEntries    int `json:"max_entries" yaml:"max_entries"`
	MaxEntryBytes int `json:"max_entry_bytes" yaml:"max_entry_bytes"`
}

// Defaults used when a StoreConfig field is not positive.
const (
	DefaultMaxEntries    = 200
	DefaultMaxEntryBytes = 256 * 1024
)

// DefaultStoreConfig returns sensible defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MaxEntries:    DefaultMaxEntries,
		MaxEntryBytes: DefaultMaxEntryBytes,
	}
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.MaxEntryBytes <= 0 {
		c.MaxEntryBytes = DefaultMaxEntryBytes
	}
	return c
}

// StoreOption customizes a ResultStore.
type StoreOption func(*ResultStore)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *ResultStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *ResultStore) {
		if logger != nil {
			s.logger = logger.With(zap.String("component", "tool_cache"))
		}
	}
}

// WithRecorder forwards cache events to r.
func WithRecorder(r Recorder) StoreOption {
	return func(s *ResultStore) {
		if r != nil {
			s.recorder = r
		}
	}
}

// ResultStore is a bounded key → tool result store. Entries keep a private
// copy of the serialized payload, so they are immutable once stored and a
// hit returns the stored bytes unchanged. Freshness is decided
// by the reader: Lookup takes the maximum acceptable age. When the entry
// count exceeds MaxEntries the entry with the oldest creation time goes
// first; equal timestamps fall back to insertion order.
//
// No method returns an error. Anything that cannot be cached degrades to a
// miss.
type ResultStore struct {
	mu       sync.Mutex
	entries  map[string]*storeEntry
	seq      uint64
	config   StoreConfig
	now      func() time.Time
	logger   *zap.Logger
	recorder Recorder
	stats    Stats
}

type storeEntry struct {
	key       string
	tool      string
	data      []byte // ToolResult.Data exactly as stored
	createdAt time.Time
	size      int
	seq       uint64
}

// NewResultStore creates a store. Non-positive config fields take defaults.
func NewResultStore(config StoreConfig, opts ...StoreOption) *ResultStore {
	s := &ResultStore{
		entries:  make(map[string]*storeEntry),
		config:   config.withDefaults(),
		now:      time.Now,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *ResultStore) Config() StoreConfig {
	return s.config
}

// Lookup returns the result stored under key if it is at most maxAge old.
// A stale entry is deleted by the lookup that finds it. A negative maxAge
// treats every entry as stale.
func (s *ResultStore) Lookup(key string, maxAge time.Duration) (types.ToolResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.missLocked()
		return types.ToolResult{}, false
	}

	age := s.now().Sub(entry.createdAt)
	if maxAge < 0 || age > maxAge {
		delete(s.entries, key)
		s.stats.Stale++
		s.missLocked()
		s.logger.Debug("stale tool result purged",
			zap.String("key", key),
			zap.Duration("age", age),
			zap.Duration("max_age", maxAge))
		return types.ToolResult{}, false
	}

	result := types.ToolResult{Tool: entry.tool, Data: bytes.Clone(entry.data)}

	s.stats.Hits++
	s.recorder.RecordCacheHit(CacheTypeToolResult)
	s.logger.Debug("cache hit",
		zap.String("tool", result.Tool),
		zap.Duration("age", age))
	return result, true
}

// Store saves result under key with the current time. A result whose
// serialized size exceeds MaxEntryBytes is not stored and any existing
// entry under key is removed, so later lookups of key miss.
func (s *ResultStore) Store(key string, result types.ToolResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.recorder.RecordCacheRejected(CacheTypeToolResult, RejectEncode)
		s.logger.Debug("tool result not cacheable", zap.String("tool", result.Tool), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) > s.config.MaxEntryBytes {
		// A key whose latest result is too large must not keep serving an
		// older one.
		delete(s.entries, key)
		s.stats.Oversize++
		s.recorder.RecordCacheRejected(CacheTypeToolResult, RejectOversize)
		s.logger.Debug("tool result exceeds entry size cap",
			zap.String("tool", result.Tool),
			zap.Int("bytes", len(data)),
			zap.Int("max_bytes", s.config.MaxEntryBytes))
		return
	}

	s.seq++
	s.entries[key] = &storeEntry{
		key:       key,
		tool:      result.Tool,
		data:      bytes.Clone(result.Data),
		createdAt: s.now(),
		size:      len(data),
		seq:       s.seq,
	}
	s.evictLocked()

	s.logger.Debug("cached tool result",
		zap.String("tool", result.Tool),
		zap.Int("bytes", len(data)),
		zap.Int("entries", len(s.entries)))
}

// Delete removes key if present.
func (s *ResultStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Clear removes all entries. Counters are kept.
func (s *ResultStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*storeEntry)
}

// Len returns the number of entries, stale ones included.
func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Size returns the total serialized bytes held.
func (s *ResultStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, e := range s.entries {
		total += e.size
	}
	return total
}

// Stats returns a snapshot of cache statistics.
func (s *ResultStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Entries = len(s.entries)
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

func (s *ResultStore) missLocked() {
	s.stats.Misses++
	s.recorder.RecordCacheMiss(CacheTypeToolResult)
}

func (s *ResultStore) evictLocked() {
	for len(s.entries) > s.config.MaxEntries {
		var oldest *storeEntry
		for _, e := range s.entries {
			if oldest == nil || olderThan(e, oldest) {
				oldest = e
			}
		}
		if oldest == nil {
			return
		}
		delete(s.entries, oldest.key)
		s.stats.Evictions++
		s.recorder.RecordCacheEviction(CacheTypeToolResult)
		s.logger.Debug("evicted tool result", zap.String("key", oldest.key))
	}
}

func olderThan(a, b *storeEntry) bool {
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.seq < b.seq
}
