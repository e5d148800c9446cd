package cache

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Holder hands out a single ResultStore per process. Construct one Holder
// at startup and pass it (or the store it returns) to every call site.
//
// Get is idempotent: the first call creates the store, later calls return
// the same instance and ignore their config. Two goroutines racing on the
// first call may both build a store; only one is published and both
// callers receive the published one.
type Holder struct {
	store  atomic.Pointer[ResultStore]
	logger *zap.Logger
}

// NewHolder creates an empty holder.
func NewHolder(logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{logger: logger.With(zap.String("component", "tool_cache_holder"))}
}

// Get returns the shared store, creating it from config on first use.
func (h *Holder) Get(config StoreConfig, opts ...StoreOption) *ResultStore {
	if s := h.store.Load(); s != nil {
		if s.Config() != config.withDefaults() {
			h.log().Warn("tool cache already initialized, ignoring new config",
				zap.Int("max_entries", s.Config().MaxEntries),
				zap.Int("requested_max_entries", config.MaxEntries))
		}
		return s
	}

	s := NewResultStore(config, opts...)
	if h.store.CompareAndSwap(nil, s) {
		h.log().Info("tool cache initialized",
			zap.Int("max_entries", s.Config().MaxEntries),
			zap.Int("max_entry_bytes", s.Config().MaxEntryBytes))
		return s
	}
	return h.store.Load()
}

// Adopt publishes a store created elsewhere, e.g. one that survived a
// configuration reload. If a store is already published it wins and is
// returned instead.
func (h *Holder) Adopt(existing *ResultStore) *ResultStore {
	if existing == nil {
		return h.store.Load()
	}
	if h.store.CompareAndSwap(nil, existing) {
		return existing
	}
	return h.store.Load()
}

// Current returns the published store or nil.
func (h *Holder) Current() *ResultStore {
	return h.store.Load()
}

func (h *Holder) log() *zap.Logger {
	if h.logger == nil {
		return zap.NewNop()
	}
	return h.logger
}
