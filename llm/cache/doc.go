// Copyright (c) VitalSight Authors.
// Licensed under the MIT License.

/*
Package cache caches the results of expensive tool invocations in process.

# Overview

A tool call (name + arbitrary nested parameters) evaluated against the
currently loaded data yields the same answer until the data changes. The
cache key therefore combines the call with a DataFingerprint, and the key
is built by a deterministic fingerprinter so that map ordering never
splits one logical call into several cache entries.

# Core types

  - Fingerprint          — canonical, order-independent, cycle-safe rendering of any value
  - MakeCacheKey         — Fingerprint of {tool, params, fingerprint}
  - KeyStrategy          — canonical keys or compact BLAKE3 digests
  - ResultStore          — bounded store: entry cap, per-entry byte cap, read-time staleness
  - Holder               — idempotent, injectable owner of the process-wide ResultStore
  - CachingToolExecutor  — wraps a ToolExecutor; singleflight on misses, OTel spans

# Usage

	holder := cache.NewHolder(logger)
	store := holder.Get(cache.DefaultStoreConfig(), cache.WithLogger(logger))
	key := cache.MakeCacheKey(call, fingerprint)
	if res, ok := store.Lookup(key, 5*time.Minute); ok {
		return res
	}
	res, err := backend.Execute(ctx, call)
	if err == nil {
		store.Store(key, res)
	}

The cache is a performance optimization only: nothing is persisted, nothing
is shared across processes and a value may be computed more than once.
*/
package cache
