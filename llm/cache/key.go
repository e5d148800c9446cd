package cache

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/vitalsight/assistcore/types"
)

// MakeCacheKey builds the canonical key for a tool call evaluated against a
// data fingerprint: the Fingerprint of {tool, params, fingerprint}. The call
// ID is deliberately left out.
func MakeCacheKey(call types.ToolCall, fp types.DataFingerprint) string {
	return Fingerprint(map[string]any{
		"tool":        call.Name,
		"params":      call.Params,
		"fingerprint": fp,
	})
}

// KeyStrategy turns a tool call and data fingerprint into a cache key.
type KeyStrategy interface {
	// Key returns the cache key.
	Key(call types.ToolCall, fp types.DataFingerprint) string

	// Name returns the strategy name (used in config and logs).
	Name() string
}

// Key strategy names accepted by NewKeyStrategy.
const (
	KeyStrategyCanonical = "canonical"
	KeyStrategyDigest    = "digest"
)

// CanonicalKeyStrategy uses MakeCacheKey verbatim.
type CanonicalKeyStrategy struct{}

// Name 返回策略名称
func (CanonicalKeyStrategy) Name() string { return KeyStrategyCanonical }

// Key returns MakeCacheKey(call, fp).
func (CanonicalKeyStrategy) Key(call types.ToolCall, fp types.DataFingerprint) string {
	return MakeCacheKey(call, fp)
}

// DigestKeyStrategy hashes the canonical key with BLAKE3-256 and keeps the
// tool name readable: "tool:<name>:<hex digest>". Keys are bounded in size,
// which keeps log lines and metric labels short for large parameter bags.
type DigestKeyStrategy struct{}

// Name 返回策略名称
func (DigestKeyStrategy) Name() string { return KeyStrategyDigest }

// Key returns the digest form of MakeCacheKey(call, fp).
func (DigestKeyStrategy) Key(call types.ToolCall, fp types.DataFingerprint) string {
	sum := blake3.Sum256([]byte(MakeCacheKey(call, fp)))
	return "tool:" + call.Name + ":" + hex.EncodeToString(sum[:])
}

// NewKeyStrategy resolves a strategy by name. Empty selects canonical.
func NewKeyStrategy(name string) (KeyStrategy, error) {
	switch name {
	case "", KeyStrategyCanonical:
		return CanonicalKeyStrategy{}, nil
	case KeyStrategyDigest:
		return DigestKeyStrategy{}, nil
	default:
		return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("unknown key strategy %q", name))
	}
}
