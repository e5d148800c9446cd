// =============================================================================
// 📦 assistcore 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	agentctx "github.com/vitalsight/assistcore/agent/context"
	"github.com/vitalsight/assistcore/llm/cache"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Cache:     DefaultCacheConfig(),
		Prompt:    DefaultPromptConfig(),
		Topic:     DefaultTopicConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries:     cache.DefaultMaxEntries,
		MaxEntryBytes:  cache.DefaultMaxEntryBytes,
		DefaultMaxAge:  10 * time.Minute,
		ToolMaxAge:     make(map[string]time.Duration),
		ExcludedTools:  []string{},
		MaxConcurrency: 4,
		KeyStrategy:    cache.KeyStrategyCanonical,
	}
}

// DefaultPromptConfig 返回默认 prompt 窗口预算
func DefaultPromptConfig() PromptConfig {
	budget := agentctx.DefaultPromptBudget()
	return PromptConfig{
		MaxTurnsSameTopic: budget.MaxTurnsSameTopic,
		MaxTurnsNewTopic:  budget.MaxTurnsNewTopic,
		MaxChars:          budget.MaxChars,
		MaxTokens:         budget.MaxTokens,
		TopicLookback:     agentctx.DefaultTopicLookback,
		TokenizerModel:    "",
	}
}

// DefaultTopicConfig 返回默认话题判定阈值
func DefaultTopicConfig() TopicConfig {
	return TopicConfig{
		ShortAckMaxTokens: agentctx.ShortAckMaxTokens,
		MinOverlap:        agentctx.MinOverlap,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "assistcore",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "assistcore",
		SampleRate:   0.1,
	}
}
