package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotZero(t, cfg.Cache.MaxEntries)
	assert.NotEqual(t, PromptConfig{}, cfg.Prompt)
	assert.NotEqual(t, TopicConfig{}, cfg.Topic)
	assert.NotZero(t, cfg.Log.Level)
	assert.NotEqual(t, MetricsConfig{}, cfg.Metrics)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultCacheConfig(t *testing.T) {
	cfg := DefaultCacheConfig()
	assert.Equal(t, 200, cfg.MaxEntries)
	assert.Equal(t, 256*1024, cfg.MaxEntryBytes)
	assert.Equal(t, 10*time.Minute, cfg.DefaultMaxAge)
	assert.NotNil(t, cfg.ToolMaxAge)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "canonical", cfg.KeyStrategy)
}

func TestDefaultPromptConfig(t *testing.T) {
	cfg := DefaultPromptConfig()
	assert.Equal(t, 16, cfg.MaxTurnsSameTopic)
	assert.Equal(t, 4, cfg.MaxTurnsNewTopic)
	assert.Equal(t, 12000, cfg.MaxChars)
	assert.Zero(t, cfg.MaxTokens)
	assert.Equal(t, 6, cfg.TopicLookback)
	assert.Empty(t, cfg.TokenizerModel)
}

func TestDefaultTopicConfig(t *testing.T) {
	cfg := DefaultTopicConfig()
	assert.Equal(t, 2, cfg.ShortAckMaxTokens)
	assert.Equal(t, 0.2, cfg.MinOverlap)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
	assert.True(t, cfg.EnableCaller)
	assert.False(t, cfg.EnableStacktrace)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "assistcore", cfg.ServiceName)
	assert.Equal(t, 0.1, cfg.SampleRate)
}
