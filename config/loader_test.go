// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsight/assistcore/llm/cache"
	"github.com/vitalsight/assistcore/types"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "assistcore.yaml")

	yamlContent := `
cache:
  max_entries: 50
  default_max_age: 2m
  tool_max_age:
    correlate_metrics: 0s
    summarize_metric: 30m
  excluded_tools: [lookup_profile]
  key_strategy: digest

prompt:
  max_turns_same_topic: 10
  max_turns_new_topic: 2
  max_chars: 4000
  tokenizer_model: gpt-4o

topic:
  min_overlap: 0.35

log:
  level: "debug"
  format: "console"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Cache.MaxEntries)
	assert.Equal(t, cache.DefaultMaxEntryBytes, cfg.Cache.MaxEntryBytes, "unset keys keep defaults")
	assert.Equal(t, 2*time.Minute, cfg.Cache.DefaultMaxAge)
	assert.Equal(t, map[string]time.Duration{
		"correlate_metrics": 0,
		"summarize_metric":  30 * time.Minute,
	}, cfg.Cache.ToolMaxAge)
	assert.Equal(t, []string{"lookup_profile"}, cfg.Cache.ExcludedTools)
	assert.Equal(t, "digest", cfg.Cache.KeyStrategy)

	assert.Equal(t, 10, cfg.Prompt.MaxTurnsSameTopic)
	assert.Equal(t, 2, cfg.Prompt.MaxTurnsNewTopic)
	assert.Equal(t, 4000, cfg.Prompt.MaxChars)
	assert.Equal(t, "gpt-4o", cfg.Prompt.TokenizerModel)
	assert.Equal(t, 6, cfg.Prompt.TopicLookback)

	assert.Equal(t, 0.35, cfg.Topic.MinOverlap)
	assert.Equal(t, 2, cfg.Topic.ShortAckMaxTokens)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Cache.MaxEntries)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("cache: [unclosed"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("ASSISTCORE_CACHE_MAX_ENTRIES", "75")
	t.Setenv("ASSISTCORE_CACHE_DEFAULT_MAX_AGE", "90s")
	t.Setenv("ASSISTCORE_CACHE_TOOL_MAX_AGE", "correlate_metrics=0s, compare_periods=1h")
	t.Setenv("ASSISTCORE_CACHE_EXCLUDED_TOOLS", "lookup_profile, export_csv")
	t.Setenv("ASSISTCORE_PROMPT_MAX_TOKENS", "3000")
	t.Setenv("ASSISTCORE_TOPIC_MIN_OVERLAP", "0.25")
	t.Setenv("ASSISTCORE_METRICS_ENABLED", "false")
	t.Setenv("ASSISTCORE_LOG_OUTPUT_PATHS", "stdout,/tmp/assistcore.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Cache.MaxEntries)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultMaxAge)
	assert.Equal(t, map[string]time.Duration{
		"correlate_metrics": 0,
		"compare_periods":   time.Hour,
	}, cfg.Cache.ToolMaxAge)
	assert.Equal(t, []string{"lookup_profile", "export_csv"}, cfg.Cache.ExcludedTools)
	assert.Equal(t, 3000, cfg.Prompt.MaxTokens)
	assert.Equal(t, 0.25, cfg.Topic.MinOverlap)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"stdout", "/tmp/assistcore.log"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "assistcore.yaml")
	yamlContent := `
prompt:
  max_turns_same_topic: 10
  max_chars: 4000
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	t.Setenv("ASSISTCORE_PROMPT_MAX_TURNS_SAME_TOPIC", "12")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Prompt.MaxTurnsSameTopic)
	assert.Equal(t, 4000, cfg.Prompt.MaxChars, "YAML value kept")
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_CACHE_KEY_STRATEGY", "digest")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, "digest", cfg.Cache.KeyStrategy)
}

func TestLoader_BadEnvValue(t *testing.T) {
	t.Setenv("ASSISTCORE_CACHE_DEFAULT_MAX_AGE", "ten minutes")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASSISTCORE_CACHE_DEFAULT_MAX_AGE")
}

func TestLoader_BadDurationMap(t *testing.T) {
	t.Setenv("ASSISTCORE_CACHE_TOOL_MAX_AGE", "correlate_metrics")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_WithValidator(t *testing.T) {
	validator := func(cfg *Config) error {
		if cfg.Prompt.MaxChars < 1000 {
			return assert.AnError
		}
		return nil
	}

	t.Setenv("ASSISTCORE_PROMPT_MAX_CHARS", "500")

	_, err := NewLoader().WithValidator(validator).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoader_ValidationRuns(t *testing.T) {
	t.Setenv("ASSISTCORE_TOPIC_MIN_OVERLAP", "1.5")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero entries", func(c *Config) { c.Cache.MaxEntries = 0 }, "cache.max_entries"},
		{"negative age", func(c *Config) { c.Cache.DefaultMaxAge = -time.Second }, "cache.default_max_age"},
		{"negative tool age", func(c *Config) { c.Cache.ToolMaxAge["x"] = -1 }, "cache.tool_max_age[x]"},
		{"unknown strategy", func(c *Config) { c.Cache.KeyStrategy = "md5" }, "cache.key_strategy"},
		{"zero new topic turns", func(c *Config) { c.Prompt.MaxTurnsNewTopic = 0 }, "prompt.max_turns_new_topic"},
		{"zero chars", func(c *Config) { c.Prompt.MaxChars = 0 }, "prompt.max_chars"},
		{"negative tokens", func(c *Config) { c.Prompt.MaxTokens = -1 }, "prompt.max_tokens"},
		{"zero overlap", func(c *Config) { c.Topic.MinOverlap = 0 }, "topic.min_overlap"},
		{"negative ack", func(c *Config) { c.Topic.ShortAckMaxTokens = -1 }, "topic.short_ack_max_tokens"},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 2 }, "telemetry.sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// --- 组件配置转换 ---

func TestCacheConfig_ExecutorConfig(t *testing.T) {
	c := DefaultCacheConfig()
	c.KeyStrategy = "digest"
	c.ToolMaxAge["correlate_metrics"] = 0
	c.ExcludedTools = []string{"export_csv"}

	ec, err := c.ExecutorConfig()
	require.NoError(t, err)
	assert.IsType(t, cache.DigestKeyStrategy{}, ec.KeyStrategy)
	assert.Equal(t, 10*time.Minute, ec.DefaultMaxAge)
	assert.Equal(t, []string{"export_csv"}, ec.ExcludedTools)

	// The executor config owns its copy.
	c.ToolMaxAge["correlate_metrics"] = time.Hour
	assert.Equal(t, time.Duration(0), ec.ToolMaxAge["correlate_metrics"])

	c.KeyStrategy = "sha1"
	_, err = c.ExecutorConfig()
	assert.Error(t, err)
}

func TestConfig_SelectorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Prompt.MaxTokens = 2048
	cfg.Topic.MinOverlap = 0.3

	sc := cfg.SelectorConfig()
	assert.Equal(t, 16, sc.Budget.MaxTurnsSameTopic)
	assert.Equal(t, 4, sc.Budget.MaxTurnsNewTopic)
	assert.Equal(t, 12000, sc.Budget.MaxChars)
	assert.Equal(t, 2048, sc.Budget.MaxTokens)
	assert.Equal(t, 0.3, sc.Detector.MinOverlap)
	assert.Equal(t, 6, sc.TopicLookback)
	assert.Equal(t, cache.StoreConfig{MaxEntries: 200, MaxEntryBytes: 256 * 1024}, cfg.Cache.StoreConfig())
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	t.Setenv("ASSISTCORE_PROMPT_MAX_CHARS", "-5")
	assert.Panics(t, func() { MustLoad("") })
}
