// =============================================================================
// 📦 assistcore 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("assistcore.yaml").
//	    WithEnvPrefix("ASSISTCORE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	agentctx "github.com/vitalsight/assistcore/agent/context"
	"github.com/vitalsight/assistcore/llm/cache"
	"github.com/vitalsight/assistcore/types"
)

// DefaultEnvPrefix 是环境变量的默认前缀
const DefaultEnvPrefix = "ASSISTCORE"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 assistcore 的完整配置结构
type Config struct {
	// Cache 工具结果缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Prompt 历史窗口预算
	Prompt PromptConfig `yaml:"prompt" env:"PROMPT"`

	// Topic 话题切换判定阈值
	Topic TopicConfig `yaml:"topic" env:"TOPIC"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// CacheConfig 工具结果缓存配置
type CacheConfig struct {
	// 最大条目数
	MaxEntries int `yaml:"max_entries" env:"MAX_ENTRIES"`
	// 单条序列化结果的字节上限
	MaxEntryBytes int `yaml:"max_entry_bytes" env:"MAX_ENTRY_BYTES"`
	// 默认最大可接受年龄
	DefaultMaxAge time.Duration `yaml:"default_max_age" env:"DEFAULT_MAX_AGE"`
	// 按工具覆盖的最大年龄，环境变量格式: tool=5m,other=0s
	ToolMaxAge map[string]time.Duration `yaml:"tool_max_age" env:"TOOL_MAX_AGE"`
	// 不缓存的工具
	ExcludedTools []string `yaml:"excluded_tools" env:"EXCLUDED_TOOLS"`
	// ExecuteAll 并发上限
	MaxConcurrency int `yaml:"max_concurrency" env:"MAX_CONCURRENCY"`
	// 键策略: canonical, digest
	KeyStrategy string `yaml:"key_strategy" env:"KEY_STRATEGY"`
}

// PromptConfig 历史窗口预算
type PromptConfig struct {
	// 话题延续时的最大轮数
	MaxTurnsSameTopic int `yaml:"max_turns_same_topic" env:"MAX_TURNS_SAME_TOPIC"`
	// 话题切换时的最大轮数
	MaxTurnsNewTopic int `yaml:"max_turns_new_topic" env:"MAX_TURNS_NEW_TOPIC"`
	// 字符上限（按 Unicode 字符计）
	MaxChars int `yaml:"max_chars" env:"MAX_CHARS"`
	// Token 上限，0 表示不检查
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 用于话题判定的最近消息数
	TopicLookback int `yaml:"topic_lookback" env:"TOPIC_LOOKBACK"`
	// Token 计数所用模型，空表示使用估算器
	TokenizerModel string `yaml:"tokenizer_model" env:"TOKENIZER_MODEL"`
}

// TopicConfig 话题切换判定阈值
type TopicConfig struct {
	// 内容词不超过该数量视为短确认
	ShortAckMaxTokens int `yaml:"short_ack_max_tokens" env:"SHORT_ACK_MAX_TOKENS"`
	// 重叠率低于该值视为切换
	MinOverlap float64 `yaml:"min_overlap" env:"MIN_OVERLAP"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Prometheus 命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量，随后执行 Validate 与自定义验证器
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			field.Set(reflect.ValueOf(splitList(value)))
		}

	case reflect.Map:
		// 支持 key=duration 列表
		if field.Type().Key().Kind() == reflect.String && field.Type().Elem() == durationType {
			m, err := parseDurationMap(value)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(m))
		}
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDurationMap(value string) (map[string]time.Duration, error) {
	m := make(map[string]time.Duration)
	for _, pair := range splitList(value) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=duration, got %q", pair)
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("duration for %q: %w", k, err)
		}
		m[strings.TrimSpace(k)] = d
	}
	return m, nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 缓存
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, "cache.max_entries must be positive")
	}
	if c.Cache.MaxEntryBytes <= 0 {
		errs = append(errs, "cache.max_entry_bytes must be positive")
	}
	if c.Cache.DefaultMaxAge < 0 {
		errs = append(errs, "cache.default_max_age must not be negative")
	}
	for tool, age := range c.Cache.ToolMaxAge {
		if age < 0 {
			errs = append(errs, fmt.Sprintf("cache.tool_max_age[%s] must not be negative", tool))
		}
	}
	if _, err := cache.NewKeyStrategy(c.Cache.KeyStrategy); err != nil {
		errs = append(errs, "cache.key_strategy must be canonical or digest")
	}

	// Prompt 窗口
	if c.Prompt.MaxTurnsSameTopic <= 0 {
		errs = append(errs, "prompt.max_turns_same_topic must be positive")
	}
	if c.Prompt.MaxTurnsNewTopic <= 0 {
		errs = append(errs, "prompt.max_turns_new_topic must be positive")
	}
	if c.Prompt.MaxChars <= 0 {
		errs = append(errs, "prompt.max_chars must be positive")
	}
	if c.Prompt.MaxTokens < 0 {
		errs = append(errs, "prompt.max_tokens must not be negative")
	}
	if c.Prompt.TopicLookback <= 0 {
		errs = append(errs, "prompt.topic_lookback must be positive")
	}

	// 话题判定
	if c.Topic.ShortAckMaxTokens < 0 {
		errs = append(errs, "topic.short_ack_max_tokens must not be negative")
	}
	if c.Topic.MinOverlap <= 0 || c.Topic.MinOverlap > 1 {
		errs = append(errs, "topic.min_overlap must be in (0, 1]")
	}

	// 遥测
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("config validation errors: %s", strings.Join(errs, "; ")))
	}

	return nil
}

// =============================================================================
// 🔁 组件配置转换
// =============================================================================

// StoreConfig 返回结果缓存的容量配置
func (c CacheConfig) StoreConfig() cache.StoreConfig {
	return cache.StoreConfig{
		MaxEntries:    c.MaxEntries,
		MaxEntryBytes: c.MaxEntryBytes,
	}
}

// ExecutorConfig 返回缓存执行器配置
func (c CacheConfig) ExecutorConfig() (cache.ExecutorConfig, error) {
	strategy, err := cache.NewKeyStrategy(c.KeyStrategy)
	if err != nil {
		return cache.ExecutorConfig{}, err
	}
	toolMaxAge := make(map[string]time.Duration, len(c.ToolMaxAge))
	for k, v := range c.ToolMaxAge {
		toolMaxAge[k] = v
	}
	return cache.ExecutorConfig{
		DefaultMaxAge:  c.DefaultMaxAge,
		ToolMaxAge:     toolMaxAge,
		ExcludedTools:  append([]string(nil), c.ExcludedTools...),
		MaxConcurrency: c.MaxConcurrency,
		KeyStrategy:    strategy,
	}, nil
}

// Budget 返回 prompt 窗口预算
func (p PromptConfig) Budget() agentctx.PromptBudget {
	return agentctx.PromptBudget{
		MaxTurnsSameTopic: p.MaxTurnsSameTopic,
		MaxTurnsNewTopic:  p.MaxTurnsNewTopic,
		MaxChars:          p.MaxChars,
		MaxTokens:         p.MaxTokens,
	}
}

// SelectorConfig 返回上下文选择器配置
func (c *Config) SelectorConfig() agentctx.SelectorConfig {
	return agentctx.SelectorConfig{
		Budget: c.Prompt.Budget(),
		Detector: agentctx.DetectorConfig{
			ShortAckMaxTokens: c.Topic.ShortAckMaxTokens,
			MinOverlap:        c.Topic.MinOverlap,
		},
		TopicLookback: c.Prompt.TopicLookback,
	}
}
