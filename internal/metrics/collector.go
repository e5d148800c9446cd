// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
//
// 同时满足 cache.Recorder、cache.ExecutionRecorder 与
// context.SelectionObserver，可直接注入对应组件。
type Collector struct {
	// 缓存指标
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	cacheRejected  *prometheus.CounterVec

	// 工具执行指标
	toolExecutions        *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	// 上下文选择指标
	topicDecisions       *prometheus.CounterVec
	promptWindowMessages prometheus.Histogram
	promptWindowDropped  prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses, stale entries included",
		},
		[]string{"cache_type"},
	)

	c.cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of entries evicted for capacity",
		},
		[]string{"cache_type"},
	)

	c.cacheRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_rejected_total",
			Help:      "Total number of results not cached",
		},
		[]string{"cache_type", "reason"}, // reason: oversize, encode
	)

	// 工具执行指标
	c.toolExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Total number of tool calls by outcome",
		},
		[]string{"tool", "outcome"}, // outcome: hit, miss, shared, excluded, error
	)

	c.toolExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_execution_duration_seconds",
			Help:      "Tool call duration in seconds, cache hits included",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	// 上下文选择指标
	c.topicDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_decisions_total",
			Help:      "Total number of topic shift decisions",
		},
		[]string{"shift", "reason"},
	)

	c.promptWindowMessages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_window_messages",
			Help:      "Messages per assembled prompt window, new message included",
			Buckets:   []float64{1, 2, 3, 5, 8, 12, 17, 25},
		},
	)

	c.promptWindowDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_window_dropped_total",
			Help:      "History messages dropped by char or token limits",
		},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordCacheEviction 记录容量淘汰
func (c *Collector) RecordCacheEviction(cacheType string) {
	c.cacheEvictions.WithLabelValues(cacheType).Inc()
}

// RecordCacheRejected 记录未缓存的结果
func (c *Collector) RecordCacheRejected(cacheType, reason string) {
	c.cacheRejected.WithLabelValues(cacheType, reason).Inc()
}

// =============================================================================
// 🔧 工具执行指标记录
// =============================================================================

// RecordToolExecution 记录一次工具调用
func (c *Collector) RecordToolExecution(tool, outcome string, duration time.Duration) {
	c.toolExecutions.WithLabelValues(tool, outcome).Inc()
	c.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// =============================================================================
// 🧭 上下文选择指标记录
// =============================================================================

// RecordTopicDecision 记录话题判定
func (c *Collector) RecordTopicDecision(shift bool, reason string) {
	c.topicDecisions.WithLabelValues(strconv.FormatBool(shift), reason).Inc()
}

// RecordPromptWindow 记录窗口大小与丢弃数
func (c *Collector) RecordPromptWindow(messages, dropped int) {
	c.promptWindowMessages.Observe(float64(messages))
	if dropped > 0 {
		c.promptWindowDropped.Add(float64(dropped))
	}
}
