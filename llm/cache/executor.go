package cache

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vitalsight/assistcore/types"
)

const tracerName = "github.com/vitalsight/assistcore/llm/cache"

// ToolExecutor runs a tool call for real. It lives outside this module.
type ToolExecutor interface {
	Execute(ctx context.Context, call types.ToolCall) (types.ToolResult, error)
}

// ToolExecutorFunc adapts a function to ToolExecutor.
type ToolExecutorFunc func(ctx context.Context, call types.ToolCall) (types.ToolResult, error)

// Execute calls f.
func (f ToolExecutorFunc) Execute(ctx context.Context, call types.ToolCall) (types.ToolResult, error) {
	return f(ctx, call)
}

// DataStateProvider summarizes the currently loaded dataset so cached
// answers do not outlive the data they were computed from.
type DataStateProvider interface {
	DataFingerprint(ctx context.Context) types.DataFingerprint
}

// Execution outcomes passed to ExecutionRecorder.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeShared   = "shared"
	OutcomeExcluded = "excluded"
	OutcomeError    = "error"
)

// ExecutionRecorder receives one event per Execute call.
type ExecutionRecorder interface {
	RecordToolExecution(tool, outcome string, duration time.Duration)
}

// ExecutorConfig configures a CachingToolExecutor.
type ExecutorConfig struct {
	DefaultMaxAge  time.Duration            `json:"default_max_age"`
	ToolMaxAge     map[string]time.Duration `json:"tool_max_age"`   // Per-tool freshness
	ExcludedTools  []string                 `json:"excluded_tools"` // Tools to never cache
	MaxConcurrency int                      `json:"max_concurrency"`
	KeyStrategy    KeyStrategy              `json:"-"`
	Recorder       ExecutionRecorder        `json:"-"`
	TracerProvider trace.TracerProvider     `json:"-"` // nil uses the global provider
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultMaxAge:  10 * time.Minute,
		ToolMaxAge:     make(map[string]time.Duration),
		MaxConcurrency: 4,
		KeyStrategy:    CanonicalKeyStrategy{},
	}
}

// ExecutionResult is one tool call outcome.
type ExecutionResult struct {
	Call      types.ToolCall   `json:"call"`
	Result    types.ToolResult `json:"result"`
	Key       string           `json:"key,omitempty"`
	FromCache bool             `json:"from_cache"`
	Shared    bool             `json:"shared"` // Result came from a concurrent identical call
	Duration  time.Duration    `json:"duration"`
	Err       error            `json:"-"`
}

// CachingToolExecutor wraps a ToolExecutor with a ResultStore. Concurrent
// misses on the same key share one backend execution; failed executions
// are never cached.
type CachingToolExecutor struct {
	executor ToolExecutor
	data     DataStateProvider
	store    *ResultStore
	config   ExecutorConfig
	group    singleflight.Group
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewCachingToolExecutor creates a caching tool executor. data may be nil,
// in which case every call is keyed against an empty fingerprint; a nil
// store gets a private one with default bounds.
func NewCachingToolExecutor(executor ToolExecutor, data DataStateProvider, store *ResultStore, config ExecutorConfig, logger *zap.Logger) *CachingToolExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyStrategy == nil {
		config.KeyStrategy = CanonicalKeyStrategy{}
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	if store == nil {
		store = NewResultStore(DefaultStoreConfig(), WithLogger(logger))
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &CachingToolExecutor{
		executor: executor,
		data:     data,
		store:    store,
		config:   config,
		tracer:   tp.Tracer(tracerName),
		logger:   logger.With(zap.String("component", "caching_executor")),
	}
}

// Execute returns a cached result for call when a fresh one exists and
// otherwise runs the wrapped executor and caches its result.
func (e *CachingToolExecutor) Execute(ctx context.Context, call types.ToolCall) (ExecutionResult, error) {
	if call.Name == "" {
		return ExecutionResult{Call: call}, types.NewError(types.ErrInvalidRequest, "tool call without name")
	}
	if call.ID == "" {
		call.ID = uuid.NewString()
	}

	ctx, span := e.tracer.Start(ctx, "tool_cache.execute",
		trace.WithAttributes(
			attribute.String("tool.name", call.Name),
			attribute.String("tool.call_id", call.ID),
		))
	defer span.End()

	start := time.Now()
	out := ExecutionResult{Call: call}

	if e.isExcluded(call.Name) {
		result, err := e.executor.Execute(ctx, call)
		out.Duration = time.Since(start)
		if err != nil {
			return out, e.fail(span, call, err, out.Duration)
		}
		out.Result = result
		span.SetAttributes(attribute.Bool("cache.excluded", true))
		e.record(call.Name, OutcomeExcluded, out.Duration)
		return out, nil
	}

	var fp types.DataFingerprint
	if e.data != nil {
		fp = e.data.DataFingerprint(ctx)
	}
	out.Key = e.config.KeyStrategy.Key(call, fp)

	if result, ok := e.store.Lookup(out.Key, e.maxAge(call.Name)); ok {
		out.Result = result
		out.FromCache = true
		out.Duration = time.Since(start)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		e.record(call.Name, OutcomeHit, out.Duration)
		e.logger.Debug("tool result served from cache", e.logFields(ctx, call)...)
		return out, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// The shared execution outlives any single caller; each caller only
	// stops waiting when its own ctx is done.
	flightCtx := context.WithoutCancel(ctx)
	ch := e.group.DoChan(out.Key, func() (any, error) {
		result, err := e.executor.Execute(flightCtx, call)
		if err != nil {
			return nil, err
		}
		e.store.Store(out.Key, result)
		return result, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		out.Duration = time.Since(start)
		return out, e.fail(span, call, ctx.Err(), out.Duration)
	}
	out.Duration = time.Since(start)
	out.Shared = res.Shared
	if res.Err != nil {
		return out, e.fail(span, call, res.Err, out.Duration)
	}
	out.Result = res.Val.(types.ToolResult)
	shared := res.Shared
	if shared {
		e.record(call.Name, OutcomeShared, out.Duration)
	} else {
		e.record(call.Name, OutcomeMiss, out.Duration)
	}

	e.logger.Debug("tool executed",
		append(e.logFields(ctx, call),
			zap.Bool("shared", shared),
			zap.Duration("duration", out.Duration))...)
	return out, nil
}

// ExecuteAll runs calls concurrently, at most MaxConcurrency at a time.
// Results keep the order of calls; per-call failures are reported in
// ExecutionResult.Err and do not stop the other calls.
func (e *CachingToolExecutor) ExecuteAll(ctx context.Context, calls []types.ToolCall) []ExecutionResult {
	results := make([]ExecutionResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.MaxConcurrency)
	for i, call := range calls {
		g.Go(func() error {
			res, err := e.Execute(gctx, call)
			res.Err = err
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Store exposes the underlying result store.
func (e *CachingToolExecutor) Store() *ResultStore {
	return e.store
}

func (e *CachingToolExecutor) maxAge(toolName string) time.Duration {
	if age, ok := e.config.ToolMaxAge[toolName]; ok {
		return age
	}
	return e.config.DefaultMaxAge
}

func (e *CachingToolExecutor) isExcluded(toolName string) bool {
	return slices.Contains(e.config.ExcludedTools, toolName)
}

func (e *CachingToolExecutor) record(tool, outcome string, d time.Duration) {
	if e.config.Recorder != nil {
		e.config.Recorder.RecordToolExecution(tool, outcome, d)
	}
}

func (e *CachingToolExecutor) fail(span trace.Span, call types.ToolCall, err error, d time.Duration) error {
	e.record(call.Name, OutcomeError, d)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Warn("tool execution failed",
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID),
		zap.Error(err))
	if te, ok := types.AsError(err); ok {
		return te
	}
	return types.NewError(types.ErrToolExecution, "tool execution failed").
		WithTool(call.Name).
		WithCause(err)
}

func (e *CachingToolExecutor) logFields(ctx context.Context, call types.ToolCall) []zap.Field {
	fields := []zap.Field{
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID),
	}
	if id, ok := types.ConversationID(ctx); ok {
		fields = append(fields, zap.String("conversation_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	return fields
}
