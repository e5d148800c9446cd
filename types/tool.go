package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// ToolCall is a request for an expensive computation. Params is an
// arbitrary nested value (maps, slices, structs, pointers) and may contain
// cycles. ID identifies the invocation only; it never takes part in caching.
type ToolCall struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Params any    `json:"params,omitempty"`
}

// DataFingerprint summarizes the data a tool call depends on. Two calls
// with the same tool, params and fingerprint may share a cached result.
type DataFingerprint struct {
	Mode        string     `json:"mode"`
	RecordCount int        `json:"record_count"`
	MetricCount int        `json:"metric_count"`
	RangeStart  *time.Time `json:"range_start"`
	RangeEnd    *time.Time `json:"range_end"`
}

// Tool identifiers with a registered typed payload.
const (
	ToolSummarizeMetric = "summarize_metric"
	ToolComparePeriods  = "compare_periods"
	ToolCorrelate       = "correlate_metrics"
)

// ToolPayload is the strongly typed body of a ToolResult. Each payload type
// belongs to exactly one tool.
type ToolPayload interface {
	ToolName() string
}

// MetricSummary is the payload of summarize_metric.
type MetricSummary struct {
	Metric string     `json:"metric"`
	Unit   string     `json:"unit,omitempty"`
	Count  int        `json:"count"`
	Mean   float64    `json:"mean"`
	Min    float64    `json:"min"`
	Max    float64    `json:"max"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
}

func (MetricSummary) ToolName() string { return ToolSummarizeMetric }

// PeriodComparison is the payload of compare_periods.
type PeriodComparison struct {
	Metric       string  `json:"metric"`
	BaselineMean float64 `json:"baseline_mean"`
	CurrentMean  float64 `json:"current_mean"`
	DeltaPercent float64 `json:"delta_percent"`
}

func (PeriodComparison) ToolName() string { return ToolComparePeriods }

// MetricCorrelation is the payload of correlate_metrics.
type MetricCorrelation struct {
	MetricA string  `json:"metric_a"`
	MetricB string  `json:"metric_b"`
	Pearson float64 `json:"pearson"`
	Samples int     `json:"samples"`
}

func (MetricCorrelation) ToolName() string { return ToolCorrelate }

var payloadFactories = map[string]func() ToolPayload{
	ToolSummarizeMetric: func() ToolPayload { return &MetricSummary{} },
	ToolComparePeriods:  func() ToolPayload { return &PeriodComparison{} },
	ToolCorrelate:       func() ToolPayload { return &MetricCorrelation{} },
}

// ToolResult is a tagged variant: Tool selects the payload type, Data holds
// its JSON encoding. Caches work on the serialized form only.
type ToolResult struct {
	Tool string          `json:"tool"`
	Data json.RawMessage `json:"data"`
}

// NewToolResult tags and encodes a typed payload.
func NewToolResult(payload ToolPayload) (ToolResult, error) {
	if payload == nil {
		return ToolResult{}, NewError(ErrInvalidRequest, "nil tool payload")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ToolResult{}, NewError(ErrDecodeFailed, "encode tool payload").WithCause(err)
	}
	return ToolResult{Tool: payload.ToolName(), Data: data}, nil
}

// Decode returns the typed payload registered for r.Tool.
func (r ToolResult) Decode() (ToolPayload, error) {
	factory, ok := payloadFactories[r.Tool]
	if !ok {
		return nil, NewError(ErrUnknownTool, fmt.Sprintf("no payload registered for tool %q", r.Tool))
	}
	p := factory()
	if err := r.DecodeInto(p); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeInto unmarshals Data into v, for tools without a registered payload.
func (r ToolResult) DecodeInto(v any) error {
	if len(r.Data) == 0 {
		return NewError(ErrDecodeFailed, fmt.Sprintf("empty payload for tool %q", r.Tool))
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return NewError(ErrDecodeFailed, fmt.Sprintf("decode payload for tool %q", r.Tool)).WithCause(err)
	}
	return nil
}
