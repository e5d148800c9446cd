package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolResult_TaggedPayload(t *testing.T) {
	t.Parallel()

	res, err := NewToolResult(MetricSummary{Metric: "hrv", Unit: "ms", Count: 30, Mean: 54.2, Min: 31, Max: 88})
	require.NoError(t, err)
	assert.Equal(t, ToolSummarizeMetric, res.Tool)

	payload, err := res.Decode()
	require.NoError(t, err)
	summary, ok := payload.(*MetricSummary)
	require.True(t, ok)
	assert.Equal(t, "hrv", summary.Metric)
	assert.Equal(t, 30, summary.Count)
}

func TestToolResult_EachRegisteredTool(t *testing.T) {
	t.Parallel()

	payloads := []ToolPayload{
		MetricSummary{Metric: "sleep_minutes"},
		PeriodComparison{Metric: "resting_hr", BaselineMean: 58, CurrentMean: 61, DeltaPercent: 5.2},
		MetricCorrelation{MetricA: "hrv", MetricB: "sleep_minutes", Pearson: 0.41, Samples: 90},
	}
	for _, p := range payloads {
		res, err := NewToolResult(p)
		require.NoError(t, err)
		decoded, err := res.Decode()
		require.NoError(t, err)
		assert.Equal(t, p.ToolName(), decoded.ToolName())
	}
}

func TestToolResult_UnknownTool(t *testing.T) {
	t.Parallel()

	_, err := ToolResult{Tool: "mystery", Data: []byte(`{}`)}.Decode()
	assert.True(t, IsErrorCode(err, ErrUnknownTool))

	var generic map[string]any
	require.NoError(t, ToolResult{Tool: "mystery", Data: []byte(`{"a":1}`)}.DecodeInto(&generic))
	assert.Equal(t, float64(1), generic["a"])
}

func TestToolResult_DecodeFailures(t *testing.T) {
	t.Parallel()

	_, err := ToolResult{Tool: ToolComparePeriods}.Decode()
	assert.True(t, IsErrorCode(err, ErrDecodeFailed))

	_, err = ToolResult{Tool: ToolComparePeriods, Data: []byte(`{not json`)}.Decode()
	assert.True(t, IsErrorCode(err, ErrDecodeFailed))

	_, err = NewToolResult(nil)
	assert.True(t, IsErrorCode(err, ErrInvalidRequest))
}
