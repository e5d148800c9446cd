package tokenizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vitalsight/assistcore/types"
)

func TestEstimatorTokenizer_CountTokens(t *testing.T) {
	t.Parallel()

	e := NewEstimatorTokenizer("test", 0)
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcdefgh", 2},
		{"睡眠质", 2},
		{"my HRV is 55 ms", 3},
	}
	for _, tt := range tests {
		got, err := e.CountTokens(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.text)
	}
	assert.Equal(t, 4096, e.MaxTokens())
	assert.Equal(t, "estimator", e.Name())
}

func TestEstimatorTokenizer_CountMessages(t *testing.T) {
	t.Parallel()

	e := NewEstimatorTokenizer("test", 1000)
	total, err := e.CountMessages([]types.Message{
		types.NewUserMessage("abcdefgh"),
		types.NewAssistantMessage("abcd"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2+1+2*types.MessageOverheadTokens+conversationOverheadTokens, total)
}

func TestResolveEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model    string
		encoding string
	}{
		{"gpt-4o", "o200k_base"},
		{"gpt-4o-2024-08-06", "o200k_base"},
		{"gpt-4-0613", "cl100k_base"},
		{"gpt-4.1-mini", "o200k_base"},
		{"some-local-model", "cl100k_base"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.encoding, NewTiktokenTokenizer(tt.model).Encoding(), tt.model)
	}
	assert.Equal(t, "tiktoken[o200k_base]", NewTiktokenTokenizer("gpt-4o").Name())
	assert.Equal(t, 8192, NewTiktokenTokenizer("unknown").MaxTokens())
}

func TestRegistry_LongestPrefixWins(t *testing.T) {
	short := NewEstimatorTokenizer("reg-test", 100)
	long := NewEstimatorTokenizer("reg-test-large", 200)
	RegisterTokenizer("reg-test", short)
	RegisterTokenizer("reg-test-large", long)

	got, err := GetTokenizer("reg-test-large-v2")
	require.NoError(t, err)
	assert.Same(t, long, got)

	got, err = GetTokenizer("reg-test")
	require.NoError(t, err)
	assert.Same(t, short, got)

	_, err = GetTokenizer("nothing-registered-here")
	assert.Error(t, err)
	assert.Equal(t, "estimator", GetTokenizerOrEstimator("nothing-registered-here").Name())
}

type failingTokenizer struct{ *EstimatorTokenizer }

func (failingTokenizer) CountTokens(string) (int, error) { return 0, errors.New("encoding unavailable") }
func (failingTokenizer) Name() string                     { return "failing" }

func TestCounter_FallsBackToEstimator(t *testing.T) {
	t.Parallel()

	c := AsCounter(failingTokenizer{NewEstimatorTokenizer("", 0)}, zaptest.NewLogger(t))
	assert.Equal(t, 2, c.CountTokens("abcdefgh"))
	assert.Equal(t, 2, c.CountTokens("abcdefgh"))
	assert.Equal(t, "failing", c.Name())
}

func TestCounter_NilTokenizerEstimates(t *testing.T) {
	t.Parallel()

	c := AsCounter(nil, nil)
	assert.Equal(t, "estimator", c.Name())
	assert.Equal(t, 0, c.CountTokens(""))
	assert.Equal(t, types.MessageOverheadTokens, types.CountMessagesTokens(c, []types.Message{{Content: ""}}))
}
