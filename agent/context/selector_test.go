package context

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vitalsight/assistcore/testutil"
	"github.com/vitalsight/assistcore/testutil/fixtures"
	"github.com/vitalsight/assistcore/types"
)

type recordingObserver struct {
	mu        sync.Mutex
	decisions []string
	windows   [][2]int
}

func (o *recordingObserver) RecordTopicDecision(shift bool, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if shift {
		reason = "shift:" + reason
	}
	o.decisions = append(o.decisions, reason)
}

func (o *recordingObserver) RecordPromptWindow(messages, dropped int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.windows = append(o.windows, [2]int{messages, dropped})
}

func longSleepThread() []types.Message {
	thread := fixtures.AlternatingThread(20)
	return append(thread, fixtures.SleepThread()...)
}

func TestSelector_ShiftUsesSmallWindow(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	sel := NewSelector(DefaultSelectorConfig(), zaptest.NewLogger(t), WithObserver(obs))
	thread := longSleepThread()
	newMsg := fixtures.UserMessage("Let's talk about cholesterol and apolipoprotein B.")

	out := sel.Select(testutil.TestContext(t), thread, newMsg)

	assert.False(t, out.SameTopic)
	assert.True(t, out.Analysis.Shift)
	assert.Len(t, out.Messages, DefaultPromptBudget().MaxTurnsNewTopic+1)
	assert.Equal(t, newMsg, out.Messages[len(out.Messages)-1])
	assert.Equal(t, []string{"shift:low_overlap"}, obs.decisions)
	assert.Equal(t, [][2]int{{5, 0}}, obs.windows)
}

func TestSelector_ContinuationUsesLargeWindow(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	sel := NewSelector(DefaultSelectorConfig(), zaptest.NewLogger(t), WithObserver(obs))
	thread := longSleepThread()

	ctx := types.WithConversationID(context.Background(), "conv-1")
	out := sel.Select(ctx, thread, fixtures.UserMessage("Did my deep sleep improve when HRV went up?"))

	assert.True(t, out.SameTopic)
	assert.Len(t, out.Messages, DefaultPromptBudget().MaxTurnsSameTopic+1)
	assert.Equal(t, "overlap", out.Analysis.Reason())
	assert.Equal(t, out.Window.Messages, out.Messages)
}

func TestSelector_ShortAckContinues(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	sel := NewSelector(DefaultSelectorConfig(), nil, WithObserver(obs))

	out := sel.Select(context.Background(), longSleepThread(), fixtures.UserMessage("yeah, please"))

	assert.True(t, out.SameTopic)
	assert.Equal(t, []string{"short_ack"}, obs.decisions)
}

func TestSelector_DoesNotMutateThread(t *testing.T) {
	t.Parallel()

	thread := longSleepThread()
	original := testutil.CopyMessages(thread)

	sel := NewSelector(DefaultSelectorConfig(), nil)
	_ = sel.Select(context.Background(), thread, fixtures.UserMessage("Let's talk about cholesterol"))

	assert.Equal(t, original, thread)
}

func TestSelector_TokenCounter(t *testing.T) {
	t.Parallel()

	cfg := DefaultSelectorConfig()
	cfg.Budget.MaxTokens = 40
	counter := types.TokenCounterFunc(func(string) int { return 6 })

	sel := NewSelector(cfg, nil, WithTokenCounter(counter))
	out := sel.Select(context.Background(), longSleepThread(), fixtures.UserMessage("yeah, please"))

	// 10 tokens per message: three history messages plus the new one.
	require.Len(t, out.Messages, 4)
	assert.Equal(t, 40, out.Window.Tokens)
}

func TestSelector_DefaultsLookback(t *testing.T) {
	t.Parallel()

	sel := NewSelector(SelectorConfig{Budget: DefaultPromptBudget()}, nil)
	assert.Equal(t, DefaultTopicLookback, sel.Config().TopicLookback)
	assert.Equal(t, MinOverlap, sel.Config().Detector.MinOverlap)
}

func TestRecentThreadText(t *testing.T) {
	t.Parallel()

	thread := []types.Message{
		types.NewSystemMessage("You are a health assistant."),
		fixtures.UserMessage("one"),
		fixtures.AssistantMessage("two"),
		types.NewSystemMessage("tool context"),
		fixtures.UserMessage("three"),
	}

	assert.Equal(t, "two\nthree", RecentThreadText(thread, 2))
	assert.Equal(t, "one\ntwo\nthree", RecentThreadText(thread, 10))
	assert.Empty(t, RecentThreadText(thread, 0))
	assert.Empty(t, RecentThreadText(nil, 6))
}
