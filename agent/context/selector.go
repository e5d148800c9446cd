package context

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/vitalsight/assistcore/types"
)

// DefaultTopicLookback is how many recent thread messages form the text
// a new message is compared against.
const DefaultTopicLookback = 6

// SelectorConfig configures a Selector.
type SelectorConfig struct {
	Budget        PromptBudget   `json:"budget" yaml:"budget"`
	Detector      DetectorConfig `json:"detector" yaml:"detector"`
	TopicLookback int            `json:"topic_lookback" yaml:"topic_lookback"`
}

// DefaultSelectorConfig returns the defaults.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Budget:        DefaultPromptBudget(),
		Detector:      DefaultDetectorConfig(),
		TopicLookback: DefaultTopicLookback,
	}
}

// SelectionObserver receives selector decisions, typically a metrics
// collector.
type SelectionObserver interface {
	RecordTopicDecision(shift bool, reason string)
	RecordPromptWindow(messages, dropped int)
}

// Selection is the outcome of Select.
type Selection struct {
	Messages  []types.Message `json:"messages"`
	SameTopic bool            `json:"same_topic"`
	Analysis  ShiftAnalysis   `json:"analysis"`
	Window    Window          `json:"window"`
}

// SelectorOption customizes a Selector.
type SelectorOption func(*Selector)

// WithTokenCounter enables the MaxTokens budget.
func WithTokenCounter(counter types.TokenCounter) SelectorOption {
	return func(s *Selector) {
		s.assembler = NewWindowAssembler(counter)
	}
}

// WithObserver registers an observer.
func WithObserver(o SelectionObserver) SelectorOption {
	return func(s *Selector) {
		s.observer = o
	}
}

// Selector picks the history to send with a new user message: it detects
// whether the message continues the recent topic and sizes the window
// accordingly.
type Selector struct {
	config    SelectorConfig
	detector  *ShiftDetector
	assembler *WindowAssembler
	observer  SelectionObserver
	logger    *zap.Logger
}

// NewSelector creates a Selector.
func NewSelector(config SelectorConfig, logger *zap.Logger, opts ...SelectorOption) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TopicLookback <= 0 {
		config.TopicLookback = DefaultTopicLookback
	}
	s := &Selector{
		config:    config,
		detector:  NewShiftDetector(config.Detector),
		assembler: defaultAssembler,
		logger:    logger.With(zap.String("component", "context_selector")),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.config.Detector = s.detector.Config()
	return s
}

// Config returns the effective configuration.
func (s *Selector) Config() SelectorConfig {
	return s.config
}

// Select decides the topic relation of newMessage to thread and returns
// the prompt window. thread is oldest first and is not modified.
func (s *Selector) Select(ctx context.Context, thread []types.Message, newMessage types.Message) Selection {
	analysis := s.detector.Analyze(ShiftInput{
		NewMessage:       newMessage.Content,
		RecentThreadText: RecentThreadText(thread, s.config.TopicLookback),
	})
	sameTopic := !analysis.Shift

	window := s.assembler.Assemble(PromptInput{
		ThreadMessages: thread,
		NewUserMessage: newMessage,
		SameTopic:      sameTopic,
		Budget:         s.config.Budget,
	})

	if s.observer != nil {
		s.observer.RecordTopicDecision(analysis.Shift, analysis.Reason())
		s.observer.RecordPromptWindow(len(window.Messages), window.Dropped)
	}

	fields := []zap.Field{
		zap.Bool("same_topic", sameTopic),
		zap.String("reason", analysis.Reason()),
		zap.Float64("overlap", analysis.Overlap),
		zap.Int("thread_len", len(thread)),
		zap.Int("window_len", len(window.Messages)),
		zap.Int("dropped", window.Dropped),
		zap.Int("chars", window.Chars),
	}
	if id, ok := types.ConversationID(ctx); ok {
		fields = append(fields, zap.String("conversation_id", id))
	}
	s.logger.Debug("prompt window selected", fields...)

	return Selection{
		Messages:  window.Messages,
		SameTopic: sameTopic,
		Analysis:  analysis,
		Window:    window,
	}
}

// RecentThreadText joins the content of the last lookback non-system
// messages of thread, oldest first.
func RecentThreadText(thread []types.Message, lookback int) string {
	if lookback <= 0 {
		return ""
	}
	parts := make([]string, 0, lookback)
	for i := len(thread) - 1; i >= 0 && len(parts) < lookback; i-- {
		if thread[i].Role == types.RoleSystem {
			continue
		}
		parts = append(parts, thread[i].Content)
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.Join(parts, "\n")
}
