package context

import (
	"github.com/vitalsight/assistcore/types"
)

// PromptBudget bounds the history sent with a new user message.
type PromptBudget struct {
	MaxTurnsSameTopic int `json:"max_turns_same_topic" yaml:"max_turns_same_topic"`
	MaxTurnsNewTopic  int `json:"max_turns_new_topic" yaml:"max_turns_new_topic"`
	MaxChars          int `json:"max_chars" yaml:"max_chars"`
	MaxTokens         int `json:"max_tokens" yaml:"max_tokens"` // 0 disables the token check
}

// DefaultPromptBudget returns the default budget.
func DefaultPromptBudget() PromptBudget {
	return PromptBudget{
		MaxTurnsSameTopic: 16,
		MaxTurnsNewTopic:  4,
		MaxChars:          12000,
	}
}

// TurnBudget returns the history turn limit for the topic decision.
func (b PromptBudget) TurnBudget(sameTopic bool) int {
	if sameTopic {
		return b.MaxTurnsSameTopic
	}
	return b.MaxTurnsNewTopic
}

// PromptInput is the input of window assembly. ThreadMessages is oldest
// first and is never modified.
type PromptInput struct {
	ThreadMessages []types.Message
	NewUserMessage types.Message
	SameTopic      bool
	Budget         PromptBudget
}

// Window is an assembled prompt window.
type Window struct {
	Messages   []types.Message `json:"messages"`    // history then the new message
	TurnBudget int             `json:"turn_budget"` // K
	Dropped    int             `json:"dropped"`     // history removed by char or token limits
	Chars      int             `json:"chars"`
	Tokens     int             `json:"tokens,omitempty"` // only with a token counter and MaxTokens > 0
}

// History returns the messages before the new user message.
func (w Window) History() []types.Message {
	if len(w.Messages) == 0 {
		return nil
	}
	return w.Messages[:len(w.Messages)-1]
}

// WindowAssembler builds prompt windows. The token counter is optional
// and only consulted when the budget sets MaxTokens.
type WindowAssembler struct {
	tokenCounter types.TokenCounter
}

// NewWindowAssembler creates an assembler. tokenCounter may be nil.
func NewWindowAssembler(tokenCounter types.TokenCounter) *WindowAssembler {
	return &WindowAssembler{tokenCounter: tokenCounter}
}

// Assemble takes the last K thread messages, K chosen by the topic
// decision, then drops whole messages oldest first until the window plus
// the new message fits MaxChars (and MaxTokens when enabled). The new
// message is always the last element. Content is never truncated.
func (a *WindowAssembler) Assemble(in PromptInput) Window {
	k := in.Budget.TurnBudget(in.SameTopic)
	if k < 0 {
		k = 0
	}
	history := in.ThreadMessages
	if len(history) > k {
		history = history[len(history)-k:]
	}

	w := Window{TurnBudget: k}

	newChars := in.NewUserMessage.CharLen()
	chars := types.TotalChars(history)
	if in.Budget.MaxChars > 0 {
		for len(history) > 0 && chars+newChars > in.Budget.MaxChars {
			chars -= history[0].CharLen()
			history = history[1:]
			w.Dropped++
		}
	}
	w.Chars = chars + newChars

	if in.Budget.MaxTokens > 0 && a.tokenCounter != nil {
		tokens := types.CountMessagesTokens(a.tokenCounter, history) +
			types.MessageOverheadTokens + a.tokenCounter.CountTokens(in.NewUserMessage.Content)
		for len(history) > 0 && tokens > in.Budget.MaxTokens {
			tokens -= types.MessageOverheadTokens + a.tokenCounter.CountTokens(history[0].Content)
			w.Chars -= history[0].CharLen()
			history = history[1:]
			w.Dropped++
		}
		w.Tokens = tokens
	}

	w.Messages = make([]types.Message, 0, len(history)+1)
	w.Messages = append(w.Messages, history...)
	w.Messages = append(w.Messages, in.NewUserMessage)
	return w
}

var defaultAssembler = NewWindowAssembler(nil)

// AssembleWindow assembles a window without token accounting.
func AssembleWindow(in PromptInput) Window {
	return defaultAssembler.Assemble(in)
}

// BuildPromptMessages returns the ordered messages to send: selected
// history followed by the new user message.
func BuildPromptMessages(in PromptInput) []types.Message {
	return AssembleWindow(in).Messages
}
