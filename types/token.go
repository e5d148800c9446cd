package types

// TokenCounter is the minimal token counting contract used for prompt
// budgets. llm/tokenizer provides model-aware implementations.
type TokenCounter interface {
	CountTokens(text string) int
}

// TokenCounterFunc adapts a function to TokenCounter.
type TokenCounterFunc func(text string) int

// CountTokens calls f.
func (f TokenCounterFunc) CountTokens(text string) int { return f(text) }

// MessageOverheadTokens approximates role markers and separators per message.
const MessageOverheadTokens = 4

// CountMessagesTokens sums content tokens plus per-message overhead.
func CountMessagesTokens(counter TokenCounter, msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += MessageOverheadTokens + counter.CountTokens(m.Content)
	}
	return total
}
