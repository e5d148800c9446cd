package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const keyConversationID contextKey = "conversation_id"

// WithConversationID adds the chat thread ID to context.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyConversationID, id)
}

// ConversationID extracts the chat thread ID from context.
func ConversationID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyConversationID).(string)
	return v, ok && v != ""
}
