// Package types provides core types used across assistcore.
// This package has ZERO dependencies on other assistcore packages to avoid circular imports.
package types

import (
	"time"
	"unicode/utf8"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation thread.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Name      string    `json:"name,omitempty"`
	Metadata  any       `json:"metadata,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewMessage creates a new message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// WithMetadata adds metadata to the message.
func (m Message) WithMetadata(metadata any) Message {
	m.Metadata = metadata
	return m
}

// CharLen returns the content length in characters (runes), the unit used
// by prompt character budgets.
func (m Message) CharLen() int {
	return utf8.RuneCountInString(m.Content)
}

// TotalChars sums CharLen over msgs.
func TotalChars(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += m.CharLen()
	}
	return total
}
