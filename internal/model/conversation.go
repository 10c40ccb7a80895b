package model

import (
	"time"
)

// Role represents the role of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationEntry is one turn of a conversation.
type ConversationEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationSnapshot is a read-only copy of a stored context.
type ConversationSnapshot struct {
	Key       string              `json:"key"`
	Entries   []ConversationEntry `json:"entries"`
	UpdatedAt time.Time           `json:"updated_at"`
}
