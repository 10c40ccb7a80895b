package model

import (
	"time"
)

// InboundMessage is a chat message delivered by the platform adapter.
type InboundMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Author    Actor     `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Prompt identifies the interactive controls attached to a reply.
type Prompt string

const (
	PromptNone         Prompt = ""
	PromptCloseButton  Prompt = "close_button"
	PromptConfirmClose Prompt = "confirm_close"
)

// Reply is the response the dispatch layer shows to the acting user.
type Reply struct {
	Content   string `json:"content"`
	Ephemeral bool   `json:"ephemeral"`
	Prompt    Prompt `json:"prompt,omitempty"`
}
