package model

import (
	"time"
)

// EventType represents the type of ticket lifecycle event.
type EventType string

const (
	EventTicketOpened         EventType = "opened"
	EventTicketCloseRequested EventType = "close_requested"
	EventTicketCloseCancelled EventType = "close_cancelled"
	EventTicketClosed         EventType = "closed"
	EventTicketReaped         EventType = "reaped"
	EventSpamBlocked          EventType = "spam_blocked"
)

// TicketEvent records a ticket lifecycle transition.
type TicketEvent struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	OwnerID   string            `json:"owner_id"`
	ChannelID string            `json:"channel_id,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
