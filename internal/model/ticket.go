// Package model defines data structures shared by the bot core.
package model

import (
	"time"
)

// Actor is an external user identity. The core references actors by ID only.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TicketState is the lifecycle state of a ticket session.
type TicketState int

const (
	TicketOpen TicketState = iota + 1
	TicketPendingClose
	TicketClosed
)

// String returns the state name used in logs and API responses.
func (s TicketState) String() string {
	switch s {
	case TicketOpen:
		return "open"
	case TicketPendingClose:
		return "pending_close"
	case TicketClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TicketState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TicketSession is the live record of one open support ticket.
type TicketSession struct {
	ID             string      `json:"id"`
	OwnerID        string      `json:"owner_id"`
	OwnerName      string      `json:"owner_name"`
	ChannelID      string      `json:"channel_id"`
	State          TicketState `json:"state"`
	OpenedAt       time.Time   `json:"opened_at"`
	LastActivityAt time.Time   `json:"last_activity_at"`
}

// Live reports whether the session still counts against its owner's
// one-open-ticket allowance.
func (s *TicketSession) Live() bool {
	return s.State == TicketOpen || s.State == TicketPendingClose
}

// IdleFor returns how long the session has been inactive at now.
func (s *TicketSession) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivityAt)
}
