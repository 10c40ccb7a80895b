// Package counting validates turn-taking counting games played in chat
// channels.
package counting

import (
	"strconv"
	"strings"
	"sync"
)

// Verdict is the outcome of a counting submission.
type Verdict int

const (
	// Rejected is an out-of-sequence value. State is unchanged.
	Rejected Verdict = iota
	// Accepted advanced the count.
	Accepted
	// Duplicate is the expected value from the actor who made the previous
	// count. The caller should retract the submission; state is unchanged.
	Duplicate
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	default:
		return "rejected"
	}
}

// State is the counting position of one channel.
type State struct {
	ExpectedNext int    `json:"expected_next"`
	LastActorID  string `json:"last_actor_id,omitempty"`
}

// Validator holds the counting state of every channel.
type Validator struct {
	mu       sync.Mutex
	channels map[string]State
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{channels: make(map[string]State)}
}

// Submit evaluates value posted by actorID in channelID and advances the
// channel's state when accepted. A 1 always restarts the count.
func (v *Validator) Submit(channelID, actorID string, value int) Verdict {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := v.stateLocked(channelID)

	switch {
	case value == 1:
		v.channels[channelID] = State{ExpectedNext: 2, LastActorID: actorID}
		return Accepted
	case value != st.ExpectedNext:
		return Rejected
	case actorID == st.LastActorID:
		return Duplicate
	default:
		v.channels[channelID] = State{ExpectedNext: value + 1, LastActorID: actorID}
		return Accepted
	}
}

// State returns the current state of channelID.
func (v *Validator) State(channelID string) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked(channelID)
}

// Reset forgets the state of channelID.
func (v *Validator) Reset(channelID string) {
	v.mu.Lock()
	delete(v.channels, channelID)
	v.mu.Unlock()
}

func (v *Validator) stateLocked(channelID string) State {
	if st, ok := v.channels[channelID]; ok {
		return st
	}
	return State{ExpectedNext: 1}
}

// Parse extracts a counting value from a message. Anything that is not a
// plain positive integer is not a submission.
func Parse(content string) (int, bool) {
	s := strings.TrimSpace(content)
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
