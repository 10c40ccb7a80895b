// Package platformtest provides an in-memory platform for tests.
package platformtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/platform"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("platformtest: injected failure")

// Message is a message recorded by SendMessage or SendPrompt.
type Message struct {
	ChannelID string
	Text      string
	Prompt    model.Prompt
}

// Suspension is a recorded SuspendActor call.
type Suspension struct {
	ActorID  string
	Duration time.Duration
	Reason   string
}

// Recorder implements platform.Platform and records every call.
type Recorder struct {
	// CreateDelay widens the window between registration and binding of a
	// session, for race tests.
	CreateDelay time.Duration

	mu              sync.Mutex
	nextID          int
	channels        map[string]platform.ChannelSpec
	created         []platform.ChannelSpec
	deleted         []string
	messages        []Message
	suspensions     []Suspension
	deletedMessages []string
	reactions       []string

	failCreate  bool
	failDelete  bool
	failSend    bool
	failSuspend bool
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{channels: make(map[string]platform.ChannelSpec)}
}

// FailCreate makes CreateConversationChannel fail.
func (r *Recorder) FailCreate(fail bool) { r.mu.Lock(); r.failCreate = fail; r.mu.Unlock() }

// FailDelete makes DeleteChannel fail.
func (r *Recorder) FailDelete(fail bool) { r.mu.Lock(); r.failDelete = fail; r.mu.Unlock() }

// FailSend makes SendMessage fail.
func (r *Recorder) FailSend(fail bool) { r.mu.Lock(); r.failSend = fail; r.mu.Unlock() }

// FailSuspend makes SuspendActor fail.
func (r *Recorder) FailSuspend(fail bool) { r.mu.Lock(); r.failSuspend = fail; r.mu.Unlock() }

func (r *Recorder) CreateConversationChannel(_ context.Context, spec platform.ChannelSpec) (string, error) {
	if r.CreateDelay > 0 {
		time.Sleep(r.CreateDelay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return "", ErrInjected
	}
	r.nextID++
	id := fmt.Sprintf("chan-%d", r.nextID)
	r.channels[id] = spec
	r.created = append(r.created, spec)
	return id, nil
}

func (r *Recorder) DeleteChannel(_ context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete {
		return ErrInjected
	}
	if _, ok := r.channels[channelID]; !ok {
		return fmt.Errorf("platformtest: unknown channel %s", channelID)
	}
	delete(r.channels, channelID)
	r.deleted = append(r.deleted, channelID)
	return nil
}

func (r *Recorder) SendMessage(_ context.Context, channelID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSend {
		return ErrInjected
	}
	r.messages = append(r.messages, Message{ChannelID: channelID, Text: text})
	return nil
}

func (r *Recorder) SendPrompt(_ context.Context, channelID, text string, prompt model.Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSend {
		return ErrInjected
	}
	r.messages = append(r.messages, Message{ChannelID: channelID, Text: text, Prompt: prompt})
	return nil
}

func (r *Recorder) SuspendActor(_ context.Context, actorID string, d time.Duration, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSuspend {
		return ErrInjected
	}
	r.suspensions = append(r.suspensions, Suspension{ActorID: actorID, Duration: d, Reason: reason})
	return nil
}

func (r *Recorder) DeleteMessage(_ context.Context, channelID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedMessages = append(r.deletedMessages, channelID+"/"+messageID)
	return nil
}

func (r *Recorder) React(_ context.Context, channelID, messageID, emoji string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reactions = append(r.reactions, channelID+"/"+messageID+":"+emoji)
	return nil
}

// Created returns the specs of every channel created.
func (r *Recorder) Created() []platform.ChannelSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]platform.ChannelSpec(nil), r.created...)
}

// Deleted returns the IDs of deleted channels in deletion order.
func (r *Recorder) Deleted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

// Existing returns the number of channels created and not deleted.
func (r *Recorder) Existing() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Messages returns every message sent.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// MessagesIn returns the texts sent to channelID.
func (r *Recorder) MessagesIn(channelID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.messages {
		if m.ChannelID == channelID {
			out = append(out, m.Text)
		}
	}
	return out
}

// Suspensions returns every suspension requested.
func (r *Recorder) Suspensions() []Suspension {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Suspension(nil), r.suspensions...)
}

// DeletedMessages returns "<channel>/<message>" for every deleted message.
func (r *Recorder) DeletedMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deletedMessages...)
}

// Reactions returns "<channel>/<message>:<emoji>" for every reaction.
func (r *Recorder) Reactions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reactions...)
}
