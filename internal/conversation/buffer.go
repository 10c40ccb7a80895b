// Package conversation keeps bounded per-key chat histories and exchanges
// them with a completion service.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/llm"
	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
	"github.com/steveluke1457/Mr-Bot/pkg/metrics"
	"github.com/steveluke1457/Mr-Bot/pkg/tracing"
)

// ErrCompletionFailed is returned alongside the failure text when the
// completion service could not produce a reply.
var ErrCompletionFailed = errors.New("conversation: completion failed")

// KeyMode selects what a conversation is keyed by.
type KeyMode string

const (
	// KeyByChannel scopes history to a ticket channel.
	KeyByChannel KeyMode = "channel"
	// KeyByActor shares history across every channel an actor writes in.
	KeyByActor KeyMode = "actor"
)

// ParseKeyMode parses a key mode name.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(s) {
	case KeyByChannel, "":
		return KeyByChannel, nil
	case KeyByActor:
		return KeyByActor, nil
	default:
		return "", fmt.Errorf("conversation: unknown key mode %q", s)
	}
}

// Config configures a Buffer.
type Config struct {
	// MaxEntries bounds the stored history; the oldest entries go first.
	MaxEntries int
	KeyMode    KeyMode
	// Expiry discards a history idle for longer before the next turn.
	// Zero keeps histories until pruned.
	Expiry time.Duration
	// Retention is how long an idle history survives Prune.
	Retention time.Duration

	FailureText string
	// RecordFailures stores the user turn and FailureText when a
	// completion fails. Otherwise a failed exchange leaves no trace.
	RecordFailures bool

	SystemPrompt string
	Model        string
	MaxTokens    int
	Timeout      time.Duration
}

// DefaultConfig returns the defaults used by the bot.
func DefaultConfig() Config {
	return Config{
		MaxEntries:  6,
		KeyMode:     KeyByChannel,
		Retention:   24 * time.Hour,
		FailureText: "⚠️ Sorry, I am currently unable to respond.",
		Timeout:     60 * time.Second,
	}
}

type history struct {
	mu        sync.Mutex
	entries   []model.ConversationEntry
	updatedAt time.Time
	// removed is set without holding mu, so forgetting a history never
	// waits on a turn in flight. Such a turn discards its result.
	removed atomic.Bool
}

// Buffer stores conversation histories. Turns for one key are serialized,
// including the completion call; different keys proceed in parallel.
type Buffer struct {
	cfg    Config
	client llm.Client
	clock  clockwork.Clock
	logger *logger.Logger
	tracer trace.Tracer

	mu        sync.Mutex
	histories map[string]*history
}

// NewBuffer creates a buffer sending histories to client.
func NewBuffer(cfg Config, client llm.Client, clock clockwork.Clock, log *logger.Logger) *Buffer {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 6
	}
	if cfg.KeyMode == "" {
		cfg.KeyMode = KeyByChannel
	}
	return &Buffer{
		cfg:       cfg,
		client:    client,
		clock:     clock,
		logger:    log.Named("conversation"),
		tracer:    tracing.Tracer("conversation"),
		histories: make(map[string]*history),
	}
}

// Key returns the history key for a message by actorID in channelID.
func (b *Buffer) Key(actorID, channelID string) string {
	if b.cfg.KeyMode == KeyByActor {
		return "actor:" + actorID
	}
	return "channel:" + channelID
}

// acquire returns the locked history for key, creating it if needed.
func (b *Buffer) acquire(key string) *history {
	for {
		b.mu.Lock()
		h, ok := b.histories[key]
		if !ok {
			h = &history{}
			b.histories[key] = h
		}
		b.mu.Unlock()

		h.mu.Lock()
		if !h.removed.Load() {
			return h
		}
		h.mu.Unlock()
	}
}

// AppendAndRespond sends the history for key plus userText to the completion
// service and records the exchange. On failure it returns the configured
// failure text together with an error wrapping ErrCompletionFailed.
func (b *Buffer) AppendAndRespond(ctx context.Context, key, userText string) (string, error) {
	ctx, span := b.tracer.Start(ctx, "conversation.AppendAndRespond", trace.WithAttributes(
		attribute.String("conversation.key", key),
	))
	defer span.End()

	h := b.acquire(key)
	defer h.mu.Unlock()

	now := b.clock.Now()
	if b.cfg.Expiry > 0 && !h.updatedAt.IsZero() && now.Sub(h.updatedAt) > b.cfg.Expiry {
		h.entries = nil
	}

	userTurn := model.ConversationEntry{Role: model.RoleUser, Content: userText}
	messages := make([]llm.ChatMessage, 0, len(h.entries)+1)
	for _, e := range h.entries {
		messages = append(messages, llm.ChatMessage{Role: string(e.Role), Content: e.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: string(userTurn.Role), Content: userTurn.Content})
	span.SetAttributes(attribute.Int("conversation.turns", len(messages)))

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := b.client.Complete(ctx, &llm.CompletionRequest{
		Model:     b.cfg.Model,
		System:    b.cfg.SystemPrompt,
		Messages:  messages,
		MaxTokens: b.cfg.MaxTokens,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordCompletion(b.client.Name(), "error", elapsed, 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Warn("completion failed", zap.String("key", key), zap.Error(err))

		if b.cfg.RecordFailures && !h.removed.Load() {
			b.store(h, now, userTurn, model.ConversationEntry{Role: model.RoleAssistant, Content: b.cfg.FailureText})
		}
		return b.cfg.FailureText, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	metrics.RecordCompletion(b.client.Name(), "ok", elapsed, resp.TokensIn, resp.TokensOut)
	if h.removed.Load() {
		return resp.Content, nil
	}
	b.store(h, now, userTurn, model.ConversationEntry{Role: model.RoleAssistant, Content: resp.Content})
	return resp.Content, nil
}

// store appends turns and truncates to MaxEntries. h must be locked.
func (b *Buffer) store(h *history, now time.Time, turns ...model.ConversationEntry) {
	h.entries = append(h.entries, turns...)
	if over := len(h.entries) - b.cfg.MaxEntries; over > 0 {
		h.entries = append([]model.ConversationEntry(nil), h.entries[over:]...)
	}
	h.updatedAt = now
}

// Snapshot returns a copy of the history stored under key.
func (b *Buffer) Snapshot(key string) (model.ConversationSnapshot, bool) {
	b.mu.Lock()
	h, ok := b.histories[key]
	b.mu.Unlock()
	if !ok {
		return model.ConversationSnapshot{}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.removed.Load() {
		return model.ConversationSnapshot{}, false
	}
	return model.ConversationSnapshot{
		Key:       key,
		Entries:   append([]model.ConversationEntry(nil), h.entries...),
		UpdatedAt: h.updatedAt,
	}, true
}

// Forget drops the history stored under key. It does not wait for a turn
// in flight; that turn's exchange is not recorded.
func (b *Buffer) Forget(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.histories[key]; ok {
		h.removed.Store(true)
		delete(b.histories, key)
	}
}

// Prune drops histories idle past the retention period (or the expiry, when
// shorter). Histories with a turn in flight are skipped.
func (b *Buffer) Prune(now time.Time) int {
	ttl := b.cfg.Retention
	if b.cfg.Expiry > 0 && (ttl <= 0 || b.cfg.Expiry < ttl) {
		ttl = b.cfg.Expiry
	}
	if ttl <= 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pruned := 0
	for key, h := range b.histories {
		if !h.mu.TryLock() {
			continue
		}
		if now.Sub(h.updatedAt) > ttl {
			h.removed.Store(true)
			delete(b.histories, key)
			pruned++
		}
		h.mu.Unlock()
	}
	return pruned
}

// Len returns the number of stored histories.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.histories)
}

// ForgetChannel drops the history scoped to channelID. Actor-keyed
// histories are left alone.
func (b *Buffer) ForgetChannel(channelID string) {
	if b.cfg.KeyMode == KeyByChannel {
		b.Forget(b.Key("", channelID))
	}
}
