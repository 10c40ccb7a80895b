// Package ticket owns the support ticket state machine and the inactivity
// reaper that closes abandoned tickets.
package ticket

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/cooldown"
	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/platform"
	"github.com/steveluke1457/Mr-Bot/internal/scheduler"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
	"github.com/steveluke1457/Mr-Bot/pkg/metrics"
	"github.com/steveluke1457/Mr-Bot/pkg/tracing"
)

const deleteTimeout = 10 * time.Second

// Config holds lifecycle settings.
type Config struct {
	ParentCategory string
	StaffRoles     []string
	Naming         platform.NamingMode

	// Greeting is sent to a new ticket channel. {user_id} and {user_name}
	// are substituted.
	Greeting      string
	ClosingNotice string
	CloseGrace    time.Duration

	SuspendDuration time.Duration
	SuspendReason   string
}

// CloseOptions controls a close that skips confirmation.
type CloseOptions struct {
	// Notice is sent to the channel before deletion. Empty sends nothing.
	Notice string
	// Grace delays channel deletion so the notice can render.
	Grace  time.Duration
	Reason string
}

// OpenResult describes the outcome of RequestOpen.
type OpenResult struct {
	// Session is the new ticket, or the existing one with ErrAlreadyOpen.
	Session *model.TicketSession
	// ClosedChannels lists channels force-closed after a cooldown violation.
	ClosedChannels []string
	// Suspended reports whether the actor was suspended.
	Suspended bool
}

// Manager tracks live ticket sessions. All reads and writes of the session
// maps happen under mu; platform calls are made outside it.
type Manager struct {
	cfg       Config
	guard     *cooldown.Guard
	platform  platform.Platform
	scheduler *scheduler.Delayed
	clock     clockwork.Clock
	publisher Publisher
	logger    *logger.Logger
	tracer    trace.Tracer

	mu        sync.Mutex
	byOwner   map[string]*model.TicketSession
	byChannel map[string]*model.TicketSession
}

// NewManager creates a ticket manager. publisher may be nil.
func NewManager(
	cfg Config,
	guard *cooldown.Guard,
	plat platform.Platform,
	sched *scheduler.Delayed,
	clock clockwork.Clock,
	publisher Publisher,
	log *logger.Logger,
) *Manager {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Manager{
		cfg:       cfg,
		guard:     guard,
		platform:  plat,
		scheduler: sched,
		clock:     clock,
		publisher: publisher,
		logger:    log.Named("ticket"),
		tracer:    tracing.Tracer("ticket"),
		byOwner:   make(map[string]*model.TicketSession),
		byChannel: make(map[string]*model.TicketSession),
	}
}

// RequestOpen opens a ticket for actor.
//
// The cooldown check, the existing-ticket check and the registration of the
// new session form one critical section, so concurrent requests from one
// actor cannot both create a ticket. A cooldown violation force-closes every
// ticket of the actor and requests a suspension; the error is then
// ErrCooldownViolated, joined with ErrSuspendFailed if the suspension failed.
func (m *Manager) RequestOpen(ctx context.Context, actor model.Actor) (OpenResult, error) {
	ctx, span := m.tracer.Start(ctx, "ticket.RequestOpen", trace.WithAttributes(
		attribute.String("actor.id", actor.ID),
	))
	defer span.End()

	log := m.logger.WithActor(actor.ID, "")
	now := m.clock.Now()

	m.mu.Lock()
	if m.guard.Check(actor.ID, now) == cooldown.Violated {
		victims := m.detachOwnerLocked(actor.ID)
		m.mu.Unlock()
		return m.escalate(ctx, actor, victims)
	}

	if existing, ok := m.byOwner[actor.ID]; ok {
		snapshot := *existing
		m.mu.Unlock()
		metrics.OpenRejections.WithLabelValues("already_open").Inc()
		return OpenResult{Session: &snapshot}, ErrAlreadyOpen
	}

	sess := &model.TicketSession{
		ID:             uuid.Must(uuid.NewV7()).String(),
		OwnerID:        actor.ID,
		OwnerName:      actor.Name,
		State:          model.TicketOpen,
		OpenedAt:       now,
		LastActivityAt: now,
	}
	m.byOwner[actor.ID] = sess
	m.mu.Unlock()

	channelID, err := m.platform.CreateConversationChannel(ctx, m.channelSpec(actor))
	if err != nil {
		m.mu.Lock()
		if m.byOwner[actor.ID] == sess {
			delete(m.byOwner, actor.ID)
		}
		m.mu.Unlock()

		log.Error("failed to create ticket channel", zap.Error(err))
		metrics.OpenRejections.WithLabelValues("create_failed").Inc()
		span.SetStatus(codes.Error, err.Error())
		return OpenResult{}, fmt.Errorf("%w: %v", ErrChannelCreateFailed, err)
	}

	m.mu.Lock()
	if m.byOwner[actor.ID] != sess || !sess.Live() {
		m.mu.Unlock()
		log.Warn("ticket force-closed during creation, removing channel", zap.String("channel_id", channelID))
		m.deleteChannel(ctx, channelID)
		metrics.OpenRejections.WithLabelValues("aborted").Inc()
		return OpenResult{}, ErrOpenAborted
	}
	sess.ChannelID = channelID
	m.byChannel[channelID] = sess
	snapshot := *sess
	m.mu.Unlock()

	metrics.TicketsOpened.Inc()
	metrics.TicketsLive.Inc()
	log.Info("ticket opened", zap.String("channel_id", channelID), zap.String("session_id", snapshot.ID))

	if err := m.platform.SendPrompt(ctx, channelID, m.greeting(actor), model.PromptCloseButton); err != nil {
		log.Warn("failed to send greeting", zap.String("channel_id", channelID), zap.Error(err))
	}
	m.publish(ctx, model.EventTicketOpened, actor.ID, channelID, "")

	return OpenResult{Session: &snapshot}, nil
}

func (m *Manager) escalate(ctx context.Context, actor model.Actor, victims []model.TicketSession) (OpenResult, error) {
	log := m.logger.WithActor(actor.ID, "")
	metrics.OpenRejections.WithLabelValues("cooldown").Inc()

	var result OpenResult
	for _, v := range victims {
		if v.ChannelID == "" {
			continue
		}
		m.deleteChannel(ctx, v.ChannelID)
		metrics.RecordTicketClosed("spam")
		m.publish(ctx, model.EventTicketClosed, v.OwnerID, v.ChannelID, "spam")
		result.ClosedChannels = append(result.ClosedChannels, v.ChannelID)
	}

	err := m.platform.SuspendActor(ctx, actor.ID, m.cfg.SuspendDuration, m.cfg.SuspendReason)
	m.publish(ctx, model.EventSpamBlocked, actor.ID, "", m.cfg.SuspendReason)
	if err != nil {
		log.Warn("failed to suspend actor", zap.Error(err), zap.Int("closed_tickets", len(result.ClosedChannels)))
		metrics.Suspensions.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("%w: %w: %v", ErrCooldownViolated, ErrSuspendFailed, err)
	}

	log.Info("actor suspended for open spam",
		zap.Duration("duration", m.cfg.SuspendDuration),
		zap.Int("closed_tickets", len(result.ClosedChannels)),
	)
	metrics.Suspensions.WithLabelValues("ok").Inc()
	result.Suspended = true
	return result, ErrCooldownViolated
}

// RequestClose moves the ticket bound to channelID to PendingClose. It is
// idempotent for a ticket that is already pending.
func (m *Manager) RequestClose(ctx context.Context, channelID string) (model.TicketSession, error) {
	m.mu.Lock()
	sess, ok := m.byChannel[channelID]
	if !ok {
		m.mu.Unlock()
		return model.TicketSession{}, ErrNotATicketChannel
	}
	changed := sess.State == model.TicketOpen
	sess.State = model.TicketPendingClose
	snapshot := *sess
	m.mu.Unlock()

	if changed {
		m.publish(ctx, model.EventTicketCloseRequested, snapshot.OwnerID, channelID, "")
	}
	return snapshot, nil
}

// ConfirmClose closes a ticket that is pending close: the closing notice is
// sent and the channel is deleted after the close grace delay.
func (m *Manager) ConfirmClose(ctx context.Context, channelID string) error {
	ctx, span := m.tracer.Start(ctx, "ticket.ConfirmClose", trace.WithAttributes(
		attribute.String("channel.id", channelID),
	))
	defer span.End()

	m.mu.Lock()
	sess, ok := m.byChannel[channelID]
	if !ok {
		m.mu.Unlock()
		return ErrNotATicketChannel
	}
	if sess.State != model.TicketPendingClose {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	snapshot := m.detachLocked(sess)
	m.mu.Unlock()

	m.finishClose(ctx, snapshot, CloseOptions{
		Notice: m.cfg.ClosingNotice,
		Grace:  m.cfg.CloseGrace,
		Reason: "confirmed",
	}, model.EventTicketClosed)
	return nil
}

// CancelClose returns a pending ticket to Open.
func (m *Manager) CancelClose(ctx context.Context, channelID string) error {
	m.mu.Lock()
	sess, ok := m.byChannel[channelID]
	if !ok {
		m.mu.Unlock()
		return ErrNotATicketChannel
	}
	if sess.State != model.TicketPendingClose {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	sess.State = model.TicketOpen
	owner := sess.OwnerID
	m.mu.Unlock()

	m.publish(ctx, model.EventTicketCloseCancelled, owner, channelID, "")
	return nil
}

// Touch records activity in the ticket bound to channelID.
func (m *Manager) Touch(channelID string) error {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byChannel[channelID]
	if !ok {
		return ErrNotATicketChannel
	}
	if now.After(sess.LastActivityAt) {
		sess.LastActivityAt = now
	}
	return nil
}

// DirectClose closes the ticket bound to channelID without confirmation.
func (m *Manager) DirectClose(ctx context.Context, channelID string, opts CloseOptions) error {
	ctx, span := m.tracer.Start(ctx, "ticket.DirectClose", trace.WithAttributes(
		attribute.String("channel.id", channelID),
		attribute.String("close.reason", opts.Reason),
	))
	defer span.End()

	m.mu.Lock()
	sess, ok := m.byChannel[channelID]
	if !ok {
		m.mu.Unlock()
		return ErrNotATicketChannel
	}
	snapshot := m.detachLocked(sess)
	m.mu.Unlock()

	m.finishClose(ctx, snapshot, opts, model.EventTicketClosed)
	return nil
}

// CloseIdle closes every live ticket idle for longer than threshold at now.
// Idle tickets leave the live set before any side effect runs, so an
// overlapping sweep cannot close them twice.
func (m *Manager) CloseIdle(ctx context.Context, now time.Time, threshold time.Duration, opts CloseOptions) []model.TicketSession {
	ctx, span := m.tracer.Start(ctx, "ticket.CloseIdle")
	defer span.End()

	m.mu.Lock()
	var idle []model.TicketSession
	for _, sess := range m.byChannel {
		if sess.IdleFor(now) > threshold {
			idle = append(idle, m.detachLocked(sess))
		}
	}
	m.mu.Unlock()

	sort.Slice(idle, func(i, j int) bool { return idle[i].OpenedAt.Before(idle[j].OpenedAt) })
	for _, sess := range idle {
		m.finishClose(ctx, sess, opts, model.EventTicketReaped)
	}

	span.SetAttributes(attribute.Int("tickets.closed", len(idle)))
	return idle
}

// Session returns the live ticket bound to channelID.
func (m *Manager) Session(channelID string) (model.TicketSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byChannel[channelID]
	if !ok {
		return model.TicketSession{}, false
	}
	return *sess, true
}

// SessionForOwner returns the live ticket of ownerID, including one whose
// channel is still being created.
func (m *Manager) SessionForOwner(ownerID string) (model.TicketSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byOwner[ownerID]
	if !ok {
		return model.TicketSession{}, false
	}
	return *sess, true
}

// Sessions returns every live ticket with a channel, oldest first.
func (m *Manager) Sessions() []model.TicketSession {
	m.mu.Lock()
	out := make([]model.TicketSession, 0, len(m.byChannel))
	for _, sess := range m.byChannel {
		out = append(out, *sess)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// detachLocked marks sess closed and removes it from the live maps.
func (m *Manager) detachLocked(sess *model.TicketSession) model.TicketSession {
	sess.State = model.TicketClosed
	if m.byOwner[sess.OwnerID] == sess {
		delete(m.byOwner, sess.OwnerID)
	}
	if sess.ChannelID != "" && m.byChannel[sess.ChannelID] == sess {
		delete(m.byChannel, sess.ChannelID)
	}
	return *sess
}

// detachOwnerLocked detaches every live session owned by ownerID.
func (m *Manager) detachOwnerLocked(ownerID string) []model.TicketSession {
	var out []model.TicketSession
	for _, sess := range m.byChannel {
		if sess.OwnerID == ownerID {
			out = append(out, m.detachLocked(sess))
		}
	}
	if sess, ok := m.byOwner[ownerID]; ok {
		out = append(out, m.detachLocked(sess))
	}
	return out
}

func (m *Manager) finishClose(ctx context.Context, sess model.TicketSession, opts CloseOptions, event model.EventType) {
	log := m.logger.WithActor(sess.OwnerID, sess.ChannelID)

	if opts.Notice != "" {
		if err := m.platform.SendMessage(ctx, sess.ChannelID, opts.Notice); err != nil {
			log.Warn("failed to send closing notice", zap.Error(err))
		}
	}

	channelID := sess.ChannelID
	bg := context.WithoutCancel(ctx)
	m.scheduler.Schedule("delete-channel:"+channelID, opts.Grace, func() {
		m.deleteChannel(bg, channelID)
	})

	reason := opts.Reason
	if reason == "" {
		reason = "direct"
	}
	metrics.RecordTicketClosed(reason)
	log.Info("ticket closed", zap.String("reason", reason), zap.Duration("grace", opts.Grace))
	m.publish(ctx, event, sess.OwnerID, channelID, reason)
}

// deleteChannel deletes a channel. Failures are logged and not retried; the
// channel may already be gone.
func (m *Manager) deleteChannel(ctx context.Context, channelID string) {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	if err := m.platform.DeleteChannel(ctx, channelID); err != nil {
		m.logger.Warn("failed to delete ticket channel", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (m *Manager) publish(ctx context.Context, typ model.EventType, ownerID, channelID, reason string) {
	event := &model.TicketEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      typ,
		OwnerID:   ownerID,
		ChannelID: channelID,
		Reason:    reason,
		CreatedAt: m.clock.Now(),
	}
	if err := m.publisher.PublishEvent(ctx, event); err != nil {
		m.logger.Warn("failed to publish ticket event", zap.String("type", string(typ)), zap.Error(err))
	}
}

func (m *Manager) channelSpec(actor model.Actor) platform.ChannelSpec {
	return platform.ChannelSpec{
		Name:           platform.TicketChannelName(m.cfg.Naming, actor.ID, actor.Name),
		OwnerID:        actor.ID,
		OwnerName:      actor.Name,
		ParentCategory: m.cfg.ParentCategory,
		AccessList:     m.cfg.StaffRoles,
		Topic:          "Support ticket for " + actor.Name,
	}
}

func (m *Manager) greeting(actor model.Actor) string {
	return strings.NewReplacer(
		"{user_id}", actor.ID,
		"{user_name}", actor.Name,
	).Replace(m.cfg.Greeting)
}
