// Package service turns platform events into core operations and user replies.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/chunker"
	"github.com/steveluke1457/Mr-Bot/internal/conversation"
	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/platform"
	"github.com/steveluke1457/Mr-Bot/internal/ticket"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
)

// Replies shown to users.
const (
	ReplyTicketCreated   = "✅ Your ticket has been created."
	ReplyAlreadyOpen     = "📬 You already have an open ticket."
	ReplySpamDegraded    = "❌ You are spamming tickets. Please wait before trying again."
	ReplyCreateFailed    = "❌ Your ticket could not be created. Please try again later."
	ReplyConfirmClose    = "⚠️ Are you sure you want to close this ticket?"
	ReplyCloseCancelled  = "❎ Ticket closure canceled."
	ReplyNotATicket      = "This is not a ticket channel."
	ReplyNoPendingClose  = "⚠️ This ticket has no pending close request."
	ReplyUnexpectedError = "❌ Something went wrong. Please try again."
)

// SupportConfig configures SupportService.
type SupportConfig struct {
	// ChunkMaxLen is the platform message size limit.
	ChunkMaxLen int
	// SuspendDuration is quoted in the spam reply.
	SuspendDuration time.Duration
	// ForceCloseGrace delays deletion after a moderator close.
	ForceCloseGrace time.Duration
}

// SupportService handles ticket interactions and ticket channel messages.
type SupportService struct {
	cfg      SupportConfig
	tickets  *ticket.Manager
	buffer   *conversation.Buffer
	platform platform.Platform
	logger   *logger.Logger
}

// NewSupportService creates a support service. buffer may be nil, which
// disables AI replies.
func NewSupportService(
	cfg SupportConfig,
	tickets *ticket.Manager,
	buffer *conversation.Buffer,
	plat platform.Platform,
	log *logger.Logger,
) *SupportService {
	if cfg.ChunkMaxLen <= 0 {
		cfg.ChunkMaxLen = chunker.DefaultMaxLen
	}
	return &SupportService{
		cfg:      cfg,
		tickets:  tickets,
		buffer:   buffer,
		platform: plat,
		logger:   log.Named("support"),
	}
}

// OpenTicket opens a ticket for actor.
func (s *SupportService) OpenTicket(ctx context.Context, actor model.Actor) model.Reply {
	res, err := s.tickets.RequestOpen(ctx, actor)
	for _, channelID := range res.ClosedChannels {
		s.forgetHistory(channelID)
	}
	switch {
	case err == nil:
		return ephemeral(ReplyTicketCreated)
	case errors.Is(err, ticket.ErrAlreadyOpen):
		return ephemeral(ReplyAlreadyOpen)
	case errors.Is(err, ticket.ErrSuspendFailed):
		return ephemeral(ReplySpamDegraded)
	case errors.Is(err, ticket.ErrCooldownViolated):
		return ephemeral(fmt.Sprintf("⛔ You were spamming tickets and have been timed out for %s.", humanDuration(s.cfg.SuspendDuration)))
	case errors.Is(err, ticket.ErrChannelCreateFailed), errors.Is(err, ticket.ErrOpenAborted):
		return ephemeral(ReplyCreateFailed)
	default:
		s.logger.Error("unexpected open failure", zap.String("actor_id", actor.ID), zap.Error(err))
		return ephemeral(ReplyUnexpectedError)
	}
}

// RequestClose asks for confirmation before closing the ticket in channelID.
func (s *SupportService) RequestClose(ctx context.Context, channelID string) model.Reply {
	if _, err := s.tickets.RequestClose(ctx, channelID); err != nil {
		return s.closeError(channelID, err)
	}
	return model.Reply{Content: ReplyConfirmClose, Ephemeral: true, Prompt: model.PromptConfirmClose}
}

// ConfirmClose closes the ticket in channelID. The closing notice goes to
// the channel itself, so a successful close has an empty reply.
func (s *SupportService) ConfirmClose(ctx context.Context, channelID string) model.Reply {
	if err := s.tickets.ConfirmClose(ctx, channelID); err != nil {
		return s.closeError(channelID, err)
	}
	s.forgetHistory(channelID)
	return model.Reply{}
}

// CancelClose keeps the ticket in channelID open.
func (s *SupportService) CancelClose(ctx context.Context, channelID string) model.Reply {
	if err := s.tickets.CancelClose(ctx, channelID); err != nil {
		return s.closeError(channelID, err)
	}
	return ephemeral(ReplyCloseCancelled)
}

// ForceClose closes the ticket in channelID on behalf of a moderator. The
// reply is always set; err carries the ticket error for callers that map it
// themselves.
func (s *SupportService) ForceClose(ctx context.Context, channelID string, moderator model.Actor) (model.Reply, error) {
	err := s.tickets.DirectClose(ctx, channelID, ticket.CloseOptions{
		Grace:  s.cfg.ForceCloseGrace,
		Reason: "moderator",
	})
	if err != nil {
		return s.closeError(channelID, err), err
	}

	s.forgetHistory(channelID)
	s.logger.Info("ticket force-closed",
		zap.String("channel_id", channelID),
		zap.String("moderator_id", moderator.ID),
	)
	return model.Reply{Content: fmt.Sprintf("✅ Ticket will be closed in %s...", humanDuration(s.cfg.ForceCloseGrace))}, nil
}

func (s *SupportService) closeError(channelID string, err error) model.Reply {
	switch {
	case errors.Is(err, ticket.ErrNotATicketChannel):
		return ephemeral(ReplyNotATicket)
	case errors.Is(err, ticket.ErrInvalidTransition):
		return ephemeral(ReplyNoPendingClose)
	default:
		s.logger.Error("unexpected close failure", zap.String("channel_id", channelID), zap.Error(err))
		return ephemeral(ReplyUnexpectedError)
	}
}

func (s *SupportService) forgetHistory(channelID string) {
	if s.buffer != nil {
		s.buffer.ForgetChannel(channelID)
	}
}

func ephemeral(content string) model.Reply {
	return model.Reply{Content: content, Ephemeral: true}
}

// humanDuration renders d as "10 minutes" or "3 seconds".
func humanDuration(d time.Duration) string {
	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(int64(d/time.Minute), "minute")
	default:
		return unit(int64(d.Round(time.Second)/time.Second), "second")
	}
}
