package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/chunker"
	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/ticket"
	"github.com/steveluke1457/Mr-Bot/pkg/metrics"
)

// HandleMessage records activity for a message in a ticket channel and,
// with AI replies enabled, answers it. Messages outside ticket channels are
// ignored.
func (s *SupportService) HandleMessage(ctx context.Context, msg model.InboundMessage) error {
	if err := s.tickets.Touch(msg.ChannelID); err != nil {
		if errors.Is(err, ticket.ErrNotATicketChannel) {
			return nil
		}
		return err
	}
	if s.buffer == nil || msg.Content == "" {
		return nil
	}

	log := s.logger.WithActor(msg.Author.ID, msg.ChannelID)
	key := s.buffer.Key(msg.Author.ID, msg.ChannelID)

	reply, err := s.buffer.AppendAndRespond(ctx, key, msg.Content)
	if err != nil {
		log.Warn("sending failure reply", zap.Error(err))
	}

	return s.send(ctx, msg.ChannelID, reply)
}

// send delivers text in chunks, in order, stopping at the first failure.
func (s *SupportService) send(ctx context.Context, channelID, text string) error {
	for _, chunk := range chunker.Split(text, s.cfg.ChunkMaxLen, chunker.WithTrim()) {
		if err := s.platform.SendMessage(ctx, channelID, chunk); err != nil {
			return fmt.Errorf("failed to send reply: %w", err)
		}
		metrics.ChunksSent.Inc()
	}
	return nil
}
