package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/counting"
	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/platform"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
	"github.com/steveluke1457/Mr-Bot/pkg/metrics"
)

// AcceptedReaction marks an accepted count.
const AcceptedReaction = "✅"

// CountingService runs the counting game in configured channels.
type CountingService struct {
	validator *counting.Validator
	platform  platform.Platform
	channels  map[string]struct{}
	logger    *logger.Logger
}

// NewCountingService creates a counting service for channelIDs.
func NewCountingService(validator *counting.Validator, plat platform.Platform, channelIDs []string, log *logger.Logger) *CountingService {
	channels := make(map[string]struct{}, len(channelIDs))
	for _, id := range channelIDs {
		channels[id] = struct{}{}
	}
	return &CountingService{
		validator: validator,
		platform:  plat,
		channels:  channels,
		logger:    log.Named("counting"),
	}
}

// Enabled reports whether channelID is a counting channel.
func (s *CountingService) Enabled(channelID string) bool {
	_, ok := s.channels[channelID]
	return ok
}

// HandleMessage evaluates a message in a counting channel. Accepted counts
// get a reaction and duplicates are deleted. Rejected and non-numeric
// messages are left alone.
func (s *CountingService) HandleMessage(ctx context.Context, msg model.InboundMessage) (counting.Verdict, error) {
	if !s.Enabled(msg.ChannelID) {
		return counting.Rejected, nil
	}
	value, ok := counting.Parse(msg.Content)
	if !ok {
		return counting.Rejected, nil
	}

	verdict := s.validator.Submit(msg.ChannelID, msg.Author.ID, value)
	metrics.CountingSubmissions.WithLabelValues(verdict.String()).Inc()

	switch verdict {
	case counting.Accepted:
		if err := s.platform.React(ctx, msg.ChannelID, msg.ID, AcceptedReaction); err != nil {
			return verdict, fmt.Errorf("failed to react: %w", err)
		}
	case counting.Duplicate:
		s.logger.Debug("retracting consecutive count",
			zap.String("channel_id", msg.ChannelID),
			zap.String("actor_id", msg.Author.ID),
			zap.Int("value", value),
		)
		if err := s.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			return verdict, fmt.Errorf("failed to delete duplicate: %w", err)
		}
	}
	return verdict, nil
}
