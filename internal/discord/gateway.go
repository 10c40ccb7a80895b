// Package discord connects the bot core to a Discord guild.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/service"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
)

const (
	ButtonCreateTicket = "create_ticket"
	ButtonCloseTicket  = "close_ticket"
	ButtonConfirmClose = "confirm_close"
	ButtonCancelClose  = "cancel_close"

	CommandClose = "close"
)

// Config holds Discord connection settings.
type Config struct {
	Token         string
	GuildID       string
	HelpChannelID string
	// EventTimeout bounds the handling of one gateway event.
	EventTimeout time.Duration
}

// Gateway owns the Discord session. It implements platform.Platform and
// routes gateway events to the services.
type Gateway struct {
	cfg     Config
	session *discordgo.Session
	logger  *logger.Logger

	mu       sync.RWMutex
	support  *service.SupportService
	counting *service.CountingService
	baseCtx  context.Context
}

// New creates a gateway. The connection is opened by Open.
func New(cfg Config, log *logger.Logger) (*Gateway, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	if cfg.GuildID == "" {
		return nil, errors.New("discord: guild id is required")
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 30 * time.Second
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: failed to create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	g := &Gateway{
		cfg:     cfg,
		session: session,
		logger:  log.Named("discord"),
		baseCtx: context.Background(),
	}
	session.AddHandler(g.onReady)
	session.AddHandler(g.onInteraction)
	session.AddHandler(g.onMessage)
	return g, nil
}

// Bind attaches the services events are routed to. counting may be nil.
func (g *Gateway) Bind(support *service.SupportService, counting *service.CountingService) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.support = support
	g.counting = counting
}

// Open connects to the gateway. Event handling stops deriving contexts from
// ctx once it is cancelled.
func (g *Gateway) Open(ctx context.Context) error {
	g.mu.Lock()
	g.baseCtx = ctx
	g.mu.Unlock()

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("discord: failed to open session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (g *Gateway) Close() error {
	return g.session.Close()
}

// Connected reports whether the gateway session is ready.
func (g *Gateway) Connected() bool {
	g.session.RLock()
	defer g.session.RUnlock()
	return g.session.DataReady
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.logger.Info("logged in", zap.String("user", r.User.Username), zap.String("user_id", r.User.ID))

	moderators := int64(discordgo.PermissionManageChannels)
	_, err := s.ApplicationCommandCreate(r.User.ID, g.cfg.GuildID, &discordgo.ApplicationCommand{
		Name:                     CommandClose,
		Description:              "Close the current ticket channel",
		DefaultMemberPermissions: &moderators,
	})
	if err != nil {
		g.logger.Error("failed to register close command", zap.Error(err))
	}

	if g.cfg.HelpChannelID != "" {
		if err := g.postHelpButton(s, r.User.ID); err != nil {
			g.logger.Error("failed to set up help channel", zap.String("channel_id", g.cfg.HelpChannelID), zap.Error(err))
		}
	}
}

// postHelpButton posts the open-ticket button unless one of the last ten
// messages in the help channel is already from the bot.
func (g *Gateway) postHelpButton(s *discordgo.Session, botID string) error {
	recent, err := s.ChannelMessages(g.cfg.HelpChannelID, 10, "", "", "")
	if err != nil {
		return fmt.Errorf("fetching recent messages: %w", err)
	}
	for _, m := range recent {
		if m.Author != nil && m.Author.ID == botID {
			return nil
		}
	}

	_, err = s.ChannelMessageSendComplex(g.cfg.HelpChannelID, &discordgo.MessageSend{
		Content: "**Need help?** Click the button below to create a private support ticket.",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "🎫 Open Ticket", Style: discordgo.PrimaryButton, CustomID: ButtonCreateTicket},
			}},
		},
	})
	return err
}

func (g *Gateway) eventContext() (context.Context, context.CancelFunc) {
	g.mu.RLock()
	base := g.baseCtx
	g.mu.RUnlock()
	return context.WithTimeout(base, g.cfg.EventTimeout)
}

func (g *Gateway) services() (*service.SupportService, *service.CountingService) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.support, g.counting
}
