package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/platform"
)

const memberPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory

var _ platform.Platform = (*Gateway)(nil)

// CreateConversationChannel creates a private text channel visible to the
// owner, the bot and the access list.
func (g *Gateway) CreateConversationChannel(ctx context.Context, spec platform.ChannelSpec) (string, error) {
	ch, err := g.session.GuildChannelCreateComplex(g.cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentCategory,
		PermissionOverwrites: g.overwrites(spec),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord: create channel %s: %w", spec.Name, err)
	}
	return ch.ID, nil
}

func (g *Gateway) overwrites(spec platform.ChannelSpec) []*discordgo.PermissionOverwrite {
	out := []*discordgo.PermissionOverwrite{
		// @everyone shares the guild id
		{ID: g.cfg.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: spec.OwnerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: memberPermissions},
	}
	if g.session.State != nil && g.session.State.User != nil {
		out = append(out, &discordgo.PermissionOverwrite{
			ID: g.session.State.User.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: memberPermissions,
		})
	}
	for _, roleID := range spec.AccessList {
		out = append(out, &discordgo.PermissionOverwrite{
			ID: roleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: memberPermissions,
		})
	}
	return out
}

// DeleteChannel deletes a channel.
func (g *Gateway) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := g.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: delete channel %s: %w", channelID, err)
	}
	return nil
}

// SendMessage sends a plain message.
func (g *Gateway) SendMessage(ctx context.Context, channelID, text string) error {
	if _, err := g.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// SendPrompt sends a message with the buttons for prompt.
func (g *Gateway) SendPrompt(ctx context.Context, channelID, text string, prompt model.Prompt) error {
	_, err := g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    text,
		Components: components(prompt),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: send prompt: %w", err)
	}
	return nil
}

// SuspendActor times out a guild member for d.
func (g *Gateway) SuspendActor(ctx context.Context, actorID string, d time.Duration, reason string) error {
	until := time.Now().Add(d)
	err := g.session.GuildMemberTimeout(g.cfg.GuildID, actorID, &until,
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
	if err != nil {
		return fmt.Errorf("discord: timeout member %s: %w", actorID, err)
	}
	return nil
}

// DeleteMessage deletes a message.
func (g *Gateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := g.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: delete message: %w", err)
	}
	return nil
}

// React adds emoji to a message.
func (g *Gateway) React(ctx context.Context, channelID, messageID, emoji string) error {
	if err := g.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: react: %w", err)
	}
	return nil
}

// components returns the button rows for prompt.
func components(prompt model.Prompt) []discordgo.MessageComponent {
	switch prompt {
	case model.PromptCloseButton:
		return []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "🔒 Close Ticket", Style: discordgo.DangerButton, CustomID: ButtonCloseTicket},
			}},
		}
	case model.PromptConfirmClose:
		return []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "✅ Confirm", Style: discordgo.SuccessButton, CustomID: ButtonConfirmClose},
				discordgo.Button{Label: "❌ Cancel", Style: discordgo.SecondaryButton, CustomID: ButtonCancelClose},
			}},
		}
	default:
		return nil
	}
}
