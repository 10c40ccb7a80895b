package discord

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/model"
)

func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	support, _ := g.services()
	if support == nil || i.GuildID != g.cfg.GuildID {
		return
	}
	actor, ok := actorFromInteraction(i.Interaction)
	if !ok {
		return
	}

	ctx, cancel := g.eventContext()
	defer cancel()

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		switch i.MessageComponentData().CustomID {
		case ButtonCreateTicket:
			// channel creation can outlast the interaction deadline
			if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
			}); err != nil {
				g.logger.Warn("failed to defer interaction", zap.Error(err))
				return
			}
			reply := support.OpenTicket(ctx, actor)
			if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &reply.Content}); err != nil {
				g.logger.Warn("failed to edit interaction response", zap.Error(err))
			}
		case ButtonCloseTicket:
			g.respond(s, i.Interaction, support.RequestClose(ctx, i.ChannelID))
		case ButtonConfirmClose:
			g.respond(s, i.Interaction, support.ConfirmClose(ctx, i.ChannelID))
		case ButtonCancelClose:
			g.respond(s, i.Interaction, support.CancelClose(ctx, i.ChannelID))
		}

	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == CommandClose {
			reply, _ := support.ForceClose(ctx, i.ChannelID, actor)
			g.respond(s, i.Interaction, reply)
		}
	}
}

// respond answers an interaction. An empty reply only acknowledges it.
func (g *Gateway) respond(s *discordgo.Session, i *discordgo.Interaction, reply model.Reply) {
	if err := s.InteractionRespond(i, interactionResponse(reply)); err != nil {
		g.logger.Warn("failed to respond to interaction", zap.String("channel_id", i.ChannelID), zap.Error(err))
	}
}

func interactionResponse(reply model.Reply) *discordgo.InteractionResponse {
	if reply.Content == "" {
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	}

	data := &discordgo.InteractionResponseData{
		Content:    reply.Content,
		Components: components(reply.Prompt),
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

func (g *Gateway) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID != g.cfg.GuildID {
		return
	}
	if m.Type != discordgo.MessageTypeDefault {
		return
	}

	support, counting := g.services()
	msg := inboundMessage(m.Message)

	ctx, cancel := g.eventContext()
	defer cancel()

	if counting != nil && counting.Enabled(msg.ChannelID) {
		if _, err := counting.HandleMessage(ctx, msg); err != nil {
			g.logger.Warn("counting message failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		}
		return
	}
	if support != nil {
		if err := support.HandleMessage(ctx, msg); err != nil {
			g.logger.Warn("ticket message failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		}
	}
}

func actorFromInteraction(i *discordgo.Interaction) (model.Actor, bool) {
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return model.Actor{}, false
	}
	return actorFromUser(user), true
}

func actorFromUser(u *discordgo.User) model.Actor {
	return model.Actor{ID: u.ID, Name: u.Username}
}

func inboundMessage(m *discordgo.Message) model.InboundMessage {
	return model.InboundMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Author:    actorFromUser(m.Author),
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
}
