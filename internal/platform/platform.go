// Package platform defines the side effects the bot core requests from the
// hosting chat platform.
package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/steveluke1457/Mr-Bot/internal/model"
)

// ChannelSpec describes a private conversation channel to create.
type ChannelSpec struct {
	Name           string
	OwnerID        string
	OwnerName      string
	ParentCategory string
	// AccessList holds role or member IDs that may see the channel besides
	// the owner and the bot.
	AccessList []string
	Topic      string
}

// Platform executes side effects on the chat platform. Implementations must
// be safe for concurrent use.
type Platform interface {
	CreateConversationChannel(ctx context.Context, spec ChannelSpec) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
	SendMessage(ctx context.Context, channelID, text string) error
	// SendPrompt sends text with the interactive controls named by prompt.
	SendPrompt(ctx context.Context, channelID, text string, prompt model.Prompt) error
	SuspendActor(ctx context.Context, actorID string, d time.Duration, reason string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
}

// NamingMode selects how ticket channels are named.
type NamingMode string

const (
	// NamePerActorID names channels ticket-<name>-<id>; unique per actor.
	NamePerActorID NamingMode = "name_id"
	// NamePerActorName names channels ticket-<name>.
	NamePerActorName NamingMode = "name"
)

// TicketChannelName builds the channel name for an actor. Platform channel
// names are lowercase and without spaces.
func TicketChannelName(mode NamingMode, actorID, actorName string) string {
	name := strings.ToLower(strings.Join(strings.Fields(actorName), "-"))
	if name == "" {
		name = "user"
	}
	if mode == NamePerActorName {
		return "ticket-" + name
	}
	return fmt.Sprintf("ticket-%s-%s", name, actorID)
}
