package ticket

import (
	"context"

	"github.com/steveluke1457/Mr-Bot/internal/model"
)

// Publisher receives lifecycle events.
type Publisher interface {
	PublishEvent(ctx context.Context, event *model.TicketEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// PublishEvent implements Publisher.
func (NopPublisher) PublishEvent(context.Context, *model.TicketEvent) error { return nil }
