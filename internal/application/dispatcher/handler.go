package dispatcher

import (
	"context"

	"github.com/garyjia/po-approval/internal/domain/event"
)

// Handler reacts to a session or order event
type Handler func(ctx context.Context, evt *event.Event) error

// Subscription describes a registered handler
type Subscription struct {
	Name      string
	EventType event.Type
	handler   Handler
}
