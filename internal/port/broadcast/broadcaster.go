// Package broadcast defines the port for broadcasting real-time events to connected clients.
package broadcast

import (
	"context"

	"github.com/Strob0t/ClawCouncil/internal/domain/event"
)

// Broadcaster sends round events to all connected clients.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, ev *event.RoundEvent)
}
