// Package notify delivers workflow events to readers: each event becomes a
// stored notification row and, when the user is connected, a live websocket
// message. Delivery is fire-and-forget; the workflow never blocks on it.
package notify

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/knjiznica/internal/store"
	"github.com/erazemk/knjiznica/internal/workflow"
)

// Notifier implements workflow.Sink.
type Notifier struct {
	DB  *sql.DB
	Hub *Hub
}

// Publish records and pushes the event asynchronously. Failures are logged
// and dropped, never retried.
func (n *Notifier) Publish(event workflow.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		id := uuid.NewString()
		if err := store.CreateNotification(ctx, n.DB, id, event.UserID, event.Kind, event.Message); err != nil {
			slog.Warn("failed to store notification", "user", event.UserID, "event", event.Kind, "error", err)
		}

		if n.Hub != nil {
			n.Hub.Send(event.UserID, event.Message)
		}
	}()
}
