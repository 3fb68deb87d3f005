package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/knjiznica/internal/model"
)

// Event describes one completed transition, published to the notification
// sink for the affected reader.
type Event struct {
	UserID  int64
	Kind    string
	Message string
}

// Sink receives one event per completed transition. Implementations must
// not block; the service never waits on or retries a publish.
type Sink interface {
	Publish(event Event)
}

// Service sequences the loan, return, and fine state machines. Every method
// passes through Check before touching any state, and wraps its state
// transition and the matching copy-pool mutation in a single transaction.
type Service struct {
	DB   *sql.DB
	Sink Sink
}

// publish sends an event to the sink, if one is configured.
func (s *Service) publish(userID int64, kind, message string) {
	if s.Sink == nil {
		return
	}
	s.Sink.Publish(Event{UserID: userID, Kind: kind, Message: message})
}

// validReason checks the non-empty, length-capped free-text fields
// (rejection reasons, staff notes).
func validReason(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if len(reason) > model.MaxReasonLen {
		return fmt.Errorf("%w: reason exceeds %d characters", ErrValidation, model.MaxReasonLen)
	}
	return nil
}

// verifyPool re-reads a book's pool counters inside the transaction and
// fails with ErrConsistency when the buckets no longer add up. The schema
// CHECK constraints should make this unreachable.
func verifyPool(ctx context.Context, tx *sql.Tx, bookID int64) error {
	var total, available, borrowed, lost, damaged int
	err := tx.QueryRowContext(ctx,
		`SELECT total_quantity, available_quantity, borrowed_quantity, lost_count, damaged_count
		 FROM books WHERE id = ?`, bookID,
	).Scan(&total, &available, &borrowed, &lost, &damaged)
	if err != nil {
		return fmt.Errorf("verifying pool: %w", err)
	}

	if available < 0 || total != available+borrowed+lost+damaged {
		return fmt.Errorf("%w: book %d pool %d != %d+%d+%d+%d",
			ErrConsistency, bookID, total, available, borrowed, lost, damaged)
	}
	return nil
}
