package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fine states.
const (
	FineStateUnpaid   = "unpaid"
	FineStatePending  = "pending"
	FineStatePaid     = "paid"
	FineStateRejected = "rejected"
)

// Fine reasons.
const (
	FineReasonOverdue = "overdue"
	FineReasonDamaged = "damaged"
	FineReasonLost    = "lost"
)

// Fine is a monetary penalty tied to a loan. The amount is a snapshot of the
// referenced fine level at assessment time; later tariff edits never change
// an assessed fine. Paid fines are immutable.
type Fine struct {
	ID              int64           `json:"id"`
	LoanID          int64           `json:"loan_id"`
	ReaderID        int64           `json:"reader_id"`
	FineLevelID     int64           `json:"fine_level_id"`
	Reason          string          `json:"reason"`
	Amount          decimal.Decimal `json:"amount"`
	State           string          `json:"state"`
	PaymentProof    string          `json:"payment_proof,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	ConfirmedBy     *int64          `json:"confirmed_by,omitempty"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	RejectedBy      *int64          `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`

	// Joined fields (not always populated).
	BookTitle  string `json:"book_title,omitempty"`
	ReaderName string `json:"reader_name,omitempty"`
	LevelName  string `json:"level_name,omitempty"`
}

// FineLevel is an admin-configured named tariff referenced by fines.
type FineLevel struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

// Notification is a per-user message emitted after completed transitions.
type Notification struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Event     string    `json:"event"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
