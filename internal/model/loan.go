package model

import "time"

// Loan states. Overdue and "return pending" are derived views computed from
// due_date and the open return request, never stored.
const (
	LoanStatePending   = "pending"
	LoanStateBorrowed  = "borrowed"
	LoanStateReturned  = "returned"
	LoanStateRejected  = "rejected"
	LoanStateCancelled = "cancelled"
)

// Borrowing limits.
const (
	MinBorrowDays = 7
	MaxBorrowDays = 30
	ExtensionDays = 7
	MaxReasonLen  = 500
)

// Loan represents one reader's borrow of one copy of a title, from request
// to closure. Terminal loans are kept as history, never deleted.
type Loan struct {
	ID              int64      `json:"id"`
	BookID          int64      `json:"book_id"`
	ReaderID        int64      `json:"reader_id"`
	BorrowDays      int        `json:"borrow_days"`
	State           string     `json:"state"`
	BorrowDate      *time.Time `json:"borrow_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ReturnDate      *time.Time `json:"return_date,omitempty"`
	Extended        bool       `json:"extended"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`

	// Joined fields (not always populated).
	BookTitle        string `json:"book_title,omitempty"`
	ReaderName       string `json:"reader_name,omitempty"`
	HasPendingReturn bool   `json:"has_pending_return,omitempty"`
}

// IsOverdue reports whether the loan is past due at the given time.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.State == LoanStateBorrowed && l.DueDate != nil && now.After(*l.DueDate)
}

// DaysOverdue returns the number of whole days past due, or 0.
func (l *Loan) DaysOverdue(now time.Time) int {
	if !l.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(*l.DueDate).Hours() / 24)
}

// DaysRemaining returns the number of whole days until the due date,
// or 0 when the loan has no due date or is already past due.
func (l *Loan) DaysRemaining(now time.Time) int {
	if l.State != LoanStateBorrowed || l.DueDate == nil || now.After(*l.DueDate) {
		return 0
	}
	return int(l.DueDate.Sub(now).Hours() / 24)
}

// ValidBorrowDays reports whether days is within the allowed borrowing window.
func ValidBorrowDays(days int) bool {
	return days >= MinBorrowDays && days <= MaxBorrowDays
}

// Return request states.
const (
	ReturnStatePending   = "pending"
	ReturnStateConfirmed = "confirmed"
)

// Book conditions recorded on return.
const (
	ConditionNormal  = "normal"
	ConditionDamaged = "damaged"
	ConditionLost    = "lost"
)

// ValidCondition reports whether cond is a known book condition.
func ValidCondition(cond string) bool {
	return cond == ConditionNormal || cond == ConditionDamaged || cond == ConditionLost
}

// ReturnRequest is a reader-initiated sub-process nested in an active loan.
// At most one open (pending) request exists per loan.
type ReturnRequest struct {
	ID            int64      `json:"id"`
	LoanID        int64      `json:"loan_id"`
	State         string     `json:"state"`
	BookCondition string     `json:"book_condition,omitempty"`
	StaffNote     string     `json:"staff_note,omitempty"`
	RequestDate   time.Time  `json:"request_date"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`

	// Joined fields (not always populated).
	ReaderID   int64  `json:"reader_id,omitempty"`
	BookID     int64  `json:"book_id,omitempty"`
	BookTitle  string `json:"book_title,omitempty"`
	ReaderName string `json:"reader_name,omitempty"`
}
