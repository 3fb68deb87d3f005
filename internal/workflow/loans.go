package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// SubmitLoan creates a borrow request in the pending state. Availability is
// checked but not reserved: the request does not hold a copy, and stock is
// re-checked at confirmation time.
func (s *Service) SubmitLoan(ctx context.Context, actor Actor, bookID int64, borrowDays int) (*model.Loan, error) {
	if err := Check(actor, ActionSubmitLoan, actor.ID); err != nil {
		return nil, err
	}
	if !model.ValidBorrowDays(borrowDays) {
		return nil, fmt.Errorf("%w: borrow days must be between %d and %d",
			ErrValidation, model.MinBorrowDays, model.MaxBorrowDays)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var available int
	var title string
	err = tx.QueryRowContext(ctx,
		`SELECT available_quantity, title FROM books WHERE id = ? AND deleted_at IS NULL`,
		bookID,
	).Scan(&available, &title)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: book %d", ErrNotFound, bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("checking availability: %w", err)
	}
	if available <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrOutOfStock, title)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO loans (book_id, reader_id, borrow_days) VALUES (?, ?, ?)`,
		bookID, actor.ID, borrowDays,
	)
	if err != nil {
		return nil, fmt.Errorf("creating loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing loan request: %w", err)
	}

	loanID, _ := result.LastInsertId()
	s.publish(actor.ID, "loan_submitted",
		fmt.Sprintf("Borrow request for %q submitted, awaiting confirmation.", title))

	return store.GetLoan(ctx, s.DB, loanID)
}

// ConfirmLoan hands a copy to the reader. Stock is re-checked at
// confirmation: a second reader may have exhausted availability since the
// request was submitted, in which case the confirm fails with ErrOutOfStock
// and the loan stays pending for manual disposition.
func (s *Service) ConfirmLoan(ctx context.Context, actor Actor, loanID int64) (*model.Loan, error) {
	if err := Check(actor, ActionConfirmLoan, 0); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var readerID, bookID int64
	var state string
	var borrowDays int
	err = tx.QueryRowContext(ctx,
		`SELECT reader_id, book_id, state, borrow_days FROM loans WHERE id = ?`, loanID,
	).Scan(&readerID, &bookID, &state, &borrowDays)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: loan %d", ErrNotFound, loanID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	if state != model.LoanStatePending {
		return nil, fmt.Errorf("%w: cannot confirm a %s loan", ErrInvalidState, state)
	}

	// Move one copy from available to borrowed; the guarded WHERE clause is
	// the stock re-check.
	result, err := tx.ExecContext(ctx,
		`UPDATE books SET available_quantity = available_quantity - 1,
		        borrowed_quantity = borrowed_quantity + 1,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND available_quantity > 0`, bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("reserving copy: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: book %d", ErrOutOfStock, bookID)
	}
	if err := verifyPool(ctx, tx, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	due := now.AddDate(0, 0, borrowDays)
	result, err = tx.ExecContext(ctx,
		`UPDATE loans SET state = ?, borrow_date = ?, due_date = ?
		 WHERE id = ? AND state = ?`,
		model.LoanStateBorrowed, now, due, loanID, model.LoanStatePending,
	)
	if err != nil {
		return nil, fmt.Errorf("confirming loan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: loan %d", ErrStaleState, loanID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing confirmation: %w", err)
	}

	s.publish(readerID, "loan_confirmed",
		fmt.Sprintf("Borrow request confirmed. Return by %s.", due.Format("02 Jan 2006")))

	return store.GetLoan(ctx, s.DB, loanID)
}

// RejectLoan declines a pending borrow request with a reason. Availability
// was never decremented for a pending loan, so the pool is untouched.
func (s *Service) RejectLoan(ctx context.Context, actor Actor, loanID int64, reason string) (*model.Loan, error) {
	if err := Check(actor, ActionRejectLoan, 0); err != nil {
		return nil, err
	}
	if err := validReason(reason); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var readerID int64
	var state string
	err = tx.QueryRowContext(ctx,
		`SELECT reader_id, state FROM loans WHERE id = ?`, loanID,
	).Scan(&readerID, &state)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: loan %d", ErrNotFound, loanID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	if state != model.LoanStatePending {
		return nil, fmt.Errorf("%w: cannot reject a %s loan", ErrInvalidState, state)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE loans SET state = ?, rejection_reason = ? WHERE id = ? AND state = ?`,
		model.LoanStateRejected, reason, loanID, model.LoanStatePending,
	)
	if err != nil {
		return nil, fmt.Errorf("rejecting loan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: loan %d", ErrStaleState, loanID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing rejection: %w", err)
	}

	s.publish(readerID, "loan_rejected",
		fmt.Sprintf("Borrow request rejected: %s", reason))

	return store.GetLoan(ctx, s.DB, loanID)
}

// CancelLoan lets the owning reader withdraw a pending borrow request.
func (s *Service) CancelLoan(ctx context.Context, actor Actor, loanID int64) (*model.Loan, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var readerID int64
	var state string
	err = tx.QueryRowContext(ctx,
		`SELECT reader_id, state FROM loans WHERE id = ?`, loanID,
	).Scan(&readerID, &state)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: loan %d", ErrNotFound, loanID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}

	if err := Check(actor, ActionCancelLoan, readerID); err != nil {
		return nil, err
	}
	if state != model.LoanStatePending {
		return nil, fmt.Errorf("%w: cannot cancel a %s loan", ErrInvalidState, state)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE loans SET state = ? WHERE id = ? AND state = ?`,
		model.LoanStateCancelled, loanID, model.LoanStatePending,
	)
	if err != nil {
		return nil, fmt.Errorf("cancelling loan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: loan %d", ErrStaleState, loanID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cancellation: %w", err)
	}

	s.publish(readerID, "loan_cancelled", "Borrow request cancelled.")

	return store.GetLoan(ctx, s.DB, loanID)
}

// ExtendLoan pushes the due date by a fixed seven days, once per loan.
// Blocked while a return request is open.
func (s *Service) ExtendLoan(ctx context.Context, actor Actor, loanID int64) (*model.Loan, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var readerID int64
	var state string
	var due *time.Time
	var extended bool
	err = tx.QueryRowContext(ctx,
		`SELECT reader_id, state, due_date, extended FROM loans WHERE id = ?`, loanID,
	).Scan(&readerID, &state, &due, &extended)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: loan %d", ErrNotFound, loanID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}

	if err := Check(actor, ActionExtendLoan, readerID); err != nil {
		return nil, err
	}
	if state != model.LoanStateBorrowed {
		return nil, fmt.Errorf("%w: cannot extend a %s loan", ErrInvalidState, state)
	}
	if extended {
		return nil, fmt.Errorf("%w: loan %d", ErrAlreadyExtended, loanID)
	}
	if due == nil {
		return nil, fmt.Errorf("%w: borrowed loan %d has no due date", ErrConsistency, loanID)
	}

	var openReturn bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM return_requests WHERE loan_id = ? AND state = 'pending')`,
		loanID,
	).Scan(&openReturn)
	if err != nil {
		return nil, fmt.Errorf("checking open return request: %w", err)
	}
	if openReturn {
		return nil, fmt.Errorf("%w: return already requested", ErrInvalidState)
	}

	newDue := due.AddDate(0, 0, model.ExtensionDays)
	result, err := tx.ExecContext(ctx,
		`UPDATE loans SET due_date = ?, extended = 1
		 WHERE id = ? AND state = ? AND extended = 0`,
		newDue, loanID, model.LoanStateBorrowed,
	)
	if err != nil {
		return nil, fmt.Errorf("extending loan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: loan %d", ErrStaleState, loanID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing extension: %w", err)
	}

	s.publish(readerID, "loan_extended",
		fmt.Sprintf("Loan extended. New due date: %s.", newDue.Format("02 Jan 2006")))

	return store.GetLoan(ctx, s.DB, loanID)
}
