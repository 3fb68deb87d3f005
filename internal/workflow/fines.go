package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// PayFine attaches a payment proof and moves the fine to pending
// confirmation. Allowed from unpaid and from rejected, so a reader can
// resubmit after a rejected proof; the old rejection reason is cleared.
func (s *Service) PayFine(ctx context.Context, actor Actor, fineID int64, paymentProof string) (*model.Fine, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var readerID int64
	var state string
	err = tx.QueryRowContext(ctx,
		`SELECT reader_id, state FROM fines WHERE id = ?`, fineID,
	).Scan(&readerID, &state)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: fine %d", ErrNotFound, fineID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting fine: %w", err)
	}

	if err := Check(actor, ActionPayFine, readerID); err != nil {
		return nil, err
	}
	if state != model.FineStateUnpaid && state != model.FineStateRejected {
		return nil, fmt.Errorf("%w: cannot pay a %s fine", ErrInvalidState, state)
	}
	if strings.TrimSpace(paymentProof) == "" {
		return nil, fmt.Errorf("%w: payment proof is required", ErrValidation)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE fines SET state = ?, payment_proof = ?, rejection_reason = NULL
		 WHERE id = ? AND state IN (?, ?)`,
		model.FineStatePending, paymentProof, fineID,
		model.FineStateUnpaid, model.FineStateRejected,
	)
	if err != nil {
		return nil, fmt.Errorf("submitting payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: fine %d", ErrStaleState, fineID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing payment: %w", err)
	}

	s.publish(readerID, "fine_payment_submitted",
		"Payment proof submitted, awaiting confirmation.")

	return store.GetFine(ctx, s.DB, fineID)
}

// ConfirmPayment settles a fine. Paid is terminal: no further transition
// touches the fine afterwards.
func (s *Service) ConfirmPayment(ctx context.Context, actor Actor, fineID int64) (*model.Fine, error) {
	if err := Check(actor, ActionConfirmPayment, 0); err != nil {
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
		`SELECT reader_id, state FROM fines WHERE id = ?`, fineID,
	).Scan(&readerID, &state)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: fine %d", ErrNotFound, fineID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting fine: %w", err)
	}
	if state != model.FineStatePending {
		return nil, fmt.Errorf("%w: cannot confirm payment of a %s fine", ErrInvalidState, state)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE fines SET state = ?, confirmed_by = ?, confirmed_at = ?
		 WHERE id = ? AND state = ?`,
		model.FineStatePaid, actor.ID, time.Now(), fineID, model.FineStatePending,
	)
	if err != nil {
		return nil, fmt.Errorf("confirming payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: fine %d", ErrStaleState, fineID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing payment confirmation: %w", err)
	}

	s.publish(readerID, "fine_paid", "Fine payment confirmed. The fine is settled.")

	return store.GetFine(ctx, s.DB, fineID)
}

// RejectPayment sends a fine back to the reader with a reason; the reader
// may submit a new proof afterwards.
func (s *Service) RejectPayment(ctx context.Context, actor Actor, fineID int64, reason string) (*model.Fine, error) {
	if err := Check(actor, ActionRejectPayment, 0); err != nil {
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
		`SELECT reader_id, state FROM fines WHERE id = ?`, fineID,
	).Scan(&readerID, &state)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: fine %d", ErrNotFound, fineID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting fine: %w", err)
	}
	if state != model.FineStatePending {
		return nil, fmt.Errorf("%w: cannot reject payment of a %s fine", ErrInvalidState, state)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE fines SET state = ?, rejection_reason = ?, rejected_by = ?, rejected_at = ?
		 WHERE id = ? AND state = ?`,
		model.FineStateRejected, reason, actor.ID, time.Now(), fineID, model.FineStatePending,
	)
	if err != nil {
		return nil, fmt.Errorf("rejecting payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: fine %d", ErrStaleState, fineID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing payment rejection: %w", err)
	}

	s.publish(readerID, "fine_payment_rejected",
		fmt.Sprintf("Payment proof rejected: %s", reason))

	return store.GetFine(ctx, s.DB, fineID)
}
