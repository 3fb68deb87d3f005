package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// RequestReturn opens a return request on a borrowed loan. At most one open
// request may exist per loan; the partial unique index backs up this check.
func (s *Service) RequestReturn(ctx context.Context, actor Actor, loanID int64) (*model.ReturnRequest, error) {
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

	if err := Check(actor, ActionRequestReturn, readerID); err != nil {
		return nil, err
	}
	if state != model.LoanStateBorrowed {
		return nil, fmt.Errorf("%w: cannot return a %s loan", ErrInvalidState, state)
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

	result, err := tx.ExecContext(ctx,
		`INSERT INTO return_requests (loan_id) VALUES (?)`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating return request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return request: %w", err)
	}

	requestID, _ := result.LastInsertId()
	s.publish(readerID, "return_requested",
		"Return requested, awaiting inspection by a librarian.")

	return store.GetReturnRequest(ctx, s.DB, requestID)
}

// fineSpec is one fine to assess during return confirmation.
type fineSpec struct {
	reason  string
	levelID int64
}

// ConfirmReturn closes out a loan after staff inspection. The condition
// decides which pool bucket the copy moves to and which fines are required:
//
//	normal, on time     → no fine
//	normal, overdue     → late fine (fineLevelID required)
//	damaged or lost     → damage/loss fine (fineLevelID and note required);
//	                      if also overdue, a late fine is assessed with
//	                      lateFineLevelID, falling back to fineLevelID
//
// Loan state, return request state, pool counters, and any fines all change
// in one transaction; validation failures leave everything untouched.
func (s *Service) ConfirmReturn(ctx context.Context, actor Actor, requestID int64, condition string, fineLevelID, lateFineLevelID *int64, note string) (*model.Loan, error) {
	if err := Check(actor, ActionConfirmReturn, 0); err != nil {
		return nil, err
	}
	if !model.ValidCondition(condition) {
		return nil, fmt.Errorf("%w: unknown book condition %q", ErrValidation, condition)
	}
	if len(note) > model.MaxReasonLen {
		return nil, fmt.Errorf("%w: note exceeds %d characters", ErrValidation, model.MaxReasonLen)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var loanID int64
	var requestState string
	err = tx.QueryRowContext(ctx,
		`SELECT loan_id, state FROM return_requests WHERE id = ?`, requestID,
	).Scan(&loanID, &requestState)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: return request %d", ErrNotFound, requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting return request: %w", err)
	}
	if requestState != model.ReturnStatePending {
		return nil, fmt.Errorf("%w: return request already %s", ErrInvalidState, requestState)
	}

	var readerID, bookID int64
	var loanState string
	var due *time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT reader_id, book_id, state, due_date FROM loans WHERE id = ?`, loanID,
	).Scan(&readerID, &bookID, &loanState, &due)
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	if loanState != model.LoanStateBorrowed {
		return nil, fmt.Errorf("%w: loan is %s", ErrInvalidState, loanState)
	}

	now := time.Now()
	overdue := due != nil && now.After(*due)

	// Validation matrix: which fines are required for this condition.
	var specs []fineSpec
	switch condition {
	case model.ConditionNormal:
		if overdue {
			if fineLevelID == nil {
				return nil, fmt.Errorf("%w: overdue return requires a fine level", ErrValidation)
			}
			specs = append(specs, fineSpec{reason: model.FineReasonOverdue, levelID: *fineLevelID})
		}
	case model.ConditionDamaged, model.ConditionLost:
		if fineLevelID == nil {
			return nil, fmt.Errorf("%w: %s return requires a fine level", ErrValidation, condition)
		}
		if strings.TrimSpace(note) == "" {
			return nil, fmt.Errorf("%w: %s return requires a staff note", ErrValidation, condition)
		}
		reason := model.FineReasonDamaged
		if condition == model.ConditionLost {
			reason = model.FineReasonLost
		}
		specs = append(specs, fineSpec{reason: reason, levelID: *fineLevelID})
		if overdue {
			lateID := *fineLevelID
			if lateFineLevelID != nil {
				lateID = *lateFineLevelID
			}
			specs = append(specs, fineSpec{reason: model.FineReasonOverdue, levelID: lateID})
		}
	}

	// Snapshot tariff amounts before mutating anything, so an unknown fine
	// level fails the call with no state change.
	amounts := make(map[int64]decimal.Decimal)
	for _, spec := range specs {
		if _, ok := amounts[spec.levelID]; ok {
			continue
		}
		var amount string
		err = tx.QueryRowContext(ctx,
			`SELECT amount FROM fine_levels WHERE id = ? AND deleted_at IS NULL`,
			spec.levelID,
		).Scan(&amount)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: unknown fine level %d", ErrValidation, spec.levelID)
		}
		if err != nil {
			return nil, fmt.Errorf("getting fine level: %w", err)
		}
		amounts[spec.levelID], err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing fine level amount %q: %w", amount, err)
		}
	}

	// Move the copy out of the borrowed bucket. A lost or damaged copy never
	// returns to availability.
	var bucket string
	switch condition {
	case model.ConditionNormal:
		bucket = "available_quantity"
	case model.ConditionDamaged:
		bucket = "damaged_count"
	case model.ConditionLost:
		bucket = "lost_count"
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE books SET borrowed_quantity = borrowed_quantity - 1,
		        `+bucket+` = `+bucket+` + 1,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND borrowed_quantity > 0`, bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("returning copy: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: book %d has no borrowed copies", ErrConsistency, bookID)
	}
	if err := verifyPool(ctx, tx, bookID); err != nil {
		return nil, err
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE loans SET state = ?, return_date = ? WHERE id = ? AND state = ?`,
		model.LoanStateReturned, now, loanID, model.LoanStateBorrowed,
	)
	if err != nil {
		return nil, fmt.Errorf("closing loan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: loan %d", ErrStaleState, loanID)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE return_requests SET state = ?, book_condition = ?, staff_note = ?, confirmed_at = ?
		 WHERE id = ? AND state = ?`,
		model.ReturnStateConfirmed, condition, note, now, requestID, model.ReturnStatePending,
	)
	if err != nil {
		return nil, fmt.Errorf("confirming return request: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: return request %d", ErrStaleState, requestID)
	}

	for _, spec := range specs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO fines (loan_id, reader_id, fine_level_id, reason, amount)
			 VALUES (?, ?, ?, ?, ?)`,
			loanID, readerID, spec.levelID, spec.reason, amounts[spec.levelID].String(),
		)
		if err != nil {
			return nil, fmt.Errorf("assessing fine: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}

	message := "Return confirmed."
	if len(specs) > 0 {
		message = fmt.Sprintf("Return confirmed with %d fine(s) assessed.", len(specs))
	}
	s.publish(readerID, "return_confirmed", message)

	return store.GetLoan(ctx, s.DB, loanID)
}
