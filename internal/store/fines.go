package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/knjiznica/internal/model"
)

const fineColumns = `f.id, f.loan_id, f.reader_id, f.fine_level_id, f.reason, f.amount, f.state,
	f.payment_proof, f.rejection_reason, f.confirmed_by, f.confirmed_at,
	f.rejected_by, f.rejected_at, f.created_at,
	b.title, u.username, fl.name`

func scanFine(row interface{ Scan(...any) error }) (*model.Fine, error) {
	f := &model.Fine{}
	var amount string
	var proof, rejectionReason sql.NullString
	err := row.Scan(&f.ID, &f.LoanID, &f.ReaderID, &f.FineLevelID, &f.Reason, &amount, &f.State,
		&proof, &rejectionReason, &f.ConfirmedBy, &f.ConfirmedAt,
		&f.RejectedBy, &f.RejectedAt, &f.CreatedAt,
		&f.BookTitle, &f.ReaderName, &f.LevelName)
	if err != nil {
		return nil, err
	}
	f.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing fine amount %q: %w", amount, err)
	}
	f.PaymentProof = proof.String
	f.RejectionReason = rejectionReason.String
	return f, nil
}

// GetFine returns a fine by ID with loan and tariff details joined.
func GetFine(ctx context.Context, db *sql.DB, id int64) (*model.Fine, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+fineColumns+`
		 FROM fines f
		 JOIN loans l ON l.id = f.loan_id
		 JOIN books b ON b.id = l.book_id
		 JOIN users u ON u.id = f.reader_id
		 JOIN fine_levels fl ON fl.id = f.fine_level_id
		 WHERE f.id = ?`, id,
	)
	fine, err := scanFine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting fine: %w", err)
	}
	return fine, nil
}

// ListFines returns fines, optionally filtered by reader and/or state,
// newest first.
func ListFines(ctx context.Context, db *sql.DB, readerID int64, state string) ([]model.Fine, error) {
	query := `SELECT ` + fineColumns + `
	          FROM fines f
	          JOIN loans l ON l.id = f.loan_id
	          JOIN books b ON b.id = l.book_id
	          JOIN users u ON u.id = f.reader_id
	          JOIN fine_levels fl ON fl.id = f.fine_level_id
	          WHERE 1=1`
	var args []any

	if readerID > 0 {
		query += ` AND f.reader_id = ?`
		args = append(args, readerID)
	}
	if state != "" {
		query += ` AND f.state = ?`
		args = append(args, state)
	}

	query += ` ORDER BY f.created_at DESC, f.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing fines: %w", err)
	}
	defer rows.Close()

	var fines []model.Fine
	for rows.Next() {
		fine, err := scanFine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fine: %w", err)
		}
		fines = append(fines, *fine)
	}
	return fines, rows.Err()
}

// SumOutstandingFines returns the total amount of fines not yet paid.
func SumOutstandingFines(ctx context.Context, db *sql.DB) (decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT amount FROM fines WHERE state != 'paid'`,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing outstanding fines: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scanning fine amount: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing fine amount %q: %w", amount, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}
