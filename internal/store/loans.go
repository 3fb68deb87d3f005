package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/knjiznica/internal/model"
)

const loanColumns = `l.id, l.book_id, l.reader_id, l.borrow_days, l.state,
	l.borrow_date, l.due_date, l.return_date, l.extended, l.rejection_reason, l.created_at,
	b.title, u.username,
	EXISTS (SELECT 1 FROM return_requests rr WHERE rr.loan_id = l.id AND rr.state = 'pending')`

func scanLoan(row interface{ Scan(...any) error }) (*model.Loan, error) {
	l := &model.Loan{}
	var rejectionReason sql.NullString
	err := row.Scan(&l.ID, &l.BookID, &l.ReaderID, &l.BorrowDays, &l.State,
		&l.BorrowDate, &l.DueDate, &l.ReturnDate, &l.Extended, &rejectionReason, &l.CreatedAt,
		&l.BookTitle, &l.ReaderName, &l.HasPendingReturn)
	if err != nil {
		return nil, err
	}
	l.RejectionReason = rejectionReason.String
	return l, nil
}

// GetLoan returns a loan by ID with book and reader details joined.
func GetLoan(ctx context.Context, db *sql.DB, id int64) (*model.Loan, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+loanColumns+`
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 JOIN users u ON u.id = l.reader_id
		 WHERE l.id = ?`, id,
	)
	loan, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return loan, nil
}

// ListLoans returns loans, optionally filtered by reader and/or state,
// newest first.
func ListLoans(ctx context.Context, db *sql.DB, readerID int64, state string) ([]model.Loan, error) {
	query := `SELECT ` + loanColumns + `
	          FROM loans l
	          JOIN books b ON b.id = l.book_id
	          JOIN users u ON u.id = l.reader_id
	          WHERE 1=1`
	var args []any

	if readerID > 0 {
		query += ` AND l.reader_id = ?`
		args = append(args, readerID)
	}
	if state != "" {
		query += ` AND l.state = ?`
		args = append(args, state)
	}

	query += ` ORDER BY l.created_at DESC, l.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		loans = append(loans, *loan)
	}
	return loans, rows.Err()
}

// CountLoansByState returns the number of loans per state.
func CountLoansByState(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM loans GROUP BY state`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting loans: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scanning loan count: %w", err)
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

// CountOverdueLoans returns the number of borrowed loans past their due date.
func CountOverdueLoans(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans
		 WHERE state = 'borrowed' AND due_date < CURRENT_TIMESTAMP`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting overdue loans: %w", err)
	}
	return n, nil
}
