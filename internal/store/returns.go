package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/knjiznica/internal/model"
)

const returnColumns = `rr.id, rr.loan_id, rr.state, rr.book_condition, rr.staff_note,
	rr.request_date, rr.confirmed_at,
	l.reader_id, l.book_id, b.title, u.username`

func scanReturnRequest(row interface{ Scan(...any) error }) (*model.ReturnRequest, error) {
	rr := &model.ReturnRequest{}
	var condition, note sql.NullString
	err := row.Scan(&rr.ID, &rr.LoanID, &rr.State, &condition, &note,
		&rr.RequestDate, &rr.ConfirmedAt,
		&rr.ReaderID, &rr.BookID, &rr.BookTitle, &rr.ReaderName)
	if err != nil {
		return nil, err
	}
	rr.BookCondition = condition.String
	rr.StaffNote = note.String
	return rr, nil
}

// GetReturnRequest returns a return request by ID with loan details joined.
func GetReturnRequest(ctx context.Context, db *sql.DB, id int64) (*model.ReturnRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+returnColumns+`
		 FROM return_requests rr
		 JOIN loans l ON l.id = rr.loan_id
		 JOIN books b ON b.id = l.book_id
		 JOIN users u ON u.id = l.reader_id
		 WHERE rr.id = ?`, id,
	)
	rr, err := scanReturnRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting return request: %w", err)
	}
	return rr, nil
}

// ListPendingReturns returns all open return requests, oldest first.
func ListPendingReturns(ctx context.Context, db *sql.DB) ([]model.ReturnRequest, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+returnColumns+`
		 FROM return_requests rr
		 JOIN loans l ON l.id = rr.loan_id
		 JOIN books b ON b.id = l.book_id
		 JOIN users u ON u.id = l.reader_id
		 WHERE rr.state = 'pending'
		 ORDER BY rr.request_date, rr.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending returns: %w", err)
	}
	defer rows.Close()

	var requests []model.ReturnRequest
	for rows.Next() {
		rr, err := scanReturnRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning return request: %w", err)
		}
		requests = append(requests, *rr)
	}
	return requests, rows.Err()
}
