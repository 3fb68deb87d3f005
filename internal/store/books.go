package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/knjiznica/internal/model"
)

// ErrInsufficientStock is returned when a quantity removal exceeds the
// available copies.
var ErrInsufficientStock = errors.New("not enough available copies")

// ErrBorrowedCopies is returned when deleting a book that has copies out.
var ErrBorrowedCopies = errors.New("book has borrowed copies")

const bookColumns = `b.id, b.title, b.author, b.category_id, b.description, b.cover_mime,
	b.total_quantity, b.available_quantity, b.borrowed_quantity, b.lost_count, b.damaged_count,
	b.created_at, b.updated_at, b.deleted_at, c.name`

func scanBook(row interface{ Scan(...any) error }) (*model.Book, error) {
	b := &model.Book{}
	var author, description, coverMime, categoryName sql.NullString
	err := row.Scan(&b.ID, &b.Title, &author, &b.CategoryID, &description, &coverMime,
		&b.Total, &b.Available, &b.Borrowed, &b.Lost, &b.Damaged,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt, &categoryName)
	if err != nil {
		return nil, err
	}
	b.Author = author.String
	b.Description = description.String
	b.CoverMime = coverMime.String
	b.CategoryName = categoryName.String
	return b, nil
}

// CreateBook creates a book with an initial pool of copies, all available.
func CreateBook(ctx context.Context, db *sql.DB, title, author string, categoryID *int64, description string, total int) (*model.Book, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if total < 0 {
		return nil, fmt.Errorf("total quantity must not be negative")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO books (title, author, category_id, description, total_quantity, available_quantity)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, author, categoryID, description, total, total,
	)
	if err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting book id: %w", err)
	}

	return GetBook(ctx, db, id)
}

// GetBook returns a book by ID.
func GetBook(ctx context.Context, db *sql.DB, id int64) (*model.Book, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookColumns+`
		 FROM books b LEFT JOIN categories c ON c.id = b.category_id
		 WHERE b.id = ?`, id,
	)
	book, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}
	return book, nil
}

// ListBooks returns non-deleted books, optionally filtered by category
// or a title/author substring search.
func ListBooks(ctx context.Context, db *sql.DB, categoryID int64, search string) ([]model.Book, error) {
	query := `SELECT ` + bookColumns + `
	          FROM books b LEFT JOIN categories c ON c.id = b.category_id
	          WHERE b.deleted_at IS NULL`
	var args []any

	if categoryID > 0 {
		query += ` AND b.category_id = ?`
		args = append(args, categoryID)
	}
	if search != "" {
		query += ` AND (b.title LIKE ? OR b.author LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY b.title`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

// UpdateBook updates a book's descriptive fields. Pool counters are only
// touched by AdjustBookQuantity and the workflow transitions.
func UpdateBook(ctx context.Context, db *sql.DB, id int64, title, author string, categoryID *int64, description string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}

	_, err := db.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, category_id = ?, description = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		title, author, categoryID, description, id,
	)
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
	}
	return nil
}

// AdjustBookQuantity changes the total number of copies by delta, adding to or
// removing from the available bucket. Removal is refused when it would take
// availability below zero (copies that are out, lost, or damaged stay counted).
func AdjustBookQuantity(ctx context.Context, db *sql.DB, id int64, delta int) error {
	if delta == 0 {
		return fmt.Errorf("delta must be non-zero")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var available int
	err = tx.QueryRowContext(ctx,
		`SELECT available_quantity FROM books WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&available)
	if err == sql.ErrNoRows {
		return fmt.Errorf("book not found")
	}
	if err != nil {
		return fmt.Errorf("checking availability: %w", err)
	}

	if available+delta < 0 {
		return fmt.Errorf("%w: cannot remove %d copies, only %d available", ErrInsufficientStock, -delta, available)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET total_quantity = total_quantity + ?,
		        available_quantity = available_quantity + ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		delta, delta, id,
	)
	if err != nil {
		return fmt.Errorf("adjusting quantity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing adjustment: %w", err)
	}
	return nil
}

// SetBookCover stores the processed cover image for a book.
func SetBookCover(ctx context.Context, db *sql.DB, id int64, data []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE books SET cover = ?, cover_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		data, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting book cover: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("book not found")
	}
	return nil
}

// GetBookCover returns the cover image bytes and MIME type, or nil if unset.
func GetBookCover(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT cover, cover_mime FROM books WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting book cover: %w", err)
	}
	return data, mime.String, nil
}

// DeleteBook soft-deletes a book. Refused while copies are out on loan.
func DeleteBook(ctx context.Context, db *sql.DB, id int64) error {
	var borrowed int
	err := db.QueryRowContext(ctx,
		`SELECT borrowed_quantity FROM books WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&borrowed)
	if err == sql.ErrNoRows {
		return fmt.Errorf("book not found")
	}
	if err != nil {
		return fmt.Errorf("checking book: %w", err)
	}
	if borrowed > 0 {
		return fmt.Errorf("%w: %d copies on loan", ErrBorrowedCopies, borrowed)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE books SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	return nil
}
