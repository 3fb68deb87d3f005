package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/knjiznica/internal/model"
)

func scanFineLevel(row interface{ Scan(...any) error }) (*model.FineLevel, error) {
	l := &model.FineLevel{}
	var amount string
	var description sql.NullString
	if err := row.Scan(&l.ID, &l.Name, &amount, &description, &l.CreatedAt, &l.DeletedAt); err != nil {
		return nil, err
	}
	var err error
	l.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing fine level amount %q: %w", amount, err)
	}
	l.Description = description.String
	return l, nil
}

// CreateFineLevel creates a named tariff.
func CreateFineLevel(ctx context.Context, db *sql.DB, name string, amount decimal.Decimal, description string) (*model.FineLevel, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO fine_levels (name, amount, description) VALUES (?, ?, ?)`,
		name, amount.String(), description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating fine level: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting fine level id: %w", err)
	}

	return GetFineLevel(ctx, db, id)
}

// GetFineLevel returns a fine level by ID.
func GetFineLevel(ctx context.Context, db *sql.DB, id int64) (*model.FineLevel, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, amount, description, created_at, deleted_at
		 FROM fine_levels WHERE id = ?`, id,
	)
	level, err := scanFineLevel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting fine level: %w", err)
	}
	return level, nil
}

// ListFineLevels returns all non-deleted fine levels.
func ListFineLevels(ctx context.Context, db *sql.DB) ([]model.FineLevel, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, amount, description, created_at, deleted_at
		 FROM fine_levels WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing fine levels: %w", err)
	}
	defer rows.Close()

	var levels []model.FineLevel
	for rows.Next() {
		level, err := scanFineLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fine level: %w", err)
		}
		levels = append(levels, *level)
	}
	return levels, rows.Err()
}

// UpdateFineLevel edits a tariff. Already-assessed fines keep their
// snapshotted amount; only future assessments pick up the new value.
func UpdateFineLevel(ctx context.Context, db *sql.DB, id int64, name string, amount decimal.Decimal, description string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if amount.IsNegative() {
		return fmt.Errorf("amount must not be negative")
	}

	_, err := db.ExecContext(ctx,
		`UPDATE fine_levels SET name = ?, amount = ?, description = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		name, amount.String(), description, id,
	)
	if err != nil {
		return fmt.Errorf("updating fine level: %w", err)
	}
	return nil
}

// DeleteFineLevel soft-deletes a tariff.
func DeleteFineLevel(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE fine_levels SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting fine level: %w", err)
	}
	return nil
}
