package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. The books table carries the copy pool
// counters; the CHECK constraints are the last line of defense for the pool
// invariant (total = available + borrowed + lost + damaged) when a transition
// transaction miscomputes an adjustment.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'reader' CHECK (role IN ('admin', 'librarian', 'reader')),
    status        TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active', 'disabled', 'rejected')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS categories (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS books (
    id                 INTEGER PRIMARY KEY,
    title              TEXT NOT NULL,
    author             TEXT,
    category_id        INTEGER REFERENCES categories(id),
    description        TEXT,
    cover              BLOB,
    cover_mime         TEXT,
    total_quantity     INTEGER NOT NULL DEFAULT 0 CHECK (total_quantity >= 0),
    available_quantity INTEGER NOT NULL DEFAULT 0 CHECK (available_quantity >= 0),
    borrowed_quantity  INTEGER NOT NULL DEFAULT 0 CHECK (borrowed_quantity >= 0),
    lost_count         INTEGER NOT NULL DEFAULT 0 CHECK (lost_count >= 0),
    damaged_count      INTEGER NOT NULL DEFAULT 0 CHECK (damaged_count >= 0),
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at         DATETIME,
    CHECK (total_quantity = available_quantity + borrowed_quantity + lost_count + damaged_count)
);

CREATE TABLE IF NOT EXISTS fine_levels (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    amount      TEXT NOT NULL,
    description TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at  DATETIME
);

CREATE TABLE IF NOT EXISTS loans (
    id               INTEGER PRIMARY KEY,
    book_id          INTEGER NOT NULL REFERENCES books(id),
    reader_id        INTEGER NOT NULL REFERENCES users(id),
    borrow_days      INTEGER NOT NULL CHECK (borrow_days BETWEEN 7 AND 30),
    state            TEXT NOT NULL DEFAULT 'pending'
                     CHECK (state IN ('pending', 'borrowed', 'returned', 'rejected', 'cancelled')),
    borrow_date      DATETIME,
    due_date         DATETIME,
    return_date      DATETIME,
    extended         INTEGER NOT NULL DEFAULT 0 CHECK (extended IN (0, 1)),
    rejection_reason TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loans_reader ON loans(reader_id);
CREATE INDEX IF NOT EXISTS idx_loans_state ON loans(state);

CREATE TABLE IF NOT EXISTS return_requests (
    id             INTEGER PRIMARY KEY,
    loan_id        INTEGER NOT NULL REFERENCES loans(id),
    state          TEXT NOT NULL DEFAULT 'pending' CHECK (state IN ('pending', 'confirmed')),
    book_condition TEXT CHECK (book_condition IN ('normal', 'damaged', 'lost')),
    staff_note     TEXT,
    request_date   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    confirmed_at   DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_return_requests_open
    ON return_requests(loan_id) WHERE state = 'pending';

CREATE TABLE IF NOT EXISTS fines (
    id               INTEGER PRIMARY KEY,
    loan_id          INTEGER NOT NULL REFERENCES loans(id),
    reader_id        INTEGER NOT NULL REFERENCES users(id),
    fine_level_id    INTEGER NOT NULL REFERENCES fine_levels(id),
    reason           TEXT NOT NULL CHECK (reason IN ('overdue', 'damaged', 'lost')),
    amount           TEXT NOT NULL,
    state            TEXT NOT NULL DEFAULT 'unpaid'
                     CHECK (state IN ('unpaid', 'pending', 'paid', 'rejected')),
    payment_proof    TEXT,
    rejection_reason TEXT,
    confirmed_by     INTEGER REFERENCES users(id),
    confirmed_at     DATETIME,
    rejected_by      INTEGER REFERENCES users(id),
    rejected_at      DATETIME,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_fines_reader ON fines(reader_id);
CREATE INDEX IF NOT EXISTS idx_fines_loan ON fines(loan_id);

CREATE TABLE IF NOT EXISTS notifications (
    id         TEXT PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    event      TEXT NOT NULL,
    message    TEXT NOT NULL,
    read       INTEGER NOT NULL DEFAULT 0 CHECK (read IN (0, 1)),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
