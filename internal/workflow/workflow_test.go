package workflow

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// captureSink collects published events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Publish(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureSink) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kinds []string
	for _, e := range c.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type fixture struct {
	svc       *Service
	db        *sql.DB
	sink      *captureSink
	reader    Actor
	reader2   Actor
	librarian Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	sink := &captureSink{}

	ctx := context.Background()
	mkActor := func(username, role string) Actor {
		u, err := store.CreateUser(ctx, database, username, "hash", role, model.StatusActive)
		require.NoError(t, err)
		return Actor{ID: u.ID, Role: role, Status: model.StatusActive}
	}

	return &fixture{
		svc:       &Service{DB: database, Sink: sink},
		db:        database,
		sink:      sink,
		reader:    mkActor("ana", model.RoleReader),
		reader2:   mkActor("bojan", model.RoleReader),
		librarian: mkActor("mira", model.RoleLibrarian),
	}
}

func (f *fixture) createBook(t *testing.T, title string, copies int) int64 {
	t.Helper()
	book, err := store.CreateBook(context.Background(), f.db, title, "Author", nil, "", copies)
	require.NoError(t, err)
	return book.ID
}

func (f *fixture) createFineLevel(t *testing.T, name, amount string) int64 {
	t.Helper()
	dec, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	level, err := store.CreateFineLevel(context.Background(), f.db, name, dec, "")
	require.NoError(t, err)
	return level.ID
}

// book loads a book and asserts the copy pool still adds up.
func (f *fixture) book(t *testing.T, id int64) *model.Book {
	t.Helper()
	book, err := store.GetBook(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, book)
	require.True(t, book.PoolConsistent(), "pool buckets out of sync: %+v", book)
	return book
}

// borrowedLoan submits and confirms a loan for the fixture reader.
func (f *fixture) borrowedLoan(t *testing.T, bookID int64) *model.Loan {
	t.Helper()
	ctx := context.Background()
	loan, err := f.svc.SubmitLoan(ctx, f.reader, bookID, 14)
	require.NoError(t, err)
	loan, err = f.svc.ConfirmLoan(ctx, f.librarian, loan.ID)
	require.NoError(t, err)
	return loan
}

// makeOverdue backdates a loan's due date.
func (f *fixture) makeOverdue(t *testing.T, loanID int64) {
	t.Helper()
	_, err := f.db.Exec(`UPDATE loans SET due_date = ? WHERE id = ?`,
		time.Now().AddDate(0, 0, -3), loanID)
	require.NoError(t, err)
}
