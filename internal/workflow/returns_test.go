package workflow

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

func TestRequestReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.createBook(t, "Pod svobodnim soncem", 1)
	loan := f.borrowedLoan(t, bookID)

	req, err := f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.NoError(t, err)
	require.Equal(t, model.ReturnStatePending, req.State)
	require.Equal(t, loan.ID, req.LoanID)

	// Only one open request per loan.
	_, err = f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	// The loan now shows as return-pending.
	withFlag, err := store.GetLoan(ctx, f.db, loan.ID)
	require.NoError(t, err)
	require.True(t, withFlag.HasPendingReturn)
}

func TestRequestReturnGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.createBook(t, "Martin Krpan", 2)

	pending, err := f.svc.SubmitLoan(ctx, f.reader, bookID, 14)
	require.NoError(t, err)
	_, err = f.svc.RequestReturn(ctx, f.reader, pending.ID)
	require.ErrorIs(t, err, ErrInvalidState, "only borrowed loans can be returned")

	loan := f.borrowedLoan(t, bookID)
	_, err = f.svc.RequestReturn(ctx, f.reader2, loan.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.RequestReturn(ctx, f.librarian, loan.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestConfirmReturnNormal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.createBook(t, "Visoška kronika", 1)
	loan := f.borrowedLoan(t, bookID)

	req, err := f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.NoError(t, err)

	closed, err := f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionNormal, nil, nil, "")
	require.NoError(t, err)
	require.Equal(t, model.LoanStateReturned, closed.State)
	require.NotNil(t, closed.ReturnDate)

	book := f.book(t, bookID)
	require.Equal(t, 1, book.Available)
	require.Equal(t, 0, book.Borrowed)

	confirmed, err := store.GetReturnRequest(ctx, f.db, req.ID)
	require.NoError(t, err)
	require.Equal(t, model.ReturnStateConfirmed, confirmed.State)
	require.Equal(t, model.ConditionNormal, confirmed.BookCondition)

	fines, err := store.ListFines(ctx, f.db, f.reader.ID, "")
	require.NoError(t, err)
	require.Empty(t, fines, "an on-time normal return assesses no fine")

	// Confirming again must fail.
	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionNormal, nil, nil, "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmReturnDamaged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.createBook(t, "Deseti brat", 1)
	levelID := f.createFineLevel(t, "damage", "4.50")
	loan := f.borrowedLoan(t, bookID)

	req, err := f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.NoError(t, err)

	// Damaged returns need both a fine level and a staff note.
	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionDamaged, nil, nil, "torn cover")
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionDamaged, &levelID, nil, "  ")
	require.ErrorIs(t, err, ErrValidation)

	closed, err := f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionDamaged, &levelID, nil, "torn cover")
	require.NoError(t, err)
	require.Equal(t, model.LoanStateReturned, closed.State)

	// A damaged copy never returns to availability.
	book := f.book(t, bookID)
	require.Equal(t, 0, book.Available)
	require.Equal(t, 0, book.Borrowed)
	require.Equal(t, 1, book.Damaged)

	fines, err := store.ListFines(ctx, f.db, f.reader.ID, "")
	require.NoError(t, err)
	require.Len(t, fines, 1)
	require.Equal(t, model.FineReasonDamaged, fines[0].Reason)
	require.Equal(t, model.FineStateUnpaid, fines[0].State)
	require.True(t, fines[0].Amount.Equal(decimal.RequireFromString("4.50")))
}

func TestConfirmReturnLostWithoutNoteChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.createBook(t, "Alamut", 1)
	levelID := f.createFineLevel(t, "loss", "25.00")
	loan := f.borrowedLoan(t, bookID)

	req, err := f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.NoError(t, err)

	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionLost, &levelID, nil, "")
	require.ErrorIs(t, err, ErrValidation)

	// All-or-nothing: loan, request, and pool are untouched.
	stale, err := store.GetLoan(ctx, f.db, loan.ID)
	require.NoError(t, err)
	require.Equal(t, model.LoanStateBorrowed, stale.State)

	openReq, err := store.GetReturnRequest(ctx, f.db, req.ID)
	require.NoError(t, err)
	require.Equal(t, model.ReturnStatePending, openReq.State)

	book := f.book(t, bookID)
	require.Equal(t, 1, book.Borrowed)
	require.Equal(t, 0, book.Lost)
}

func TestConfirmReturnOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.createBook(t, "Cvetje v jeseni", 1)
	lateLevelID := f.createFineLevel(t, "late", "1.20")
	loan := f.borrowedLoan(t, bookID)
	f.makeOverdue(t, loan.ID)

	req, err := f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.NoError(t, err)

	// An overdue return cannot be confirmed without a fine level.
	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionNormal, nil, nil, "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionNormal, &lateLevelID, nil, "")
	require.NoError(t, err)

	fines, err := store.ListFines(ctx, f.db, f.reader.ID, "")
	require.NoError(t, err)
	require.Len(t, fines, 1)
	require.Equal(t, model.FineReasonOverdue, fines[0].Reason)
	require.True(t, fines[0].Amount.Equal(decimal.RequireFromString("1.20")))
}

func TestConfirmReturnLostAndOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.createBook(t, "Bobri", 1)
	lossLevelID := f.createFineLevel(t, "loss", "25.00")
	lateLevelID := f.createFineLevel(t, "late", "1.20")
	loan := f.borrowedLoan(t, bookID)
	f.makeOverdue(t, loan.ID)

	req, err := f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.NoError(t, err)

	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionLost, &lossLevelID, &lateLevelID, "never returned")
	require.NoError(t, err)

	book := f.book(t, bookID)
	require.Equal(t, 1, book.Lost)

	fines, err := store.ListFines(ctx, f.db, f.reader.ID, "")
	require.NoError(t, err)
	require.Len(t, fines, 2)

	byReason := map[string]decimal.Decimal{}
	for _, fine := range fines {
		byReason[fine.Reason] = fine.Amount
	}
	require.True(t, byReason[model.FineReasonLost].Equal(decimal.RequireFromString("25.00")))
	require.True(t, byReason[model.FineReasonOverdue].Equal(decimal.RequireFromString("1.20")))
}

func TestConfirmReturnUnknownFineLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.createBook(t, "Solzice", 1)
	loan := f.borrowedLoan(t, bookID)
	f.makeOverdue(t, loan.ID)

	req, err := f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.NoError(t, err)

	missing := int64(999)
	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionNormal, &missing, nil, "")
	require.ErrorIs(t, err, ErrValidation)

	// Nothing moved.
	stale, err := store.GetLoan(ctx, f.db, loan.ID)
	require.NoError(t, err)
	require.Equal(t, model.LoanStateBorrowed, stale.State)
	book := f.book(t, bookID)
	require.Equal(t, 1, book.Borrowed)
}

func TestFineAmountSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.createBook(t, "Kekec", 1)
	levelID := f.createFineLevel(t, "late", "2.00")
	loan := f.borrowedLoan(t, bookID)
	f.makeOverdue(t, loan.ID)

	req, err := f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionNormal, &levelID, nil, "")
	require.NoError(t, err)

	// Raising the tariff afterwards must not touch the assessed fine.
	err = store.UpdateFineLevel(ctx, f.db, levelID, "late", decimal.RequireFromString("9.99"), "")
	require.NoError(t, err)

	fines, err := store.ListFines(ctx, f.db, f.reader.ID, "")
	require.NoError(t, err)
	require.Len(t, fines, 1)
	require.True(t, fines[0].Amount.Equal(decimal.RequireFromString("2.00")),
		"fine amount is a snapshot, got %s", fines[0].Amount)
}
