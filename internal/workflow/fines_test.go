package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// assessFine runs a damaged return so the fixture reader ends up with one
// unpaid fine, and returns its ID.
func assessFine(t *testing.T, f *fixture) int64 {
	t.Helper()
	ctx := context.Background()
	bookID := f.createBook(t, "Pod svobodnim soncem", 1)
	levelID := f.createFineLevel(t, "damage", "4.50")
	loan := f.borrowedLoan(t, bookID)

	req, err := f.svc.RequestReturn(ctx, f.reader, loan.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmReturn(ctx, f.librarian, req.ID, model.ConditionDamaged, &levelID, nil, "torn cover")
	require.NoError(t, err)

	fines, err := store.ListFines(ctx, f.db, f.reader.ID, "")
	require.NoError(t, err)
	require.Len(t, fines, 1)
	return fines[0].ID
}

func TestFineLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fineID := assessFine(t, f)

	// Reader submits a payment proof.
	fine, err := f.svc.PayFine(ctx, f.reader, fineID, "bank transfer #123")
	require.NoError(t, err)
	require.Equal(t, model.FineStatePending, fine.State)
	require.Equal(t, "bank transfer #123", fine.PaymentProof)

	// Librarian rejects it.
	fine, err = f.svc.RejectPayment(ctx, f.librarian, fineID, "wrong amount on receipt")
	require.NoError(t, err)
	require.Equal(t, model.FineStateRejected, fine.State)
	require.Equal(t, "wrong amount on receipt", fine.RejectionReason)
	require.NotNil(t, fine.RejectedBy)
	require.Equal(t, f.librarian.ID, *fine.RejectedBy)

	// Reader resubmits; the old rejection reason is cleared.
	fine, err = f.svc.PayFine(ctx, f.reader, fineID, "bank transfer #124")
	require.NoError(t, err)
	require.Equal(t, model.FineStatePending, fine.State)
	require.Empty(t, fine.RejectionReason)

	// Librarian confirms; paid is terminal.
	fine, err = f.svc.ConfirmPayment(ctx, f.librarian, fineID)
	require.NoError(t, err)
	require.Equal(t, model.FineStatePaid, fine.State)
	require.NotNil(t, fine.ConfirmedBy)
	require.Equal(t, f.librarian.ID, *fine.ConfirmedBy)

	_, err = f.svc.PayFine(ctx, f.reader, fineID, "again")
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.ConfirmPayment(ctx, f.librarian, fineID)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.RejectPayment(ctx, f.librarian, fineID, "too late")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestPayFineValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fineID := assessFine(t, f)

	_, err := f.svc.PayFine(ctx, f.reader, fineID, "   ")
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.PayFine(ctx, f.reader2, fineID, "proof")
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.PayFine(ctx, f.librarian, fineID, "proof")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.PayFine(ctx, f.reader, 999, "proof")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmPaymentRequiresPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fineID := assessFine(t, f)

	// Nothing to confirm or reject before the reader pays.
	_, err := f.svc.ConfirmPayment(ctx, f.librarian, fineID)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.RejectPayment(ctx, f.librarian, fineID, "no proof yet")
	require.ErrorIs(t, err, ErrInvalidState)

	// Readers cannot settle their own fines.
	_, err = f.svc.ConfirmPayment(ctx, f.reader, fineID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.RejectPayment(ctx, f.librarian, fineID, "")
	require.ErrorIs(t, err, ErrValidation)
}
