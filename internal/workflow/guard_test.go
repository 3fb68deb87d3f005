package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/model"
)

func TestCheckStatusBeforeRole(t *testing.T) {
	// A non-active account is refused before role or ownership are even
	// considered, for every action and role combination.
	actions := []Action{
		ActionSubmitLoan, ActionCancelLoan, ActionExtendLoan, ActionRequestReturn,
		ActionPayFine, ActionConfirmLoan, ActionRejectLoan, ActionConfirmReturn,
		ActionConfirmPayment, ActionRejectPayment,
	}
	for _, status := range []string{model.StatusPending, model.StatusDisabled, model.StatusRejected} {
		for _, role := range []string{model.RoleReader, model.RoleLibrarian, model.RoleAdmin} {
			actor := Actor{ID: 1, Role: role, Status: status}
			for _, action := range actions {
				err := Check(actor, action, 1)
				require.ErrorIs(t, err, ErrAccountNotActive, "%s %s doing %s", status, role, action)
			}
		}
	}
}

func TestCheckStaffActions(t *testing.T) {
	staffActions := []Action{
		ActionConfirmLoan, ActionRejectLoan, ActionConfirmReturn,
		ActionConfirmPayment, ActionRejectPayment,
	}

	tests := []struct {
		name    string
		role    string
		wantErr error
	}{
		{"reader denied", model.RoleReader, ErrForbidden},
		{"librarian allowed", model.RoleLibrarian, nil},
		{"admin allowed", model.RoleAdmin, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := Actor{ID: 1, Role: tt.role, Status: model.StatusActive}
			for _, action := range staffActions {
				err := Check(actor, action, 0)
				if tt.wantErr == nil {
					require.NoError(t, err, "%s", action)
				} else {
					require.ErrorIs(t, err, tt.wantErr, "%s", action)
				}
			}
		})
	}
}

func TestCheckReaderActions(t *testing.T) {
	readerActions := []Action{
		ActionSubmitLoan, ActionCancelLoan, ActionExtendLoan,
		ActionRequestReturn, ActionPayFine,
	}

	tests := []struct {
		name    string
		actor   Actor
		ownerID int64
		wantErr error
	}{
		{"owner allowed", Actor{ID: 7, Role: model.RoleReader, Status: model.StatusActive}, 7, nil},
		{"other reader denied", Actor{ID: 8, Role: model.RoleReader, Status: model.StatusActive}, 7, ErrForbidden},
		{"librarian denied", Actor{ID: 9, Role: model.RoleLibrarian, Status: model.StatusActive}, 7, ErrForbidden},
		{"admin denied", Actor{ID: 10, Role: model.RoleAdmin, Status: model.StatusActive}, 7, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, action := range readerActions {
				err := Check(tt.actor, action, tt.ownerID)
				if tt.wantErr == nil {
					require.NoError(t, err, "%s", action)
				} else {
					require.ErrorIs(t, err, tt.wantErr, "%s", action)
				}
			}
		})
	}
}
