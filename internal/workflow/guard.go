package workflow

import (
	"fmt"

	"github.com/erazemk/knjiznica/internal/model"
)

// Actor is the authenticated account attempting a transition. Role and
// status are read fresh from the database per request, never from the token.
type Actor struct {
	ID     int64
	Role   string
	Status string
}

// Action identifies a workflow transition for authorization purposes.
type Action int

const (
	ActionSubmitLoan Action = iota
	ActionCancelLoan
	ActionExtendLoan
	ActionRequestReturn
	ActionPayFine
	ActionConfirmLoan
	ActionRejectLoan
	ActionConfirmReturn
	ActionConfirmPayment
	ActionRejectPayment
)

// staffOnly reports whether the action belongs to librarians and admins.
// Everything else is an owning-reader action.
func (a Action) staffOnly() bool {
	switch a {
	case ActionConfirmLoan, ActionRejectLoan, ActionConfirmReturn,
		ActionConfirmPayment, ActionRejectPayment:
		return true
	}
	return false
}

func (a Action) String() string {
	switch a {
	case ActionSubmitLoan:
		return "submit loan"
	case ActionCancelLoan:
		return "cancel loan"
	case ActionExtendLoan:
		return "extend loan"
	case ActionRequestReturn:
		return "request return"
	case ActionPayFine:
		return "pay fine"
	case ActionConfirmLoan:
		return "confirm loan"
	case ActionRejectLoan:
		return "reject loan"
	case ActionConfirmReturn:
		return "confirm return"
	case ActionConfirmPayment:
		return "confirm payment"
	case ActionRejectPayment:
		return "reject payment"
	}
	return "unknown"
}

// Check is the single authorization gate for every transition. It is pure
// and stateless: the account status check runs first, then role and
// ownership. Readers may only act on resources they own; librarians and
// admins may perform staff actions on any resource but have no access to
// reader-owned transitions.
func Check(actor Actor, action Action, resourceOwnerID int64) error {
	if actor.Status != model.StatusActive {
		return fmt.Errorf("%w: account status is %q", ErrAccountNotActive, actor.Status)
	}

	if action.staffOnly() {
		if !model.IsStaff(actor.Role) {
			return fmt.Errorf("%w: %s requires librarian or admin role", ErrForbidden, action)
		}
		return nil
	}

	if actor.Role != model.RoleReader {
		return fmt.Errorf("%w: %s is a reader action", ErrForbidden, action)
	}
	if actor.ID != resourceOwnerID {
		return fmt.Errorf("%w: resource belongs to another reader", ErrForbidden)
	}
	return nil
}
