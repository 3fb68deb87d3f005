package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
	"github.com/erazemk/knjiznica/internal/workflow"
)

// LoansHandler handles loan lifecycle endpoints.
type LoansHandler struct {
	DB       *sql.DB
	Workflow *workflow.Service
}

type submitLoanRequest struct {
	BookID     int64 `json:"book_id"`
	BorrowDays int   `json:"borrow_days"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/loans. Readers see their own loans; staff see all,
// optionally filtered by ?reader= and ?state=.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r.Context())

	var readerID int64
	if model.IsStaff(actor.Role) {
		if v := r.URL.Query().Get("reader"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				jsonError(w, http.StatusBadRequest, "invalid reader filter")
				return
			}
			readerID = id
		}
	} else {
		readerID = actor.ID
	}

	state := r.URL.Query().Get("state")
	loans, err := store.ListLoans(r.Context(), h.DB, readerID, state)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list loans")
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Get handles GET /api/loans/{id}. Readers may only see their own loans.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.GetLoan(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get loan")
		return
	}
	if loan == nil {
		jsonError(w, http.StatusNotFound, "loan not found")
		return
	}

	actor := GetActor(r.Context())
	if !model.IsStaff(actor.Role) && loan.ReaderID != actor.ID {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	jsonResponse(w, http.StatusOK, loan)
}

// Submit handles POST /api/loans.
func (h *LoansHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loan, err := h.Workflow.SubmitLoan(r.Context(), GetActor(r.Context()), req.BookID, req.BorrowDays)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, loan)
}

// Confirm handles POST /api/loans/{id}/confirm.
func (h *LoansHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := h.Workflow.ConfirmLoan(r.Context(), GetActor(r.Context()), id)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Reject handles POST /api/loans/{id}/reject.
func (h *LoansHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loan, err := h.Workflow.RejectLoan(r.Context(), GetActor(r.Context()), id, req.Reason)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Cancel handles POST /api/loans/{id}/cancel.
func (h *LoansHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := h.Workflow.CancelLoan(r.Context(), GetActor(r.Context()), id)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Extend handles POST /api/loans/{id}/extend.
func (h *LoansHandler) Extend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := h.Workflow.ExtendLoan(r.Context(), GetActor(r.Context()), id)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// RequestReturn handles POST /api/loans/{id}/return.
func (h *LoansHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	request, err := h.Workflow.RequestReturn(r.Context(), GetActor(r.Context()), id)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, request)
}
