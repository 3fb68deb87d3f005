package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
	"github.com/erazemk/knjiznica/internal/workflow"
)

// FinesHandler handles fine lifecycle endpoints.
type FinesHandler struct {
	DB       *sql.DB
	Workflow *workflow.Service
}

type payFineRequest struct {
	PaymentProof string `json:"payment_proof"`
}

// List handles GET /api/fines. Readers see their own fines; staff see all,
// optionally filtered by ?reader= and ?state=.
func (h *FinesHandler) List(w http.ResponseWriter, r *http.Request) {
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
	fines, err := store.ListFines(r.Context(), h.DB, readerID, state)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list fines")
		return
	}
	if fines == nil {
		fines = []model.Fine{}
	}
	jsonResponse(w, http.StatusOK, fines)
}

// Get handles GET /api/fines/{id}. Readers may only see their own fines.
func (h *FinesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid fine id")
		return
	}

	fine, err := store.GetFine(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get fine")
		return
	}
	if fine == nil {
		jsonError(w, http.StatusNotFound, "fine not found")
		return
	}

	actor := GetActor(r.Context())
	if !model.IsStaff(actor.Role) && fine.ReaderID != actor.ID {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	jsonResponse(w, http.StatusOK, fine)
}

// Pay handles POST /api/fines/{id}/pay.
func (h *FinesHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid fine id")
		return
	}

	var req payFineRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fine, err := h.Workflow.PayFine(r.Context(), GetActor(r.Context()), id, req.PaymentProof)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, fine)
}

// ConfirmPayment handles POST /api/fines/{id}/confirm.
func (h *FinesHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid fine id")
		return
	}

	fine, err := h.Workflow.ConfirmPayment(r.Context(), GetActor(r.Context()), id)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, fine)
}

// RejectPayment handles POST /api/fines/{id}/reject.
func (h *FinesHandler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid fine id")
		return
	}

	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fine, err := h.Workflow.RejectPayment(r.Context(), GetActor(r.Context()), id, req.Reason)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, fine)
}
