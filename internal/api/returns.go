package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
	"github.com/erazemk/knjiznica/internal/workflow"
)

// ReturnsHandler handles return processing endpoints (staff only).
type ReturnsHandler struct {
	DB       *sql.DB
	Workflow *workflow.Service
}

type confirmReturnRequest struct {
	Condition       string `json:"condition"`
	FineLevelID     *int64 `json:"fine_level_id"`
	LateFineLevelID *int64 `json:"late_fine_level_id"`
	Note            string `json:"note"`
}

// List handles GET /api/returns. Pending return requests with loan context.
func (h *ReturnsHandler) List(w http.ResponseWriter, r *http.Request) {
	requests, err := store.ListPendingReturns(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list return requests")
		return
	}
	if requests == nil {
		requests = []model.ReturnRequest{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// Confirm handles POST /api/returns/{id}/confirm. The librarian records the
// condition of the returned copy; damaged or lost copies need a note and a
// fine level, and an overdue return gets a late fine on top.
func (h *ReturnsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid return request id")
		return
	}

	var req confirmReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loan, err := h.Workflow.ConfirmReturn(r.Context(), GetActor(r.Context()), id,
		req.Condition, req.FineLevelID, req.LateFineLevelID, req.Note)
	if err != nil {
		workflowError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}
