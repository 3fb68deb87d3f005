package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// FineLevelsHandler handles fine tariff endpoints.
type FineLevelsHandler struct {
	DB *sql.DB
}

type fineLevelRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (req *fineLevelRequest) amount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, errors.New("amount must not be negative")
	}
	return amount, nil
}

// List handles GET /api/fine-levels.
func (h *FineLevelsHandler) List(w http.ResponseWriter, r *http.Request) {
	levels, err := store.ListFineLevels(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list fine levels")
		return
	}
	if levels == nil {
		levels = []model.FineLevel{}
	}
	jsonResponse(w, http.StatusOK, levels)
}

// Create handles POST /api/fine-levels.
func (h *FineLevelsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req fineLevelRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	amount, err := req.amount()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "amount must be a non-negative decimal")
		return
	}

	level, err := store.CreateFineLevel(r.Context(), h.DB, req.Name, amount, req.Description)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create fine level")
		return
	}

	slog.Info("fine level created", "level", level.Name, "amount", amount.String())
	jsonResponse(w, http.StatusCreated, level)
}

// Update handles PUT /api/fine-levels/{id}. Fines already issued keep
// their snapshotted amount; only future fines see the new tariff.
func (h *FineLevelsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid fine level id")
		return
	}

	var req fineLevelRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	amount, err := req.amount()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "amount must be a non-negative decimal")
		return
	}

	level, err := store.GetFineLevel(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if level == nil {
		jsonError(w, http.StatusNotFound, "fine level not found")
		return
	}

	if err := store.UpdateFineLevel(r.Context(), h.DB, id, req.Name, amount, req.Description); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update fine level")
		return
	}

	updated, err := store.GetFineLevel(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/fine-levels/{id}.
func (h *FineLevelsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid fine level id")
		return
	}

	level, err := store.GetFineLevel(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if level == nil {
		jsonError(w, http.StatusNotFound, "fine level not found")
		return
	}

	if err := store.DeleteFineLevel(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete fine level")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "fine level deleted"})
}
