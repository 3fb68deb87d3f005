package api

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/erazemk/knjiznica/internal/store"
)

// ReportsHandler handles staff reporting endpoints.
type ReportsHandler struct {
	DB *sql.DB
}

// Summary handles GET /api/reports/summary.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	byState, err := store.CountLoansByState(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to count loans")
		return
	}

	overdue, err := store.CountOverdueLoans(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to count overdue loans")
		return
	}

	outstanding, err := store.SumOutstandingFines(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to sum fines")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"loans_by_state":    byState,
		"overdue_loans":     overdue,
		"outstanding_fines": outstanding.String(),
	})
}

// LoansCSV handles GET /api/reports/loans.csv. Exports all loans, optionally
// filtered by ?state=.
func (h *ReportsHandler) LoansCSV(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	loans, err := store.ListLoans(r.Context(), h.DB, 0, state)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list loans")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="loans.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "book", "reader", "state", "borrow_days",
		"borrow_date", "due_date", "return_date", "extended", "overdue"})

	now := time.Now()
	for i := range loans {
		l := &loans[i]
		record := []string{
			fmt.Sprintf("%d", l.ID),
			l.BookTitle,
			l.ReaderName,
			l.State,
			fmt.Sprintf("%d", l.BorrowDays),
			formatDate(l.BorrowDate),
			formatDate(l.DueDate),
			formatDate(l.ReturnDate),
			fmt.Sprintf("%t", l.Extended),
			fmt.Sprintf("%t", l.IsOverdue(now)),
		}
		_ = cw.Write(record)
	}
	cw.Flush()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
