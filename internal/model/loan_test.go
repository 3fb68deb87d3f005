package model

import (
	"testing"
	"time"
)

func TestLoanOverdueDerived(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-72 * time.Hour)

	loan := &Loan{State: LoanStateBorrowed, DueDate: &due}
	if !loan.IsOverdue(now) {
		t.Error("expected loan to be overdue")
	}
	if got := loan.DaysOverdue(now); got != 3 {
		t.Errorf("expected 3 days overdue, got %d", got)
	}

	// Returned loans are never overdue, regardless of due date.
	loan.State = LoanStateReturned
	if loan.IsOverdue(now) {
		t.Error("returned loan must not be overdue")
	}
	if got := loan.DaysOverdue(now); got != 0 {
		t.Errorf("expected 0 days overdue for returned loan, got %d", got)
	}
}

func TestLoanDaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(5 * 24 * time.Hour)

	loan := &Loan{State: LoanStateBorrowed, DueDate: &due}
	if got := loan.DaysRemaining(now); got != 5 {
		t.Errorf("expected 5 days remaining, got %d", got)
	}

	past := now.Add(-time.Hour)
	loan.DueDate = &past
	if got := loan.DaysRemaining(now); got != 0 {
		t.Errorf("expected 0 days remaining for overdue loan, got %d", got)
	}

	loan.DueDate = nil
	if got := loan.DaysRemaining(now); got != 0 {
		t.Errorf("expected 0 days remaining without due date, got %d", got)
	}
}

func TestValidBorrowDays(t *testing.T) {
	tests := []struct {
		days     int
		expected bool
	}{
		{6, false},
		{7, true},
		{14, true},
		{30, true},
		{31, false},
		{0, false},
		{-1, false},
	}

	for _, tt := range tests {
		if got := ValidBorrowDays(tt.days); got != tt.expected {
			t.Errorf("ValidBorrowDays(%d) = %v, want %v", tt.days, got, tt.expected)
		}
	}
}

func TestPoolConsistent(t *testing.T) {
	book := &Book{Total: 10, Available: 4, Borrowed: 3, Lost: 1, Damaged: 2}
	if !book.PoolConsistent() {
		t.Error("expected consistent pool")
	}

	book.Available = 5
	if book.PoolConsistent() {
		t.Error("expected inconsistent pool when buckets exceed total")
	}

	book = &Book{Total: 0, Available: -1, Borrowed: 1}
	if book.PoolConsistent() {
		t.Error("expected inconsistent pool with negative availability")
	}
}
