package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/notify"
	"github.com/erazemk/knjiznica/internal/store"
	"github.com/erazemk/knjiznica/internal/workflow"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB, string) {
	t.Helper()
	database := db.NewTestDB(t)

	hub := notify.NewHub()
	wf := &workflow.Service{DB: database}
	router := NewRouter(database, testJWTSecret, wf, hub)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin, model.StatusActive)

	return server, database, login(t, server, "admin", "password")
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func doJSON(t *testing.T, method, url, token string, body any, out any) *http.Response {
	t.Helper()
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	resp.Body.Close()
	return resp
}

func TestLoginEndpoint(t *testing.T) {
	server, _, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedRequests(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp := doJSON(t, "GET", server.URL+"/api/books", "", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestBorrowingFlow(t *testing.T) {
	server, database, adminToken := setupTestServer(t)
	ctx := context.Background()

	// A new reader registers and starts out pending.
	var registered model.User
	resp := doJSON(t, "POST", server.URL+"/api/auth/register", "",
		map[string]string{"username": "ana", "password": "geslo12345"}, &registered)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	if registered.Status != model.StatusPending {
		t.Fatalf("expected pending status, got %q", registered.Status)
	}

	readerToken := login(t, server, "ana", "geslo12345")

	// Catalog setup by the admin.
	var book model.Book
	resp = doJSON(t, "POST", server.URL+"/api/books", adminToken,
		map[string]any{"title": "Martin Krpan", "author": "Fran Levstik", "quantity": 1}, &book)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create book: expected 201, got %d", resp.StatusCode)
	}

	// A pending reader cannot borrow yet.
	resp = doJSON(t, "POST", server.URL+"/api/loans", readerToken,
		map[string]any{"book_id": book.ID, "borrow_days": 14}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("pending reader borrow: expected 403, got %d", resp.StatusCode)
	}

	// Admin activates the account; the next request sees the new status
	// without a fresh login.
	resp = doJSON(t, "PUT", fmt.Sprintf("%s/api/users/%d/status", server.URL, registered.ID), adminToken,
		map[string]string{"status": model.StatusActive}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate reader: expected 200, got %d", resp.StatusCode)
	}

	var loan model.Loan
	resp = doJSON(t, "POST", server.URL+"/api/loans", readerToken,
		map[string]any{"book_id": book.ID, "borrow_days": 14}, &loan)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit loan: expected 201, got %d", resp.StatusCode)
	}

	// The reader cannot confirm their own loan.
	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/loans/%d/confirm", server.URL, loan.ID), readerToken, nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("reader confirm: expected 403, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/loans/%d/confirm", server.URL, loan.ID), adminToken, nil, &loan)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm loan: expected 200, got %d", resp.StatusCode)
	}
	if loan.State != model.LoanStateBorrowed {
		t.Fatalf("expected borrowed loan, got %q", loan.State)
	}

	// Confirming again is a conflict.
	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/loans/%d/confirm", server.URL, loan.ID), adminToken, nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double confirm: expected 409, got %d", resp.StatusCode)
	}

	// Return flow with a damaged copy and a fine.
	var level model.FineLevel
	resp = doJSON(t, "POST", server.URL+"/api/fine-levels", adminToken,
		map[string]string{"name": "damage", "amount": "4.50"}, &level)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create fine level: expected 201, got %d", resp.StatusCode)
	}

	var request model.ReturnRequest
	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/loans/%d/return", server.URL, loan.ID), readerToken, nil, &request)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("request return: expected 201, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/returns/%d/confirm", server.URL, request.ID), adminToken,
		map[string]any{"condition": model.ConditionDamaged, "fine_level_id": level.ID, "note": "torn cover"}, &loan)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm return: expected 200, got %d", resp.StatusCode)
	}
	if loan.State != model.LoanStateReturned {
		t.Fatalf("expected returned loan, got %q", loan.State)
	}

	// The reader pays the assessed fine and the admin settles it.
	fines, err := store.ListFines(ctx, database, registered.ID, "")
	if err != nil || len(fines) != 1 {
		t.Fatalf("expected 1 fine, got %d (%v)", len(fines), err)
	}

	var fine model.Fine
	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/fines/%d/pay", server.URL, fines[0].ID), readerToken,
		map[string]string{"payment_proof": "bank transfer #42"}, &fine)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay fine: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/fines/%d/confirm", server.URL, fines[0].ID), adminToken, nil, &fine)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm payment: expected 200, got %d", resp.StatusCode)
	}
	if fine.State != model.FineStatePaid {
		t.Fatalf("expected paid fine, got %q", fine.State)
	}
}

func TestStaffOnlyEndpoints(t *testing.T) {
	server, database, _ := setupTestServer(t)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("geslo12345"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "bralec", string(hash), model.RoleReader, model.StatusActive)
	readerToken := login(t, server, "bralec", "geslo12345")

	for _, tt := range []struct {
		method, path string
	}{
		{"GET", "/api/users"},
		{"POST", "/api/books"},
		{"GET", "/api/returns"},
		{"GET", "/api/reports/summary"},
	} {
		resp := doJSON(t, tt.method, server.URL+tt.path, readerToken, map[string]string{}, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("%s %s: expected 403 for reader, got %d", tt.method, tt.path, resp.StatusCode)
		}
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server, _, adminToken := setupTestServer(t)

	resp := doJSON(t, "POST", server.URL+"/api/auth/logout", adminToken, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "GET", server.URL+"/api/auth/me", adminToken, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestReportsSummary(t *testing.T) {
	server, _, adminToken := setupTestServer(t)

	var summary map[string]any
	resp := doJSON(t, "GET", server.URL+"/api/reports/summary", adminToken, nil, &summary)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", resp.StatusCode)
	}
	if _, ok := summary["outstanding_fines"]; !ok {
		t.Error("expected outstanding_fines in summary")
	}
}
