package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/knjiznica/internal/notify"
	"github.com/erazemk/knjiznica/internal/workflow"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, wf *workflow.Service, hub *notify.Hub) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	booksHandler := &BooksHandler{DB: db}
	categoriesHandler := &CategoriesHandler{DB: db}
	fineLevelsHandler := &FineLevelsHandler{DB: db}
	loansHandler := &LoansHandler{DB: db, Workflow: wf}
	returnsHandler := &ReturnsHandler{DB: db, Workflow: wf}
	finesHandler := &FinesHandler{DB: db, Workflow: wf}
	notificationsHandler := &NotificationsHandler{DB: db, Hub: hub}
	reportsHandler := &ReportsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)

	// Public: registration and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Users: listing and status changes (staff), everything else admin only.
	mux.Handle("GET /api/users", authMW(RequireStaff(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(RequireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(RequireStaff(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(RequireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/status", authMW(RequireStaff(http.HandlerFunc(usersHandler.UpdateStatus))))
	mux.Handle("PUT /api/users/{id}/password", authMW(RequireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(RequireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Catalog: read (all roles), write (staff).
	mux.Handle("GET /api/books", authMW(http.HandlerFunc(booksHandler.List)))
	mux.Handle("POST /api/books", authMW(RequireStaff(http.HandlerFunc(booksHandler.Create))))
	mux.Handle("GET /api/books/{id}", authMW(http.HandlerFunc(booksHandler.Get)))
	mux.Handle("PUT /api/books/{id}", authMW(RequireStaff(http.HandlerFunc(booksHandler.Update))))
	mux.Handle("DELETE /api/books/{id}", authMW(RequireStaff(http.HandlerFunc(booksHandler.Delete))))
	mux.Handle("POST /api/books/{id}/quantity", authMW(RequireStaff(http.HandlerFunc(booksHandler.AdjustQuantity))))
	mux.Handle("PUT /api/books/{id}/cover", authMW(RequireStaff(http.HandlerFunc(booksHandler.UploadCover))))
	mux.Handle("GET /api/books/{id}/cover", authMW(http.HandlerFunc(booksHandler.GetCover)))

	// Categories: read (all roles), write (staff).
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(categoriesHandler.List)))
	mux.Handle("POST /api/categories", authMW(RequireStaff(http.HandlerFunc(categoriesHandler.Create))))
	mux.Handle("PUT /api/categories/{id}", authMW(RequireStaff(http.HandlerFunc(categoriesHandler.Update))))
	mux.Handle("DELETE /api/categories/{id}", authMW(RequireStaff(http.HandlerFunc(categoriesHandler.Delete))))

	// Fine levels: read (all roles), write (admin).
	mux.Handle("GET /api/fine-levels", authMW(http.HandlerFunc(fineLevelsHandler.List)))
	mux.Handle("POST /api/fine-levels", authMW(RequireAdmin(http.HandlerFunc(fineLevelsHandler.Create))))
	mux.Handle("PUT /api/fine-levels/{id}", authMW(RequireAdmin(http.HandlerFunc(fineLevelsHandler.Update))))
	mux.Handle("DELETE /api/fine-levels/{id}", authMW(RequireAdmin(http.HandlerFunc(fineLevelsHandler.Delete))))

	// Loans. Ownership and role checks live in the workflow layer.
	mux.Handle("GET /api/loans", authMW(http.HandlerFunc(loansHandler.List)))
	mux.Handle("POST /api/loans", authMW(http.HandlerFunc(loansHandler.Submit)))
	mux.Handle("GET /api/loans/{id}", authMW(http.HandlerFunc(loansHandler.Get)))
	mux.Handle("POST /api/loans/{id}/confirm", authMW(http.HandlerFunc(loansHandler.Confirm)))
	mux.Handle("POST /api/loans/{id}/reject", authMW(http.HandlerFunc(loansHandler.Reject)))
	mux.Handle("POST /api/loans/{id}/cancel", authMW(http.HandlerFunc(loansHandler.Cancel)))
	mux.Handle("POST /api/loans/{id}/extend", authMW(http.HandlerFunc(loansHandler.Extend)))
	mux.Handle("POST /api/loans/{id}/return", authMW(http.HandlerFunc(loansHandler.RequestReturn)))

	// Return processing (staff).
	mux.Handle("GET /api/returns", authMW(RequireStaff(http.HandlerFunc(returnsHandler.List))))
	mux.Handle("POST /api/returns/{id}/confirm", authMW(http.HandlerFunc(returnsHandler.Confirm)))

	// Fines. Ownership and role checks live in the workflow layer.
	mux.Handle("GET /api/fines", authMW(http.HandlerFunc(finesHandler.List)))
	mux.Handle("GET /api/fines/{id}", authMW(http.HandlerFunc(finesHandler.Get)))
	mux.Handle("POST /api/fines/{id}/pay", authMW(http.HandlerFunc(finesHandler.Pay)))
	mux.Handle("POST /api/fines/{id}/confirm", authMW(http.HandlerFunc(finesHandler.ConfirmPayment)))
	mux.Handle("POST /api/fines/{id}/reject", authMW(http.HandlerFunc(finesHandler.RejectPayment)))

	// Notifications.
	mux.Handle("GET /api/notifications", authMW(http.HandlerFunc(notificationsHandler.List)))
	mux.Handle("POST /api/notifications/read", authMW(http.HandlerFunc(notificationsHandler.MarkRead)))
	mux.Handle("GET /api/notifications/ws", authMW(http.HandlerFunc(notificationsHandler.Stream)))

	// Reports (staff).
	mux.Handle("GET /api/reports/summary", authMW(RequireStaff(http.HandlerFunc(reportsHandler.Summary))))
	mux.Handle("GET /api/reports/loans.csv", authMW(RequireStaff(http.HandlerFunc(reportsHandler.LoansCSV))))

	return mux
}
