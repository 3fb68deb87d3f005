package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/knjiznica/internal/covers"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// BooksHandler handles catalog endpoints.
type BooksHandler struct {
	DB *sql.DB
}

type createBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	CategoryID  *int64 `json:"category_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

type updateBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	CategoryID  *int64 `json:"category_id"`
	Description string `json:"description"`
}

type adjustQuantityRequest struct {
	Delta int `json:"delta"`
}

// List handles GET /api/books. Optional ?category= and ?search= filters.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if v := r.URL.Query().Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid category filter")
			return
		}
		categoryID = id
	}
	search := r.URL.Query().Get("search")

	books, err := store.ListBooks(r.Context(), h.DB, categoryID, search)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	if books == nil {
		books = []model.Book{}
	}
	jsonResponse(w, http.StatusOK, books)
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" || req.Author == "" {
		jsonError(w, http.StatusBadRequest, "title and author required")
		return
	}
	if req.Quantity < 0 {
		jsonError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	book, err := store.CreateBook(r.Context(), h.DB, req.Title, req.Author, req.CategoryID, req.Description, req.Quantity)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create book")
		return
	}

	slog.Info("book created", "book", book.Title, "quantity", book.Total)
	jsonResponse(w, http.StatusCreated, book)
}

// Get handles GET /api/books/{id}.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get book")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	jsonResponse(w, http.StatusOK, book)
}

// Update handles PUT /api/books/{id}. Quantities are never changed here;
// they move only through loan transitions and the adjust endpoint.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req updateBookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Author == "" {
		jsonError(w, http.StatusBadRequest, "title and author required")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	if err := store.UpdateBook(r.Context(), h.DB, id, req.Title, req.Author, req.CategoryID, req.Description); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update book")
		return
	}

	updated, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// AdjustQuantity handles POST /api/books/{id}/quantity. Adds or removes
// copies from the pool; removal is limited to currently available copies.
func (h *BooksHandler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req adjustQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 {
		jsonError(w, http.StatusBadRequest, "delta must not be zero")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	if err := store.AdjustBookQuantity(r.Context(), h.DB, id, req.Delta); err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			jsonError(w, http.StatusConflict, "not enough available copies to remove")
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to adjust quantity")
		return
	}

	slog.Info("book quantity adjusted", "book", book.Title, "delta", req.Delta)
	updated, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// UploadCover handles PUT /api/books/{id}/cover.
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	cover, err := covers.Process(http.MaxBytesReader(w, r.Body, covers.MaxUploadSize))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetBookCover(r.Context(), h.DB, id, cover.Data, cover.MIME); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store cover")
		return
	}

	slog.Info("book cover updated", "book", book.Title, "size", len(cover.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "cover updated"})
}

// GetCover handles GET /api/books/{id}/cover.
func (h *BooksHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	data, mime, err := store.GetBookCover(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get cover")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no cover")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Delete handles DELETE /api/books/{id}. Refused while copies are out.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	if err := store.DeleteBook(r.Context(), h.DB, id); err != nil {
		if errors.Is(err, store.ErrBorrowedCopies) {
			jsonError(w, http.StatusConflict, "book has borrowed copies")
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to delete book")
		return
	}

	slog.Info("book deleted", "book", book.Title)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "book deleted"})
}
