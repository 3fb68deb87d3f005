package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/notify"
	"github.com/erazemk/knjiznica/internal/store"
)

// NotificationsHandler handles notification endpoints.
type NotificationsHandler struct {
	DB  *sql.DB
	Hub *notify.Hub
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r.Context())

	notifications, err := store.ListNotifications(r.Context(), h.DB, actor.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, notifications)
}

// MarkRead handles POST /api/notifications/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r.Context())

	if err := store.MarkNotificationsRead(r.Context(), h.DB, actor.ID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notifications marked read"})
}

// Stream handles GET /api/notifications/ws. Upgrades to a websocket that
// receives the user's notifications as they happen.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r.Context())
	h.Hub.ServeWS(w, r, actor.ID)
}
