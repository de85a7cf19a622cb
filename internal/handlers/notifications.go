package handlers

import (
	"net/http"
	"strconv"

	"messbook/internal/errs"
	"messbook/internal/middleware"
	"messbook/internal/models"
)

func (h *Handler) registerToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Token == "" {
		writeError(w, errs.Validationf("token must not be empty"))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.store.AddDeviceToken(r.Context(), userID, req.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (h *Handler) unregisterToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.RemoveDeviceToken(r.Context(), req.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type notificationView struct {
	ID        string `json:"id"`
	MessID    string `json:"mess_id"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt int64  `json:"created_at"`
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	list, err := h.store.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]notificationView, len(list))
	for i, n := range list {
		views[i] = toNotificationView(n)
	}
	writeJSON(w, http.StatusOK, views)
}

func toNotificationView(n *models.Notification) notificationView {
	return notificationView{
		ID:        n.ID,
		MessID:    n.MessID,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.store.MarkNotificationRead(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
