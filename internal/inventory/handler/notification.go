package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// NotificationHandler serves the branch notification feed
type NotificationHandler struct {
	notifications *repository.NotificationRepository
	logger        *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *repository.NotificationRepository, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        log,
	}
}

// List lists a branch's notifications. ?unread=true filters to unread.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	unreadOnly := r.URL.Query().Get("unread") == "true"

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	notifications, err := h.notifications.ListByBranch(r.Context(), branchID, unreadOnly, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, notifications)
}

// UnreadCount returns the badge count for the notification bell
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	count, err := h.notifications.UnreadCount(r.Context(), branchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"unread": count})
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	id := chi.URLParam(r, "id")

	if err := h.notifications.MarkRead(r.Context(), branchID, id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// MarkAllRead marks all of a branch's notifications as read
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	if err := h.notifications.MarkAllRead(r.Context(), branchID); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
