package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/service"
)

// NotificationHandler serves the caller's inbox.
type NotificationHandler struct {
	Inbox *service.NotificationService
}

func NewNotificationHandler(s *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{Inbox: s}
}

// List handles GET /notifications[?skip&limit].
func (h *NotificationHandler) List(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	skip, limit, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.Inbox.List(c.Request().Context(), a, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]notificationOut, 0, len(list))
	for _, n := range list {
		out = append(out, notificationOut{ID: n.ID, UserID: n.RecipientUserID, Message: n.Message, IsRead: n.IsRead, CreatedAt: n.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}

// MarkRead handles PUT /notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Inbox.MarkRead(c.Request().Context(), a, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_read": true})
}

// MarkAllRead handles PUT /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	n, err := h.Inbox.MarkAllRead(c.Request().Context(), a)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// Count handles GET /notifications/count.
func (h *NotificationHandler) Count(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	n, err := h.Inbox.UnreadCount(c.Request().Context(), a)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}
