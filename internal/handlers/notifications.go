package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/gate"
	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/policy"
	"github.com/diewo77/sgm/internal/services"
)

// NotificationHandler serves the caller's own notifications and the email
// log.
type NotificationHandler struct {
	notifications *services.NotificationService
	gate          *policy.AuthGate
}

func NewNotificationHandler(notifications *services.NotificationService, authGate *policy.AuthGate) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, gate: authGate}
}

func (h *NotificationHandler) list(c *gin.Context, unreadOnly bool) {
	uid, _ := auth.UserID(c)
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	list, err := h.notifications.List(c.Request.Context(), uid, unreadOnly, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *NotificationHandler) List(c *gin.Context)   { h.list(c, false) }
func (h *NotificationHandler) Unread(c *gin.Context) { h.list(c, true) }

// own loads the notification of the path. Notifications of other users
// are reported as missing.
func (h *NotificationHandler) own(c *gin.Context) (*models.Notification, bool) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return nil, false
	}
	n, err := h.notifications.Get(c.Request.Context(), id)
	if err == nil {
		err = h.gate.AuthorizeObject(c.Request.Context(), gate.ActionView, policy.ResourceNotification, n)
	}
	if errors.Is(err, gate.ErrUnauthorized) {
		httpx.JSONError(c, http.StatusNotFound, "notification not found", nil)
		return nil, false
	}
	if err != nil {
		httpx.Error(c, err)
		return nil, false
	}
	return n, true
}

func (h *NotificationHandler) Get(c *gin.Context) {
	n, ok := h.own(c)
	if !ok {
		return
	}
	httpx.JSON(c, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	n, ok := h.own(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkAsRead(c.Request.Context(), n); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	uid, _ := auth.UserID(c)
	n, err := h.notifications.MarkAllAsRead(c.Request.Context(), uid)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, gin.H{"count": n})
}

func (h *NotificationHandler) CountUnread(c *gin.Context) {
	uid, _ := auth.UserID(c)
	n, err := h.notifications.CountUnread(c.Request.Context(), uid)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, gin.H{"count": n})
}

func (h *NotificationHandler) ListEmails(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	list, err := h.notifications.ListEmails(c.Request.Context(), models.EmailStatus(c.Query("status")), page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *NotificationHandler) ResendEmail(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	e, err := h.notifications.ResendEmail(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, e)
}
