package notificationhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"motortrade/internal/http/httperr"
	"motortrade/internal/http/middleware"
	"motortrade/internal/services/notification"
)

type Handler struct {
	rec *notification.Recorder
}

func New(rec *notification.Recorder) *Handler { return &Handler{rec: rec} }

func (h *Handler) Register(r gin.IRouter, required gin.HandlerFunc) {
	g := r.Group("/notifications", required)
	g.GET("", h.list)
	g.PATCH("/:id/read", h.markRead)
}

// @Summary		Own notifications, newest first
// @Tags			Notifications
// @Security		BearerAuth
// @Success		200	{array}	domain.Notification
// @Router			/notifications [get]
func (h *Handler) list(c *gin.Context) {
	out, err := h.rec.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Mark a notification read
// @Tags			Notifications
// @Security		BearerAuth
// @Param			id	path		string	true	"Notification ID"
// @Success		200	{object}	domain.Notification
// @Failure		404	{object}	httperr.ErrorResponse
// @Router			/notifications/{id}/read [patch]
func (h *Handler) markRead(c *gin.Context) {
	n, err := h.rec.MarkRead(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}
