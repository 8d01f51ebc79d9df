package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/notifications"
	apperrors "github.com/Juanes-crypto/grupo-agro-backend/pkg/errors"
)

// NotificationHandler serves the notification side channel
type NotificationHandler struct {
	dispatcher notifications.Dispatcher
	logger     *zap.Logger
}

func NewNotificationHandler(dispatcher notifications.Dispatcher, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher, logger: logger}
}

// List handles GET /api/v1/notifications
// @Summary      List the caller's notifications, newest first
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.Notification
// @Router       /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}

	list, err := h.dispatcher.ListByUser(c.Request.Context(), userID.String())
	if err != nil {
		h.logger.Error("Failed to list notifications", zap.Error(err))
		fail(c, apperrors.NewInternalError("failed to list notifications", err))
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkRead handles PUT /api/v1/notifications/:id/read
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID (Mongo ObjectID)"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  ErrorResponse
// @Router       /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid notification id", err.Error()))
		return
	}

	if err := h.dispatcher.MarkRead(c.Request.Context(), id, userID.String()); err != nil {
		if err == notifications.ErrNotificationNotFound {
			fail(c, apperrors.NewStandardError("ResourceNotFound", "notification not found", "Notification ID: "+c.Param("id")))
			return
		}
		fail(c, apperrors.NewInternalError("failed to mark notification read", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}
