package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pklive-backend/internal/services"
)

type NotificationHandler struct {
	redisService *services.RedisService
}

func NewNotificationHandler(redisService *services.RedisService) *NotificationHandler {
	return &NotificationHandler{redisService: redisService}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetInt64("user_id")

	notifications, err := h.redisService.GetUserNotifications(c.Request.Context(), userID, 50)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}
