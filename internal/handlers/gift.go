package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pklive-backend/internal/models"
	"pklive-backend/internal/services"
)

type GiftHandler struct {
	engine  *services.GiftEngine
	catalog services.GiftCatalog
}

func NewGiftHandler(engine *services.GiftEngine, catalog services.GiftCatalog) *GiftHandler {
	return &GiftHandler{
		engine:  engine,
		catalog: catalog,
	}
}

func (h *GiftHandler) SendGift(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.SendGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")

	result, err := h.engine.SendGift(c.Request.Context(), userID, &req, idempotencyKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gift":             result.Gift,
		"quantity":         result.Quantity,
		"total_cost":       result.TotalCost,
		"sender_balance":   result.SenderBalance,
		"receiver_balance": result.ReceiverBalance,
	})
}

func (h *GiftHandler) ListGifts(c *gin.Context) {
	gifts, err := h.catalog.ListActiveGifts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gifts": gifts})
}
