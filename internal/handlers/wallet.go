package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pklive-backend/internal/models"
	"pklive-backend/internal/services"
)

type WalletHandler struct {
	redisService *services.RedisService
	publisher    services.Publisher
}

func NewWalletHandler(redisService *services.RedisService, publisher services.Publisher) *WalletHandler {
	return &WalletHandler{redisService: redisService, publisher: publisher}
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.redisService.GetWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		UserID:  wallet.UserID,
		Balance: wallet.Balance,
	})
}

func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID := c.GetInt64("user_id")

	transactions, err := h.redisService.GetUserTransactions(c.Request.Context(), userID, 50)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

type topUpRequest struct {
	Amount int64 `json:"amount" binding:"required"`
	// PaymentRef identifies the confirmed payment. The gateway itself
	// is out of scope; by the time this endpoint is hit the payment
	// is an opaque confirmed event.
	PaymentRef string `json:"payment_ref" binding:"required"`
}

func (h *WalletHandler) TopUp(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be at least 1"})
		return
	}

	ctx := c.Request.Context()

	balance, err := h.redisService.Credit(ctx, userID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	tx := &models.Transaction{
		ID:          models.GenerateTransactionID(),
		UserID:      userID,
		Type:        models.TransactionTypeDiamondPurchase,
		Amount:      req.Amount,
		Description: fmt.Sprintf("Purchased %d diamonds", req.Amount),
		Metadata:    map[string]string{"payment_ref": req.PaymentRef},
		CreatedAt:   time.Now(),
	}
	if err := h.redisService.AppendTransaction(ctx, tx); err != nil {
		respondError(c, err)
		return
	}

	h.publisher.PublishToUser(userID, models.ServerEvent{
		Type: models.EventBalanceUpdate,
		Data: models.BalanceUpdatePayload{UserID: userID, Balance: balance},
	})

	c.JSON(http.StatusOK, models.BalanceResponse{
		UserID:  userID,
		Balance: balance,
	})
}
