package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pklive-backend/internal/models"
)

// respondError maps the service error taxonomy onto HTTP statuses.
// Insufficient funds gets its own status and a recharge hint so the
// client can route the user to the top-up flow instead of showing a
// generic failure.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrOverflow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":             err.Error(),
			"recharge_required": true,
		})
	case errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrBattleNotStarted),
		errors.Is(err, models.ErrBattleEnded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
