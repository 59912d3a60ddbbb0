package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pklive-backend/internal/models"
	"pklive-backend/internal/services"
)

type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
}

func NewAuthHandler(redisService *services.RedisService, jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
	}
}

type loginRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Login issues a token for a user identity. The upstream identity
// provider is outside this service; callers arrive here already
// verified.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user := &models.User{
		ID:          req.UserID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		CreatedAt:   time.Now().Unix(),
	}
	if err := h.redisService.StoreUser(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	token, err := h.jwtService.GenerateToken(req.UserID, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
