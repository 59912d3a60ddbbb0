package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pklive-backend/internal/models"
	"pklive-backend/internal/services"
)

type StreamHandler struct {
	redisService *services.RedisService
	hub          *Hub
}

func NewStreamHandler(redisService *services.RedisService, hub *Hub) *StreamHandler {
	return &StreamHandler{
		redisService: redisService,
		hub:          hub,
	}
}

type goLiveRequest struct {
	Title string `json:"title"`
}

func (h *StreamHandler) GoLive(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req goLiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()

	if existing, err := h.redisService.GetLiveStreamByStreamer(ctx, userID); err == nil {
		c.JSON(http.StatusOK, existing)
		return
	}

	stream := &models.Stream{
		ID:         models.GenerateStreamID(),
		StreamerID: userID,
		Title:      req.Title,
		Live:       true,
		StartedAt:  time.Now(),
	}

	if err := h.redisService.SetStreamLive(ctx, stream); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stream)
}

func (h *StreamHandler) GoOffline(c *gin.Context) {
	userID := c.GetInt64("user_id")

	ctx := c.Request.Context()

	stream, err := h.redisService.GetLiveStreamByStreamer(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.redisService.SetStreamOffline(ctx, stream.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "stream ended"})
}

func (h *StreamHandler) Get(c *gin.Context) {
	stream, err := h.redisService.GetStream(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stream":       stream,
		"viewer_count": h.hub.ViewerCount(stream.ID),
	})
}
