package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pklive-backend/internal/models"
	"pklive-backend/internal/services"
)

type BattleHandler struct {
	engine       *services.BattleEngine
	redisService *services.RedisService
}

func NewBattleHandler(engine *services.BattleEngine, redisService *services.RedisService) *BattleHandler {
	return &BattleHandler{
		engine:       engine,
		redisService: redisService,
	}
}

// Challenge pairs the caller's live stream against an opponent's
// stream. The battle stays PAIRED until the opponent accepts.
func (h *BattleHandler) Challenge(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()

	challenger, err := h.redisService.GetLiveStreamByStreamer(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	opponent, err := h.redisService.GetStream(ctx, req.OpponentStreamID)
	if err != nil {
		respondError(c, err)
		return
	}

	battle, err := h.engine.Challenge(challenger, opponent, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, battle)
}

func (h *BattleHandler) Accept(c *gin.Context) {
	userID := c.GetInt64("user_id")

	battle, err := h.engine.Accept(c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, battle)
}

func (h *BattleHandler) End(c *gin.Context) {
	userID := c.GetInt64("user_id")

	battle, err := h.engine.ForceEnd(c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, battle)
}

func (h *BattleHandler) Get(c *gin.Context) {
	battle, err := h.engine.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, battle)
}
