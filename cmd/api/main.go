package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pklive-backend/internal/config"
	"pklive-backend/internal/handlers"
	"pklive-backend/internal/logger"
	"pklive-backend/internal/middleware"
	"pklive-backend/internal/models"
	"pklive-backend/internal/services"
)

var defaultGifts = []*models.Gift{
	{ID: "rose", Name: "Rose", Price: 1, Value: 1, Category: "classic", IsActive: true},
	{ID: "heart_balloon", Name: "Heart Balloon", Price: 5, Value: 5, Category: "classic", IsActive: true},
	{ID: "fireworks", Name: "Fireworks", Price: 50, Value: 60, Category: "party", IsActive: true},
	{ID: "sports_car", Name: "Sports Car", Price: 500, Value: 650, Category: "luxury", IsActive: true},
	{ID: "rocket", Name: "Rocket", Price: 2000, Value: 2800, Category: "luxury", IsActive: true},
	{ID: "castle", Name: "Castle", Price: 10000, Value: 15000, Category: "luxury", IsActive: true},
}

func main() {
	// no .env file is fine, the real environment takes over
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Env != "production")

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisService.Close()

	if err := redisService.SeedGifts(context.Background(), defaultGifts); err != nil {
		log.Fatal().Err(err).Msg("failed to seed gift catalog")
	}

	jwtService := services.NewJWTService(cfg)

	hub := handlers.NewHub(log)
	go hub.Run()

	battleEngine := services.NewBattleEngine(hub, cfg.DefaultBattleDuration, log)
	giftEngine := services.NewGiftEngine(
		redisService, redisService, redisService, redisService,
		hub, battleEngine,
		cfg.AllowSelfGift, cfg.GiftDedupWindow, log,
	)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			battleEngine.CleanupEndedBattles(10 * time.Minute)
		}
	}()

	authHandler := handlers.NewAuthHandler(redisService, jwtService)
	wsHandler := handlers.NewWebSocketHandler(hub, jwtService, redisService, battleEngine, log)
	giftHandler := handlers.NewGiftHandler(giftEngine, redisService)
	walletHandler := handlers.NewWalletHandler(redisService, hub)
	battleHandler := handlers.NewBattleHandler(battleEngine, redisService)
	streamHandler := handlers.NewStreamHandler(redisService, hub)
	notificationHandler := handlers.NewNotificationHandler(redisService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/login", authHandler.Login)
	router.GET("/ws", wsHandler.HandleWebSocket)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		gifts := protected.Group("/gifts")
		{
			gifts.GET("", giftHandler.ListGifts)
			gifts.POST("/send", giftHandler.SendGift)
		}

		wallet := protected.Group("/wallet")
		{
			wallet.GET("", walletHandler.GetWallet)
			wallet.GET("/transactions", walletHandler.GetTransactions)
			wallet.POST("/topup", walletHandler.TopUp)
		}

		battles := protected.Group("/battles")
		{
			battles.POST("/challenge", battleHandler.Challenge)
			battles.POST("/:id/accept", battleHandler.Accept)
			battles.POST("/:id/end", battleHandler.End)
			battles.GET("/:id", battleHandler.Get)
		}

		streams := protected.Group("/streams")
		{
			streams.POST("/live", streamHandler.GoLive)
			streams.DELETE("/live", streamHandler.GoOffline)
			streams.GET("/:id", streamHandler.Get)
		}

		protected.GET("/notifications", notificationHandler.List)
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("server starting")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
