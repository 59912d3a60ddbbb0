package services

import "time"

const (
	KeyUserInfo          = "user:%d:info"
	KeyWallet            = "wallet:%d"
	KeyTransaction       = "transaction:%s"
	KeyUserTransactions  = "user:%d:transactions"
	KeyNotification      = "notification:%s"
	KeyUserNotifications = "user:%d:notifications"
	KeyGift              = "gift:%s"
	KeyGiftIndex         = "gifts:index"
	KeyStream            = "stream:%s"
	KeyStreamerLive      = "streamer:%d:live"
	KeyIdempotency       = "idem:%d:%s"
	KeyRateLimit         = "ratelimit:%d:%s"

	TTLUserInfo     = 30 * 24 * time.Hour
	TTLTransaction  = 30 * 24 * time.Hour
	TTLNotification = 30 * 24 * time.Hour

	DefaultRateLimitGifts  = 60  // gift sends per minute
	DefaultRateLimitHearts = 300 // heart taps per minute
)
