package services

import (
	"context"
	"time"

	"pklive-backend/internal/models"
)

// LedgerStore is the balance and record store consumed by the gift
// engine. Transfer must be atomic: the balance check and both
// mutations happen as one unit or not at all.
type LedgerStore interface {
	GetWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	Transfer(ctx context.Context, fromID, toID, amount int64) (fromBalance, toBalance int64, err error)
	Credit(ctx context.Context, userID, amount int64) (int64, error)
	AppendTransaction(ctx context.Context, tx *models.Transaction) error
	AppendNotification(ctx context.Context, n *models.Notification) error
	// ReserveIdempotencyKey returns false when the key was already
	// used inside the dedup window.
	ReserveIdempotencyKey(ctx context.Context, userID int64, key string, window time.Duration) (bool, error)
	// ReleaseIdempotencyKey frees a reserved key so a retry after a
	// failed attempt is not locked out for the whole window.
	ReleaseIdempotencyKey(ctx context.Context, userID int64, key string) error
}

type GiftCatalog interface {
	GetGift(ctx context.Context, giftID string) (*models.Gift, error)
	ListActiveGifts(ctx context.Context) ([]*models.Gift, error)
}

type StreamDirectory interface {
	GetStream(ctx context.Context, streamID string) (*models.Stream, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// Publisher fans an event out to every subscriber of a room, or
// unicasts to the authenticated connections of one user. Delivery is
// best-effort; per-subscriber failures never propagate.
type Publisher interface {
	Publish(roomID string, event models.ServerEvent)
	PublishToUser(userID int64, event models.ServerEvent)
}

// ScoreSink receives gift value for a streamer currently in a battle.
type ScoreSink interface {
	ApplyGift(streamerID, value int64) error
}
