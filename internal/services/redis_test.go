package services_test

import (
	"context"
	"testing"
	"time"

	"pklive-backend/internal/config"
	"pklive-backend/internal/models"
	"pklive-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisService(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer redisService.Close()

	ctx := context.Background()
	sender := int64(880001)
	receiver := int64(880002)

	t.Cleanup(func() {
		redisService.DeleteWallet(ctx, sender)
		redisService.DeleteWallet(ctx, receiver)
	})

	wallet, err := redisService.GetWallet(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Balance)

	balance, err := redisService.Credit(ctx, sender, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	fromBal, toBal, err := redisService.Transfer(ctx, sender, receiver, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(40), fromBal)
	assert.Equal(t, int64(60), toBal)

	_, _, err = redisService.Transfer(ctx, sender, receiver, 60)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	// balances untouched by the failed transfer
	wallet, err = redisService.GetWallet(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, int64(40), wallet.Balance)

	tx := &models.Transaction{
		ID:          models.GenerateTransactionID(),
		UserID:      sender,
		Type:        models.TransactionTypeGiftSent,
		Amount:      -60,
		Description: "integration test",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, redisService.AppendTransaction(ctx, tx))

	transactions, err := redisService.GetUserTransactions(ctx, sender, 10)
	require.NoError(t, err)
	require.NotEmpty(t, transactions)
	assert.Equal(t, tx.ID, transactions[0].ID)

	fresh, err := redisService.ReserveIdempotencyKey(ctx, sender, "it-key", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = redisService.ReserveIdempotencyKey(ctx, sender, "it-key", time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh)

	stream := &models.Stream{
		ID:         "it-stream",
		StreamerID: receiver,
		Title:      "integration",
		Live:       true,
		StartedAt:  time.Now(),
	}
	require.NoError(t, redisService.SetStreamLive(ctx, stream))
	t.Cleanup(func() { redisService.DeleteStream(ctx, stream.ID) })

	got, err := redisService.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.True(t, got.Live)

	byStreamer, err := redisService.GetLiveStreamByStreamer(ctx, receiver)
	require.NoError(t, err)
	assert.Equal(t, stream.ID, byStreamer.ID)

	require.NoError(t, redisService.SetStreamOffline(ctx, stream.ID))
	got, err = redisService.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.False(t, got.Live)

	_, err = redisService.GetLiveStreamByStreamer(ctx, receiver)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRedisServiceFirstSendUsesStartingBalance(t *testing.T) {
	cfg := &config.Config{
		RedisURL:        "localhost:6379",
		StartingBalance: 50,
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer redisService.Close()

	ctx := context.Background()
	sender := int64(880010)
	receiver := int64(880011)
	broke := int64(880012)

	t.Cleanup(func() {
		redisService.DeleteWallet(ctx, sender)
		redisService.DeleteWallet(ctx, receiver)
		redisService.DeleteWallet(ctx, broke)
	})

	// a send before the wallet has ever been read spends the starting
	// balance, same as GetWallet would have materialized it
	fromBal, toBal, err := redisService.Transfer(ctx, sender, receiver, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(20), fromBal)
	assert.Equal(t, int64(80), toBal)

	wallet, err := redisService.GetWallet(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, int64(20), wallet.Balance)

	// an unaffordable first send is an insufficient-funds failure, not
	// a missing wallet
	_, _, err = redisService.Transfer(ctx, broke, receiver, 100)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
}
