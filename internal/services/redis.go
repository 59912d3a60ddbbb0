package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pklive-backend/internal/config"
	"pklive-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client          *redis.Client
	startingBalance int64
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client:          client,
		startingBalance: cfg.StartingBalance,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) StoreUser(ctx context.Context, user *models.User) error {
	key := fmt.Sprintf(KeyUserInfo, user.ID)

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, TTLUserInfo).Err()
}

func (s *RedisService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	key := fmt.Sprintf(KeyUserInfo, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}

	var user models.User
	err = json.Unmarshal([]byte(data), &user)
	return &user, err
}

func (s *RedisService) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		wallet := &models.Wallet{
			UserID:  userID,
			Balance: s.startingBalance,
		}
		if err := s.saveWallet(ctx, wallet); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %v", err)
		}
		return wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %v", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %v", err)
	}

	return &wallet, nil
}

func (s *RedisService) saveWallet(ctx context.Context, wallet *models.Wallet) error {
	key := fmt.Sprintf(KeyWallet, wallet.UserID)

	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %v", err)
	}

	return s.client.Set(ctx, key, data, 0).Err()
}

// transferScript moves amount between two wallets in one atomic unit.
// The balance check and both mutations happen inside the script, so
// two concurrent transfers can never both pass the check against a
// stale balance. A sender wallet that has never been read holds the
// starting balance, same as GetWallet materializes it.
var transferScript = redis.NewScript(`
	local amount = tonumber(ARGV[1])

	local fromData = redis.call("GET", KEYS[1])
	local from
	if fromData then
		from = cjson.decode(fromData)
	else
		from = {user_id = tonumber(ARGV[3]), balance = tonumber(ARGV[4])}
	end

	if from.balance < amount then
		return redis.error_reply("insufficient balance")
	end

	if KEYS[1] == KEYS[2] then
		-- self transfer: debit and credit cancel out
		redis.call("SET", KEYS[1], cjson.encode(from))
		return {from.balance, from.balance}
	end

	from.balance = from.balance - amount

	local toData = redis.call("GET", KEYS[2])
	local to
	if toData then
		to = cjson.decode(toData)
	else
		to = {user_id = tonumber(ARGV[2]), balance = tonumber(ARGV[4])}
	end
	to.balance = to.balance + amount

	redis.call("SET", KEYS[1], cjson.encode(from))
	redis.call("SET", KEYS[2], cjson.encode(to))

	return {from.balance, to.balance}
`)

func (s *RedisService) Transfer(ctx context.Context, fromID, toID, amount int64) (int64, int64, error) {
	fromKey := fmt.Sprintf(KeyWallet, fromID)
	toKey := fmt.Sprintf(KeyWallet, toID)

	res, err := transferScript.Run(ctx, s.client, []string{fromKey, toKey},
		amount, toID, fromID, s.startingBalance).Result()
	if err != nil {
		if strings.Contains(err.Error(), "insufficient balance") {
			return 0, 0, fmt.Errorf("%w: need %d", models.ErrInsufficientFunds, amount)
		}
		return 0, 0, fmt.Errorf("transfer failed: %v", err)
	}

	return parseTransferReply(res)
}

func parseTransferReply(res interface{}) (int64, int64, error) {
	balances, ok := res.([]interface{})
	if !ok || len(balances) != 2 {
		return 0, 0, fmt.Errorf("transfer returned unexpected result: %v", res)
	}

	fromBal, okFrom := balances[0].(int64)
	toBal, okTo := balances[1].(int64)
	if !okFrom || !okTo {
		return 0, 0, fmt.Errorf("transfer returned unexpected result: %v", res)
	}

	return fromBal, toBal, nil
}

var creditScript = redis.NewScript(`
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", KEYS[1])
	local wallet
	if data then
		wallet = cjson.decode(data)
	else
		wallet = {user_id = tonumber(ARGV[2]), balance = tonumber(ARGV[3])}
	end

	wallet.balance = wallet.balance + amount
	redis.call("SET", KEYS[1], cjson.encode(wallet))

	return wallet.balance
`)

func (s *RedisService) Credit(ctx context.Context, userID, amount int64) (int64, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	balance, err := creditScript.Run(ctx, s.client, []string{key}, amount, userID, s.startingBalance).Int64()
	if err != nil {
		return 0, fmt.Errorf("credit failed: %v", err)
	}

	return balance, nil
}

func (s *RedisService) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}

	if err := s.client.Set(ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.UserID)
	if err := s.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.UnixNano()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to user transactions: %v", err)
	}

	// Keep only last 200 transactions per user
	s.client.ZRemRangeByRank(ctx, userTxKey, 0, -201)

	return nil
}

func (s *RedisService) GetUserTransactions(ctx context.Context, userID, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, userID)

	txIDs, err := s.client.ZRevRange(ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %v", err)
	}

	var transactions []*models.Transaction
	for _, txID := range txIDs {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyTransaction, txID)).Result()
		if err != nil {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}

		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

func (s *RedisService) AppendNotification(ctx context.Context, n *models.Notification) error {
	key := fmt.Sprintf(KeyNotification, n.ID)

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %v", err)
	}

	if err := s.client.Set(ctx, key, data, TTLNotification).Err(); err != nil {
		return fmt.Errorf("failed to save notification: %v", err)
	}

	userKey := fmt.Sprintf(KeyUserNotifications, n.UserID)
	if err := s.client.ZAdd(ctx, userKey, redis.Z{
		Score:  float64(n.CreatedAt.UnixNano()),
		Member: n.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to user notifications: %v", err)
	}

	s.client.ZRemRangeByRank(ctx, userKey, 0, -101)

	return nil
}

func (s *RedisService) GetUserNotifications(ctx context.Context, userID, limit int64) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	userKey := fmt.Sprintf(KeyUserNotifications, userID)

	ids, err := s.client.ZRevRange(ctx, userKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification IDs: %v", err)
	}

	var notifications []*models.Notification
	for _, id := range ids {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyNotification, id)).Result()
		if err != nil {
			continue
		}

		var n models.Notification
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			continue
		}

		notifications = append(notifications, &n)
	}

	return notifications, nil
}

// SeedGifts loads the catalog on first boot. Existing catalogs are
// left untouched so operators can deactivate gifts without them
// reappearing.
func (s *RedisService) SeedGifts(ctx context.Context, gifts []*models.Gift) error {
	count, err := s.client.SCard(ctx, KeyGiftIndex).Result()
	if err != nil {
		return fmt.Errorf("failed to check gift index: %v", err)
	}
	if count > 0 {
		return nil
	}

	for _, gift := range gifts {
		data, err := json.Marshal(gift)
		if err != nil {
			return fmt.Errorf("failed to marshal gift: %v", err)
		}
		if err := s.client.Set(ctx, fmt.Sprintf(KeyGift, gift.ID), data, 0).Err(); err != nil {
			return fmt.Errorf("failed to save gift: %v", err)
		}
		if err := s.client.SAdd(ctx, KeyGiftIndex, gift.ID).Err(); err != nil {
			return fmt.Errorf("failed to index gift: %v", err)
		}
	}

	return nil
}

func (s *RedisService) GetGift(ctx context.Context, giftID string) (*models.Gift, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyGift, giftID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: gift %s", models.ErrNotFound, giftID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gift: %v", err)
	}

	var gift models.Gift
	if err := json.Unmarshal([]byte(data), &gift); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gift: %v", err)
	}

	return &gift, nil
}

func (s *RedisService) ListActiveGifts(ctx context.Context) ([]*models.Gift, error) {
	ids, err := s.client.SMembers(ctx, KeyGiftIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list gifts: %v", err)
	}
	if len(ids) == 0 {
		return []*models.Gift{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyGift, id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %v", err)
	}

	var gifts []*models.Gift
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}

		var gift models.Gift
		if err := json.Unmarshal([]byte(data), &gift); err != nil {
			continue
		}

		if gift.IsActive {
			gifts = append(gifts, &gift)
		}
	}

	return gifts, nil
}

func (s *RedisService) SetStreamLive(ctx context.Context, stream *models.Stream) error {
	data, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal stream: %v", err)
	}

	if err := s.client.Set(ctx, fmt.Sprintf(KeyStream, stream.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save stream: %v", err)
	}

	return s.client.Set(ctx, fmt.Sprintf(KeyStreamerLive, stream.StreamerID), stream.ID, 0).Err()
}

func (s *RedisService) SetStreamOffline(ctx context.Context, streamID string) error {
	stream, err := s.GetStream(ctx, streamID)
	if err != nil {
		return err
	}

	stream.Live = false
	data, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal stream: %v", err)
	}

	if err := s.client.Set(ctx, fmt.Sprintf(KeyStream, stream.ID), data, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to save stream: %v", err)
	}

	return s.client.Del(ctx, fmt.Sprintf(KeyStreamerLive, stream.StreamerID)).Err()
}

func (s *RedisService) GetStream(ctx context.Context, streamID string) (*models.Stream, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyStream, streamID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: stream %s", models.ErrNotFound, streamID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %v", err)
	}

	var stream models.Stream
	if err := json.Unmarshal([]byte(data), &stream); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream: %v", err)
	}

	return &stream, nil
}

func (s *RedisService) GetLiveStreamByStreamer(ctx context.Context, streamerID int64) (*models.Stream, error) {
	streamID, err := s.client.Get(ctx, fmt.Sprintf(KeyStreamerLive, streamerID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: streamer %d is not live", models.ErrNotFound, streamerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get live stream: %v", err)
	}

	return s.GetStream(ctx, streamID)
}

func (s *RedisService) ReserveIdempotencyKey(ctx context.Context, userID int64, key string, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf(KeyIdempotency, userID, key)

	ok, err := s.client.SetNX(ctx, redisKey, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %v", err)
	}

	return ok, nil
}

func (s *RedisService) ReleaseIdempotencyKey(ctx context.Context, userID int64, key string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyIdempotency, userID, key)).Err()
}

func (s *RedisService) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) DeleteWallet(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyWallet, userID)).Err()
}

func (s *RedisService) DeleteStream(ctx context.Context, streamID string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyStream, streamID)).Err()
}
