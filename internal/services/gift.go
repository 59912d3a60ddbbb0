package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"pklive-backend/internal/models"

	"github.com/rs/zerolog"
)

// GiftEngine moves diamonds from a sender to a streamer in exchange
// for a catalog gift. The balance check and both mutations are one
// atomic unit in the ledger; the room broadcast and the battle score
// update happen strictly after the ledger commit.
type GiftEngine struct {
	ledger    LedgerStore
	catalog   GiftCatalog
	streams   StreamDirectory
	users     UserDirectory
	publisher Publisher
	scores    ScoreSink

	allowSelfGift bool
	dedupWindow   time.Duration
	logger        zerolog.Logger
}

func NewGiftEngine(
	ledger LedgerStore,
	catalog GiftCatalog,
	streams StreamDirectory,
	users UserDirectory,
	publisher Publisher,
	scores ScoreSink,
	allowSelfGift bool,
	dedupWindow time.Duration,
	logger zerolog.Logger,
) *GiftEngine {
	return &GiftEngine{
		ledger:        ledger,
		catalog:       catalog,
		streams:       streams,
		users:         users,
		publisher:     publisher,
		scores:        scores,
		allowSelfGift: allowSelfGift,
		dedupWindow:   dedupWindow,
		logger:        logger,
	}
}

func (e *GiftEngine) SendGift(ctx context.Context, senderID int64, req *models.SendGiftRequest, idempotencyKey string) (*models.SendGiftResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	gift, err := e.catalog.GetGift(ctx, req.GiftID)
	if err != nil {
		return nil, err
	}
	if !gift.IsActive {
		return nil, fmt.Errorf("%w: gift %s is no longer available", models.ErrNotFound, gift.ID)
	}

	stream, err := e.streams.GetStream(ctx, req.StreamID)
	if err != nil {
		return nil, err
	}
	if !stream.Live {
		return nil, fmt.Errorf("%w: stream %s is not live", models.ErrNotFound, stream.ID)
	}

	receiverID := stream.StreamerID
	if receiverID == senderID && !e.allowSelfGift {
		return nil, fmt.Errorf("%w: gifting your own stream is not allowed", models.ErrValidation)
	}

	if gift.Price > 0 && req.Quantity > math.MaxInt64/gift.Price {
		return nil, fmt.Errorf("%w: %d x %d diamonds", models.ErrOverflow, gift.Price, req.Quantity)
	}
	if gift.Value > 0 && req.Quantity > math.MaxInt64/gift.Value {
		return nil, fmt.Errorf("%w: %d x %d battle score", models.ErrOverflow, gift.Value, req.Quantity)
	}
	totalCost := gift.Price * req.Quantity

	if idempotencyKey != "" {
		fresh, err := e.ledger.ReserveIdempotencyKey(ctx, senderID, idempotencyKey, e.dedupWindow)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if !fresh {
			return nil, fmt.Errorf("%w: gift send %s already processed", models.ErrConflict, idempotencyKey)
		}
	}

	senderBalance, receiverBalance, err := e.ledger.Transfer(ctx, senderID, receiverID, totalCost)
	if err != nil {
		// free the key: a failed attempt must not lock the client out
		// of retrying for the whole dedup window
		if idempotencyKey != "" {
			if relErr := e.ledger.ReleaseIdempotencyKey(ctx, senderID, idempotencyKey); relErr != nil {
				e.logger.Error().Err(relErr).
					Int64("sender_id", senderID).
					Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	result := &models.SendGiftResult{
		Gift:            gift,
		Quantity:        req.Quantity,
		TotalCost:       totalCost,
		SenderID:        senderID,
		ReceiverID:      receiverID,
		SenderBalance:   senderBalance,
		ReceiverBalance: receiverBalance,
	}

	e.recordTransactions(ctx, stream, result)
	e.notifyReceiver(ctx, stream, result)

	// Publish only after the transfer has committed, so viewers never
	// see an animation for a transfer that later fails.
	if e.publisher != nil {
		sender := e.senderProfile(ctx, senderID)
		e.publisher.Publish(stream.ID, models.NewGiftSentEvent(stream.ID, sender, result))
		e.publisher.PublishToUser(senderID, models.ServerEvent{
			Type: models.EventBalanceUpdate,
			Data: models.BalanceUpdatePayload{UserID: senderID, Balance: senderBalance},
		})
		e.publisher.PublishToUser(receiverID, models.ServerEvent{
			Type: models.EventBalanceUpdate,
			Data: models.BalanceUpdatePayload{UserID: receiverID, Balance: receiverBalance},
		})
	}

	// A battle-score failure is invisible to the sender: the gift
	// already succeeded, the next broadcast corrects the view. A
	// streamer not in an active battle is a non-event, not a failure.
	if e.scores != nil {
		if err := e.scores.ApplyGift(receiverID, gift.Value*req.Quantity); err != nil &&
			!errors.Is(err, models.ErrNotFound) &&
			!errors.Is(err, models.ErrBattleNotStarted) {
			e.logger.Warn().Err(err).
				Int64("streamer_id", receiverID).
				Msg("battle score update failed")
		}
	}

	e.logger.Info().
		Int64("sender_id", senderID).
		Int64("receiver_id", receiverID).
		Str("gift_id", gift.ID).
		Int64("quantity", req.Quantity).
		Int64("total_cost", totalCost).
		Msg("gift sent")

	return result, nil
}

// recordTransactions appends one signed record per party. The
// transfer has already committed; a failed append is logged, never
// surfaced, and never rolls the transfer back.
func (e *GiftEngine) recordTransactions(ctx context.Context, stream *models.Stream, result *models.SendGiftResult) {
	now := time.Now()
	meta := map[string]string{
		"gift_id":   result.Gift.ID,
		"stream_id": stream.ID,
		"quantity":  fmt.Sprintf("%d", result.Quantity),
	}

	debit := &models.Transaction{
		ID:             models.GenerateTransactionID(),
		UserID:         result.SenderID,
		CounterpartyID: result.ReceiverID,
		Type:           models.TransactionTypeGiftSent,
		Amount:         -result.TotalCost,
		Description:    fmt.Sprintf("Sent %dx %s", result.Quantity, result.Gift.Name),
		Metadata:       meta,
		CreatedAt:      now,
	}
	if err := e.ledger.AppendTransaction(ctx, debit); err != nil {
		e.logger.Error().Err(err).Str("tx_id", debit.ID).Msg("failed to append sender transaction")
	}

	credit := &models.Transaction{
		ID:             models.GenerateTransactionID(),
		UserID:         result.ReceiverID,
		CounterpartyID: result.SenderID,
		Type:           models.TransactionTypeGiftReceived,
		Amount:         result.TotalCost,
		Description:    fmt.Sprintf("Received %dx %s", result.Quantity, result.Gift.Name),
		Metadata:       meta,
		CreatedAt:      now,
	}
	if err := e.ledger.AppendTransaction(ctx, credit); err != nil {
		e.logger.Error().Err(err).Str("tx_id", credit.ID).Msg("failed to append receiver transaction")
	}
}

func (e *GiftEngine) notifyReceiver(ctx context.Context, stream *models.Stream, result *models.SendGiftResult) {
	n := &models.Notification{
		ID:     models.GenerateNotificationID(),
		UserID: result.ReceiverID,
		Type:   models.NotificationTypeGiftReceived,
		Payload: map[string]string{
			"sender_id": fmt.Sprintf("%d", result.SenderID),
			"gift_id":   result.Gift.ID,
			"gift_name": result.Gift.Name,
			"quantity":  fmt.Sprintf("%d", result.Quantity),
			"stream_id": stream.ID,
		},
		CreatedAt: time.Now(),
	}
	if err := e.ledger.AppendNotification(ctx, n); err != nil {
		e.logger.Error().Err(err).Str("notification_id", n.ID).Msg("failed to append notification")
	}
}

func (e *GiftEngine) senderProfile(ctx context.Context, senderID int64) *models.User {
	if e.users == nil {
		return &models.User{ID: senderID}
	}
	user, err := e.users.GetUser(ctx, senderID)
	if err != nil {
		return &models.User{ID: senderID}
	}
	return user
}
