package models

import "fmt"

type Gift struct {
	ID       string `json:"id" redis:"id"`
	Name     string `json:"name" redis:"name"`
	Price    int64  `json:"price" redis:"price"` // diamonds per unit
	Value    int64  `json:"value" redis:"value"` // battle score per unit
	Category string `json:"category" redis:"category"`
	IsActive bool   `json:"is_active" redis:"is_active"`
}

type SendGiftRequest struct {
	StreamID string `json:"stream_id" binding:"required"`
	GiftID   string `json:"gift_id" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required"`
}

func (r *SendGiftRequest) Validate() error {
	if r.StreamID == "" {
		return fmt.Errorf("%w: stream_id is required", ErrValidation)
	}
	if r.GiftID == "" {
		return fmt.Errorf("%w: gift_id is required", ErrValidation)
	}
	if r.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	return nil
}

type SendGiftResult struct {
	Gift            *Gift `json:"gift"`
	Quantity        int64 `json:"quantity"`
	TotalCost       int64 `json:"total_cost"`
	SenderID        int64 `json:"sender_id"`
	ReceiverID      int64 `json:"receiver_id"`
	SenderBalance   int64 `json:"sender_balance"`
	ReceiverBalance int64 `json:"receiver_balance"`
}
