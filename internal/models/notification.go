package models

import "time"

type NotificationType string

const (
	NotificationTypeGiftReceived NotificationType = "GIFT_RECEIVED"
)

type Notification struct {
	ID        string            `json:"id" redis:"id"`
	UserID    int64             `json:"user_id" redis:"user_id"`
	Type      NotificationType  `json:"type" redis:"type"`
	Payload   map[string]string `json:"payload,omitempty" redis:"payload"`
	CreatedAt time.Time         `json:"created_at" redis:"created_at"`
}
