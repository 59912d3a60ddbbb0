package models

import "time"

type TransactionType string

const (
	TransactionTypeGiftSent        TransactionType = "GIFT_SENT"
	TransactionTypeGiftReceived    TransactionType = "GIFT_RECEIVED"
	TransactionTypeDiamondPurchase TransactionType = "DIAMOND_PURCHASE"
	TransactionTypeWithdrawal      TransactionType = "WITHDRAWAL"
	TransactionTypeOther           TransactionType = "OTHER"
)

// Transaction is an append-only ledger entry. Amount is signed: one
// record per party, so summing a user's records reconstructs their
// balance deltas.
type Transaction struct {
	ID             string            `json:"id" redis:"id"`
	UserID         int64             `json:"user_id" redis:"user_id"`
	CounterpartyID int64             `json:"counterparty_id,omitempty" redis:"counterparty_id"`
	Type           TransactionType   `json:"type" redis:"type"`
	Amount         int64             `json:"amount" redis:"amount"`
	Description    string            `json:"description" redis:"description"`
	Metadata       map[string]string `json:"metadata,omitempty" redis:"metadata"`
	CreatedAt      time.Time         `json:"created_at" redis:"created_at"`
}
