package models

type User struct {
	ID          int64  `json:"id" redis:"id"`
	Username    string `json:"username" redis:"username"`
	DisplayName string `json:"display_name" redis:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty" redis:"avatar_url"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
}

type Wallet struct {
	UserID  int64 `json:"user_id" redis:"user_id"`
	Balance int64 `json:"balance" redis:"balance"`
}

type BalanceResponse struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}
