package lp

import "time"

// UserProfile is a registered wallet record.
type UserProfile struct {
	WalletID  string    `json:"walletId"`
	Address   string    `json:"address"`
	ChatID    int64     `json:"chatId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
