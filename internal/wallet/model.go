package wallet

import "time"

type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is a settled service payment as seen by one of its parties.
// All amounts are in cents.
type Transaction struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Amount     int64     `json:"amount"`
	Commission int64     `json:"commission"`
	NetPayout  int64     `json:"net_payout"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}
