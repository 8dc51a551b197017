package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            int64
	TelegramID    int64
	Username      string
	WalletAddress string
	Balance       decimal.Decimal
	ReferralCode  string
	ReferredByID  *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasWallet reports whether a TON wallet is linked. Token-holding tasks
// cannot be verified without one.
func (u *User) HasWallet() bool {
	return u.WalletAddress != ""
}
